// Package host serves the page that embeds the chat widget, proxies the
// widget's API calls to the backend and relays widget actions back into the
// host process, where the action bridge handles them.
package host

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/chatkit-host/pkg/actions"
	"github.com/go-go-golems/chatkit-host/pkg/bridge"
	"github.com/go-go-golems/chatkit-host/pkg/clipboard"
	"github.com/go-go-golems/chatkit-host/pkg/config"
	"github.com/go-go-golems/chatkit-host/pkg/eventbus"
	"github.com/go-go-golems/chatkit-host/pkg/fetch"
	"github.com/go-go-golems/chatkit-host/pkg/journal"
	"github.com/go-go-golems/chatkit-host/pkg/widget"
)

//go:embed static
var staticFiles embed.FS

const shutdownTimeout = 30 * time.Second

// Server owns the widget, its action bridge and the HTTP surface around them.
type Server struct {
	settings config.Settings
	logger   zerolog.Logger

	widget   *widget.Widget
	copier   clipboard.Copier
	bridge   *bridge.ActionBridge
	bus      *eventbus.Bus
	journal  journal.Store
	adapter  *fetch.Adapter
	upgrader websocket.Upgrader

	mux     *http.ServeMux
	httpSrv *http.Server

	mu        sync.Mutex
	started   bool
	busCancel context.CancelFunc
	busDone   chan error
	observer  func(bridge.Outcome)
}

type Option func(*Server)

func WithCopier(c clipboard.Copier) Option {
	return func(s *Server) { s.copier = c }
}

func WithJournal(j journal.Store) Option {
	return func(s *Server) { s.journal = j }
}

func WithBus(b *eventbus.Bus) Option {
	return func(s *Server) { s.bus = b }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithObserver is called for every bridge outcome, after metrics are recorded.
func WithObserver(f func(bridge.Outcome)) Option {
	return func(s *Server) { s.observer = f }
}

func NewServer(settings config.Settings, options widget.Options, opts ...Option) (*Server, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}
	backend, err := parseBackendURL(settings.BackendURL)
	if err != nil {
		return nil, err
	}

	s := &Server{
		settings: settings,
		logger:   log.With().Str("component", "host").Logger(),
		upgrader: newUpgrader(settings.AllowedOrigins),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if s.copier == nil {
		c, err := clipboard.New(settings.Clipboard)
		if err != nil {
			return nil, err
		}
		s.copier = c
	}
	if s.journal == nil {
		j, err := openJournal(settings)
		if err != nil {
			return nil, err
		}
		s.journal = j
	}
	if s.bus == nil {
		b, err := eventbus.Build(settings.Redis, s.logger.With().Str("component", "eventbus").Logger())
		if err != nil {
			_ = s.journal.Close()
			return nil, err
		}
		s.bus = b
	}

	policy := fetch.PreserveCallerContentType
	if settings.ForceJSONContentType {
		policy = fetch.ForceJSONContentType
	}
	s.adapter = fetch.NewAdapter(
		fetch.WithContentTypePolicy(policy),
		fetch.WithLogger(s.logger.With().Str("component", "fetch").Logger()),
	)

	s.widget = widget.New(options)
	s.bridge = bridge.New(s.widget, s.copier,
		bridge.WithLogger(s.logger.With().Str("component", "bridge").Logger()),
		bridge.WithObserver(s.observe),
	)

	for name, h := range map[string]eventbus.HandlerFunc{
		"element-dispatch": s.dispatchToWidget,
		"journal":          s.recordAction,
	} {
		if err := s.bus.AddHandler(name, h); err != nil {
			_ = s.bus.Close()
			_ = s.journal.Close()
			return nil, err
		}
	}

	if err := s.buildMux(backend); err != nil {
		_ = s.bus.Close()
		_ = s.journal.Close()
		return nil, err
	}
	s.httpSrv = &http.Server{
		Addr:              settings.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func openJournal(settings config.Settings) (journal.Store, error) {
	if strings.TrimSpace(settings.JournalDB) == "" {
		return journal.NewMemoryStore(settings.JournalMaxEntries), nil
	}
	dsn, err := journal.SQLiteDSNForFile(settings.JournalDB)
	if err != nil {
		return nil, err
	}
	j, err := journal.NewSQLiteStore(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open action journal")
	}
	return j, nil
}

func (s *Server) buildMux(backend *url.URL) error {
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return errors.Wrap(err, "static files")
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(static)))
	mux.HandleFunc("/api/widget-options", s.handleWidgetOptions)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws/actions", s.handleActionRelay)

	apiPath := s.widget.Options().API.URL
	if strings.HasPrefix(apiPath, "/") {
		proxy := newBackendProxy(backend, s.adapter, s.logger.With().Str("component", "proxy").Logger())
		apiPath = strings.TrimSuffix(apiPath, "/")
		mux.Handle(apiPath, proxy)
		mux.Handle(apiPath+"/", proxy)
	} else {
		s.logger.Info().Str("url", apiPath).Msg("widget api url is absolute, not proxying")
	}
	s.mux = mux
	return nil
}

func (s *Server) handleWidgetOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.widget.Options(), s.logger)
}

// dispatchToWidget delivers a relayed action to the widget root as a
// chatkit.action event. Without a mounted root the action is dropped.
func (s *Server) dispatchToWidget(_ context.Context, d *actions.Detail, meta eventbus.Meta) error {
	root := s.widget.Root()
	if root == nil {
		s.logger.Debug().Str("type", d.Type).Str("source", meta.Source).Msg("widget not mounted, dropping action")
		return nil
	}
	n := root.DispatchEvent(&widget.CustomEvent{Name: widget.ActionEventName, Detail: d})
	s.logger.Debug().Str("type", d.Type).Str("source", meta.Source).Int("listeners", n).Msg("action dispatched")
	return nil
}

func (s *Server) recordAction(ctx context.Context, d *actions.Detail, meta eventbus.Meta) error {
	e := journal.EntryFromDetail(d, meta.MessageID, meta.Source, meta.ReceivedAt)
	if e.Type == "" {
		return nil
	}
	if _, err := s.journal.Append(ctx, e); err != nil {
		return errors.Wrap(err, "journal action")
	}
	return nil
}

func (s *Server) observe(o bridge.Outcome) {
	observeOutcome(o)
	if s.observer != nil {
		s.observer(o)
	}
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) Widget() *widget.Widget { return s.widget }

func (s *Server) Bridge() *bridge.ActionBridge { return s.bridge }

func (s *Server) Journal() journal.Store { return s.journal }

func (s *Server) Bus() *eventbus.Bus { return s.bus }

// Start mounts the widget, attaches the bridge and starts the event bus. It
// returns once the bus handlers are subscribed.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		return errors.New("ctx is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("host already started")
	}

	s.widget.Mount()
	if err := s.bridge.Start(); err != nil {
		return err
	}

	busCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- s.bus.Run(busCtx) }()

	select {
	case <-s.bus.Running():
	case err := <-done:
		cancel()
		s.bridge.Stop()
		if err == nil {
			err = errors.New("event bus stopped before running")
		}
		return errors.Wrap(err, "start event bus")
	case <-ctx.Done():
		cancel()
		s.bridge.Stop()
		return ctx.Err()
	}

	s.busCancel = cancel
	s.busDone = done
	s.started = true
	return nil
}

// Close stops the bridge, drains the bus handlers, waits for queued copies and
// releases the journal. No action is handled after Close returns.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.bridge.Stop()
	s.widget.Unmount()

	// the router waits for running handlers, so no dispatch outlives this block
	if s.busCancel != nil {
		s.busCancel()
	}
	keep(s.bus.Close())
	if s.busDone != nil {
		if err := <-s.busDone; err != nil && !errors.Is(err, context.Canceled) {
			keep(err)
		}
		s.busDone = nil
	}

	s.bridge.Wait()
	keep(s.journal.Close())
	s.started = false
	return firstErr
}

// Run starts the host and serves HTTP until ctx is cancelled or the process
// receives SIGINT or SIGTERM.
func (s *Server) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("ctx is nil")
	}
	srvCtx, srvCancel := context.WithCancel(ctx)
	defer srvCancel()

	if err := s.Start(srvCtx); err != nil {
		return err
	}

	eg := errgroup.Group{}
	eg.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			s.logger.Info().Msg("received interrupt signal, shutting down gracefully...")
		case <-srvCtx.Done():
		}
		srvCancel()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("server shutdown error")
			_ = s.Close()
			return err
		}
		if err := s.Close(); err != nil {
			s.logger.Error().Err(err).Msg("host close error")
		}
		s.logger.Info().Msg("server shutdown complete")
		return nil
	})

	eg.Go(func() error {
		s.logger.Info().Str("addr", s.httpSrv.Addr).Msg("starting chatkit host")
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("server listen error")
			srvCancel()
			return err
		}
		return nil
	})

	return eg.Wait()
}
