// Package bridge connects the widget's action events to host side effects.
//
// An ActionBridge listens for "chatkit.action" on the widget's root element
// between Start and Stop. copy_to_clipboard actions with a non-empty text are
// written to the clipboard in the background; every other action is ignored.
package bridge

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatkit-host/pkg/actions"
	"github.com/go-go-golems/chatkit-host/pkg/clipboard"
	"github.com/go-go-golems/chatkit-host/pkg/widget"
)

var ErrAlreadyStarted = errors.New("action bridge already started")

type State int

const (
	StateUnattached State = iota
	StateAttached
)

func (s State) String() string {
	switch s {
	case StateAttached:
		return "attached"
	default:
		return "unattached"
	}
}

const (
	OutcomeCopied     = "copied"
	OutcomeCopyFailed = "copy_failed"
	OutcomeIgnored    = "ignored"
)

// Outcome is reported once per handled event. For copies it is reported
// after the clipboard write finished.
type Outcome struct {
	Type    string
	Outcome string
	Text    string
	Err     error
}

type ActionBridge struct {
	widget   *widget.Widget
	copier   clipboard.Copier
	logger   zerolog.Logger
	observer func(Outcome)
	baseCtx  context.Context

	mu       sync.Mutex
	attached *widget.Element

	// clipboard writes run one at a time, in dispatch order
	qmu      sync.Mutex
	idle     *sync.Cond
	queue    []string
	pending  int
	draining bool
}

type Option func(*ActionBridge)

func WithLogger(l zerolog.Logger) Option {
	return func(b *ActionBridge) {
		b.logger = l
	}
}

func WithObserver(f func(Outcome)) Option {
	return func(b *ActionBridge) {
		b.observer = f
	}
}

// WithContext sets the context clipboard writes run under. It is not
// cancelled by Stop.
func WithContext(ctx context.Context) Option {
	return func(b *ActionBridge) {
		if ctx != nil {
			b.baseCtx = ctx
		}
	}
}

func New(w *widget.Widget, copier clipboard.Copier, opts ...Option) *ActionBridge {
	b := &ActionBridge{
		widget:  w,
		copier:  copier,
		logger:  log.With().Str("component", "bridge").Logger(),
		baseCtx: context.Background(),
	}
	b.idle = sync.NewCond(&b.qmu)
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

var _ widget.EventListener = (*ActionBridge)(nil)

// Start attaches to the widget's root element. A missing root is not an
// error; the bridge simply stays unattached.
func (b *ActionBridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.attached != nil {
		return ErrAlreadyStarted
	}
	root := b.widget.Root()
	if root == nil {
		b.logger.Debug().Msg("widget root not mounted, bridge not attached")
		return nil
	}
	root.AddEventListener(widget.ActionEventName, b)
	b.attached = root
	b.logger.Debug().Str("element", root.Tag()).Msg("bridge attached")
	return nil
}

// Stop detaches from the element Start attached to. Copies already in flight
// keep running; use Wait to block on them.
func (b *ActionBridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.attached == nil {
		return
	}
	b.attached.RemoveEventListener(widget.ActionEventName, b)
	b.logger.Debug().Str("element", b.attached.Tag()).Msg("bridge detached")
	b.attached = nil
}

func (b *ActionBridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.attached != nil {
		return StateAttached
	}
	return StateUnattached
}

// Wait blocks until every clipboard write queued so far has finished. It is
// safe to call while events are still being dispatched.
func (b *ActionBridge) Wait() {
	b.qmu.Lock()
	for b.pending > 0 {
		b.idle.Wait()
	}
	b.qmu.Unlock()
}

func (b *ActionBridge) HandleEvent(ev *widget.CustomEvent) {
	if ev == nil {
		return
	}
	switch a := actions.Parse(ev.Detail).(type) {
	case actions.CopyToClipboard:
		b.copyAsync(a.Text)
	case actions.Unrecognized:
		b.logger.Debug().Str("type", a.Type).Msg("ignoring action")
		b.report(Outcome{Type: a.Type, Outcome: OutcomeIgnored})
	}
}

// copyAsync queues text and returns. A single drain goroutine writes queued
// texts in order, so the clipboard ends up holding the last dispatched text.
func (b *ActionBridge) copyAsync(text string) {
	b.qmu.Lock()
	defer b.qmu.Unlock()
	b.queue = append(b.queue, text)
	b.pending++
	if !b.draining {
		b.draining = true
		go b.drain()
	}
}

func (b *ActionBridge) drain() {
	for {
		b.qmu.Lock()
		if len(b.queue) == 0 {
			b.draining = false
			b.qmu.Unlock()
			return
		}
		text := b.queue[0]
		b.queue[0] = ""
		b.queue = b.queue[1:]
		b.qmu.Unlock()

		b.copy(text)

		b.qmu.Lock()
		b.pending--
		if b.pending == 0 {
			b.idle.Broadcast()
		}
		b.qmu.Unlock()
	}
}

func (b *ActionBridge) copy(text string) {
	if b.copier == nil {
		b.fail(text, errors.New("no clipboard configured"))
		return
	}
	if err := b.copier.Copy(b.baseCtx, text); err != nil {
		b.fail(text, err)
		return
	}
	b.logger.Info().Int("bytes", len(text)).Msg("copied to clipboard")
	b.report(Outcome{Type: actions.TypeCopyToClipboard, Outcome: OutcomeCopied, Text: text})
}

func (b *ActionBridge) fail(text string, err error) {
	b.logger.Error().Err(err).Msg("failed to copy to clipboard")
	b.report(Outcome{Type: actions.TypeCopyToClipboard, Outcome: OutcomeCopyFailed, Text: text, Err: err})
}

func (b *ActionBridge) report(o Outcome) {
	if b.observer != nil {
		b.observer(o)
	}
}
