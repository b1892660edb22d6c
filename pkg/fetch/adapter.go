package fetch

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	neturl "net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	HeaderContentType = "Content-Type"
	ContentTypeJSON   = "application/json"
)

// ContentTypePolicy decides what happens when the caller already set a Content-Type.
type ContentTypePolicy int

const (
	// PreserveCallerContentType only adds application/json when the caller did not set one.
	PreserveCallerContentType ContentTypePolicy = iota
	// ForceJSONContentType always overwrites Content-Type with application/json.
	ForceJSONContentType
)

// RequestOptions is the opaque options bag handed over by the widget.
// Body is passed to the transport as-is; the adapter never reads it.
type RequestOptions struct {
	Method string
	Header http.Header
	Body   io.Reader
}

// Adapter performs the widget's HTTP calls. It injects the JSON content type
// and turns non-2xx responses into *HTTPError. It never retries and imposes no
// timeout of its own.
type Adapter struct {
	transport http.RoundTripper
	policy    ContentTypePolicy
	logger    zerolog.Logger
}

type Option func(*Adapter)

func WithTransport(rt http.RoundTripper) Option {
	return func(a *Adapter) {
		if rt != nil {
			a.transport = rt
		}
	}
}

func WithContentTypePolicy(p ContentTypePolicy) Option {
	return func(a *Adapter) {
		a.policy = p
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(a *Adapter) {
		a.logger = l
	}
}

func NewAdapter(opts ...Option) *Adapter {
	a := &Adapter{
		transport: http.DefaultTransport,
		policy:    PreserveCallerContentType,
		logger:    log.With().Str("component", "fetch").Logger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

var _ http.RoundTripper = (*Adapter)(nil)

// Client returns an http.Client that routes every request through the adapter.
func (a *Adapter) Client() *http.Client {
	return &http.Client{Transport: a}
}

// Do performs a single call to url with the given options. Redirects are
// followed and only the final response is normalized.
func (a *Adapter) Do(ctx context.Context, url string, opts RequestOptions) (*http.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	method := strings.TrimSpace(opts.Method)
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, url, opts.Body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	a.applyContentType(req.Header)

	client := &http.Client{Transport: a.transport}
	resp, err := client.Do(req)
	if err != nil {
		// http.Client wraps transport failures in *url.Error; hand back the original
		var ue *neturl.Error
		if stderrors.As(err, &ue) && ue.Err != nil {
			err = ue.Err
		}
		a.logTransportFailure(req, err)
		return nil, err
	}
	if err := Normalize(resp); err != nil {
		a.logHTTPFailure(req, resp.StatusCode, err)
		return nil, err
	}
	return resp, nil
}

// RoundTrip implements http.RoundTripper. The incoming request is cloned
// before its headers are touched.
func (a *Adapter) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("fetch: nil request")
	}
	return a.roundTrip(req.Clone(req.Context()))
}

// roundTrip is the transport-level path used by http.Client and the reverse
// proxy. Informational and redirect responses pass through so the caller can
// follow them; only 4xx and 5xx are normalized.
func (a *Adapter) roundTrip(req *http.Request) (*http.Response, error) {
	if req.Header == nil {
		req.Header = http.Header{}
	}
	a.applyContentType(req.Header)

	resp, err := a.transport.RoundTrip(req)
	if err != nil {
		// transport failures are surfaced exactly as the transport raised them
		a.logTransportFailure(req, err)
		return nil, err
	}
	if !IsFailure(resp.StatusCode) {
		return resp, nil
	}
	if err := Normalize(resp); err != nil {
		a.logHTTPFailure(req, resp.StatusCode, err)
		return nil, err
	}
	return resp, nil
}

func (a *Adapter) logTransportFailure(req *http.Request, err error) {
	a.logger.Debug().
		Err(err).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("failure", TransportFailureKind(err)).
		Msg("fetch transport failure")
}

func (a *Adapter) logHTTPFailure(req *http.Request, status int, err error) {
	a.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status", status).
		Str("error", err.Error()).
		Msg("fetch http failure")
}

func (a *Adapter) applyContentType(h http.Header) {
	if a.policy == ForceJSONContentType {
		h.Set(HeaderContentType, ContentTypeJSON)
		return
	}
	if h.Get(HeaderContentType) == "" {
		h.Set(HeaderContentType, ContentTypeJSON)
	}
}
