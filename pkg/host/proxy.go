package host

import (
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/go-go-golems/chatkit-host/pkg/fetch"
)

// newBackendProxy forwards widget API calls to target through the fetch
// adapter. Normalized backend failures keep their status and are rewritten to
// {"error": message}; transport failures become 502.
func newBackendProxy(target *url.URL, adapter *fetch.Adapter, logger zerolog.Logger) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(target)
			r.SetXForwarded()
		},
		Transport: adapter,
		// the backend streams server-sent events; flush every write
		FlushInterval: -1,
		ModifyResponse: func(*http.Response) error {
			proxyRequestsMetric.WithLabelValues(proxyOK).Inc()
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, req *http.Request, err error) {
			if he, ok := fetch.AsHTTPError(err); ok {
				proxyRequestsMetric.WithLabelValues(proxyHTTPError).Inc()
				logger.Warn().
					Int("status", he.StatusCode).
					Str("path", req.URL.Path).
					Str("error", he.Message).
					Msg("backend returned an error")
				writeJSONError(w, he.StatusCode, he.Message, logger)
				return
			}
			proxyRequestsMetric.WithLabelValues(proxyTransportError).Inc()
			logger.Error().
				Err(err).
				Str("failure", fetch.TransportFailureKind(err)).
				Str("path", req.URL.Path).
				Msg("backend unreachable")
			writeJSONError(w, http.StatusBadGateway, "backend unreachable", logger)
		},
	}
}

func parseBackendURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "parse backend url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("backend url %q must be absolute", raw)
	}
	return u, nil
}

func writeJSON(w http.ResponseWriter, status int, v any, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn().Err(err).Msg("response write failed")
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string, logger zerolog.Logger) {
	writeJSON(w, status, map[string]string{"error": msg}, logger)
}
