package host

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/go-go-golems/chatkit-host/pkg/actions"
	"github.com/go-go-golems/chatkit-host/pkg/bridge"
)

var (
	proxyRequestsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatkit_host_proxy_requests_total",
		Help: "Widget API calls proxied to the backend, by outcome.",
	}, []string{"outcome"})

	actionFramesMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatkit_host_action_frames_total",
		Help: "Action frames received on the websocket relay, by result.",
	}, []string{"result"})

	actionOutcomesMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatkit_host_actions_total",
		Help: "Actions handled by the bridge, by type and outcome.",
	}, []string{"type", "outcome"})

	wsConnectionsMetric = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatkit_host_ws_connections",
		Help: "Open action relay websocket connections.",
	})
)

const (
	proxyOK             = "ok"
	proxyHTTPError      = "http_error"
	proxyTransportError = "transport_error"

	frameAccepted    = "accepted"
	frameInvalid     = "invalid"
	frameRateLimited = "rate_limited"
	frameRelayFailed = "relay_failed"
)

// observeOutcome keeps the type label bounded: anything the bridge does not
// recognize is counted as "other".
func observeOutcome(o bridge.Outcome) {
	typ := "other"
	if o.Type == actions.TypeCopyToClipboard {
		typ = o.Type
	}
	actionOutcomesMetric.WithLabelValues(typ, o.Outcome).Inc()
}
