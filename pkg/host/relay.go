package host

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/go-go-golems/chatkit-host/pkg/actions"
)

const (
	relayReadLimit    = 64 << 10
	relayWriteTimeout = 5 * time.Second
)

// Ack is written back for every frame received on the action relay.
type Ack struct {
	OK    bool   `json:"ok"`
	Type  string `json:"type,omitempty"`
	Error string `json:"error,omitempty"`
}

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	u := websocket.Upgrader{}
	if len(allowedOrigins) == 0 {
		// gorilla's default: same origin, or no Origin header
		return u
	}
	allowed := map[string]struct{}{}
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	u.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
	return u
}

// handleActionRelay reads widget action details from a websocket and
// publishes each one on the bus.
func (s *Server) handleActionRelay(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error
		s.logger.Debug().Err(err).Msg("action relay upgrade failed")
		return
	}
	source := "ws:" + uuid.NewString()
	logger := s.logger.With().Str("source", source).Logger()
	wsConnectionsMetric.Inc()
	defer func() {
		wsConnectionsMetric.Dec()
		_ = conn.Close()
		logger.Debug().Msg("action relay closed")
	}()
	logger.Debug().Msg("action relay connected")

	conn.SetReadLimit(relayReadLimit)
	var limiter *rate.Limiter
	if s.settings.ActionsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.settings.ActionsPerSecond), s.settings.ActionBurst)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn().Err(err).Msg("action relay read failed")
			}
			return
		}
		d, err := actions.Decode(data)
		if err != nil {
			actionFramesMetric.WithLabelValues(frameInvalid).Inc()
			if !writeAck(conn, Ack{Error: "invalid action"}, logger) {
				return
			}
			continue
		}
		if limiter != nil && !limiter.Allow() {
			actionFramesMetric.WithLabelValues(frameRateLimited).Inc()
			if !writeAck(conn, Ack{Type: d.Type, Error: "rate limited"}, logger) {
				return
			}
			continue
		}
		if err := s.bus.PublishAction(r.Context(), source, d); err != nil {
			actionFramesMetric.WithLabelValues(frameRelayFailed).Inc()
			logger.Error().Err(err).Str("type", d.Type).Msg("action relay publish failed")
			if !writeAck(conn, Ack{Type: d.Type, Error: "relay failed"}, logger) {
				return
			}
			continue
		}
		actionFramesMetric.WithLabelValues(frameAccepted).Inc()
		if !writeAck(conn, Ack{OK: true, Type: d.Type}, logger) {
			return
		}
	}
}

func writeAck(conn *websocket.Conn, ack Ack, logger zerolog.Logger) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(relayWriteTimeout))
	if err := conn.WriteJSON(ack); err != nil {
		logger.Warn().Err(err).Msg("action relay ack failed, dropping connection")
		return false
	}
	return true
}
