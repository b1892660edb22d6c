package host

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/go-go-golems/chatkit-host/pkg/actions"
)

// RelayClient sends action details to a running host's /ws/actions endpoint,
// the same way the page does.
type RelayClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func DialRelay(ctx context.Context, wsURL string, header http.Header) (*RelayClient, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, errors.Wrapf(err, "dial action relay %s", wsURL)
	}
	return &RelayClient{conn: conn}, nil
}

// Send writes d and waits for the host's acknowledgement.
func (c *RelayClient) Send(ctx context.Context, d *actions.Detail) (Ack, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
		_ = c.conn.SetReadDeadline(deadline)
	}
	if err := c.conn.WriteJSON(d); err != nil {
		return Ack{}, errors.Wrap(err, "send action")
	}
	var ack Ack
	if err := c.conn.ReadJSON(&ack); err != nil {
		return Ack{}, errors.Wrap(err, "read ack")
	}
	return ack, nil
}

func (c *RelayClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}
