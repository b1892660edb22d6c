// Package journal keeps a history of the widget actions the host relayed.
package journal

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/go-go-golems/chatkit-host/pkg/actions"
)

// Entry records one action event relayed by the host.
type Entry struct {
	ID          string `json:"id"`
	MessageID   string `json:"message_id,omitempty"`
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	Source      string `json:"source,omitempty"`
	CreatedAtMs int64  `json:"created_at_ms"`
}

// Store is the action history. List returns newest first.
type Store interface {
	Append(ctx context.Context, e Entry) (Entry, error)
	List(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

const defaultListLimit = 50

// EntryFromDetail captures the fields worth keeping from a relayed detail.
// Only copy actions carry text; other payloads are not stored.
func EntryFromDetail(d *actions.Detail, messageID, source string, at time.Time) Entry {
	e := Entry{MessageID: messageID, Source: source}
	if !at.IsZero() {
		e.CreatedAtMs = at.UnixMilli()
	}
	switch a := actions.Parse(d).(type) {
	case actions.CopyToClipboard:
		e.Type = a.ActionType()
		e.Text = a.Text
	case actions.Unrecognized:
		e.Type = a.Type
	}
	return e
}

func normalizeEntry(e Entry, now time.Time) Entry {
	e.ID = strings.TrimSpace(e.ID)
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Type = strings.TrimSpace(e.Type)
	if e.CreatedAtMs <= 0 {
		e.CreatedAtMs = now.UnixMilli()
	}
	return e
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
