// Package actions models the payloads the chat widget attaches to its
// "chatkit.action" events.
package actions

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

const (
	TypeCopyToClipboard = "copy_to_clipboard"
)

// Detail is the event detail exactly as the widget emits it.
type Detail struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Action is the typed view of a Detail. The set of implementations is closed.
type Action interface {
	ActionType() string
	isAction()
}

// CopyToClipboard asks the host to put Text on the system clipboard.
type CopyToClipboard struct {
	Text string
}

func (CopyToClipboard) ActionType() string { return TypeCopyToClipboard }
func (CopyToClipboard) isAction()          {}

// Unrecognized carries any action the host does not handle, payload included.
type Unrecognized struct {
	Type    string
	Payload map[string]any
}

func (u Unrecognized) ActionType() string { return u.Type }
func (Unrecognized) isAction()            {}

// Parse never fails: a nil detail is an empty mapping, and anything that is
// not a well-formed recognized action comes back as Unrecognized.
func Parse(d *Detail) Action {
	if d == nil {
		return Unrecognized{Payload: map[string]any{}}
	}
	payload := d.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	switch d.Type {
	case TypeCopyToClipboard:
		if text, ok := payload["text"].(string); ok && text != "" {
			return CopyToClipboard{Text: text}
		}
	}
	return Unrecognized{Type: d.Type, Payload: payload}
}

// Decode reads a Detail from JSON. A JSON null decodes to an empty Detail.
func Decode(raw []byte) (*Detail, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("actions: empty detail")
	}
	d := &Detail{}
	if err := json.Unmarshal(raw, d); err != nil {
		return nil, errors.Wrap(err, "actions: decode detail")
	}
	return d, nil
}

// Encode is the inverse of Decode.
func Encode(d *Detail) ([]byte, error) {
	if d == nil {
		d = &Detail{}
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, errors.Wrap(err, "actions: encode detail")
	}
	return b, nil
}

// NewCopyToClipboard builds the detail the widget sends for a copy button.
func NewCopyToClipboard(text string) *Detail {
	return &Detail{
		Type:    TypeCopyToClipboard,
		Payload: map[string]any{"text": text},
	}
}
