package actions

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name   string
		detail *Detail
		want   Action
	}{
		{
			name:   "copy",
			detail: &Detail{Type: "copy_to_clipboard", Payload: map[string]any{"text": "hello"}},
			want:   CopyToClipboard{Text: "hello"},
		},
		{
			name:   "copy without text",
			detail: &Detail{Type: "copy_to_clipboard", Payload: map[string]any{}},
			want:   Unrecognized{Type: "copy_to_clipboard", Payload: map[string]any{}},
		},
		{
			name:   "copy with empty text",
			detail: &Detail{Type: "copy_to_clipboard", Payload: map[string]any{"text": ""}},
			want:   Unrecognized{Type: "copy_to_clipboard", Payload: map[string]any{"text": ""}},
		},
		{
			name:   "copy with non-string text",
			detail: &Detail{Type: "copy_to_clipboard", Payload: map[string]any{"text": 42.0}},
			want:   Unrecognized{Type: "copy_to_clipboard", Payload: map[string]any{"text": 42.0}},
		},
		{
			name:   "unknown",
			detail: &Detail{Type: "unknown_action", Payload: map[string]any{"x": "y"}},
			want:   Unrecognized{Type: "unknown_action", Payload: map[string]any{"x": "y"}},
		},
		{
			name:   "nil detail",
			detail: nil,
			want:   Unrecognized{Payload: map[string]any{}},
		},
		{
			name:   "nil payload",
			detail: &Detail{Type: "share_thread"},
			want:   Unrecognized{Type: "share_thread", Payload: map[string]any{}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Parse(tc.detail))
		})
	}
}

func TestDecode(t *testing.T) {
	d, err := Decode([]byte(`{"type":"copy_to_clipboard","payload":{"text":"http://localhost:5173/thread/thr_1"}}`))
	require.NoError(t, err)
	require.Equal(t, CopyToClipboard{Text: "http://localhost:5173/thread/thr_1"}, Parse(d))

	d, err = Decode([]byte(`null`))
	require.NoError(t, err)
	require.Equal(t, "", d.Type)

	_, err = Decode([]byte(`  `))
	require.Error(t, err)

	_, err = Decode([]byte(`{"type":`))
	require.Error(t, err)
}

func TestEncodeCopy(t *testing.T) {
	b, err := Encode(NewCopyToClipboard("hi"))
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"copy_to_clipboard","payload":{"text":"hi"}}`, string(b))
}
