package fetch

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// HTTPError is returned for responses outside the 2xx range.
// Error() yields Message unchanged so it can be shown to the user directly.
type HTTPError struct {
	StatusCode int
	StatusText string
	Message    string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// AsHTTPError unwraps err into an *HTTPError when possible.
func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	if stderrors.As(err, &he) && he != nil {
		return he, true
	}
	return nil, false
}

func IsSuccess(status int) bool {
	return status >= 200 && status <= 299
}

// IsFailure reports client and server errors. Redirects and informational
// statuses are not failures at the transport level.
func IsFailure(status int) bool {
	return status >= 400
}

// Normalize returns nil for 2xx responses and leaves them untouched.
// For any other status it consumes and closes the body and returns an *HTTPError
// whose message is, in order of preference: the JSON "error" field, the raw
// body text, or "HTTP <code>: <status text>".
func Normalize(resp *http.Response) error {
	if resp == nil {
		return errors.New("fetch: nil response")
	}
	if IsSuccess(resp.StatusCode) {
		return nil
	}

	text := statusText(resp)
	fallback := fmt.Sprintf("HTTP %d: %s", resp.StatusCode, text)

	var body []byte
	if resp.Body != nil {
		// a failed read leaves whatever was received; the fallback covers the rest
		body, _ = io.ReadAll(resp.Body)
		_ = resp.Body.Close()
	}

	return &HTTPError{
		StatusCode: resp.StatusCode,
		StatusText: text,
		Message:    messageFromBody(body, fallback),
	}
}

func messageFromBody(body []byte, fallback string) string {
	if json.Valid(body) {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(body, &obj); err != nil {
			// valid JSON but not an object: no error field to read
			return fallback
		}
		if msg, ok := errorField(obj["error"]); ok {
			return msg
		}
		return fallback
	}
	if len(body) > 0 {
		return string(body)
	}
	return fallback
}

// errorField reports the error field's message when the value is truthy.
func errorField(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, t != ""
	case bool:
		if !t {
			return "", false
		}
	case float64:
		if t == 0 {
			return "", false
		}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw), true
	}
	return compact.String(), true
}

func statusText(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, code))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
