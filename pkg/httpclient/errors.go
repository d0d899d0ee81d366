package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrMissingToken is returned by New when no bearer token was supplied.
var ErrMissingToken = errors.New("api token is not set")

// ConfigError reports a client that cannot be constructed from its configuration.
type ConfigError struct {
	Field string
	Hint  string
	Err   error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("invalid client config %s: %v", e.Field, e.Err)
	if e.Hint != "" {
		msg += "\n" + e.Hint
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// TransportError wraps connection, DNS and timeout failures. No response was received.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the call failed because its deadline elapsed.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// HTTPError is returned for any non-2xx response. Body holds the upstream payload untouched.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	Message    string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s %s returned status %d", e.Method, e.URL, e.StatusCode)
	switch {
	case e.Message != "":
		msg += ": " + e.Message
	case len(e.Body) > 0:
		msg += ": " + bodySnippet(e.Body)
	}
	return msg
}

// JSON decodes the error body. It returns nil when the body is not JSON.
func (e *HTTPError) JSON() any {
	var v any
	if err := json.Unmarshal(e.Body, &v); err != nil {
		return nil
	}
	return v
}

func newHTTPError(method, url string, status int, body []byte) *HTTPError {
	return &HTTPError{
		Method:     method,
		URL:        url,
		StatusCode: status,
		Body:       body,
		Message:    errorMessage(body),
	}
}

// errorMessage extracts a human readable message from common error payload shapes.
func errorMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"message", "error", "detail"} {
		switch v := payload[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case map[string]any:
			if s, ok := v["message"].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// StatusCode returns the HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, true
	}
	return 0, false
}

// IsStatus reports whether err is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	status, ok := StatusCode(err)
	return ok && status == code
}

func bodySnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
