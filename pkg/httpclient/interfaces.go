package httpclient

import "context"

// Client issues authenticated JSON requests against externally hosted REST services.
// Verb methods return the decoded JSON body, or SuccessMarker for empty 2xx bodies.
type Client interface {
	Get(ctx context.Context, url string, params map[string]any, headers map[string]string) (any, error)
	Post(ctx context.Context, url string, body any, headers map[string]string) (any, error)
	Put(ctx context.Context, url string, body any, headers map[string]string) (any, error)
	Patch(ctx context.Context, url string, body any, headers map[string]string) (any, error)
	Delete(ctx context.Context, url string, headers map[string]string) (any, error)
	Do(ctx context.Context, req Request) (*Response, error)
}

// Request describes a single call. URL must be absolute.
type Request struct {
	Method  string
	URL     string
	Params  map[string]any
	Body    any
	Headers map[string]string
}

// Response is the normalized result of a successful call.
type Response struct {
	StatusCode int
	Data       any
	Raw        []byte
}

// SuccessMarker is returned in place of a body when a 2xx response carries no content.
func SuccessMarker() map[string]any {
	return map[string]any{"status": "success"}
}
