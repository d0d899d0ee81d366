package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout applies when Config.Timeout is not positive.
const DefaultTimeout = 30 * time.Second

// Logger receives resty's internal warnings. *zap.SugaredLogger satisfies it.
type Logger interface {
	Errorf(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
}

// Config is everything the client needs. It is read once by New.
type Config struct {
	Token     string
	Timeout   time.Duration
	KeepAlive bool
	UserAgent string
	// TokenHint is appended to the construction error when Token is empty.
	TokenHint string
	Logger    Logger
}

// RestyClient implements Client on top of resty.
type RestyClient struct {
	client  *resty.Client
	headers map[string]string
	timeout time.Duration
}

var _ Client = (*RestyClient)(nil)

// New validates cfg and builds a client. It never touches the network.
func New(cfg Config) (*RestyClient, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, &ConfigError{Field: "token", Hint: cfg.TokenHint, Err: ErrMissingToken}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := newRestyBaseClient(timeout)
	c.SetCloseConnection(!cfg.KeepAlive)
	if cfg.Logger != nil {
		c.SetLogger(cfg.Logger)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + token,
		"Content-Type":  "application/json",
		"Accept":        "application/json",
	}
	if ua := strings.TrimSpace(cfg.UserAgent); ua != "" {
		headers["User-Agent"] = ua
	}

	return &RestyClient{client: c, headers: headers, timeout: timeout}, nil
}

// NewRestyHTTPClient exposes a configured resty.Client for unauthenticated fetches.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return newRestyBaseClient(timeout)
}

func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	return c
}

// Headers returns a copy of the default headers sent with every call.
func (r *RestyClient) Headers() map[string]string {
	out := make(map[string]string, len(r.headers))
	for k, v := range r.headers {
		out[k] = v
	}
	return out
}

// Timeout returns the per-call timeout.
func (r *RestyClient) Timeout() time.Duration { return r.timeout }

func (r *RestyClient) Get(ctx context.Context, url string, params map[string]any, headers map[string]string) (any, error) {
	return r.data(ctx, Request{Method: http.MethodGet, URL: url, Params: params, Headers: headers})
}

func (r *RestyClient) Post(ctx context.Context, url string, body any, headers map[string]string) (any, error) {
	return r.data(ctx, Request{Method: http.MethodPost, URL: url, Body: body, Headers: headers})
}

func (r *RestyClient) Put(ctx context.Context, url string, body any, headers map[string]string) (any, error) {
	return r.data(ctx, Request{Method: http.MethodPut, URL: url, Body: body, Headers: headers})
}

func (r *RestyClient) Patch(ctx context.Context, url string, body any, headers map[string]string) (any, error) {
	return r.data(ctx, Request{Method: http.MethodPatch, URL: url, Body: body, Headers: headers})
}

func (r *RestyClient) Delete(ctx context.Context, url string, headers map[string]string) (any, error) {
	return r.data(ctx, Request{Method: http.MethodDelete, URL: url, Headers: headers})
}

func (r *RestyClient) data(ctx context.Context, req Request) (any, error) {
	resp, err := r.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Do performs one attempt of req. There is no retry.
func (r *RestyClient) Do(ctx context.Context, req Request) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	if err := validateURL(req.URL); err != nil {
		return nil, err
	}

	rr := r.client.R().
		SetContext(ctx).
		SetHeaders(mergeHeaders(r.headers, req.Headers))

	if len(req.Params) > 0 {
		rr.SetQueryParamsFromValues(encodeParams(req.Params))
	}
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, req.URL, err)
		}
		rr.SetBody(payload)
	}

	resp, err := rr.Execute(method, req.URL)
	if err != nil {
		return nil, &TransportError{Method: method, URL: req.URL, Err: err}
	}

	status := resp.StatusCode()
	body := resp.Body()
	if status < 200 || status > 299 {
		return nil, newHTTPError(method, req.URL, status, body)
	}

	data, err := decodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s %s response: %w", method, req.URL, err)
	}
	return &Response{StatusCode: status, Data: data, Raw: body}, nil
}

func decodeBody(body []byte) (any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return SuccessMarker(), nil
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// mergeHeaders overlays custom on defaults. Keys are canonicalized so overrides are case-insensitive.
func mergeHeaders(defaults, custom map[string]string) map[string]string {
	out := make(map[string]string, len(defaults)+len(custom))
	for k, v := range defaults {
		out[http.CanonicalHeaderKey(k)] = v
	}
	for k, v := range custom {
		key := http.CanonicalHeaderKey(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		out[key] = v
	}
	return out
}

func encodeParams(params map[string]any) url.Values {
	values := make(url.Values, len(params))
	for k, v := range params {
		switch vv := v.(type) {
		case nil:
			continue
		case []string:
			for _, s := range vv {
				values.Add(k, s)
			}
		case []any:
			for _, item := range vv {
				values.Add(k, formatParam(item))
			}
		default:
			values.Set(k, formatParam(v))
		}
	}
	return values
}

func formatParam(v any) string {
	switch vv := v.(type) {
	case string:
		return vv
	case bool:
		return strconv.FormatBool(vv)
	case int:
		return strconv.Itoa(vv)
	case int64:
		return strconv.FormatInt(vv, 10)
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case fmt.Stringer:
		return vv.String()
	default:
		return fmt.Sprint(vv)
	}
}

func validateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("parse request url %q: %w", raw, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("request url %q must be absolute", raw)
	}
	return nil
}
