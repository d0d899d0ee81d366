package epilot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/httpclient"
)

// Object is a decoded JSON object as returned by the platform.
type Object = map[string]any

// API issues typed calls against the platform services through an authenticated client.
type API struct {
	client  httpclient.Client
	catalog *Catalog
}

// NewAPI wires a client and a catalog. A nil catalog falls back to the defaults.
func NewAPI(client httpclient.Client, catalog *Catalog) (*API, error) {
	if client == nil {
		return nil, fmt.Errorf("epilot api: client is required")
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &API{client: client, catalog: catalog}, nil
}

// Catalog exposes the service catalog in use.
func (a *API) Catalog() *Catalog { return a.catalog }

// Client exposes the underlying HTTP client for ad-hoc calls.
func (a *API) Client() httpclient.Client { return a.client }

func (a *API) url(service string, segments ...string) (string, error) {
	return a.catalog.URL(service, segments...)
}

func (a *API) get(ctx context.Context, service string, params map[string]any, segments ...string) (any, error) {
	u, err := a.url(service, segments...)
	if err != nil {
		return nil, err
	}
	return a.client.Get(ctx, u, params, nil)
}

func (a *API) post(ctx context.Context, service string, body any, segments ...string) (any, error) {
	u, err := a.url(service, segments...)
	if err != nil {
		return nil, err
	}
	return a.client.Post(ctx, u, body, nil)
}

func (a *API) put(ctx context.Context, service string, body any, segments ...string) (any, error) {
	u, err := a.url(service, segments...)
	if err != nil {
		return nil, err
	}
	return a.client.Put(ctx, u, body, nil)
}

func (a *API) patch(ctx context.Context, service string, body any, segments ...string) (any, error) {
	u, err := a.url(service, segments...)
	if err != nil {
		return nil, err
	}
	return a.client.Patch(ctx, u, body, nil)
}

func (a *API) delete(ctx context.Context, service string, segments ...string) (any, error) {
	u, err := a.url(service, segments...)
	if err != nil {
		return nil, err
	}
	return a.client.Delete(ctx, u, nil)
}

// requireID trims id and rejects values that would change the request path.
func requireID(kind, id string) (string, error) {
	id = strings.TrimSpace(id)
	switch {
	case id == "":
		return "", fmt.Errorf("%s id is required", kind)
	case id == "." || id == ".." || strings.ContainsAny(id, `/\`):
		return "", fmt.Errorf("invalid %s id %q", kind, id)
	}
	return id, nil
}

// AsObject returns v as an Object, or an error naming what was expected.
func AsObject(v any, what string) (Object, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected JSON object, got %T", what, v)
	}
	return obj, nil
}

// listKeys are the wrapper keys under which list endpoints return their items.
var listKeys = []string{"results", "schemas", "flows", "definitions", "journeys", "blueprints", "designs", "data", "items"}

// ListFrom normalizes the list shapes the services return: a bare array or an
// object wrapping the array under one of the known keys.
func ListFrom(v any) []Object {
	var raw []any
	switch typed := v.(type) {
	case []any:
		raw = typed
	case map[string]any:
		for _, key := range listKeys {
			if arr, ok := typed[key].([]any); ok {
				raw = arr
				break
			}
		}
	}

	out := make([]Object, 0, len(raw))
	for _, item := range raw {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

// ResourceID returns the first present of id and _id.
func ResourceID(obj Object) string {
	return firstString(obj, "id", "_id")
}

// ResourceName returns the first present of name, flow_name, title and _title.
func ResourceName(obj Object) string {
	return firstString(obj, "name", "flow_name", "title", "_title")
}

func firstString(obj Object, keys ...string) string {
	for _, key := range keys {
		v, ok := obj[key]
		if !ok || v == nil {
			continue
		}
		switch typed := v.(type) {
		case string:
			if typed != "" {
				return typed
			}
		case float64:
			return strconv.FormatFloat(typed, 'f', -1, 64)
		default:
			return fmt.Sprint(typed)
		}
	}
	return ""
}
