package epilot

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/httpclient"
)

type recordedCall struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

type fakePlatform struct {
	mu     sync.Mutex
	calls  []recordedCall
	routes map[string]http.HandlerFunc
}

func (f *fakePlatform) handle(method, path string, h http.HandlerFunc) {
	f.routes[method+" "+path] = h
}

func (f *fakePlatform) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)
	r.Body = io.NopCloser(bytes.NewReader(raw))

	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{Method: r.Method, Path: r.URL.EscapedPath(), Query: r.URL.RawQuery, Body: body})
	h, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"no route"}`))
		return
	}
	h(w, r)
}

func (f *fakePlatform) lastCall(t *testing.T) recordedCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

func writeJSON(v any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
}

func newTestAPI(t *testing.T) (*API, *fakePlatform) {
	t.Helper()

	platform := &fakePlatform{routes: map[string]http.HandlerFunc{}}
	srv := httptest.NewServer(platform)
	t.Cleanup(srv.Close)

	catalog := DefaultCatalog()
	for _, s := range catalog.All() {
		require.NoError(t, catalog.Register(Service{ID: s.ID, Name: s.Name, BaseURL: srv.URL}))
	}

	client, err := httpclient.New(httpclient.Config{Token: "abc123", Timeout: 2 * time.Second})
	require.NoError(t, err)

	api, err := NewAPI(client, catalog)
	require.NoError(t, err)
	return api, platform
}

func TestNewAPIRequiresClient(t *testing.T) {
	_, err := NewAPI(nil, nil)
	assert.Error(t, err)
}

func TestListFromNormalizesShapes(t *testing.T) {
	items := []any{map[string]any{"id": "1"}, "skip", map[string]any{"id": "2"}}

	assert.Len(t, ListFrom(items), 2)
	for _, key := range []string{"results", "schemas", "flows", "definitions", "journeys", "blueprints", "designs", "data"} {
		assert.Len(t, ListFrom(map[string]any{key: items}), 2, key)
	}
	assert.Empty(t, ListFrom(map[string]any{"status": "success"}))
	assert.Empty(t, ListFrom(nil))
}

func TestResourceIDAndName(t *testing.T) {
	assert.Equal(t, "a", ResourceID(Object{"id": "a", "_id": "b"}))
	assert.Equal(t, "b", ResourceID(Object{"_id": "b"}))
	assert.Equal(t, "42", ResourceID(Object{"id": float64(42)}))
	assert.Equal(t, "", ResourceID(Object{}))

	assert.Equal(t, "Flow", ResourceName(Object{"flow_name": "Flow", "_title": "T"}))
	assert.Equal(t, "T", ResourceName(Object{"name": "", "_title": "T"}))
}

func TestEntityCRUDPaths(t *testing.T) {
	api, platform := newTestAPI(t)
	ctx := context.Background()

	platform.handle(http.MethodPost, "/v1/entity/contact", writeJSON(map[string]any{"_id": "c-1", "_title": "Max"}))
	platform.handle(http.MethodGet, "/v1/entity/contact/c-1", writeJSON(map[string]any{"_id": "c-1"}))
	platform.handle(http.MethodPut, "/v1/entity/contact/c-1", writeJSON(map[string]any{"_id": "c-1", "v": 2}))
	platform.handle(http.MethodPatch, "/v1/entity/contact/c-1", writeJSON(map[string]any{"_id": "c-1", "v": 3}))
	platform.handle(http.MethodDelete, "/v1/entity/contact/c-1", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	created, err := api.CreateEntity(ctx, "contact", Object{"first_name": "Max"})
	require.NoError(t, err)
	assert.Equal(t, "c-1", ResourceID(created))
	assert.Equal(t, "Max", platform.lastCall(t).Body["first_name"])

	_, err = api.GetEntity(ctx, "contact", "c-1")
	require.NoError(t, err)

	updated, err := api.UpdateEntity(ctx, "contact", "c-1", Object{"first_name": "Moritz"})
	require.NoError(t, err)
	assert.Equal(t, float64(2), updated["v"])

	patched, err := api.PatchEntity(ctx, "contact", "c-1", Object{"phone": "1"})
	require.NoError(t, err)
	assert.Equal(t, float64(3), patched["v"])

	deleted, err := api.DeleteEntity(ctx, "contact", "c-1")
	require.NoError(t, err)
	assert.Equal(t, httpclient.SuccessMarker(), deleted)

	_, err = api.GetEntity(ctx, "contact", " ")
	assert.Error(t, err)
}

func TestEntityNotFoundKeepsStatus(t *testing.T) {
	api, _ := newTestAPI(t)

	_, err := api.GetEntity(context.Background(), "contact", "missing")
	require.Error(t, err)
	assert.True(t, httpclient.IsStatus(err, http.StatusNotFound))
}

func TestListEntitiesSendsSchemaAndLimit(t *testing.T) {
	api, platform := newTestAPI(t)
	platform.handle(http.MethodGet, "/v1/entities", writeJSON(map[string]any{"results": []any{map[string]any{"_id": "1"}}}))

	got, err := api.ListEntities(context.Background(), "product", 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "limit=5&schema=product", platform.lastCall(t).Query)
}

func TestSearchAllPagesUntilHits(t *testing.T) {
	api, platform := newTestAPI(t)

	var froms []float64
	platform.handle(http.MethodPost, "/v1/entity:search", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		from := req["from"].(float64)
		size := req["size"].(float64)
		froms = append(froms, from)
		assert.Equal(t, "_schema:contact", req["q"])
		assert.Equal(t, true, req["hydrate"])

		results := make([]any, 0)
		for i := from; i < from+size && i < 5; i++ {
			results = append(results, map[string]any{"_id": i})
		}
		writeJSON(map[string]any{"hits": 5, "results": results})(w, r)
	})

	var progress []int
	all, err := api.SearchAll(context.Background(), SchemaQuery("contact"), 2, 0, func(fetched, total int) {
		progress = append(progress, fetched)
		assert.Equal(t, 5, total)
	})
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Equal(t, []float64{0, 2, 4}, froms)
	assert.Equal(t, []int{2, 4, 5}, progress)

	froms = nil
	limited, err := api.SearchAll(context.Background(), SchemaQuery("contact"), 2, 3, nil)
	require.NoError(t, err)
	assert.Len(t, limited, 3)
	assert.Equal(t, []float64{0, 2}, froms)
}

func TestListSchemas(t *testing.T) {
	api, platform := newTestAPI(t)
	platform.handle(http.MethodGet, "/v1/entity/schemas", writeJSON([]any{map[string]any{"slug": "contact"}}))

	got, err := api.ListSchemas(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "contact", got[0]["slug"])
}

func TestListSchemasReadsSchemasKey(t *testing.T) {
	api, platform := newTestAPI(t)
	platform.handle(http.MethodGet, "/v1/entity/schemas", writeJSON(map[string]any{
		"schemas": []any{map[string]any{"slug": "contact"}, map[string]any{"slug": "order"}},
	}))

	got, err := api.ListSchemas(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "order", got[1]["slug"])
}

func TestIDsCannotEscapeTheResourcePath(t *testing.T) {
	api, platform := newTestAPI(t)
	ctx := context.Background()

	for _, id := range []string{"../../../v1/entity/order/o-1", "..", "a/b", `a\b`} {
		_, err := api.DeleteEntity(ctx, "contact", id)
		assert.ErrorContains(t, err, "invalid entity id", id)

		_, err = api.GetAutomationFlow(ctx, id)
		assert.ErrorContains(t, err, "invalid automation flow id", id)
	}
	_, err := api.GetEntity(ctx, "../order", "o-1")
	assert.ErrorContains(t, err, "invalid schema id")

	platform.mu.Lock()
	defer platform.mu.Unlock()
	assert.Empty(t, platform.calls)
}

func TestWorkflowEndpoints(t *testing.T) {
	api, platform := newTestAPI(t)
	ctx := context.Background()

	platform.handle(http.MethodGet, "/v1/workflows/definitions", writeJSON([]any{map[string]any{"id": "wf1", "name": "Ausbau"}}))
	platform.handle(http.MethodPost, "/v1/workflows/definitions", writeJSON(map[string]any{"id": "wf2"}))
	platform.handle(http.MethodPut, "/v1/workflows/definitions/wf2", writeJSON(map[string]any{"id": "wf2"}))
	platform.handle(http.MethodPost, "/v1/workflows/executions", writeJSON(map[string]any{"id": "ex1", "status": "STARTED"}))

	defs, err := api.ListWorkflowDefinitions(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ausbau", ResourceName(defs[0]))

	_, err = api.CreateWorkflowDefinition(ctx, Object{"name": "Tarifabschluss"})
	require.NoError(t, err)
	_, err = api.UpdateWorkflowDefinition(ctx, "wf2", Object{"name": "Tarifabschluss"})
	require.NoError(t, err)

	exec, err := api.StartWorkflowExecution(ctx, "wf1", "opp-1", "")
	require.NoError(t, err)
	assert.Equal(t, "ex1", ResourceID(exec))
	call := platform.lastCall(t)
	assert.Equal(t, map[string]any{"definitionId": "wf1", "entityId": "opp-1", "entitySchema": "opportunity"}, call.Body)
}

func TestAutomationAndJourneyEndpoints(t *testing.T) {
	api, platform := newTestAPI(t)
	ctx := context.Background()

	platform.handle(http.MethodGet, "/v1/automation/flows", writeJSON(map[string]any{"flows": []any{map[string]any{"id": "a1", "flow_name": "Rechnung"}}}))
	platform.handle(http.MethodPost, "/v1/journey/configuration/search", writeJSON(map[string]any{"results": []any{map[string]any{"journeyId": "j1"}}}))
	platform.handle(http.MethodPut, "/v1/journey/configuration/j1", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	flows, err := api.ListAutomationFlows(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Rechnung", ResourceName(flows[0]))

	journeys, err := api.SearchJourneys(ctx)
	require.NoError(t, err)
	assert.Len(t, journeys, 1)
	assert.Equal(t, map[string]any{"query": "*"}, platform.lastCall(t).Body)

	_, err = api.UpdateJourney(ctx, "j1", Object{"name": "Haustür"})
	require.NoError(t, err)
}

func TestBlueprintAndDesignEndpoints(t *testing.T) {
	api, platform := newTestAPI(t)
	ctx := context.Background()

	platform.handle(http.MethodGet, "/v2/blueprint-manifest/blueprints", writeJSON(map[string]any{"blueprints": []any{map[string]any{"id": "b1"}}}))
	platform.handle(http.MethodGet, "/v2/blueprint-manifest/blueprints/b1", writeJSON(map[string]any{"id": "b1", "title": "Starter"}))
	platform.handle(http.MethodPost, "/v1/designs", writeJSON(map[string]any{"id": "d1"}))

	bps, err := api.ListBlueprints(ctx)
	require.NoError(t, err)
	assert.Len(t, bps, 1)

	bp, err := api.GetBlueprint(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Starter", ResourceName(bp))

	design, err := api.CreateDesign(ctx, Object{"brand_name": "Stadtwerke"})
	require.NoError(t, err)
	assert.Equal(t, "d1", ResourceID(design))
}

func TestUpdatableFlowDropsReadOnlyFields(t *testing.T) {
	flow := Object{"id": "a1", "flow_name": "x", "enabled": true, "actions": []any{}, "created_at": "now"}
	assert.Equal(t, Object{"flow_name": "x", "enabled": true, "actions": []any{}}, UpdatableFlow(flow))
}

func TestDiscoverParsesDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"apis":[
			{"name":"Entity API","baseURL":"https://entity.sls.epilot.io","properties":[{"type":"Docs","url":"d"},{"type":"Swagger","url":"https://docs/entity.yaml"}]},
			{"baseURL":"https://x"}
		]}`))
	}))
	defer srv.Close()

	apis, err := NewDiscoverer(time.Second).Discover(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, apis, 2)
	assert.Equal(t, APIInfo{Name: "Entity API", BaseURL: "https://entity.sls.epilot.io", SpecURL: "https://docs/entity.yaml"}, apis[0])
	assert.Equal(t, "Unknown", apis[1].Name)
}

func TestDiscoverReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewDiscoverer(time.Second).Discover(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSimplifyAutomationEmails(t *testing.T) {
	api, platform := newTestAPI(t)
	flow := map[string]any{
		"id":            "a1",
		"flow_name":     "Rechnung",
		"entity_schema": "order",
		"enabled":       true,
		"triggers":      []any{},
		"conditions":    []any{},
		"created_at":    "2024-01-01",
		"actions": []any{
			map[string]any{"type": "send-email", "config": map[string]any{
				"subject":   "Rechnung {{order._title}}",
				"body_html": "<p>Hallo</p><p>Betrag: {{order.amount}}</p>",
			}},
			map[string]any{"type": "entity_operation", "config": map[string]any{}},
		},
	}
	platform.handle(http.MethodGet, "/v1/automation/flows/a1", writeJSON(flow))
	platform.handle(http.MethodPut, "/v1/automation/flows/a1", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	})

	updated, changed, err := api.SimplifyAutomationEmails(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	put := platform.lastCall(t)
	assert.Equal(t, http.MethodPut, put.Method)
	assert.NotContains(t, put.Body, "created_at")
	assert.NotContains(t, put.Body, "id")

	actions := updated["actions"].([]any)
	cfg := actions[0].(map[string]any)["config"].(map[string]any)
	assert.Equal(t, "Hallo\n\nBetrag: {{order.amount}}", cfg["body"])
	assert.NotContains(t, cfg, "body_html")
	assert.Equal(t, "Rechnung {{order._title}}", cfg["subject"])
}
