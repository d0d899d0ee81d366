package epilot

import (
	"context"
	"fmt"
	"strings"
)

// DefaultSearchPageSize is the page size used when paging through search results.
const DefaultSearchPageSize = 100

// EntitySearch is the body of POST /v1/entity:search.
type EntitySearch struct {
	Query   string   `json:"q"`
	From    int      `json:"from"`
	Size    int      `json:"size"`
	Hydrate bool     `json:"hydrate,omitempty"`
	Sort    string   `json:"sort,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}

// SearchResult is one page of search hits.
type SearchResult struct {
	Hits    int
	Results []Object
}

// SchemaQuery builds the search query that matches every entity of schema.
func SchemaQuery(schema string) string {
	return "_schema:" + strings.TrimSpace(schema)
}

// ListEntities lists entities, optionally restricted to schema.
func (a *API) ListEntities(ctx context.Context, schema string, limit int) ([]Object, error) {
	params := map[string]any{}
	if schema = strings.TrimSpace(schema); schema != "" {
		params["schema"] = schema
	}
	if limit > 0 {
		params["limit"] = limit
	}
	resp, err := a.get(ctx, ServiceEntity, params, "v1", "entities")
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	return ListFrom(resp), nil
}

// SearchEntities runs one search request.
func (a *API) SearchEntities(ctx context.Context, search EntitySearch) (SearchResult, error) {
	if search.Size <= 0 {
		search.Size = DefaultSearchPageSize
	}
	resp, err := a.post(ctx, ServiceEntity, search, "v1", "entity:search")
	if err != nil {
		return SearchResult{}, fmt.Errorf("search entities: %w", err)
	}
	out := SearchResult{Results: ListFrom(resp)}
	if obj, ok := resp.(map[string]any); ok {
		for _, key := range []string{"hits", "total"} {
			if n, ok := obj[key].(float64); ok {
				out.Hits = int(n)
				break
			}
		}
	}
	return out, nil
}

// SearchAll pages through a query until the reported hit count, an empty page
// or limit (when positive) is reached. progress, when set, is called after every page.
func (a *API) SearchAll(ctx context.Context, query string, pageSize, limit int, progress func(fetched, total int)) ([]Object, error) {
	if pageSize <= 0 {
		pageSize = DefaultSearchPageSize
	}

	all := make([]Object, 0)
	from := 0
	for {
		size := pageSize
		if limit > 0 && limit-len(all) < size {
			size = limit - len(all)
		}
		page, err := a.SearchEntities(ctx, EntitySearch{Query: query, From: from, Size: size, Hydrate: true})
		if err != nil {
			return all, err
		}
		all = append(all, page.Results...)
		if progress != nil {
			progress(len(all), page.Hits)
		}

		if len(page.Results) == 0 {
			return all, nil
		}
		if limit > 0 && len(all) >= limit {
			return all[:limit], nil
		}
		if page.Hits > 0 && len(all) >= page.Hits {
			return all, nil
		}
		if len(page.Results) < size {
			return all, nil
		}
		from += len(page.Results)
	}
}

// CreateEntity creates an entity of schema.
func (a *API) CreateEntity(ctx context.Context, schema string, entity Object) (Object, error) {
	schema, err := requireID("schema", schema)
	if err != nil {
		return nil, err
	}
	resp, err := a.post(ctx, ServiceEntity, entity, "v1", "entity", schema)
	if err != nil {
		return nil, fmt.Errorf("create %s entity: %w", schema, err)
	}
	return AsObject(resp, "create "+schema+" entity")
}

// GetEntity fetches one entity.
func (a *API) GetEntity(ctx context.Context, schema, id string) (Object, error) {
	segs, err := entitySegments(schema, id)
	if err != nil {
		return nil, err
	}
	resp, err := a.get(ctx, ServiceEntity, nil, segs...)
	if err != nil {
		return nil, fmt.Errorf("get %s entity %s: %w", schema, id, err)
	}
	return AsObject(resp, "get entity")
}

// UpdateEntity replaces an entity.
func (a *API) UpdateEntity(ctx context.Context, schema, id string, entity Object) (Object, error) {
	segs, err := entitySegments(schema, id)
	if err != nil {
		return nil, err
	}
	resp, err := a.put(ctx, ServiceEntity, entity, segs...)
	if err != nil {
		return nil, fmt.Errorf("update %s entity %s: %w", schema, id, err)
	}
	return AsObject(resp, "update entity")
}

// PatchEntity applies a partial update.
func (a *API) PatchEntity(ctx context.Context, schema, id string, patch Object) (Object, error) {
	segs, err := entitySegments(schema, id)
	if err != nil {
		return nil, err
	}
	resp, err := a.patch(ctx, ServiceEntity, patch, segs...)
	if err != nil {
		return nil, fmt.Errorf("patch %s entity %s: %w", schema, id, err)
	}
	return AsObject(resp, "patch entity")
}

// DeleteEntity deletes an entity. An empty response yields the success marker.
func (a *API) DeleteEntity(ctx context.Context, schema, id string) (any, error) {
	segs, err := entitySegments(schema, id)
	if err != nil {
		return nil, err
	}
	resp, err := a.delete(ctx, ServiceEntity, segs...)
	if err != nil {
		return nil, fmt.Errorf("delete %s entity %s: %w", schema, id, err)
	}
	return resp, nil
}

// ListSchemas lists the entity schemas of the organization.
func (a *API) ListSchemas(ctx context.Context) ([]Object, error) {
	resp, err := a.get(ctx, ServiceEntity, nil, "v1", "entity", "schemas")
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	return ListFrom(resp), nil
}

func entitySegments(schema, id string) ([]string, error) {
	schema, err := requireID("schema", schema)
	if err != nil {
		return nil, err
	}
	id, err = requireID("entity", id)
	if err != nil {
		return nil, err
	}
	return []string{"v1", "entity", schema, id}, nil
}
