package epilot

import (
	"context"
	"fmt"
)

// SearchJourneys returns every journey configuration.
func (a *API) SearchJourneys(ctx context.Context) ([]Object, error) {
	resp, err := a.post(ctx, ServiceJourney, Object{"query": "*"}, "v1", "journey", "configuration", "search")
	if err != nil {
		return nil, fmt.Errorf("search journeys: %w", err)
	}
	return ListFrom(resp), nil
}

// GetJourney fetches one journey configuration.
func (a *API) GetJourney(ctx context.Context, id string) (Object, error) {
	id, err := requireID("journey", id)
	if err != nil {
		return nil, err
	}
	resp, err := a.get(ctx, ServiceJourney, nil, "v1", "journey", "configuration", id)
	if err != nil {
		return nil, fmt.Errorf("get journey %s: %w", id, err)
	}
	return AsObject(resp, "get journey")
}

// UpdateJourney replaces a journey configuration.
func (a *API) UpdateJourney(ctx context.Context, id string, journey Object) (Object, error) {
	id, err := requireID("journey", id)
	if err != nil {
		return nil, err
	}
	resp, err := a.put(ctx, ServiceJourney, journey, "v1", "journey", "configuration", id)
	if err != nil {
		return nil, fmt.Errorf("update journey %s: %w", id, err)
	}
	if obj, ok := resp.(map[string]any); ok {
		return obj, nil
	}
	return Object{}, nil
}

// ListBlueprints lists blueprint manifests.
func (a *API) ListBlueprints(ctx context.Context) ([]Object, error) {
	resp, err := a.get(ctx, ServiceBlueprint, nil, "v2", "blueprint-manifest", "blueprints")
	if err != nil {
		return nil, fmt.Errorf("list blueprints: %w", err)
	}
	return ListFrom(resp), nil
}

// GetBlueprint fetches one blueprint manifest.
func (a *API) GetBlueprint(ctx context.Context, id string) (Object, error) {
	id, err := requireID("blueprint", id)
	if err != nil {
		return nil, err
	}
	resp, err := a.get(ctx, ServiceBlueprint, nil, "v2", "blueprint-manifest", "blueprints", id)
	if err != nil {
		return nil, fmt.Errorf("get blueprint %s: %w", id, err)
	}
	return AsObject(resp, "get blueprint")
}

// ListDesigns lists designs.
func (a *API) ListDesigns(ctx context.Context) ([]Object, error) {
	resp, err := a.get(ctx, ServiceDesign, nil, "v1", "designs")
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	return ListFrom(resp), nil
}

// GetDesign fetches one design.
func (a *API) GetDesign(ctx context.Context, id string) (Object, error) {
	id, err := requireID("design", id)
	if err != nil {
		return nil, err
	}
	resp, err := a.get(ctx, ServiceDesign, nil, "v1", "designs", id)
	if err != nil {
		return nil, fmt.Errorf("get design %s: %w", id, err)
	}
	return AsObject(resp, "get design")
}

// CreateDesign creates a design.
func (a *API) CreateDesign(ctx context.Context, design Object) (Object, error) {
	resp, err := a.post(ctx, ServiceDesign, design, "v1", "designs")
	if err != nil {
		return nil, fmt.Errorf("create design: %w", err)
	}
	return AsObject(resp, "create design")
}
