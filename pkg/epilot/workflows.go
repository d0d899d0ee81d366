package epilot

import (
	"context"
	"fmt"
)

// ListWorkflowDefinitions lists workflow definitions.
func (a *API) ListWorkflowDefinitions(ctx context.Context) ([]Object, error) {
	resp, err := a.get(ctx, ServiceWorkflowDef, nil, "v1", "workflows", "definitions")
	if err != nil {
		return nil, fmt.Errorf("list workflow definitions: %w", err)
	}
	return ListFrom(resp), nil
}

// GetWorkflowDefinition fetches one workflow definition.
func (a *API) GetWorkflowDefinition(ctx context.Context, id string) (Object, error) {
	id, err := requireID("workflow definition", id)
	if err != nil {
		return nil, err
	}
	resp, err := a.get(ctx, ServiceWorkflowDef, nil, "v1", "workflows", "definitions", id)
	if err != nil {
		return nil, fmt.Errorf("get workflow definition %s: %w", id, err)
	}
	return AsObject(resp, "get workflow definition")
}

// CreateWorkflowDefinition creates a workflow definition.
func (a *API) CreateWorkflowDefinition(ctx context.Context, def Object) (Object, error) {
	resp, err := a.post(ctx, ServiceWorkflowDef, def, "v1", "workflows", "definitions")
	if err != nil {
		return nil, fmt.Errorf("create workflow definition: %w", err)
	}
	return AsObject(resp, "create workflow definition")
}

// UpdateWorkflowDefinition replaces a workflow definition.
func (a *API) UpdateWorkflowDefinition(ctx context.Context, id string, def Object) (Object, error) {
	id, err := requireID("workflow definition", id)
	if err != nil {
		return nil, err
	}
	resp, err := a.put(ctx, ServiceWorkflowDef, def, "v1", "workflows", "definitions", id)
	if err != nil {
		return nil, fmt.Errorf("update workflow definition %s: %w", id, err)
	}
	return AsObject(resp, "update workflow definition")
}

// StartWorkflowExecution starts a workflow for an entity. schema defaults to opportunity.
func (a *API) StartWorkflowExecution(ctx context.Context, definitionID, entityID, schema string) (Object, error) {
	definitionID, err := requireID("workflow definition", definitionID)
	if err != nil {
		return nil, err
	}
	entityID, err = requireID("entity", entityID)
	if err != nil {
		return nil, err
	}
	if schema == "" {
		schema = "opportunity"
	}
	body := Object{
		"definitionId": definitionID,
		"entityId":     entityID,
		"entitySchema": schema,
	}
	resp, err := a.post(ctx, ServiceWorkflowExecution, body, "v1", "workflows", "executions")
	if err != nil {
		return nil, fmt.Errorf("start workflow %s for %s: %w", definitionID, entityID, err)
	}
	return AsObject(resp, "start workflow execution")
}
