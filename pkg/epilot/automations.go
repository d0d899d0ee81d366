package epilot

import (
	"context"
	"fmt"

	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/htmltext"
)

// ActionSendEmail is the automation action type that sends an email.
const ActionSendEmail = "send-email"

// automationUpdatableFields are the flow fields accepted by PUT /v1/automation/flows/{id}.
var automationUpdatableFields = []string{"flow_name", "entity_schema", "enabled", "triggers", "conditions", "actions"}

// ListAutomationFlows lists automation flows.
func (a *API) ListAutomationFlows(ctx context.Context) ([]Object, error) {
	resp, err := a.get(ctx, ServiceAutomation, nil, "v1", "automation", "flows")
	if err != nil {
		return nil, fmt.Errorf("list automation flows: %w", err)
	}
	return ListFrom(resp), nil
}

// GetAutomationFlow fetches one automation flow.
func (a *API) GetAutomationFlow(ctx context.Context, id string) (Object, error) {
	id, err := requireID("automation flow", id)
	if err != nil {
		return nil, err
	}
	resp, err := a.get(ctx, ServiceAutomation, nil, "v1", "automation", "flows", id)
	if err != nil {
		return nil, fmt.Errorf("get automation flow %s: %w", id, err)
	}
	return AsObject(resp, "get automation flow")
}

// CreateAutomationFlow creates an automation flow.
func (a *API) CreateAutomationFlow(ctx context.Context, flow Object) (Object, error) {
	resp, err := a.post(ctx, ServiceAutomation, flow, "v1", "automation", "flows")
	if err != nil {
		return nil, fmt.Errorf("create automation flow: %w", err)
	}
	return AsObject(resp, "create automation flow")
}

// UpdateAutomationFlow replaces an automation flow.
func (a *API) UpdateAutomationFlow(ctx context.Context, id string, flow Object) (Object, error) {
	id, err := requireID("automation flow", id)
	if err != nil {
		return nil, err
	}
	resp, err := a.put(ctx, ServiceAutomation, flow, "v1", "automation", "flows", id)
	if err != nil {
		return nil, fmt.Errorf("update automation flow %s: %w", id, err)
	}
	return AsObject(resp, "update automation flow")
}

// UpdatableFlow keeps only the fields the update endpoint accepts.
func UpdatableFlow(flow Object) Object {
	out := make(Object, len(automationUpdatableFields))
	for _, key := range automationUpdatableFields {
		if v, ok := flow[key]; ok {
			out[key] = v
		}
	}
	return out
}

// PlainTextEmails rewrites the body_html of every send-email action into a plain
// text body in place and returns how many actions changed.
func PlainTextEmails(flow Object) (int, error) {
	actions, _ := flow["actions"].([]any)
	changed := 0
	for i, raw := range actions {
		action, ok := raw.(map[string]any)
		if !ok || action["type"] != ActionSendEmail {
			continue
		}
		cfg, ok := action["config"].(map[string]any)
		if !ok {
			continue
		}
		html, ok := cfg["body_html"].(string)
		if !ok {
			continue
		}
		text, err := htmltext.ToPlainText(html)
		if err != nil {
			return changed, fmt.Errorf("action %d: %w", i, err)
		}
		cfg["body"] = text
		delete(cfg, "body_html")
		changed++
	}
	return changed, nil
}

// SimplifyAutomationEmails fetches a flow, converts its HTML emails to plain
// text and writes back the updatable fields. Nothing is written when no action changed.
func (a *API) SimplifyAutomationEmails(ctx context.Context, id string) (Object, int, error) {
	flow, err := a.GetAutomationFlow(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	changed, err := PlainTextEmails(flow)
	if err != nil {
		return nil, 0, fmt.Errorf("simplify automation flow %s: %w", id, err)
	}
	if changed == 0 {
		return flow, 0, nil
	}
	updated, err := a.UpdateAutomationFlow(ctx, id, UpdatableFlow(flow))
	if err != nil {
		return nil, changed, err
	}
	return updated, changed, nil
}
