package publishers

import (
	"time"

	"github.com/google/uuid"
)

// Provisioning operations carried by events.
const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
	OperationStart  = "start"
)

// Event describes one successful provisioning call.
type Event struct {
	ID         string    `json:"id"`
	Operation  string    `json:"operation"`
	Schema     string    `json:"schema"`
	ResourceID string    `json:"resource_id"`
	Title      string    `json:"title,omitempty"`
	Tenant     string    `json:"tenant,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent stamps a new event with a random id and the current UTC time.
func NewEvent(operation, schema, resourceID, title, tenant string) Event {
	return Event{
		ID:         uuid.NewString(),
		Operation:  operation,
		Schema:     schema,
		ResourceID: resourceID,
		Title:      title,
		Tenant:     tenant,
		OccurredAt: time.Now().UTC(),
	}
}

// attributes are the non-empty routing attributes attached to queue and topic messages.
func (e Event) attributes() map[string]string {
	out := make(map[string]string, 3)
	for k, v := range map[string]string{"operation": e.Operation, "schema": e.Schema, "tenant": e.Tenant} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
