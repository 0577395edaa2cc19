// Package events publishes domain notifications such as a budget going over
// its cap or a report being generated. Publishing is best-effort: callers log
// failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Routing keys.
const (
	BudgetOverspent = "budget.overspent"
	ReportGenerated = "report.generated"
)

// Event is the envelope written to the broker.
type Event struct {
	Type       string            `json:"type"`
	UserID     string            `json:"user_id"`
	ResourceID string            `json:"resource_id"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// New builds an event stamped with the current time.
func New(eventType, userID, resourceID string, attrs map[string]string) Event {
	return Event{
		Type:       eventType,
		UserID:     userID,
		ResourceID: resourceID,
		Attributes: attrs,
		OccurredAt: time.Now().UTC(),
	}
}

// ToJSON encodes the event body.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON decodes an event body.
func FromJSON(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher discards every event. Used when no broker is configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
