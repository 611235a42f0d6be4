// Package events publishes application lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	ApplicationSubmitted = "application.submitted"
	ApplicationDecided   = "application.decided"
	ApplicationCompleted = "application.completed"
)

// Publisher sends an encoded event keyed by partitionKey.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}

// ApplicationEvent is the payload of every application.* event.
type ApplicationEvent struct {
	EventID        string  `json:"eventId"`
	Type           string  `json:"type"`
	OccurredAt     string  `json:"occurredAt"`
	ApplicationID  string  `json:"applicationId"`
	JobID          string  `json:"jobId"`
	VolunteerID    string  `json:"volunteerId"`
	OrganizationID string  `json:"organizationId"`
	Status         string  `json:"status"`
	Hours          float64 `json:"hours,omitempty"`
}

// NewApplicationEvent stamps an event with a fresh ID and time.
func NewApplicationEvent(eventType string, now time.Time) ApplicationEvent {
	return ApplicationEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		OccurredAt: now.UTC().Format(time.RFC3339),
	}
}

// PublishApplication encodes e and publishes it keyed by the application ID
// so that events of one application stay ordered.
func PublishApplication(ctx context.Context, p Publisher, e ApplicationEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.Publish(ctx, e.Type, payload, e.ApplicationID)
}
