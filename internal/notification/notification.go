// Package notification emits provider-facing workflow events. Delivery is
// best effort: publish failures are logged by implementations and never
// surface to the workflow, which must keep moving regardless of the
// notification channel's health.
package notification

import (
	"context"
	"time"

	id "confia/pkg/domain"
)

// EventType is a provider-facing notification kind.
type EventType string

const (
	EventVerificationStarted  EventType = "verification_started"
	EventDocumentsReceived    EventType = "documents_received"
	EventUnderReview          EventType = "under_review"
	EventApproved             EventType = "approved"
	EventRejected             EventType = "rejected"
	EventResubmissionRequired EventType = "resubmission_required"
)

// Event is one notification to a provider.
type Event struct {
	ProviderID id.ProviderID `json:"provider_id"`
	Type       EventType     `json:"type"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// Publisher delivers events. Publish never returns an error: failed
// delivery is an implementation concern, not a workflow one.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// NoopPublisher discards events.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) {}
