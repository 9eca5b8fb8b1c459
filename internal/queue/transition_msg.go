package queue

import (
	"fmt"
	"time"

	"labstock/pkg/workflow"
)

// TransitionMessage is the audit event emitted for every committed status
// transition and carried over Kafka.
type TransitionMessage struct {
	EventID        string          `json:"event_id"`
	TargetKind     string          `json:"target_kind"`
	TargetID       uint            `json:"target_id"`
	PreviousStatus workflow.Status `json:"previous_status"`
	NewStatus      workflow.Status `json:"new_status"`
	ActorID        uint            `json:"actor_id"`
	Vendor         string          `json:"vendor,omitempty"`
	Quantity       int             `json:"quantity"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// Validate keeps dirty messages out of the consumer.
func (m TransitionMessage) Validate() error {
	if m.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if m.TargetKind == "" {
		return fmt.Errorf("target_kind is required")
	}
	if m.TargetID == 0 {
		return fmt.Errorf("target_id is required")
	}
	if !m.NewStatus.IsValid() {
		return fmt.Errorf("new_status %q is not a known status", m.NewStatus)
	}
	if !m.PreviousStatus.IsValid() {
		return fmt.Errorf("previous_status %q is not a known status", m.PreviousStatus)
	}
	if m.OccurredAt.IsZero() {
		return fmt.Errorf("occurred_at is required")
	}
	return nil
}
