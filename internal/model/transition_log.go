package model

import (
	"time"

	"gorm.io/gorm"

	"labstock/pkg/workflow"
)

// TransitionLog is the audit trail written by the queue consumer: one row per
// committed status transition. EventID is the Kafka message key, unique so a
// redelivered message lands on the index instead of duplicating the row.
type TransitionLog struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	EventID        string          `gorm:"size:64;uniqueIndex;not null" json:"event_id"`
	TargetKind     string          `gorm:"size:16;not null;index" json:"target_kind"`
	TargetID       uint            `gorm:"not null;index" json:"target_id"`
	PreviousStatus workflow.Status `gorm:"size:32;not null" json:"previous_status"`
	NewStatus      workflow.Status `gorm:"size:32;not null" json:"new_status"`
	ActorID        uint            `gorm:"not null;index" json:"actor_id"`
	Vendor         string          `gorm:"size:128" json:"vendor,omitempty"`
	Quantity       int             `gorm:"not null;default:0" json:"quantity"`
	OccurredAt     time.Time       `gorm:"not null;index" json:"occurred_at"`
}

func (TransitionLog) TableName() string { return "transition_logs" }
