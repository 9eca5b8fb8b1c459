package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Procurement order target kinds.
const (
	TargetChemical    = "chemical"
	TargetRequestItem = "request_item"
)

// ProcurementOrder is created server-side whenever a mark-ordered action
// commits. ActionID carries the client's idempotency key so a replayed
// submission trips the unique index instead of buying twice.
type ProcurementOrder struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrderNo    string `gorm:"size:64;uniqueIndex;not null" json:"order_no"`
	ActionID   string `gorm:"size:64;not null;uniqueIndex:idx_po_action_target" json:"action_id"`
	TargetKind string `gorm:"size:16;not null;index" json:"target_kind"`
	TargetID   uint   `gorm:"not null;uniqueIndex:idx_po_action_target" json:"target_id"`
	PlacedBy   uint   `gorm:"not null;index" json:"placed_by"`

	Vendor           string          `gorm:"size:128;not null" json:"vendor"`
	Quantity         int             `gorm:"not null;default:1" json:"quantity"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(12,2)" json:"unit_cost"`
	TrackingNumber   string          `gorm:"size:64" json:"tracking_number,omitempty"`
	ExpectedDelivery *time.Time      `json:"expected_delivery_date,omitempty"`
	Notes            string          `gorm:"size:255" json:"notes,omitempty"`
}

func (ProcurementOrder) TableName() string { return "procurement_orders" }
