package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"labstock/pkg/workflow"
)

// Chemical is a stocked substance subject to the reorder pipeline. Status
// holds either an inventory level (recomputed from quantity/expiration) or a
// pipeline status while a reorder is in flight; the pipeline always wins
// until it reaches a terminal state.
type Chemical struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name         string          `gorm:"size:128;not null;index" json:"name"`
	CASNumber    string          `gorm:"size:32;index" json:"cas_number,omitempty"`
	Description  string          `gorm:"size:255" json:"description"`
	Quantity     int             `gorm:"not null;default:0" json:"quantity"`
	Unit         string          `gorm:"size:16;not null;default:ea" json:"unit"`
	ReorderLevel int             `gorm:"not null;default:0" json:"reorder_level"`
	Status       workflow.Status `gorm:"size:32;not null;index" json:"status"`
	// AutoReorder promotes the chemical straight to pending when stock
	// crosses the reorder level; otherwise it sits at low_stock until a user
	// flags it.
	AutoReorder bool `gorm:"not null;default:false" json:"auto_reorder"`

	Vendor           string          `gorm:"size:128" json:"vendor,omitempty"`
	TrackingNumber   string          `gorm:"size:64" json:"tracking_number,omitempty"`
	ExpectedDelivery *time.Time      `json:"expected_delivery_date,omitempty"`
	ExpiresAt        *time.Time      `gorm:"index" json:"expires_at,omitempty"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(12,2)" json:"unit_cost"`
	ReorderNotes     string          `gorm:"size:255" json:"reorder_notes,omitempty"`
}

func (Chemical) TableName() string { return "chemicals" }

// InventoryStatus computes the server-owned inventory level from quantity,
// reorder level and expiration. The workflow never calls this; only write
// paths that change quantity or expiry do.
func InventoryStatus(quantity, reorderLevel int, expiresAt *time.Time, now time.Time) workflow.Status {
	if expiresAt != nil && expiresAt.Before(now) {
		return workflow.StatusExpired
	}
	if quantity <= 0 {
		return workflow.StatusOutOfStock
	}
	if quantity <= reorderLevel {
		return workflow.StatusLowStock
	}
	return workflow.StatusAvailable
}

// RefreshStatus recomputes c.Status unless a reorder is mid-pipeline
// (pending/ordered/awaiting_info). Terminal pipeline statuses fold back into
// the computed inventory level: a received reorder becomes available stock
// again. With AutoReorder set, a depleted or expired chemical is promoted to
// pending on the spot, which is how items enter the reorder pipeline
// server-side.
func (c *Chemical) RefreshStatus(now time.Time) {
	switch c.Status {
	case workflow.StatusPending, workflow.StatusOrdered, workflow.StatusAwaitingInfo:
		return
	}
	c.Status = InventoryStatus(c.Quantity, c.ReorderLevel, c.ExpiresAt, now)
	if c.AutoReorder && c.NeedsReorder() {
		c.Status = workflow.StatusPending
	}
}

// NeedsReorder reports whether the current inventory level calls for a
// reorder.
func (c *Chemical) NeedsReorder() bool {
	switch c.Status {
	case workflow.StatusLowStock, workflow.StatusOutOfStock, workflow.StatusExpired:
		return true
	default:
		return false
	}
}

// WorkflowItem projects the chemical into the client-facing item shape.
func (c *Chemical) WorkflowItem() workflow.Item {
	return workflow.Item{
		ID:          c.ID,
		Description: c.Name,
		Quantity:    c.Quantity,
		Unit:        c.Unit,
		Status:      c.Status,
		Vendor:      c.Vendor,
		TrackingNum: c.TrackingNumber,
		ExpectedAt:  c.ExpectedDelivery,
		ExpiresAt:   c.ExpiresAt,
		UnitCost:    c.UnitCost,
	}
}
