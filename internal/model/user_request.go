package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"labstock/pkg/workflow"
)

// UserRequest is a requisition submitted by a lab member: a header plus line
// items that individually walk the fulfillment pipeline.
type UserRequest struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	RequesterID uint          `gorm:"not null;index" json:"requester_id"`
	Title       string        `gorm:"size:128;not null" json:"title"`
	Notes       string        `gorm:"size:255" json:"notes,omitempty"`
	Items       []RequestItem `gorm:"foreignKey:RequestID" json:"items"`
}

func (UserRequest) TableName() string { return "user_requests" }

// RequestItem is one requisition line. It starts pending and is archived in
// place (soft delete stays off) once received or cancelled.
type RequestItem struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	RequestID   uint            `gorm:"not null;index" json:"request_id"`
	PartNumber  string          `gorm:"size:64" json:"part_number,omitempty"`
	Description string          `gorm:"size:255;not null" json:"description"`
	Quantity    int             `gorm:"not null;default:1" json:"quantity"`
	Unit        string          `gorm:"size:16;not null;default:ea" json:"unit"`
	Status      workflow.Status `gorm:"size:32;not null;default:pending;index" json:"status"`

	NeedsInfo bool   `gorm:"not null;default:false" json:"needs_info"`
	Question  string `gorm:"size:255" json:"question,omitempty"`
	Answer    string `gorm:"size:255" json:"answer,omitempty"`

	Vendor           string          `gorm:"size:128" json:"vendor,omitempty"`
	TrackingNumber   string          `gorm:"size:64" json:"tracking_number,omitempty"`
	ExpectedDelivery *time.Time      `json:"expected_delivery_date,omitempty"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(12,2)" json:"unit_cost"`
	OrderNotes       string          `gorm:"size:255" json:"order_notes,omitempty"`
	ReceivedQuantity int             `gorm:"not null;default:0" json:"received_quantity"`
	ReceivedAt       *time.Time      `json:"received_at,omitempty"`
}

func (RequestItem) TableName() string { return "request_items" }

// WorkflowItem projects the line item into the client-facing item shape.
func (ri *RequestItem) WorkflowItem() workflow.Item {
	return workflow.Item{
		ID:          ri.ID,
		Description: ri.Description,
		Quantity:    ri.Quantity,
		Unit:        ri.Unit,
		Status:      ri.Status,
		NeedsInfo:   ri.NeedsInfo,
		Vendor:      ri.Vendor,
		TrackingNum: ri.TrackingNumber,
		ExpectedAt:  ri.ExpectedDelivery,
		UnitCost:    ri.UnitCost,
	}
}
