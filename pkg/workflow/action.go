package workflow

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActionKind identifies a buyer intent against one or more items.
type ActionKind string

const (
	// ActionMarkOrdered moves pending items to ordered and triggers creation
	// of a procurement order server-side.
	ActionMarkOrdered ActionKind = "mark_ordered"
	// ActionMarkDelivered moves ordered items to received.
	ActionMarkDelivered ActionKind = "mark_delivered"
	// ActionMarkCancelled aborts items that are not yet received.
	ActionMarkCancelled ActionKind = "mark_cancelled"
	// ActionRequestInfo parks a pending item until the requester answers.
	ActionRequestInfo ActionKind = "request_info"
	// ActionProvideInfo returns an awaiting_info item to pending.
	ActionProvideInfo ActionKind = "provide_info"
)

// ActionPayload carries the action-specific fields attached to items on a
// successful transition. Which fields are required depends on the kind; see
// FulfillmentAction.Validate.
type ActionPayload struct {
	Vendor           string          `json:"vendor,omitempty"`
	TrackingNumber   string          `json:"tracking_number,omitempty"`
	ExpectedDelivery *time.Time      `json:"expected_delivery_date,omitempty"`
	UnitCost         decimal.Decimal `json:"unit_cost,omitempty"`
	ReceivedQuantity int             `json:"received_quantity,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	Question         string          `json:"question,omitempty"`
}

// FulfillmentAction is a validated intent to move target items forward. One
// action maps to exactly one network request regardless of how many items it
// targets.
type FulfillmentAction struct {
	Kind    ActionKind
	ItemIDs []uint
	Payload ActionPayload
}

// SourceStatuses returns the statuses an item must currently be in for the
// action to apply to it.
func (k ActionKind) SourceStatuses() []Status {
	switch k {
	case ActionMarkOrdered:
		return []Status{StatusPending}
	case ActionMarkDelivered:
		return []Status{StatusOrdered}
	case ActionMarkCancelled:
		return []Status{StatusPending, StatusOrdered, StatusAwaitingInfo}
	case ActionRequestInfo:
		return []Status{StatusPending}
	case ActionProvideInfo:
		return []Status{StatusAwaitingInfo}
	default:
		return nil
	}
}

// NextStatus returns the status the action moves an item to.
func (k ActionKind) NextStatus() (Status, bool) {
	switch k {
	case ActionMarkOrdered:
		return StatusOrdered, true
	case ActionMarkDelivered:
		return StatusReceived, true
	case ActionMarkCancelled:
		return StatusCancelled, true
	case ActionRequestInfo:
		return StatusAwaitingInfo, true
	case ActionProvideInfo:
		return StatusPending, true
	default:
		return "", false
	}
}

func (k ActionKind) acceptsSource(s Status) bool {
	for _, src := range k.SourceStatuses() {
		if src == s {
			return true
		}
	}
	return false
}

// Validate checks the action shape before any network traffic: a known kind,
// at least one target, and the kind's required payload fields.
func (a FulfillmentAction) Validate() error {
	if _, ok := a.Kind.NextStatus(); !ok {
		return &ValidationError{Field: "kind", Reason: "unknown action kind"}
	}
	if len(a.ItemIDs) == 0 {
		return &ValidationError{Field: "item_ids", Reason: "at least one target item is required"}
	}
	switch a.Kind {
	case ActionMarkOrdered:
		if a.Payload.Vendor == "" {
			return &ValidationError{Field: "vendor", Reason: "vendor is required to mark items ordered"}
		}
	case ActionMarkDelivered:
		if a.Payload.ReceivedQuantity <= 0 {
			return &ValidationError{Field: "received_quantity", Reason: "received quantity must be positive"}
		}
	case ActionRequestInfo:
		if a.Payload.Question == "" {
			return &ValidationError{Field: "question", Reason: "a question is required to request info"}
		}
	}
	return nil
}
