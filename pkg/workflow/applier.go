package workflow

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is the snapshot an action is validated and applied against. It is the
// client-side projection of a chemical or requisition line item; the server
// remains the source of truth for status.
type Item struct {
	ID          uint            `json:"id"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Unit        string          `json:"unit"`
	Status      Status          `json:"status"`
	NeedsInfo   bool            `json:"needs_info"`
	Vendor      string          `json:"vendor,omitempty"`
	TrackingNum string          `json:"tracking_number,omitempty"`
	ExpectedAt  *time.Time      `json:"expected_delivery_date,omitempty"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}

// TransitionRecord describes one committed status change. The cache
// synchronizer consumes these to reconcile list projections.
type TransitionRecord struct {
	ItemID         uint
	PreviousStatus Status
	NewStatus      Status
	Payload        ActionPayload
}

// Plan validates action against the current snapshots and computes the
// transition records that would result. It is pure: no snapshot is mutated
// and nothing is sent anywhere. Every target must be present in items and in
// the action's accepted source set, otherwise the whole action is rejected
// and no records are returned.
func Plan(action FulfillmentAction, items map[uint]Item) ([]TransitionRecord, error) {
	if err := action.Validate(); err != nil {
		return nil, err
	}
	next, _ := action.Kind.NextStatus()

	records := make([]TransitionRecord, 0, len(action.ItemIDs))
	for _, id := range action.ItemIDs {
		item, ok := items[id]
		if !ok {
			return nil, &InvalidTransitionError{ItemID: id, Current: "", Action: action.Kind}
		}
		if !action.Kind.acceptsSource(item.Status) {
			return nil, &InvalidTransitionError{ItemID: id, Current: item.Status, Action: action.Kind}
		}
		records = append(records, TransitionRecord{
			ItemID:         id,
			PreviousStatus: item.Status,
			NewStatus:      next,
			Payload:        action.Payload,
		})
	}
	return records, nil
}

// ApplyRecord returns a copy of item with rec applied: the new status plus
// whatever payload fields the action carried. Delivery adds the received
// quantity to the item's on-hand count.
func ApplyRecord(item Item, rec TransitionRecord) Item {
	item.Status = rec.NewStatus

	p := rec.Payload
	if p.Vendor != "" {
		item.Vendor = p.Vendor
	}
	if p.TrackingNumber != "" {
		item.TrackingNum = p.TrackingNumber
	}
	if p.ExpectedDelivery != nil {
		item.ExpectedAt = p.ExpectedDelivery
	}
	if !p.UnitCost.IsZero() {
		item.UnitCost = p.UnitCost
	}
	if rec.NewStatus == StatusReceived && p.ReceivedQuantity > 0 {
		item.Quantity += p.ReceivedQuantity
	}

	switch rec.NewStatus {
	case StatusAwaitingInfo:
		item.NeedsInfo = true
	case StatusPending:
		item.NeedsInfo = false
	}
	return item
}
