package workflow

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(items ...Item) map[uint]Item {
	m := make(map[uint]Item, len(items))
	for _, it := range items {
		m[it.ID] = it
	}
	return m
}

func TestPlan_MarkOrdered(t *testing.T) {
	items := snapshot(
		Item{ID: 1, Status: StatusPending},
		Item{ID: 2, Status: StatusPending},
	)
	action := FulfillmentAction{
		Kind:    ActionMarkOrdered,
		ItemIDs: []uint{1, 2},
		Payload: ActionPayload{Vendor: "Acme"},
	}

	records, err := Plan(action, items)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for i, rec := range records {
		assert.Equal(t, action.ItemIDs[i], rec.ItemID)
		assert.Equal(t, StatusPending, rec.PreviousStatus)
		assert.Equal(t, StatusOrdered, rec.NewStatus)
		assert.Equal(t, "Acme", rec.Payload.Vendor)
	}

	// Planning is pure: the snapshot still says pending.
	assert.Equal(t, StatusPending, items[1].Status)
	assert.Equal(t, StatusPending, items[2].Status)
}

func TestPlan_ValidationErrors(t *testing.T) {
	items := snapshot(Item{ID: 1, Status: StatusPending})

	testCases := []struct {
		name   string
		action FulfillmentAction
		field  string
	}{
		{
			"mark-ordered without vendor",
			FulfillmentAction{Kind: ActionMarkOrdered, ItemIDs: []uint{1}},
			"vendor",
		},
		{
			"mark-delivered without quantity",
			FulfillmentAction{Kind: ActionMarkDelivered, ItemIDs: []uint{1}},
			"received_quantity",
		},
		{
			"mark-delivered with negative quantity",
			FulfillmentAction{Kind: ActionMarkDelivered, ItemIDs: []uint{1}, Payload: ActionPayload{ReceivedQuantity: -3}},
			"received_quantity",
		},
		{
			"request-info without question",
			FulfillmentAction{Kind: ActionRequestInfo, ItemIDs: []uint{1}},
			"question",
		},
		{
			"no targets",
			FulfillmentAction{Kind: ActionMarkCancelled},
			"item_ids",
		},
		{
			"unknown kind",
			FulfillmentAction{Kind: ActionKind("promote"), ItemIDs: []uint{1}},
			"kind",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			records, err := Plan(tc.action, items)
			assert.Nil(t, records)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestPlan_InvalidTransitions(t *testing.T) {
	items := snapshot(
		Item{ID: 1, Status: StatusOrdered},
		Item{ID: 2, Status: StatusReceived},
		Item{ID: 3, Status: StatusPending},
	)

	testCases := []struct {
		name   string
		action FulfillmentAction
		itemID uint
	}{
		{
			"mark-ordered on an ordered item",
			FulfillmentAction{Kind: ActionMarkOrdered, ItemIDs: []uint{1}, Payload: ActionPayload{Vendor: "Acme"}},
			1,
		},
		{
			"mark-ordered on a received item",
			FulfillmentAction{Kind: ActionMarkOrdered, ItemIDs: []uint{2}, Payload: ActionPayload{Vendor: "Acme"}},
			2,
		},
		{
			"mark-delivered on a pending item",
			FulfillmentAction{Kind: ActionMarkDelivered, ItemIDs: []uint{3}, Payload: ActionPayload{ReceivedQuantity: 5}},
			3,
		},
		{
			"one bad target rejects the batch",
			FulfillmentAction{Kind: ActionMarkOrdered, ItemIDs: []uint{3, 1}, Payload: ActionPayload{Vendor: "Acme"}},
			1,
		},
		{
			"target missing from snapshot",
			FulfillmentAction{Kind: ActionMarkOrdered, ItemIDs: []uint{99}, Payload: ActionPayload{Vendor: "Acme"}},
			99,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			records, err := Plan(tc.action, items)
			assert.Nil(t, records)
			var tErr *InvalidTransitionError
			require.ErrorAs(t, err, &tErr)
			assert.Equal(t, tc.itemID, tErr.ItemID)
		})
	}
}

func TestApplyRecord_AttachesPayload(t *testing.T) {
	expected := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	item := Item{ID: 42, Status: StatusPending, Quantity: 3}
	rec := TransitionRecord{
		ItemID:         42,
		PreviousStatus: StatusPending,
		NewStatus:      StatusOrdered,
		Payload: ActionPayload{
			Vendor:           "Acme",
			TrackingNumber:   "1Z999",
			ExpectedDelivery: &expected,
			UnitCost:         decimal.RequireFromString("12.50"),
		},
	}

	got := ApplyRecord(item, rec)
	assert.Equal(t, StatusOrdered, got.Status)
	assert.Equal(t, "Acme", got.Vendor)
	assert.Equal(t, "1Z999", got.TrackingNum)
	require.NotNil(t, got.ExpectedAt)
	assert.True(t, got.ExpectedAt.Equal(expected))
	assert.True(t, got.UnitCost.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, 3, got.Quantity, "quantity untouched until delivery")

	// Input untouched.
	assert.Equal(t, StatusPending, item.Status)
}

func TestApplyRecord_DeliveryAddsStock(t *testing.T) {
	item := Item{ID: 7, Status: StatusOrdered, Quantity: 2}
	rec := TransitionRecord{
		ItemID:         7,
		PreviousStatus: StatusOrdered,
		NewStatus:      StatusReceived,
		Payload:        ActionPayload{ReceivedQuantity: 10},
	}
	got := ApplyRecord(item, rec)
	assert.Equal(t, StatusReceived, got.Status)
	assert.Equal(t, 12, got.Quantity)
}

func TestApplyRecord_InfoSideChannel(t *testing.T) {
	item := Item{ID: 5, Status: StatusPending}

	parked := ApplyRecord(item, TransitionRecord{
		ItemID: 5, PreviousStatus: StatusPending, NewStatus: StatusAwaitingInfo,
		Payload: ActionPayload{Question: "which grade?"},
	})
	assert.Equal(t, StatusAwaitingInfo, parked.Status)
	assert.True(t, parked.NeedsInfo)

	resumed := ApplyRecord(parked, TransitionRecord{
		ItemID: 5, PreviousStatus: StatusAwaitingInfo, NewStatus: StatusPending,
	})
	assert.Equal(t, StatusPending, resumed.Status)
	assert.False(t, resumed.NeedsInfo)
}
