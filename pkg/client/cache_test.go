package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labstock/pkg/workflow"
)

func cacheIDs(c *Cache, kind ListKind) []uint {
	items := c.Items(kind)
	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}

func TestCache_ReconcileMovesBetweenLists(t *testing.T) {
	c := NewCache(0)
	c.LoadList(ListNeedingReorder, []workflow.Item{
		{ID: 1, Status: workflow.StatusPending},
		{ID: 2, Status: workflow.StatusPending},
	})
	c.LoadList(ListOnOrder, nil)

	c.Reconcile([]workflow.TransitionRecord{
		{ItemID: 1, PreviousStatus: workflow.StatusPending, NewStatus: workflow.StatusOrdered,
			Payload: workflow.ActionPayload{Vendor: "Acme"}},
	}, nil)

	assert.Equal(t, []uint{2}, cacheIDs(c, ListNeedingReorder))
	assert.Equal(t, []uint{1}, cacheIDs(c, ListOnOrder))

	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, workflow.StatusOrdered, got.Status)
	assert.Equal(t, "Acme", got.Vendor)
}

func TestCache_NeverInTwoExclusiveLists(t *testing.T) {
	c := NewCache(0)
	c.LoadList(ListNeedingReorder, []workflow.Item{{ID: 9, Status: workflow.StatusPending}})

	c.Reconcile([]workflow.TransitionRecord{
		{ItemID: 9, PreviousStatus: workflow.StatusPending, NewStatus: workflow.StatusOrdered,
			Payload: workflow.ActionPayload{Vendor: "Acme"}},
	}, nil)

	needing := cacheIDs(c, ListNeedingReorder)
	onOrder := cacheIDs(c, ListOnOrder)
	total := 0
	for _, id := range append(needing, onOrder...) {
		if id == 9 {
			total++
		}
	}
	assert.Equal(t, 1, total, "item must appear exactly once across the two lists")
}

func TestCache_ServerCopyWins(t *testing.T) {
	c := NewCache(0)
	c.LoadList(ListOnOrder, []workflow.Item{{ID: 3, Status: workflow.StatusOrdered, Quantity: 0}})

	// Server says the delivery settled at available with stock on hand.
	c.Reconcile(
		[]workflow.TransitionRecord{
			{ItemID: 3, PreviousStatus: workflow.StatusOrdered, NewStatus: workflow.StatusReceived,
				Payload: workflow.ActionPayload{ReceivedQuantity: 5}},
		},
		map[uint]workflow.Item{
			3: {ID: 3, Status: workflow.StatusAvailable, Quantity: 5},
		},
	)

	got, ok := c.Get(3)
	require.True(t, ok)
	assert.Equal(t, workflow.StatusAvailable, got.Status)
	assert.Equal(t, 5, got.Quantity)
	assert.Empty(t, cacheIDs(c, ListOnOrder))
	assert.Equal(t, []uint{3}, cacheIDs(c, ListInventory))
}

func TestCache_AppendOnMissing(t *testing.T) {
	c := NewCache(0)
	// Item 77 was never fetched into any list.
	c.Reconcile([]workflow.TransitionRecord{
		{ItemID: 77, PreviousStatus: workflow.StatusPending, NewStatus: workflow.StatusOrdered,
			Payload: workflow.ActionPayload{Vendor: "Sigma"}},
	}, nil)

	assert.Equal(t, []uint{77}, cacheIDs(c, ListOnOrder))
	assert.Empty(t, cacheIDs(c, ListNeedingReorder))
}

func TestCache_ExpiringSoonWindow(t *testing.T) {
	c := NewCache(7 * 24 * time.Hour)
	soon := time.Now().Add(3 * 24 * time.Hour)
	far := time.Now().Add(60 * 24 * time.Hour)

	c.Upsert(
		workflow.Item{ID: 1, Status: workflow.StatusAvailable, ExpiresAt: &soon},
		workflow.Item{ID: 2, Status: workflow.StatusAvailable, ExpiresAt: &far},
		workflow.Item{ID: 3, Status: workflow.StatusCancelled, ExpiresAt: &soon},
	)

	assert.Equal(t, []uint{1}, cacheIDs(c, ListExpiringSoon))
}

func TestCache_CancelledLeavesInventory(t *testing.T) {
	c := NewCache(0)
	c.LoadList(ListInventory, []workflow.Item{{ID: 4, Status: workflow.StatusOrdered}})

	c.Reconcile([]workflow.TransitionRecord{
		{ItemID: 4, PreviousStatus: workflow.StatusOrdered, NewStatus: workflow.StatusCancelled},
	}, nil)

	assert.Empty(t, cacheIDs(c, ListInventory))
	assert.Empty(t, cacheIDs(c, ListOnOrder))
}
