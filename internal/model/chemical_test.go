package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"labstock/pkg/workflow"
)

func TestInventoryStatus(t *testing.T) {
	now := time.Now()
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	testCases := []struct {
		name         string
		quantity     int
		reorderLevel int
		expiresAt    *time.Time
		want         workflow.Status
	}{
		{"plenty of stock", 100, 10, nil, workflow.StatusAvailable},
		{"at the reorder level", 10, 10, nil, workflow.StatusLowStock},
		{"below the reorder level", 3, 10, nil, workflow.StatusLowStock},
		{"no stock", 0, 10, nil, workflow.StatusOutOfStock},
		{"negative stock counts as none", -2, 0, nil, workflow.StatusOutOfStock},
		{"expired beats quantity", 100, 10, &past, workflow.StatusExpired},
		{"expired beats empty", 0, 10, &past, workflow.StatusExpired},
		{"future expiry is fine", 100, 10, &future, workflow.StatusAvailable},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, InventoryStatus(tc.quantity, tc.reorderLevel, tc.expiresAt, now))
		})
	}
}

func TestRefreshStatus_PipelineWins(t *testing.T) {
	now := time.Now()
	for _, status := range []workflow.Status{workflow.StatusPending, workflow.StatusOrdered, workflow.StatusAwaitingInfo} {
		chem := Chemical{Quantity: 0, ReorderLevel: 5, Status: status}
		chem.RefreshStatus(now)
		assert.Equal(t, status, chem.Status, "mid-pipeline status must not be recomputed")
	}
}

func TestRefreshStatus_TerminalFoldsBack(t *testing.T) {
	now := time.Now()
	chem := Chemical{Quantity: 50, ReorderLevel: 5, Status: workflow.StatusReceived}
	chem.RefreshStatus(now)
	assert.Equal(t, workflow.StatusAvailable, chem.Status)
}

func TestRefreshStatus_AutoReorderPromotes(t *testing.T) {
	now := time.Now()

	auto := Chemical{Quantity: 1, ReorderLevel: 5, AutoReorder: true}
	auto.RefreshStatus(now)
	assert.Equal(t, workflow.StatusPending, auto.Status)

	manual := Chemical{Quantity: 1, ReorderLevel: 5}
	manual.RefreshStatus(now)
	assert.Equal(t, workflow.StatusLowStock, manual.Status)
	assert.True(t, manual.NeedsReorder())
}

func TestWorkflowItemProjection(t *testing.T) {
	expires := time.Now().Add(48 * time.Hour)
	chem := Chemical{
		ID: 12, Name: "Acetone", Quantity: 4, Unit: "L",
		Status: workflow.StatusLowStock, Vendor: "Sigma", ExpiresAt: &expires,
	}
	item := chem.WorkflowItem()
	assert.Equal(t, uint(12), item.ID)
	assert.Equal(t, "Acetone", item.Description)
	assert.Equal(t, workflow.StatusLowStock, item.Status)
	assert.Equal(t, "Sigma", item.Vendor)
	assert.Equal(t, &expires, item.ExpiresAt)
}
