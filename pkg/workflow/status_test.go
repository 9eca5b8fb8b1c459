package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedNext(t *testing.T) {
	testCases := []struct {
		name    string
		current Status
		want    []Status
	}{
		{"pending has three successors", StatusPending, []Status{StatusOrdered, StatusCancelled, StatusAwaitingInfo}},
		{"ordered can be received or cancelled", StatusOrdered, []Status{StatusReceived, StatusCancelled}},
		{"awaiting_info returns to pending or cancels", StatusAwaitingInfo, []Status{StatusPending, StatusCancelled}},
		{"received is terminal", StatusReceived, nil},
		{"cancelled is terminal", StatusCancelled, nil},
		{"inventory statuses have no successors", StatusLowStock, nil},
		{"available has no successors", StatusAvailable, nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AllowedNext(tc.current))
		})
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusOrdered))
	assert.True(t, CanTransition(StatusPending, StatusCancelled))
	assert.True(t, CanTransition(StatusOrdered, StatusReceived))
	assert.True(t, CanTransition(StatusAwaitingInfo, StatusPending))

	assert.False(t, CanTransition(StatusOrdered, StatusOrdered))
	assert.False(t, CanTransition(StatusReceived, StatusPending))
	assert.False(t, CanTransition(StatusCancelled, StatusOrdered))
	assert.False(t, CanTransition(StatusPending, StatusReceived))
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusReceived.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusOrdered.IsTerminal())

	assert.True(t, StatusPending.IsPipeline())
	assert.True(t, StatusAwaitingInfo.IsPipeline())
	assert.False(t, StatusLowStock.IsPipeline())

	assert.True(t, StatusExpired.IsValid())
	assert.False(t, Status("bogus").IsValid())
	assert.False(t, Status("").IsValid())
}
