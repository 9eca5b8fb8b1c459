package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labstock/pkg/workflow"
)

func validMessage() TransitionMessage {
	return TransitionMessage{
		EventID:        "evt-1",
		TargetKind:     "chemical",
		TargetID:       42,
		PreviousStatus: workflow.StatusPending,
		NewStatus:      workflow.StatusOrdered,
		ActorID:        7,
		Vendor:         "Acme",
		Quantity:       3,
		OccurredAt:     time.Now(),
	}
}

func TestTransitionMessage_Validate(t *testing.T) {
	assert.NoError(t, validMessage().Validate())

	testCases := []struct {
		name   string
		mutate func(*TransitionMessage)
	}{
		{"missing event id", func(m *TransitionMessage) { m.EventID = "" }},
		{"missing target kind", func(m *TransitionMessage) { m.TargetKind = "" }},
		{"missing target id", func(m *TransitionMessage) { m.TargetID = 0 }},
		{"bogus new status", func(m *TransitionMessage) { m.NewStatus = "shipped" }},
		{"bogus previous status", func(m *TransitionMessage) { m.PreviousStatus = "" }},
		{"missing timestamp", func(m *TransitionMessage) { m.OccurredAt = time.Time{} }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := validMessage()
			tc.mutate(&m)
			assert.Error(t, m.Validate())
		})
	}
}

func TestParseTransitionEvent_RoundTrip(t *testing.T) {
	occurred := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	values := map[string]interface{}{
		"event_id":        "evt-9",
		"target_kind":     "request_item",
		"target_id":       "15",
		"previous_status": "ordered",
		"new_status":      "received",
		"actor_id":        "3",
		"vendor":          "Sigma",
		"quantity":        "2",
		"occurred_at":     occurred.Format(time.RFC3339Nano),
	}

	msg, err := parseTransitionEvent(values)
	require.NoError(t, err)
	assert.Equal(t, "evt-9", msg.EventID)
	assert.Equal(t, uint(15), msg.TargetID)
	assert.Equal(t, workflow.StatusOrdered, msg.PreviousStatus)
	assert.Equal(t, workflow.StatusReceived, msg.NewStatus)
	assert.Equal(t, uint(3), msg.ActorID)
	assert.Equal(t, 2, msg.Quantity)
	assert.True(t, msg.OccurredAt.Equal(occurred))
}

func TestParseTransitionEvent_Dirty(t *testing.T) {
	base := func() map[string]interface{} {
		return map[string]interface{}{
			"event_id":        "evt-9",
			"target_kind":     "chemical",
			"target_id":       "15",
			"previous_status": "pending",
			"new_status":      "ordered",
			"actor_id":        "3",
			"quantity":        "2",
			"occurred_at":     time.Now().Format(time.RFC3339Nano),
		}
	}

	missing := base()
	delete(missing, "target_id")
	_, err := parseTransitionEvent(missing)
	assert.Error(t, err)

	badID := base()
	badID["target_id"] = "not-a-number"
	_, err = parseTransitionEvent(badID)
	assert.Error(t, err)

	badStatus := base()
	badStatus["new_status"] = "shipped"
	_, err = parseTransitionEvent(badStatus)
	assert.Error(t, err)
}
