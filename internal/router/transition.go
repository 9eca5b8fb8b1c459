package router

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"labstock/internal/queue"
	"labstock/pkg/workflow"
)

// planOrReject re-validates an action server-side (the server stays the
// source of truth even though well-behaved clients check first) and maps the
// workflow error taxonomy onto HTTP: 400 for a malformed payload, 409 for a
// transition the table forbids. ok=false means the response was written.
func planOrReject(c *gin.Context, action workflow.FulfillmentAction, items map[uint]workflow.Item) ([]workflow.TransitionRecord, bool) {
	records, err := workflow.Plan(action, items)
	if err == nil {
		return records, true
	}

	var vErr *workflow.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": vErr.Error()})
		return nil, false
	}
	var tErr *workflow.InvalidTransitionError
	if errors.As(err, &tErr) {
		c.JSON(http.StatusConflict, gin.H{"code": 409, "msg": tErr.Error()})
		return nil, false
	}
	c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
	return nil, false
}

// transitionEvent builds the audit event for one committed record.
func transitionEvent(targetKind string, rec workflow.TransitionRecord, actorID uint, vendor string, quantity int) queue.TransitionMessage {
	return queue.TransitionMessage{
		EventID:        uuid.New().String(),
		TargetKind:     targetKind,
		TargetID:       rec.ItemID,
		PreviousStatus: rec.PreviousStatus,
		NewStatus:      rec.NewStatus,
		ActorID:        actorID,
		Vendor:         vendor,
		Quantity:       quantity,
		OccurredAt:     time.Now(),
	}
}
