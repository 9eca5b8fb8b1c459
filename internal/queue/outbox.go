package queue

import (
	"context"
	"strconv"
	"time"

	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Outbox appends transition events to a Redis Stream in the request path;
// the Relay drains the stream into Kafka out of band. The DB write is the
// authoritative state change, so an outbox failure degrades to a warning
// instead of failing the user's action.
type Outbox struct {
	rdb    *rd.Client
	stream string
	logger *zap.Logger
}

func NewOutbox(rdb *rd.Client, stream string, logger *zap.Logger) *Outbox {
	return &Outbox{rdb: rdb, stream: stream, logger: logger}
}

// Append records one transition event. Errors are logged, not returned.
func (o *Outbox) Append(ctx context.Context, msg TransitionMessage) {
	if o == nil || o.rdb == nil {
		return
	}
	err := o.rdb.XAdd(ctx, &rd.XAddArgs{
		Stream: o.stream,
		Values: map[string]interface{}{
			"event_id":        msg.EventID,
			"target_kind":     msg.TargetKind,
			"target_id":       strconv.FormatUint(uint64(msg.TargetID), 10),
			"previous_status": string(msg.PreviousStatus),
			"new_status":      string(msg.NewStatus),
			"actor_id":        strconv.FormatUint(uint64(msg.ActorID), 10),
			"vendor":          msg.Vendor,
			"quantity":        strconv.Itoa(msg.Quantity),
			"occurred_at":     msg.OccurredAt.Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		o.logger.Warn("transition outbox append failed",
			zap.String("event_id", msg.EventID),
			zap.Error(err))
	}
}
