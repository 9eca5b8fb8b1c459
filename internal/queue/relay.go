package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"labstock/pkg/workflow"
)

// Relay forwards transition events from the Redis Stream outbox to Kafka.
// Semantics: ACK the stream entry only after Kafka accepted the publish;
// failed entries stay pending and are retried.
type Relay struct {
	rdb      *rd.Client
	producer *Producer
	logger   *zap.Logger

	stream   string
	group    string
	consumer string
}

func NewRelay(rdb *rd.Client, producer *Producer, stream, group, consumer string, logger *zap.Logger) *Relay {
	return &Relay{
		rdb:      rdb,
		producer: producer,
		logger:   logger,
		stream:   stream,
		group:    group,
		consumer: consumer,
	}
}

func (r *Relay) Run(ctx context.Context) {
	if err := r.ensureGroup(ctx); err != nil {
		r.logger.Error("relay ensure group", zap.Error(err))
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}

		// Drain this consumer's pending entries first so leftovers from a
		// crash do not pile up behind new traffic.
		msgs, err := r.readGroup(ctx, "0", 0)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			r.logger.Warn("relay read pending", zap.Error(err))
			time.Sleep(300 * time.Millisecond)
			continue
		}
		if len(msgs) == 0 {
			msgs, err = r.readGroup(ctx, ">", 2*time.Second)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					return
				}
				r.logger.Warn("relay read new", zap.Error(err))
				time.Sleep(300 * time.Millisecond)
				continue
			}
		}

		for _, xm := range msgs {
			if err := r.processOne(ctx, xm); err != nil {
				// No ACK on publish failure; the entry stays for retry.
				r.logger.Warn("relay process message", zap.String("id", xm.ID), zap.Error(err))
				time.Sleep(200 * time.Millisecond)
				break
			}
		}
	}
}

func (r *Relay) ensureGroup(ctx context.Context) error {
	err := r.rdb.XGroupCreateMkStream(ctx, r.stream, r.group, "0").Err()
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "BUSYGROUP") {
		return nil
	}
	return err
}

func (r *Relay) readGroup(ctx context.Context, streamID string, block time.Duration) ([]rd.XMessage, error) {
	streams, err := r.rdb.XReadGroup(ctx, &rd.XReadGroupArgs{
		Group:    r.group,
		Consumer: r.consumer,
		Streams:  []string{r.stream, streamID},
		Count:    16,
		Block:    block,
		NoAck:    false,
	}).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]rd.XMessage, 0, 16)
	for _, s := range streams {
		out = append(out, s.Messages...)
	}
	return out, nil
}

func (r *Relay) processOne(ctx context.Context, xm rd.XMessage) error {
	msg, err := parseTransitionEvent(xm.Values)
	if err != nil {
		// Dirty entries are ACKed away so they cannot wedge the stream.
		if ackErr := r.ackAndDelete(ctx, xm.ID); ackErr != nil {
			return fmt.Errorf("parse failed: %v, ack failed: %w", err, ackErr)
		}
		r.logger.Warn("relay dropped dirty event", zap.String("id", xm.ID), zap.Error(err))
		return nil
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.producer.Publish(pubCtx, msg); err != nil {
		return err
	}
	return r.ackAndDelete(ctx, xm.ID)
}

func (r *Relay) ackAndDelete(ctx context.Context, id string) error {
	pipe := r.rdb.TxPipeline()
	pipe.XAck(ctx, r.stream, r.group, id)
	pipe.XDel(ctx, r.stream, id)
	_, err := pipe.Exec(ctx)
	return err
}

func parseTransitionEvent(values map[string]interface{}) (TransitionMessage, error) {
	eventID, err := getStreamString(values, "event_id")
	if err != nil {
		return TransitionMessage{}, err
	}
	targetKind, err := getStreamString(values, "target_kind")
	if err != nil {
		return TransitionMessage{}, err
	}
	targetStr, err := getStreamString(values, "target_id")
	if err != nil {
		return TransitionMessage{}, err
	}
	prevStr, err := getStreamString(values, "previous_status")
	if err != nil {
		return TransitionMessage{}, err
	}
	nextStr, err := getStreamString(values, "new_status")
	if err != nil {
		return TransitionMessage{}, err
	}
	actorStr, err := getStreamString(values, "actor_id")
	if err != nil {
		return TransitionMessage{}, err
	}
	quantityStr, err := getStreamString(values, "quantity")
	if err != nil {
		return TransitionMessage{}, err
	}
	occurredStr, err := getStreamString(values, "occurred_at")
	if err != nil {
		return TransitionMessage{}, err
	}
	vendor, _ := getStreamString(values, "vendor")

	targetID, err := strconv.ParseUint(targetStr, 10, 32)
	if err != nil {
		return TransitionMessage{}, fmt.Errorf("invalid target_id %q", targetStr)
	}
	actorID, err := strconv.ParseUint(actorStr, 10, 32)
	if err != nil {
		return TransitionMessage{}, fmt.Errorf("invalid actor_id %q", actorStr)
	}
	quantity, err := strconv.Atoi(quantityStr)
	if err != nil {
		return TransitionMessage{}, fmt.Errorf("invalid quantity %q", quantityStr)
	}
	occurredAt, err := time.Parse(time.RFC3339Nano, occurredStr)
	if err != nil {
		return TransitionMessage{}, fmt.Errorf("invalid occurred_at %q", occurredStr)
	}

	msg := TransitionMessage{
		EventID:        eventID,
		TargetKind:     targetKind,
		TargetID:       uint(targetID),
		PreviousStatus: workflow.Status(prevStr),
		NewStatus:      workflow.Status(nextStr),
		ActorID:        uint(actorID),
		Vendor:         vendor,
		Quantity:       quantity,
		OccurredAt:     occurredAt,
	}
	if err := msg.Validate(); err != nil {
		return TransitionMessage{}, err
	}
	return msg, nil
}

func getStreamString(values map[string]interface{}, key string) (string, error) {
	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing field %s", key)
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		return strconv.FormatInt(int64(x), 10), nil
	default:
		return "", fmt.Errorf("unsupported field type %s: %T", key, v)
	}
}
