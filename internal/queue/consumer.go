package queue

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"labstock/internal/model"
)

// Consumer persists transition events as audit log rows.
type Consumer struct {
	r      *kafka.Reader
	db     *gorm.DB
	logger *zap.Logger
}

func NewConsumer(brokers []string, topic, groupID string, db *gorm.DB, logger *zap.Logger) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
		}),
		db:     db,
		logger: logger,
	}
}

func (c *Consumer) Close() error { return c.r.Close() }

func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			return // ctx cancelled or connection lost
		}

		var msg TransitionMessage
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			c.logger.Warn("consumer unmarshal", zap.Error(err))
			continue
		}
		if err := msg.Validate(); err != nil {
			c.logger.Warn("consumer dropped dirty event", zap.String("event_id", msg.EventID), zap.Error(err))
			continue
		}

		entry := &model.TransitionLog{
			EventID:        msg.EventID,
			TargetKind:     msg.TargetKind,
			TargetID:       msg.TargetID,
			PreviousStatus: msg.PreviousStatus,
			NewStatus:      msg.NewStatus,
			ActorID:        msg.ActorID,
			Vendor:         msg.Vendor,
			Quantity:       msg.Quantity,
			OccurredAt:     msg.OccurredAt,
		}

		if err := c.db.Create(entry).Error; err != nil {
			// Redelivery lands on the unique event_id index; count it done.
			if errorsLikeUnique(err) {
				continue
			}
			c.logger.Error("consumer db create", zap.String("event_id", msg.EventID), zap.Error(err))
			continue
		}
	}
}

func errorsLikeUnique(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "UNIQUE") || strings.Contains(s, "unique")
}
