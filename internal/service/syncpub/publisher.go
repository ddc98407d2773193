package syncpub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmehdipour/energymon/internal/logger"
	"github.com/jmehdipour/energymon/internal/model"
	"go.uber.org/zap"
)

var ErrInvalidEvent = errors.New("invalid sync event")

// producer is the slice of kafka.Producer the publisher needs.
type producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Publisher serializes SyncEvents onto the shared sync topic. Messages are
// keyed by entity id so the broker keeps best-effort per-entity order; a
// failed write propagates to the caller, which owns the rollback decision.
type Publisher struct {
	producer producer
	topic    string
}

func New(p producer, topic string) *Publisher {
	return &Publisher{producer: p, topic: topic}
}

func (p *Publisher) Publish(ctx context.Context, ev model.SyncEvent) error {
	if !ev.EntityType.Valid() || !ev.ActionType.Valid() {
		return fmt.Errorf("%w: entity=%q action=%q", ErrInvalidEvent, ev.EntityType, ev.ActionType)
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal sync event: %w", err)
	}

	if err := p.producer.Publish(ctx, p.topic, []byte(ev.EntityID.String()), payload); err != nil {
		return fmt.Errorf("publish sync event: %w", err)
	}

	logger.Log.Info("published sync event",
		zap.String("entity", ev.EntityType.String()),
		zap.String("action", ev.ActionType.String()),
		zap.String("entity_id", ev.EntityID.String()),
	)
	return nil
}
