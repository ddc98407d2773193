package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jmehdipour/energymon/internal/logger"
	"github.com/jmehdipour/energymon/internal/metrics"
	"github.com/jmehdipour/energymon/internal/model"
	"github.com/jmehdipour/energymon/internal/repository"
	"github.com/jmehdipour/energymon/internal/util"
)

// Alert carries one threshold breach. Only UserID, DeviceID and Message go on
// the wire; the totals feed the ClickHouse history row.
type Alert struct {
	UserID   *uuid.UUID
	DeviceID uuid.UUID
	Message  string
	Total    float64
	Limit    float64
}

type producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Notifier publishes one notification per breach. There is no suppression by
// default: two consecutive measurements both over the limit alert twice. A
// per-device Redis cooldown can be enabled via config; it stays off unless
// requirements ask for rate limiting.
type Notifier struct {
	producer producer
	topic    string

	history repository.CHAlertsRepository // optional alert history sink

	cooldown time.Duration // 0 disables suppression
	rdb      *redis.Client
}

type Option func(*Notifier)

// WithHistory records every published alert in ClickHouse, best effort.
func WithHistory(repo repository.CHAlertsRepository) Option {
	return func(n *Notifier) { n.history = repo }
}

// WithCooldown suppresses repeat alerts per device for the given window.
func WithCooldown(rdb *redis.Client, d time.Duration) Option {
	return func(n *Notifier) {
		n.rdb = rdb
		n.cooldown = d
	}
}

func New(p producer, topic string, opts ...Option) *Notifier {
	n := &Notifier{producer: p, topic: topic}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Notifier) Notify(ctx context.Context, a Alert) error {
	if n.cooldown > 0 && n.rdb != nil {
		key := "alert:cooldown:" + a.DeviceID.String()
		ok, err := n.rdb.SetNX(ctx, key, 1, n.cooldown).Result()
		if err != nil {
			// Redis down must not block alerting; fall through and publish.
			logger.Log.Warn("alert cooldown check failed", zap.Error(err))
		} else if !ok {
			metrics.AlertsTotal.WithLabelValues("suppressed").Inc()
			return nil
		}
	}

	payload, err := json.Marshal(model.NotificationMessage{
		UserID:   a.UserID,
		DeviceID: a.DeviceID,
		Message:  a.Message,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := n.producer.Publish(ctx, n.topic, []byte(a.DeviceID.String()), payload); err != nil {
		metrics.AlertsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("publish notification: %w", err)
	}
	metrics.AlertsTotal.WithLabelValues("published").Inc()

	if n.history != nil {
		rec := model.AlertRecord{
			ID:               util.New(),
			DeviceID:         a.DeviceID.String(),
			Message:          a.Message,
			TotalConsumption: a.Total,
			MaxConsumption:   a.Limit,
			CreatedAt:        time.Now().UTC(),
		}
		if a.UserID != nil {
			rec.UserID = a.UserID.String()
		}
		if err := n.history.Insert(ctx, rec); err != nil {
			// History is reporting sugar; the alert is already out.
			logger.Log.Warn("alert history insert failed", zap.Error(err))
		}
	}

	logger.Log.Warn("overconsumption alert published",
		zap.String("device_id", a.DeviceID.String()),
		zap.Float64("total", a.Total),
		zap.Float64("limit", a.Limit),
	)
	return nil
}
