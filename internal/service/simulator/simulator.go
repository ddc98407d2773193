package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jmehdipour/energymon/internal/logger"
	"github.com/jmehdipour/energymon/internal/model"
)

type producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Simulator stands in for a real smart meter: it publishes a sample every
// interval onto the inbound measurement topic, shaped by a daily load curve
// (low at night, peak in the evening).
type Simulator struct {
	producer producer
	topic    string
	deviceID uuid.UUID
	baseLoad float64 // kWh-equivalent hourly base load
	interval time.Duration
	rng      *rand.Rand
}

func New(p producer, topic string, deviceID uuid.UUID, baseLoad float64, interval time.Duration) *Simulator {
	if baseLoad <= 0 {
		baseLoad = 0.5
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Simulator{
		producer: p,
		topic:    topic,
		deviceID: deviceID,
		baseLoad: baseLoad,
		interval: interval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run emits measurements until ctx is cancelled.
func (s *Simulator) Run(ctx context.Context) error {
	tick := time.NewTicker(s.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			now := time.Now()
			value := s.ConsumptionForHour(now.Hour())
			if err := s.send(ctx, value, now); err != nil {
				logger.Log.Error("send measurement failed", zap.Error(err))
			}
		}
	}
}

// SeedFullDay backfills one full day: six samples per hour, 24 hours, all
// stamped inside the given calendar day. Useful for exercising the daily
// report without waiting.
func (s *Simulator) SeedFullDay(ctx context.Context, day time.Time) error {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	logger.Log.Info("seeding full day of measurements",
		zap.String("device_id", s.deviceID.String()),
		zap.String("date", dayStart.Format("2006-01-02")),
	)

	for hour := 0; hour < 24; hour++ {
		base := dayStart.Add(time.Duration(hour) * time.Hour)
		for i := 0; i < 6; i++ {
			ts := base.Add(time.Duration(i) * 10 * time.Minute)
			if err := s.send(ctx, s.ConsumptionForHour(hour), ts); err != nil {
				return fmt.Errorf("seed hour %d sample %d: %w", hour, i, err)
			}
		}
	}
	return nil
}

// SendTest publishes a single measurement with the given value, stamped now.
func (s *Simulator) SendTest(ctx context.Context, value float64) error {
	return s.send(ctx, value, time.Now())
}

func (s *Simulator) send(ctx context.Context, value float64, ts time.Time) error {
	msg := model.MeasurementMessage{
		DeviceID:         s.deviceID,
		MeasurementValue: &value,
		Timestamp:        model.MeasurementTime{Time: ts},
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal measurement: %w", err)
	}
	if err := s.producer.Publish(ctx, s.topic, nil, payload); err != nil {
		return fmt.Errorf("publish measurement: %w", err)
	}
	logger.Log.Info("sent measurement",
		zap.String("device_id", s.deviceID.String()),
		zap.Float64("value", value),
		zap.Time("timestamp", ts),
	)
	return nil
}

// ConsumptionForHour produces one sample on the daily load curve: a
// per-10-minute slice of the hourly base load, scaled by the time of day
// with ±10% jitter.
func (s *Simulator) ConsumptionForHour(hour int) float64 {
	var mult float64
	switch {
	case hour < 6:
		mult = 0.3 + s.rng.Float64()*0.2
	case hour < 9:
		mult = 0.6 + s.rng.Float64()*0.5
	case hour < 17:
		mult = 0.8 + s.rng.Float64()*0.6
	case hour < 22:
		mult = 1.5 + s.rng.Float64()*0.8
	default:
		mult = 0.5 + s.rng.Float64()*0.4
	}

	tenMinute := s.baseLoad * mult / 6.0
	jitter := 1.0 + (s.rng.Float64()-0.5)*0.2

	return tenMinute * jitter
}
