package worker

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"

	"github.com/jmehdipour/energymon/internal/kafka"
	"github.com/jmehdipour/energymon/internal/metrics"
	"github.com/jmehdipour/energymon/internal/model"
	"github.com/jmehdipour/energymon/internal/service/aggregator"
	"github.com/jmehdipour/energymon/internal/service/balancer"
)

// syncApplier is implemented by replica.UserSync and replica.DeviceSync.
type syncApplier interface {
	Apply(ctx context.Context, ev model.SyncEvent) error
}

// NewSyncHandler decodes SyncEvents and applies them to the replica. Poison
// payloads are committed and dropped; apply failures bubble up and the loop
// retries the message in place.
func NewSyncHandler(name string, svc syncApplier) HandlerFunc {
	return func(ctx context.Context, m kafka.Message) error {
		var ev model.SyncEvent
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			log.Printf("[%s] bad sync event json: %v", name, err)
			metrics.SyncEventsTotal.WithLabelValues(name, "UNKNOWN", "poison").Inc()
			return nil
		}
		return svc.Apply(ctx, ev)
	}
}

// NewBalancerHandler forwards the raw inbound payload byte-for-byte; the
// balancer never parses or retries itself, a failed forward surfaces so the
// loop retries the original message.
func NewBalancerHandler(b *balancer.Balancer) HandlerFunc {
	return func(ctx context.Context, m kafka.Message) error {
		_, err := b.Forward(ctx, m.Value)
		return err
	}
}

// NewAggregatorHandler decodes measurements for one replica queue. A message
// without a device id is poison; a zero timestamp would bucket into the epoch
// hour, so it is dropped too.
func NewAggregatorHandler(name string, svc *aggregator.Service) HandlerFunc {
	return func(ctx context.Context, m kafka.Message) error {
		var msg model.MeasurementMessage
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			log.Printf("[%s] bad measurement json: %v", name, err)
			metrics.MeasurementsTotal.WithLabelValues("poison").Inc()
			return nil
		}
		if msg.DeviceID == uuid.Nil || msg.Timestamp.IsZero() {
			log.Printf("[%s] measurement missing device id or timestamp", name)
			metrics.MeasurementsTotal.WithLabelValues("poison").Inc()
			return nil
		}
		return svc.HandleMeasurement(ctx, msg)
	}
}
