package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jmehdipour/energymon/internal/logger"
	"github.com/jmehdipour/energymon/internal/metrics"
	"github.com/jmehdipour/energymon/internal/model"
	"github.com/jmehdipour/energymon/internal/repository"
	"github.com/jmehdipour/energymon/internal/service/notifier"
)

// alertSink is the slice of notifier.Notifier the aggregator needs.
type alertSink interface {
	Notify(ctx context.Context, a notifier.Alert) error
}

// deviceReader is the replica point-lookup interface.
type deviceReader interface {
	Get(ctx context.Context, id uuid.UUID) (*model.SyncedDevice, error)
}

// Service buckets measurements into hourly totals and checks the synced
// consumption limit on every update. Any replica may receive any device's
// measurements (the balancer has no affinity), so bucket state lives in the
// shared store and never in process memory.
type Service struct {
	buckets repository.HourlyConsumptionRepository
	devices deviceReader
	alerts  alertSink
}

func New(buckets repository.HourlyConsumptionRepository, devices deviceReader, alerts alertSink) *Service {
	return &Service{buckets: buckets, devices: devices, alerts: alerts}
}

// HandleMeasurement accumulates one sample. Hour buckets are keyed by the
// sample timestamp truncated to the hour in UTC. A returned error means the
// bucket write failed and the message should be retried; the threshold
// check never fails the measurement, because a retry would double-count the
// already committed bucket update.
func (s *Service) HandleMeasurement(ctx context.Context, msg model.MeasurementMessage) error {
	hourStart := msg.Timestamp.UTC().Truncate(time.Hour)

	total, err := s.buckets.AddToBucket(ctx, msg.DeviceID, hourStart, msg.Value())
	if err != nil {
		metrics.MeasurementsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("bucket update: %w", err)
	}
	metrics.MeasurementsTotal.WithLabelValues("aggregated").Inc()

	logger.Log.Debug("measurement aggregated",
		zap.String("device_id", msg.DeviceID.String()),
		zap.Time("hour_start", hourStart),
		zap.Float64("total", total),
	)

	s.checkThreshold(ctx, msg.DeviceID, total)
	return nil
}

func (s *Service) checkThreshold(ctx context.Context, deviceID uuid.UUID, total float64) {
	d, err := s.devices.Get(ctx, deviceID)
	if err != nil {
		logger.Log.Warn("device lookup failed, skipping threshold check",
			zap.String("device_id", deviceID.String()),
			zap.Error(err),
		)
		return
	}
	if d == nil {
		// Sync lag: the device-created event has not arrived yet. Expected
		// eventual-consistency gap, not an error.
		return
	}
	if d.MaxConsumption == nil || total <= *d.MaxConsumption {
		return
	}

	alert := notifier.Alert{
		UserID:   d.OwnerUserID,
		DeviceID: d.ID,
		Message: fmt.Sprintf("High energy usage detected for '%s'! Current: %.2f kWh (Limit: %.2f kWh)",
			d.Name, total, *d.MaxConsumption),
		Total: total,
		Limit: *d.MaxConsumption,
	}
	if err := s.alerts.Notify(ctx, alert); err != nil {
		logger.Log.Error("alert publish failed",
			zap.String("device_id", deviceID.String()),
			zap.Error(err),
		)
	}
}
