package replica

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jmehdipour/energymon/internal/logger"
	"github.com/jmehdipour/energymon/internal/metrics"
	"github.com/jmehdipour/energymon/internal/model"
	"github.com/jmehdipour/energymon/internal/repository"
)

// DeviceSync projects DEVICE sync events onto the synced_devices replica.
// ASSIGNED/UNASSIGNED events carry no maxConsumption; the upsert leaves the
// stored limit untouched in that case instead of nulling it.
type DeviceSync struct {
	devices repository.SyncedDevicesRepository
}

func NewDeviceSync(devices repository.SyncedDevicesRepository) *DeviceSync {
	return &DeviceSync{devices: devices}
}

func (s *DeviceSync) Apply(ctx context.Context, ev model.SyncEvent) error {
	if ev.EntityType != model.EntityTypeDevice {
		return nil
	}

	switch ev.ActionType {
	case model.ActionCreated, model.ActionUpdated, model.ActionAssigned, model.ActionUnassigned:
		return s.upsert(ctx, ev)
	case model.ActionDeleted:
		return s.tombstone(ctx, ev)
	default:
		logger.Log.Warn("unknown device sync action, dropping",
			zap.String("action", ev.ActionType.String()),
			zap.String("device_id", ev.EntityID.String()),
		)
		metrics.SyncEventsTotal.WithLabelValues("device", ev.ActionType.String(), "skipped").Inc()
		return nil
	}
}

func (s *DeviceSync) upsert(ctx context.Context, ev model.SyncEvent) error {
	d, err := s.devices.Get(ctx, ev.EntityID)
	if err != nil {
		metrics.SyncEventsTotal.WithLabelValues("device", ev.ActionType.String(), "error").Inc()
		return fmt.Errorf("get synced device: %w", err)
	}
	if d == nil {
		d = &model.SyncedDevice{ID: ev.EntityID}
	}

	if tombstoneWins(d.Deleted, d.DeletedAt, ev.Timestamp) {
		logger.Log.Warn("stale upsert for tombstoned device, keeping tombstone",
			zap.String("device_id", ev.EntityID.String()),
			zap.Time("event_time", ev.Timestamp),
		)
		metrics.SyncEventsTotal.WithLabelValues("device", ev.ActionType.String(), "skipped").Inc()
		return nil
	}

	d.Name = ev.DeviceName
	d.OwnerUserID = ev.OwnerUserID
	if ev.MaxConsumption != nil {
		d.MaxConsumption = ev.MaxConsumption
	}
	d.Deleted = false
	d.DeletedAt = nil
	d.LastSyncTime = time.Now().UTC()

	if err := s.devices.Save(ctx, d); err != nil {
		metrics.SyncEventsTotal.WithLabelValues("device", ev.ActionType.String(), "error").Inc()
		return fmt.Errorf("save synced device: %w", err)
	}

	logger.Log.Info("device synced",
		zap.String("device_id", d.ID.String()),
		zap.String("action", ev.ActionType.String()),
		zap.String("name", d.Name),
		zap.Float64p("max_consumption", d.MaxConsumption),
	)
	metrics.SyncEventsTotal.WithLabelValues("device", ev.ActionType.String(), "applied").Inc()
	return nil
}

func (s *DeviceSync) tombstone(ctx context.Context, ev model.SyncEvent) error {
	d, err := s.devices.Get(ctx, ev.EntityID)
	if err != nil {
		metrics.SyncEventsTotal.WithLabelValues("device", "DELETED", "error").Inc()
		return fmt.Errorf("get synced device: %w", err)
	}
	if d == nil {
		logger.Log.Warn("delete for unknown device, ignoring",
			zap.String("device_id", ev.EntityID.String()),
		)
		metrics.SyncEventsTotal.WithLabelValues("device", "DELETED", "skipped").Inc()
		return nil
	}

	deletedAt := eventTime(ev.Timestamp)
	d.Deleted = true
	d.DeletedAt = &deletedAt
	d.LastSyncTime = time.Now().UTC()

	if err := s.devices.Save(ctx, d); err != nil {
		metrics.SyncEventsTotal.WithLabelValues("device", "DELETED", "error").Inc()
		return fmt.Errorf("save synced device: %w", err)
	}

	logger.Log.Info("device tombstoned", zap.String("device_id", d.ID.String()))
	metrics.SyncEventsTotal.WithLabelValues("device", "DELETED", "applied").Inc()
	return nil
}
