package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/energymon/internal/model"
)

// HourlyConsumptionRepository owns the hourly_consumption buckets. Buckets are
// shared by every aggregator replica, so the accumulate must serialize at the
// storage layer, never in process memory.
type HourlyConsumptionRepository interface {
	// AddToBucket adds value to the (deviceID, hourStart) bucket, creating it
	// at zero when absent, and returns the new running total. The
	// read-modify-write is serialized per bucket row.
	AddToBucket(ctx context.Context, deviceID uuid.UUID, hourStart time.Time, value float64) (float64, error)
	// ListDay returns the buckets for the 24 hours starting at dayStart.
	ListDay(ctx context.Context, deviceID uuid.UUID, dayStart time.Time) ([]model.HourlyConsumption, error)
}

type HourlyConsumptionRepositoryImpl struct {
	db *sqlx.DB
}

func NewHourlyConsumptionRepository(db *sqlx.DB) *HourlyConsumptionRepositoryImpl {
	return &HourlyConsumptionRepositoryImpl{db: db}
}

var _ HourlyConsumptionRepository = (*HourlyConsumptionRepositoryImpl)(nil)

// AddToBucket accumulates inside one transaction: the upsert takes the row
// lock, the follow-up select reads the total under that same lock. Two
// aggregator replicas racing on one bucket serialize here.
func (r *HourlyConsumptionRepositoryImpl) AddToBucket(ctx context.Context, deviceID uuid.UUID, hourStart time.Time, value float64) (float64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO hourly_consumption (device_id, hour_start, total_consumption)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE
		    total_consumption = total_consumption + VALUES(total_consumption)
	`, deviceID, hourStart, value)
	if err != nil {
		return 0, err
	}

	var total float64
	err = tx.QueryRowxContext(ctx, `
		SELECT total_consumption
		  FROM hourly_consumption
		 WHERE device_id = ? AND hour_start = ?
	`, deviceID, hourStart).Scan(&total)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *HourlyConsumptionRepositoryImpl) ListDay(ctx context.Context, deviceID uuid.UUID, dayStart time.Time) ([]model.HourlyConsumption, error) {
	var rows []model.HourlyConsumption
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, device_id, hour_start, total_consumption
		  FROM hourly_consumption
		 WHERE device_id = ? AND hour_start >= ? AND hour_start < ?
		 ORDER BY hour_start
	`, deviceID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	return rows, nil
}
