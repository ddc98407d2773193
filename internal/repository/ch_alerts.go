package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/energymon/internal/model"
)

// CHAlertsRepository keeps the alert history in ClickHouse for reporting.
type CHAlertsRepository interface {
	Insert(ctx context.Context, rec model.AlertRecord) error
	ListByDevice(ctx context.Context, deviceID string, limit, offset int) ([]model.AlertRecord, error)
}

type chAlertsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHAlertsRepository(ch *sqlx.DB) CHAlertsRepository {
	return &chAlertsRepository{ch: ch}
}

func (r *chAlertsRepository) Insert(ctx context.Context, rec model.AlertRecord) error {
	const q = `
		INSERT INTO energymon.alerts
		    (id, user_id, device_id, message, total_consumption, max_consumption, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.ch.ExecContext(ctx, q,
		rec.ID, rec.UserID, rec.DeviceID, rec.Message,
		rec.TotalConsumption, rec.MaxConsumption, rec.CreatedAt,
	)
	return err
}

func (r *chAlertsRepository) ListByDevice(ctx context.Context, deviceID string, limit, offset int) ([]model.AlertRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT id, user_id, device_id, message, total_consumption, max_consumption, created_at
		FROM energymon.alerts
	`
	args := []any{}

	if deviceID != "" {
		q += " WHERE device_id = ?"
		args = append(args, deviceID)
	}

	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.AlertRecord
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
