package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/energymon/internal/model"
)

// SyncedDevicesRepository defines persistence for the synced_devices replica
// table. Get is also the aggregator's point lookup for the consumption limit.
type SyncedDevicesRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.SyncedDevice, error)
	Save(ctx context.Context, d *model.SyncedDevice) error
}

type SyncedDevicesRepositoryImpl struct {
	db *sqlx.DB
}

func NewSyncedDevicesRepository(db *sqlx.DB) *SyncedDevicesRepositoryImpl {
	return &SyncedDevicesRepositoryImpl{db: db}
}

var _ SyncedDevicesRepository = (*SyncedDevicesRepositoryImpl)(nil)

func (r *SyncedDevicesRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*model.SyncedDevice, error) {
	var d model.SyncedDevice
	err := r.db.GetContext(ctx, &d, `
		SELECT id, name, owner_user_id, max_consumption, deleted, deleted_at, last_sync_time
		  FROM synced_devices
		 WHERE id = ? LIMIT 1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *SyncedDevicesRepositoryImpl) Save(ctx context.Context, d *model.SyncedDevice) error {
	const q = `
		INSERT INTO synced_devices
		    (id, name, owner_user_id, max_consumption, deleted, deleted_at, last_sync_time)
		VALUES
		    (?,  ?,    ?,             ?,               ?,       ?,          ?)
		ON DUPLICATE KEY UPDATE
		    name            = VALUES(name),
		    owner_user_id   = VALUES(owner_user_id),
		    max_consumption = VALUES(max_consumption),
		    deleted         = VALUES(deleted),
		    deleted_at      = VALUES(deleted_at),
		    last_sync_time  = VALUES(last_sync_time)
	`
	_, err := r.db.ExecContext(ctx, q,
		d.ID, d.Name, d.OwnerUserID, d.MaxConsumption, d.Deleted, d.DeletedAt, d.LastSyncTime,
	)
	return err
}
