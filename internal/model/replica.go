package model

import (
	"time"

	"github.com/google/uuid"
)

// SyncedUser is the local projection of a user owned by the user service.
// Rows are only ever tombstoned, never removed, so consumption history stays
// attributable after a deletion upstream.
type SyncedUser struct {
	ID           uuid.UUID  `db:"id"`
	Username     string     `db:"username"`
	Email        string     `db:"email"`
	Deleted      bool       `db:"deleted"`
	DeletedAt    *time.Time `db:"deleted_at"` // origin timestamp of the DELETED event
	LastSyncTime time.Time  `db:"last_sync_time"`
}

// SyncedDevice mirrors a device owned by the device service. MaxConsumption
// and OwnerUserID are nullable upstream and stay nullable here.
type SyncedDevice struct {
	ID             uuid.UUID  `db:"id"`
	Name           string     `db:"name"`
	OwnerUserID    *uuid.UUID `db:"owner_user_id"`
	MaxConsumption *float64   `db:"max_consumption"`
	Deleted        bool       `db:"deleted"`
	DeletedAt      *time.Time `db:"deleted_at"`
	LastSyncTime   time.Time  `db:"last_sync_time"`
}

// HourlyConsumption is the (device, hour) aggregation bucket. HourStart is
// the sample timestamp truncated to the hour in UTC. Append-only history:
// buckets are created lazily and never deleted.
type HourlyConsumption struct {
	ID               int64     `db:"id"`
	DeviceID         uuid.UUID `db:"device_id"`
	HourStart        time.Time `db:"hour_start"`
	TotalConsumption float64   `db:"total_consumption"`
}
