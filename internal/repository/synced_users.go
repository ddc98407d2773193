package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/energymon/internal/model"
)

// SyncedUsersRepository defines persistence for the synced_users replica table.
type SyncedUsersRepository interface {
	// Get returns the replica row, or (nil, nil) for an unseen id.
	Get(ctx context.Context, id uuid.UUID) (*model.SyncedUser, error)
	// Save performs a full-row upsert keyed on id.
	Save(ctx context.Context, u *model.SyncedUser) error
}

type SyncedUsersRepositoryImpl struct {
	db *sqlx.DB
}

func NewSyncedUsersRepository(db *sqlx.DB) *SyncedUsersRepositoryImpl {
	return &SyncedUsersRepositoryImpl{db: db}
}

var _ SyncedUsersRepository = (*SyncedUsersRepositoryImpl)(nil)

func (r *SyncedUsersRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*model.SyncedUser, error) {
	var u model.SyncedUser
	err := r.db.GetContext(ctx, &u, `
		SELECT id, username, email, deleted, deleted_at, last_sync_time
		  FROM synced_users
		 WHERE id = ? LIMIT 1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *SyncedUsersRepositoryImpl) Save(ctx context.Context, u *model.SyncedUser) error {
	const q = `
		INSERT INTO synced_users
		    (id, username, email, deleted, deleted_at, last_sync_time)
		VALUES
		    (?,  ?,        ?,     ?,       ?,          ?)
		ON DUPLICATE KEY UPDATE
		    username       = VALUES(username),
		    email          = VALUES(email),
		    deleted        = VALUES(deleted),
		    deleted_at     = VALUES(deleted_at),
		    last_sync_time = VALUES(last_sync_time)
	`
	_, err := r.db.ExecContext(ctx, q,
		u.ID, u.Username, u.Email, u.Deleted, u.DeletedAt, u.LastSyncTime,
	)
	return err
}
