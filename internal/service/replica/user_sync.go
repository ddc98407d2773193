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

// UserSync projects USER sync events onto the synced_users replica. Apply is
// idempotent: the upsert overwrites the fields the event carries, so a
// redelivered event leaves the row unchanged. Events are handled one at a
// time per worker (the sync worker runs a single processor) and the sync
// topic is keyed by entity id, which keeps per-entity apply order.
type UserSync struct {
	users repository.SyncedUsersRepository
}

func NewUserSync(users repository.SyncedUsersRepository) *UserSync {
	return &UserSync{users: users}
}

func (s *UserSync) Apply(ctx context.Context, ev model.SyncEvent) error {
	if ev.EntityType != model.EntityTypeUser {
		return nil
	}

	switch ev.ActionType {
	case model.ActionCreated, model.ActionUpdated, model.ActionAssigned, model.ActionUnassigned:
		return s.upsert(ctx, ev)
	case model.ActionDeleted:
		return s.tombstone(ctx, ev)
	default:
		logger.Log.Warn("unknown user sync action, dropping",
			zap.String("action", ev.ActionType.String()),
			zap.String("user_id", ev.EntityID.String()),
		)
		metrics.SyncEventsTotal.WithLabelValues("user", ev.ActionType.String(), "skipped").Inc()
		return nil
	}
}

func (s *UserSync) upsert(ctx context.Context, ev model.SyncEvent) error {
	u, err := s.users.Get(ctx, ev.EntityID)
	if err != nil {
		metrics.SyncEventsTotal.WithLabelValues("user", ev.ActionType.String(), "error").Inc()
		return fmt.Errorf("get synced user: %w", err)
	}
	if u == nil {
		u = &model.SyncedUser{ID: ev.EntityID}
	}

	// A tombstone wins over any upsert that is not strictly newer than the
	// deletion, so redelivered stale updates cannot resurrect the row.
	if tombstoneWins(u.Deleted, u.DeletedAt, ev.Timestamp) {
		logger.Log.Warn("stale upsert for tombstoned user, keeping tombstone",
			zap.String("user_id", ev.EntityID.String()),
			zap.Time("event_time", ev.Timestamp),
		)
		metrics.SyncEventsTotal.WithLabelValues("user", ev.ActionType.String(), "skipped").Inc()
		return nil
	}

	u.Username = ev.Username
	u.Email = ev.Email
	u.Deleted = false
	u.DeletedAt = nil
	u.LastSyncTime = time.Now().UTC()

	if err := s.users.Save(ctx, u); err != nil {
		metrics.SyncEventsTotal.WithLabelValues("user", ev.ActionType.String(), "error").Inc()
		return fmt.Errorf("save synced user: %w", err)
	}

	logger.Log.Info("user synced",
		zap.String("user_id", u.ID.String()),
		zap.String("action", ev.ActionType.String()),
		zap.String("username", u.Username),
	)
	metrics.SyncEventsTotal.WithLabelValues("user", ev.ActionType.String(), "applied").Inc()
	return nil
}

func (s *UserSync) tombstone(ctx context.Context, ev model.SyncEvent) error {
	u, err := s.users.Get(ctx, ev.EntityID)
	if err != nil {
		metrics.SyncEventsTotal.WithLabelValues("user", "DELETED", "error").Inc()
		return fmt.Errorf("get synced user: %w", err)
	}
	if u == nil {
		// No resurrection of a deletion for an entity never seen.
		logger.Log.Warn("delete for unknown user, ignoring",
			zap.String("user_id", ev.EntityID.String()),
		)
		metrics.SyncEventsTotal.WithLabelValues("user", "DELETED", "skipped").Inc()
		return nil
	}

	deletedAt := eventTime(ev.Timestamp)
	u.Deleted = true
	u.DeletedAt = &deletedAt
	u.LastSyncTime = time.Now().UTC()

	if err := s.users.Save(ctx, u); err != nil {
		metrics.SyncEventsTotal.WithLabelValues("user", "DELETED", "error").Inc()
		return fmt.Errorf("save synced user: %w", err)
	}

	logger.Log.Info("user tombstoned", zap.String("user_id", u.ID.String()))
	metrics.SyncEventsTotal.WithLabelValues("user", "DELETED", "applied").Inc()
	return nil
}

// tombstoneWins reports whether an existing tombstone outranks an upsert with
// the given origin timestamp.
func tombstoneWins(deleted bool, deletedAt *time.Time, eventTS time.Time) bool {
	if !deleted {
		return false
	}
	if deletedAt == nil {
		// Tombstone of unknown age: only a timestamped upsert may not pass.
		// Keep the conservative choice and hold the tombstone.
		return true
	}
	return !eventTS.After(*deletedAt)
}

// eventTime falls back to wall clock when the origin did not stamp the event.
func eventTime(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Now().UTC()
	}
	return ts
}
