package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	rediscache "github.com/yungbote/fincoach-backend/internal/clients/redis"
	"github.com/yungbote/fincoach-backend/internal/faults"
	"github.com/yungbote/fincoach-backend/internal/logger"
	"github.com/yungbote/fincoach-backend/internal/types"
)

type SnapshotRepo interface {
	Append(ctx context.Context, tx *gorm.DB, snap *types.FinancialSnapshot) error
	Latest(ctx context.Context, userID uuid.UUID) (*types.FinancialSnapshot, error)
	GetByID(ctx context.Context, userID, snapshotID uuid.UUID) (*types.FinancialSnapshot, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]*types.FinancialSnapshot, error)
	Wipe(ctx context.Context, userID uuid.UUID) error
}

type snapshotRepo struct {
	db    *gorm.DB
	cache rediscache.SnapshotCache
	log   *logger.Logger
}

// NewSnapshotRepo builds the append-only snapshot store. cache may be nil;
// every read then goes straight to the database.
func NewSnapshotRepo(db *gorm.DB, cache rediscache.SnapshotCache, baseLog *logger.Logger) SnapshotRepo {
	repoLog := baseLog.With("repo", "SnapshotRepo")
	return &snapshotRepo{db: db, cache: cache, log: repoLog}
}

// Append inserts the snapshot and moves the user's latest pointer in one
// transaction. A reader of Latest sees either the prior snapshot or the
// fully committed new one, never a half-written record.
func (sr *snapshotRepo) Append(ctx context.Context, tx *gorm.DB, snap *types.FinancialSnapshot) error {
	run := func(transaction *gorm.DB) error {
		if err := transaction.WithContext(ctx).Create(snap).Error; err != nil {
			return err
		}
		return transaction.WithContext(ctx).
			Model(&types.User{}).
			Where("id = ?", snap.UserID).
			Update("latest_snapshot_id", snap.ID).Error
	}

	var err error
	if tx != nil {
		err = run(tx)
	} else {
		err = sr.db.Transaction(func(transaction *gorm.DB) error {
			return run(transaction)
		})
	}
	if err != nil {
		return &faults.PersistenceError{Op: "snapshot append", Cause: err}
	}

	// Prime the cache only when this call owned the transaction; a
	// caller's transaction may still roll back after we return.
	if tx == nil && sr.cache != nil {
		sr.cache.SetLatest(ctx, snap)
	}
	return nil
}

func (sr *snapshotRepo) Latest(ctx context.Context, userID uuid.UUID) (*types.FinancialSnapshot, error) {
	if sr.cache != nil {
		if snap, ok := sr.cache.GetLatest(ctx, userID); ok {
			return snap, nil
		}
	}

	var snap types.FinancialSnapshot
	err := sr.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &faults.PersistenceError{Op: "snapshot latest", Cause: err}
	}

	if sr.cache != nil {
		sr.cache.SetLatest(ctx, &snap)
	}
	return &snap, nil
}

func (sr *snapshotRepo) GetByID(ctx context.Context, userID, snapshotID uuid.UUID) (*types.FinancialSnapshot, error) {
	var snap types.FinancialSnapshot
	err := sr.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", snapshotID, userID).
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, faults.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, &faults.PersistenceError{Op: "snapshot get", Cause: err}
	}
	return &snap, nil
}

func (sr *snapshotRepo) History(ctx context.Context, userID uuid.UUID, limit int) ([]*types.FinancialSnapshot, error) {
	if limit <= 0 {
		limit = 20
	}

	var results []*types.FinancialSnapshot
	if err := sr.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, &faults.PersistenceError{Op: "snapshot history", Cause: err}
	}
	return results, nil
}

// Wipe removes all snapshots and chat interactions for a user in one
// transaction. This is the sole deletion path, all-or-nothing. The cache
// is invalidated before and after the delete so a concurrent Latest read
// cannot leave a wiped snapshot cached for its full TTL.
func (sr *snapshotRepo) Wipe(ctx context.Context, userID uuid.UUID) error {
	if sr.cache != nil {
		sr.cache.Invalidate(ctx, userID)
	}

	err := sr.db.Transaction(func(transaction *gorm.DB) error {
		if err := transaction.WithContext(ctx).
			Where("user_id = ?", userID).
			Delete(&types.ChatInteraction{}).Error; err != nil {
			return err
		}
		if err := transaction.WithContext(ctx).
			Where("user_id = ?", userID).
			Delete(&types.FinancialSnapshot{}).Error; err != nil {
			return err
		}
		return transaction.WithContext(ctx).
			Model(&types.User{}).
			Where("id = ?", userID).
			Update("latest_snapshot_id", nil).Error
	})
	if err != nil {
		return &faults.PersistenceError{Op: "user data wipe", Cause: err}
	}

	if sr.cache != nil {
		sr.cache.Invalidate(ctx, userID)
	}
	sr.log.Info("Wiped user data", "user_id", userID.String())
	return nil
}
