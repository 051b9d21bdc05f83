package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/fincoach-backend/internal/faults"
	"github.com/yungbote/fincoach-backend/internal/logger"
	"github.com/yungbote/fincoach-backend/internal/types"
)

type InteractionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, interaction *types.ChatInteraction) error
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ChatInteraction, error)
}

type interactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInteractionRepo(db *gorm.DB, baseLog *logger.Logger) InteractionRepo {
	repoLog := baseLog.With("repo", "InteractionRepo")
	return &interactionRepo{db: db, log: repoLog}
}

func (ir *interactionRepo) Create(ctx context.Context, tx *gorm.DB, interaction *types.ChatInteraction) error {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	if err := transaction.WithContext(ctx).Create(interaction).Error; err != nil {
		return &faults.PersistenceError{Op: "interaction create", Cause: err}
	}
	return nil
}

// Recent returns the newest interactions first, bounded by limit.
func (ir *interactionRepo) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ChatInteraction, error) {
	if limit <= 0 {
		limit = 20
	}

	var results []*types.ChatInteraction
	if err := ir.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, &faults.PersistenceError{Op: "interaction history", Cause: err}
	}
	return results, nil
}
