package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/fincoach-backend/internal/logger"
	"github.com/yungbote/fincoach-backend/internal/types"
)

type UserRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error)
	GetOrCreateBySubject(ctx context.Context, tx *gorm.DB, subject, email string) (*types.User, error)
	SaveProfileFields(ctx context.Context, tx *gorm.DB, user *types.User) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (ur *userRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	var user types.User
	if err := transaction.WithContext(ctx).
		Where("id = ?", userID).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (ur *userRepo) GetOrCreateBySubject(ctx context.Context, tx *gorm.DB, subject, email string) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	var user types.User
	err := transaction.WithContext(ctx).
		Where("subject = ?", subject).
		First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	user = types.User{
		ID:        uuid.New(),
		Subject:   subject,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := transaction.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	ur.log.Info("Created user record", "subject", subject)
	return &user, nil
}

// SaveProfileFields persists the one-time demographic fields after the
// first completed intake.
func (ur *userRepo) SaveProfileFields(ctx context.Context, tx *gorm.DB, user *types.User) error {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	return transaction.WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"age":                      user.Age,
			"gender":                   user.Gender,
			"year_in_school":           user.YearInSchool,
			"major":                    user.Major,
			"preferred_payment_method": user.PreferredPaymentMethod,
			"updated_at":               time.Now().UTC(),
		}).Error
}
