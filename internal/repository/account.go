package repository

import (
	"context"
	"errors"

	"sherise/internal/models"

	"gorm.io/gorm"
)

// AccountRepository defines persistence operations for login accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uint) (*models.Account, error)
	// GetByEmail returns (nil, nil) when no account uses the address.
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository returns a new AccountRepository implementation.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	account.Email = models.NormalizeEmail(account.Email)
	if account.ID == 0 {
		account.ID = uint(models.NextID())
	}
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("An account with this email already exists", nil)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Account", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &account, nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).
		Where("email = ?", models.NormalizeEmail(email)).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &account, nil
}
