// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"

	"riverfeed/internal/cache"
	"riverfeed/internal/models"

	"gorm.io/gorm"
)

// AccountRepository defines the interface for account data operations.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uint) (*models.Account, error)
	GetByUID(ctx context.Context, uid string) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	GetManyByID(ctx context.Context, ids []uint) ([]*models.Account, error)
	Update(ctx context.Context, account *models.Account) error
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *accountRepository) GetByID(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	err := cache.Aside(ctx, cache.AccountKey(id), &account, cache.AccountTTL, func() error {
		return r.db.WithContext(ctx).First(&account, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Can not find account")
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) GetByUID(ctx context.Context, uid string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Can not find account")
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Can not find account")
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) GetManyByID(ctx context.Context, ids []uint) ([]*models.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var accounts []*models.Account
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&accounts).Error
	return accounts, err
}

func (r *accountRepository) Update(ctx context.Context, account *models.Account) error {
	if err := r.db.WithContext(ctx).Save(account).Error; err != nil {
		return err
	}
	cache.InvalidateAccount(ctx, account.ID)
	return nil
}
