package repository

import (
	"context"
	"errors"

	"github.com/farewatch/fare-gateway/internal/model"
	"github.com/farewatch/fare-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInactiveAccount     = errors.New("account is not active")
)

type AccountRepository struct {
	*pg.DB
}

func NewAccountRepository(db *pg.DB) *AccountRepository {
	return &AccountRepository{
		db,
	}
}

func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	entity := toAccountEntity(account)
	err := r.Write(ctx).WithContext(ctx).Create(entity).Error
	if err != nil {
		return err
	}
	account.ID = entity.ID
	account.CreatedAt = entity.CreatedAt
	return nil
}

func (r *AccountRepository) Get(ctx context.Context, accountID int64) (*model.Account, error) {
	var entity AccountEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", accountID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return toAccountModel(&entity), nil
}

func (r *AccountRepository) GetByAPIKey(ctx context.Context, apiKey string) (*model.Account, error) {
	var entity AccountEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("api_key = ?", apiKey).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return toAccountModel(&entity), nil
}

// Tax atomically deducts amount from the account balance. The guard in the
// WHERE clause is what keeps the balance non-negative under concurrent
// deductions; losing the race surfaces as ErrInsufficientCredits, never as
// a negative balance.
func (r *AccountRepository) Tax(ctx context.Context, accountID int64, amount int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&AccountEntity{}).
		Where("id = ? AND active = ? AND credits >= ?", accountID, true, amount).
		Update("credits", gorm.Expr("credits - ?", amount))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.checkTaxFailureReason(ctx, accountID, amount)
	}
	return nil
}

// checkTaxFailureReason determines why the guarded update matched no row.
func (r *AccountRepository) checkTaxFailureReason(ctx context.Context, accountID int64, amount int64) error {
	var entity AccountEntity
	err := r.Write(ctx).WithContext(ctx).
		Where("id = ?", accountID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	if !entity.Active {
		return ErrInactiveAccount
	}
	if int64(entity.Credits) < amount {
		return ErrInsufficientCredits
	}
	// The balance covered the amount by the time we probed, meaning a
	// concurrent deposit landed in between. The caller retries.
	return ErrInsufficientCredits
}

func (r *AccountRepository) Deposit(ctx context.Context, accountID int64, amount int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&AccountEntity{}).
		Where("id = ?", accountID).
		Update("credits", gorm.Expr("credits + ?", amount))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) GetCredits(ctx context.Context, accountID int64) (uint, error) {
	var entity AccountEntity
	err := r.Read(ctx).WithContext(ctx).
		Select("credits").
		Where("id = ?", accountID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return entity.Credits, nil
}
