package repository

import (
	"context"
	"errors"
	"time"

	"github.com/farewatch/fare-gateway/internal/model"
	"github.com/farewatch/fare-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrTransferNotFound = errors.New("transfer not found")
	// ErrAlreadyTaxed is returned when a subscription already has its
	// initial tax linked. The unique user_subscription_id constraint raises
	// it on the losing side of a concurrent subscribe.
	ErrAlreadyTaxed = errors.New("subscription already taxed")
)

type TransferRepository struct {
	*pg.DB
}

func NewTransferRepository(db *pg.DB) *TransferRepository {
	return &TransferRepository{
		db,
	}
}

func (r *TransferRepository) Create(ctx context.Context, transfer *model.AccountTransfer) error {
	entity := toTransferEntity(transfer)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return err
	}
	transfer.ID = entity.ID
	transfer.TransferredAt = entity.TransferredAt
	return nil
}

// Link ties a transfer to the user subscription it taxed. At most one link
// may ever exist per subscription; a second insert reports ErrAlreadyTaxed
// so the caller can roll its debit back.
func (r *TransferRepository) Link(ctx context.Context, userSubscriptionID, transferID int64) error {
	entity := &UserSubscriptionTransferEntity{
		UserSubscriptionID: userSubscriptionID,
		TransferID:         transferID,
	}
	err := r.Write(ctx).WithContext(ctx).Create(entity).Error
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyTaxed
		}
		return err
	}
	return nil
}

func (r *TransferRepository) IsTaxed(ctx context.Context, userSubscriptionID int64) (bool, error) {
	var entity UserSubscriptionTransferEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("user_subscription_id = ?", userSubscriptionID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type creditHistoryRow struct {
	TransferID    int64      `gorm:"column:transfer_id"`
	Amount        int64      `gorm:"column:amount"`
	TransferredAt time.Time  `gorm:"column:transferred_at"`
	SubID         *int64     `gorm:"column:sub_id"`
	SubActive     *bool      `gorm:"column:sub_active"`
	SubDateFrom   *time.Time `gorm:"column:sub_date_from"`
	SubDateTo     *time.Time `gorm:"column:sub_date_to"`
	FlyFrom       *int64     `gorm:"column:fly_from"`
	FlyTo         *int64     `gorm:"column:fly_to"`
}

// History lists an account's ledger entries newest first. Tax entries carry
// the subscription's route and date range as they stand now, which is what
// support needs when a customer disputes a charge.
func (r *TransferRepository) History(ctx context.Context, f model.TransferFilter) ([]*model.CreditHistoryEntry, int64, error) {
	query := r.buildHistoryQuery(ctx).Where("t.account_id = ?", f.AccountID)

	if f.Kind != nil {
		switch *f.Kind {
		case model.TransferKindTax:
			query = query.Where("t.amount < 0")
		case model.TransferKindDeposit:
			query = query.Where("t.amount > 0")
		}
	}
	if f.From != nil {
		query = query.Where("t.transferred_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("t.transferred_at < ?", *f.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var rows []*creditHistoryRow
	err := query.
		Order("t.transferred_at DESC, t.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}

	entries := make([]*model.CreditHistoryEntry, len(rows))
	for i, row := range rows {
		entry := &model.CreditHistoryEntry{
			TransferID:         row.TransferID,
			Amount:             row.Amount,
			TransferredAt:      row.TransferredAt,
			SubscriptionID:     row.SubID,
			SubscriptionActive: row.SubActive,
			DateFrom:           row.SubDateFrom,
			DateTo:             row.SubDateTo,
			FlyFrom:            row.FlyFrom,
			FlyTo:              row.FlyTo,
		}
		if row.Amount < 0 {
			entry.Reason = string(model.TransferKindTax)
		} else {
			entry.Reason = string(model.TransferKindDeposit)
		}
		entries[i] = entry
	}
	return entries, total, nil
}

func (r *TransferRepository) buildHistoryQuery(ctx context.Context) *gorm.DB {
	return r.Read(ctx).WithContext(ctx).
		Table("account_transfers AS t").
		Select(`
            t.id              AS transfer_id,
            t.amount          AS amount,
            t.transferred_at  AS transferred_at,
            us.id             AS sub_id,
            us.active         AS sub_active,
            us.date_from      AS sub_date_from,
            us.date_to        AS sub_date_to,
            gs.airport_from_id AS fly_from,
            gs.airport_to_id   AS fly_to
        `).
		Joins("LEFT JOIN user_subscription_transfers AS st ON st.transfer_id = t.id").
		Joins("LEFT JOIN user_subscriptions AS us ON us.id = st.user_subscription_id").
		Joins("LEFT JOIN global_subscriptions AS gs ON gs.id = us.global_subscription_id")
}

// SumAmounts returns the signed sum of every transfer of the account. By
// construction it always equals the balance delta since the account was
// opened.
func (r *TransferRepository) SumAmounts(ctx context.Context, accountID int64) (int64, error) {
	var sum *int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&AccountTransferEntity{}).
		Select("SUM(amount)").
		Where("account_id = ?", accountID).
		Scan(&sum).
		Error
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}
