package repository

import (
	"time"

	"github.com/farewatch/fare-gateway/internal/model"
)

type AccountTransferEntity struct {
	ID            int64     `db:"id"             gorm:"primaryKey;autoIncrement;column:id"`
	AccountID     int64     `db:"account_id"     gorm:"column:account_id;not null;index"`
	Amount        int64     `db:"amount"         gorm:"column:amount;not null"`
	EmployeeID    *int64    `db:"employee_id"    gorm:"column:employee_id"`
	TransferredAt time.Time `db:"transferred_at" gorm:"column:transferred_at;autoCreateTime"`
}

func (AccountTransferEntity) TableName() string {
	return "account_transfers"
}

// UserSubscriptionTransferEntity links exactly one transfer to a user
// subscription. The unique user_subscription_id is what makes the initial
// tax a once-only event even under concurrent subscribe calls.
type UserSubscriptionTransferEntity struct {
	ID                 int64 `db:"id"                   gorm:"primaryKey;autoIncrement;column:id"`
	UserSubscriptionID int64 `db:"user_subscription_id" gorm:"column:user_subscription_id;not null;unique"`
	TransferID         int64 `db:"transfer_id"          gorm:"column:transfer_id;not null"`
}

func (UserSubscriptionTransferEntity) TableName() string {
	return "user_subscription_transfers"
}

func toTransferEntity(m *model.AccountTransfer) *AccountTransferEntity {
	if m == nil {
		return nil
	}
	return &AccountTransferEntity{
		ID:            m.ID,
		AccountID:     m.AccountID,
		Amount:        m.Amount,
		EmployeeID:    m.EmployeeID,
		TransferredAt: m.TransferredAt,
	}
}

func toTransferModel(e *AccountTransferEntity) *model.AccountTransfer {
	if e == nil {
		return nil
	}
	return &model.AccountTransfer{
		ID:            e.ID,
		AccountID:     e.AccountID,
		Amount:        e.Amount,
		EmployeeID:    e.EmployeeID,
		TransferredAt: e.TransferredAt,
	}
}
