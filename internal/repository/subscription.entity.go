package repository

import (
	"time"

	"github.com/farewatch/fare-gateway/internal/model"
)

// GlobalSubscriptionEntity rows are shared across accounts. The composite
// unique index guarantees a single row per directed route no matter how
// many subscribers race to create it.
type GlobalSubscriptionEntity struct {
	ID            int64     `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	AirportFromID int64     `db:"airport_from_id" gorm:"column:airport_from_id;not null;uniqueIndex:ux_global_subscriptions_route"`
	AirportToID   int64     `db:"airport_to_id"   gorm:"column:airport_to_id;not null;uniqueIndex:ux_global_subscriptions_route"`
	CreatedAt     time.Time `db:"created_at"      gorm:"column:created_at;autoCreateTime"`
}

func (GlobalSubscriptionEntity) TableName() string {
	return "global_subscriptions"
}

// UserSubscriptionEntity is unique per (account, global subscription, date
// range); deactivated rows keep their slot so a re-subscribe reactivates
// instead of inserting.
type UserSubscriptionEntity struct {
	ID                   int64     `db:"id"                     gorm:"primaryKey;autoIncrement;column:id"`
	AccountID            int64     `db:"account_id"             gorm:"column:account_id;not null;uniqueIndex:ux_user_subscriptions_key"`
	GlobalSubscriptionID int64     `db:"global_subscription_id" gorm:"column:global_subscription_id;not null;uniqueIndex:ux_user_subscriptions_key"`
	DateFrom             time.Time `db:"date_from"              gorm:"column:date_from;not null;uniqueIndex:ux_user_subscriptions_key"`
	DateTo               time.Time `db:"date_to"                gorm:"column:date_to;not null;uniqueIndex:ux_user_subscriptions_key"`
	Plan                 string    `db:"plan"                   gorm:"column:plan;not null"`
	Active               bool      `db:"active"                 gorm:"column:active;not null;default:true"`
	CreatedAt            time.Time `db:"created_at"             gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time `db:"updated_at"             gorm:"column:updated_at;autoUpdateTime"`
}

func (UserSubscriptionEntity) TableName() string {
	return "user_subscriptions"
}

func toGlobalSubscriptionModel(e *GlobalSubscriptionEntity) *model.GlobalSubscription {
	if e == nil {
		return nil
	}
	return &model.GlobalSubscription{
		ID:            e.ID,
		AirportFromID: e.AirportFromID,
		AirportToID:   e.AirportToID,
		CreatedAt:     e.CreatedAt,
	}
}

func toUserSubscriptionEntity(m *model.UserSubscription) *UserSubscriptionEntity {
	if m == nil {
		return nil
	}
	return &UserSubscriptionEntity{
		ID:                   m.ID,
		AccountID:            m.AccountID,
		GlobalSubscriptionID: m.GlobalSubscriptionID,
		DateFrom:             m.DateFrom,
		DateTo:               m.DateTo,
		Plan:                 string(m.Plan),
		Active:               m.Active,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

func toUserSubscriptionModel(e *UserSubscriptionEntity) *model.UserSubscription {
	if e == nil {
		return nil
	}
	return &model.UserSubscription{
		ID:                   e.ID,
		AccountID:            e.AccountID,
		GlobalSubscriptionID: e.GlobalSubscriptionID,
		DateFrom:             e.DateFrom,
		DateTo:               e.DateTo,
		Plan:                 model.Plan(e.Plan),
		Active:               e.Active,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}
