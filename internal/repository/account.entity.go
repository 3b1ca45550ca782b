package repository

import (
	"time"

	"github.com/farewatch/fare-gateway/internal/model"
)

type AccountEntity struct {
	ID        int64     `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	Email     string    `db:"email"      gorm:"column:email;not null;unique"`
	APIKey    string    `db:"api_key"    gorm:"column:api_key;not null;unique"`
	Credits   uint      `db:"credits"    gorm:"column:credits;not null;default:0"`
	Active    bool      `db:"active"     gorm:"column:active;not null;default:true"`
	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (AccountEntity) TableName() string {
	return "accounts"
}

func toAccountEntity(m *model.Account) *AccountEntity {
	if m == nil {
		return nil
	}
	return &AccountEntity{
		ID:        m.ID,
		Email:     m.Email,
		APIKey:    m.APIKey,
		Credits:   m.Credits,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
	}
}

func toAccountModel(e *AccountEntity) *model.Account {
	if e == nil {
		return nil
	}
	return &model.Account{
		ID:        e.ID,
		Email:     e.Email,
		APIKey:    e.APIKey,
		Credits:   e.Credits,
		Active:    e.Active,
		CreatedAt: e.CreatedAt,
	}
}
