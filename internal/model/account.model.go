package model

import "time"

// Account balances are kept in the smallest currency unit and never go
// negative; every mutation goes through an account transfer.
type Account struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	APIKey    string    `json:"-"`
	Credits   uint      `json:"credits"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type DepositRequest struct {
	AccountID  int64
	Amount     int64
	EmployeeID int64
}
