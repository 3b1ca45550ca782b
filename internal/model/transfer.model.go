package model

import "time"

// AccountTransfer is an immutable ledger entry. Amount is signed: negative
// for a tax, positive for a deposit. EmployeeID records the actor for
// manual deposits.
type AccountTransfer struct {
	ID            int64     `json:"id"`
	AccountID     int64     `json:"account_id"`
	Amount        int64     `json:"amount"`
	EmployeeID    *int64    `json:"employee_id,omitempty"`
	TransferredAt time.Time `json:"transferred_at"`
}

type TransferKind string

const (
	TransferKindTax     TransferKind = "tax"
	TransferKindDeposit TransferKind = "deposit"
)

type TransferFilter struct {
	AccountID int64
	Kind      *TransferKind
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// CreditHistoryEntry is one ledger line joined, when the transfer taxed a
// subscription, to that subscription's route and date range as they are now.
type CreditHistoryEntry struct {
	TransferID    int64     `json:"transfer_id"`
	Amount        int64     `json:"amount"`
	Reason        string    `json:"reason"`
	TransferredAt time.Time `json:"transferred_at"`

	SubscriptionID     *int64     `json:"subscription_id,omitempty"`
	FlyFrom            *int64     `json:"fly_from,omitempty"`
	FlyTo              *int64     `json:"fly_to,omitempty"`
	DateFrom           *time.Time `json:"date_from,omitempty"`
	DateTo             *time.Time `json:"date_to,omitempty"`
	SubscriptionActive *bool      `json:"subscription_status,omitempty"`
}
