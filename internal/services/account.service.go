package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/farewatch/fare-gateway/internal/model"
	"github.com/farewatch/fare-gateway/internal/repository"
	"github.com/farewatch/fare-gateway/pkg/prom"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidAmount   = errors.New("invalid deposit amount")
	ErrAmountTooLarge  = errors.New("deposit amount exceeds the allowed maximum")
)

type AccountService struct {
	accountRepo      AccountRepository
	transferRepo     TransferRepository
	depositMaxAmount int64
}

func NewAccountService(accountRepo AccountRepository, transferRepo TransferRepository, depositMaxAmount int64) *AccountService {
	return &AccountService{
		accountRepo:      accountRepo,
		transferRepo:     transferRepo,
		depositMaxAmount: depositMaxAmount,
	}
}

// Deposit credits the account and records the ledger entry in the same
// transaction, keeping the balance equal to the transfer sum at all times.
// The employee who keyed the deposit is recorded on the entry.
func (s *AccountService) Deposit(ctx context.Context, req model.DepositRequest) (*model.AccountTransfer, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if s.depositMaxAmount > 0 && req.Amount > s.depositMaxAmount {
		return nil, ErrAmountTooLarge
	}

	transfer := &model.AccountTransfer{
		AccountID:  req.AccountID,
		Amount:     req.Amount,
		EmployeeID: &req.EmployeeID,
	}
	err := s.accountRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.accountRepo.Deposit(ctx, req.AccountID, req.Amount); err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("deposit: %w", err)
		}
		if err := s.transferRepo.Create(ctx, transfer); err != nil {
			return fmt.Errorf("record deposit transfer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	prom.IncCounter(prom.SystemLedger, prom.MetricDepositsApplied)
	return transfer, nil
}

func (s *AccountService) GetCredits(ctx context.Context, accountID int64) (uint, error) {
	credits, err := s.accountRepo.GetCredits(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return credits, nil
}

func (s *AccountService) CreditHistory(ctx context.Context, f model.TransferFilter) ([]*model.CreditHistoryEntry, int64, error) {
	return s.transferRepo.History(ctx, f)
}
