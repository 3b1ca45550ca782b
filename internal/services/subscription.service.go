package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/farewatch/fare-gateway/internal/model"
	"github.com/farewatch/fare-gateway/internal/queue"
	"github.com/farewatch/fare-gateway/internal/repository"
	"github.com/farewatch/fare-gateway/pkg/logger"
	"github.com/farewatch/fare-gateway/pkg/prom"
)

var (
	ErrInvalidPlan          = errors.New("unknown subscription plan")
	ErrUnknownAirport       = errors.New("unknown airport")
	ErrBadDateRange         = errors.New("invalid date range")
	ErrEarlyDateFrom        = errors.New("date_from is not in the future")
	ErrBadParameter         = errors.New("invalid parameter")
	ErrNotEnoughCredits     = errors.New("not enough credits")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrSubscriptionExists   = errors.New("subscription already exists")
	ErrAlreadyInactive      = errors.New("subscription is already inactive")
	ErrDenied               = errors.New("access denied")
)

// errAlreadyTaxed aborts the subscribe transaction when another call linked
// the initial tax first. It never leaves the service; the caller re-reads
// the winner's row and reports success.
var errAlreadyTaxed = errors.New("initial tax already linked")

type AccountRepository interface {
	Get(ctx context.Context, accountID int64) (*model.Account, error)
	Tax(ctx context.Context, accountID int64, amount int64) error
	Deposit(ctx context.Context, accountID int64, amount int64) error
	GetCredits(ctx context.Context, accountID int64) (uint, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type TransferRepository interface {
	Create(ctx context.Context, transfer *model.AccountTransfer) error
	Link(ctx context.Context, userSubscriptionID, transferID int64) error
	IsTaxed(ctx context.Context, userSubscriptionID int64) (bool, error)
	History(ctx context.Context, f model.TransferFilter) ([]*model.CreditHistoryEntry, int64, error)
}

type GlobalSubscriptionRepository interface {
	Get(ctx context.Context, id int64) (*model.GlobalSubscription, error)
	GetByRoute(ctx context.Context, fromID, toID int64) (*model.GlobalSubscription, error)
	ResolveOrCreate(ctx context.Context, fromID, toID int64) (*model.GlobalSubscription, bool, error)
}

type UserSubscriptionRepository interface {
	Get(ctx context.Context, id int64) (*model.UserSubscription, error)
	FindByKey(ctx context.Context, accountID, globalSubscriptionID int64, dateFrom, dateTo time.Time) (*model.UserSubscription, error)
	Create(ctx context.Context, sub *model.UserSubscription) error
	Reactivate(ctx context.Context, id int64, plan model.Plan) error
	Update(ctx context.Context, sub *model.UserSubscription) error
	Deactivate(ctx context.Context, id int64) (bool, error)
	DeactivateAll(ctx context.Context, accountID int64) (int64, error)
	ListActive(ctx context.Context, f model.SubscriptionFilter) ([]*model.SubscriptionSummary, int64, error)
}

type AirportRepository interface {
	Exists(ctx context.Context, airportID int64) (bool, error)
	List(ctx context.Context) ([]*model.Airport, error)
}

type SubscriptionService struct {
	accountRepo   AccountRepository
	transferRepo  TransferRepository
	globalSubRepo GlobalSubscriptionRepository
	userSubRepo   UserSubscriptionRepository
	airportRepo   AirportRepository
	interestQueue *queue.Queue
}

func NewSubscriptionService(
	accountRepo AccountRepository,
	transferRepo TransferRepository,
	globalSubRepo GlobalSubscriptionRepository,
	userSubRepo UserSubscriptionRepository,
	airportRepo AirportRepository,
	interestQueue *queue.Queue,
) *SubscriptionService {
	return &SubscriptionService{
		accountRepo:   accountRepo,
		transferRepo:  transferRepo,
		globalSubRepo: globalSubRepo,
		userSubRepo:   userSubRepo,
		airportRepo:   airportRepo,
		interestQueue: interestQueue,
	}
}

// Subscribe creates or reactivates the account's subscription for the
// route and date range. The initial tax is charged exactly once per
// subscription row: a fresh row is taxed, a reactivation is not, and the
// loser of a concurrent race has its debit rolled back and adopts the
// winner's row. Calling Subscribe on an identical active subscription is a
// no-op success.
func (s *SubscriptionService) Subscribe(ctx context.Context, req model.SubscribeRequest) (*model.UserSubscription, error) {
	if err := s.validateRouteAndDates(ctx, req.FlyFrom, req.FlyTo, req.DateFrom, req.DateTo); err != nil {
		return nil, err
	}
	// A watch on dates already behind us would tax the account for nothing.
	if !req.DateFrom.After(time.Now()) {
		return nil, ErrEarlyDateFrom
	}
	if !req.Plan.Valid() {
		return nil, ErrInvalidPlan
	}

	var (
		result     *model.UserSubscription
		newRoute   *model.GlobalSubscription
		taxCharged bool
	)
	err := s.accountRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		gs, createdRoute, err := s.globalSubRepo.ResolveOrCreate(ctx, req.FlyFrom, req.FlyTo)
		if err != nil {
			return fmt.Errorf("resolve route: %w", err)
		}
		if createdRoute {
			newRoute = gs
		}

		sub, err := s.userSubRepo.FindByKey(ctx, req.AccountID, gs.ID, req.DateFrom, req.DateTo)
		if err != nil && !errors.Is(err, repository.ErrSubscriptionNotFound) {
			return fmt.Errorf("find subscription: %w", err)
		}

		if sub == nil {
			sub = &model.UserSubscription{
				AccountID:            req.AccountID,
				GlobalSubscriptionID: gs.ID,
				DateFrom:             req.DateFrom,
				DateTo:               req.DateTo,
				Plan:                 req.Plan,
				Active:               true,
			}
			err = s.userSubRepo.Create(ctx, sub)
			if errors.Is(err, repository.ErrSubscriptionConflict) {
				// Lost the insert race; adopt the winner's row.
				sub, err = s.userSubRepo.FindByKey(ctx, req.AccountID, gs.ID, req.DateFrom, req.DateTo)
			}
			if err != nil {
				return fmt.Errorf("create subscription: %w", err)
			}
		}

		if !sub.Active {
			if err := s.userSubRepo.Reactivate(ctx, sub.ID, req.Plan); err != nil {
				return fmt.Errorf("reactivate subscription: %w", err)
			}
			sub.Active = true
			sub.Plan = req.Plan
		}

		taxed, err := s.transferRepo.IsTaxed(ctx, sub.ID)
		if err != nil {
			return fmt.Errorf("check tax link: %w", err)
		}
		if !taxed {
			if err := s.chargeInitialTax(ctx, req.AccountID, sub.ID, req.Plan); err != nil {
				return err
			}
			taxCharged = true
		}

		result = sub
		return nil
	})

	if errors.Is(err, errAlreadyTaxed) {
		// The whole transaction rolled back, including our debit. The
		// winner committed an equivalent subscription; hand that one back.
		return s.adoptWinningSubscription(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	if newRoute != nil {
		s.announceRoute(ctx, newRoute)
	}
	if taxCharged {
		prom.IncCounterVec(prom.SystemLedger, prom.MetricTaxesApplied, string(result.Plan))
	}
	return result, nil
}

func (s *SubscriptionService) chargeInitialTax(ctx context.Context, accountID, subscriptionID int64, plan model.Plan) error {
	amount := plan.InitialTax()

	if err := s.accountRepo.Tax(ctx, accountID, amount); err != nil {
		if errors.Is(err, repository.ErrInsufficientCredits) {
			return ErrNotEnoughCredits
		}
		if errors.Is(err, repository.ErrAccountNotFound) {
			return ErrDenied
		}
		if errors.Is(err, repository.ErrInactiveAccount) {
			return ErrDenied
		}
		return fmt.Errorf("tax account: %w", err)
	}

	transfer := &model.AccountTransfer{
		AccountID: accountID,
		Amount:    -amount,
	}
	if err := s.transferRepo.Create(ctx, transfer); err != nil {
		return fmt.Errorf("record tax transfer: %w", err)
	}

	if err := s.transferRepo.Link(ctx, subscriptionID, transfer.ID); err != nil {
		if errors.Is(err, repository.ErrAlreadyTaxed) {
			return errAlreadyTaxed
		}
		return fmt.Errorf("link tax transfer: %w", err)
	}
	return nil
}

func (s *SubscriptionService) adoptWinningSubscription(ctx context.Context, req model.SubscribeRequest) (*model.UserSubscription, error) {
	gs, err := s.globalSubRepo.GetByRoute(ctx, req.FlyFrom, req.FlyTo)
	if err != nil {
		return nil, fmt.Errorf("resolve route after tax race: %w", err)
	}
	sub, err := s.userSubRepo.FindByKey(ctx, req.AccountID, gs.ID, req.DateFrom, req.DateTo)
	if err != nil {
		return nil, fmt.Errorf("read subscription after tax race: %w", err)
	}
	return sub, nil
}

// Edit moves an existing subscription to a new route, date range and plan.
// No tax is charged; the initial tax already sits on the row.
func (s *SubscriptionService) Edit(ctx context.Context, req model.EditSubscriptionRequest) (*model.UserSubscription, error) {
	if err := s.validateRouteAndDates(ctx, req.FlyFrom, req.FlyTo, req.DateFrom, req.DateTo); err != nil {
		return nil, err
	}
	if !req.Plan.Valid() {
		return nil, ErrInvalidPlan
	}

	var (
		result   *model.UserSubscription
		newRoute *model.GlobalSubscription
	)
	err := s.accountRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		sub, err := s.userSubRepo.Get(ctx, req.SubscriptionID)
		if err != nil {
			if errors.Is(err, repository.ErrSubscriptionNotFound) {
				return ErrSubscriptionNotFound
			}
			return err
		}
		if sub.AccountID != req.AccountID {
			return ErrDenied
		}

		gs, createdRoute, err := s.globalSubRepo.ResolveOrCreate(ctx, req.FlyFrom, req.FlyTo)
		if err != nil {
			return fmt.Errorf("resolve route: %w", err)
		}
		if createdRoute {
			newRoute = gs
		}

		sub.GlobalSubscriptionID = gs.ID
		sub.DateFrom = req.DateFrom
		sub.DateTo = req.DateTo
		sub.Plan = req.Plan

		err = s.userSubRepo.Update(ctx, sub)
		if errors.Is(err, repository.ErrSubscriptionConflict) {
			return ErrSubscriptionExists
		}
		if err != nil {
			return fmt.Errorf("update subscription: %w", err)
		}

		result = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	if newRoute != nil {
		s.announceRoute(ctx, newRoute)
	}
	return result, nil
}

// Unsubscribe deactivates the subscription. Unsubscribing an already
// inactive row is reported distinctly so the caller can tell the two
// outcomes apart.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, accountID, subscriptionID int64) error {
	sub, err := s.userSubRepo.Get(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return ErrSubscriptionNotFound
		}
		return err
	}
	if sub.AccountID != accountID {
		return ErrDenied
	}

	changed, err := s.userSubRepo.Deactivate(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return ErrSubscriptionNotFound
		}
		return err
	}
	if !changed {
		return ErrAlreadyInactive
	}
	return nil
}

// UnsubscribeAll deactivates every active subscription of the account and
// returns how many rows changed.
func (s *SubscriptionService) UnsubscribeAll(ctx context.Context, accountID int64) (int64, error) {
	return s.userSubRepo.DeactivateAll(ctx, accountID)
}

func (s *SubscriptionService) List(ctx context.Context, f model.SubscriptionFilter) ([]*model.SubscriptionSummary, int64, error) {
	return s.userSubRepo.ListActive(ctx, f)
}

func (s *SubscriptionService) ListAirports(ctx context.Context) ([]*model.Airport, error) {
	return s.airportRepo.List(ctx)
}

func (s *SubscriptionService) validateRouteAndDates(ctx context.Context, flyFrom, flyTo int64, dateFrom, dateTo time.Time) error {
	if flyFrom == flyTo {
		return ErrBadParameter
	}
	for _, id := range []int64{flyFrom, flyTo} {
		ok, err := s.airportRepo.Exists(ctx, id)
		if err != nil {
			return fmt.Errorf("check airport: %w", err)
		}
		if !ok {
			return ErrUnknownAirport
		}
	}
	if dateFrom.IsZero() || dateTo.IsZero() || !dateFrom.Before(dateTo) {
		return ErrBadDateRange
	}
	return nil
}

// announceRoute tells the fetcher a route is being watched for the first
// time. Best effort after commit; a lost event only delays the first
// fetch.
func (s *SubscriptionService) announceRoute(ctx context.Context, gs *model.GlobalSubscription) {
	if s.interestQueue == nil {
		return
	}
	event := &model.InterestEvent{
		GlobalSubscriptionID: gs.ID,
		AirportFromID:        gs.AirportFromID,
		AirportToID:          gs.AirportToID,
		ObservedAt:           time.Now().UTC(),
	}
	if _, err := s.interestQueue.PublishJSON(ctx, event, nil); err != nil {
		logger.Error("failed to publish route interest event",
			"global_subscription_id", gs.ID,
			"error", err.Error())
	}
}
