package repository

import (
	"context"
	"errors"

	"github.com/farewatch/fare-gateway/internal/model"
	"github.com/farewatch/fare-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrGlobalSubscriptionNotFound = errors.New("global subscription not found")
)

type GlobalSubscriptionRepository struct {
	*pg.DB
}

func NewGlobalSubscriptionRepository(db *pg.DB) *GlobalSubscriptionRepository {
	return &GlobalSubscriptionRepository{
		db,
	}
}

func (r *GlobalSubscriptionRepository) Get(ctx context.Context, id int64) (*model.GlobalSubscription, error) {
	var entity GlobalSubscriptionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGlobalSubscriptionNotFound
		}
		return nil, err
	}
	return toGlobalSubscriptionModel(&entity), nil
}

func (r *GlobalSubscriptionRepository) GetByRoute(ctx context.Context, fromID, toID int64) (*model.GlobalSubscription, error) {
	var entity GlobalSubscriptionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("airport_from_id = ? AND airport_to_id = ?", fromID, toID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGlobalSubscriptionNotFound
		}
		return nil, err
	}
	return toGlobalSubscriptionModel(&entity), nil
}

// ResolveOrCreate returns the shared record for the route, creating it when
// the route is observed for the first time. Concurrent creators race on the
// route's unique index; the loser re-reads the winner's row, so every
// caller ends up with the same record. The created flag is true only for
// the caller whose insert went through.
func (r *GlobalSubscriptionRepository) ResolveOrCreate(ctx context.Context, fromID, toID int64) (*model.GlobalSubscription, bool, error) {
	var entity GlobalSubscriptionEntity
	err := r.Write(ctx).WithContext(ctx).
		Where("airport_from_id = ? AND airport_to_id = ?", fromID, toID).
		First(&entity).
		Error
	if err == nil {
		return toGlobalSubscriptionModel(&entity), false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	entity = GlobalSubscriptionEntity{
		AirportFromID: fromID,
		AirportToID:   toID,
	}
	err = r.insertRoute(ctx, &entity)
	if err == nil {
		return toGlobalSubscriptionModel(&entity), true, nil
	}
	if !isUniqueViolation(err) {
		return nil, false, err
	}

	// Lost the insert race; the winner's row must be there now.
	err = r.Write(ctx).WithContext(ctx).
		Where("airport_from_id = ? AND airport_to_id = ?", fromID, toID).
		First(&entity).
		Error
	if err != nil {
		return nil, false, err
	}
	return toGlobalSubscriptionModel(&entity), false, nil
}

// insertRoute runs the insert in its own nested transaction. When the
// caller already holds one, gorm issues a savepoint, so a unique-index
// failure here rolls back only the insert and the enclosing postgres
// transaction stays usable for the re-read.
func (r *GlobalSubscriptionRepository) insertRoute(ctx context.Context, entity *GlobalSubscriptionEntity) error {
	return r.Write(ctx).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(entity).Error
	})
}
