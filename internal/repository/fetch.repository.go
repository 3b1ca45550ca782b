package repository

import (
	"context"
	"errors"

	"github.com/farewatch/fare-gateway/internal/model"
	"github.com/farewatch/fare-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrFetchNotFound = errors.New("fetch not found")
	// ErrFetchExists is returned when the payload id was already ingested.
	ErrFetchExists = errors.New("fetch already ingested")
)

type FetchRepository struct {
	*pg.DB
}

func NewFetchRepository(db *pg.DB) *FetchRepository {
	return &FetchRepository{
		db,
	}
}

// Create inserts the fetch marker. The unique payload id turns a queue
// redelivery into ErrFetchExists instead of duplicated data.
func (r *FetchRepository) Create(ctx context.Context, fetch *model.Fetch) error {
	entity := toFetchEntity(fetch)
	err := r.Write(ctx).WithContext(ctx).Create(entity).Error
	if err != nil {
		if isUniqueViolation(err) {
			return ErrFetchExists
		}
		return err
	}
	fetch.ID = entity.ID
	return nil
}

// LatestForSubscription returns the most recent fetch for the route.
// Searches always read from a single fetch so an itinerary never mixes
// legs collected at different times.
func (r *FetchRepository) LatestForSubscription(ctx context.Context, globalSubscriptionID int64) (*model.Fetch, error) {
	var entity FetchEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("global_subscription_id = ?", globalSubscriptionID).
		Order("fetch_time DESC, id DESC").
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFetchNotFound
		}
		return nil, err
	}
	return toFetchModel(&entity), nil
}
