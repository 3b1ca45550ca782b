package repository

import (
	"context"
	"errors"

	"github.com/farewatch/fare-gateway/internal/model"
	"github.com/farewatch/fare-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrAirportNotFound = errors.New("airport not found")
)

type AirportRepository struct {
	*pg.DB
}

func NewAirportRepository(db *pg.DB) *AirportRepository {
	return &AirportRepository{
		db,
	}
}

func (r *AirportRepository) Get(ctx context.Context, airportID int64) (*model.Airport, error) {
	var entity AirportEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", airportID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAirportNotFound
		}
		return nil, err
	}
	return toAirportModel(&entity), nil
}

func (r *AirportRepository) Exists(ctx context.Context, airportID int64) (bool, error) {
	var count int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&AirportEntity{}).
		Where("id = ?", airportID).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *AirportRepository) List(ctx context.Context) ([]*model.Airport, error) {
	var entities []*AirportEntity
	err := r.Read(ctx).WithContext(ctx).
		Order("name ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toAirportModels(entities), nil
}
