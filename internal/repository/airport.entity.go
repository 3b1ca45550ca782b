package repository

import (
	"github.com/farewatch/fare-gateway/internal/model"
)

type AirportEntity struct {
	ID       int64  `db:"id"        gorm:"primaryKey;autoIncrement;column:id"`
	Name     string `db:"name"      gorm:"column:name;not null"`
	IATACode string `db:"iata_code" gorm:"column:iata_code;not null;unique"`
}

func (AirportEntity) TableName() string {
	return "airports"
}

func toAirportModel(e *AirportEntity) *model.Airport {
	if e == nil {
		return nil
	}
	return &model.Airport{
		ID:       e.ID,
		Name:     e.Name,
		IATACode: e.IATACode,
	}
}

func toAirportModels(entities []*AirportEntity) []*model.Airport {
	if entities == nil {
		return nil
	}
	models := make([]*model.Airport, len(entities))
	for i, e := range entities {
		models[i] = toAirportModel(e)
	}
	return models
}
