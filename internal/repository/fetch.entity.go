package repository

import (
	"time"

	"github.com/farewatch/fare-gateway/internal/model"
)

// FetchEntity marks one ingested collection run. PayloadID is unique so a
// redelivered queue message cannot create a second run.
type FetchEntity struct {
	ID                   int64     `db:"id"                     gorm:"primaryKey;autoIncrement;column:id"`
	PayloadID            string    `db:"payload_id"             gorm:"column:payload_id;not null;unique"`
	GlobalSubscriptionID int64     `db:"global_subscription_id" gorm:"column:global_subscription_id;not null;index"`
	FetchTime            time.Time `db:"fetch_time"             gorm:"column:fetch_time;not null"`
}

func (FetchEntity) TableName() string {
	return "fetches"
}

type RouteEntity struct {
	ID           int64  `db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	FetchID      int64  `db:"fetch_id"      gorm:"column:fetch_id;not null;index"`
	BookingToken string `db:"booking_token" gorm:"column:booking_token;not null"`
	Price        int64  `db:"price"         gorm:"column:price;not null"`
}

func (RouteEntity) TableName() string {
	return "routes"
}

type FlightEntity struct {
	ID            int64     `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	RouteID       int64     `db:"route_id"        gorm:"column:route_id;not null;index"`
	AirportFromID int64     `db:"airport_from_id" gorm:"column:airport_from_id;not null"`
	AirportToID   int64     `db:"airport_to_id"   gorm:"column:airport_to_id;not null"`
	Airline       string    `db:"airline"         gorm:"column:airline;not null"`
	FlightNumber  string    `db:"flight_number"   gorm:"column:flight_number;not null"`
	Dtime         time.Time `db:"dtime"           gorm:"column:dtime;not null"`
	Atime         time.Time `db:"atime"           gorm:"column:atime;not null"`
}

func (FlightEntity) TableName() string {
	return "flights"
}

func toFetchEntity(m *model.Fetch) *FetchEntity {
	if m == nil {
		return nil
	}
	return &FetchEntity{
		ID:                   m.ID,
		PayloadID:            m.PayloadID,
		GlobalSubscriptionID: m.GlobalSubscriptionID,
		FetchTime:            m.FetchTime,
	}
}

func toFetchModel(e *FetchEntity) *model.Fetch {
	if e == nil {
		return nil
	}
	return &model.Fetch{
		ID:                   e.ID,
		PayloadID:            e.PayloadID,
		GlobalSubscriptionID: e.GlobalSubscriptionID,
		FetchTime:            e.FetchTime,
	}
}
