package services

import (
	"reflect"
	"testing"

	"github.com/farewatch/fare-gateway/pkg/pg"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/farewatch/fare-gateway/internal/repository"
)

// setupServiceDB wires the real repositories over an in-memory database so
// the coordination paths (transactions, constraint conflicts) behave as
// they do in production.
func setupServiceDB(t *testing.T) *pg.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&repository.AccountEntity{},
		&repository.AccountTransferEntity{},
		&repository.UserSubscriptionTransferEntity{},
		&repository.AirportEntity{},
		&repository.GlobalSubscriptionEntity{},
		&repository.UserSubscriptionEntity{},
		&repository.FetchEntity{},
		&repository.RouteEntity{},
		&repository.FlightEntity{},
	)
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB
}

type serviceEnv struct {
	db           *pg.DB
	accounts     *repository.AccountRepository
	transfers    *repository.TransferRepository
	globalSubs   *repository.GlobalSubscriptionRepository
	userSubs     *repository.UserSubscriptionRepository
	airports     *repository.AirportRepository
	fetches      *repository.FetchRepository
	routes       *repository.RouteRepository
	subscription *SubscriptionService
	account      *AccountService
	search       *SearchService
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()

	db := setupServiceDB(t)
	env := &serviceEnv{
		db:         db,
		accounts:   repository.NewAccountRepository(db),
		transfers:  repository.NewTransferRepository(db),
		globalSubs: repository.NewGlobalSubscriptionRepository(db),
		userSubs:   repository.NewUserSubscriptionRepository(db),
		airports:   repository.NewAirportRepository(db),
		fetches:    repository.NewFetchRepository(db),
		routes:     repository.NewRouteRepository(db),
	}
	env.subscription = NewSubscriptionService(env.accounts, env.transfers, env.globalSubs, env.userSubs, env.airports, nil)
	env.account = NewAccountService(env.accounts, env.transfers, 1000000)
	env.search = NewSearchService(env.globalSubs, env.fetches, env.routes, env.airports, nil)
	return env
}
