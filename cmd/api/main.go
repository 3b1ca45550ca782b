package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/farewatch/fare-gateway/internal/config"
	"github.com/farewatch/fare-gateway/internal/handlers"
	"github.com/farewatch/fare-gateway/internal/queue"
	"github.com/farewatch/fare-gateway/internal/repository"
	"github.com/farewatch/fare-gateway/internal/services"
	xhttp "github.com/farewatch/fare-gateway/pkg/http"
	"github.com/farewatch/fare-gateway/pkg/logger"
	"github.com/farewatch/fare-gateway/pkg/pg"
	"github.com/farewatch/fare-gateway/pkg/prom"
	"github.com/farewatch/fare-gateway/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	// Interest events tell the fetcher which routes are worth polling.
	// Both subscribe and search publish here.
	interestQ, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:              config.Get().InterestQueueName,
		ConsumerGroup:     config.Get().QueueConsumerGroup,
		ConsumerName:      config.Get().QueueConsumerName,
		MaxRetries:        config.Get().QueueMaxRetries,
		VisibilityTimeout: config.Get().QueueVisibilityTimeout,
		PollInterval:      config.Get().QueuePollInterval,
		BatchSize:         config.Get().QueueBatchSize,
		MaxLen:            config.Get().QueueMaxLen,
		EnableDLQ:         config.Get().QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating interest queue", "error", err)
	}

	accountRepo := repository.NewAccountRepository(db)
	transferRepo := repository.NewTransferRepository(db)
	globalSubRepo := repository.NewGlobalSubscriptionRepository(db)
	userSubRepo := repository.NewUserSubscriptionRepository(db)
	airportRepo := repository.NewAirportRepository(db)
	fetchRepo := repository.NewFetchRepository(db)
	routeRepo := repository.NewRouteRepository(db)

	// services
	subscriptionService := services.NewSubscriptionService(accountRepo, transferRepo, globalSubRepo, userSubRepo, airportRepo, interestQ)
	accountService := services.NewAccountService(accountRepo, transferRepo, config.Get().DepositMaxAmount)
	searchService := services.NewSearchService(globalSubRepo, fetchRepo, routeRepo, airportRepo, interestQ)
	healthService := services.NewHealthService(db, redisAdap)

	// v1 handlers
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService)
	accountHandler := handlers.NewAccountHandler(accountService)
	searchHandler := handlers.NewSearchHandler(searchService)
	healthHandler := handlers.NewHealthHandler(healthService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterSubscriptionRoutes(g, subscriptionHandler)
	handlers.RegisterAccountRoutes(g, accountHandler)
	handlers.RegisterSearchRoutes(g, searchHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	if config.Get().AppDebugMetricsAddr != "" {
		go func() {
			prom.ListenAndServe(config.Get().AppDebugMetricsAddr, config.Get().AppDebugMetricsURI)
		}()
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
