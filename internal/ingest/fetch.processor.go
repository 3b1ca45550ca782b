package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/farewatch/fare-gateway/internal/model"
	"github.com/farewatch/fare-gateway/internal/queue"
	"github.com/farewatch/fare-gateway/internal/repository"
	"github.com/farewatch/fare-gateway/pkg/logger"
	"github.com/farewatch/fare-gateway/pkg/prom"
	"github.com/google/uuid"
)

const (
	resultOK        = "ok"
	resultDuplicate = "duplicate"
	resultInvalid   = "invalid"
)

type FetchRepository interface {
	Create(ctx context.Context, fetch *model.Fetch) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type RouteRepository interface {
	CreateBatch(ctx context.Context, fetchID int64, routes []*model.RoutePayload) error
}

type GlobalSubscriptionRepository interface {
	Get(ctx context.Context, id int64) (*model.GlobalSubscription, error)
}

// FetchProcessor writes fetched route data into the store. The whole
// payload lands in one transaction keyed by its unique payload id, so a
// queue redelivery is detected on insert and dropped instead of doubling
// the data.
type FetchProcessor struct {
	fetchRepo     FetchRepository
	routeRepo     RouteRepository
	globalSubRepo GlobalSubscriptionRepository
}

func NewFetchProcessor(fetchRepo FetchRepository, routeRepo RouteRepository, globalSubRepo GlobalSubscriptionRepository) *FetchProcessor {
	return &FetchProcessor{
		fetchRepo:     fetchRepo,
		routeRepo:     routeRepo,
		globalSubRepo: globalSubRepo,
	}
}

func (p *FetchProcessor) GetType() string {
	return "fetch-results"
}

func (p *FetchProcessor) Process(ctx context.Context, queueMessage *queue.Message) error {
	started := time.Now()

	var payload model.FetchPayload
	if err := json.Unmarshal(queueMessage.Data, &payload); err != nil {
		logger.Error("failed to unmarshal fetch payload", "message_id", queueMessage.ID, "error", err.Error())
		prom.IncCounterVec(prom.SystemIngest, prom.MetricFetchesIngested, resultInvalid)
		return err
	}

	if err := p.validate(ctx, &payload); err != nil {
		// A payload that cannot ever become valid is dropped, not retried.
		logger.Warn("dropping invalid fetch payload",
			"message_id", queueMessage.ID,
			"payload_id", payload.PayloadID,
			"error", err.Error())
		prom.IncCounterVec(prom.SystemIngest, prom.MetricFetchesIngested, resultInvalid)
		return nil
	}

	fetch := &model.Fetch{
		PayloadID:            payload.PayloadID,
		GlobalSubscriptionID: payload.GlobalSubscriptionID,
		FetchTime:            payload.FetchTime,
	}
	err := p.fetchRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := p.fetchRepo.Create(ctx, fetch); err != nil {
			return err
		}
		return p.routeRepo.CreateBatch(ctx, fetch.ID, payload.Routes)
	})
	if err != nil {
		if errors.Is(err, repository.ErrFetchExists) {
			logger.Info("fetch payload already ingested, skipping", "payload_id", payload.PayloadID)
			prom.IncCounterVec(prom.SystemIngest, prom.MetricFetchesIngested, resultDuplicate)
			return nil
		}
		logger.Error("failed to ingest fetch payload",
			"payload_id", payload.PayloadID,
			"global_subscription_id", payload.GlobalSubscriptionID,
			"error", err.Error())
		return err
	}

	prom.IncCounterVec(prom.SystemIngest, prom.MetricFetchesIngested, resultOK)
	prom.AddCounter(prom.SystemIngest, prom.MetricRoutesIngested, float64(len(payload.Routes)))
	prom.AddHistogram(prom.SystemIngest, prom.MetricIngestDuration, time.Since(started).Seconds())

	logger.Info("ingested fetch payload",
		"payload_id", payload.PayloadID,
		"global_subscription_id", payload.GlobalSubscriptionID,
		"routes", len(payload.Routes))
	return nil
}

func (p *FetchProcessor) validate(ctx context.Context, payload *model.FetchPayload) error {
	if _, err := uuid.Parse(payload.PayloadID); err != nil {
		return fmt.Errorf("bad payload id: %w", err)
	}
	if payload.FetchTime.IsZero() {
		return errors.New("missing fetch time")
	}
	if _, err := p.globalSubRepo.Get(ctx, payload.GlobalSubscriptionID); err != nil {
		return fmt.Errorf("unknown global subscription %d: %w", payload.GlobalSubscriptionID, err)
	}
	for _, route := range payload.Routes {
		if route.BookingToken == "" {
			return errors.New("route without booking token")
		}
		if route.Price < 0 {
			return errors.New("route with negative price")
		}
		if len(route.Flights) == 0 {
			return errors.New("route without flights")
		}
	}
	return nil
}
