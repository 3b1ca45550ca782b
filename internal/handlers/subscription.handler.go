package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/farewatch/fare-gateway/internal/model"
	xhttp "github.com/farewatch/fare-gateway/pkg/http"
	"github.com/fasthttp/router"
)

type SubscriptionService interface {
	Subscribe(ctx context.Context, req model.SubscribeRequest) (*model.UserSubscription, error)
	Edit(ctx context.Context, req model.EditSubscriptionRequest) (*model.UserSubscription, error)
	Unsubscribe(ctx context.Context, accountID, subscriptionID int64) error
	UnsubscribeAll(ctx context.Context, accountID int64) (int64, error)
	List(ctx context.Context, f model.SubscriptionFilter) ([]*model.SubscriptionSummary, int64, error)
	ListAirports(ctx context.Context) ([]*model.Airport, error)
}

type SubscriptionHandler struct {
	svc SubscriptionService
}

func RegisterSubscriptionRoutes(e *router.Group, h *SubscriptionHandler) {
	e.POST("/subscriptions", h.Subscribe)
	e.PUT("/subscriptions/{id}", h.Edit)
	e.DELETE("/subscriptions/{id}", h.Unsubscribe)
	e.DELETE("/subscriptions", h.UnsubscribeAll)
	e.GET("/subscriptions", h.List)
	e.GET("/airports", h.ListAirports)
}

func NewSubscriptionHandler(svc SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		svc: svc,
	}
}

type subscribeRequest struct {
	AccountID int64  `json:"account_id"`
	FlyFrom   int64  `json:"fly_from"`
	FlyTo     int64  `json:"fly_to"`
	DateFrom  string `json:"date_from"`
	DateTo    string `json:"date_to"`
	Plan      string `json:"plan"`
}

type subscriptionListResponse struct {
	Items []*model.SubscriptionSummary `json:"items"`
	Total int64                        `json:"total"`
}

func (h *SubscriptionHandler) Subscribe(ctx *xhttp.RequestCtx) {
	var req subscribeRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadRequest(ctx, "invalid JSON: "+err.Error())
		return
	}

	dateFrom, dateTo, ok := parseDateRange(ctx, req.DateFrom, req.DateTo)
	if !ok {
		return
	}

	sub, err := h.svc.Subscribe(ctx, model.SubscribeRequest{
		AccountID: req.AccountID,
		FlyFrom:   req.FlyFrom,
		FlyTo:     req.FlyTo,
		DateFrom:  dateFrom,
		DateTo:    dateTo,
		Plan:      model.Plan(req.Plan),
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeStatus(ctx, model.StatusOK, sub)
}

func (h *SubscriptionHandler) Edit(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeBadRequest(ctx, "invalid subscription id")
		return
	}

	var req subscribeRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadRequest(ctx, "invalid JSON: "+err.Error())
		return
	}

	dateFrom, dateTo, ok := parseDateRange(ctx, req.DateFrom, req.DateTo)
	if !ok {
		return
	}

	sub, err := h.svc.Edit(ctx, model.EditSubscriptionRequest{
		AccountID:      req.AccountID,
		SubscriptionID: id,
		FlyFrom:        req.FlyFrom,
		FlyTo:          req.FlyTo,
		DateFrom:       dateFrom,
		DateTo:         dateTo,
		Plan:           model.Plan(req.Plan),
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeStatus(ctx, model.StatusOK, sub)
}

func (h *SubscriptionHandler) Unsubscribe(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeBadRequest(ctx, "invalid subscription id")
		return
	}
	accountID, err := strconv.ParseInt(query(ctx, "account_id"), 10, 64)
	if err != nil {
		writeBadRequest(ctx, "invalid account id")
		return
	}

	if err := h.svc.Unsubscribe(ctx, accountID, id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeStatus(ctx, model.StatusOK, nil)
}

func (h *SubscriptionHandler) UnsubscribeAll(ctx *xhttp.RequestCtx) {
	accountID, err := strconv.ParseInt(query(ctx, "account_id"), 10, 64)
	if err != nil {
		writeBadRequest(ctx, "invalid account id")
		return
	}

	n, err := h.svc.UnsubscribeAll(ctx, accountID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeStatus(ctx, model.StatusOK, map[string]int64{"deactivated": n})
}

func (h *SubscriptionHandler) List(ctx *xhttp.RequestCtx) {
	var f model.SubscriptionFilter

	accountID, err := strconv.ParseInt(query(ctx, "account_id"), 10, 64)
	if err != nil {
		writeBadRequest(ctx, "invalid account id")
		return
	}
	f.AccountID = accountID

	if v := query(ctx, "fly_from"); v != "" {
		f.FlyFrom = &v
	}
	if v := query(ctx, "fly_to"); v != "" {
		f.FlyTo = &v
	}
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Offset = n
		}
	}

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeStatus(ctx, model.StatusOK, subscriptionListResponse{Items: items, Total: total})
}

func (h *SubscriptionHandler) ListAirports(ctx *xhttp.RequestCtx) {
	airports, err := h.svc.ListAirports(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeStatus(ctx, model.StatusOK, airports)
}

// parseDateRange answers the request itself when a date is malformed.
func parseDateRange(ctx *xhttp.RequestCtx, from, to string) (time.Time, time.Time, bool) {
	dateFrom, err := parseTime(from)
	if err != nil {
		writeJSON(ctx, xhttp.StatusOK, statusResponse{Status: model.StatusBadDateRange, Error: "invalid date_from"})
		return time.Time{}, time.Time{}, false
	}
	dateTo, err := parseTime(to)
	if err != nil {
		writeJSON(ctx, xhttp.StatusOK, statusResponse{Status: model.StatusBadDateRange, Error: "invalid date_to"})
		return time.Time{}, time.Time{}, false
	}
	return dateFrom, dateTo, true
}
