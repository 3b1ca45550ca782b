package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/farewatch/fare-gateway/internal/model"
	xhttp "github.com/farewatch/fare-gateway/pkg/http"
	"github.com/fasthttp/router"
	"github.com/shopspring/decimal"
)

type SearchService interface {
	Search(ctx context.Context, req model.SearchRequest) (*model.SearchResult, error)
}

type SearchHandler struct {
	svc SearchService
}

func RegisterSearchRoutes(e *router.Group, h *SearchHandler) {
	e.GET("/flights", h.Search)
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{
		svc: svc,
	}
}

func (h *SearchHandler) Search(ctx *xhttp.RequestCtx) {
	var req model.SearchRequest

	flyFrom, err := strconv.ParseInt(query(ctx, "fly_from"), 10, 64)
	if err != nil {
		writeJSON(ctx, xhttp.StatusOK, statusResponse{Status: model.StatusBadParameter, Error: "invalid fly_from"})
		return
	}
	flyTo, err := strconv.ParseInt(query(ctx, "fly_to"), 10, 64)
	if err != nil {
		writeJSON(ctx, xhttp.StatusOK, statusResponse{Status: model.StatusBadParameter, Error: "invalid fly_to"})
		return
	}
	req.FlyFrom = flyFrom
	req.FlyTo = flyTo

	if v := query(ctx, "date_from"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			writeJSON(ctx, xhttp.StatusOK, statusResponse{Status: model.StatusBadDateRange, Error: "invalid date_from"})
			return
		}
		req.DateFrom = &t
	}
	if v := query(ctx, "date_to"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			writeJSON(ctx, xhttp.StatusOK, statusResponse{Status: model.StatusBadDateRange, Error: "invalid date_to"})
			return
		}
		req.DateTo = &t
	}
	if v := query(ctx, "price_to"); v != "" {
		p, err := decimal.NewFromString(v)
		if err != nil {
			writeJSON(ctx, xhttp.StatusOK, statusResponse{Status: model.StatusBadParameter, Error: "invalid price_to"})
			return
		}
		req.PriceTo = &p
	}
	if v := query(ctx, "limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(ctx, xhttp.StatusOK, statusResponse{Status: model.StatusBadParameter, Error: "invalid limit"})
			return
		}
		req.Limit = &n
	}
	if v := query(ctx, "offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(ctx, xhttp.StatusOK, statusResponse{Status: model.StatusBadParameter, Error: "invalid offset"})
			return
		}
		req.Offset = &n
	}
	if v := query(ctx, "max_fly_duration"); v != "" {
		// Hours, matching how clients think about trip length.
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(ctx, xhttp.StatusOK, statusResponse{Status: model.StatusBadParameter, Error: "invalid max_fly_duration"})
			return
		}
		d := time.Duration(n) * time.Hour
		req.MaxFlyDuration = &d
	}

	result, err := h.svc.Search(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeStatus(ctx, result.Status, result.Routes)
}
