package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/farewatch/fare-gateway/internal/model"
	"github.com/farewatch/fare-gateway/internal/services"
	xhttp "github.com/farewatch/fare-gateway/pkg/http"
	"github.com/farewatch/fare-gateway/pkg/logger"
)

// statusResponse is the envelope every endpoint answers with. Expected
// outcomes, including expected failures, travel as HTTP 200 with a
// protocol status code; HTTP error codes are reserved for malformed
// requests and faults.
type statusResponse struct {
	Status model.StatusCode `json:"status"`
	Data   interface{}      `json:"data,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeStatus(ctx *xhttp.RequestCtx, code model.StatusCode, data interface{}) {
	writeJSON(ctx, xhttp.StatusOK, statusResponse{Status: code, Data: data})
}

func writeBadRequest(ctx *xhttp.RequestCtx, msg string) {
	writeJSON(ctx, xhttp.StatusBadRequest, statusResponse{Status: model.StatusBadRequest, Error: msg})
}

// writeServiceError translates service sentinels into protocol status
// codes. Anything unmapped is a fault and answers HTTP 500.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	var code model.StatusCode
	switch {
	case errors.Is(err, services.ErrInvalidPlan):
		code = model.StatusInvalidPlan
	case errors.Is(err, services.ErrUnknownAirport):
		code = model.StatusUnknownAirport
	case errors.Is(err, services.ErrBadDateRange):
		code = model.StatusBadDateRange
	case errors.Is(err, services.ErrBadParameter),
		errors.Is(err, services.ErrEarlyDateFrom),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrAmountTooLarge):
		code = model.StatusBadParameter
	case errors.Is(err, services.ErrNotEnoughCredits):
		code = model.StatusNotEnoughCredits
	case errors.Is(err, services.ErrSubscriptionExists):
		code = model.StatusBadRequest
	case errors.Is(err, services.ErrSubscriptionNotFound):
		code = model.StatusSubscriptionNotFound
	case errors.Is(err, services.ErrAlreadyInactive):
		code = model.StatusAlreadyInactive
	case errors.Is(err, services.ErrDenied),
		errors.Is(err, services.ErrAccountNotFound):
		code = model.StatusDenied
	default:
		logger.Error("request failed", "error", err.Error())
		writeJSON(ctx, xhttp.StatusInternalServerError, statusResponse{
			Status: model.StatusBadRequest,
			Error:  "internal error",
		})
		return
	}
	writeJSON(ctx, xhttp.StatusOK, statusResponse{Status: code, Error: err.Error()})
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	v, ok := ctx.UserValue(name).(string)
	if !ok {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(v, 10, 64)
}

func parseTime(s string) (time.Time, error) {
	// Accept RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
