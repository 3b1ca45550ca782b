package handlers

import (
	"context"

	xhttp "github.com/farewatch/fare-gateway/pkg/http"
	"github.com/fasthttp/router"
)

type HealthService interface {
	Check(ctx context.Context) error
}

type HealthHandler struct {
	svc HealthService
}

func RegisterHealthRoutes(e *router.Group, h *HealthHandler) {
	e.GET("/health", h.GetHealth)
}

func NewHealthHandler(svc HealthService) *HealthHandler {
	return &HealthHandler{
		svc: svc,
	}
}

func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	if err := h.svc.Check(ctx); err != nil {
		ctx.Response.SetStatusCode(xhttp.StatusInternalServerError)
		ctx.Response.SetBodyString("unhealthy: " + err.Error())
		return
	}
	ctx.Response.SetBodyString("success")
}
