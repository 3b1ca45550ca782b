package handlers

import (
	"context"
	"strconv"

	"github.com/farewatch/fare-gateway/internal/model"
	xhttp "github.com/farewatch/fare-gateway/pkg/http"
	"github.com/fasthttp/router"
)

type AccountService interface {
	Deposit(ctx context.Context, req model.DepositRequest) (*model.AccountTransfer, error)
	GetCredits(ctx context.Context, accountID int64) (uint, error)
	CreditHistory(ctx context.Context, f model.TransferFilter) ([]*model.CreditHistoryEntry, int64, error)
}

type AccountHandler struct {
	svc AccountService
}

func RegisterAccountRoutes(e *router.Group, h *AccountHandler) {
	e.POST("/accounts/{id}/deposits", h.Deposit)
	e.GET("/accounts/{id}/credits", h.GetCredits)
	e.GET("/accounts/{id}/credits/history", h.CreditHistory)
}

func NewAccountHandler(svc AccountService) *AccountHandler {
	return &AccountHandler{
		svc: svc,
	}
}

type depositRequest struct {
	Amount     int64 `json:"amount"`
	EmployeeID int64 `json:"employee_id"`
}

type historyResponse struct {
	Items []*model.CreditHistoryEntry `json:"items"`
	Total int64                       `json:"total"`
}

func (h *AccountHandler) Deposit(ctx *xhttp.RequestCtx) {
	accountID, err := pathInt64(ctx, "id")
	if err != nil {
		writeBadRequest(ctx, "invalid account id")
		return
	}

	var req depositRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadRequest(ctx, "invalid JSON: "+err.Error())
		return
	}

	transfer, err := h.svc.Deposit(ctx, model.DepositRequest{
		AccountID:  accountID,
		Amount:     req.Amount,
		EmployeeID: req.EmployeeID,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeStatus(ctx, model.StatusOK, transfer)
}

func (h *AccountHandler) GetCredits(ctx *xhttp.RequestCtx) {
	accountID, err := pathInt64(ctx, "id")
	if err != nil {
		writeBadRequest(ctx, "invalid account id")
		return
	}

	credits, err := h.svc.GetCredits(ctx, accountID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeStatus(ctx, model.StatusOK, map[string]uint{"credits": credits})
}

func (h *AccountHandler) CreditHistory(ctx *xhttp.RequestCtx) {
	accountID, err := pathInt64(ctx, "id")
	if err != nil {
		writeBadRequest(ctx, "invalid account id")
		return
	}

	f := model.TransferFilter{AccountID: accountID}
	if v := query(ctx, "kind"); v != "" {
		kind := model.TransferKind(v)
		if kind != model.TransferKindTax && kind != model.TransferKindDeposit {
			writeJSON(ctx, xhttp.StatusOK, statusResponse{Status: model.StatusBadParameter, Error: "unknown kind"})
			return
		}
		f.Kind = &kind
	}
	if v := query(ctx, "from"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.From = &t
		}
	}
	if v := query(ctx, "to"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.To = &t
		}
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

	items, total, err := h.svc.CreditHistory(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeStatus(ctx, model.StatusOK, historyResponse{Items: items, Total: total})
}
