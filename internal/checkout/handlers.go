package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cedarpos/backend/internal/common"
	"github.com/cedarpos/backend/internal/money"
	"github.com/cedarpos/backend/internal/payment"
	"github.com/cedarpos/backend/internal/sale"
)

// Handler exposes POST /api/v1/checkout.
type Handler struct {
	Svc *Service
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	merchantID, ok := common.MerchantID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "merchant not authenticated", nil)
		return
	}
	var payload Input
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	out, err := h.Svc.Checkout(r.Context(), merchantID, payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var insufficient *sale.InsufficientStockError
	if errors.As(err, &insufficient) {
		common.JSONError(w, http.StatusConflict, "INSUFFICIENT_STOCK", "insufficient stock", map[string]any{
			"productId": insufficient.ProductID.String(),
			"requested": insufficient.Requested,
			"available": insufficient.Available,
		})
		return
	}
	var incomplete *payment.IncompletePaymentError
	if errors.As(err, &incomplete) {
		common.JSONError(w, http.StatusUnprocessableEntity, "INCOMPLETE_PAYMENT", "payment does not cover the total", map[string]any{
			"remainingUsd": incomplete.RemainingUSD,
		})
		return
	}
	switch {
	case errors.Is(err, sale.ErrEmptySale):
		common.JSONError(w, http.StatusBadRequest, "EMPTY_SALE", "sale has no line items", nil)
		return
	case errors.Is(err, money.ErrInvalidRate):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_RATE", "exchange rate is not usable", nil)
		return
	case errors.Is(err, sale.ErrConflict):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "sale commit conflicted, retry the request", nil)
		return
	}
	common.WriteError(w, err)
}
