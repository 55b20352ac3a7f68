package rate

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cedarpos/backend/internal/common"
	"github.com/cedarpos/backend/internal/money"
)

// Handler exposes the exchange rate endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type ratePayload struct {
	USDToLBP float64 `json:"usdToLbp"`
}

// Get handles GET /api/v1/exchange-rate.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := common.MerchantID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "merchant not authenticated", nil)
		return
	}
	rate, err := h.service.Get(r.Context(), merchantID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not load exchange rate", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rate})
}

// Set handles PUT /api/v1/exchange-rate.
func (h *Handler) Set(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := common.MerchantID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "merchant not authenticated", nil)
		return
	}
	var payload ratePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	rate, err := h.service.Set(r.Context(), merchantID, payload.USDToLBP)
	if err != nil {
		if errors.Is(err, money.ErrInvalidRate) {
			common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_RATE", "exchange rate must be positive", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not save exchange rate", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rate})
}
