// Package checkout turns a client payload into a committed sale. The cart is
// rebuilt server-side from catalog reads, so client-supplied prices or totals
// never reach the commit path.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cedarpos/backend/internal/cart"
	"github.com/cedarpos/backend/internal/common"
	"github.com/cedarpos/backend/internal/money"
	"github.com/cedarpos/backend/internal/obs"
	"github.com/cedarpos/backend/internal/payment"
	"github.com/cedarpos/backend/internal/sale"
)

// CatalogSource resolves product ids into priceables for the cart.
type CatalogSource interface {
	Priceables(ctx context.Context, merchantID uuid.UUID, ids []uuid.UUID) ([]cart.Priceable, error)
}

// RateSource supplies the merchant's current exchange rate.
type RateSource interface {
	Get(ctx context.Context, merchantID uuid.UUID) (money.ExchangeRate, error)
}

// LowStockEnqueuer hands low-stock advisories to the background queue.
type LowStockEnqueuer interface {
	EnqueueLowStock(ctx context.Context, alert sale.LowStockAlert) error
}

// LineInput is one requested line. Either ProductID is set, or Name and
// UnitPriceUSD describe a manual entry.
type LineInput struct {
	ProductID    *uuid.UUID `json:"productId"`
	Name         string     `json:"name"`
	UnitPriceUSD *float64   `json:"unitPriceUsd"`
	Quantity     int        `json:"quantity" validate:"required,gt=0"`
}

// PaymentInput mirrors payment.Breakdown on the wire.
type PaymentInput struct {
	Method  string  `json:"method" validate:"required"`
	CashUSD float64 `json:"cashUsd" validate:"gte=0"`
	CashLBP float64 `json:"cashLbp" validate:"gte=0"`
	CardUSD float64 `json:"cardUsd" validate:"gte=0"`
}

// Input is the checkout request payload.
type Input struct {
	Lines   []LineInput  `json:"lines" validate:"required,min=1,dive"`
	Payment PaymentInput `json:"payment" validate:"required"`
}

// Output is the response payload for a committed sale.
type Output struct {
	Sale   *sale.Sale  `json:"sale"`
	Totals cart.Totals `json:"totals"`
}

// Service wires the checkout workflow together.
type Service struct {
	Catalog CatalogSource
	Rates   RateSource
	Sales   *sale.Service
	Alerts  LowStockEnqueuer
	Logger  *zerolog.Logger
	// Retries bounds commit attempts when the store reports a conflict.
	Retries int
	Now     func() time.Time

	validate *validator.Validate
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) validator() *validator.Validate {
	if s.validate == nil {
		s.validate = validator.New()
	}
	return s.validate
}

// Checkout rebuilds the cart from the catalog, reconciles payment at the
// merchant's current rate, and commits the sale. Conflicted commits are
// retried whole; any abort leaves nothing persisted.
func (s *Service) Checkout(ctx context.Context, merchantID uuid.UUID, in Input) (Output, error) {
	if s == nil || s.Catalog == nil || s.Rates == nil || s.Sales == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	if err := s.validator().Struct(in); err != nil {
		return Output{}, &common.AppError{Code: "BAD_REQUEST", Message: "invalid checkout payload", HTTPStatus: http.StatusBadRequest, Err: err}
	}
	method, err := payment.ParseMethod(in.Payment.Method)
	if err != nil {
		return Output{}, &common.AppError{Code: "BAD_REQUEST", Message: err.Error(), HTTPStatus: http.StatusBadRequest, Err: err}
	}
	breakdown := payment.Breakdown{
		Method:  method,
		CashUSD: in.Payment.CashUSD,
		CashLBP: in.Payment.CashLBP,
		CardUSD: in.Payment.CardUSD,
	}
	if err := breakdown.Validate(); err != nil {
		return Output{}, &common.AppError{Code: "BAD_REQUEST", Message: err.Error(), HTTPStatus: http.StatusBadRequest, Err: err}
	}

	now := s.now()
	basket, err := s.buildCart(ctx, merchantID, in.Lines, now)
	if err != nil {
		return Output{}, err
	}

	exchangeRate, err := s.Rates.Get(ctx, merchantID)
	if err != nil {
		return Output{}, fmt.Errorf("load exchange rate: %w", err)
	}

	attempts := s.Retries
	if attempts < 1 {
		attempts = 1
	}
	var record *sale.Sale
	var alerts []sale.LowStockAlert
	start := time.Now()
	for attempt := 1; ; attempt++ {
		record, alerts, err = s.Sales.Commit(ctx, sale.CommitInput{
			MerchantID: merchantID,
			Lines:      basket.Lines(),
			Payment:    breakdown,
			Rate:       exchangeRate,
		})
		if err == nil || !errors.Is(err, sale.ErrConflict) || attempt >= attempts {
			break
		}
		if s.Logger != nil {
			s.Logger.Warn().Err(err).Int("attempt", attempt).Msg("sale commit conflicted, retrying")
		}
	}
	observeCommit(err, time.Since(start))
	if err != nil {
		return Output{}, err
	}

	for _, alert := range alerts {
		if obs.LowStockAlertsTotal != nil {
			obs.LowStockAlertsTotal.Inc()
		}
		if s.Alerts == nil {
			continue
		}
		if err := s.Alerts.EnqueueLowStock(ctx, alert); err != nil && s.Logger != nil {
			s.Logger.Error().Err(err).
				Str("product_id", alert.ProductID.String()).
				Msg("enqueue low stock alert failed")
		}
	}

	return Output{Sale: record, Totals: basket.Totals(now)}, nil
}

func (s *Service) buildCart(ctx context.Context, merchantID uuid.UUID, lines []LineInput, now time.Time) (*cart.Cart, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if line.ProductID != nil {
			ids = append(ids, *line.ProductID)
		}
	}
	byID := make(map[uuid.UUID]cart.Priceable, len(ids))
	if len(ids) > 0 {
		priceables, err := s.Catalog.Priceables(ctx, merchantID, ids)
		if err != nil {
			return nil, fmt.Errorf("load products: %w", err)
		}
		for _, p := range priceables {
			if p.ProductID != nil {
				byID[*p.ProductID] = p
			}
		}
	}

	basket := cart.New()
	// Repeated lines for the same product accumulate into one cart line.
	quantities := make(map[string]int, len(lines))
	for i, line := range lines {
		var p cart.Priceable
		if line.ProductID != nil {
			found, ok := byID[*line.ProductID]
			if !ok {
				return nil, &common.AppError{
					Code:       "PRODUCT_NOT_FOUND",
					Message:    "product not found",
					HTTPStatus: http.StatusNotFound,
					Details:    map[string]any{"productId": line.ProductID.String()},
				}
			}
			p = found
		} else {
			if line.Name == "" || line.UnitPriceUSD == nil || *line.UnitPriceUSD < 0 {
				return nil, &common.AppError{
					Code:       "BAD_REQUEST",
					Message:    "manual entries need a name and a non-negative unit price",
					HTTPStatus: http.StatusBadRequest,
					Details:    map[string]any{"line": i},
				}
			}
			p = cart.Priceable{
				ID:           fmt.Sprintf("manual:%d", i),
				Name:         line.Name,
				UnitPriceUSD: *line.UnitPriceUSD,
			}
		}
		basket.AddItem(p, now)
		quantities[p.ID] += line.Quantity
		if err := basket.UpdateQuantity(p.ID, quantities[p.ID], now); err != nil {
			return nil, err
		}
	}
	return basket, nil
}

func observeCommit(err error, elapsed time.Duration) {
	if obs.SaleCommitDuration != nil {
		obs.SaleCommitDuration.Observe(float64(elapsed.Milliseconds()))
	}
	if obs.SaleCommitsTotal == nil {
		return
	}
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, sale.ErrConflict):
		result = "conflict"
	case isInsufficientStock(err):
		result = "insufficient_stock"
	case isIncompletePayment(err):
		result = "incomplete_payment"
	default:
		result = "error"
	}
	obs.SaleCommitsTotal.WithLabelValues(result).Inc()
}

func isInsufficientStock(err error) bool {
	var target *sale.InsufficientStockError
	return errors.As(err, &target)
}

func isIncompletePayment(err error) bool {
	var target *payment.IncompletePaymentError
	return errors.As(err, &target)
}
