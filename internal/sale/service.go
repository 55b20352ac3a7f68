package sale

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cedarpos/backend/internal/cart"
	"github.com/cedarpos/backend/internal/money"
	"github.com/cedarpos/backend/internal/payment"
)

// Service is the sale transaction manager. It performs no retries itself:
// nothing is persisted on abort, so the caller can safely retry the whole
// commit on ErrConflict.
type Service struct {
	Store  Store
	Logger *zerolog.Logger
	Now    func() time.Time
}

// CommitInput carries everything a finalized checkout hands to Commit.
type CommitInput struct {
	MerchantID uuid.UUID
	Lines      []cart.Line
	Payment    payment.Breakdown
	Rate       money.ExchangeRate
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Commit validates stock for every line, assigns the merchant's next invoice
// number, persists the sale header and line items, and decrements stock, all
// inside one transaction. On any abort nothing is persisted and the caller's
// cart must be left untouched.
//
// The grand total is recomputed from the finalized lines rather than taken
// from the caller, so a stale cached total can never be committed.
func (s *Service) Commit(ctx context.Context, in CommitInput) (*Sale, []LowStockAlert, error) {
	if s == nil || s.Store == nil {
		return nil, nil, errors.New("sale service not configured")
	}
	if in.MerchantID == uuid.Nil {
		return nil, nil, errors.New("merchant id is required")
	}
	if len(in.Lines) == 0 {
		return nil, nil, ErrEmptySale
	}
	if err := in.Rate.Validate(); err != nil {
		return nil, nil, err
	}
	for _, line := range in.Lines {
		if line.Quantity <= 0 {
			return nil, nil, fmt.Errorf("line %q has non-positive quantity", line.Priceable.ID)
		}
	}

	var total float64
	items := make([]LineItem, 0, len(in.Lines))
	for _, line := range in.Lines {
		total += line.EffectivePriceUSD * float64(line.Quantity)
		items = append(items, LineItem{
			ProductID:             line.Priceable.ProductID,
			Name:                  line.Priceable.Name,
			Quantity:              line.Quantity,
			OriginalUnitPriceUSD:  line.UnitBasePriceUSD,
			EffectiveUnitPriceUSD: line.EffectivePriceUSD,
			DiscountAppliedUSD:    money.Round2(line.UnitBasePriceUSD - line.EffectivePriceUSD),
		})
	}
	total = money.Round2(total)

	// Split payments must already cover the total; refuse before any
	// persistence work begins.
	result, err := payment.Reconcile(total, in.Payment, in.Rate)
	if err != nil {
		return nil, nil, err
	}

	record := &Sale{
		ID:            uuid.New(),
		MerchantID:    in.MerchantID,
		TotalUSD:      total,
		ExchangeRate:  in.Rate.USDToLBP,
		Payment:       in.Payment.Settled(total),
		ChangeUSD:     result.ChangeUSD,
		Status:        StatusPaid,
		CreatedAt:     s.now(),
		Items:         items,
	}
	if err := record.recomputeLBP(); err != nil {
		return nil, nil, err
	}

	var alerts []LowStockAlert
	err = s.Store.WithinTx(ctx, func(tx Tx) error {
		productIDs := make([]uuid.UUID, 0, len(in.Lines))
		for _, line := range in.Lines {
			if line.Priceable.ProductID != nil {
				productIDs = append(productIDs, *line.Priceable.ProductID)
			}
		}

		if len(productIDs) > 0 {
			stock, err := tx.StockForUpdate(ctx, in.MerchantID, productIDs)
			if err != nil {
				return err
			}
			for _, line := range in.Lines {
				if line.Priceable.ProductID == nil {
					continue
				}
				id := *line.Priceable.ProductID
				available, found := stock[id]
				if !found {
					return &InsufficientStockError{ProductID: id, Requested: line.Quantity}
				}
				if available != nil && *available < line.Quantity {
					return &InsufficientStockError{ProductID: id, Requested: line.Quantity, Available: *available}
				}
			}
		}

		invoice, err := tx.NextInvoiceNumber(ctx, in.MerchantID)
		if err != nil {
			return err
		}
		record.InvoiceNumber = invoice

		if err := tx.InsertSale(ctx, record); err != nil {
			return err
		}

		for _, line := range in.Lines {
			if line.Priceable.ProductID == nil {
				continue
			}
			remaining, err := tx.DecrementStock(ctx, in.MerchantID, *line.Priceable.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			if remaining != nil && line.Priceable.MinStock != nil && *remaining <= *line.Priceable.MinStock {
				alerts = append(alerts, LowStockAlert{
					MerchantID: in.MerchantID,
					ProductID:  *line.Priceable.ProductID,
					Name:       line.Priceable.Name,
					Remaining:  *remaining,
					MinStock:   *line.Priceable.MinStock,
				})
			}
		}
		return nil
	})
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn().Err(err).
				Str("merchant_id", in.MerchantID.String()).
				Msg("sale commit aborted")
		}
		return nil, nil, err
	}

	if s.Logger != nil {
		s.Logger.Info().
			Str("merchant_id", in.MerchantID.String()).
			Str("sale_id", record.ID.String()).
			Int64("invoice_number", record.InvoiceNumber).
			Float64("total_usd", record.TotalUSD).
			Msg("sale committed")
	}
	return record, alerts, nil
}
