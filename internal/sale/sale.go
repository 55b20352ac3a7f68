// Package sale owns the commit path of a checkout: stock preflight, invoice
// sequencing, persistence of the sale and its line items, and stock
// decrement, all as one atomic unit of work.
package sale

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cedarpos/backend/internal/money"
	"github.com/cedarpos/backend/internal/payment"
)

// Status of a persisted sale. A paid sale is immutable; void exists for a
// future reversal path and is never produced by Commit.
type Status string

const (
	StatusPaid Status = "paid"
	StatusVoid Status = "void"
)

// LineItem is one finalized line of a persisted sale. ProductID is nil for
// manual entries. DiscountAppliedUSD is the per-unit discount amount.
type LineItem struct {
	ProductID             *uuid.UUID `json:"productId,omitempty"`
	Name                  string     `json:"name"`
	Quantity              int        `json:"quantity"`
	OriginalUnitPriceUSD  float64    `json:"originalUnitPriceUsd"`
	EffectiveUnitPriceUSD float64    `json:"effectiveUnitPriceUsd"`
	DiscountAppliedUSD    float64    `json:"discountAppliedUsd"`
}

// Sale is the persisted record of a committed checkout.
type Sale struct {
	ID            uuid.UUID         `json:"id"`
	MerchantID    uuid.UUID         `json:"merchantId"`
	InvoiceNumber int64             `json:"invoiceNumber"`
	TotalUSD      float64           `json:"totalUsd"`
	TotalLBP      float64           `json:"totalLbp"`
	ExchangeRate  float64           `json:"exchangeRate"`
	Payment       payment.Breakdown `json:"payment"`
	ChangeUSD     float64           `json:"changeUsd"`
	Status        Status            `json:"status"`
	CreatedAt     time.Time         `json:"createdAt"`
	Items         []LineItem        `json:"items"`
}

// LowStockAlert is an advisory emitted after a successful commit when a
// product's remaining stock falls at or below its minimum threshold. It never
// affects the commit itself.
type LowStockAlert struct {
	MerchantID uuid.UUID `json:"merchantId"`
	ProductID  uuid.UUID `json:"productId"`
	Name       string    `json:"name"`
	Remaining  int       `json:"remaining"`
	MinStock   int       `json:"minStock"`
}

// ErrConflict signals that the serialization primitive guarding the commit
// could not be acquired or the transaction lost a serialization race. The
// caller may retry the whole commit a bounded number of times.
var ErrConflict = errors.New("sale commit conflict")

// ErrEmptySale is returned when a commit is attempted with no lines.
var ErrEmptySale = errors.New("sale has no line items")

// InsufficientStockError aborts a commit during stock preflight. It names the
// short product so the caller can surface exactly which item to adjust.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Store is the transactional persistence boundary consumed by the manager.
// WithinTx runs fn inside one atomic unit; if fn returns an error every write
// performed through the Tx is rolled back.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx exposes the writes the commit algorithm needs. Implementations must
// guarantee that StockForUpdate locks the read rows until the transaction
// ends and that NextInvoiceNumber serializes concurrent commits per merchant.
type Tx interface {
	// StockForUpdate returns current stock for the given products, keyed by
	// product id. A nil quantity means unlimited stock. Products that do not
	// exist for the merchant are absent from the map.
	StockForUpdate(ctx context.Context, merchantID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]*int, error)
	// NextInvoiceNumber atomically assigns the merchant's next invoice number.
	NextInvoiceNumber(ctx context.Context, merchantID uuid.UUID) (int64, error)
	// InsertSale persists the sale header and its line items.
	InsertSale(ctx context.Context, s *Sale) error
	// DecrementStock reduces a product's stock and returns the remaining
	// quantity, or nil when the product has unlimited stock.
	DecrementStock(ctx context.Context, merchantID, productID uuid.UUID, qty int) (*int, error)
}

func (s *Sale) recomputeLBP() error {
	lbp, err := money.ToLBP(s.TotalUSD, money.ExchangeRate{USDToLBP: s.ExchangeRate})
	if err != nil {
		return err
	}
	s.TotalLBP = lbp
	return nil
}
