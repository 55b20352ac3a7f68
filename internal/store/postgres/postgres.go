// Package postgres implements the sale store on pgx. The commit unit of work
// runs as a single serializable transaction: stock rows are locked with
// SELECT ... FOR UPDATE and the per-merchant invoice counter row serializes
// concurrent commits, so two checkouts for the same merchant can never share
// an invoice number or double-spend stock.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cedarpos/backend/internal/sale"
)

// Store runs sale commits against a pgx connection pool.
type Store struct {
	Pool *pgxpool.Pool
}

// New constructs a Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// WithinTx runs fn inside one serializable transaction. Serialization
// failures and lock timeouts surface as sale.ErrConflict so the caller can
// retry the whole commit.
func (s *Store) WithinTx(ctx context.Context, fn func(tx sale.Tx) error) error {
	if s == nil || s.Pool == nil {
		return errors.New("postgres store not configured")
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return mapPgErr(err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(&pgTx{tx: tx}); err != nil {
		return mapPgErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgErr(err)
	}
	return nil
}

// mapPgErr folds retryable postgres failures into sale.ErrConflict.
func mapPgErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%s: %w", pgErr.Code, sale.ErrConflict)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("lock wait timed out: %w", sale.ErrConflict)
	}
	return err
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) StockForUpdate(ctx context.Context, merchantID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]*int, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, stock
		FROM products
		WHERE merchant_id = $1 AND id = ANY($2)
		FOR UPDATE
	`, merchantID, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]*int, len(productIDs))
	for rows.Next() {
		var id uuid.UUID
		var stock *int
		if err := rows.Scan(&id, &stock); err != nil {
			return nil, err
		}
		out[id] = stock
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *pgTx) NextInvoiceNumber(ctx context.Context, merchantID uuid.UUID) (int64, error) {
	var next int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO merchant_invoice_counters (merchant_id, last_number)
		VALUES ($1, 1)
		ON CONFLICT (merchant_id)
		DO UPDATE SET last_number = merchant_invoice_counters.last_number + 1
		RETURNING last_number
	`, merchantID).Scan(&next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (t *pgTx) InsertSale(ctx context.Context, s *sale.Sale) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO sales (
			id, merchant_id, invoice_number, total_usd, total_lbp, exchange_rate,
			payment_method, cash_usd, cash_lbp, card_usd, change_usd, status, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, s.ID, s.MerchantID, s.InvoiceNumber, s.TotalUSD, s.TotalLBP, s.ExchangeRate,
		string(s.Payment.Method), s.Payment.CashUSD, s.Payment.CashLBP, s.Payment.CardUSD,
		s.ChangeUSD, string(s.Status), s.CreatedAt)
	if err != nil {
		return err
	}
	for _, item := range s.Items {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO sale_items (
				sale_id, product_id, name, quantity,
				original_unit_price_usd, effective_unit_price_usd, discount_applied_usd
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, s.ID, item.ProductID, item.Name, item.Quantity,
			item.OriginalUnitPriceUSD, item.EffectiveUnitPriceUSD, item.DiscountAppliedUSD)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) DecrementStock(ctx context.Context, merchantID, productID uuid.UUID, qty int) (*int, error) {
	rows, err := t.tx.Query(ctx, `
		UPDATE products
		SET stock = stock - $3, updated_at = now()
		WHERE merchant_id = $1 AND id = $2 AND stock IS NOT NULL
		RETURNING stock
	`, merchantID, productID, qty)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		// Unlimited-stock product: nothing to decrement.
		return nil, rows.Err()
	}
	var remaining int
	if err := rows.Scan(&remaining); err != nil {
		return nil, err
	}
	return &remaining, rows.Err()
}
