// Package memory implements the sale store against in-process maps. It backs
// unit tests and mirrors the transactional semantics of the postgres store:
// writes inside WithinTx are staged and applied only when the callback
// succeeds, and a single mutex serializes commits the way row locks do.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/cedarpos/backend/internal/cart"
	"github.com/cedarpos/backend/internal/sale"
)

// Product is the catalog row the memory store keeps for stock accounting.
type Product struct {
	ID         uuid.UUID
	MerchantID uuid.UUID
	Priceable  cart.Priceable
	Stock      *int
}

// Store holds all state behind one mutex.
type Store struct {
	mu       sync.Mutex
	products map[uuid.UUID]*Product
	counters map[uuid.UUID]int64
	sales    []sale.Sale
}

// New returns an empty memory store.
func New() *Store {
	return &Store{
		products: make(map[uuid.UUID]*Product),
		counters: make(map[uuid.UUID]int64),
	}
}

// PutProduct seeds or replaces a product.
func (s *Store) PutProduct(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.products[p.ID] = &cp
}

// Stock returns the current stock for a product, nil when unlimited.
func (s *Store) Stock(id uuid.UUID) *int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || p.Stock == nil {
		return nil
	}
	v := *p.Stock
	return &v
}

// Sales returns a snapshot of every committed sale.
func (s *Store) Sales() []sale.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sale.Sale, len(s.sales))
	copy(out, s.sales)
	return out
}

// LastInvoiceNumber returns the merchant's counter value.
func (s *Store) LastInvoiceNumber(merchantID uuid.UUID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[merchantID]
}

// Priceables returns cart priceables for the requested product ids, the way
// a catalog read would supply them at checkout.
func (s *Store) Priceables(_ context.Context, merchantID uuid.UUID, ids []uuid.UUID) ([]cart.Priceable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]cart.Priceable, 0, len(ids))
	for _, id := range ids {
		p, ok := s.products[id]
		if !ok || p.MerchantID != merchantID {
			continue
		}
		pr := p.Priceable
		if p.Stock != nil {
			v := *p.Stock
			pr.Stock = &v
		}
		out = append(out, pr)
	}
	return out, nil
}

type memTx struct {
	store      *Store
	stockDelta map[uuid.UUID]int
	counters   map[uuid.UUID]int64
	inserted   []sale.Sale
}

// WithinTx serializes the whole unit of work under the store mutex and
// applies staged writes only if fn succeeds, so an abort leaves no trace.
func (s *Store) WithinTx(ctx context.Context, fn func(tx sale.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{
		store:      s,
		stockDelta: make(map[uuid.UUID]int),
		counters:   make(map[uuid.UUID]int64),
	}
	if err := fn(tx); err != nil {
		return err
	}
	for id, delta := range tx.stockDelta {
		p := s.products[id]
		if p != nil && p.Stock != nil {
			v := *p.Stock - delta
			p.Stock = &v
		}
	}
	for merchant, last := range tx.counters {
		s.counters[merchant] = last
	}
	s.sales = append(s.sales, tx.inserted...)
	return nil
}

func (t *memTx) StockForUpdate(_ context.Context, merchantID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]*int, error) {
	out := make(map[uuid.UUID]*int, len(productIDs))
	for _, id := range productIDs {
		p, ok := t.store.products[id]
		if !ok || p.MerchantID != merchantID {
			continue
		}
		if p.Stock == nil {
			out[id] = nil
			continue
		}
		v := *p.Stock - t.stockDelta[id]
		out[id] = &v
	}
	return out, nil
}

func (t *memTx) NextInvoiceNumber(_ context.Context, merchantID uuid.UUID) (int64, error) {
	last, staged := t.counters[merchantID]
	if !staged {
		last = t.store.counters[merchantID]
	}
	next := last + 1
	t.counters[merchantID] = next
	return next, nil
}

func (t *memTx) InsertSale(_ context.Context, s *sale.Sale) error {
	cp := *s
	cp.Items = append([]sale.LineItem(nil), s.Items...)
	t.inserted = append(t.inserted, cp)
	return nil
}

func (t *memTx) DecrementStock(_ context.Context, merchantID, productID uuid.UUID, qty int) (*int, error) {
	p, ok := t.store.products[productID]
	if !ok || p.MerchantID != merchantID {
		return nil, sale.ErrConflict
	}
	if p.Stock == nil {
		return nil, nil
	}
	t.stockDelta[productID] += qty
	remaining := *p.Stock - t.stockDelta[productID]
	return &remaining, nil
}
