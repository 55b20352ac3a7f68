// Package cart holds the in-memory cart a terminal builds up during a sale.
// A cart is owned by exactly one session and is never shared between
// goroutines; it is consumed once when the sale commits.
package cart

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cedarpos/backend/internal/discount"
	"github.com/cedarpos/backend/internal/money"
)

// ErrLineNotFound indicates the referenced priceable is not in the cart.
var ErrLineNotFound = errors.New("cart line not found")

// Priceable is anything that can be added to a cart: a catalog product or an
// ad-hoc manual entry synthesized at checkout time. A nil ProductID marks a
// manual entry; a nil Stock means unlimited.
type Priceable struct {
	ID           string
	Name         string
	UnitPriceUSD float64
	Discount     *discount.Descriptor
	ProductID    *uuid.UUID
	Stock        *int
	MinStock     *int
}

// ManualEntry reports whether the priceable is not backed by a catalog product.
func (p Priceable) ManualEntry() bool { return p.ProductID == nil }

// Line is one priceable plus quantity within the cart. The unit price and
// discount descriptor are captured at add-time; effective price and line
// total are recomputed whenever the quantity changes.
type Line struct {
	Priceable         Priceable
	Quantity          int
	UnitBasePriceUSD  float64
	EffectivePriceUSD float64
	LineTotalUSD      float64
}

func (l *Line) reprice(now time.Time) {
	l.EffectivePriceUSD = discount.EffectivePrice(l.UnitBasePriceUSD, l.Priceable.Discount, now)
	l.LineTotalUSD = l.EffectivePriceUSD * float64(l.Quantity)
}

// Totals aggregates a cart in a single pass.
type Totals struct {
	SubtotalUSD      float64 `json:"subtotalUsd"`
	TotalDiscountUSD float64 `json:"totalDiscountUsd"`
	TotalUSD         float64 `json:"totalUsd"`
	ItemCount        int     `json:"itemCount"`
}

// Cart is an ordered collection of lines, unique by priceable identifier.
type Cart struct {
	lines []Line
}

// New returns an empty cart.
func New() *Cart { return &Cart{} }

// AddItem appends a new line with quantity 1, or increments the quantity of
// an existing line for the same priceable. The line total is recomputed at
// the provided instant.
func (c *Cart) AddItem(p Priceable, now time.Time) {
	for i := range c.lines {
		if c.lines[i].Priceable.ID == p.ID {
			c.lines[i].Quantity++
			c.lines[i].reprice(now)
			return
		}
	}
	line := Line{Priceable: p, Quantity: 1, UnitBasePriceUSD: p.UnitPriceUSD}
	line.reprice(now)
	c.lines = append(c.lines, line)
}

// RemoveItem drops the line for the given priceable identifier.
func (c *Cart) RemoveItem(id string) error {
	for i := range c.lines {
		if c.lines[i].Priceable.ID == id {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return nil
		}
	}
	return ErrLineNotFound
}

// UpdateQuantity sets the quantity for a line and recomputes its total. A
// quantity of zero or less removes the line.
func (c *Cart) UpdateQuantity(id string, qty int, now time.Time) error {
	if qty <= 0 {
		return c.RemoveItem(id)
	}
	for i := range c.lines {
		if c.lines[i].Priceable.ID == id {
			c.lines[i].Quantity = qty
			c.lines[i].reprice(now)
			return nil
		}
	}
	return ErrLineNotFound
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int { return len(c.lines) }

// Totals folds every line exactly once using a single evaluation instant, so
// the three monetary aggregates stay mutually consistent even when a discount
// window ends mid-call. Aggregates are rounded only at finalization.
func (c *Cart) Totals(now time.Time) Totals {
	var t Totals
	for i := range c.lines {
		line := &c.lines[i]
		effective := discount.EffectivePrice(line.UnitBasePriceUSD, line.Priceable.Discount, now)
		qty := float64(line.Quantity)
		t.SubtotalUSD += line.UnitBasePriceUSD * qty
		t.TotalDiscountUSD += (line.UnitBasePriceUSD - effective) * qty
		t.TotalUSD += effective * qty
		t.ItemCount += line.Quantity
	}
	t.SubtotalUSD = money.Round2(t.SubtotalUSD)
	t.TotalDiscountUSD = money.Round2(t.TotalDiscountUSD)
	t.TotalUSD = money.Round2(t.TotalUSD)
	return t
}

// Reprice re-evaluates every line at the given instant. Checkout calls this
// right before commit so no stale cached line total survives.
func (c *Cart) Reprice(now time.Time) {
	for i := range c.lines {
		c.lines[i].reprice(now)
	}
}
