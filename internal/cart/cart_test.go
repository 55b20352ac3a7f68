package cart

import (
	"math"
	"testing"
	"time"

	"github.com/cedarpos/backend/internal/discount"
)

var now = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func coffee() Priceable {
	return Priceable{ID: "sku-coffee", Name: "Coffee 250g", UnitPriceUSD: 7.5}
}

func soap() Priceable {
	return Priceable{
		ID:           "sku-soap",
		Name:         "Olive Soap",
		UnitPriceUSD: 2,
		Discount:     &discount.Descriptor{Kind: discount.Percentage, Value: 50},
	}
}

func TestAddItemIncrementsExistingLine(t *testing.T) {
	c := New()
	c.AddItem(coffee(), now)
	c.AddItem(coffee(), now)
	if c.Len() != 1 {
		t.Fatalf("expected 1 line, got %d", c.Len())
	}
	line := c.Lines()[0]
	if line.Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", line.Quantity)
	}
	if line.LineTotalUSD != 15 {
		t.Fatalf("expected line total 15, got %v", line.LineTotalUSD)
	}
}

func TestUpdateQuantityRecomputesTotal(t *testing.T) {
	c := New()
	c.AddItem(soap(), now)
	if err := c.UpdateQuantity("sku-soap", 4, now); err != nil {
		t.Fatalf("update: %v", err)
	}
	line := c.Lines()[0]
	if line.EffectivePriceUSD != 1 {
		t.Fatalf("expected effective price 1, got %v", line.EffectivePriceUSD)
	}
	if line.LineTotalUSD != 4 {
		t.Fatalf("expected line total 4, got %v", line.LineTotalUSD)
	}
}

func TestUpdateQuantityZeroRemoves(t *testing.T) {
	c := New()
	c.AddItem(coffee(), now)
	if err := c.UpdateQuantity("sku-coffee", 0, now); err != nil {
		t.Fatalf("update: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cart, got %d lines", c.Len())
	}
}

func TestRemoveMissingLine(t *testing.T) {
	c := New()
	if err := c.RemoveItem("nope"); err != ErrLineNotFound {
		t.Fatalf("expected ErrLineNotFound, got %v", err)
	}
}

func TestTotalsSingleFold(t *testing.T) {
	c := New()
	c.AddItem(coffee(), now)
	c.AddItem(coffee(), now)
	c.AddItem(soap(), now)
	totals := c.Totals(now)

	if totals.SubtotalUSD != 17 {
		t.Fatalf("subtotal: got %v, want 17", totals.SubtotalUSD)
	}
	if totals.TotalDiscountUSD != 1 {
		t.Fatalf("discount: got %v, want 1", totals.TotalDiscountUSD)
	}
	if totals.TotalUSD != 16 {
		t.Fatalf("total: got %v, want 16", totals.TotalUSD)
	}
	if totals.ItemCount != 3 {
		t.Fatalf("item count: got %d, want 3", totals.ItemCount)
	}
}

// The three aggregates must remain mutually consistent for any sequence of
// cart mutations: total == subtotal - discount == sum of line totals.
func TestTotalsConsistencyInvariant(t *testing.T) {
	c := New()
	c.AddItem(coffee(), now)
	c.AddItem(soap(), now)
	c.AddItem(soap(), now)
	_ = c.UpdateQuantity("sku-coffee", 7, now)
	c.AddItem(Priceable{ID: "manual-1", Name: "Bag", UnitPriceUSD: 0.33}, now)
	_ = c.UpdateQuantity("manual-1", 3, now)
	_ = c.RemoveItem("sku-soap")
	c.AddItem(soap(), now)

	totals := c.Totals(now)
	var sumLines float64
	for _, line := range c.Lines() {
		sumLines += line.LineTotalUSD
	}
	if math.Abs(totals.TotalUSD-sumLines) > 0.01 {
		t.Fatalf("total %v does not match line sum %v", totals.TotalUSD, sumLines)
	}
	if math.Abs(totals.SubtotalUSD-totals.TotalDiscountUSD-totals.TotalUSD) > 0.01 {
		t.Fatalf("subtotal %v - discount %v != total %v",
			totals.SubtotalUSD, totals.TotalDiscountUSD, totals.TotalUSD)
	}
}

func TestTotalsCaptureSingleInstant(t *testing.T) {
	until := now.Add(time.Hour)
	d := &discount.Descriptor{Kind: discount.Fixed, Value: 1, ValidUntil: &until}
	c := New()
	c.AddItem(Priceable{ID: "a", Name: "A", UnitPriceUSD: 5, Discount: d}, now)
	c.AddItem(Priceable{ID: "b", Name: "B", UnitPriceUSD: 5, Discount: d}, now)

	active := c.Totals(now)
	if active.TotalDiscountUSD != 2 {
		t.Fatalf("inside window: got discount %v, want 2", active.TotalDiscountUSD)
	}
	expired := c.Totals(until.Add(time.Second))
	if expired.TotalDiscountUSD != 0 {
		t.Fatalf("outside window: got discount %v, want 0", expired.TotalDiscountUSD)
	}
	if expired.TotalUSD != expired.SubtotalUSD {
		t.Fatalf("outside window totals disagree: %+v", expired)
	}
}

func TestTotalsIdempotent(t *testing.T) {
	c := New()
	c.AddItem(soap(), now)
	c.AddItem(coffee(), now)
	first := c.Totals(now)
	second := c.Totals(now)
	if first != second {
		t.Fatalf("identical inputs produced %+v then %+v", first, second)
	}
}
