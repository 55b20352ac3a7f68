// Package discount evaluates effective unit prices under time-bounded
// discount rules. Evaluation is pure: the reference instant is always passed
// in so checkout-time pricing is reproducible.
package discount

import "time"

// Kind discriminates how a discount value is applied.
type Kind string

const (
	// Fixed subtracts the value from the base price.
	Fixed Kind = "fixed"
	// Percentage reduces the base price by value percent, value in [0,100].
	Percentage Kind = "percentage"
)

// Descriptor captures a discount rule attached to a priceable item.
// A nil ValidFrom or ValidUntil means "always active" on that side.
type Descriptor struct {
	Kind       Kind       `json:"kind"`
	Value      float64    `json:"value"`
	ValidFrom  *time.Time `json:"validFrom,omitempty"`
	ValidUntil *time.Time `json:"validUntil,omitempty"`
}

// ActiveAt reports whether the descriptor's validity window covers now.
func (d *Descriptor) ActiveAt(now time.Time) bool {
	if d == nil {
		return false
	}
	if d.ValidFrom != nil && now.Before(*d.ValidFrom) {
		return false
	}
	if d.ValidUntil != nil && now.After(*d.ValidUntil) {
		return false
	}
	return true
}

// EffectivePrice returns the unit price after applying d at the given instant.
// A nil descriptor or a zero value leaves the base price untouched. The
// result never goes below zero: a percentage above 100 yields a free item.
func EffectivePrice(base float64, d *Descriptor, now time.Time) float64 {
	if d == nil || d.Value == 0 {
		return base
	}
	if !d.ActiveAt(now) {
		return base
	}
	var price float64
	switch d.Kind {
	case Fixed:
		price = base - d.Value
	case Percentage:
		price = base * (1 - d.Value/100)
	default:
		return base
	}
	if price < 0 {
		return 0
	}
	return price
}

// Applied returns the per-unit discount amount at the given instant.
func Applied(base float64, d *Descriptor, now time.Time) float64 {
	return base - EffectivePrice(base, d, now)
}
