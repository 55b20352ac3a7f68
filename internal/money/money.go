// Package money fixes the numeric conventions for dual-currency amounts.
// Internal totals are USD values rounded to two fractional digits at the
// point a total is finalized; LBP amounts are always whole numbers.
package money

import (
	"errors"
	"math"
	"time"
)

// Epsilon is the tolerance used when comparing finalized USD totals.
const Epsilon = 0.01

// ErrInvalidRate is returned when an exchange rate is zero or negative.
var ErrInvalidRate = errors.New("invalid exchange rate")

// ExchangeRate is the current USD to LBP conversion rate for a merchant.
type ExchangeRate struct {
	USDToLBP float64   `json:"usdToLbp"`
	AsOf     time.Time `json:"asOf"`
}

// Validate reports ErrInvalidRate for non-positive rates.
func (r ExchangeRate) Validate() error {
	if r.USDToLBP <= 0 {
		return ErrInvalidRate
	}
	return nil
}

// Round2 rounds a USD amount to two fractional digits, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ToLBP converts a USD amount into whole-number LBP.
func ToLBP(amountUSD float64, rate ExchangeRate) (float64, error) {
	if err := rate.Validate(); err != nil {
		return 0, err
	}
	return math.Round(amountUSD * rate.USDToLBP), nil
}

// ToUSD converts a tendered LBP amount back into USD.
func ToUSD(amountLBP float64, rate ExchangeRate) (float64, error) {
	if err := rate.Validate(); err != nil {
		return 0, err
	}
	return amountLBP / rate.USDToLBP, nil
}

// Equal reports whether two USD amounts agree within Epsilon.
func Equal(a, b float64) bool {
	return math.Abs(a-b) <= Epsilon
}
