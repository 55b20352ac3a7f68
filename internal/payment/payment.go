// Package payment reconciles tendered amounts against an amount due. A sale
// can be paid with USD cash, LBP cash converted at the current rate, a card,
// or any combination of the three.
package payment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cedarpos/backend/internal/money"
)

// ErrInvalidBreakdown is returned when a breakdown carries negative amounts
// or an unknown method.
var ErrInvalidBreakdown = errors.New("invalid payment breakdown")

// Method is the tender type for a sale.
type Method string

const (
	Cash  Method = "cash"
	Card  Method = "card"
	Split Method = "split"
)

// ParseMethod validates a caller-supplied method string.
func ParseMethod(v string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(v))) {
	case Cash:
		return Cash, nil
	case Card:
		return Card, nil
	case Split:
		return Split, nil
	default:
		return "", fmt.Errorf("unknown payment method %q: %w", v, ErrInvalidBreakdown)
	}
}

// Breakdown is the set of amounts tendered for one sale.
type Breakdown struct {
	Method  Method  `json:"method"`
	CashUSD float64 `json:"cashUsd"`
	CashLBP float64 `json:"cashLbp"`
	CardUSD float64 `json:"cardUsd"`
}

// Validate rejects malformed breakdowns before any computation proceeds.
func (b Breakdown) Validate() error {
	if _, err := ParseMethod(string(b.Method)); err != nil {
		return err
	}
	if b.CashUSD < 0 || b.CashLBP < 0 || b.CardUSD < 0 {
		return fmt.Errorf("tendered amounts must be non-negative: %w", ErrInvalidBreakdown)
	}
	return nil
}

// Settled returns the breakdown as it settles against the grand total: card
// settles for exactly the total and untendered exact cash is recorded as the
// total, so persisted amounts always cover the sale.
func (b Breakdown) Settled(grandTotalUSD float64) Breakdown {
	switch b.Method {
	case Cash:
		if b.CashUSD == 0 && b.CashLBP == 0 {
			b.CashUSD = money.Round2(grandTotalUSD)
		}
	case Card:
		b.CashUSD = 0
		b.CashLBP = 0
		b.CardUSD = money.Round2(grandTotalUSD)
	}
	return b
}

// Result is the outcome of reconciling a breakdown against a grand total.
type Result struct {
	TotalPaidUSD float64 `json:"totalPaidUsd"`
	RemainingUSD float64 `json:"remainingUsd"`
	ChangeUSD    float64 `json:"changeUsd"`
	Complete     bool    `json:"complete"`
}

// IncompletePaymentError reports a split payment that does not cover the
// amount due. The remaining balance is carried so the caller can show it
// without re-deriving it.
type IncompletePaymentError struct {
	RemainingUSD float64
}

func (e *IncompletePaymentError) Error() string {
	return fmt.Sprintf("incomplete payment: %.2f USD remaining", e.RemainingUSD)
}

// Reconcile computes total paid, remaining balance and change for the given
// grand total. Completeness tolerates up to money.Epsilon of rounding noise.
//
// Cash with no tendered amounts is treated as exact tender: the operator only
// enters a received amount when change is needed. Card is pinned to the grand
// total regardless of the entered value, since terminals settle exactly.
// Split must be complete; an IncompletePaymentError is returned otherwise.
func Reconcile(grandTotalUSD float64, b Breakdown, rate money.ExchangeRate) (Result, error) {
	if err := b.Validate(); err != nil {
		return Result{}, err
	}
	if err := rate.Validate(); err != nil {
		return Result{}, err
	}

	var paid float64
	switch b.Method {
	case Cash:
		if b.CashUSD == 0 && b.CashLBP == 0 {
			paid = grandTotalUSD
		} else {
			lbpAsUSD, _ := money.ToUSD(b.CashLBP, rate)
			paid = b.CashUSD + lbpAsUSD
		}
	case Card:
		paid = grandTotalUSD
	case Split:
		lbpAsUSD, _ := money.ToUSD(b.CashLBP, rate)
		paid = b.CashUSD + lbpAsUSD + b.CardUSD
	}

	res := Result{
		TotalPaidUSD: money.Round2(paid),
		RemainingUSD: money.Round2(grandTotalUSD - paid),
	}
	if res.RemainingUSD < 0 {
		res.ChangeUSD = -res.RemainingUSD
	}
	res.Complete = res.RemainingUSD <= money.Epsilon

	if b.Method == Split && !res.Complete {
		return res, &IncompletePaymentError{RemainingUSD: res.RemainingUSD}
	}
	return res, nil
}
