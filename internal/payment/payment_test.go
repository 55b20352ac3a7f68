package payment

import (
	"errors"
	"testing"

	"github.com/cedarpos/backend/internal/money"
)

var rate = money.ExchangeRate{USDToLBP: 90000}

func TestSplitPaymentAcrossCurrencies(t *testing.T) {
	res, err := Reconcile(100, Breakdown{Method: Split, CashUSD: 50, CashLBP: 4_500_000}, rate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalPaidUSD != 100 {
		t.Fatalf("total paid: got %v, want 100", res.TotalPaidUSD)
	}
	if res.RemainingUSD != 0 {
		t.Fatalf("remaining: got %v, want 0", res.RemainingUSD)
	}
	if !res.Complete {
		t.Fatal("expected payment to be complete")
	}
}

func TestSplitIncompleteReturnsRemaining(t *testing.T) {
	_, err := Reconcile(100, Breakdown{Method: Split, CashUSD: 30, CardUSD: 40}, rate)
	var incomplete *IncompletePaymentError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompletePaymentError, got %v", err)
	}
	if incomplete.RemainingUSD != 30 {
		t.Fatalf("remaining: got %v, want 30", incomplete.RemainingUSD)
	}
}

func TestSplitToleratesOneCent(t *testing.T) {
	res, err := Reconcile(100, Breakdown{Method: Split, CashUSD: 99.99, CardUSD: 0}, rate)
	if err != nil {
		t.Fatalf("one cent short should be tolerated, got %v", err)
	}
	if !res.Complete {
		t.Fatal("expected completeness within epsilon")
	}
}

func TestCashExactTenderByDefault(t *testing.T) {
	res, err := Reconcile(42.5, Breakdown{Method: Cash}, rate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalPaidUSD != 42.5 || !res.Complete || res.ChangeUSD != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestCashChangeComputation(t *testing.T) {
	res, err := Reconcile(100, Breakdown{Method: Cash, CashUSD: 120}, rate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ChangeUSD != 20 {
		t.Fatalf("change: got %v, want 20", res.ChangeUSD)
	}
}

func TestCardPinnedToGrandTotal(t *testing.T) {
	res, err := Reconcile(75.25, Breakdown{Method: Card, CardUSD: 999}, rate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalPaidUSD != 75.25 || !res.Complete {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestSettledBreakdownCoversTotal(t *testing.T) {
	card := Breakdown{Method: Card, CashUSD: 5}.Settled(75.25)
	if card.CardUSD != 75.25 || card.CashUSD != 0 || card.CashLBP != 0 {
		t.Fatalf("card settlement: %+v", card)
	}

	exact := Breakdown{Method: Cash}.Settled(42.5)
	if exact.CashUSD != 42.5 {
		t.Fatalf("exact cash settlement: %+v", exact)
	}

	tendered := Breakdown{Method: Cash, CashUSD: 50}.Settled(42.5)
	if tendered.CashUSD != 50 {
		t.Fatalf("tendered cash must persist as entered: %+v", tendered)
	}

	split := Breakdown{Method: Split, CashUSD: 30, CardUSD: 70}.Settled(100)
	if split.CashUSD != 30 || split.CardUSD != 70 {
		t.Fatalf("split must persist as entered: %+v", split)
	}
}

func TestNegativeAmountsRejected(t *testing.T) {
	_, err := Reconcile(10, Breakdown{Method: Cash, CashUSD: -1}, rate)
	if !errors.Is(err, ErrInvalidBreakdown) {
		t.Fatalf("expected ErrInvalidBreakdown, got %v", err)
	}
}

func TestUnknownMethodRejected(t *testing.T) {
	if _, err := ParseMethod("bitcoin"); !errors.Is(err, ErrInvalidBreakdown) {
		t.Fatalf("expected ErrInvalidBreakdown, got %v", err)
	}
}

func TestInvalidRateRejected(t *testing.T) {
	_, err := Reconcile(10, Breakdown{Method: Cash}, money.ExchangeRate{USDToLBP: 0})
	if !errors.Is(err, money.ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
}
