package money

import (
	"errors"
	"testing"
)

func TestToLBPWholeNumbers(t *testing.T) {
	rate := ExchangeRate{USDToLBP: 89500}
	lbp, err := ToLBP(1.505, rate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lbp != 134698 {
		t.Fatalf("expected 134698 LBP, got %v", lbp)
	}
}

func TestToUSDRoundTrip(t *testing.T) {
	rate := ExchangeRate{USDToLBP: 90000}
	usd, err := ToUSD(4_500_000, rate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usd != 50 {
		t.Fatalf("expected 50 USD, got %v", usd)
	}
}

func TestInvalidRateRejected(t *testing.T) {
	for _, v := range []float64{0, -1} {
		if _, err := ToLBP(10, ExchangeRate{USDToLBP: v}); !errors.Is(err, ErrInvalidRate) {
			t.Fatalf("rate %v: expected ErrInvalidRate, got %v", v, err)
		}
		if _, err := ToUSD(10, ExchangeRate{USDToLBP: v}); !errors.Is(err, ErrInvalidRate) {
			t.Fatalf("rate %v: expected ErrInvalidRate, got %v", v, err)
		}
	}
}

func TestRound2(t *testing.T) {
	cases := map[float64]float64{
		10.005:  10.01,
		10.004:  10.0,
		-10.005: -10.01,
		0:       0,
	}
	for in, want := range cases {
		if got := Round2(in); got != want {
			t.Fatalf("Round2(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestEqualWithinEpsilon(t *testing.T) {
	if !Equal(100.0, 100.009) {
		t.Fatal("amounts within one cent should compare equal")
	}
	if Equal(100.0, 100.02) {
		t.Fatal("amounts two cents apart should not compare equal")
	}
}
