package odds

import (
	"math"
	"testing"
)

func TestAmericanToImplied(t *testing.T) {
	cases := []struct {
		price int
		want  float64
	}{
		{150, 0.40},
		{-150, 0.60},
		{100, 0.50},
		{-100, 0.50},
		{200, 1.0 / 3.0},
		{-110, 110.0 / 210.0},
	}
	for _, c := range cases {
		got, err := AmericanToImplied(c.price)
		if err != nil {
			t.Fatalf("price %d: %v", c.price, err)
		}
		if math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("price %d: got %v want %v", c.price, got, c.want)
		}
	}
}

func TestAmericanToImpliedZero(t *testing.T) {
	if _, err := AmericanToImplied(0); err == nil {
		t.Fatalf("expected error for price 0")
	}
}

func TestAmericanToDecimal(t *testing.T) {
	if d, _ := AmericanToDecimal(150); math.Abs(d-2.5) > 1e-9 {
		t.Fatalf("got %v want 2.5", d)
	}
	if d, _ := AmericanToDecimal(-200); math.Abs(d-1.5) > 1e-9 {
		t.Fatalf("got %v want 1.5", d)
	}
}

func TestImpliedToAmericanRoundTrip(t *testing.T) {
	for _, price := range []int{150, -150, 110, -110, 400, -400} {
		p, err := AmericanToImplied(price)
		if err != nil {
			t.Fatalf("price %d: %v", price, err)
		}
		back, err := ImpliedToAmerican(p)
		if err != nil {
			t.Fatalf("prob %v: %v", p, err)
		}
		if back != price {
			t.Fatalf("round trip %d -> %v -> %d", price, p, back)
		}
	}
}

func TestImpliedToAmericanBounds(t *testing.T) {
	for _, p := range []float64{0, 1, -0.1, 1.1} {
		if _, err := ImpliedToAmerican(p); err == nil {
			t.Fatalf("expected error for prob %v", p)
		}
	}
}

func TestArbROIBps(t *testing.T) {
	// +105 and +105: implied 0.4878 each, sum 0.9756 -> ~250bps.
	pa, _ := AmericanToImplied(105)
	roi := ArbROIBps(pa, pa)
	if roi <= 0 {
		t.Fatalf("expected positive roi, got %v", roi)
	}
	want := (1.0/(2*pa) - 1.0) * 10000.0
	if math.Abs(roi-want) > 1e-9 {
		t.Fatalf("got %v want %v", roi, want)
	}
}

func TestArbROIBpsNoArb(t *testing.T) {
	// -110 / -110 sums over 1: no arb.
	p, _ := AmericanToImplied(-110)
	if roi := ArbROIBps(p, p); roi != 0 {
		t.Fatalf("expected 0, got %v", roi)
	}
	if roi := ArbROIBps(0.5, 0.5); roi != 0 {
		t.Fatalf("expected 0 at exactly 1.0, got %v", roi)
	}
}

func TestEvBps(t *testing.T) {
	// Fair 0.50 against a book implying 0.4762 (+110): positive edge.
	implied, _ := AmericanToImplied(110)
	ev := EvBps(0.5, implied)
	want := (0.5/implied - 1.0) * 10000.0
	if math.Abs(ev-want) > 1e-9 {
		t.Fatalf("got %v want %v", ev, want)
	}
	if ev <= 0 {
		t.Fatalf("expected positive ev, got %v", ev)
	}
	// Fair below implied: negative edge.
	if ev := EvBps(0.45, 0.5); ev >= 0 {
		t.Fatalf("expected negative ev, got %v", ev)
	}
}

func TestIsFinitePrice(t *testing.T) {
	if !IsFinitePrice(-110) {
		t.Fatalf("-110 should be finite")
	}
	if IsFinitePrice(math.NaN()) || IsFinitePrice(math.Inf(1)) {
		t.Fatalf("nan/inf should not be finite")
	}
}
