package convert

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func TestDecimalToScaled(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"1", "1000000000000"},
		{"1.000000000000", "1000000000000"},
		{"1.000000000001", "1000000000001"},
		{"0.053712327", "53712327000"},
		// 12 fractional digits kept, remainder truncated, not rounded
		{"123456789.123456789012345", "123456789123456789012"},
		{"0.0000000000009", "0"},
	}
	for _, c := range cases {
		got, err := DecimalToScaled(mustDec(t, c.in))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", c.in, err)
		}
		if got.String() != c.want {
			t.Fatalf("%s: got %s, want %s", c.in, got, c.want)
		}
	}
}

func TestDecimalToScaled_Pure(t *testing.T) {
	in := mustDec(t, "1.000000000000")
	a, err := DecimalToScaled(in)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	b, err := DecimalToScaled(in)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if a.Cmp(b) != 0 || a.String() != "1000000000000" {
		t.Fatalf("not idempotent: %s vs %s", a, b)
	}
}

func TestDecimalToScaled_TooLarge(t *testing.T) {
	// 1e28 * 1e12 = 1e40 > 2^128-1
	if _, err := DecimalToScaled(decimal.New(1, 28)); !errors.Is(err, ErrDecimalTooLarge) {
		t.Fatalf("want ErrDecimalTooLarge, got %v", err)
	}
}

func TestDecimalToScaled_NegativeRejected(t *testing.T) {
	for _, in := range []string{"-1", "-0.5"} {
		if _, err := DecimalToScaled(mustDec(t, in)); !errors.Is(err, ErrDecimalTooLarge) {
			t.Fatalf("%s: want ErrDecimalTooLarge, got %v", in, err)
		}
	}
}
