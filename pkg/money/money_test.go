package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRound2HalfAwayFromZero(t *testing.T) {
	cases := map[string]string{
		"2.345":  "2.35",
		"-2.345": "-2.35",
		"1.75":   "1.75",
		"0.005":  "0.01",
		"10":     "10",
	}
	for in, want := range cases {
		got := Round2(decimal.RequireFromString(in))
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("Round2(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestPercentOf(t *testing.T) {
	fee := PercentOf(decimal.RequireFromString("35"), decimal.NewFromInt(5))
	if !fee.Equal(decimal.RequireFromString("1.75")) {
		t.Fatalf("expected 1.75, got %s", fee)
	}
	fee = PercentOf(decimal.RequireFromString("19.99"), decimal.RequireFromString("7.5"))
	if !fee.Equal(decimal.RequireFromString("1.50")) {
		t.Fatalf("expected 1.50, got %s", fee)
	}
}

func TestParse(t *testing.T) {
	if _, err := Parse("12.345"); err == nil {
		t.Fatalf("expected error for three decimals")
	}
	if _, err := Parse("abc"); err == nil {
		t.Fatalf("expected error for garbage")
	}
	v, err := Parse(" 30.50 ")
	if err != nil || !v.Equal(decimal.RequireFromString("30.5")) {
		t.Fatalf("unexpected parse result %s %v", v, err)
	}
}
