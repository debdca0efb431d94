package money_test

import (
	"testing"

	"go-twk/internal/shared/money"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRounder_HalfUp(t *testing.T) {
	r := money.NewRounder("half_up")

	cases := map[string]string{
		"0.005":   "0.01",
		"0.004":   "0",
		"-0.005":  "-0.01",
		"2.345":   "2.35",
		"1234.5":  "1234.5",
		"10.0149": "10.01",
	}
	for in, want := range cases {
		got := r.Round(decimal.RequireFromString(in))
		assert.True(t, decimal.RequireFromString(want).Equal(got), "round(%s) = %s, want %s", in, got, want)
	}
}

func TestRounder_Bankers(t *testing.T) {
	r := money.NewRounder("bankers")

	assert.Equal(t, "0.02", money.String(r.Round(decimal.RequireFromString("0.015"))))
	assert.Equal(t, "0.02", money.String(r.Round(decimal.RequireFromString("0.025"))))
	assert.Equal(t, "2.35", money.String(r.Round(decimal.RequireFromString("2.3451"))))
}

func TestSum_NoIntermediateRounding(t *testing.T) {
	third := decimal.NewFromInt(1).Div(decimal.NewFromInt(3))

	total := money.Sum(third, third, third)

	assert.Equal(t, "1.00", money.String(money.Round(total)))
	// rounding each third first would give 0.99
	assert.Equal(t, "0.99", money.String(money.Sum(money.Round(third), money.Round(third), money.Round(third))))
}
