package money

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToSubunits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		expected int64
		wantErr  bool
	}{
		{name: "whole rupees", amount: "1000.00", expected: 100000},
		{name: "two decimal places", amount: "1130.45", expected: 113045},
		{name: "zero", amount: "0", expected: 0},
		{name: "half paisa rounds up", amount: "0.005", expected: 1},
		{name: "just below half paisa rounds down", amount: "0.0049", expected: 0},
		{name: "half paisa boundary mid-range", amount: "12.345", expected: 1235},
		{name: "negative amount", amount: "-1.00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := decimal.NewFromString(tt.amount)
			assert.NoError(t, err)

			subunits, err := ToSubunits(amount)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, subunits)
		})
	}
}

func TestToDisplay(t *testing.T) {
	tests := []struct {
		name     string
		subunits int64
		expected string
		wantErr  bool
	}{
		{name: "whole rupees", subunits: 100000, expected: "1000.00"},
		{name: "with paisa", subunits: 113045, expected: "1130.45"},
		{name: "single paisa", subunits: 1, expected: "0.01"},
		{name: "zero", subunits: 0, expected: "0.00"},
		{name: "negative subunits", subunits: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			display, err := ToDisplay(tt.subunits)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, display.StringFixed(2))
		})
	}
}

// Round-trip law: toDisplay(toSubunits(x)) == round2(x) for all valid x.
func TestSubunitRoundTrip(t *testing.T) {
	amounts := []string{"0", "0.01", "0.99", "1.00", "10.50", "500.00", "1130.00", "99999.99"}
	for _, a := range amounts {
		amount, err := decimal.NewFromString(a)
		assert.NoError(t, err)

		subunits, err := ToSubunits(amount)
		assert.NoError(t, err)

		back, err := ToDisplay(subunits)
		assert.NoError(t, err)
		assert.True(t, back.Equal(Round2(amount)), "round trip failed for %s: got %s", a, back)
	}
}

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name     string
		items    []LineItem
		subtotal string
		tax      string
		total    string
		wantErr  bool
	}{
		{
			name:     "single line",
			items:    []LineItem{{UnitPrice: decimal.RequireFromString("500.00"), Quantity: 2}},
			subtotal: "1000.00",
			tax:      "130.00",
			total:    "1130.00",
		},
		{
			name: "multiple lines",
			items: []LineItem{
				{UnitPrice: decimal.RequireFromString("250.50"), Quantity: 1},
				{UnitPrice: decimal.RequireFromString("99.99"), Quantity: 3},
			},
			subtotal: "550.47",
			tax:      "71.56",
			total:    "622.03",
		},
		{
			name:     "tax rounding at half paisa",
			items:    []LineItem{{UnitPrice: decimal.RequireFromString("0.50"), Quantity: 1}},
			subtotal: "0.50",
			tax:      "0.07", // 0.065 rounds half-up
			total:    "0.57",
		},
		{
			name:    "empty items",
			items:   nil,
			wantErr: true,
		},
		{
			name:    "zero quantity",
			items:   []LineItem{{UnitPrice: decimal.RequireFromString("10.00"), Quantity: 0}},
			wantErr: true,
		},
		{
			name:    "negative price",
			items:   []LineItem{{UnitPrice: decimal.RequireFromString("-10.00"), Quantity: 1}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals, err := ComputeTotals(tt.items)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.subtotal, totals.Subtotal.StringFixed(2))
			assert.Equal(t, tt.tax, totals.Tax.StringFixed(2))
			assert.Equal(t, tt.total, totals.Total.StringFixed(2))

			// total is always round2(subtotal + subtotal*0.13)
			recomputed := Round2(totals.Subtotal.Add(Round2(totals.Subtotal.Mul(TaxRate))))
			assert.True(t, totals.Total.Equal(recomputed))
		})
	}
}

// Repeated calls over random item sets must be deterministic with no drift.
func TestComputeTotalsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		var items []LineItem
		lines := rng.Intn(5) + 1
		for j := 0; j < lines; j++ {
			price := decimal.NewFromInt(int64(rng.Intn(100000))).Div(decimal.NewFromInt(100))
			items = append(items, LineItem{UnitPrice: price, Quantity: rng.Intn(9) + 1})
		}

		first, err := ComputeTotals(items)
		assert.NoError(t, err)
		second, err := ComputeTotals(items)
		assert.NoError(t, err)

		assert.True(t, first.Total.Equal(second.Total))
		assert.True(t, first.Total.Equal(Round2(first.Total)), "total has more than 2 decimal places: %s", first.Total)
	}
}

func TestRewardPoints(t *testing.T) {
	tests := []struct {
		total    string
		expected int64
	}{
		{total: "1130.00", expected: 113},
		{total: "1000.00", expected: 100},
		{total: "9.99", expected: 0},
		{total: "10.00", expected: 1},
		{total: "0", expected: 0},
	}

	for _, tt := range tests {
		points := RewardPoints(decimal.RequireFromString(tt.total))
		assert.Equal(t, tt.expected, points, "points for total %s", tt.total)
	}
}
