// Package money converts between display-currency rupees and the integer
// paisa subunits the payment gateway requires, and computes order totals.
// All arithmetic uses decimal values; monetary amounts never touch binary
// floating point.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount indicates a negative, non-numeric, or otherwise
// unusable monetary value.
var ErrInvalidAmount = errors.New("invalid amount")

// TaxRate is the fixed VAT rate applied to order subtotals.
var TaxRate = decimal.NewFromFloat(0.13)

var (
	hundred = decimal.NewFromInt(100)
	ten     = decimal.NewFromInt(10)
)

// LineItem is a priced order line used for total computation.
type LineItem struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals holds the rounded monetary breakdown of an order.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Round2 rounds an amount to 2 decimal places using half-up rounding.
// decimal.Round rounds half away from zero, which is identical to half-up
// for the non-negative amounts handled here.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ToSubunits converts a display-currency amount to integer subunits
// (1 rupee = 100 paisa). Rounding is half-up: 0.005 rupees becomes 1 paisa.
func ToSubunits(amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("%w: amount %s is negative", ErrInvalidAmount, amount)
	}
	return amount.Mul(hundred).Round(0).IntPart(), nil
}

// ToDisplay converts integer subunits back to a display-currency amount
// with exactly 2 fractional digits.
func ToDisplay(subunits int64) (decimal.Decimal, error) {
	if subunits < 0 {
		return decimal.Zero, fmt.Errorf("%w: subunits %d is negative", ErrInvalidAmount, subunits)
	}
	return decimal.NewFromInt(subunits).Div(hundred).Round(2), nil
}

// ComputeTotals derives the subtotal, tax, and total for a set of order
// lines. Every intermediate result is rounded to 2 decimal places so the
// same items always produce the same totals.
func ComputeTotals(items []LineItem) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, fmt.Errorf("%w: order has no items", ErrInvalidAmount)
	}

	subtotal := decimal.Zero
	for i, item := range items {
		if item.Quantity < 1 {
			return Totals{}, fmt.Errorf("%w: item %d has quantity %d", ErrInvalidAmount, i, item.Quantity)
		}
		if item.UnitPrice.IsNegative() {
			return Totals{}, fmt.Errorf("%w: item %d has negative unit price %s", ErrInvalidAmount, i, item.UnitPrice)
		}
		line := Round2(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		subtotal = subtotal.Add(line)
	}

	tax := Round2(subtotal.Mul(TaxRate))
	total := Round2(subtotal.Add(tax))

	return Totals{Subtotal: subtotal, Tax: tax, Total: total}, nil
}

// RewardPoints computes the loyalty points earned for a paid or confirmed
// order: 1 point per 10 rupees of the total, floored.
func RewardPoints(total decimal.Decimal) int64 {
	if total.IsNegative() {
		return 0
	}
	return total.Div(ten).IntPart()
}
