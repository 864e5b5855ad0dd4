// Package money performs fixed-point arithmetic on the two-decimal amount strings
// stored for local balances, prices and transaction amounts.
package money

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits kept for local balances and prices.
const Places = 2

// CoinPlaces is the number of fractional digits shown for mirrored coin balances.
const CoinPlaces = 3

// Zero is the canonical zero amount.
const Zero = "0.00"

var pricePattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

// IsPrice reports whether s is a non-negative amount with at most two fractional digits.
func IsPrice(s string) bool {
	return pricePattern.MatchString(s)
}

// Parse converts s into a decimal, rejecting anything that is not a plain number.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// Format renders d with exactly two fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}

// FormatCoins renders a mirrored coin balance with up to three fractional digits.
func FormatCoins(d decimal.Decimal) string {
	return d.Round(CoinPlaces).String()
}

// Normalize parses s and re-renders it in two-decimal form.
func Normalize(s string) (string, error) {
	d, err := Parse(s)
	if err != nil {
		return "", err
	}
	return Format(d), nil
}

// Less reports whether a < b.
func Less(a, b string) (bool, error) {
	da, err := Parse(a)
	if err != nil {
		return false, err
	}
	db, err := Parse(b)
	if err != nil {
		return false, err
	}
	return da.LessThan(db), nil
}

// Transfer moves amount from one balance to another and returns both new balances.
func Transfer(from, to, amount string) (newFrom, newTo string, err error) {
	dFrom, err := Parse(from)
	if err != nil {
		return "", "", err
	}
	dTo, err := Parse(to)
	if err != nil {
		return "", "", err
	}
	dAmount, err := Parse(amount)
	if err != nil {
		return "", "", err
	}
	if dAmount.IsNegative() {
		return "", "", fmt.Errorf("negative amount %s", amount)
	}
	return Format(dFrom.Sub(dAmount)), Format(dTo.Add(dAmount)), nil
}
