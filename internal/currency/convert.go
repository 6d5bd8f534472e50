// Package currency converts amounts between the supported currencies using a
// rate table expressed relative to one reference currency.
//
// Arithmetic is done with shopspring/decimal so that the two-step conversion
// (divide by the source rate, multiply by the target rate) does not pick up
// binary floating point noise before rounding. Rounding is half away from zero
// to two decimal places.
package currency

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"costs/internal/core"
)

// divisionPrecision is the number of decimal digits kept by the division step.
const divisionPrecision = 16

// RateTable maps a currency code to its value relative to the reference
// currency, whose own rate is exactly 1.
type RateTable map[string]float64

// Validate checks that every supported code is present with a finite positive rate.
func (t RateTable) Validate() error {
	for _, code := range core.SupportedCurrencies() {
		if _, err := t.rate(code); err != nil {
			return err
		}
	}
	return nil
}

func (t RateTable) rate(code string) (decimal.Decimal, error) {
	r, ok := t[code]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w %q", core.ErrUnknownCurrency, code)
	}
	if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: rate for %q is %v", core.ErrInvalidRate, code, r)
	}
	return decimal.NewFromFloat(r), nil
}

// Convert converts amount from one currency to another and rounds the
// result to two decimal places. Identity conversions go through the same
// arithmetic as any other pair.
func Convert(amount float64, from, to string, rates RateTable) (float64, error) {
	exact, err := ConvertExact(amount, from, to, rates)
	if err != nil {
		return 0, err
	}
	return Round(exact), nil
}

// ConvertExact performs the conversion without the final rounding. Report
// totals accumulate these values and round once at the end.
func ConvertExact(amount float64, from, to string, rates RateTable) (decimal.Decimal, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return decimal.Decimal{}, fmt.Errorf("%w: amount %v is not finite", core.ErrInvalidInput, amount)
	}
	fromRate, err := rates.rate(from)
	if err != nil {
		return decimal.Decimal{}, err
	}
	toRate, err := rates.rate(to)
	if err != nil {
		return decimal.Decimal{}, err
	}

	normalized := decimal.NewFromFloat(amount).DivRound(fromRate, divisionPrecision)
	return normalized.Mul(toRate), nil
}

// Round rounds d to two decimal places, half away from zero.
func Round(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
