package core

import (
	"fmt"
	"math"
	"strings"
)

// Supported currency codes. USD is the reference currency of the default rate table.
const (
	USD  = "USD"
	GBP  = "GBP"
	EURO = "EURO"
	ILS  = "ILS"
)

type (
	// NewCost is the caller supplied part of a cost item. The store assigns
	// the id and the date fields.
	NewCost struct {
		Sum         float64
		Currency    string
		Category    string
		Description string
	}

	// CostItem is a single stored expense. Sum and Currency are kept exactly
	// as entered; conversion happens at report time.
	CostItem struct {
		ID          int64   `json:"id"`
		Sum         float64 `json:"sum"`
		Currency    string  `json:"currency"`
		Category    string  `json:"category"`
		Description string  `json:"description"`
		Year        int     `json:"year"`
		Month       int     `json:"month"` // 1-12
		Day         int     `json:"day"`
	}

	// Total is an amount expressed in a single currency.
	Total struct {
		Currency string  `json:"currency"`
		Total    float64 `json:"total"`
	}

	// MonthlyReport lists the costs of one (year, month) in their original
	// currencies plus one converted grand total.
	MonthlyReport struct {
		Year  int        `json:"year"`
		Month int        `json:"month"`
		Costs []CostItem `json:"costs"`
		Total Total      `json:"total"`
	}

	// MonthTotal is one bar of the yearly view.
	MonthTotal struct {
		Month int     `json:"month"`
		Total float64 `json:"total"`
	}
)

var supportedCurrencies = []string{USD, GBP, EURO, ILS}

// SuggestedCategories are offered to users; the store accepts any label.
var SuggestedCategories = []string{"Food", "Car", "Health", "Education", "Housing", "Other"}

// SupportedCurrencies returns the closed set of currency codes.
func SupportedCurrencies() []string {
	return append([]string(nil), supportedCurrencies...)
}

// IsSupportedCurrency reports whether code belongs to the supported set.
func IsSupportedCurrency(code string) bool {
	for _, c := range supportedCurrencies {
		if c == code {
			return true
		}
	}
	return false
}

// ValidMonth reports whether month is within 1-12.
func ValidMonth(month int) bool {
	return month >= 1 && month <= 12
}

// Validate checks the input a user submits before it reaches the store.
// The store itself accepts anything matching the field types.
func (c NewCost) Validate() error {
	if math.IsNaN(c.Sum) || math.IsInf(c.Sum, 0) || c.Sum <= 0 {
		return fmt.Errorf("%w: sum must be a finite positive number", ErrInvalidInput)
	}
	if !IsSupportedCurrency(c.Currency) {
		return fmt.Errorf("%w: unsupported currency %q", ErrInvalidInput, c.Currency)
	}
	if strings.TrimSpace(c.Category) == "" {
		return fmt.Errorf("%w: empty category", ErrInvalidInput)
	}
	if strings.TrimSpace(c.Description) == "" {
		return fmt.Errorf("%w: empty description", ErrInvalidInput)
	}
	if len(c.Description) > 200 {
		return fmt.Errorf("%w: description too long (max 200 characters)", ErrInvalidInput)
	}
	return nil
}
