// Package money provides the supported currency set and the fixed-rate
// currency converter used by the billing engine. The exchange rate is a
// deployment-time constant: it is read once from configuration and never
// refreshed, so converted figures stay stable across the lifetime of a
// deployment.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is a supported settlement currency
type Currency string

const (
	INR Currency = "INR"
	EUR Currency = "EUR"
)

var (
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrInvalidRate         = errors.New("exchange rate must be positive")
)

// ParseCurrency validates a currency code against the supported set
func ParseCurrency(code string) (Currency, error) {
	switch Currency(code) {
	case INR:
		return INR, nil
	case EUR:
		return EUR, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
	}
}

// Round applies the engine-wide monetary rounding rule: two decimal places,
// half away from zero. Every monetary result must pass through this function
// or aggregated totals drift.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// Converter converts between the supported currencies using one fixed rate,
// expressed as INR per 1 EUR
type Converter struct {
	eurToINR decimal.Decimal
}

// NewConverter creates a converter with the given INR-per-EUR rate
func NewConverter(eurToINR decimal.Decimal) (*Converter, error) {
	if !eurToINR.IsPositive() {
		return nil, ErrInvalidRate
	}
	return &Converter{eurToINR: eurToINR}, nil
}

// NewConverterFromString parses the configured rate and builds a converter
func NewConverterFromString(rate string) (*Converter, error) {
	d, err := decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid exchange rate %q: %w", rate, err)
	}
	return NewConverter(d)
}

// Rate returns the INR-per-EUR rate the converter was built with
func (c *Converter) Rate() decimal.Decimal {
	return c.eurToINR
}

// ToBase converts an amount into the EUR base currency. EUR amounts pass
// through unchanged (after rounding), INR amounts are divided by the rate.
func (c *Converter) ToBase(amount decimal.Decimal, from Currency) (decimal.Decimal, error) {
	return c.Convert(amount, from, EUR)
}

// Convert converts an amount between two supported currencies. Same-currency
// conversions only normalize rounding.
func (c *Converter) Convert(amount decimal.Decimal, from, to Currency) (decimal.Decimal, error) {
	if _, err := ParseCurrency(string(from)); err != nil {
		return decimal.Zero, err
	}
	if _, err := ParseCurrency(string(to)); err != nil {
		return decimal.Zero, err
	}

	if from == to {
		return Round(amount), nil
	}

	switch {
	case from == INR && to == EUR:
		// DivRound carries extra precision before the final monetary rounding
		return Round(amount.DivRound(c.eurToINR, 8)), nil
	case from == EUR && to == INR:
		return Round(amount.Mul(c.eurToINR)), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %s to %s", ErrUnsupportedCurrency, from, to)
	}
}
