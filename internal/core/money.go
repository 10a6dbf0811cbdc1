// Package core provides money parsing and handling utilities.
//
// This file contains the Money value type: an amount in some currency plus
// the exchange rate used to normalize it into the base currency.
package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// BaseCurrency is the currency every amount is normalized into.
const BaseCurrency Currency = "KRW"

var maxBase = decimal.NewFromInt(math.MaxInt64)

type (
	Currency string

	// Money holds the operator-entered inputs and the base amount derived
	// from them. The base amount can only be produced by NewMoney.
	Money struct {
		Foreign  decimal.Decimal
		Currency Currency
		Rate     decimal.Decimal
		base     int64
	}

	// RateTable maps currencies to the default exchange rate offered when the
	// operator does not type one.
	RateTable map[Currency]decimal.Decimal
)

// ParseCurrency normalizes a currency code. Blank means the base currency.
func ParseCurrency(s string) (Currency, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return BaseCurrency, nil
	}
	if len(s) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
		}
	}
	return Currency(s), nil
}

// IsBase reports whether c is the base currency.
func (c Currency) IsBase() bool {
	return c == BaseCurrency
}

// NewMoney validates the inputs and derives the base amount as
// round-half-up(amount * rate). Base-currency money always carries rate 1.
func NewMoney(amount decimal.Decimal, currency Currency, rate decimal.Decimal) (Money, error) {
	cur, err := ParseCurrency(string(currency))
	if err != nil {
		return Money{}, err
	}
	if amount.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, amount)
	}
	if cur.IsBase() {
		rate = decimal.NewFromInt(1)
	}
	if !rate.IsPositive() {
		return Money{}, fmt.Errorf("%w: %s must be greater than zero", ErrInvalidRate, rate)
	}
	product := amount.Mul(rate).Round(0)
	if product.GreaterThan(maxBase) {
		return Money{}, fmt.Errorf("%w: %s x %s overflows", ErrInvalidAmount, amount, rate)
	}
	return Money{Foreign: amount, Currency: cur, Rate: rate, base: product.IntPart()}, nil
}

// BaseMoney is shorthand for an amount already in the base currency.
func BaseMoney(amount int64) Money {
	m, _ := NewMoney(decimal.NewFromInt(amount), BaseCurrency, decimal.NewFromInt(1))
	return m
}

// Base returns the amount in the base currency.
func (m Money) Base() int64 {
	return m.base
}

// Recompute re-derives the base amount from the current foreign amount and
// rate, with the same checks and base-currency rate as NewMoney.
func (m Money) Recompute() (Money, error) {
	return NewMoney(m.Foreign, m.Currency, m.Rate)
}

// WithAmount returns a copy with a new foreign amount.
func (m Money) WithAmount(amount decimal.Decimal) (Money, error) {
	return NewMoney(amount, m.Currency, m.Rate)
}

// WithRate returns a copy with a new exchange rate.
func (m Money) WithRate(rate decimal.Decimal) (Money, error) {
	return NewMoney(m.Foreign, m.Currency, rate)
}

func (m Money) Validate() error {
	n, err := NewMoney(m.Foreign, m.Currency, m.Rate)
	if err != nil {
		return err
	}
	if n.Currency != m.Currency || !n.Rate.Equal(m.Rate) {
		return fmt.Errorf("%w: %s money must use rate 1, got %s", ErrInvalidRate, m.Currency, m.Rate)
	}
	if n.base != m.base {
		return fmt.Errorf("%w: stale base amount %d, want %d", ErrInvalidAmount, m.base, n.base)
	}
	return nil
}

// String renders "1,350,000 KRW" or "1,000 KRW (740.74 USD @ 1.35)".
func (m Money) String() string {
	if m.Currency.IsBase() {
		return fmt.Sprintf("%d %s", m.base, BaseCurrency)
	}
	return fmt.Sprintf("%d %s (%s %s @ %s)", m.base, BaseCurrency, m.Foreign, m.Currency, m.Rate)
}

// ParseAmount parses operator or sheet text into a non-negative decimal.
// Thousands separators (commas) and surrounding spaces are ignored.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	return d, nil
}

// ParseRate parses an exchange rate, which must be greater than zero.
func ParseRate(s string) (decimal.Decimal, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidRate, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q must be greater than zero", ErrInvalidRate, s)
	}
	return d, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty value")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	return decimal.NewFromString(s)
}

// DefaultRate returns the rate offered for c when the operator gives none.
func (t RateTable) DefaultRate(c Currency) (decimal.Decimal, error) {
	if c.IsBase() {
		return decimal.NewFromInt(1), nil
	}
	if r, ok := t[c]; ok && r.IsPositive() {
		return r, nil
	}
	return decimal.Zero, fmt.Errorf("%w: no default rate configured for %s", ErrInvalidRate, c)
}
