package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Currency is an ISO 4217 alphabetic code from the fixed set the service tracks.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	UAH Currency = "UAH" // counter currency only, never queried
)

// ErrUnsupportedCurrency is returned when a caller asks for a currency outside the query set.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// QueryableCurrencies lists the instruments clients may ask about, in display order.
var QueryableCurrencies = []Currency{USD, EUR}

var numericCodes = map[Currency]int{
	USD: 840,
	EUR: 978,
	UAH: 980,
}

// NumericCode returns the ISO 4217 numeric code, or 0 for an unknown currency.
func (c Currency) NumericCode() int {
	return numericCodes[c]
}

// Queryable reports whether c may be requested through the query surface.
func (c Currency) Queryable() bool {
	return c == USD || c == EUR
}

func (c Currency) String() string { return string(c) }

// CurrencyFromNumeric resolves an ISO 4217 numeric code.
func CurrencyFromNumeric(code int) (Currency, bool) {
	for c, n := range numericCodes {
		if n == code {
			return c, true
		}
	}
	return "", false
}

// ParseCurrency resolves a three-letter code, case-insensitively.
func ParseCurrency(code string) (Currency, bool) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if _, ok := numericCodes[c]; !ok {
		return "", false
	}
	return c, true
}

// ParseQueryCurrency validates user input against the query set.
// Both alphabetic ("usd") and numeric ("840") codes are accepted.
func ParseQueryCurrency(raw string) (Currency, error) {
	c, ok := ParseCurrency(raw)
	if !ok {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			c, ok = CurrencyFromNumeric(n)
		}
	}
	if !ok || !c.Queryable() {
		return "", fmt.Errorf("%w: got %q", ErrUnsupportedCurrency, raw)
	}
	return c, nil
}
