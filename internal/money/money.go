// Package money converts between the human unit shown to clients and the
// smallest indivisible unit the ledger stores.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"rideledger/internal/domain"
)

var (
	// ErrInvalidAmount is returned for text that is not a decimal number.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNegativeAmount is returned for amounts below zero.
	ErrNegativeAmount = errors.New("amount must not be negative")

	// ErrTooPrecise is returned when an amount has more decimal places than the unit allows.
	ErrTooPrecise = errors.New("amount has too many decimal places")

	// ErrOutOfRange is returned when an amount does not fit the ledger's integer unit.
	ErrOutOfRange = errors.New("amount out of range")
)

// Parse converts a human-unit decimal string such as "12.50" into smallest
// units, given the number of decimal places between the two.
func Parse(s string, decimals int32) (domain.Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return 0, ErrNegativeAmount
	}

	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s allows %d", ErrTooPrecise, s, decimals)
	}
	if !scaled.BigInt().IsInt64() {
		return 0, ErrOutOfRange
	}
	return domain.Amount(scaled.IntPart()), nil
}

// Format renders smallest units as a human-unit string with exactly decimals places.
func Format(amount domain.Amount, decimals int32) string {
	return decimal.New(int64(amount), -decimals).StringFixed(decimals)
}
