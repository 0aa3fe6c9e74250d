// Package fixedPoint implements exact integer arithmetic on token amounts expressed
// in atomic units (an amount scaled by 10^decimals of its asset).
//
// Every division floors. Pro-rata computations always take the form
// floor(numerator * scale / denominator) so that the ledger never pays out more
// than it holds.
package fixedPoint

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ErrUnderflow       = errors.New("fixed point underflow")
	ErrDivisionByZero  = errors.New("fixed point division by zero")
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrTooManyDecimals = errors.New("amount has more decimals than the asset supports")
)

// Zero returns a new zero amount.
func Zero() *big.Int {
	return new(big.Int)
}

// Copy returns an independent copy of a. A nil amount copies to zero.
func Copy(a *big.Int) *big.Int {
	if a == nil {
		return Zero()
	}
	return new(big.Int).Set(a)
}

func FromUint64(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

func IsZero(a *big.Int) bool {
	return a == nil || a.Sign() == 0
}

func IsPositive(a *big.Int) bool {
	return a != nil && a.Sign() > 0
}

// Add returns a + b.
func Add(a, b *big.Int) *big.Int {
	return new(big.Int).Add(Copy(a), Copy(b))
}

// Sub returns a - b, failing with ErrUnderflow when the result would be negative.
func Sub(a, b *big.Int) (*big.Int, error) {
	res := new(big.Int).Sub(Copy(a), Copy(b))
	if res.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s - %s", ErrUnderflow, Copy(a).String(), Copy(b).String())
	}
	return res, nil
}

// SubFloor returns max(a - b, 0).
func SubFloor(a, b *big.Int) *big.Int {
	res := new(big.Int).Sub(Copy(a), Copy(b))
	if res.Sign() < 0 {
		return Zero()
	}
	return res
}

// MulDivFloor returns floor(a * b / c).
func MulDivFloor(a, b, c *big.Int) (*big.Int, error) {
	if IsZero(c) {
		return nil, ErrDivisionByZero
	}
	num := new(big.Int).Mul(Copy(a), Copy(b))
	if num.Sign() < 0 || c.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	// Quo truncates toward zero, which is floor for non-negative operands.
	return num.Quo(num, c), nil
}

// Percent returns floor(a * percent / 100).
func Percent(a *big.Int, percent uint64) *big.Int {
	res, _ := MulDivFloor(a, FromUint64(percent), big.NewInt(100))
	return res
}

func Min(a, b *big.Int) *big.Int {
	if Copy(a).Cmp(Copy(b)) <= 0 {
		return Copy(a)
	}
	return Copy(b)
}

// Sum adds every amount in values.
func Sum(values ...*big.Int) *big.Int {
	total := Zero()
	for _, v := range values {
		if v != nil {
			total.Add(total, v)
		}
	}
	return total
}

// ParseUnits converts a human readable amount such as "0.225" into atomic units of
// an asset with the given number of decimals.
func ParseUnits(amount string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	if d.IsNegative() {
		return nil, ErrNegativeAmount
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: %s with %d decimals", ErrTooManyDecimals, amount, decimals)
	}
	return scaled.BigInt(), nil
}

// MustParseUnits is ParseUnits for constants known to be valid.
func MustParseUnits(amount string, decimals int32) *big.Int {
	v, err := ParseUnits(amount, decimals)
	if err != nil {
		panic(err)
	}
	return v
}

// FormatUnits renders atomic units as a human readable decimal string.
func FormatUnits(amount *big.Int, decimals int32) string {
	return decimal.NewFromBigInt(Copy(amount), -decimals).String()
}
