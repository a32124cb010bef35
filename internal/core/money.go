// Package core provides money parsing and handling utilities.
//
// Amounts are whole Vietnamese đồng held in an int64, so sums are exact and
// independent of iteration order.
package core

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the ISO code of the single denomination the ledger uses.
const Currency = money.VND

// Money is an amount in đồng. VND has no subunits.
type Money int64

var maxMoney = decimal.NewFromInt(math.MaxInt64)

func (m Money) Validate() error {
	if m <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Display formats the amount with the VND symbol and thousand separators.
func (m Money) Display() string {
	return money.New(int64(m), Currency).Display()
}

func (m Money) String() string {
	return m.Display()
}

// ParseMoney converts user input such as "500000" or " 1500000 " to Money.
//
// The value must be a whole, strictly positive number of đồng.
func ParseMoney(s string) (Money, error) {
	d, err := parseWhole(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if !d.IsPositive() {
		return 0, ErrInvalidAmount
	}
	return Money(d.IntPart()), nil
}

// UnmarshalJSON decodes a JSON number (or a quoted number) exactly.
// Stored snapshots written by older clients may carry values like 500000.0;
// those are accepted, while a real fraction is reported as malformed.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	s := strings.Trim(string(data), `"`)
	d, err := parseWhole(s)
	if err != nil {
		return fmt.Errorf("amount %s: %w", s, err)
	}
	*m = Money(d.IntPart())
	return nil
}

func parseWhole(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsInteger() {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.Abs().GreaterThan(maxMoney) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
