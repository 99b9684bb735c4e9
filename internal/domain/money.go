package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor currency units (paise). All arithmetic on
// balances, prices and totals happens in int64 minor units so that sums are
// exact; decimal representations exist only at the JSON boundary.
type Money int64

// ParseMoney converts a decimal amount string ("12.50") into minor units.
// Fractions finer than two decimal places are rejected rather than rounded.
func ParseMoney(raw string) (Money, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	units := d.Mul(decimal.NewFromInt(100))
	if !units.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than two decimal places", raw)
	}
	if !units.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %q out of range", raw)
	}
	return Money(units.IntPart()), nil
}

// Decimal returns the major-unit decimal value, e.g. Money(1250) -> 12.50.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON emits the amount as a decimal number of major units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().StringFixed(2)), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
