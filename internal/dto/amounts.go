package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// BigInt is a non-negative arbitrary-precision integer that travels as a
// decimal string in JSON. 18-decimal token amounts overflow int64, so every
// amount field in the API uses this type.
type BigInt struct {
	big.Int
}

// NewBigInt copies x into a BigInt.
func NewBigInt(x *big.Int) *BigInt {
	b := new(BigInt)
	b.Set(x)
	return b
}

func (b BigInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *BigInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		return errors.New("amount must be a decimal integer string")
	}
	if _, ok := b.SetString(s, 10); !ok {
		return fmt.Errorf("invalid decimal integer: %q", s)
	}
	if b.Sign() < 0 {
		return fmt.Errorf("amount must not be negative: %q", s)
	}
	return nil
}

// defaultUnits is the denominator assumed when a fraction is given without
// units, making bare fractions read as percentages.
var defaultUnits = big.NewInt(100)

// FractionOrAmount is the wire form of a recipient spec: exactly one of
// {"amount": "<int>"} or {"fraction": "<int>", "units": "<int>"}.
type FractionOrAmount struct {
	Amount   *BigInt
	Fraction *BigInt
	Units    *BigInt
}

func (f *FractionOrAmount) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount   *BigInt `json:"amount"`
		Fraction *BigInt `json:"fraction"`
		Units    *BigInt `json:"units"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch {
	case raw.Amount != nil && raw.Fraction == nil && raw.Units == nil:
		f.Amount = raw.Amount
	case raw.Fraction != nil && raw.Amount == nil:
		f.Fraction = raw.Fraction
		f.Units = raw.Units
		if f.Units == nil {
			f.Units = NewBigInt(defaultUnits)
		}
	default:
		return errors.New(`spec must be either {"amount": ...} or {"fraction": ..., "units": ...}`)
	}
	return nil
}

// IsAbsolute reports whether the spec carries a fixed amount rather than a
// fraction of a reference total.
func (f FractionOrAmount) IsAbsolute() bool {
	return f.Amount != nil
}
