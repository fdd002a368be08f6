package allocation

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// InvalidSpecError reports a recipient spec that can never resolve to a valid
// amount, independent of chain state.
type InvalidSpecError struct {
	Address common.Address
	Reason  string
}

func (e *InvalidSpecError) Error() string {
	if e.Address == (common.Address{}) {
		return fmt.Sprintf("invalid recipient spec: %s", e.Reason)
	}
	return fmt.Sprintf("invalid recipient spec for %s: %s", e.Address.Hex(), e.Reason)
}

// InsufficientTotalError reports resolved amounts that exceed the reference
// total. Address identifies the account whose pool was exceeded.
type InsufficientTotalError struct {
	Address   common.Address
	Required  *big.Int
	Available *big.Int
}

func (e *InsufficientTotalError) Error() string {
	return fmt.Sprintf("insufficient funds for address %s, required: %s, available: %s, check balance or allowance",
		e.Address.Hex(), e.Required, e.Available)
}

type specKind int

const (
	absolute specKind = iota
	proportional
)

// Spec is a recipient specification: either an absolute token amount or a
// fraction/units pair evaluated against a reference total.
type Spec struct {
	kind   specKind
	amount *big.Int
	num    *big.Int
	den    *big.Int
}

// Absolute builds a spec that resolves to exactly amount.
func Absolute(amount *big.Int) Spec {
	return Spec{kind: absolute, amount: amount}
}

// Proportional builds a spec that resolves to floor(reference*fraction/units).
func Proportional(fraction, units *big.Int) Spec {
	return Spec{kind: proportional, num: fraction, den: units}
}

func (s Spec) String() string {
	switch s.kind {
	case absolute:
		return s.amount.String()
	case proportional:
		return fmt.Sprintf("%s/%s", s.num, s.den)
	}
	return "invalid"
}

// PlanEntry is one resolved transfer.
type PlanEntry struct {
	Address common.Address
	Amount  *big.Int
}

// Plan is a resolved transfer plan. Entries are ordered by address so that
// identical inputs always produce identical plans.
type Plan struct {
	entries []PlanEntry
}

// NewPlan wraps pre-resolved entries, sorting them by address.
func NewPlan(entries []PlanEntry) *Plan {
	sorted := make([]PlanEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Address[:], sorted[j].Address[:]) < 0
	})
	return &Plan{entries: sorted}
}

func (p *Plan) Entries() []PlanEntry { return p.entries }

func (p *Plan) Addresses() []common.Address {
	out := make([]common.Address, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.Address
	}
	return out
}

func (p *Plan) Amounts() []*big.Int {
	out := make([]*big.Int, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.Amount
	}
	return out
}

// Total is the sum of all resolved amounts.
func (p *Plan) Total() *big.Int {
	total := new(big.Int)
	for _, e := range p.entries {
		total.Add(total, e.Amount)
	}
	return total
}

// ResolveOne resolves a single spec against a reference total. Truncation
// remainder from proportional entries is dropped, never redistributed.
func ResolveOne(addr common.Address, s Spec, reference *big.Int) (*big.Int, error) {
	switch s.kind {
	case absolute:
		if s.amount == nil || s.amount.Sign() < 0 {
			return nil, &InvalidSpecError{Address: addr, Reason: "amount must be a non-negative integer"}
		}
		return new(big.Int).Set(s.amount), nil

	case proportional:
		if s.num == nil || s.den == nil || s.num.Sign() < 0 {
			return nil, &InvalidSpecError{Address: addr, Reason: "fraction must be a non-negative integer"}
		}
		if s.den.Sign() <= 0 {
			return nil, &InvalidSpecError{Address: addr, Reason: "units must be greater than zero"}
		}
		if s.num.Cmp(s.den) > 0 {
			return nil, &InvalidSpecError{Address: addr, Reason: fmt.Sprintf("fraction %s exceeds the whole", s)}
		}
		if reference == nil {
			reference = new(big.Int)
		}
		// Unbounded intermediate precision: multiply first, divide once.
		resolved := new(big.Int).Mul(reference, s.num)
		resolved.Div(resolved, s.den)
		if resolved.Sign() == 0 {
			return nil, &InvalidSpecError{Address: addr, Reason: fmt.Sprintf("fraction %s results in zero amount for the available total", s)}
		}
		return resolved, nil
	}
	return nil, &InvalidSpecError{Address: addr, Reason: "unknown spec kind"}
}

// Resolve turns a recipient map into a transfer plan against a single shared
// reference total. The insufficient-total check runs only after every entry
// has resolved, so the caller sees the aggregate shortfall rather than the
// first oversized entry. Owner identifies the account the reference total
// belongs to and is only used in error reporting.
func Resolve(recipients map[common.Address]Spec, reference *big.Int, owner common.Address) (*Plan, error) {
	if len(recipients) == 0 {
		return nil, &InvalidSpecError{Reason: "no recipients given"}
	}
	if reference == nil {
		reference = new(big.Int)
	}

	addrs := make([]common.Address, 0, len(recipients))
	for addr := range recipients {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})

	entries := make([]PlanEntry, 0, len(addrs))
	sum := new(big.Int)
	for _, addr := range addrs {
		amount, err := ResolveOne(addr, recipients[addr], reference)
		if err != nil {
			return nil, err
		}
		sum.Add(sum, amount)
		entries = append(entries, PlanEntry{Address: addr, Amount: amount})
	}

	if sum.Cmp(reference) > 0 {
		return nil, &InsufficientTotalError{Address: owner, Required: sum, Available: reference}
	}

	return &Plan{entries: entries}, nil
}
