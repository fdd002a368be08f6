package txbuilder

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Storage slots of the common ERC20 implementation: the balances mapping at
// slot 0 and the allowances mapping at slot 1. A mapping entry lives at
// keccak256(pad32(key) ++ pad32(slot)). Tokens with a different layout still
// work: the access list is an optimization and over- or mis-inclusion only
// costs gas, never correctness.
const (
	erc20BalancesSlot   = 0
	erc20AllowancesSlot = 1
)

// BalanceSlot derives the storage key of holder's balance entry.
func BalanceSlot(holder common.Address) common.Hash {
	return common.BytesToHash(crypto.Keccak256(padAddress(holder), padSlot(erc20BalancesSlot)))
}

// AllowanceSlot derives the storage key of the allowance[owner][spender]
// entry: the outer mapping hash becomes the slot of the inner one.
func AllowanceSlot(owner, spender common.Address) common.Hash {
	inner := crypto.Keccak256(padAddress(owner), padSlot(erc20AllowancesSlot))
	return common.BytesToHash(crypto.Keccak256(padAddress(spender), inner))
}

func padAddress(addr common.Address) []byte {
	return common.LeftPadBytes(addr.Bytes(), 32)
}

func padSlot(slot uint64) []byte {
	return common.BigToHash(new(big.Int).SetUint64(slot)).Bytes()
}
