// Package txbuilder turns resolved transfer plans into ready-to-sign contract
// calls. It is pure: everything here derives from the inputs and static
// contract metadata, never from the network.
package txbuilder

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"disperse-backend/internal/allocation"
	"disperse-backend/internal/contracts"
)

// Operation names the kind of outbound call, used for logging and metrics.
type Operation string

const (
	OpDisperseNative Operation = "disperse-native"
	OpDisperseToken  Operation = "disperse-token"
	OpCollectToken   Operation = "collect-token"
	OpTransfer       Operation = "transfer"
	OpApprove        Operation = "approve"
)

// UnsupportedOperationError reports an operation/argument combination that is
// structurally invalid, independent of chain state.
type UnsupportedOperationError struct {
	Op     Operation
	Reason string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported %s operation: %s", e.Op, e.Reason)
}

// ContractCall is a fully built outbound invocation, ready for the submitter.
type ContractCall struct {
	Operation  Operation
	To         common.Address
	Data       []byte
	Value      *big.Int
	AccessList types.AccessList
}

// Builder constructs calls against one deployed DisperseCollect contract.
type Builder struct {
	contract common.Address
}

func NewBuilder(contract common.Address) *Builder {
	return &Builder{contract: contract}
}

// Contract returns the deployed contract address calls are built against.
func (b *Builder) Contract() common.Address { return b.contract }

// DisperseEth builds the native disperse call. The plan total rides along as
// transaction value; recipients appear in the access list because native
// transfers touch their account entries.
func (b *Builder) DisperseEth(caller common.Address, plan *allocation.Plan) (*ContractCall, error) {
	data, err := contracts.DisperseCollect.Pack("disperseEth", plan.Addresses(), plan.Amounts())
	if err != nil {
		return nil, fmt.Errorf("pack disperseEth: %w", err)
	}

	accessList := types.AccessList{{Address: b.contract}}
	for _, addr := range plan.Addresses() {
		accessList = append(accessList, types.AccessTuple{Address: addr})
	}

	return &ContractCall{
		Operation:  OpDisperseNative,
		To:         b.contract,
		Data:       data,
		Value:      plan.Total(),
		AccessList: accessList,
	}, nil
}

// DisperseERC20 builds the token disperse call: the contract pulls the plan
// total from spender via its allowance and fans it out to the recipients.
func (b *Builder) DisperseERC20(spender, token common.Address, plan *allocation.Plan) (*ContractCall, error) {
	if token == (common.Address{}) {
		return nil, &UnsupportedOperationError{Op: OpDisperseToken, Reason: "token address required"}
	}

	data, err := contracts.DisperseCollect.Pack("disperseERC20", spender, token, plan.Addresses(), plan.Amounts())
	if err != nil {
		return nil, fmt.Errorf("pack disperseERC20: %w", err)
	}

	keys := []common.Hash{
		BalanceSlot(spender),
		AllowanceSlot(spender, b.contract),
	}
	for _, addr := range plan.Addresses() {
		keys = append(keys, BalanceSlot(addr))
	}

	return &ContractCall{
		Operation: OpDisperseToken,
		To:        b.contract,
		Data:      data,
		Value:     new(big.Int),
		AccessList: types.AccessList{
			{Address: token, StorageKeys: keys},
			{Address: b.contract},
		},
	}, nil
}

// CollectERC20 builds the collect call pulling each owner's resolved amount
// into recipient.
func (b *Builder) CollectERC20(token, recipient common.Address, plan *allocation.Plan) (*ContractCall, error) {
	if token == (common.Address{}) {
		return nil, &UnsupportedOperationError{Op: OpCollectToken, Reason: "token address required"}
	}

	data, err := contracts.DisperseCollect.Pack("collectERC20", token, recipient, plan.Addresses(), plan.Amounts())
	if err != nil {
		return nil, fmt.Errorf("pack collectERC20: %w", err)
	}

	keys := []common.Hash{BalanceSlot(recipient)}
	for _, owner := range plan.Addresses() {
		keys = append(keys, BalanceSlot(owner), AllowanceSlot(owner, b.contract))
	}

	return &ContractCall{
		Operation: OpCollectToken,
		To:        b.contract,
		Data:      data,
		Value:     new(big.Int),
		AccessList: types.AccessList{
			{Address: token, StorageKeys: keys},
			{Address: b.contract},
		},
	}, nil
}

// Transfer builds a single-recipient send: a plain value transfer when token
// is nil, an ERC20 transfer otherwise.
func (b *Builder) Transfer(caller, recipient common.Address, token *common.Address, amount *big.Int) (*ContractCall, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, &UnsupportedOperationError{Op: OpTransfer, Reason: "amount must be a non-negative integer"}
	}

	if token == nil {
		return &ContractCall{
			Operation: OpTransfer,
			To:        recipient,
			Value:     new(big.Int).Set(amount),
			AccessList: types.AccessList{
				{Address: caller},
				{Address: recipient},
			},
		}, nil
	}

	if *token == (common.Address{}) {
		return nil, &UnsupportedOperationError{Op: OpTransfer, Reason: "token address must not be the zero address"}
	}

	data, err := contracts.ERC20.Pack("transfer", recipient, amount)
	if err != nil {
		return nil, fmt.Errorf("pack transfer: %w", err)
	}

	return &ContractCall{
		Operation: OpTransfer,
		To:        *token,
		Data:      data,
		Value:     new(big.Int),
		AccessList: types.AccessList{
			{Address: caller},
			{Address: *token, StorageKeys: []common.Hash{
				BalanceSlot(caller),
				BalanceSlot(recipient),
			}},
		},
	}, nil
}

// Approve builds the ERC20 approve call granting spender an allowance from
// caller.
func (b *Builder) Approve(caller, token, spender common.Address, amount *big.Int) (*ContractCall, error) {
	if token == (common.Address{}) {
		return nil, &UnsupportedOperationError{Op: OpApprove, Reason: "token address required"}
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, &UnsupportedOperationError{Op: OpApprove, Reason: "amount must be a non-negative integer"}
	}

	data, err := contracts.ERC20.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("pack approve: %w", err)
	}

	return &ContractCall{
		Operation: OpApprove,
		To:        token,
		Data:      data,
		Value:     new(big.Int),
		AccessList: types.AccessList{
			{Address: caller},
			{Address: spender},
			{Address: token, StorageKeys: []common.Hash{
				AllowanceSlot(caller, spender),
			}},
		},
	}, nil
}
