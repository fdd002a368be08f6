package clients

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Backend is the subset of *ethclient.Client the service touches. Narrowed so
// the reader, submitter and orchestrator can be tested against a fake node.
type Backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

var _ Backend = (*ethclient.Client)(nil)

// UnavailableError wraps a transport-level failure reaching the node.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("error communicating with node (%s): %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// RejectedError wraps an execution error the node returned for a read call.
type RejectedError struct {
	Op  string
	Err error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("node rejected %s: %v", e.Op, e.Err)
}

func (e *RejectedError) Unwrap() error { return e.Err }

// TokenNotFoundError reports a token address that does not respond to the
// ERC20 interface.
type TokenNotFoundError struct {
	Token common.Address
}

func (e *TokenNotFoundError) Error() string {
	return fmt.Sprintf("erc20 not found at address: %s", e.Token.Hex())
}

// ClassifyNodeError splits node failures into execution errors (the node
// answered with a JSON-RPC error) and transport failures (it did not answer
// at all). Retrying is left to the caller's operational layer either way.
func ClassifyNodeError(op string, err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return &RejectedError{Op: op, Err: err}
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return &RejectedError{Op: op, Err: err}
	}
	return &UnavailableError{Op: op, Err: err}
}
