package clients

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"disperse-backend/internal/contracts"
	"disperse-backend/internal/metrics"
)

// ChainReader answers the balance and allowance questions the orchestrator
// needs before it resolves amounts. Every method is a single round trip with
// no retries.
type ChainReader struct {
	backend Backend
	log     *logrus.Entry
}

func NewChainReader(backend Backend) *ChainReader {
	return &ChainReader{
		backend: backend,
		log:     logrus.WithField("component", "chain_reader"),
	}
}

// NativeBalance returns the native balance of addr at the latest block.
func (r *ChainReader) NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	start := time.Now()
	balance, err := r.backend.BalanceAt(ctx, addr, nil)
	observeRead("eth_getBalance", start, err)
	if err != nil {
		return nil, ClassifyNodeError("eth_getBalance", err)
	}
	return balance, nil
}

// TokenBalance returns owner's balance on the given ERC20 token.
func (r *ChainReader) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return r.callERC20(ctx, token, "balanceOf", owner)
}

// TokenAllowance returns the amount owner has approved spender to move.
func (r *ChainReader) TokenAllowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	return r.callERC20(ctx, token, "allowance", owner, spender)
}

func (r *ChainReader) callERC20(ctx context.Context, token common.Address, method string, args ...interface{}) (*big.Int, error) {
	data, err := contracts.ERC20.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	start := time.Now()
	out, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	observeRead(method, start, err)
	if err != nil {
		return nil, ClassifyNodeError("eth_call "+method, err)
	}

	// A call against an address with no code returns empty data instead of
	// failing, so this is the signal for a missing token contract.
	if len(out) == 0 {
		r.log.WithFields(logrus.Fields{
			"token":  token.Hex(),
			"method": method,
		}).Warn("token call returned no data")
		return nil, &TokenNotFoundError{Token: token}
	}

	values, err := contracts.ERC20.Unpack(method, out)
	if err != nil || len(values) != 1 {
		return nil, &TokenNotFoundError{Token: token}
	}
	amount, ok := values[0].(*big.Int)
	if !ok {
		return nil, &TokenNotFoundError{Token: token}
	}
	return amount, nil
}

func observeRead(method string, start time.Time, err error) {
	metrics.ChainReadDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		kind := "unavailable"
		var rejected *RejectedError
		if errors.As(ClassifyNodeError(method, err), &rejected) {
			kind = "rejected"
		}
		metrics.ChainReadErrors.WithLabelValues(method, kind).Inc()
	}
}
