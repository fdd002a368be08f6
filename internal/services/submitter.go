package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"disperse-backend/internal/clients"
	"disperse-backend/internal/metrics"
	"disperse-backend/internal/txbuilder"
)

// SubmissionRejectedError wraps a node refusal of a signed transaction
// (nonce conflict, insufficient gas funds, reverted simulation). The node's
// own text is preserved verbatim.
type SubmissionRejectedError struct {
	Err error
}

func (e *SubmissionRejectedError) Error() string {
	return fmt.Sprintf("transaction rejected by node: %v", e.Err)
}

func (e *SubmissionRejectedError) Unwrap() error { return e.Err }

// SubmitterOptions carries the optional fixed gas settings from config. Zero
// values mean ask the node.
type SubmitterOptions struct {
	GasPrice *big.Int
	GasLimit uint64
}

// Submitter signs built calls and hands them to the node. The signing key is
// a shared mutable resource: nonce selection is read-then-use, so the per-key
// lock spans the nonce query through send. Reads and amount resolution stay
// freely concurrent; only the submission span serializes.
type Submitter struct {
	backend clients.Backend
	keys    KeySelector
	chainID *big.Int
	opts    SubmitterOptions

	mu    sync.Mutex
	locks map[common.Address]*sync.Mutex

	log *logrus.Entry
}

func NewSubmitter(backend clients.Backend, keys KeySelector, chainID *big.Int, opts SubmitterOptions) *Submitter {
	return &Submitter{
		backend: backend,
		keys:    keys,
		chainID: chainID,
		opts:    opts,
		locks:   make(map[common.Address]*sync.Mutex),
		log:     logrus.WithField("component", "submitter"),
	}
}

func (s *Submitter) lockFor(addr common.Address) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[addr]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[addr] = lock
	}
	return lock
}

// Submit signs call with the key selected for from and sends it, returning
// the transaction hash as soon as the node accepts it into the mempool. No
// confirmation is awaited.
func (s *Submitter) Submit(ctx context.Context, from common.Address, call *txbuilder.ContractCall) (common.Hash, error) {
	signer, err := s.keys.Select(from)
	if err != nil {
		metrics.TxSubmissionsTotal.WithLabelValues(string(call.Operation), "signing_error").Inc()
		return common.Hash{}, err
	}

	start := time.Now()
	lock := s.lockFor(signer.Address())
	lock.Lock()
	defer lock.Unlock()

	hash, err := s.submitLocked(ctx, signer, call)
	metrics.TxSubmissionDuration.WithLabelValues(string(call.Operation)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TxSubmissionsTotal.WithLabelValues(string(call.Operation), "error").Inc()
		return common.Hash{}, err
	}
	metrics.TxSubmissionsTotal.WithLabelValues(string(call.Operation), "ok").Inc()
	return hash, nil
}

func (s *Submitter) submitLocked(ctx context.Context, signer Signer, call *txbuilder.ContractCall) (common.Hash, error) {
	from := signer.Address()

	nonce, err := s.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, clients.ClassifyNodeError("eth_getTransactionCount", err)
	}

	gasPrice, err := s.gasPrice(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	value := call.Value
	if value == nil {
		value = new(big.Int)
	}

	gasLimit, err := s.gasLimit(ctx, from, call, value)
	if err != nil {
		return common.Hash{}, err
	}

	to := call.To
	tx := types.NewTx(&types.AccessListTx{
		ChainID:    s.chainID,
		Nonce:      nonce,
		GasPrice:   gasPrice,
		Gas:        gasLimit,
		To:         &to,
		Value:      value,
		Data:       call.Data,
		AccessList: call.AccessList,
	})

	signedTx, err := signer.SignTx(tx, s.chainID)
	if err != nil {
		return common.Hash{}, &SigningError{Address: from, Err: err}
	}

	if err := s.backend.SendTransaction(ctx, signedTx); err != nil {
		classified := clients.ClassifyNodeError("eth_sendRawTransaction", err)
		var rejected *clients.RejectedError
		if errors.As(classified, &rejected) {
			return common.Hash{}, &SubmissionRejectedError{Err: err}
		}
		return common.Hash{}, classified
	}

	s.log.WithFields(logrus.Fields{
		"operation": call.Operation,
		"tx_hash":   signedTx.Hash().Hex(),
		"from":      from.Hex(),
		"to":        to.Hex(),
		"nonce":     nonce,
		"gas":       gasLimit,
		"gas_price": gasPrice.String(),
	}).Info("transaction submitted")

	return signedTx.Hash(), nil
}

func (s *Submitter) gasPrice(ctx context.Context) (*big.Int, error) {
	if s.opts.GasPrice != nil && s.opts.GasPrice.Sign() > 0 {
		return s.opts.GasPrice, nil
	}
	suggested, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, clients.ClassifyNodeError("eth_gasPrice", err)
	}
	// 20% headroom over the suggestion so a fee bump between suggestion and
	// inclusion does not strand the transaction.
	bumped := new(big.Int).Mul(suggested, big.NewInt(120))
	return bumped.Div(bumped, big.NewInt(100)), nil
}

func (s *Submitter) gasLimit(ctx context.Context, from common.Address, call *txbuilder.ContractCall, value *big.Int) (uint64, error) {
	if s.opts.GasLimit > 0 {
		return s.opts.GasLimit, nil
	}
	to := call.To
	estimate, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:       from,
		To:         &to,
		Value:      value,
		Data:       call.Data,
		AccessList: call.AccessList,
	})
	if err != nil {
		// An estimation failure is the node simulating and refusing the call.
		classified := clients.ClassifyNodeError("eth_estimateGas", err)
		var rejected *clients.RejectedError
		if errors.As(classified, &rejected) {
			return 0, &SubmissionRejectedError{Err: err}
		}
		return 0, classified
	}
	return estimate + estimate/5, nil
}
