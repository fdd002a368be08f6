package services

import (
	"bytes"
	"context"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"disperse-backend/internal/allocation"
	"disperse-backend/internal/clients"
	"disperse-backend/internal/dto"
	"disperse-backend/internal/txbuilder"
)

// TxEventPublisher receives a notification for every accepted submission.
type TxEventPublisher interface {
	TransactionSubmitted(operation string, txHash common.Hash, signer common.Address)
}

// DisperseService sequences each endpoint: read the reference state, resolve
// amounts, build the call, submit. No step before Submit has side effects, so
// a failure anywhere leaves no partial on-chain state.
type DisperseService struct {
	reader    *clients.ChainReader
	builder   *txbuilder.Builder
	submitter *Submitter
	events    TxEventPublisher
	log       *logrus.Entry
}

func NewDisperseService(reader *clients.ChainReader, builder *txbuilder.Builder, submitter *Submitter, events TxEventPublisher) *DisperseService {
	return &DisperseService{
		reader:    reader,
		builder:   builder,
		submitter: submitter,
		events:    events,
		log:       logrus.WithField("component", "disperse_service"),
	}
}

// DisperseEth spreads the caller's native balance across the recipients in a
// single contract call carrying the plan total as value.
func (s *DisperseService) DisperseEth(ctx context.Context, req *dto.DisperseEthRequest) (*dto.DisperseCollectResponse, error) {
	balance, err := s.reader.NativeBalance(ctx, req.Caller)
	if err != nil {
		return nil, err
	}

	plan, err := allocation.Resolve(toSpecs(req.Recipients), balance, req.Caller)
	if err != nil {
		return nil, err
	}

	call, err := s.builder.DisperseEth(req.Caller, plan)
	if err != nil {
		return nil, err
	}

	hash, err := s.submit(ctx, req.Caller, call)
	if err != nil {
		return nil, err
	}
	return batchResponse(hash, plan), nil
}

// DisperseErc20 spreads tokens from the spender across the recipients. The
// reference total is what the spender can actually fund: the smaller of their
// balance and the allowance granted to the contract.
func (s *DisperseService) DisperseErc20(ctx context.Context, req *dto.DisperseErc20Request) (*dto.DisperseCollectResponse, error) {
	var balance, allowance *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balance, err = s.reader.TokenBalance(gctx, req.Token, req.Spender)
		return err
	})
	g.Go(func() error {
		var err error
		allowance, err = s.reader.TokenAllowance(gctx, req.Token, req.Spender, s.builder.Contract())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	available := bigMin(balance, allowance)
	plan, err := allocation.Resolve(toSpecs(req.Recipients), available, req.Spender)
	if err != nil {
		return nil, err
	}

	call, err := s.builder.DisperseERC20(req.Spender, req.Token, plan)
	if err != nil {
		return nil, err
	}

	hash, err := s.submit(ctx, req.Caller, call)
	if err != nil {
		return nil, err
	}
	return batchResponse(hash, plan), nil
}

// CollectErc20 pulls tokens from each approved spender into one recipient.
// Unlike disperse there is no shared pool: each spender's spec resolves
// against that spender's own balance, and the feasibility check is per
// spender against min(balance, allowance).
func (s *DisperseService) CollectErc20(ctx context.Context, req *dto.CollectErc20Request) (*dto.DisperseCollectResponse, error) {
	if len(req.Spenders) == 0 {
		return nil, &allocation.InvalidSpecError{Reason: "no spenders given"}
	}

	spenders := make([]common.Address, 0, len(req.Spenders))
	for addr := range req.Spenders {
		spenders = append(spenders, addr)
	}
	sort.Slice(spenders, func(i, j int) bool {
		return bytes.Compare(spenders[i][:], spenders[j][:]) < 0
	})

	type funds struct {
		balance   *big.Int
		allowance *big.Int
	}
	results := make([]funds, len(spenders))

	g, gctx := errgroup.WithContext(ctx)
	for i, spender := range spenders {
		i, spender := i, spender
		g.Go(func() error {
			balance, err := s.reader.TokenBalance(gctx, req.Token, spender)
			if err != nil {
				return err
			}
			results[i].balance = balance
			return nil
		})
		g.Go(func() error {
			allowance, err := s.reader.TokenAllowance(gctx, req.Token, spender, s.builder.Contract())
			if err != nil {
				return err
			}
			results[i].allowance = allowance
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]allocation.PlanEntry, 0, len(spenders))
	for i, spender := range spenders {
		amount, err := allocation.ResolveOne(spender, toSpec(req.Spenders[spender]), results[i].balance)
		if err != nil {
			return nil, err
		}
		available := bigMin(results[i].balance, results[i].allowance)
		if amount.Cmp(available) > 0 {
			return nil, &allocation.InsufficientTotalError{
				Address:   spender,
				Required:  amount,
				Available: available,
			}
		}
		entries = append(entries, allocation.PlanEntry{Address: spender, Amount: amount})
	}
	plan := allocation.NewPlan(entries)

	call, err := s.builder.CollectERC20(req.Token, req.Recipient, plan)
	if err != nil {
		return nil, err
	}

	hash, err := s.submit(ctx, req.Caller, call)
	if err != nil {
		return nil, err
	}
	return batchResponse(hash, plan), nil
}

// Transfer sends a fixed amount to one recipient, native when no token is
// given. The caller's balance is pre-checked so an obviously unfundable
// transfer fails before anything is signed.
func (s *DisperseService) Transfer(ctx context.Context, req *dto.TransferRequest) (*dto.TransactionResponse, error) {
	if req.Amount == nil {
		return nil, &allocation.InvalidSpecError{Address: req.Recipient, Reason: "amount is required"}
	}
	amount := &req.Amount.Int

	var available *big.Int
	var err error
	if req.Token == nil {
		available, err = s.reader.NativeBalance(ctx, req.Caller)
	} else {
		available, err = s.reader.TokenBalance(ctx, *req.Token, req.Caller)
	}
	if err != nil {
		return nil, err
	}
	if amount.Cmp(available) > 0 {
		return nil, &allocation.InsufficientTotalError{
			Address:   req.Caller,
			Required:  amount,
			Available: available,
		}
	}

	call, err := s.builder.Transfer(req.Caller, req.Recipient, req.Token, amount)
	if err != nil {
		return nil, err
	}

	hash, err := s.submit(ctx, req.Caller, call)
	if err != nil {
		return nil, err
	}
	return &dto.TransactionResponse{TxHash: hash}, nil
}

// Approve grants the spender a fixed allowance on the token. Approvals need
// no funds, so no balance is read.
func (s *DisperseService) Approve(ctx context.Context, req *dto.ApproveRequest) (*dto.TransactionResponse, error) {
	if req.Amount == nil {
		return nil, &allocation.InvalidSpecError{Address: req.Spender, Reason: "amount is required"}
	}

	call, err := s.builder.Approve(req.Caller, req.Token, req.Spender, &req.Amount.Int)
	if err != nil {
		return nil, err
	}

	hash, err := s.submit(ctx, req.Caller, call)
	if err != nil {
		return nil, err
	}
	return &dto.TransactionResponse{TxHash: hash}, nil
}

func (s *DisperseService) submit(ctx context.Context, caller common.Address, call *txbuilder.ContractCall) (common.Hash, error) {
	hash, err := s.submitter.Submit(ctx, caller, call)
	if err != nil {
		return common.Hash{}, err
	}
	if s.events != nil {
		s.events.TransactionSubmitted(string(call.Operation), hash, caller)
	}
	return hash, nil
}

func batchResponse(hash common.Hash, plan *allocation.Plan) *dto.DisperseCollectResponse {
	transfers := make(map[string]string, len(plan.Entries()))
	for _, e := range plan.Entries() {
		transfers[e.Address.Hex()] = e.Amount.String()
	}
	return &dto.DisperseCollectResponse{
		Tx:        dto.TransactionResponse{TxHash: hash},
		Transfers: transfers,
	}
}

func toSpec(f dto.FractionOrAmount) allocation.Spec {
	if f.IsAbsolute() {
		return allocation.Absolute(&f.Amount.Int)
	}
	return allocation.Proportional(&f.Fraction.Int, &f.Units.Int)
}

func toSpecs(m map[common.Address]dto.FractionOrAmount) map[common.Address]allocation.Spec {
	specs := make(map[common.Address]allocation.Spec, len(m))
	for addr, f := range m {
		specs[addr] = toSpec(f)
	}
	return specs
}

func bigMin(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}
