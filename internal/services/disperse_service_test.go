package services

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disperse-backend/internal/allocation"
	"disperse-backend/internal/clients"
	"disperse-backend/internal/contracts"
	"disperse-backend/internal/dto"
	"disperse-backend/internal/txbuilder"
)

var (
	contractAddr = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
	tokenAddr    = common.HexToAddress("0xdddddddddddddddddddddddddddddddddddddddd")
	recipA       = common.HexToAddress("0x1111111111111111111111111111111111111111")
	recipB       = common.HexToAddress("0x2222222222222222222222222222222222222222")
	spenderAddr  = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

// orchestratorBackend is a full fake node: ERC20 reads answered from
// in-memory tables plus mempool-style submission capture.
type orchestratorBackend struct {
	mu             sync.Mutex
	nativeBalances map[common.Address]*big.Int
	tokenBalances  map[common.Address]*big.Int
	allowances     map[common.Address]map[common.Address]*big.Int

	nonce uint64
	sent  []*types.Transaction

	readErr error
}

func (f *orchestratorBackend) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	if b, ok := f.nativeBalances[account]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func (f *orchestratorBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	method, err := contracts.ERC20.MethodById(msg.Data[:4])
	if err != nil {
		return nil, &rpcError{msg: "execution reverted", code: 3}
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case "balanceOf":
		balance := big.NewInt(0)
		if b, ok := f.tokenBalances[args[0].(common.Address)]; ok {
			balance = b
		}
		return method.Outputs.Pack(balance)
	case "allowance":
		allowance := big.NewInt(0)
		if a, ok := f.allowances[args[0].(common.Address)][args[1].(common.Address)]; ok {
			allowance = a
		}
		return method.Outputs.Pack(allowance)
	}
	return nil, &rpcError{msg: "execution reverted", code: 3}
}

func (f *orchestratorBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonce, nil
}

func (f *orchestratorBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1000000000), nil
}

func (f *orchestratorBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 100000, nil
}

func (f *orchestratorBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	f.nonce++
	return nil
}

type eventRecorder struct {
	operations []string
	hashes     []common.Hash
}

func (r *eventRecorder) TransactionSubmitted(operation string, txHash common.Hash, _ common.Address) {
	r.operations = append(r.operations, operation)
	r.hashes = append(r.hashes, txHash)
}

func newTestService(t *testing.T, backend clients.Backend, events TxEventPublisher) *DisperseService {
	t.Helper()
	return NewDisperseService(
		clients.NewChainReader(backend),
		txbuilder.NewBuilder(contractAddr),
		newTestSubmitter(t, backend, SubmitterOptions{}),
		events,
	)
}

func amountSpec(v int64) dto.FractionOrAmount {
	return dto.FractionOrAmount{Amount: dto.NewBigInt(big.NewInt(v))}
}

func fractionSpec(num, units int64) dto.FractionOrAmount {
	return dto.FractionOrAmount{
		Fraction: dto.NewBigInt(big.NewInt(num)),
		Units:    dto.NewBigInt(big.NewInt(units)),
	}
}

func TestDisperseEthHappyPath(t *testing.T) {
	oneEther := big.NewInt(1000000000000000000)
	backend := &orchestratorBackend{
		nativeBalances: map[common.Address]*big.Int{testKeyAddr: oneEther},
	}
	events := &eventRecorder{}
	svc := newTestService(t, backend, events)

	resp, err := svc.DisperseEth(context.Background(), &dto.DisperseEthRequest{
		Caller: testKeyAddr,
		Recipients: map[common.Address]dto.FractionOrAmount{
			recipA: fractionSpec(11, 1000),
			recipB: amountSpec(500000000000000000),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "11000000000000000", resp.Transfers[recipA.Hex()])
	assert.Equal(t, "500000000000000000", resp.Transfers[recipB.Hex()])

	require.Len(t, backend.sent, 1)
	tx := backend.sent[0]
	assert.Equal(t, resp.Tx.TxHash, tx.Hash())
	assert.Equal(t, contractAddr, *tx.To())
	assert.Equal(t, big.NewInt(511000000000000000), tx.Value(), "plan total travels as tx value")

	require.Equal(t, []string{string(txbuilder.OpDisperseNative)}, events.operations)
	assert.Equal(t, []common.Hash{tx.Hash()}, events.hashes)
}

func TestDisperseEthInsufficientBalanceSendsNothing(t *testing.T) {
	backend := &orchestratorBackend{
		nativeBalances: map[common.Address]*big.Int{testKeyAddr: big.NewInt(100)},
	}
	svc := newTestService(t, backend, nil)

	_, err := svc.DisperseEth(context.Background(), &dto.DisperseEthRequest{
		Caller: testKeyAddr,
		Recipients: map[common.Address]dto.FractionOrAmount{
			recipA: amountSpec(60),
			recipB: amountSpec(60),
		},
	})

	var insufficient *allocation.InsufficientTotalError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, big.NewInt(120), insufficient.Required)
	assert.Equal(t, big.NewInt(100), insufficient.Available)
	assert.Empty(t, backend.sent)
}

func TestDisperseErc20UsesMinOfBalanceAndAllowance(t *testing.T) {
	backend := &orchestratorBackend{
		tokenBalances: map[common.Address]*big.Int{spenderAddr: big.NewInt(1000)},
		allowances: map[common.Address]map[common.Address]*big.Int{
			spenderAddr: {contractAddr: big.NewInt(600)},
		},
	}
	svc := newTestService(t, backend, nil)

	resp, err := svc.DisperseErc20(context.Background(), &dto.DisperseErc20Request{
		Caller:  testKeyAddr,
		Spender: spenderAddr,
		Token:   tokenAddr,
		Recipients: map[common.Address]dto.FractionOrAmount{
			recipA: fractionSpec(1, 2),
		},
	})
	require.NoError(t, err)

	// Half of min(1000, 600), not half of the balance.
	assert.Equal(t, "300", resp.Transfers[recipA.Hex()])

	require.Len(t, backend.sent, 1)
	tx := backend.sent[0]
	assert.Equal(t, contractAddr, *tx.To())
	assert.Zero(t, tx.Value().Sign())

	method := contracts.DisperseCollect.Methods["disperseERC20"]
	require.Equal(t, method.ID, tx.Data()[:4])
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, spenderAddr, args[0])
	assert.Equal(t, tokenAddr, args[1])
	assert.Equal(t, []common.Address{recipA}, args[2])
	assert.Equal(t, []*big.Int{big.NewInt(300)}, args[3])
}

func TestDisperseErc20AllowanceShortfall(t *testing.T) {
	backend := &orchestratorBackend{
		tokenBalances: map[common.Address]*big.Int{spenderAddr: big.NewInt(1000)},
		allowances: map[common.Address]map[common.Address]*big.Int{
			spenderAddr: {contractAddr: big.NewInt(100)},
		},
	}
	svc := newTestService(t, backend, nil)

	_, err := svc.DisperseErc20(context.Background(), &dto.DisperseErc20Request{
		Caller:  testKeyAddr,
		Spender: spenderAddr,
		Token:   tokenAddr,
		Recipients: map[common.Address]dto.FractionOrAmount{
			recipA: amountSpec(500),
		},
	})

	var insufficient *allocation.InsufficientTotalError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, spenderAddr, insufficient.Address)
	assert.Equal(t, big.NewInt(100), insufficient.Available)
	assert.Empty(t, backend.sent)
}

func TestCollectErc20PerSpenderReference(t *testing.T) {
	recipient := common.HexToAddress("0x4444444444444444444444444444444444444444")
	backend := &orchestratorBackend{
		tokenBalances: map[common.Address]*big.Int{
			recipA: big.NewInt(700),
			recipB: big.NewInt(1000),
		},
		allowances: map[common.Address]map[common.Address]*big.Int{
			recipA: {contractAddr: big.NewInt(1000000)},
			recipB: {contractAddr: big.NewInt(1000000)},
		},
	}
	svc := newTestService(t, backend, nil)

	resp, err := svc.CollectErc20(context.Background(), &dto.CollectErc20Request{
		Caller:    testKeyAddr,
		Recipient: recipient,
		Token:     tokenAddr,
		Spenders: map[common.Address]dto.FractionOrAmount{
			recipA: fractionSpec(3, 10),
			recipB: fractionSpec(3, 10),
		},
	})
	require.NoError(t, err)

	// 3/10 of each spender's own balance.
	assert.Equal(t, "210", resp.Transfers[recipA.Hex()])
	assert.Equal(t, "300", resp.Transfers[recipB.Hex()])

	require.Len(t, backend.sent, 1)
	tx := backend.sent[0]
	method := contracts.DisperseCollect.Methods["collectERC20"]
	require.Equal(t, method.ID, tx.Data()[:4])
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, args[0])
	assert.Equal(t, recipient, args[1])
	assert.Equal(t, []common.Address{recipA, recipB}, args[2])
	assert.Equal(t, []*big.Int{big.NewInt(210), big.NewInt(300)}, args[3])
}

func TestCollectErc20AllowanceShortfall(t *testing.T) {
	backend := &orchestratorBackend{
		tokenBalances: map[common.Address]*big.Int{recipA: big.NewInt(700)},
		allowances: map[common.Address]map[common.Address]*big.Int{
			recipA: {contractAddr: big.NewInt(100)},
		},
	}
	svc := newTestService(t, backend, nil)

	_, err := svc.CollectErc20(context.Background(), &dto.CollectErc20Request{
		Caller:    testKeyAddr,
		Recipient: recipB,
		Token:     tokenAddr,
		Spenders: map[common.Address]dto.FractionOrAmount{
			recipA: fractionSpec(3, 10),
		},
	})

	var insufficient *allocation.InsufficientTotalError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, recipA, insufficient.Address)
	assert.Equal(t, big.NewInt(210), insufficient.Required)
	assert.Equal(t, big.NewInt(100), insufficient.Available)
	assert.Empty(t, backend.sent)
}

func TestCollectErc20NoSpenders(t *testing.T) {
	svc := newTestService(t, &orchestratorBackend{}, nil)

	_, err := svc.CollectErc20(context.Background(), &dto.CollectErc20Request{
		Caller:    testKeyAddr,
		Recipient: recipA,
		Token:     tokenAddr,
		Spenders:  map[common.Address]dto.FractionOrAmount{},
	})
	var invalid *allocation.InvalidSpecError
	require.ErrorAs(t, err, &invalid)
}

func TestTransferNativeInsufficient(t *testing.T) {
	backend := &orchestratorBackend{
		nativeBalances: map[common.Address]*big.Int{testKeyAddr: big.NewInt(50)},
	}
	svc := newTestService(t, backend, nil)

	_, err := svc.Transfer(context.Background(), &dto.TransferRequest{
		Caller:    testKeyAddr,
		Recipient: recipA,
		Amount:    dto.NewBigInt(big.NewInt(100)),
	})

	var insufficient *allocation.InsufficientTotalError
	require.ErrorAs(t, err, &insufficient)
	assert.Empty(t, backend.sent)
}

func TestTransferErc20(t *testing.T) {
	backend := &orchestratorBackend{
		tokenBalances: map[common.Address]*big.Int{testKeyAddr: big.NewInt(500)},
	}
	events := &eventRecorder{}
	svc := newTestService(t, backend, events)

	resp, err := svc.Transfer(context.Background(), &dto.TransferRequest{
		Caller:    testKeyAddr,
		Recipient: recipA,
		Token:     &tokenAddr,
		Amount:    dto.NewBigInt(big.NewInt(123)),
	})
	require.NoError(t, err)

	require.Len(t, backend.sent, 1)
	tx := backend.sent[0]
	assert.Equal(t, resp.TxHash, tx.Hash())
	assert.Equal(t, tokenAddr, *tx.To())

	method := contracts.ERC20.Methods["transfer"]
	require.Equal(t, method.ID, tx.Data()[:4])

	assert.Equal(t, []string{string(txbuilder.OpTransfer)}, events.operations)
}

func TestApproveReadsNothing(t *testing.T) {
	// A backend whose read paths all fail proves approve never touches them.
	backend := &orchestratorBackend{readErr: assert.AnError}
	svc := newTestService(t, backend, nil)

	resp, err := svc.Approve(context.Background(), &dto.ApproveRequest{
		Caller:  testKeyAddr,
		Spender: spenderAddr,
		Token:   tokenAddr,
		Amount:  dto.NewBigInt(big.NewInt(5000)),
	})
	require.NoError(t, err)

	require.Len(t, backend.sent, 1)
	tx := backend.sent[0]
	assert.Equal(t, resp.TxHash, tx.Hash())
	assert.Equal(t, tokenAddr, *tx.To())

	method := contracts.ERC20.Methods["approve"]
	require.Equal(t, method.ID, tx.Data()[:4])
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, spenderAddr, args[0])
	assert.Equal(t, big.NewInt(5000), args[1])
}
