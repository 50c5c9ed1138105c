package fetch

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/dex-stats-api/internal/registry"
	"github.com/yourorg/dex-stats-api/internal/types"
)

var (
	testExchange = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testTokenA   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testTokenB   = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func loadABIs(t *testing.T) *types.ContractABIs {
	t.Helper()
	abis, err := registry.EmbeddedABIs().Load()
	require.NoError(t, err)
	return abis
}

func completeConfig(chain types.SupportedChain, abis *types.ContractABIs) types.ChainConfig {
	exchange, tokenA, tokenB := testExchange, testTokenA, testTokenB
	return types.ChainConfig{
		Chain:           chain,
		RPCEndpoint:     fmt.Sprintf("https://%s.invalid", chain),
		ExchangeAddress: &exchange,
		TokenAAddress:   &tokenA,
		TokenBAddress:   &tokenB,
		ABIs:            abis,
		PoA:             chain.RequiresPoA(),
	}
}

// fakeBackend answers contract calls by decoding calldata against the real ABIs
type fakeBackend struct {
	abis *types.ContractABIs

	reserveA, reserveB *big.Int
	supply             *big.Int
	symbolA, symbolB   string

	blockNumber uint64
	blockTime   uint64

	// failMethod makes that method revert
	failMethod string
	// delays holds per-method latency; a call waits for it or for its context
	delays map[string]time.Duration
	// blockErr fails the block lookup
	blockErr error

	calls        atomic.Int32
	headerCalls  atomic.Int32
	numberCalls  atomic.Int32
	closed       atomic.Bool
	mu           sync.Mutex
	pinnedBlocks []*big.Int
}

func newFakeBackend(abis *types.ContractABIs) *fakeBackend {
	return &fakeBackend{
		abis:        abis,
		reserveA:    big.NewInt(1000),
		reserveB:    big.NewInt(2000),
		supply:      big.NewInt(500),
		symbolA:     "AKT",
		symbolB:     "WETH",
		blockNumber: 1234,
		blockTime:   1700000000,
	}
}

func (b *fakeBackend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (b *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	b.calls.Add(1)
	b.mu.Lock()
	b.pinnedBlocks = append(b.pinnedBlocks, blockNumber)
	b.mu.Unlock()

	if msg.To == nil || len(msg.Data) < 4 {
		return nil, errors.New("malformed call")
	}

	var contract *abi.ABI
	switch *msg.To {
	case testExchange:
		contract = b.abis.Exchange
	case testTokenA:
		contract = b.abis.TokenA
	case testTokenB:
		contract = b.abis.TokenB
	default:
		return nil, fmt.Errorf("no contract at %s", msg.To.Hex())
	}

	method, err := contract.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}

	if d, ok := b.delays[method.Name]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if method.Name == b.failMethod {
		return nil, errors.New("execution reverted")
	}

	switch {
	case method.Name == "getReserves":
		return method.Outputs.Pack(b.reserveA, b.reserveB)
	case method.Name == "totalSupply":
		return method.Outputs.Pack(b.supply)
	case method.Name == "symbol" && *msg.To == testTokenA:
		return method.Outputs.Pack(b.symbolA)
	case method.Name == "symbol" && *msg.To == testTokenB:
		return method.Outputs.Pack(b.symbolB)
	}
	return nil, fmt.Errorf("unexpected method %s", method.Name)
}

func (b *fakeBackend) BlockNumber(ctx context.Context) (uint64, error) {
	b.numberCalls.Add(1)
	if b.blockErr != nil {
		return 0, b.blockErr
	}
	return b.blockNumber, nil
}

func (b *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error) {
	b.headerCalls.Add(1)
	if b.blockErr != nil {
		return nil, b.blockErr
	}
	return &gethtypes.Header{
		Number: new(big.Int).SetUint64(b.blockNumber),
		Time:   b.blockTime,
	}, nil
}

func (b *fakeBackend) Close() {
	b.closed.Store(true)
}

// fakeDialer hands out one fakeBackend per chain
type fakeDialer struct {
	backends map[types.SupportedChain]*fakeBackend
	dialErr  error
	dials    atomic.Int32
}

func (d *fakeDialer) Dial(ctx context.Context, cfg types.ChainConfig) (Backend, error) {
	d.dials.Add(1)
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	b, ok := d.backends[cfg.Chain]
	if !ok {
		return nil, fmt.Errorf("no backend for %s", cfg.Chain)
	}
	return b, nil
}

// recordingObserver captures fetch outcomes
type recordingObserver struct {
	mu       sync.Mutex
	outcomes map[string]Outcome
}

func (o *recordingObserver) ObserveFetch(chain string, outcome Outcome, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = map[string]Outcome{}
	}
	o.outcomes[chain] = outcome
}

func (o *recordingObserver) get(chain string) Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcomes[chain]
}
