package fetch

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/dex-stats-api/internal/model"
	"github.com/yourorg/dex-stats-api/internal/registry"
	"github.com/yourorg/dex-stats-api/internal/types"
)

func TestFetchAll_PreservesRegistryOrder(t *testing.T) {
	abis := loadABIs(t)

	// Earlier chains respond slower so completion order is the reverse of registry order
	latency := map[types.SupportedChain]time.Duration{
		types.ChainBase:     120 * time.Millisecond,
		types.ChainBSC:      90 * time.Millisecond,
		types.ChainOptimism: 60 * time.Millisecond,
		types.ChainCelo:     30 * time.Millisecond,
		types.ChainArbitrum: 0,
	}

	backends := map[types.SupportedChain]*fakeBackend{}
	var configs []types.ChainConfig
	for _, chain := range types.SupportedChains {
		b := newFakeBackend(abis)
		if d := latency[chain]; d > 0 {
			b.delays = map[string]time.Duration{"totalSupply": d}
		}
		backends[chain] = b
		configs = append(configs, completeConfig(chain, abis))
	}

	f := NewFetcher(registry.FromConfigs(configs...), &fakeDialer{backends: backends})
	results := f.FetchAll(context.Background())

	require.Len(t, results, len(types.SupportedChains))
	for i, chain := range types.SupportedChains {
		assert.Equal(t, chain.String(), results[i].Chain)
		assert.Nil(t, results[i].Error, "chain %s", chain)
	}
}

func TestFetchAll_IsolatesFailures(t *testing.T) {
	abis := loadABIs(t)

	slow := newFakeBackend(abis)
	slow.delays = map[string]time.Duration{"getReserves": 10 * time.Second}

	reverting := newFakeBackend(abis)
	reverting.failMethod = "totalSupply"

	healthy := newFakeBackend(abis)
	healthy.reserveA = big.NewInt(4000)
	healthy.reserveB = big.NewInt(1000)

	incomplete := completeConfig(types.ChainCelo, abis)
	incomplete.TokenAAddress = nil

	reg := registry.FromConfigs(
		completeConfig(types.ChainBase, abis),
		completeConfig(types.ChainBSC, abis),
		completeConfig(types.ChainOptimism, abis),
		incomplete,
	)
	dialer := &fakeDialer{backends: map[types.SupportedChain]*fakeBackend{
		types.ChainBase:     slow,
		types.ChainBSC:      reverting,
		types.ChainOptimism: healthy,
	}}
	obs := &recordingObserver{}

	f := NewFetcher(reg, dialer, WithCallTimeout(100*time.Millisecond), WithObserver(obs))

	start := time.Now()
	results := f.FetchAll(context.Background())
	elapsed := time.Since(start)

	require.Len(t, results, 4)
	assert.Less(t, elapsed, 2*time.Second, "a hung chain is bounded by the call timeout")

	assert.Equal(t, "base", results[0].Chain)
	require.NotNil(t, results[0].Error)
	assert.Contains(t, *results[0].Error, "call timed out")

	assert.Equal(t, "bsc", results[1].Chain)
	require.NotNil(t, results[1].Error)
	assert.Contains(t, *results[1].Error, "totalSupply: execution reverted")

	assert.Equal(t, "optimism", results[2].Chain)
	assert.Nil(t, results[2].Error)
	assert.Equal(t, "0.250000", results[2].Price)

	assert.Equal(t, "celo", results[3].Chain)
	require.NotNil(t, results[3].Error)
	assert.Equal(t, model.MsgConfigMissing, *results[3].Error)

	assert.Equal(t, OutcomeCallFailure, obs.get("base"))
	assert.Equal(t, OutcomeCallFailure, obs.get("bsc"))
	assert.Equal(t, OutcomeOK, obs.get("optimism"))
	assert.Equal(t, OutcomeConfigMissing, obs.get("celo"))
}

func TestFetchAll_Empty(t *testing.T) {
	f := NewFetcher(registry.FromConfigs(), &fakeDialer{})
	results := f.FetchAll(context.Background())
	assert.NotNil(t, results)
	assert.Empty(t, results)
}
