package fetch

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yourorg/dex-stats-api/internal/aggregate"
	"github.com/yourorg/dex-stats-api/internal/model"
	"github.com/yourorg/dex-stats-api/internal/otel"
	"github.com/yourorg/dex-stats-api/internal/types"
)

// DefaultCallTimeout bounds each RPC call when no timeout is configured
const DefaultCallTimeout = 10 * time.Second

// Outcome classifies the result of one FetchStats invocation
type Outcome string

const (
	OutcomeOK            Outcome = "ok"
	OutcomeConfigMissing Outcome = "config_missing"
	OutcomeCallFailure   Outcome = "call_failure"
)

// ChainSource provides chain configurations, typically a *registry.Registry
type ChainSource interface {
	Get(chain string) (types.ChainConfig, bool)
	Configured() []string
}

// Observer is notified after every FetchStats call
type Observer interface {
	ObserveFetch(chain string, outcome Outcome, duration time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveFetch(string, Outcome, time.Duration) {}

// Fetcher produces ExchangeStats for configured chains
type Fetcher struct {
	chains      ChainSource
	dialer      Dialer
	callTimeout time.Duration
	observer    Observer
	tracer      trace.Tracer
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithCallTimeout bounds every RPC call. Non-positive values are ignored.
func WithCallTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.callTimeout = d
		}
	}
}

// WithObserver registers an Observer for fetch outcomes
func WithObserver(o Observer) Option {
	return func(f *Fetcher) {
		if o != nil {
			f.observer = o
		}
	}
}

// WithTracer overrides the tracer used for fetch spans
func WithTracer(t trace.Tracer) Option {
	return func(f *Fetcher) {
		if t != nil {
			f.tracer = t
		}
	}
}

// NewFetcher creates a Fetcher reading configurations from chains and connecting through dialer
func NewFetcher(chains ChainSource, dialer Dialer, opts ...Option) *Fetcher {
	f := &Fetcher{
		chains:      chains,
		dialer:      dialer,
		callTimeout: DefaultCallTimeout,
		observer:    noopObserver{},
		tracer:      otel.Tracer(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchStats returns the live statistics of chain's exchange. It never fails: every error is
// converted into an error record for that chain.
func (f *Fetcher) FetchStats(ctx context.Context, chain string) model.ExchangeStats {
	start := time.Now()

	ctx, span := f.tracer.Start(ctx, "fetch.FetchStats", trace.WithAttributes(attribute.String("chain", chain)))
	defer span.End()

	stats, outcome, err := f.fetch(ctx, chain)

	span.SetAttributes(attribute.String("outcome", string(outcome)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		logrus.WithFields(logrus.Fields{
			"chain":   chain,
			"outcome": outcome,
			"error":   err,
		}).Warn("Failed to fetch exchange stats")
	}

	f.observer.ObserveFetch(chain, outcome, time.Since(start))
	return stats
}

func (f *Fetcher) fetch(ctx context.Context, chain string) (model.ExchangeStats, Outcome, error) {
	cfg, ok := f.chains.Get(chain)
	if !ok || !cfg.Complete() {
		return model.NewErrorStats(chain, model.MsgConfigMissing), OutcomeConfigMissing, ErrConfigMissing
	}

	snap, err := f.readSnapshot(ctx, cfg)
	if err != nil {
		return model.NewErrorStats(chain, model.MsgFetchFailed+err.Error()), OutcomeCallFailure, err
	}

	logrus.WithFields(logrus.Fields{
		"chain": chain,
		"block": snap.BlockNumber,
	}).Debug("Fetched exchange stats")

	return aggregate.Summarize(cfg, snap), OutcomeOK, nil
}

// readSnapshot pins the latest block and then issues the four contract reads concurrently.
// The reads succeed or fail together; the first failure cancels the others.
func (f *Fetcher) readSnapshot(ctx context.Context, cfg types.ChainConfig) (aggregate.Snapshot, error) {
	backend, err := f.dialer.Dial(ctx, cfg)
	if err != nil {
		return aggregate.Snapshot{}, err
	}
	defer backend.Close()

	var snap aggregate.Snapshot
	if err := f.pinBlock(ctx, backend, cfg.PoA, &snap); err != nil {
		return aggregate.Snapshot{}, err
	}
	block := new(big.Int).SetUint64(snap.BlockNumber)

	exchange := bind.NewBoundContract(*cfg.ExchangeAddress, *cfg.ABIs.Exchange, backend, nil, nil)
	tokenA := bind.NewBoundContract(*cfg.TokenAAddress, *cfg.ABIs.TokenA, backend, nil, nil)
	tokenB := bind.NewBoundContract(*cfg.TokenBAddress, *cfg.ABIs.TokenB, backend, nil, nil)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		out, err := f.call(gctx, exchange, block, "getReserves")
		if err != nil {
			return err
		}
		if snap.ReserveA, err = bigOutput(out, 0, "getReserves"); err != nil {
			return err
		}
		snap.ReserveB, err = bigOutput(out, 1, "getReserves")
		return err
	})

	g.Go(func() error {
		out, err := f.call(gctx, exchange, block, "totalSupply")
		if err != nil {
			return err
		}
		snap.TotalSupply, err = bigOutput(out, 0, "totalSupply")
		return err
	})

	g.Go(func() error {
		out, err := f.call(gctx, tokenA, block, "symbol")
		if err != nil {
			return err
		}
		snap.SymbolA, err = stringOutput(out, 0, "symbol")
		return err
	})

	g.Go(func() error {
		out, err := f.call(gctx, tokenB, block, "symbol")
		if err != nil {
			return err
		}
		snap.SymbolB, err = stringOutput(out, 0, "symbol")
		return err
	})

	if err := g.Wait(); err != nil {
		return aggregate.Snapshot{}, err
	}
	return snap, nil
}

// pinBlock resolves the block the reads are pinned to. Chains in PoA compatibility mode never
// decode block headers, whose extra data does not follow the mainnet layout.
func (f *Fetcher) pinBlock(ctx context.Context, backend Backend, poa bool, snap *aggregate.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, f.callTimeout)
	defer cancel()

	if poa {
		n, err := backend.BlockNumber(ctx)
		if err != nil {
			return newCallError("blockNumber", f.callTimeout, err)
		}
		snap.BlockNumber = n
		return nil
	}

	header, err := backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return newCallError("header", f.callTimeout, err)
	}
	if header == nil || header.Number == nil {
		return newCallError("header", f.callTimeout, fmt.Errorf("empty header"))
	}
	snap.BlockNumber = header.Number.Uint64()
	snap.BlockTimestamp = header.Time
	return nil
}

// call performs one read-only contract call under the per-call timeout
func (f *Fetcher) call(ctx context.Context, c *bind.BoundContract, block *big.Int, method string) ([]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, f.callTimeout)
	defer cancel()

	var out []interface{}
	opts := &bind.CallOpts{Context: ctx, BlockNumber: block}
	if err := c.Call(opts, &out, method); err != nil {
		return nil, newCallError(method, f.callTimeout, err)
	}
	return out, nil
}

func bigOutput(out []interface{}, i int, method string) (*big.Int, error) {
	if i >= len(out) {
		return nil, &CallError{Method: method, Err: fmt.Errorf("missing output %d", i)}
	}
	v, ok := out[i].(*big.Int)
	if !ok || v == nil {
		return nil, &CallError{Method: method, Err: fmt.Errorf("output %d: unexpected type %T", i, out[i])}
	}
	return v, nil
}

func stringOutput(out []interface{}, i int, method string) (string, error) {
	if i >= len(out) {
		return "", &CallError{Method: method, Err: fmt.Errorf("missing output %d", i)}
	}
	v, ok := out[i].(string)
	if !ok {
		return "", &CallError{Method: method, Err: fmt.Errorf("output %d: unexpected type %T", i, out[i])}
	}
	return v, nil
}
