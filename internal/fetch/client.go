// Package fetch reads live exchange statistics from each chain's contracts.
package fetch

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/yourorg/dex-stats-api/internal/types"
)

// Backend is the part of an Ethereum JSON-RPC client the fetcher uses.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractCaller

	// BlockNumber returns the latest block number without decoding a header
	BlockNumber(ctx context.Context) (uint64, error)

	// HeaderByNumber returns a block header, nil meaning latest
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)

	Close()
}

// Dialer opens a Backend bound to a chain's RPC endpoint
type Dialer interface {
	Dial(ctx context.Context, cfg types.ChainConfig) (Backend, error)
}

// RPCDialer dials JSON-RPC endpoints over a shared HTTP client
type RPCDialer struct {
	httpClient *http.Client
}

// NewRPCDialer creates a dialer whose HTTP transport retries failed requests up to retryMax
// times. Zero disables retries.
func NewRPCDialer(retryMax int) *RPCDialer {
	return &RPCDialer{
		httpClient: StandardClient(newRetryClient(retryMax)),
	}
}

// Dial creates a fresh client for cfg. Each request gets its own client; nothing is shared
// between requests except the HTTP connection pool.
func (d *RPCDialer) Dial(ctx context.Context, cfg types.ChainConfig) (Backend, error) {
	c, err := rpc.DialOptions(ctx, cfg.RPCEndpoint, rpc.WithHTTPClient(d.httpClient))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.RPCEndpoint, err)
	}
	return ethclient.NewClient(c), nil
}

// newRetryClient creates a new HTTP client with retry capabilities
func newRetryClient(retryMax int) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = retryMax
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 3 * time.Second
	c.Logger = nil
	return c
}

// StandardClient converts a retryablehttp.Client to a standard http.Client
func StandardClient(retryClient *retryablehttp.Client) *http.Client {
	return retryClient.StandardClient()
}
