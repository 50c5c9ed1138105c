// Package model defines the response data structures of the stats API.
package model

import (
	"github.com/shopspring/decimal"
)

// Error messages attached to failed ExchangeStats
const (
	MsgConfigMissing = "Configuration for this chain is missing or incomplete."
	MsgFetchFailed   = "Failed to fetch data: "
)

// TokenStats describes one side of the exchange pool
type TokenStats struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`

	// Reserve is the pool balance scaled from base units (18 decimals)
	Reserve decimal.Decimal `json:"reserve"`
}

// ExchangeStats is the per-chain result of one aggregation.
// A failed aggregation only carries Chain and Error; everything else is omitted.
type ExchangeStats struct {
	Chain string `json:"chain"`

	ExchangeAddress string      `json:"exchangeAddress,omitempty"`
	TokenA          *TokenStats `json:"tokenA,omitempty"`
	TokenB          *TokenStats `json:"tokenB,omitempty"`

	// Price of token A expressed in token B, fixed to 6 fractional digits
	Price string `json:"price_AKT_per_WETH,omitempty"`

	TotalLPSupply *decimal.Decimal `json:"totalLPSupply,omitempty"`

	// Block the four reads were pinned to
	BlockNumber uint64 `json:"blockNumber,omitempty"`

	// Unix timestamp of BlockNumber, absent for chains in PoA compatibility mode
	BlockTimestamp uint64 `json:"blockTimestamp,omitempty"`

	// Error is null on success
	Error *string `json:"error"`
}

// NewErrorStats creates a failed result for chain
func NewErrorStats(chain, message string) ExchangeStats {
	return ExchangeStats{
		Chain: chain,
		Error: &message,
	}
}

// Failed reports whether the aggregation produced an error record
func (s ExchangeStats) Failed() bool {
	return s.Error != nil
}
