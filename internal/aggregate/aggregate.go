// Package aggregate reduces raw exchange contract reads into normalized ExchangeStats.
package aggregate

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/yourorg/dex-stats-api/internal/model"
	"github.com/yourorg/dex-stats-api/internal/types"
)

// WeiDecimals is the base-unit scaling assumed for reserves and LP supply
const WeiDecimals = 18

// PriceDecimals is the number of fractional digits in a formatted price
const PriceDecimals = 6

// divisionPrecision is the number of fractional digits kept by the price quotient before
// it is rounded to PriceDecimals
const divisionPrecision = 28

// Snapshot holds the results of the four contract reads for one chain
type Snapshot struct {
	ReserveA    *big.Int
	ReserveB    *big.Int
	TotalSupply *big.Int
	SymbolA     string
	SymbolB     string

	BlockNumber    uint64
	BlockTimestamp uint64
}

// FromWei scales a base-unit integer down by WeiDecimals. A nil value is zero.
func FromWei(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -WeiDecimals)
}

// Price returns reserveB / reserveA, or zero when reserveA is zero
func Price(reserveA, reserveB *big.Int) decimal.Decimal {
	if reserveA == nil || reserveA.Sign() == 0 {
		return decimal.Zero
	}
	if reserveB == nil {
		return decimal.Zero
	}

	a := decimal.NewFromBigInt(reserveA, 0)
	b := decimal.NewFromBigInt(reserveB, 0)

	return b.DivRound(a, divisionPrecision)
}

// FormatPrice renders p with exactly PriceDecimals fractional digits, rounding half to even
func FormatPrice(p decimal.Decimal) string {
	return p.StringFixedBank(PriceDecimals)
}

// Summarize builds the success record for cfg from a completed snapshot
func Summarize(cfg types.ChainConfig, s Snapshot) model.ExchangeStats {
	supply := FromWei(s.TotalSupply)

	stats := model.ExchangeStats{
		Chain:          cfg.Chain.String(),
		Price:          FormatPrice(Price(s.ReserveA, s.ReserveB)),
		TotalLPSupply:  &supply,
		BlockNumber:    s.BlockNumber,
		BlockTimestamp: s.BlockTimestamp,
	}

	if cfg.ExchangeAddress != nil {
		stats.ExchangeAddress = cfg.ExchangeAddress.Hex()
	}

	stats.TokenA = &model.TokenStats{
		Symbol:  s.SymbolA,
		Reserve: FromWei(s.ReserveA),
	}
	if cfg.TokenAAddress != nil {
		stats.TokenA.Address = cfg.TokenAAddress.Hex()
	}

	stats.TokenB = &model.TokenStats{
		Symbol:  s.SymbolB,
		Reserve: FromWei(s.ReserveB),
	}
	if cfg.TokenBAddress != nil {
		stats.TokenB.Address = cfg.TokenBAddress.Hex()
	}

	return stats
}
