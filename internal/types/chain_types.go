// Package types contains shared type definitions used across multiple packages
package types

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// SupportedChain represents a blockchain network hosting a deployment of the exchange
type SupportedChain string

// Supported blockchain networks
const (
	ChainBase     SupportedChain = "base"
	ChainBSC      SupportedChain = "bsc"
	ChainOptimism SupportedChain = "optimism"
	ChainCelo     SupportedChain = "celo"
	ChainArbitrum SupportedChain = "arbitrum"
)

// SupportedChains is the fixed, ordered list of chains the service knows about.
// Registry order and the order of /stats/all follow this list.
var SupportedChains = []SupportedChain{
	ChainBase,
	ChainBSC,
	ChainOptimism,
	ChainCelo,
	ChainArbitrum,
}

// poaChains use proof-of-authority style block headers
var poaChains = map[SupportedChain]bool{
	ChainBSC:  true,
	ChainCelo: true,
}

// String returns the chain identifier
func (c SupportedChain) String() string {
	return string(c)
}

// EnvPrefix returns the prefix used for the chain's environment variables, e.g. "BSC"
func (c SupportedChain) EnvPrefix() string {
	return strings.ToUpper(string(c))
}

// RequiresPoA reports whether RPC clients for this chain need PoA compatibility mode
func (c SupportedChain) RequiresPoA() bool {
	return poaChains[c]
}

// IsSupported reports whether name is one of SupportedChains
func IsSupported(name string) bool {
	for _, c := range SupportedChains {
		if string(c) == name {
			return true
		}
	}
	return false
}

// ContractABIs holds the three contract interface descriptors. The same contract code
// is deployed on every chain, so a single instance is shared by all ChainConfigs.
type ContractABIs struct {
	Exchange *abi.ABI
	TokenA   *abi.ABI
	TokenB   *abi.ABI
}

// ChainConfig holds connection and contract configuration for one chain.
// It is built once at startup and never mutated afterwards.
type ChainConfig struct {
	Chain       SupportedChain
	RPCEndpoint string

	// Nil addresses mean the chain is configured but incomplete
	ExchangeAddress *common.Address
	TokenAAddress   *common.Address
	TokenBAddress   *common.Address

	ABIs *ContractABIs

	// PoA enables the proof-of-authority compatibility mode on the RPC client
	PoA bool
}

// Complete reports whether every contract address is present
func (c ChainConfig) Complete() bool {
	return c.ExchangeAddress != nil && c.TokenAAddress != nil && c.TokenBAddress != nil && c.ABIs != nil
}
