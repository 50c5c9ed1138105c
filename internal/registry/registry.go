// Package registry builds the process-wide chain registry at startup.
//
// The registry maps each supported chain to its RPC endpoint, contract addresses and the
// shared contract ABIs. It is assembled once from environment settings and is read-only
// afterwards, so it can be shared between request handlers without locking.
package registry

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/dex-stats-api/internal/types"
	"github.com/yourorg/dex-stats-api/internal/validation"
)

// DefaultRPCPattern is used when {CHAIN}_RPC_URL is not set
const DefaultRPCPattern = "https://%s.drpc.org"

// Environment variable suffixes, prefixed with the upper-cased chain name
const (
	EnvRPCURL          = "_RPC_URL"
	EnvExchangeAddress = "_AMM_EXCHANGE_ADDRESS"
	EnvTokenAAddress   = "_AKIN_TOKEN_ADDRESS"
	EnvTokenBAddress   = "_WETH_TOKEN_ADDRESS"
)

// LookupFunc reads a configuration value, reporting whether it was set
type LookupFunc func(key string) (string, bool)

// Diagnostic records why a chain was left out of the registry
type Diagnostic struct {
	Chain  string `json:"chain"`
	Reason string `json:"reason"`
}

// Options controls how Build assembles the registry
type Options struct {
	// Chains to attempt, in order. Defaults to types.SupportedChains.
	Chains []types.SupportedChain

	// Lookup reads per-chain settings. Defaults to os.LookupEnv.
	Lookup LookupFunc

	// ABIs loads the shared contract descriptors. Defaults to the embedded descriptors.
	ABIs ABILoader
}

// Registry is the read-only mapping from chain identifier to ChainConfig
type Registry struct {
	chains      map[string]types.ChainConfig
	order       []string
	diagnostics []Diagnostic
}

// Build assembles a ChainConfig for every chain in opts.Chains. A chain whose assembly fails
// is omitted and recorded as a Diagnostic; it never prevents other chains from loading.
func Build(opts Options) *Registry {
	if opts.Chains == nil {
		opts.Chains = types.SupportedChains
	}
	if opts.Lookup == nil {
		opts.Lookup = os.LookupEnv
	}
	if opts.ABIs == nil {
		opts.ABIs = EmbeddedABIs()
	}

	r := &Registry{
		chains: make(map[string]types.ChainConfig, len(opts.Chains)),
	}

	// Every deployment runs the same contract code, so the descriptors are loaded once
	// and the parsed value is shared by all chains.
	abis, abiErr := opts.ABIs.Load()

	for _, chain := range opts.Chains {
		var (
			cfg types.ChainConfig
			err error
		)
		if abiErr != nil {
			err = fmt.Errorf("load contract ABIs: %w", abiErr)
		} else {
			cfg, err = assemble(chain, opts.Lookup, abis)
		}

		if err != nil {
			logrus.WithFields(logrus.Fields{
				"chain": chain,
				"error": err,
			}).Warn("Could not load chain configuration, chain will be unavailable")
			r.diagnostics = append(r.diagnostics, Diagnostic{Chain: chain.String(), Reason: err.Error()})
			continue
		}

		if _, dup := r.chains[chain.String()]; dup {
			continue
		}
		r.chains[chain.String()] = cfg
		r.order = append(r.order, chain.String())

		logrus.WithFields(logrus.Fields{
			"chain":    chain,
			"rpc":      cfg.RPCEndpoint,
			"complete": cfg.Complete(),
			"poa":      cfg.PoA,
		}).Debug("Chain configuration loaded")
	}

	logrus.Infof("Chain registry built: %d/%d chains configured", len(r.order), len(opts.Chains))
	return r
}

// FromConfigs creates a registry directly from prepared configurations, in the given order.
// Later duplicates of a chain are ignored.
func FromConfigs(configs ...types.ChainConfig) *Registry {
	r := &Registry{
		chains: make(map[string]types.ChainConfig, len(configs)),
	}
	for _, cfg := range configs {
		name := cfg.Chain.String()
		if _, dup := r.chains[name]; dup {
			continue
		}
		r.chains[name] = cfg
		r.order = append(r.order, name)
	}
	return r
}

// assemble builds the configuration of a single chain
func assemble(chain types.SupportedChain, lookup LookupFunc, abis *types.ContractABIs) (types.ChainConfig, error) {
	prefix := chain.EnvPrefix()

	rpcURL := lookupValue(lookup, prefix+EnvRPCURL)
	if rpcURL == "" {
		rpcURL = fmt.Sprintf(DefaultRPCPattern, chain)
	}
	if err := validation.ValidateRPCEndpoint(rpcURL); err != nil {
		return types.ChainConfig{}, err
	}

	addrs, err := validation.ParseChainAddresses(chain.String(), validation.ChainAddresses{
		Exchange: lookupValue(lookup, prefix+EnvExchangeAddress),
		TokenA:   lookupValue(lookup, prefix+EnvTokenAAddress),
		TokenB:   lookupValue(lookup, prefix+EnvTokenBAddress),
	})
	if err != nil {
		return types.ChainConfig{}, err
	}

	return types.ChainConfig{
		Chain:           chain,
		RPCEndpoint:     rpcURL,
		ExchangeAddress: addrs.Exchange,
		TokenAAddress:   addrs.TokenA,
		TokenBAddress:   addrs.TokenB,
		ABIs:            abis,
		PoA:             chain.RequiresPoA(),
	}, nil
}

func lookupValue(lookup LookupFunc, key string) string {
	if v, ok := lookup(key); ok {
		return v
	}
	return ""
}

// Get returns the configuration for chain
func (r *Registry) Get(chain string) (types.ChainConfig, bool) {
	cfg, ok := r.chains[chain]
	return cfg, ok
}

// Configured returns the loaded chains in supported-chain order
func (r *Registry) Configured() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Diagnostics returns the chains that failed to load and why
func (r *Registry) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(r.diagnostics))
	copy(out, r.diagnostics)
	return out
}
