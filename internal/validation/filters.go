// Package validation provides checks applied to chain settings before they enter the registry.
package validation

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// allowedSchemes are the RPC URL schemes go-ethereum's rpc package can dial
var allowedSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ws":    true,
	"wss":   true,
}

// ParseAddress parses an optional hex contract address.
// An empty value returns a nil address and no error: the setting is absent.
func ParseAddress(raw string) (*common.Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if !common.IsHexAddress(raw) {
		return nil, fmt.Errorf("invalid address %q", raw)
	}

	addr := common.HexToAddress(raw)
	if addr == (common.Address{}) {
		return nil, fmt.Errorf("zero address %q", raw)
	}

	return &addr, nil
}

// ValidateRPCEndpoint checks that endpoint is an absolute URL with a dialable scheme
func ValidateRPCEndpoint(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("empty RPC endpoint")
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid RPC endpoint %q: %w", endpoint, err)
	}

	if !allowedSchemes[strings.ToLower(u.Scheme)] {
		return fmt.Errorf("unsupported RPC endpoint scheme %q", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("RPC endpoint %q has no host", endpoint)
	}

	return nil
}

// ChainAddresses holds the raw address settings of a chain
type ChainAddresses struct {
	Exchange string
	TokenA   string
	TokenB   string
}

// ParsedAddresses holds the result of ParseChainAddresses, nil meaning absent
type ParsedAddresses struct {
	Exchange *common.Address
	TokenA   *common.Address
	TokenB   *common.Address
}

// ParseChainAddresses parses all three addresses of a chain and fails on the first malformed one.
// Absent values are not an error.
func ParseChainAddresses(chain string, raw ChainAddresses) (ParsedAddresses, error) {
	var (
		parsed ParsedAddresses
		err    error
	)

	fields := []struct {
		name string
		raw  string
		dst  **common.Address
	}{
		{"exchange", raw.Exchange, &parsed.Exchange},
		{"tokenA", raw.TokenA, &parsed.TokenA},
		{"tokenB", raw.TokenB, &parsed.TokenB},
	}

	for _, f := range fields {
		*f.dst, err = ParseAddress(f.raw)
		if err != nil {
			return ParsedAddresses{}, fmt.Errorf("%s address: %w", f.name, err)
		}
		if *f.dst == nil {
			logrus.WithFields(logrus.Fields{
				"chain": chain,
				"field": f.name,
			}).Debug("Contract address not set")
		}
	}

	return parsed, nil
}
