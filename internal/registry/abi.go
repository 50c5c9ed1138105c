package registry

import (
	"embed"
	"fmt"
	"io/fs"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/yourorg/dex-stats-api/internal/types"
)

// Descriptor file names inside an ABI source
const (
	ExchangeABIFile = "AmmExchange.json"
	TokenAABIFile   = "AkinToken.json"
	TokenBABIFile   = "WethToken.json"
)

//go:embed abi/*.json
var embeddedABIs embed.FS

// ABILoader loads the three shared contract descriptors
type ABILoader interface {
	Load() (*types.ContractABIs, error)
}

// FSLoader reads the descriptors from a file system
type FSLoader struct {
	FS fs.FS
}

// EmbeddedABIs returns a loader for the descriptors compiled into the binary
func EmbeddedABIs() FSLoader {
	sub, err := fs.Sub(embeddedABIs, "abi")
	if err != nil {
		// abi/ is embedded at build time
		panic(err)
	}
	return FSLoader{FS: sub}
}

// DirABIs returns a loader reading descriptors from dir
func DirABIs(dir string) FSLoader {
	return FSLoader{FS: os.DirFS(dir)}
}

// Load parses all three descriptors, failing on the first unreadable one
func (l FSLoader) Load() (*types.ContractABIs, error) {
	exchange, err := parseABI(l.FS, ExchangeABIFile)
	if err != nil {
		return nil, err
	}
	tokenA, err := parseABI(l.FS, TokenAABIFile)
	if err != nil {
		return nil, err
	}
	tokenB, err := parseABI(l.FS, TokenBABIFile)
	if err != nil {
		return nil, err
	}

	abis := &types.ContractABIs{
		Exchange: exchange,
		TokenA:   tokenA,
		TokenB:   tokenB,
	}
	if err := checkMethods(abis); err != nil {
		return nil, err
	}
	return abis, nil
}

func parseABI(fsys fs.FS, name string) (*abi.ABI, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	parsed, err := abi.JSON(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return &parsed, nil
}

// checkMethods verifies the descriptors expose the read methods the stats aggregator calls
func checkMethods(abis *types.ContractABIs) error {
	required := []struct {
		file    string
		abi     *abi.ABI
		method  string
		outputs int
	}{
		{ExchangeABIFile, abis.Exchange, "getReserves", 2},
		{ExchangeABIFile, abis.Exchange, "totalSupply", 1},
		{TokenAABIFile, abis.TokenA, "symbol", 1},
		{TokenBABIFile, abis.TokenB, "symbol", 1},
	}

	for _, r := range required {
		m, ok := r.abi.Methods[r.method]
		if !ok {
			return fmt.Errorf("%s: missing method %s", r.file, r.method)
		}
		if len(m.Outputs) != r.outputs {
			return fmt.Errorf("%s: method %s returns %d values, want %d", r.file, r.method, len(m.Outputs), r.outputs)
		}
	}
	return nil
}
