// Package config loads the chain parameters and genesis account set this
// module needs to stand up a block context, from a TOML file, using
// github.com/naoina/toml — the same library the teacher uses for its own
// node configuration.
package config

import (
	"os"

	"github.com/naoina/toml"

	"github.com/morebtcg/bcos-executor-sub001/core/facade"
	"github.com/morebtcg/bcos-executor-sub001/core/state"
)

// ChainConfig holds the sys_config chain parameters (spec.md §3
// "Conventional system tables ... sys_config (chain parameters)").
type ChainConfig struct {
	GasPrice         uint64 `toml:"gas_price"`
	BlockGasLimit    uint64 `toml:"block_gas_limit"`
	MaxTxPerBlock    int    `toml:"max_tx_per_block"`
	VMKind           string `toml:"vm_kind"` // "native" or "linear"
	LRUCapacityBytes uint64 `toml:"lru_capacity_bytes"`
}

// ResolveVMKind maps the configured string to facade.VMKind, defaulting to
// facade.NATIVE for an empty or unrecognized value.
func (c ChainConfig) ResolveVMKind() facade.VMKind {
	if c.VMKind == "linear" {
		return facade.LINEAR
	}
	return facade.NATIVE
}

// Config is the root of a loaded TOML configuration file.
type Config struct {
	Chain   ChainConfig      `toml:"chain"`
	Genesis []GenesisAccount `toml:"genesis"`
}

// Defaults returns the configuration used when a field is absent from the
// TOML file: a gas price of 1, a generous block gas limit, 1000
// transactions per block, NATIVE addressing, and the same LRU capacity
// core/state.CacheLayer itself defaults to.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			GasPrice:         1,
			BlockGasLimit:    3_000_000_000,
			MaxTxPerBlock:    1000,
			VMKind:           "native",
			LRUCapacityBytes: state.DefaultMaxCapacity,
		},
	}
}

// Load reads and parses the TOML file at path, starting from Defaults() so
// any field the file omits keeps its default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Defaults()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
