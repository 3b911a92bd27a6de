package config

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/morebtcg/bcos-executor-sub001/common"
	"github.com/morebtcg/bcos-executor-sub001/core/facade"
)

// GenesisAccount seeds one account's starting balance at block zero.
// Identity is a hex NATIVE address or a LINEAR path depending on the
// chain's configured VM-kind; Balance is the ASCII-decimal string the
// account schema's value fields use (spec.md §6).
type GenesisAccount struct {
	Identity string `toml:"identity"`
	Balance  string `toml:"balance"`
}

// Apply creates every genesis account against f with its starting balance
// and a zero nonce. Intended to run once, before the first block's
// transactions execute.
func (c Config) Apply(ctx context.Context, f *facade.Facade) error {
	for _, acct := range c.Genesis {
		amount, err := common.DecodeDecimal(acct.Balance)
		if err != nil {
			return fmt.Errorf("config: genesis account %q: %w", acct.Identity, err)
		}
		if err := f.CreateAccount(ctx, common.Identity(acct.Identity), uint256.NewInt(0), amount); err != nil {
			return fmt.Errorf("config: genesis account %q: %w", acct.Identity, err)
		}
	}
	return nil
}
