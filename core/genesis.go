package core

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"bricsengine/core/state"
	"bricsengine/core/types"
)

var genesisAppliedKey = []byte("genesis/applied")

// GenesisBalance credits an account when the store is first initialised.
type GenesisBalance struct {
	Account  common.Address
	Currency types.Currency
	Amount   *big.Int
}

// applyGenesis seeds rates, vault parameters and balances on a fresh store.
// It is a no-op once the store carries the genesis marker.
func (e *Engine) applyGenesis(cfg Config) error {
	return e.state.Update(func(tx *state.Tx) error {
		var applied bool
		ok, err := tx.KVGet(genesisAppliedKey, &applied)
		if err != nil {
			return err
		}
		if ok && applied {
			return nil
		}
		m := e.bind(tx)
		for currency, rate := range cfg.Rates {
			if !e.currencies.IsCollateral(currency) {
				return fmt.Errorf("genesis: rate for non-collateral %s", e.currencies.Symbol(currency))
			}
			if rate == nil || rate.Sign() <= 0 {
				return fmt.Errorf("genesis: rate for %s must be positive", e.currencies.Symbol(currency))
			}
			if err := tx.PutRateEntry(currency, rate); err != nil {
				return err
			}
		}
		if err := m.vault.InitParams(cfg.Vault); err != nil {
			return fmt.Errorf("genesis: %w", err)
		}
		for _, alloc := range cfg.Genesis {
			if err := m.ledger.Mint(alloc.Account, alloc.Currency, alloc.Amount); err != nil {
				return fmt.Errorf("genesis: credit %s: %w", alloc.Account.Hex(), err)
			}
		}
		return tx.KVPut(genesisAppliedKey, true)
	})
}
