package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"bricsengine/core"
	"bricsengine/core/types"
)

// EngineConfig resolves the engine section into a core.Config. Symbols,
// rates and amounts are parsed against the configured currency table.
func (c Config) EngineConfig() (core.Config, error) {
	out := core.Config{Authority: strings.TrimSpace(c.Engine.Authority)}
	table, err := types.NewCurrencyTable(c.Engine.Currencies)
	if err != nil {
		return out, fmt.Errorf("engine.currencies: %w", err)
	}
	out.Currencies = table

	if len(c.Engine.Rates) > 0 {
		out.Rates = make(map[types.Currency]*big.Int, len(c.Engine.Rates))
		for symbol, raw := range c.Engine.Rates {
			code, err := table.Parse(symbol)
			if err != nil {
				return out, fmt.Errorf("engine.rates: %w", err)
			}
			if !table.IsCollateral(code) {
				return out, fmt.Errorf("engine.rates: %s is not a collateral currency", symbol)
			}
			rate, err := types.ParseRate(raw)
			if err != nil {
				return out, fmt.Errorf("engine.rates.%s: %w", symbol, err)
			}
			out.Rates[code] = rate
		}
	}

	if out.Vault, err = c.Engine.Vault.Params(); err != nil {
		return out, fmt.Errorf("engine.vault: %w", err)
	}
	if out.Pool, err = c.Engine.Pool.Params(types.ParseAmount); err != nil {
		return out, fmt.Errorf("engine.pool: %w", err)
	}

	out.Accounts = core.DefaultModuleAccounts()
	overrides := []struct {
		name string
		raw  string
		dst  *common.Address
	}{
		{"vault", c.Engine.Accounts.Vault, &out.Accounts.Vault},
		{"pool", c.Engine.Accounts.Pool, &out.Accounts.Pool},
		{"treasury", c.Engine.Accounts.Treasury, &out.Accounts.Treasury},
	}
	for _, o := range overrides {
		if strings.TrimSpace(o.raw) == "" {
			continue
		}
		addr, err := types.ParseAddress(o.raw)
		if err != nil {
			return out, fmt.Errorf("engine.accounts.%s: %w", o.name, err)
		}
		*o.dst = addr
	}

	for i, g := range c.Engine.Genesis {
		account, err := types.ParseAddress(g.Account)
		if err != nil {
			return out, fmt.Errorf("engine.genesis[%d].account: %w", i, err)
		}
		code, err := table.Parse(g.Currency)
		if err != nil {
			return out, fmt.Errorf("engine.genesis[%d].currency: %w", i, err)
		}
		amount, err := types.ParseAmount(g.Amount)
		if err != nil {
			return out, fmt.Errorf("engine.genesis[%d].amount: %w", i, err)
		}
		if amount.Sign() <= 0 {
			return out, fmt.Errorf("engine.genesis[%d].amount must be positive", i)
		}
		out.Genesis = append(out.Genesis, core.GenesisBalance{Account: account, Currency: code, Amount: amount})
	}
	return out, nil
}
