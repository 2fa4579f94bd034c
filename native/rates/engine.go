package rates

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"bricsengine/core/types"
	nativecommon "bricsengine/native/common"
)

// RateEntry is the authority-set price of one collateral currency in BRICS,
// scaled by 10,000.
type RateEntry struct {
	Currency types.Currency
	Rate     *big.Int
}

type engineState interface {
	RateEntry(currency types.Currency) (*big.Int, bool, error)
	PutRateEntry(currency types.Currency, rate *big.Int) error
}

// Engine maintains the rate table.
type Engine struct {
	currencies *types.CurrencyTable
	authority  string
	state      engineState
}

// NewEngine constructs a rate table engine for the configured currencies.
func NewEngine(currencies *types.CurrencyTable, authority string) *Engine {
	return &Engine{currencies: currencies, authority: authority}
}

// SetState binds the engine to a state transaction.
func (e *Engine) SetState(state engineState) {
	if e == nil {
		return
	}
	e.state = state
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return fmt.Errorf("rates: engine not initialised")
	}
	return nil
}

// SetExchangeRate replaces the stored rate of a collateral currency. Only the
// configured authority may call it.
func (e *Engine) SetExchangeRate(caller common.Address, currency types.Currency, rate *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.RequireAuthority(e.authority, caller); err != nil {
		return fmt.Errorf("rates: set %s: %w", e.currencies.Symbol(currency), err)
	}
	if !e.currencies.IsCollateral(currency) {
		return fmt.Errorf("rates: %w", nativecommon.ErrUnknownCurrency)
	}
	if rate == nil || rate.Sign() <= 0 {
		return fmt.Errorf("rates: %w", nativecommon.ErrInvalidRate)
	}
	return e.state.PutRateEntry(currency, new(big.Int).Set(rate))
}

// ExchangeRate returns the current rate. The stablecoin is quoted at par.
func (e *Engine) ExchangeRate(currency types.Currency) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	meta, ok := e.currencies.Meta(currency)
	if !ok {
		return nil, fmt.Errorf("rates: %w", nativecommon.ErrUnknownCurrency)
	}
	if meta.Stable {
		return new(big.Int).Set(types.RateScale), nil
	}
	rate, ok, err := e.state.RateEntry(currency)
	if err != nil {
		return nil, err
	}
	if !ok || rate.Sign() <= 0 {
		return nil, fmt.Errorf("rates: %s has no rate: %w", meta.Symbol, nativecommon.ErrUnknownCurrency)
	}
	return rate, nil
}

// Rates lists every configured collateral rate in table order. Currencies
// without a rate are omitted.
func (e *Engine) Rates() ([]RateEntry, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	collaterals := e.currencies.Collaterals()
	out := make([]RateEntry, 0, len(collaterals))
	for _, currency := range collaterals {
		rate, ok, err := e.state.RateEntry(currency)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, RateEntry{Currency: currency, Rate: rate})
	}
	return out, nil
}
