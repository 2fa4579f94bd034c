package types

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Currency identifies an asset known to the engine. The zero value is not a
// valid currency.
type Currency uint8

// Built-in currencies. Configured collaterals beyond these are assigned codes
// starting at firstCustomCurrency.
const (
	CurrencyUnknown Currency = iota
	BRICS
	CNY
	RUB
	INR

	firstCustomCurrency
)

// ErrCurrencyNotFound is returned when a symbol or code is absent from the
// table.
var ErrCurrencyNotFound = errors.New("currency not found")

// CurrencyMeta describes a currency.
type CurrencyMeta struct {
	Code   Currency
	Symbol string
	Name   string
	// Stable marks the protocol stablecoin; every other entry is collateral.
	Stable bool
}

// CurrencyTable maps codes to metadata. It is built once at start-up and is
// read-only afterwards.
type CurrencyTable struct {
	entries  []CurrencyMeta
	byCode   map[Currency]int
	bySymbol map[string]Currency
}

// CurrencyConfig is the configured form of an extra collateral currency.
type CurrencyConfig struct {
	Symbol string `yaml:"symbol" toml:"symbol"`
	Name   string `yaml:"name" toml:"name"`
}

// DefaultCurrencies returns the table holding BRICS and the three built-in
// collaterals.
func DefaultCurrencies() *CurrencyTable {
	table, err := NewCurrencyTable(nil)
	if err != nil {
		panic(err)
	}
	return table
}

// NewCurrencyTable returns the built-in table extended with extra collateral
// currencies. Built-in symbols listed in extra are ignored.
func NewCurrencyTable(extra []CurrencyConfig) (*CurrencyTable, error) {
	t := &CurrencyTable{
		byCode:   make(map[Currency]int),
		bySymbol: make(map[string]Currency),
	}
	t.add(CurrencyMeta{Code: BRICS, Symbol: "BRICS", Name: "BRICS Stablecoin", Stable: true})
	t.add(CurrencyMeta{Code: CNY, Symbol: "CNY", Name: "Chinese Yuan"})
	t.add(CurrencyMeta{Code: RUB, Symbol: "RUB", Name: "Russian Ruble"})
	t.add(CurrencyMeta{Code: INR, Symbol: "INR", Name: "Indian Rupee"})

	next := firstCustomCurrency
	for _, cfg := range extra {
		symbol := NormalizeSymbol(cfg.Symbol)
		if symbol == "" {
			return nil, fmt.Errorf("currency symbol required")
		}
		if _, ok := t.bySymbol[symbol]; ok {
			continue
		}
		if next == 0 {
			return nil, fmt.Errorf("too many currencies configured")
		}
		name := strings.TrimSpace(cfg.Name)
		if name == "" {
			name = symbol
		}
		t.add(CurrencyMeta{Code: next, Symbol: symbol, Name: name})
		next++
	}
	return t, nil
}

func (t *CurrencyTable) add(meta CurrencyMeta) {
	t.byCode[meta.Code] = len(t.entries)
	t.bySymbol[meta.Symbol] = meta.Code
	t.entries = append(t.entries, meta)
}

// NormalizeSymbol folds a user supplied symbol to its canonical upper-case
// form.
func NormalizeSymbol(symbol string) string {
	return norm.NFKC.String(strings.ToUpper(strings.TrimSpace(symbol)))
}

// Parse resolves a symbol case-insensitively.
func (t *CurrencyTable) Parse(symbol string) (Currency, error) {
	if t == nil {
		return CurrencyUnknown, ErrCurrencyNotFound
	}
	code, ok := t.bySymbol[NormalizeSymbol(symbol)]
	if !ok {
		return CurrencyUnknown, fmt.Errorf("%w: %q", ErrCurrencyNotFound, symbol)
	}
	return code, nil
}

// Meta returns the metadata for code.
func (t *CurrencyTable) Meta(code Currency) (CurrencyMeta, bool) {
	if t == nil {
		return CurrencyMeta{}, false
	}
	idx, ok := t.byCode[code]
	if !ok {
		return CurrencyMeta{}, false
	}
	return t.entries[idx], true
}

// Symbol returns the symbol for code, or "UNKNOWN".
func (t *CurrencyTable) Symbol(code Currency) string {
	meta, ok := t.Meta(code)
	if !ok {
		return "UNKNOWN"
	}
	return meta.Symbol
}

// IsCollateral reports whether code is a known non-stable currency.
func (t *CurrencyTable) IsCollateral(code Currency) bool {
	meta, ok := t.Meta(code)
	return ok && !meta.Stable
}

// Stablecoin returns the code of the protocol stablecoin.
func (t *CurrencyTable) Stablecoin() Currency {
	return BRICS
}

// Collaterals lists the collateral currencies in table order.
func (t *CurrencyTable) Collaterals() []Currency {
	if t == nil {
		return nil
	}
	out := make([]Currency, 0, len(t.entries))
	for _, meta := range t.entries {
		if !meta.Stable {
			out = append(out, meta.Code)
		}
	}
	return out
}

// All returns a copy of every entry in table order.
func (t *CurrencyTable) All() []CurrencyMeta {
	if t == nil {
		return nil
	}
	out := make([]CurrencyMeta, len(t.entries))
	copy(out, t.entries)
	return out
}
