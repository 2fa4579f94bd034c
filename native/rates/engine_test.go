package rates

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"bricsengine/core/types"
	nativecommon "bricsengine/native/common"
)

type mockState struct {
	rates map[types.Currency]*big.Int
}

func (m *mockState) RateEntry(c types.Currency) (*big.Int, bool, error) {
	v, ok := m.rates[c]
	if !ok {
		return nil, false, nil
	}
	return new(big.Int).Set(v), true, nil
}

func (m *mockState) PutRateEntry(c types.Currency, v *big.Int) error {
	m.rates[c] = v
	return nil
}

const authorityHex = "0x00000000000000000000000000000000000000AA"

func newEngine() (*Engine, *mockState) {
	state := &mockState{rates: make(map[types.Currency]*big.Int)}
	engine := NewEngine(types.DefaultCurrencies(), authorityHex)
	engine.SetState(state)
	return engine, state
}

func TestSetExchangeRateRequiresAuthority(t *testing.T) {
	engine, _ := newEngine()
	stranger := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	err := engine.SetExchangeRate(stranger, types.CNY, big.NewInt(10_000))
	require.True(t, errors.Is(err, nativecommon.ErrUnauthorized))

	authority := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	require.NoError(t, engine.SetExchangeRate(authority, types.CNY, big.NewInt(12_500)))

	rate, err := engine.ExchangeRate(types.CNY)
	require.NoError(t, err)
	require.Equal(t, int64(12_500), rate.Int64())
}

func TestSetExchangeRateValidation(t *testing.T) {
	engine, _ := newEngine()
	authority := common.HexToAddress(authorityHex)

	for _, rate := range []*big.Int{nil, big.NewInt(0), big.NewInt(-1)} {
		err := engine.SetExchangeRate(authority, types.RUB, rate)
		require.True(t, errors.Is(err, nativecommon.ErrInvalidRate), "rate %v: %v", rate, err)
		require.True(t, errors.Is(err, nativecommon.ErrInvalidInput))
	}
	err := engine.SetExchangeRate(authority, types.BRICS, big.NewInt(10_000))
	require.True(t, errors.Is(err, nativecommon.ErrUnknownCurrency))
}

func TestExchangeRateUnknownCurrency(t *testing.T) {
	engine, _ := newEngine()
	_, err := engine.ExchangeRate(types.INR)
	require.True(t, errors.Is(err, nativecommon.ErrUnknownCurrency))

	_, err = engine.ExchangeRate(types.Currency(42))
	require.True(t, errors.Is(err, nativecommon.ErrUnknownCurrency))

	par, err := engine.ExchangeRate(types.BRICS)
	require.NoError(t, err)
	require.Equal(t, int64(10_000), par.Int64())
}

func TestRatesListsConfiguredEntries(t *testing.T) {
	engine, state := newEngine()
	state.rates[types.INR] = big.NewInt(1_200)
	state.rates[types.CNY] = big.NewInt(13_900)

	entries, err := engine.Rates()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, types.CNY, entries[0].Currency)
	require.Equal(t, types.INR, entries[1].Currency)
}
