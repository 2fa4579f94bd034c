package types

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCurrencyTableParse(t *testing.T) {
	table, err := NewCurrencyTable([]CurrencyConfig{{Symbol: "brl", Name: "Brazilian Real"}, {Symbol: "CNY"}})
	require.NoError(t, err)

	for _, raw := range []string{"cny", " CNY ", "Cny"} {
		code, err := table.Parse(raw)
		require.NoError(t, err)
		require.Equal(t, CNY, code)
	}

	brl, err := table.Parse("BRL")
	require.NoError(t, err)
	require.Equal(t, firstCustomCurrency, brl)
	require.True(t, table.IsCollateral(brl))
	require.False(t, table.IsCollateral(BRICS))

	_, err = table.Parse("USD")
	require.True(t, errors.Is(err, ErrCurrencyNotFound))

	require.Equal(t, []Currency{CNY, RUB, INR, brl}, table.Collaterals())
}

func TestAmountRoundTrip(t *testing.T) {
	v, err := ParseAmount("300.00")
	require.NoError(t, err)
	require.Equal(t, int64(30_000), v.Int64())
	require.Equal(t, "300.00", FormatAmount(v))

	v, err = ParseAmount("0.5")
	require.NoError(t, err)
	require.Equal(t, int64(50), v.Int64())

	_, err = ParseAmount("1.001")
	require.Error(t, err)

	// Trailing zeros past the scale are still more decimal places.
	_, err = ParseAmount("1.000")
	require.Error(t, err)

	rate, err := ParseRate("1.25")
	require.NoError(t, err)
	require.Equal(t, int64(12_500), rate.Int64())
	require.Equal(t, "1.2500", FormatRate(rate))
	require.Equal(t, "0.00", FormatAmount(nil))
	require.Equal(t, "97.75", FormatAmount(big.NewInt(9_775)))
}

func TestParseAddressIgnoresCase(t *testing.T) {
	lower, err := ParseAddress("0x00000000000000000000000000000000000000aa")
	require.NoError(t, err)
	upper, err := ParseAddress("0x00000000000000000000000000000000000000AA")
	require.NoError(t, err)
	require.Equal(t, lower, upper)

	_, err = ParseAddress("not-an-address")
	require.Error(t, err)
	require.NotEqual(t, ModuleAddress("vault"), ModuleAddress("pool"))
}

func TestParseAmountRejectsNonPlainDecimals(t *testing.T) {
	for _, raw := range []string{
		"3e2",
		"1e5000000",
		"1E2",
		"+5",
		".5",
		"5.",
		"0x10",
		"1_000",
		"1.2.3",
		strings.Repeat("9", 79),
		// 2^256 is one past the uint256 range once scaled.
		"1157920892373161954235709850086879078532699846656405640394575840079131296399.36",
	} {
		_, err := ParseAmount(raw)
		require.Error(t, err, raw)
	}

	ceiling := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	v, err := ParseAmount(FormatAmount(ceiling))
	require.NoError(t, err)
	require.Equal(t, 0, ceiling.Cmp(v))

	v, err = ParseAmount("-5")
	require.NoError(t, err)
	require.Equal(t, int64(-500), v.Int64())

	v, err = ParseAmount(" 007.10 ")
	require.NoError(t, err)
	require.Equal(t, int64(710), v.Int64())
}
