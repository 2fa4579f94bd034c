package types

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// AmountDecimals is the number of fractional digits carried by every
	// token amount.
	AmountDecimals = 2
	// RateDecimals is the number of fractional digits carried by exchange
	// rates.
	RateDecimals = 4
)

// maxFixedBits bounds parsed amounts and rates to the width of a uint256.
const maxFixedBits = 256

// maxFixedDigits caps the integer digits accepted before any big arithmetic.
const maxFixedDigits = 78

var fixedPattern = regexp.MustCompile(`^(-?)(\d+)(?:\.(\d+))?$`)

var (
	// AmountScale converts whole units into scaled amounts.
	AmountScale = big.NewInt(100)
	// RateScale is the fixed-point base of exchange rates. A rate equal to
	// RateScale is parity.
	RateScale = big.NewInt(10_000)
)

// ParseAmount converts a decimal string such as "300.00" into a scaled
// integer. More than two fractional digits are rejected rather than rounded.
func ParseAmount(raw string) (*big.Int, error) {
	return parseFixed(raw, AmountDecimals)
}

// FormatAmount renders a scaled amount with two fractional digits.
func FormatAmount(v *big.Int) string {
	return formatFixed(v, AmountDecimals)
}

// ParseRate converts a decimal string such as "1.2500" into a rate scaled by
// 10,000.
func ParseRate(raw string) (*big.Int, error) {
	return parseFixed(raw, RateDecimals)
}

// FormatRate renders a scaled rate with four fractional digits.
func FormatRate(v *big.Int) string {
	return formatFixed(v, RateDecimals)
}

func parseFixed(raw string, places int32) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("empty value")
	}
	m := fixedPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return nil, fmt.Errorf("parse %q: not a plain decimal", raw)
	}
	if len(strings.TrimLeft(m[2], "0")) > maxFixedDigits {
		return nil, fmt.Errorf("%q exceeds %d integer digits", raw, maxFixedDigits)
	}
	if len(m[3]) > int(places) {
		return nil, fmt.Errorf("%q has more than %d decimal places", raw, places)
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", raw, err)
	}
	scaled := d.Shift(places).BigInt()
	if scaled.BitLen() > maxFixedBits {
		return nil, fmt.Errorf("%q exceeds %d bits", raw, maxFixedBits)
	}
	return scaled, nil
}

func formatFixed(v *big.Int, places int32) string {
	if v == nil {
		return decimal.Zero.StringFixed(places)
	}
	return decimal.NewFromBigInt(v, -places).StringFixed(places)
}
