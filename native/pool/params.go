package pool

import (
	"fmt"
	"math/big"
	"strings"
)

// InitialLiquidity selects how LP tokens are minted for a bootstrap deposit.
type InitialLiquidity uint8

const (
	// InitialLiquidityCollateral mints LP equal to the collateral-side
	// amount.
	InitialLiquidityCollateral InitialLiquidity = iota
	// InitialLiquiditySqrt mints sqrt(amount0*amount1).
	InitialLiquiditySqrt
)

// Params configure every pool.
type Params struct {
	// ReserveFloor is the minimum reserve per side, scaled by 100.
	ReserveFloor *big.Int
	// SwapFeeBps is the total swap fee charged on the input amount.
	SwapFeeBps uint32
	// ProtocolFeeBps is the part of SwapFeeBps routed to the treasury.
	ProtocolFeeBps uint32
	// Deposit and withdrawal fees are rate*X/10_000 scaled BRICS.
	DepositFeeBase uint32
	DepositFeeLow  uint32
	WithdrawalFee  uint32
	// RatioToleranceBps bounds the mismatch between deposit amounts and the
	// pool price when the caller gives none.
	RatioToleranceBps uint32
	// SlippageBps derives SuggestedMinAmountOut.
	SlippageBps      uint32
	InitialLiquidity InitialLiquidity
}

// DefaultParams returns the deployed pool settings.
func DefaultParams() Params {
	return Params{
		ReserveFloor:      big.NewInt(100_000),
		SwapFeeBps:        30,
		ProtocolFeeBps:    5,
		DepositFeeBase:    2_000,
		DepositFeeLow:     1_000,
		WithdrawalFee:     2_000,
		RatioToleranceBps: 50,
		SlippageBps:       50,
		InitialLiquidity:  InitialLiquidityCollateral,
	}
}

// Validate checks internal consistency.
func (p Params) Validate() error {
	if p.ReserveFloor == nil || p.ReserveFloor.Sign() < 0 {
		return fmt.Errorf("pool: reserve floor must be non-negative")
	}
	if p.SwapFeeBps >= basisPoints {
		return fmt.Errorf("pool: swap fee %d bps out of range", p.SwapFeeBps)
	}
	if p.ProtocolFeeBps > p.SwapFeeBps {
		return fmt.Errorf("pool: protocol fee %d exceeds swap fee %d", p.ProtocolFeeBps, p.SwapFeeBps)
	}
	if p.RatioToleranceBps > basisPoints || p.SlippageBps > basisPoints {
		return fmt.Errorf("pool: tolerance out of range")
	}
	if p.InitialLiquidity > InitialLiquiditySqrt {
		return fmt.Errorf("pool: unknown initial liquidity mode %d", p.InitialLiquidity)
	}
	return nil
}

// Config is the file form of Params. Zero values keep the defaults.
type Config struct {
	ReserveFloor      string `yaml:"reserve_floor" toml:"ReserveFloor"`
	SwapFeeBps        uint32 `yaml:"swap_fee_bps" toml:"SwapFeeBps"`
	ProtocolFeeBps    uint32 `yaml:"protocol_fee_bps" toml:"ProtocolFeeBps"`
	DepositFeeBase    uint32 `yaml:"deposit_fee_base" toml:"DepositFeeBase"`
	DepositFeeLow     uint32 `yaml:"deposit_fee_low" toml:"DepositFeeLow"`
	WithdrawalFee     uint32 `yaml:"withdrawal_fee" toml:"WithdrawalFee"`
	RatioToleranceBps uint32 `yaml:"ratio_tolerance_bps" toml:"RatioToleranceBps"`
	SlippageBps       uint32 `yaml:"slippage_bps" toml:"SlippageBps"`
	// InitialLiquidity is "collateral" (default) or "sqrt".
	InitialLiquidity string `yaml:"initial_liquidity" toml:"InitialLiquidity"`
}

// Params converts the config. parseAmount turns the floor into scaled
// units.
func (c Config) Params(parseAmount func(string) (*big.Int, error)) (Params, error) {
	params := DefaultParams()
	if strings.TrimSpace(c.ReserveFloor) != "" {
		floor, err := parseAmount(c.ReserveFloor)
		if err != nil {
			return Params{}, fmt.Errorf("pool: reserve floor: %w", err)
		}
		params.ReserveFloor = floor
	}
	setIfNonZero(&params.SwapFeeBps, c.SwapFeeBps)
	setIfNonZero(&params.ProtocolFeeBps, c.ProtocolFeeBps)
	setIfNonZero(&params.DepositFeeBase, c.DepositFeeBase)
	setIfNonZero(&params.DepositFeeLow, c.DepositFeeLow)
	setIfNonZero(&params.WithdrawalFee, c.WithdrawalFee)
	setIfNonZero(&params.RatioToleranceBps, c.RatioToleranceBps)
	setIfNonZero(&params.SlippageBps, c.SlippageBps)
	switch strings.ToLower(strings.TrimSpace(c.InitialLiquidity)) {
	case "", "collateral":
		params.InitialLiquidity = InitialLiquidityCollateral
	case "sqrt":
		params.InitialLiquidity = InitialLiquiditySqrt
	default:
		return Params{}, fmt.Errorf("pool: unknown initial liquidity %q", c.InitialLiquidity)
	}
	if err := params.Validate(); err != nil {
		return Params{}, err
	}
	return params, nil
}

func setIfNonZero(dst *uint32, v uint32) {
	if v != 0 {
		*dst = v
	}
}
