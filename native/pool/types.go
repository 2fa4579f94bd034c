package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"bricsengine/core/types"
)

// Pool is a constant-product pool pairing one collateral currency with
// BRICS.
type Pool struct {
	Key common.Hash
	// Currency0 is the collateral side.
	Currency0 types.Currency
	// Currency1 is always BRICS.
	Currency1 types.Currency
	Reserve0  *big.Int
	Reserve1  *big.Int
	TotalLP   *big.Int
	// ProtocolFees0 and ProtocolFees1 accumulate the swap fee share routed
	// to the treasury, per side.
	ProtocolFees0 *big.Int
	ProtocolFees1 *big.Int
}

// Clone returns a deep copy of the pool.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	return &Pool{
		Key:           p.Key,
		Currency0:     p.Currency0,
		Currency1:     p.Currency1,
		Reserve0:      copyBigInt(p.Reserve0),
		Reserve1:      copyBigInt(p.Reserve1),
		TotalLP:       copyBigInt(p.TotalLP),
		ProtocolFees0: copyBigInt(p.ProtocolFees0),
		ProtocolFees1: copyBigInt(p.ProtocolFees1),
	}
}

func (p *Pool) ensure() {
	for _, v := range []**big.Int{&p.Reserve0, &p.Reserve1, &p.TotalLP, &p.ProtocolFees0, &p.ProtocolFees1} {
		if *v == nil {
			*v = big.NewInt(0)
		}
	}
}

// reserveOf returns the reserve held in currency.
func (p *Pool) reserveOf(currency types.Currency) *big.Int {
	if currency == p.Currency0 {
		return p.Reserve0
	}
	return p.Reserve1
}

// LiquidityPosition records LP tokens held by a provider in one pool.
type LiquidityPosition struct {
	Pool     common.Hash
	Provider common.Address
	LPTokens *big.Int
}

// Availability describes whether each pool can be traded.
type Availability struct {
	Names       []string
	Reserve0    []*big.Int
	Reserve1    []*big.Int
	IsAvailable []bool
}

// UserLiquidity is a provider's LP holding and its current redemption value.
type UserLiquidity struct {
	LPTokens     *big.Int
	Token0Amount *big.Int
	Token1Amount *big.Int
}

// SwapQuote is the pure evaluation shared by PreviewSwap and Swap.
type SwapQuote struct {
	From      types.Currency
	To        types.Currency
	AmountIn  *big.Int
	AmountOut *big.Int
	// Fee amounts in the input currency.
	TotalFee    *big.Int
	ProtocolFee *big.Int
	LPFee       *big.Int
	// The same fees valued in BRICS.
	TotalFeeBrics    *big.Int
	ProtocolFeeBrics *big.Int
	LPFeeBrics       *big.Int
	// SuggestedMinAmountOut applies the default slippage tolerance to
	// AmountOut.
	SuggestedMinAmountOut *big.Int
	NewReserveIn          *big.Int
	NewReserveOut         *big.Int
}

// SwapResult reports a committed swap.
type SwapResult struct {
	SwapQuote
	Pool *Pool
}

// AddLiquidityQuote is the evaluation of an add-liquidity request.
type AddLiquidityQuote struct {
	Amount0    *big.Int
	Amount1    *big.Int
	LPMinted   *big.Int
	DepositFee *big.Int
	LowFeeTier bool
	Bootstrap  bool
}

// AddLiquidityResult reports a committed deposit.
type AddLiquidityResult struct {
	AddLiquidityQuote
	Pool     *Pool
	Position *LiquidityPosition
}

// RemoveLiquidityQuote is the evaluation of a withdrawal request.
type RemoveLiquidityQuote struct {
	LPBurned      *big.Int
	Amount0       *big.Int
	Amount1       *big.Int
	WithdrawalFee *big.Int
}

// RemoveLiquidityResult reports a committed withdrawal.
type RemoveLiquidityResult struct {
	RemoveLiquidityQuote
	Pool     *Pool
	Position *LiquidityPosition
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
