package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"bricsengine/core/types"
)

const basisPoints = 10_000

var bpsBig = big.NewInt(basisPoints)

// collateralValue converts a collateral amount into BRICS at rate.
func collateralValue(amount, rate *big.Int) *big.Int {
	value := new(big.Int).Mul(amount, rate)
	return value.Quo(value, types.RateScale)
}

// quoteDeposit prices a deposit. Both divisions floor.
func quoteDeposit(currency types.Currency, amount, rate *big.Int, collateralRatio uint32) DepositQuote {
	value := collateralValue(amount, rate)
	minted := new(big.Int).Mul(value, bpsBig)
	minted.Quo(minted, big.NewInt(int64(collateralRatio)))
	return DepositQuote{
		Currency:        currency,
		Amount:          new(big.Int).Set(amount),
		Rate:            new(big.Int).Set(rate),
		CollateralValue: value,
		Minted:          minted,
	}
}

// redeemOut is the collateral released for stablecoin at rate.
func redeemOut(stablecoin, rate *big.Int) *big.Int {
	out := new(big.Int).Mul(stablecoin, types.RateScale)
	return out.Quo(out, rate)
}

// belowRatio reports value*10_000 < minted*ratio.
func belowRatio(value, minted *big.Int, ratio uint32) bool {
	lhs := new(big.Int).Mul(value, bpsBig)
	rhs := new(big.Int).Mul(minted, big.NewInt(int64(ratio)))
	return lhs.Cmp(rhs) < 0
}

func ceilDiv(x, y *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(x, y, new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// evaluatePosition classifies a position and, when it is liquidatable, sizes
// the seizure. Debt d and seized collateral x satisfy
// x = ceil(d*(10_000+bonus)/rate) and d is the least value for which the
// floored post-liquidation value is at or above the liquidation ratio. d never
// exceeds M; when x would reach C every unit of collateral is seized and the
// uncovered debt is bad debt.
func evaluatePosition(owner common.Address, currency types.Currency, collateral, minted, rate *big.Int, params Params) LiquidationPreview {
	preview := LiquidationPreview{
		Owner:             owner,
		Currency:          currency,
		Rate:              new(big.Int).Set(rate),
		Minted:            new(big.Int).Set(minted),
		Collateral:        new(big.Int).Set(collateral),
		DeficitValue:      big.NewInt(0),
		TokensToLiquidate: big.NewInt(0),
		DebtToRepay:       big.NewInt(0),
		BadDebt:           big.NewInt(0),
	}
	preview.ActualCollateralValue = collateralValue(collateral, rate)
	required := new(big.Int).Mul(minted, big.NewInt(int64(params.CollateralRatio)))
	preview.RequiredCollateralValue = required.Quo(required, bpsBig)
	if preview.ActualCollateralValue.Cmp(preview.RequiredCollateralValue) < 0 {
		preview.DeficitValue = new(big.Int).Sub(preview.RequiredCollateralValue, preview.ActualCollateralValue)
	}

	switch {
	case minted.Sign() == 0:
		preview.Status = StatusHealthy
		return preview
	case belowRatio(preview.ActualCollateralValue, minted, params.LiquidationRatio):
		preview.Status = StatusLiquidatable
	case belowRatio(preview.ActualCollateralValue, minted, params.CollateralRatio):
		preview.Status = StatusWarning
		return preview
	default:
		preview.Status = StatusHealthy
		return preview
	}

	lr := big.NewInt(int64(params.LiquidationRatio))
	discount := big.NewInt(basisPoints + int64(params.LiquidationBonus))
	slope := new(big.Int).Sub(lr, discount)

	numerator := new(big.Int).Mul(minted, lr)
	numerator.Sub(numerator, new(big.Int).Mul(collateral, rate))
	numerator.Add(numerator, rate)
	numerator.Add(numerator, bpsBig)
	debt := ceilDiv(numerator, slope)
	if debt.Cmp(minted) > 0 {
		debt.Set(minted)
	}
	seized := ceilDiv(new(big.Int).Mul(debt, discount), rate)
	if seized.Cmp(collateral) < 0 {
		debt, seized = leastRestoringDebt(collateral, minted, rate, lr, discount, debt, seized)
	}

	if seized.Cmp(collateral) >= 0 {
		seized = new(big.Int).Set(collateral)
		debt = new(big.Int).Mul(collateral, rate)
		debt.Quo(debt, discount)
		if debt.Cmp(minted) > 0 {
			debt.Set(minted)
		}
		preview.FullLiquidation = true
		preview.BadDebt = new(big.Int).Sub(minted, debt)
	}
	preview.TokensToLiquidate = seized
	preview.DebtToRepay = debt
	return preview
}

// seizureFor returns the collateral seized for debt and whether the remaining
// position sits at or above lr.
func seizureFor(collateral, minted, rate, lr, discount, debt *big.Int) (*big.Int, bool) {
	seized := ceilDiv(new(big.Int).Mul(debt, discount), rate)
	if seized.Cmp(collateral) >= 0 {
		return seized, false
	}
	value := collateralValue(new(big.Int).Sub(collateral, seized), rate)
	value.Mul(value, bpsBig)
	rest := new(big.Int).Sub(minted, debt)
	rest.Mul(rest, lr)
	return seized, value.Cmp(rest) >= 0
}

// leastRestoringDebt scans up from the unrounded lower bound
// (M*LR - C*rate)/(LR - discount) to the closed-form bound hi, which rounds
// up by at most (rate+10_000)/(LR - discount) units.
func leastRestoringDebt(collateral, minted, rate, lr, discount, hi, hiSeized *big.Int) (*big.Int, *big.Int) {
	if _, ok := seizureFor(collateral, minted, rate, lr, discount, hi); !ok {
		return hi, hiSeized
	}
	lower := new(big.Int).Mul(minted, lr)
	lower.Sub(lower, new(big.Int).Mul(collateral, rate))
	d := big.NewInt(0)
	if lower.Sign() > 0 {
		d = ceilDiv(lower, new(big.Int).Sub(lr, discount))
	}
	one := big.NewInt(1)
	for ; d.Cmp(hi) < 0; d.Add(d, one) {
		if seized, ok := seizureFor(collateral, minted, rate, lr, discount, d); ok {
			return d, seized
		}
	}
	return hi, hiSeized
}
