package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"bricsengine/core/types"
)

// Position tracks one owner's collateral and debt in a single collateral
// currency.
type Position struct {
	// Owner is the depositor.
	Owner common.Address
	// Currency is the collateral currency.
	Currency types.Currency
	// CollateralDeposited is the collateral held by the vault for the owner.
	CollateralDeposited *big.Int
	// StablecoinMinted is the outstanding BRICS debt of the position.
	StablecoinMinted *big.Int
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	return &Position{
		Owner:               p.Owner,
		Currency:            p.Currency,
		CollateralDeposited: copyBigInt(p.CollateralDeposited),
		StablecoinMinted:    copyBigInt(p.StablecoinMinted),
	}
}

// IsEmpty reports whether the position holds neither collateral nor debt.
func (p *Position) IsEmpty() bool {
	return p == nil || (p.CollateralDeposited.Sign() == 0 && p.StablecoinMinted.Sign() == 0)
}

// DepositTotal is the collateral held for one currency across all positions.
type DepositTotal struct {
	Currency types.Currency
	Amount   *big.Int
}

// GlobalState aggregates vault-wide totals.
type GlobalState struct {
	TotalDeposits []DepositTotal
	// StablecoinSupply counts BRICS minted by the vault and not yet burned.
	StablecoinSupply *big.Int
	// BadDebt is debt written off by liquidations that seized all
	// collateral without covering the position.
	BadDebt *big.Int
}

// Clone returns a deep copy of the global state.
func (g *GlobalState) Clone() *GlobalState {
	if g == nil {
		return nil
	}
	out := &GlobalState{
		StablecoinSupply: copyBigInt(g.StablecoinSupply),
		BadDebt:          copyBigInt(g.BadDebt),
	}
	for _, total := range g.TotalDeposits {
		out.TotalDeposits = append(out.TotalDeposits, DepositTotal{Currency: total.Currency, Amount: copyBigInt(total.Amount)})
	}
	return out
}

// Deposits returns the total collateral held for currency.
func (g *GlobalState) Deposits(currency types.Currency) *big.Int {
	for _, total := range g.TotalDeposits {
		if total.Currency == currency {
			return copyBigInt(total.Amount)
		}
	}
	return big.NewInt(0)
}

func (g *GlobalState) adjustDeposits(currency types.Currency, delta *big.Int) {
	for i := range g.TotalDeposits {
		if g.TotalDeposits[i].Currency == currency {
			g.TotalDeposits[i].Amount = clampZero(new(big.Int).Add(g.TotalDeposits[i].Amount, delta))
			return
		}
	}
	g.TotalDeposits = append(g.TotalDeposits, DepositTotal{Currency: currency, Amount: clampZero(new(big.Int).Set(delta))})
}

// Status classifies a position against the vault ratios.
type Status uint8

const (
	// StatusHealthy positions meet the collateral ratio or carry no debt.
	StatusHealthy Status = iota
	// StatusWarning positions are below the collateral ratio but at or
	// above the liquidation ratio.
	StatusWarning
	// StatusLiquidatable positions are below the liquidation ratio.
	StatusLiquidatable
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusWarning:
		return "warning"
	case StatusLiquidatable:
		return "liquidatable"
	default:
		return "unknown"
	}
}

// DepositQuote is the outcome of depositing collateral at the current rate.
type DepositQuote struct {
	Currency        types.Currency
	Amount          *big.Int
	Rate            *big.Int
	CollateralValue *big.Int
	Minted          *big.Int
}

// DepositResult reports a committed deposit.
type DepositResult struct {
	DepositQuote
	Position *Position
}

// RedeemResult reports a committed redemption.
type RedeemResult struct {
	Currency      types.Currency
	Rate          *big.Int
	Burned        *big.Int
	CollateralOut *big.Int
	Position      *Position
}

// LiquidationPreview is the read-only evaluation of a position. The same
// value drives Liquidate.
type LiquidationPreview struct {
	Owner    common.Address
	Currency types.Currency
	Rate     *big.Int
	Status   Status

	Minted                  *big.Int
	Collateral              *big.Int
	ActualCollateralValue   *big.Int
	RequiredCollateralValue *big.Int
	DeficitValue            *big.Int
	// TokensToLiquidate is the collateral seized by a liquidation now.
	TokensToLiquidate *big.Int
	// DebtToRepay is the BRICS debt cancelled by that seizure.
	DebtToRepay *big.Int
	// FullLiquidation is set when all collateral must be seized.
	FullLiquidation bool
	// BadDebt is the debt left uncovered by a full liquidation.
	BadDebt *big.Int
}

// LiquidationResult reports a committed liquidation.
type LiquidationResult struct {
	LiquidationPreview
	// Recipient received the seized collateral.
	Recipient common.Address
	// Burner had DebtToRepay BRICS burned.
	Burner   common.Address
	Position *Position
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func clampZero(v *big.Int) *big.Int {
	if v.Sign() < 0 {
		v.SetInt64(0)
	}
	return v
}
