package vault

import (
	"fmt"
	"strings"

	nativecommon "bricsengine/native/common"
)

// BurnSource selects whose BRICS is burned when a position is liquidated.
type BurnSource uint8

const (
	// BurnFromLiquidator burns the caller's BRICS; the caller receives the
	// seized collateral.
	BurnFromLiquidator BurnSource = iota
	// BurnFromOwner burns the position owner's wallet BRICS; the seized
	// collateral goes to the treasury.
	BurnFromOwner
)

func (b BurnSource) String() string {
	switch b {
	case BurnFromLiquidator:
		return "liquidator"
	case BurnFromOwner:
		return "owner"
	default:
		return fmt.Sprintf("burn_source(%d)", uint8(b))
	}
}

// ParseBurnSource maps a configuration value to a BurnSource. Empty selects
// the liquidator.
func ParseBurnSource(raw string) (BurnSource, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "liquidator":
		return BurnFromLiquidator, nil
	case "owner":
		return BurnFromOwner, nil
	default:
		return 0, fmt.Errorf("unknown burn source %q", raw)
	}
}

// Params are the authority-controlled vault ratios, all in basis points.
type Params struct {
	// CollateralRatio is the backing required at mint time (15000 = 150%).
	CollateralRatio uint32
	// LiquidationRatio is the threshold below which positions may be
	// liquidated.
	LiquidationRatio uint32
	// LiquidationBonus discounts seized collateral in the liquidator's
	// favour.
	LiquidationBonus uint32
	BurnSource       BurnSource
}

// DefaultParams mirrors the deployed vault: 150% to mint, 120% to stay clear
// of liquidation.
func DefaultParams() Params {
	return Params{
		CollateralRatio:  15_000,
		LiquidationRatio: 12_000,
		BurnSource:       BurnFromLiquidator,
	}
}

// Validate enforces CR >= LR and that seizing collateral can restore a
// position (LR above par plus the bonus).
func (p Params) Validate() error {
	if p.CollateralRatio == 0 || p.LiquidationRatio == 0 {
		return fmt.Errorf("vault: ratios must be positive: %w", nativecommon.ErrInvalidInput)
	}
	if p.CollateralRatio < p.LiquidationRatio {
		return fmt.Errorf("vault: collateral ratio %d below liquidation ratio %d: %w",
			p.CollateralRatio, p.LiquidationRatio, nativecommon.ErrInvalidInput)
	}
	if uint64(p.LiquidationRatio) <= uint64(basisPoints)+uint64(p.LiquidationBonus) {
		return fmt.Errorf("vault: liquidation ratio %d must exceed %d plus bonus %d: %w",
			p.LiquidationRatio, basisPoints, p.LiquidationBonus, nativecommon.ErrInvalidInput)
	}
	if p.BurnSource > BurnFromOwner {
		return fmt.Errorf("vault: %s: %w", p.BurnSource, nativecommon.ErrInvalidInput)
	}
	return nil
}
