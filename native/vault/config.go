package vault

// Config is the file form of Params.
type Config struct {
	CollateralRatioBps  uint32 `yaml:"collateral_ratio_bps" toml:"CollateralRatioBps"`
	LiquidationRatioBps uint32 `yaml:"liquidation_ratio_bps" toml:"LiquidationRatioBps"`
	LiquidationBonusBps uint32 `yaml:"liquidation_bonus_bps" toml:"LiquidationBonusBps"`
	// BurnSource is "liquidator" (default) or "owner".
	BurnSource string `yaml:"burn_source" toml:"BurnSource"`
}

// Params converts the config, filling unset ratios from DefaultParams, and
// validates the result.
func (c Config) Params() (Params, error) {
	params := DefaultParams()
	if c.CollateralRatioBps != 0 {
		params.CollateralRatio = c.CollateralRatioBps
	}
	if c.LiquidationRatioBps != 0 {
		params.LiquidationRatio = c.LiquidationRatioBps
	}
	params.LiquidationBonus = c.LiquidationBonusBps
	source, err := ParseBurnSource(c.BurnSource)
	if err != nil {
		return Params{}, err
	}
	params.BurnSource = source
	if err := params.Validate(); err != nil {
		return Params{}, err
	}
	return params, nil
}
