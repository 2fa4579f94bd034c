package vault

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"bricsengine/core/types"
	nativecommon "bricsengine/native/common"
)

type engineState interface {
	VaultPosition(owner common.Address, currency types.Currency) (*Position, bool, error)
	PutVaultPosition(position *Position) error
	VaultGlobal() (*GlobalState, error)
	PutVaultGlobal(global *GlobalState) error
	VaultParams() (Params, bool, error)
	PutVaultParams(params Params) error
	TrackVaultOwner(owner common.Address) error
	VaultOwners() ([]common.Address, error)
}

// RateSource supplies authority-set exchange rates.
type RateSource interface {
	ExchangeRate(currency types.Currency) (*big.Int, error)
}

// Ledger is the token ledger the vault settles against.
type Ledger interface {
	Transfer(from, to common.Address, currency types.Currency, amount *big.Int) error
	TransferFrom(spender, owner, to common.Address, currency types.Currency, amount *big.Int) error
	Mint(to common.Address, currency types.Currency, amount *big.Int) error
	Burn(from common.Address, currency types.Currency, amount *big.Int) error
}

var (
	errNilEngine          = errors.New("vault engine: not initialised")
	errParamsMissing      = errors.New("vault engine: params not initialised")
	errInvalidAmount      = fmt.Errorf("vault engine: amount must be positive: %w", nativecommon.ErrInvalidInput)
	errNotCollateral      = fmt.Errorf("vault engine: currency is not a collateral: %w", nativecommon.ErrUnknownCurrency)
	errRedeemTooSmall     = fmt.Errorf("vault engine: redemption releases no collateral: %w", nativecommon.ErrInvalidInput)
	errExceedsOutstanding = fmt.Errorf("vault engine: amount exceeds outstanding stablecoin: %w", nativecommon.ErrInsufficientBalance)
	errExceedsCollateral  = fmt.Errorf("vault engine: redemption exceeds deposited collateral: %w", nativecommon.ErrInsufficientBalance)
	errNotEligible        = fmt.Errorf("vault engine: position is not below the liquidation ratio: %w", nativecommon.ErrNotEligible)
)

// Engine applies vault operations against a bound state transaction.
type Engine struct {
	currencies *types.CurrencyTable
	moduleAddr common.Address
	treasury   common.Address
	authority  string
	state      engineState
	rates      RateSource
	ledger     Ledger
	pauses     nativecommon.PauseView
}

// NewEngine constructs a vault engine. moduleAddr holds deposited collateral;
// treasury receives collateral seized under BurnFromOwner.
func NewEngine(currencies *types.CurrencyTable, moduleAddr, treasury common.Address, authority string) *Engine {
	return &Engine{
		currencies: currencies,
		moduleAddr: moduleAddr,
		treasury:   treasury,
		authority:  authority,
	}
}

// SetState binds the engine to a state transaction.
func (e *Engine) SetState(state engineState) {
	if e == nil {
		return
	}
	e.state = state
}

// SetRates configures the exchange rate source.
func (e *Engine) SetRates(rates RateSource) {
	if e == nil {
		return
	}
	e.rates = rates
}

// SetLedger configures the token ledger.
func (e *Engine) SetLedger(ledger Ledger) {
	if e == nil {
		return
	}
	e.ledger = ledger
}

// SetPauses configures the pause view consulted before mutating calls.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil || e.rates == nil {
		return errNilEngine
	}
	return nil
}

func (e *Engine) writable(currency types.Currency) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.ledger == nil {
		return errNilEngine
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleVault); err != nil {
		return err
	}
	if !e.currencies.IsCollateral(currency) {
		return errNotCollateral
	}
	return nil
}

// Params returns the stored vault ratios.
func (e *Engine) Params() (Params, error) {
	if err := e.ready(); err != nil {
		return Params{}, err
	}
	params, ok, err := e.state.VaultParams()
	if err != nil {
		return Params{}, err
	}
	if !ok {
		return Params{}, errParamsMissing
	}
	return params, nil
}

// CollateralRatio returns the minting ratio in basis points.
func (e *Engine) CollateralRatio() (uint32, error) {
	params, err := e.Params()
	if err != nil {
		return 0, err
	}
	return params.CollateralRatio, nil
}

// LiquidationRatio returns the liquidation threshold in basis points.
func (e *Engine) LiquidationRatio() (uint32, error) {
	params, err := e.Params()
	if err != nil {
		return 0, err
	}
	return params.LiquidationRatio, nil
}

// InitParams stores params when none exist yet. It is used at genesis and
// does not require the authority.
func (e *Engine) InitParams(params Params) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, ok, err := e.state.VaultParams(); err != nil || ok {
		return err
	}
	if err := params.Validate(); err != nil {
		return err
	}
	return e.state.PutVaultParams(params)
}

// SetParams replaces the vault ratios. Only the authority may call it and
// the new values must keep CR >= LR.
func (e *Engine) SetParams(caller common.Address, params Params) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.RequireAuthority(e.authority, caller); err != nil {
		return fmt.Errorf("vault engine: set params: %w", err)
	}
	if err := params.Validate(); err != nil {
		return err
	}
	return e.state.PutVaultParams(params)
}

// Position returns the position of owner in currency. Unknown positions are
// returned zeroed.
func (e *Engine) Position(owner common.Address, currency types.Currency) (*Position, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if !e.currencies.IsCollateral(currency) {
		return nil, errNotCollateral
	}
	return e.loadPosition(owner, currency)
}

func (e *Engine) loadPosition(owner common.Address, currency types.Currency) (*Position, error) {
	position, ok, err := e.state.VaultPosition(owner, currency)
	if err != nil {
		return nil, err
	}
	if !ok || position == nil {
		position = &Position{Owner: owner, Currency: currency}
	}
	ensurePosition(position)
	return position, nil
}

// GlobalState returns vault-wide totals.
func (e *Engine) GlobalState() (*GlobalState, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.loadGlobal()
}

func (e *Engine) loadGlobal() (*GlobalState, error) {
	global, err := e.state.VaultGlobal()
	if err != nil {
		return nil, err
	}
	if global == nil {
		global = &GlobalState{}
	}
	if global.StablecoinSupply == nil {
		global.StablecoinSupply = big.NewInt(0)
	}
	if global.BadDebt == nil {
		global.BadDebt = big.NewInt(0)
	}
	return global, nil
}

func ensurePosition(p *Position) {
	if p.CollateralDeposited == nil {
		p.CollateralDeposited = big.NewInt(0)
	}
	if p.StablecoinMinted == nil {
		p.StablecoinMinted = big.NewInt(0)
	}
}

// PreviewDeposit prices a deposit without touching state.
func (e *Engine) PreviewDeposit(currency types.Currency, amount *big.Int) (DepositQuote, error) {
	if err := e.ready(); err != nil {
		return DepositQuote{}, err
	}
	if !e.currencies.IsCollateral(currency) {
		return DepositQuote{}, errNotCollateral
	}
	if amount == nil || amount.Sign() <= 0 {
		return DepositQuote{}, errInvalidAmount
	}
	params, err := e.Params()
	if err != nil {
		return DepositQuote{}, err
	}
	rate, err := e.rates.ExchangeRate(currency)
	if err != nil {
		return DepositQuote{}, err
	}
	return quoteDeposit(currency, amount, rate, params.CollateralRatio), nil
}

// DepositCollateral pulls amount of currency from caller into the vault and
// mints BRICS against it at the collateral ratio. The caller must have
// approved the vault account for amount beforehand.
func (e *Engine) DepositCollateral(caller common.Address, currency types.Currency, amount *big.Int) (*DepositResult, error) {
	if err := e.writable(currency); err != nil {
		return nil, err
	}
	quote, err := e.PreviewDeposit(currency, amount)
	if err != nil {
		return nil, err
	}
	if err := e.ledger.TransferFrom(e.moduleAddr, caller, e.moduleAddr, currency, quote.Amount); err != nil {
		return nil, fmt.Errorf("vault engine: pull collateral: %w", err)
	}
	if quote.Minted.Sign() > 0 {
		if err := e.ledger.Mint(caller, types.BRICS, quote.Minted); err != nil {
			return nil, fmt.Errorf("vault engine: mint: %w", err)
		}
	}

	position, err := e.loadPosition(caller, currency)
	if err != nil {
		return nil, err
	}
	position.CollateralDeposited.Add(position.CollateralDeposited, quote.Amount)
	position.StablecoinMinted.Add(position.StablecoinMinted, quote.Minted)

	global, err := e.loadGlobal()
	if err != nil {
		return nil, err
	}
	global.adjustDeposits(currency, quote.Amount)
	global.StablecoinSupply.Add(global.StablecoinSupply, quote.Minted)

	if err := e.persist(position, global); err != nil {
		return nil, err
	}
	if err := e.state.TrackVaultOwner(caller); err != nil {
		return nil, err
	}
	return &DepositResult{DepositQuote: quote, Position: position.Clone()}, nil
}

// RedeemCollateral burns stablecoinAmount from caller and releases collateral
// at the current rate.
func (e *Engine) RedeemCollateral(caller common.Address, currency types.Currency, stablecoinAmount *big.Int) (*RedeemResult, error) {
	if err := e.writable(currency); err != nil {
		return nil, err
	}
	if stablecoinAmount == nil || stablecoinAmount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	position, err := e.loadPosition(caller, currency)
	if err != nil {
		return nil, err
	}
	if position.StablecoinMinted.Cmp(stablecoinAmount) < 0 {
		return nil, errExceedsOutstanding
	}
	rate, err := e.rates.ExchangeRate(currency)
	if err != nil {
		return nil, err
	}
	out := redeemOut(stablecoinAmount, rate)
	if out.Sign() == 0 {
		return nil, errRedeemTooSmall
	}
	if out.Cmp(position.CollateralDeposited) > 0 {
		return nil, errExceedsCollateral
	}

	if err := e.ledger.Burn(caller, types.BRICS, stablecoinAmount); err != nil {
		return nil, fmt.Errorf("vault engine: burn: %w", err)
	}
	if err := e.ledger.Transfer(e.moduleAddr, caller, currency, out); err != nil {
		return nil, fmt.Errorf("vault engine: release collateral: %w", err)
	}

	position.StablecoinMinted.Sub(position.StablecoinMinted, stablecoinAmount)
	position.CollateralDeposited.Sub(position.CollateralDeposited, out)

	global, err := e.loadGlobal()
	if err != nil {
		return nil, err
	}
	global.adjustDeposits(currency, new(big.Int).Neg(out))
	global.StablecoinSupply = clampZero(global.StablecoinSupply.Sub(global.StablecoinSupply, stablecoinAmount))

	if err := e.persist(position, global); err != nil {
		return nil, err
	}
	return &RedeemResult{
		Currency:      currency,
		Rate:          rate,
		Burned:        new(big.Int).Set(stablecoinAmount),
		CollateralOut: out,
		Position:      position.Clone(),
	}, nil
}

// PreviewLiquidate evaluates the position of owner in currency at the
// current rate.
func (e *Engine) PreviewLiquidate(owner common.Address, currency types.Currency) (LiquidationPreview, error) {
	if err := e.ready(); err != nil {
		return LiquidationPreview{}, err
	}
	if !e.currencies.IsCollateral(currency) {
		return LiquidationPreview{}, errNotCollateral
	}
	params, err := e.Params()
	if err != nil {
		return LiquidationPreview{}, err
	}
	position, err := e.loadPosition(owner, currency)
	if err != nil {
		return LiquidationPreview{}, err
	}
	rate, err := e.rates.ExchangeRate(currency)
	if err != nil {
		return LiquidationPreview{}, err
	}
	return evaluatePosition(owner, currency, position.CollateralDeposited, position.StablecoinMinted, rate, params), nil
}

// Liquidate seizes collateral from a position below the liquidation ratio and
// cancels the matching debt. Whose BRICS is burned follows Params.BurnSource.
func (e *Engine) Liquidate(caller, owner common.Address, currency types.Currency) (*LiquidationResult, error) {
	if err := e.writable(currency); err != nil {
		return nil, err
	}
	params, err := e.Params()
	if err != nil {
		return nil, err
	}
	preview, err := e.PreviewLiquidate(owner, currency)
	if err != nil {
		return nil, err
	}
	if preview.Status != StatusLiquidatable {
		return nil, errNotEligible
	}

	burner, recipient := caller, caller
	if params.BurnSource == BurnFromOwner {
		burner, recipient = owner, e.treasury
	}
	if preview.DebtToRepay.Sign() > 0 {
		if err := e.ledger.Burn(burner, types.BRICS, preview.DebtToRepay); err != nil {
			return nil, fmt.Errorf("vault engine: burn repayment: %w", err)
		}
	}
	if err := e.ledger.Transfer(e.moduleAddr, recipient, currency, preview.TokensToLiquidate); err != nil {
		return nil, fmt.Errorf("vault engine: transfer seized collateral: %w", err)
	}

	position, err := e.loadPosition(owner, currency)
	if err != nil {
		return nil, err
	}
	position.CollateralDeposited = clampZero(position.CollateralDeposited.Sub(position.CollateralDeposited, preview.TokensToLiquidate))
	position.StablecoinMinted = clampZero(position.StablecoinMinted.Sub(position.StablecoinMinted, preview.DebtToRepay))
	if preview.FullLiquidation {
		position.CollateralDeposited.SetInt64(0)
		position.StablecoinMinted.SetInt64(0)
	}

	global, err := e.loadGlobal()
	if err != nil {
		return nil, err
	}
	global.adjustDeposits(currency, new(big.Int).Neg(preview.TokensToLiquidate))
	global.StablecoinSupply = clampZero(global.StablecoinSupply.Sub(global.StablecoinSupply, preview.DebtToRepay))
	global.BadDebt.Add(global.BadDebt, preview.BadDebt)

	if err := e.persist(position, global); err != nil {
		return nil, err
	}
	return &LiquidationResult{
		LiquidationPreview: preview,
		Recipient:          recipient,
		Burner:             burner,
		Position:           position.Clone(),
	}, nil
}

// LiquidationCandidates evaluates every known position and returns those
// below the collateral ratio, liquidatable first.
func (e *Engine) LiquidationCandidates() ([]LiquidationPreview, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	params, err := e.Params()
	if err != nil {
		return nil, err
	}
	owners, err := e.state.VaultOwners()
	if err != nil {
		return nil, err
	}
	var liquidatable, warning []LiquidationPreview
	for _, currency := range e.currencies.Collaterals() {
		rate, err := e.rates.ExchangeRate(currency)
		if err != nil {
			if errors.Is(err, nativecommon.ErrUnknownCurrency) {
				continue
			}
			return nil, err
		}
		for _, owner := range owners {
			position, ok, err := e.state.VaultPosition(owner, currency)
			if err != nil {
				return nil, err
			}
			if !ok || position == nil {
				continue
			}
			ensurePosition(position)
			preview := evaluatePosition(owner, currency, position.CollateralDeposited, position.StablecoinMinted, rate, params)
			switch preview.Status {
			case StatusLiquidatable:
				liquidatable = append(liquidatable, preview)
			case StatusWarning:
				warning = append(warning, preview)
			}
		}
	}
	return append(liquidatable, warning...), nil
}

func (e *Engine) persist(position *Position, global *GlobalState) error {
	if err := e.state.PutVaultPosition(position); err != nil {
		return err
	}
	return e.state.PutVaultGlobal(global)
}
