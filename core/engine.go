package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bricsengine/core/state"
	"bricsengine/core/types"
	"bricsengine/native/bank"
	nativecommon "bricsengine/native/common"
	"bricsengine/native/pool"
	"bricsengine/native/rates"
	"bricsengine/native/vault"
	"bricsengine/observability"
	"bricsengine/observability/logging"
)

// ModuleAccounts are the ledger accounts owned by the engine.
type ModuleAccounts struct {
	Vault    common.Address
	Pool     common.Address
	Treasury common.Address
}

// DefaultModuleAccounts derives the module accounts from their labels.
func DefaultModuleAccounts() ModuleAccounts {
	return ModuleAccounts{
		Vault:    types.ModuleAddress("vault"),
		Pool:     types.ModuleAddress("pool"),
		Treasury: types.ModuleAddress("treasury"),
	}
}

// Config describes an engine deployment.
type Config struct {
	// Authority is the hex address allowed to set rates, ratios and pauses.
	Authority  string
	Currencies *types.CurrencyTable
	// Rates seed the rate table on a fresh store.
	Rates    map[types.Currency]*big.Int
	Vault    vault.Params
	Pool     pool.Params
	Accounts ModuleAccounts
	Genesis  []GenesisBalance
}

// Option customises an Engine.
type Option func(*Engine)

// WithJournal records a receipt for every committed mutation.
func WithJournal(j Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides the engine clock for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// Engine is the single owner of stablecoin state. Every mutation runs inside
// one state transaction and either commits fully or leaves state untouched.
type Engine struct {
	state      *state.Manager
	currencies *types.CurrencyTable
	authority  string
	poolParams pool.Params
	accounts   ModuleAccounts
	journal    Journal
	logger     *slog.Logger
	clock      func() time.Time
	metrics    *observability.EngineMetrics
	tracer     trace.Tracer
}

// NewEngine validates cfg, seeds genesis state on a fresh store and returns
// the engine.
func NewEngine(manager *state.Manager, cfg Config, opts ...Option) (*Engine, error) {
	if manager == nil {
		return nil, errors.New("core: state manager required")
	}
	if cfg.Currencies == nil {
		cfg.Currencies = types.DefaultCurrencies()
	}
	if _, err := types.ParseAddress(cfg.Authority); err != nil {
		return nil, fmt.Errorf("core: authority: %w", err)
	}
	if cfg.Vault == (vault.Params{}) {
		cfg.Vault = vault.DefaultParams()
	}
	if err := cfg.Vault.Validate(); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if cfg.Pool.ReserveFloor == nil {
		cfg.Pool = pool.DefaultParams()
	}
	if err := cfg.Pool.Validate(); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	defaults := DefaultModuleAccounts()
	if cfg.Accounts.Vault == (common.Address{}) {
		cfg.Accounts.Vault = defaults.Vault
	}
	if cfg.Accounts.Pool == (common.Address{}) {
		cfg.Accounts.Pool = defaults.Pool
	}
	if cfg.Accounts.Treasury == (common.Address{}) {
		cfg.Accounts.Treasury = defaults.Treasury
	}

	e := &Engine{
		state:      manager,
		currencies: cfg.Currencies,
		authority:  cfg.Authority,
		poolParams: cfg.Pool,
		accounts:   cfg.Accounts,
		logger:     slog.Default(),
		clock:      time.Now,
		metrics:    observability.Engine(),
		tracer:     otel.Tracer("bricsengine/core"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := manager.EnsureStateVersion(false); err != nil {
		return nil, err
	}
	if err := e.applyGenesis(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// Currencies returns the configured currency table.
func (e *Engine) Currencies() *types.CurrencyTable { return e.currencies }

// Accounts returns the module accounts.
func (e *Engine) Accounts() ModuleAccounts { return e.accounts }

// PoolParams returns the pool configuration.
func (e *Engine) PoolParams() pool.Params { return e.poolParams }

// modules are the native engines bound to one transaction.
type modules struct {
	ledger *bank.Ledger
	rates  *rates.Engine
	vault  *vault.Engine
	pool   *pool.Engine
}

func (e *Engine) bind(tx *state.Tx) *modules {
	ledger := bank.NewLedger(tx, e.currencies)

	rateEngine := rates.NewEngine(e.currencies, e.authority)
	rateEngine.SetState(tx)

	vaultEngine := vault.NewEngine(e.currencies, e.accounts.Vault, e.accounts.Treasury, e.authority)
	vaultEngine.SetState(tx)
	vaultEngine.SetRates(rateEngine)
	vaultEngine.SetLedger(ledger)
	vaultEngine.SetPauses(tx)

	poolEngine := pool.NewEngine(e.currencies, e.poolParams, e.accounts.Pool, e.accounts.Treasury)
	poolEngine.SetState(tx)
	poolEngine.SetRates(rateEngine)
	poolEngine.SetLedger(ledger)
	poolEngine.SetPauses(tx)

	return &modules{ledger: ledger, rates: rateEngine, vault: vaultEngine, pool: poolEngine}
}

func (e *Engine) update(fn func(m *modules) error) error {
	return e.state.Update(func(tx *state.Tx) error { return fn(e.bind(tx)) })
}

func (e *Engine) view(fn func(m *modules) error) error {
	return e.state.View(func(tx *state.Tx) error { return fn(e.bind(tx)) })
}

// begin opens a span for operation and returns the function that closes it
// and observes metrics.
func (e *Engine) begin(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := e.clock()
	ctx, span := e.tracer.Start(ctx, operation, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		e.metrics.Observe(operation, e.clock().Sub(start), err)
	}
}

// committed logs and journals a successful mutation.
func (e *Engine) committed(ctx context.Context, operation string, caller common.Address, details map[string]string) {
	args := []any{"operation", operation, logging.MaskAddress("caller", caller.Hex())}
	args = append(args, logging.DetailAttrs(details)...)
	e.logger.InfoContext(ctx, "operation committed", args...)
	e.record(ctx, operation, caller, details)
}

func (e *Engine) symbol(c types.Currency) string { return e.currencies.Symbol(c) }

func currencyAttr(key string, table *types.CurrencyTable, c types.Currency) attribute.KeyValue {
	return attribute.String(key, table.Symbol(c))
}

// SetExchangeRate replaces the rate of a collateral currency. Authority only.
func (e *Engine) SetExchangeRate(ctx context.Context, caller common.Address, currency types.Currency, rate *big.Int) (err error) {
	ctx, end := e.begin(ctx, "rates.set", currencyAttr("currency", e.currencies, currency))
	defer func() { end(err) }()
	err = e.update(func(m *modules) error {
		return m.rates.SetExchangeRate(caller, currency, rate)
	})
	if err == nil {
		e.committed(ctx, "rates.set", caller, map[string]string{
			"currency": e.symbol(currency),
			"rate":     types.FormatRate(rate),
		})
	}
	return err
}

// ExchangeRate returns the authority rate of currency.
func (e *Engine) ExchangeRate(ctx context.Context, currency types.Currency) (rate *big.Int, err error) {
	_, end := e.begin(ctx, "rates.get", currencyAttr("currency", e.currencies, currency))
	defer func() { end(err) }()
	err = e.view(func(m *modules) error {
		rate, err = m.rates.ExchangeRate(currency)
		return err
	})
	return rate, err
}

// Rates lists every configured collateral rate.
func (e *Engine) Rates(ctx context.Context) (entries []rates.RateEntry, err error) {
	_, end := e.begin(ctx, "rates.list")
	defer func() { end(err) }()
	err = e.view(func(m *modules) error {
		entries, err = m.rates.Rates()
		return err
	})
	return entries, err
}

// VaultParams returns the stored vault ratios.
func (e *Engine) VaultParams(ctx context.Context) (params vault.Params, err error) {
	_, end := e.begin(ctx, "vault.params")
	defer func() { end(err) }()
	err = e.view(func(m *modules) error {
		params, err = m.vault.Params()
		return err
	})
	return params, err
}

// CollateralRatio returns the minting ratio in basis points.
func (e *Engine) CollateralRatio(ctx context.Context) (uint32, error) {
	params, err := e.VaultParams(ctx)
	return params.CollateralRatio, err
}

// LiquidationRatio returns the liquidation threshold in basis points.
func (e *Engine) LiquidationRatio(ctx context.Context) (uint32, error) {
	params, err := e.VaultParams(ctx)
	return params.LiquidationRatio, err
}

// SetVaultParams replaces the vault ratios. Authority only.
func (e *Engine) SetVaultParams(ctx context.Context, caller common.Address, params vault.Params) (err error) {
	ctx, end := e.begin(ctx, "vault.set_params")
	defer func() { end(err) }()
	err = e.update(func(m *modules) error {
		return m.vault.SetParams(caller, params)
	})
	if err == nil {
		e.committed(ctx, "vault.set_params", caller, map[string]string{
			"collateral_ratio":  fmt.Sprint(params.CollateralRatio),
			"liquidation_ratio": fmt.Sprint(params.LiquidationRatio),
			"liquidation_bonus": fmt.Sprint(params.LiquidationBonus),
			"burn_source":       params.BurnSource.String(),
		})
	}
	return err
}

// VaultState returns the vault totals.
func (e *Engine) VaultState(ctx context.Context) (global *vault.GlobalState, err error) {
	_, end := e.begin(ctx, "vault.state")
	defer func() { end(err) }()
	err = e.view(func(m *modules) error {
		global, err = m.vault.GlobalState()
		return err
	})
	return global, err
}

// Position returns the position of owner in currency.
func (e *Engine) Position(ctx context.Context, owner common.Address, currency types.Currency) (position *vault.Position, err error) {
	_, end := e.begin(ctx, "vault.position", currencyAttr("currency", e.currencies, currency))
	defer func() { end(err) }()
	err = e.view(func(m *modules) error {
		position, err = m.vault.Position(owner, currency)
		return err
	})
	return position, err
}

// PreviewDeposit prices a deposit without touching state.
func (e *Engine) PreviewDeposit(ctx context.Context, currency types.Currency, amount *big.Int) (quote vault.DepositQuote, err error) {
	_, end := e.begin(ctx, "vault.preview_deposit", currencyAttr("currency", e.currencies, currency))
	defer func() { end(err) }()
	err = e.view(func(m *modules) error {
		quote, err = m.vault.PreviewDeposit(currency, amount)
		return err
	})
	return quote, err
}

// DepositCollateral pulls collateral from caller and mints BRICS.
func (e *Engine) DepositCollateral(ctx context.Context, caller common.Address, currency types.Currency, amount *big.Int) (res *vault.DepositResult, err error) {
	ctx, end := e.begin(ctx, "vault.deposit", currencyAttr("currency", e.currencies, currency))
	defer func() { end(err) }()
	err = e.update(func(m *modules) error {
		res, err = m.vault.DepositCollateral(caller, currency, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.committed(ctx, "vault.deposit", caller, map[string]string{
		"currency": e.symbol(currency),
		"amount":   types.FormatAmount(res.Amount),
		"rate":     types.FormatRate(res.Rate),
		"minted":   types.FormatAmount(res.Minted),
	})
	e.publishVaultTotals(ctx)
	return res, nil
}

// RedeemCollateral burns caller BRICS and releases collateral.
func (e *Engine) RedeemCollateral(ctx context.Context, caller common.Address, currency types.Currency, stablecoinAmount *big.Int) (res *vault.RedeemResult, err error) {
	ctx, end := e.begin(ctx, "vault.redeem", currencyAttr("currency", e.currencies, currency))
	defer func() { end(err) }()
	err = e.update(func(m *modules) error {
		res, err = m.vault.RedeemCollateral(caller, currency, stablecoinAmount)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.committed(ctx, "vault.redeem", caller, map[string]string{
		"currency":       e.symbol(currency),
		"burned":         types.FormatAmount(res.Burned),
		"collateral_out": types.FormatAmount(res.CollateralOut),
	})
	e.publishVaultTotals(ctx)
	return res, nil
}

// PreviewLiquidate evaluates the health of a position.
func (e *Engine) PreviewLiquidate(ctx context.Context, owner common.Address, currency types.Currency) (preview vault.LiquidationPreview, err error) {
	_, end := e.begin(ctx, "vault.preview_liquidate", currencyAttr("currency", e.currencies, currency))
	defer func() { end(err) }()
	err = e.view(func(m *modules) error {
		preview, err = m.vault.PreviewLiquidate(owner, currency)
		return err
	})
	return preview, err
}

// Liquidate seizes collateral from an unhealthy position.
func (e *Engine) Liquidate(ctx context.Context, caller, owner common.Address, currency types.Currency) (res *vault.LiquidationResult, err error) {
	ctx, end := e.begin(ctx, "vault.liquidate", currencyAttr("currency", e.currencies, currency))
	defer func() { end(err) }()
	err = e.update(func(m *modules) error {
		res, err = m.vault.Liquidate(caller, owner, currency)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.committed(ctx, "vault.liquidate", caller, map[string]string{
		"owner":       owner.Hex(),
		"currency":    e.symbol(currency),
		"seized":      types.FormatAmount(res.TokensToLiquidate),
		"debt_repaid": types.FormatAmount(res.DebtToRepay),
		"bad_debt":    types.FormatAmount(res.BadDebt),
		"full":        fmt.Sprint(res.FullLiquidation),
	})
	observability.Events().RecordLiquidation(e.symbol(currency), res.FullLiquidation)
	e.publishVaultTotals(ctx)
	return res, nil
}

// LiquidationCandidates lists positions below the collateral ratio.
func (e *Engine) LiquidationCandidates(ctx context.Context) (out []vault.LiquidationPreview, err error) {
	_, end := e.begin(ctx, "vault.candidates")
	defer func() { end(err) }()
	err = e.view(func(m *modules) error {
		out, err = m.vault.LiquidationCandidates()
		return err
	})
	return out, err
}

func (e *Engine) publishVaultTotals(ctx context.Context) {
	global, err := e.VaultState(ctx)
	if err != nil || global == nil {
		return
	}
	observability.Events().SetVaultTotals(e.symbol(e.currencies.Stablecoin()), global.StablecoinSupply, global.BadDebt)
}

// PoolKey returns the order-independent key of a pair.
func (e *Engine) PoolKey(a, b types.Currency) (common.Hash, error) {
	return pool.NewEngine(e.currencies, e.poolParams, e.accounts.Pool, e.accounts.Treasury).PoolKey(a, b)
}

// PoolsAvailability reports every collateral pool and whether it trades.
func (e *Engine) PoolsAvailability(ctx context.Context) (out *pool.Availability, err error) {
	_, end := e.begin(ctx, "pool.availability")
	defer func() { end(err) }()
	err = e.view(func(m *modules) error {
		out, err = m.pool.Availability()
		return err
	})
	return out, err
}

// PoolExchangeRate returns the spot price of from in to.
func (e *Engine) PoolExchangeRate(ctx context.Context, from, to types.Currency) (rate *big.Int, err error) {
	_, end := e.begin(ctx, "pool.rate", currencyAttr("from", e.currencies, from), currencyAttr("to", e.currencies, to))
	defer func() { end(err) }()
	err = e.view(func(m *modules) error {
		rate, err = m.pool.ExchangeRate(from, to)
		return err
	})
	return rate, err
}

// Pool returns the pool of a pair.
func (e *Engine) Pool(ctx context.Context, a, b types.Currency) (p *pool.Pool, err error) {
	_, end := e.begin(ctx, "pool.get")
	defer func() { end(err) }()
	err = e.view(func(m *modules) error {
		p, err = m.pool.Pool(a, b)
		return err
	})
	return p, err
}

// UserLiquidity returns the LP holding of owner in a pool.
func (e *Engine) UserLiquidity(ctx context.Context, owner common.Address, a, b types.Currency) (out *pool.UserLiquidity, err error) {
	_, end := e.begin(ctx, "pool.user_liquidity")
	defer func() { end(err) }()
	err = e.view(func(m *modules) error {
		out, err = m.pool.UserLiquidity(owner, a, b)
		return err
	})
	return out, err
}

// AddLiquidity deposits into a pool. A nil toleranceBps uses the default.
func (e *Engine) AddLiquidity(ctx context.Context, caller common.Address, a, b types.Currency, amountA, amountB *big.Int, toleranceBps *uint32) (res *pool.AddLiquidityResult, err error) {
	ctx, end := e.begin(ctx, "pool.add_liquidity", currencyAttr("a", e.currencies, a), currencyAttr("b", e.currencies, b))
	defer func() { end(err) }()
	err = e.update(func(m *modules) error {
		res, err = m.pool.AddLiquidity(caller, a, b, amountA, amountB, toleranceBps)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.committed(ctx, "pool.add_liquidity", caller, map[string]string{
		"pool":        e.symbol(res.Pool.Currency0) + "/" + e.symbol(res.Pool.Currency1),
		"amount0":     types.FormatAmount(res.Amount0),
		"amount1":     types.FormatAmount(res.Amount1),
		"lp_minted":   types.FormatAmount(res.LPMinted),
		"deposit_fee": types.FormatAmount(res.DepositFee),
	})
	return res, nil
}

// RemoveLiquidity withdraws from a pool.
func (e *Engine) RemoveLiquidity(ctx context.Context, caller common.Address, a, b types.Currency, amountA, amountB *big.Int) (res *pool.RemoveLiquidityResult, err error) {
	ctx, end := e.begin(ctx, "pool.remove_liquidity", currencyAttr("a", e.currencies, a), currencyAttr("b", e.currencies, b))
	defer func() { end(err) }()
	err = e.update(func(m *modules) error {
		res, err = m.pool.RemoveLiquidity(caller, a, b, amountA, amountB)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.committed(ctx, "pool.remove_liquidity", caller, map[string]string{
		"pool":           e.symbol(res.Pool.Currency0) + "/" + e.symbol(res.Pool.Currency1),
		"amount0":        types.FormatAmount(res.Amount0),
		"amount1":        types.FormatAmount(res.Amount1),
		"lp_burned":      types.FormatAmount(res.LPBurned),
		"withdrawal_fee": types.FormatAmount(res.WithdrawalFee),
	})
	return res, nil
}

// PreviewSwap simulates a swap.
func (e *Engine) PreviewSwap(ctx context.Context, from, to types.Currency, amountIn *big.Int) (quote pool.SwapQuote, err error) {
	_, end := e.begin(ctx, "pool.preview_swap", currencyAttr("from", e.currencies, from), currencyAttr("to", e.currencies, to))
	defer func() { end(err) }()
	err = e.view(func(m *modules) error {
		quote, err = m.pool.PreviewSwap(from, to, amountIn)
		return err
	})
	return quote, err
}

// Swap trades along the constant-product curve.
func (e *Engine) Swap(ctx context.Context, caller common.Address, from, to types.Currency, amountIn, minAmountOut *big.Int) (res *pool.SwapResult, err error) {
	ctx, end := e.begin(ctx, "pool.swap", currencyAttr("from", e.currencies, from), currencyAttr("to", e.currencies, to))
	defer func() { end(err) }()
	err = e.update(func(m *modules) error {
		res, err = m.pool.Swap(caller, from, to, amountIn, minAmountOut)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.committed(ctx, "pool.swap", caller, map[string]string{
		"from":       e.symbol(from),
		"to":         e.symbol(to),
		"amount_in":  types.FormatAmount(res.AmountIn),
		"amount_out": types.FormatAmount(res.AmountOut),
		"fee_brics":  types.FormatAmount(res.TotalFeeBrics),
	})
	return res, nil
}

// Balance returns the balance of owner.
func (e *Engine) Balance(ctx context.Context, owner common.Address, currency types.Currency) (bal *big.Int, err error) {
	_, end := e.begin(ctx, "bank.balance")
	defer func() { end(err) }()
	err = e.view(func(m *modules) error {
		bal, err = m.ledger.BalanceOf(owner, currency)
		return err
	})
	return bal, err
}

// Allowance returns what spender may pull from owner.
func (e *Engine) Allowance(ctx context.Context, owner, spender common.Address, currency types.Currency) (amount *big.Int, err error) {
	_, end := e.begin(ctx, "bank.allowance")
	defer func() { end(err) }()
	err = e.view(func(m *modules) error {
		amount, err = m.ledger.Allowance(owner, spender, currency)
		return err
	})
	return amount, err
}

// TotalSupply returns the circulating supply of currency.
func (e *Engine) TotalSupply(ctx context.Context, currency types.Currency) (supply *big.Int, err error) {
	_, end := e.begin(ctx, "bank.supply")
	defer func() { end(err) }()
	err = e.view(func(m *modules) error {
		supply, err = m.ledger.TotalSupply(currency)
		return err
	})
	return supply, err
}

// Approve sets the allowance spender may pull from caller.
func (e *Engine) Approve(ctx context.Context, caller, spender common.Address, currency types.Currency, amount *big.Int) (err error) {
	ctx, end := e.begin(ctx, "bank.approve")
	defer func() { end(err) }()
	err = e.update(func(m *modules) error {
		return m.ledger.Approve(caller, spender, currency, amount)
	})
	if err == nil {
		e.committed(ctx, "bank.approve", caller, map[string]string{
			"spender":  spender.Hex(),
			"currency": e.symbol(currency),
			"amount":   types.FormatAmount(amount),
		})
	}
	return err
}

// Transfer moves caller funds to another account.
func (e *Engine) Transfer(ctx context.Context, caller, to common.Address, currency types.Currency, amount *big.Int) (err error) {
	ctx, end := e.begin(ctx, "bank.transfer")
	defer func() { end(err) }()
	err = e.update(func(m *modules) error {
		return m.ledger.Transfer(caller, to, currency, amount)
	})
	if err == nil {
		observability.Events().RecordTransfer(e.symbol(currency))
		e.committed(ctx, "bank.transfer", caller, map[string]string{
			"to":       to.Hex(),
			"currency": e.symbol(currency),
			"amount":   types.FormatAmount(amount),
		})
	}
	return err
}

// SetPaused halts or resumes the mutating operations of module. Authority
// only.
func (e *Engine) SetPaused(ctx context.Context, caller common.Address, module string, paused bool) (err error) {
	ctx, end := e.begin(ctx, "admin.pause", attribute.String("module", module), attribute.Bool("paused", paused))
	defer func() { end(err) }()
	if err = nativecommon.RequireAuthority(e.authority, caller); err != nil {
		return fmt.Errorf("admin: pause: %w", err)
	}
	if !nativecommon.KnownModule(module) {
		return fmt.Errorf("admin: unknown module %q: %w", module, nativecommon.ErrInvalidInput)
	}
	err = e.state.Update(func(tx *state.Tx) error {
		return tx.SetPaused(module, paused)
	})
	if err == nil {
		e.committed(ctx, "admin.pause", caller, map[string]string{
			"module": module,
			"paused": fmt.Sprint(paused),
		})
	}
	return err
}

// Paused reports the pause flag of every module.
func (e *Engine) Paused(ctx context.Context) (map[string]bool, error) {
	out := make(map[string]bool, 2)
	err := e.state.View(func(tx *state.Tx) error {
		for _, module := range []string{nativecommon.ModuleVault, nativecommon.ModulePool} {
			out[module] = tx.IsPaused(module)
		}
		return nil
	})
	return out, err
}
