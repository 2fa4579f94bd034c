package pool

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"bricsengine/core/types"
	nativecommon "bricsengine/native/common"
)

type engineState interface {
	Pool(key common.Hash) (*Pool, bool, error)
	PutPool(pool *Pool) error
	LiquidityPosition(key common.Hash, provider common.Address) (*LiquidityPosition, bool, error)
	PutLiquidityPosition(position *LiquidityPosition) error
}

// RateSource supplies authority-set rates, used here only to value fees in
// BRICS.
type RateSource interface {
	ExchangeRate(currency types.Currency) (*big.Int, error)
}

// Ledger is the token ledger the pools settle against.
type Ledger interface {
	Transfer(from, to common.Address, currency types.Currency, amount *big.Int) error
	TransferFrom(spender, owner, to common.Address, currency types.Currency, amount *big.Int) error
}

var (
	errNilEngine      = errors.New("pool engine: not initialised")
	errInvalidAmount  = fmt.Errorf("pool engine: amount must be positive: %w", nativecommon.ErrInvalidInput)
	errSamePair       = fmt.Errorf("pool engine: pair needs two distinct currencies: %w", nativecommon.ErrInvalidInput)
	errNoPool         = fmt.Errorf("pool engine: pools pair a collateral with BRICS: %w", nativecommon.ErrInvalidInput)
	errEmptyPool      = fmt.Errorf("pool engine: pool has no liquidity: %w", nativecommon.ErrInvalidInput)
	errZeroLiquidity  = fmt.Errorf("pool engine: amounts mint no liquidity: %w", nativecommon.ErrInvalidInput)
	errZeroOutput     = fmt.Errorf("pool engine: swap output rounds to zero: %w", nativecommon.ErrInvalidInput)
	errRatioMismatch  = fmt.Errorf("pool engine: amounts do not match pool price: %w", nativecommon.ErrRatioMismatch)
	errBelowFloor     = fmt.Errorf("pool engine: reserves would fall below the floor: %w", nativecommon.ErrBelowMinimum)
	errSlippage       = fmt.Errorf("pool engine: output below minimum: %w", nativecommon.ErrSlippageExceeded)
	errInsufficientLP = fmt.Errorf("pool engine: not enough liquidity tokens: %w", nativecommon.ErrInsufficientBalance)
	errInvariant      = errors.New("pool engine: constant product decreased")
)

// Engine applies pool operations against a bound state transaction.
type Engine struct {
	currencies *types.CurrencyTable
	params     Params
	moduleAddr common.Address
	treasury   common.Address
	state      engineState
	rates      RateSource
	ledger     Ledger
	pauses     nativecommon.PauseView
}

// NewEngine constructs a pool engine. moduleAddr holds every reserve;
// treasury collects deposit, withdrawal and protocol swap fees.
func NewEngine(currencies *types.CurrencyTable, params Params, moduleAddr, treasury common.Address) *Engine {
	return &Engine{
		currencies: currencies,
		params:     params,
		moduleAddr: moduleAddr,
		treasury:   treasury,
	}
}

// SetState binds the engine to a state transaction.
func (e *Engine) SetState(state engineState) {
	if e == nil {
		return
	}
	e.state = state
}

// SetRates configures the rate source used for fee valuation.
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

// Params returns the pool configuration.
func (e *Engine) Params() Params {
	if e == nil {
		return DefaultParams()
	}
	return e.params
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil || e.rates == nil {
		return errNilEngine
	}
	return nil
}

func (e *Engine) writable() error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.ledger == nil {
		return errNilEngine
	}
	return nativecommon.Guard(e.pauses, nativecommon.ModulePool)
}

// PoolKey returns the order-independent key for a currency pair.
func (e *Engine) PoolKey(a, b types.Currency) (common.Hash, error) {
	metaA, okA := e.currencies.Meta(a)
	metaB, okB := e.currencies.Meta(b)
	if !okA || !okB {
		return common.Hash{}, fmt.Errorf("pool engine: %w", nativecommon.ErrUnknownCurrency)
	}
	if a == b {
		return common.Hash{}, errSamePair
	}
	return KeyForSymbols(metaA.Symbol, metaB.Symbol), nil
}

// collateralOf validates a pair and returns its collateral side.
func (e *Engine) collateralOf(a, b types.Currency) (types.Currency, error) {
	if _, err := e.PoolKey(a, b); err != nil {
		return 0, err
	}
	stable := e.currencies.Stablecoin()
	switch {
	case a == stable && e.currencies.IsCollateral(b):
		return b, nil
	case b == stable && e.currencies.IsCollateral(a):
		return a, nil
	default:
		return 0, errNoPool
	}
}

func (e *Engine) loadPool(collateral types.Currency) (*Pool, error) {
	key := KeyForSymbols(e.currencies.Symbol(collateral), e.currencies.Symbol(e.currencies.Stablecoin()))
	pool, ok, err := e.state.Pool(key)
	if err != nil {
		return nil, err
	}
	if !ok || pool == nil {
		pool = &Pool{Key: key, Currency0: collateral, Currency1: e.currencies.Stablecoin()}
	}
	pool.ensure()
	return pool, nil
}

func (e *Engine) loadPosition(key common.Hash, provider common.Address) (*LiquidityPosition, error) {
	position, ok, err := e.state.LiquidityPosition(key, provider)
	if err != nil {
		return nil, err
	}
	if !ok || position == nil {
		position = &LiquidityPosition{Pool: key, Provider: provider}
	}
	if position.LPTokens == nil {
		position.LPTokens = big.NewInt(0)
	}
	return position, nil
}

// Pool returns the pool of a pair. Pools that never received liquidity are
// returned with zero reserves.
func (e *Engine) Pool(a, b types.Currency) (*Pool, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	collateral, err := e.collateralOf(a, b)
	if err != nil {
		return nil, err
	}
	return e.loadPool(collateral)
}

// Availability lists every collateral pool in table order. A pool is
// available when both reserves exceed the floor.
func (e *Engine) Availability() (*Availability, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	out := &Availability{}
	stableSymbol := e.currencies.Symbol(e.currencies.Stablecoin())
	for _, collateral := range e.currencies.Collaterals() {
		pool, err := e.loadPool(collateral)
		if err != nil {
			return nil, err
		}
		out.Names = append(out.Names, e.currencies.Symbol(collateral)+"/"+stableSymbol)
		out.Reserve0 = append(out.Reserve0, pool.Reserve0)
		out.Reserve1 = append(out.Reserve1, pool.Reserve1)
		out.IsAvailable = append(out.IsAvailable,
			pool.Reserve0.Cmp(e.params.ReserveFloor) > 0 && pool.Reserve1.Cmp(e.params.ReserveFloor) > 0)
	}
	return out, nil
}

// ExchangeRate returns the spot price reserveOf(to)*10_000/reserveOf(from).
func (e *Engine) ExchangeRate(from, to types.Currency) (*big.Int, error) {
	pool, err := e.Pool(from, to)
	if err != nil {
		return nil, err
	}
	reserveFrom := pool.reserveOf(from)
	if reserveFrom.Sign() == 0 || pool.reserveOf(to).Sign() == 0 {
		return nil, errEmptyPool
	}
	return mulDiv(pool.reserveOf(to), bpsBig, reserveFrom)
}

// UserLiquidity returns the LP holding of owner and what it redeems for at
// current reserves.
func (e *Engine) UserLiquidity(owner common.Address, a, b types.Currency) (*UserLiquidity, error) {
	pool, err := e.Pool(a, b)
	if err != nil {
		return nil, err
	}
	position, err := e.loadPosition(pool.Key, owner)
	if err != nil {
		return nil, err
	}
	out := &UserLiquidity{LPTokens: position.LPTokens, Token0Amount: big.NewInt(0), Token1Amount: big.NewInt(0)}
	if pool.TotalLP.Sign() == 0 || position.LPTokens.Sign() == 0 {
		return out, nil
	}
	if out.Token0Amount, err = mulDiv(position.LPTokens, pool.Reserve0, pool.TotalLP); err != nil {
		return nil, err
	}
	if out.Token1Amount, err = mulDiv(position.LPTokens, pool.Reserve1, pool.TotalLP); err != nil {
		return nil, err
	}
	return out, nil
}

// orient maps caller-ordered amounts onto (collateral, BRICS).
func orient(collateral, a types.Currency, amountA, amountB *big.Int) (*big.Int, *big.Int) {
	if a == collateral {
		return amountA, amountB
	}
	return amountB, amountA
}

func positive(values ...*big.Int) bool {
	for _, v := range values {
		if v == nil || v.Sign() <= 0 {
			return false
		}
	}
	return true
}

// depositFee is tiered on the reserves before the deposit. A reserve at the
// floor is not available and takes the low tier.
func (e *Engine) depositFee(pool *Pool, rate *big.Int) (*big.Int, bool, error) {
	floor := e.params.ReserveFloor
	low := pool.Reserve0.Cmp(floor) <= 0 || pool.Reserve1.Cmp(floor) <= 0
	tier := e.params.DepositFeeBase
	if low {
		tier = e.params.DepositFeeLow
	}
	fee, err := bps(rate, tier)
	return fee, low, err
}

func (e *Engine) quoteAdd(pool *Pool, amount0, amount1, rate *big.Int, toleranceBps *uint32) (AddLiquidityQuote, error) {
	if !positive(amount0, amount1) {
		return AddLiquidityQuote{}, errInvalidAmount
	}
	quote := AddLiquidityQuote{
		Amount0:   new(big.Int).Set(amount0),
		Amount1:   new(big.Int).Set(amount1),
		Bootstrap: pool.TotalLP.Sign() == 0,
	}
	if quote.Bootstrap {
		switch e.params.InitialLiquidity {
		case InitialLiquiditySqrt:
			quote.LPMinted = new(big.Int).Sqrt(new(big.Int).Mul(amount0, amount1))
		default:
			quote.LPMinted = new(big.Int).Set(amount0)
		}
	} else {
		tolerance := e.params.RatioToleranceBps
		if toleranceBps != nil {
			tolerance = *toleranceBps
		}
		// |a0*r1 - a1*r0| * 10_000 <= tol * a0 * r1
		cross0 := new(big.Int).Mul(amount0, pool.Reserve1)
		cross1 := new(big.Int).Mul(amount1, pool.Reserve0)
		diff := new(big.Int).Sub(cross0, cross1)
		diff.Abs(diff).Mul(diff, bpsBig)
		allowed := new(big.Int).Mul(cross0, big.NewInt(int64(tolerance)))
		if diff.Cmp(allowed) > 0 {
			return AddLiquidityQuote{}, errRatioMismatch
		}
		lp0, err := mulDiv(amount0, pool.TotalLP, pool.Reserve0)
		if err != nil {
			return AddLiquidityQuote{}, err
		}
		lp1, err := mulDiv(amount1, pool.TotalLP, pool.Reserve1)
		if err != nil {
			return AddLiquidityQuote{}, err
		}
		quote.LPMinted = minBig(lp0, lp1)

		floor := e.params.ReserveFloor
		if new(big.Int).Add(pool.Reserve0, amount0).Cmp(floor) < 0 || new(big.Int).Add(pool.Reserve1, amount1).Cmp(floor) < 0 {
			return AddLiquidityQuote{}, errBelowFloor
		}
	}
	if quote.LPMinted.Sign() == 0 {
		return AddLiquidityQuote{}, errZeroLiquidity
	}
	fee, low, err := e.depositFee(pool, rate)
	if err != nil {
		return AddLiquidityQuote{}, err
	}
	quote.DepositFee = fee
	quote.LowFeeTier = low
	return quote, nil
}

// AddLiquidity deposits both sides of a pool and mints LP tokens. The caller
// must have approved the pool account for both amounts plus the BRICS
// deposit fee. A nil toleranceBps uses the configured default; zero demands
// the exact pool ratio.
func (e *Engine) AddLiquidity(caller common.Address, a, b types.Currency, amountA, amountB *big.Int, toleranceBps *uint32) (*AddLiquidityResult, error) {
	if err := e.writable(); err != nil {
		return nil, err
	}
	collateral, err := e.collateralOf(a, b)
	if err != nil {
		return nil, err
	}
	pool, err := e.loadPool(collateral)
	if err != nil {
		return nil, err
	}
	rate, err := e.rates.ExchangeRate(collateral)
	if err != nil {
		return nil, err
	}
	amount0, amount1 := orient(collateral, a, amountA, amountB)
	quote, err := e.quoteAdd(pool, amount0, amount1, rate, toleranceBps)
	if err != nil {
		return nil, err
	}

	if err := e.ledger.TransferFrom(e.moduleAddr, caller, e.moduleAddr, pool.Currency0, quote.Amount0); err != nil {
		return nil, fmt.Errorf("pool engine: pull %s: %w", e.currencies.Symbol(pool.Currency0), err)
	}
	if err := e.ledger.TransferFrom(e.moduleAddr, caller, e.moduleAddr, pool.Currency1, quote.Amount1); err != nil {
		return nil, fmt.Errorf("pool engine: pull %s: %w", e.currencies.Symbol(pool.Currency1), err)
	}
	if quote.DepositFee.Sign() > 0 {
		if err := e.ledger.TransferFrom(e.moduleAddr, caller, e.treasury, pool.Currency1, quote.DepositFee); err != nil {
			return nil, fmt.Errorf("pool engine: deposit fee: %w", err)
		}
	}

	position, err := e.loadPosition(pool.Key, caller)
	if err != nil {
		return nil, err
	}
	pool.Reserve0.Add(pool.Reserve0, quote.Amount0)
	pool.Reserve1.Add(pool.Reserve1, quote.Amount1)
	pool.TotalLP.Add(pool.TotalLP, quote.LPMinted)
	position.LPTokens.Add(position.LPTokens, quote.LPMinted)
	if err := e.persist(pool, position); err != nil {
		return nil, err
	}
	return &AddLiquidityResult{AddLiquidityQuote: quote, Pool: pool.Clone(), Position: position}, nil
}

func (e *Engine) quoteRemove(pool *Pool, amount0, amount1, held, rate *big.Int) (RemoveLiquidityQuote, error) {
	if !positive(amount0, amount1) {
		return RemoveLiquidityQuote{}, errInvalidAmount
	}
	if pool.TotalLP.Sign() == 0 || pool.Reserve0.Sign() == 0 || pool.Reserve1.Sign() == 0 {
		return RemoveLiquidityQuote{}, errEmptyPool
	}
	lp0, err := mulDiv(amount0, pool.TotalLP, pool.Reserve0)
	if err != nil {
		return RemoveLiquidityQuote{}, err
	}
	lp1, err := mulDiv(amount1, pool.TotalLP, pool.Reserve1)
	if err != nil {
		return RemoveLiquidityQuote{}, err
	}
	quote := RemoveLiquidityQuote{LPBurned: minBig(lp0, lp1)}
	if quote.LPBurned.Sign() == 0 {
		return RemoveLiquidityQuote{}, errZeroLiquidity
	}
	if held.Cmp(quote.LPBurned) < 0 {
		return RemoveLiquidityQuote{}, errInsufficientLP
	}
	if quote.Amount0, err = mulDiv(quote.LPBurned, pool.Reserve0, pool.TotalLP); err != nil {
		return RemoveLiquidityQuote{}, err
	}
	if quote.Amount1, err = mulDiv(quote.LPBurned, pool.Reserve1, pool.TotalLP); err != nil {
		return RemoveLiquidityQuote{}, err
	}
	floor := e.params.ReserveFloor
	if new(big.Int).Sub(pool.Reserve0, quote.Amount0).Cmp(floor) < 0 || new(big.Int).Sub(pool.Reserve1, quote.Amount1).Cmp(floor) < 0 {
		return RemoveLiquidityQuote{}, errBelowFloor
	}
	if quote.WithdrawalFee, err = bps(rate, e.params.WithdrawalFee); err != nil {
		return RemoveLiquidityQuote{}, err
	}
	return quote, nil
}

// RemoveLiquidity burns the LP tokens implied by the requested amounts and
// pays out the proportional reserves. The BRICS withdrawal fee is pulled
// from the caller's allowance to the pool account.
func (e *Engine) RemoveLiquidity(caller common.Address, a, b types.Currency, amountA, amountB *big.Int) (*RemoveLiquidityResult, error) {
	if err := e.writable(); err != nil {
		return nil, err
	}
	collateral, err := e.collateralOf(a, b)
	if err != nil {
		return nil, err
	}
	pool, err := e.loadPool(collateral)
	if err != nil {
		return nil, err
	}
	rate, err := e.rates.ExchangeRate(collateral)
	if err != nil {
		return nil, err
	}
	position, err := e.loadPosition(pool.Key, caller)
	if err != nil {
		return nil, err
	}
	amount0, amount1 := orient(collateral, a, amountA, amountB)
	quote, err := e.quoteRemove(pool, amount0, amount1, position.LPTokens, rate)
	if err != nil {
		return nil, err
	}

	if quote.WithdrawalFee.Sign() > 0 {
		if err := e.ledger.TransferFrom(e.moduleAddr, caller, e.treasury, pool.Currency1, quote.WithdrawalFee); err != nil {
			return nil, fmt.Errorf("pool engine: withdrawal fee: %w", err)
		}
	}
	if quote.Amount0.Sign() > 0 {
		if err := e.ledger.Transfer(e.moduleAddr, caller, pool.Currency0, quote.Amount0); err != nil {
			return nil, fmt.Errorf("pool engine: pay %s: %w", e.currencies.Symbol(pool.Currency0), err)
		}
	}
	if quote.Amount1.Sign() > 0 {
		if err := e.ledger.Transfer(e.moduleAddr, caller, pool.Currency1, quote.Amount1); err != nil {
			return nil, fmt.Errorf("pool engine: pay %s: %w", e.currencies.Symbol(pool.Currency1), err)
		}
	}

	pool.Reserve0.Sub(pool.Reserve0, quote.Amount0)
	pool.Reserve1.Sub(pool.Reserve1, quote.Amount1)
	pool.TotalLP.Sub(pool.TotalLP, quote.LPBurned)
	position.LPTokens.Sub(position.LPTokens, quote.LPBurned)
	if err := e.persist(pool, position); err != nil {
		return nil, err
	}
	return &RemoveLiquidityResult{RemoveLiquidityQuote: quote, Pool: pool.Clone(), Position: position}, nil
}

func (e *Engine) quoteSwap(pool *Pool, from, to types.Currency, amountIn *big.Int) (SwapQuote, error) {
	if !positive(amountIn) {
		return SwapQuote{}, errInvalidAmount
	}
	reserveIn, reserveOut := pool.reserveOf(from), pool.reserveOf(to)
	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return SwapQuote{}, errEmptyPool
	}
	quote := SwapQuote{From: from, To: to, AmountIn: new(big.Int).Set(amountIn)}
	var err error
	if quote.TotalFee, err = bps(amountIn, e.params.SwapFeeBps); err != nil {
		return SwapQuote{}, err
	}
	if quote.ProtocolFee, err = bps(amountIn, e.params.ProtocolFeeBps); err != nil {
		return SwapQuote{}, err
	}
	quote.LPFee = new(big.Int).Sub(quote.TotalFee, quote.ProtocolFee)

	afterFee := new(big.Int).Sub(amountIn, quote.TotalFee)
	denominator := new(big.Int).Add(reserveIn, afterFee)
	kept, err := mulDivUp(reserveIn, reserveOut, denominator)
	if err != nil {
		return SwapQuote{}, err
	}
	quote.AmountOut = new(big.Int).Sub(reserveOut, kept)
	if quote.AmountOut.Sign() <= 0 {
		return SwapQuote{}, errZeroOutput
	}
	quote.NewReserveIn = new(big.Int).Add(reserveIn, amountIn)
	quote.NewReserveIn.Sub(quote.NewReserveIn, quote.ProtocolFee)
	quote.NewReserveOut = kept

	floor := e.params.ReserveFloor
	if quote.NewReserveIn.Cmp(floor) < 0 || quote.NewReserveOut.Cmp(floor) < 0 {
		return SwapQuote{}, errBelowFloor
	}
	before := new(big.Int).Mul(reserveIn, reserveOut)
	after := new(big.Int).Mul(quote.NewReserveIn, quote.NewReserveOut)
	if after.Cmp(before) < 0 {
		return SwapQuote{}, errInvariant
	}

	if quote.SuggestedMinAmountOut, err = bps(quote.AmountOut, basisPoints-e.params.SlippageBps); err != nil {
		return SwapQuote{}, err
	}
	if err := e.valueFees(&quote); err != nil {
		return SwapQuote{}, err
	}
	return quote, nil
}

// valueFees converts the input-currency fees into BRICS at the authority
// rate.
func (e *Engine) valueFees(quote *SwapQuote) error {
	if quote.From == e.currencies.Stablecoin() {
		quote.TotalFeeBrics = new(big.Int).Set(quote.TotalFee)
		quote.ProtocolFeeBrics = new(big.Int).Set(quote.ProtocolFee)
		quote.LPFeeBrics = new(big.Int).Set(quote.LPFee)
		return nil
	}
	rate, err := e.rates.ExchangeRate(quote.From)
	if err != nil {
		return err
	}
	if quote.TotalFeeBrics, err = mulDiv(quote.TotalFee, rate, types.RateScale); err != nil {
		return err
	}
	if quote.ProtocolFeeBrics, err = mulDiv(quote.ProtocolFee, rate, types.RateScale); err != nil {
		return err
	}
	quote.LPFeeBrics = new(big.Int).Sub(quote.TotalFeeBrics, quote.ProtocolFeeBrics)
	return nil
}

// PreviewSwap evaluates a swap without touching state.
func (e *Engine) PreviewSwap(from, to types.Currency, amountIn *big.Int) (SwapQuote, error) {
	pool, err := e.Pool(from, to)
	if err != nil {
		return SwapQuote{}, err
	}
	return e.quoteSwap(pool, from, to, amountIn)
}

// Swap trades amountIn of from for to along the constant-product curve. The
// caller must have approved the pool account for amountIn.
func (e *Engine) Swap(caller common.Address, from, to types.Currency, amountIn, minAmountOut *big.Int) (*SwapResult, error) {
	if err := e.writable(); err != nil {
		return nil, err
	}
	if minAmountOut != nil && minAmountOut.Sign() < 0 {
		return nil, errInvalidAmount
	}
	pool, err := e.Pool(from, to)
	if err != nil {
		return nil, err
	}
	quote, err := e.quoteSwap(pool, from, to, amountIn)
	if err != nil {
		return nil, err
	}
	if minAmountOut != nil && quote.AmountOut.Cmp(minAmountOut) < 0 {
		return nil, fmt.Errorf("%w: got %s want %s", errSlippage, quote.AmountOut, minAmountOut)
	}

	if err := e.ledger.TransferFrom(e.moduleAddr, caller, e.moduleAddr, from, quote.AmountIn); err != nil {
		return nil, fmt.Errorf("pool engine: pull input: %w", err)
	}
	if quote.ProtocolFee.Sign() > 0 {
		if err := e.ledger.Transfer(e.moduleAddr, e.treasury, from, quote.ProtocolFee); err != nil {
			return nil, fmt.Errorf("pool engine: protocol fee: %w", err)
		}
	}
	if err := e.ledger.Transfer(e.moduleAddr, caller, to, quote.AmountOut); err != nil {
		return nil, fmt.Errorf("pool engine: pay output: %w", err)
	}

	if from == pool.Currency0 {
		pool.Reserve0, pool.Reserve1 = quote.NewReserveIn, quote.NewReserveOut
		pool.ProtocolFees0.Add(pool.ProtocolFees0, quote.ProtocolFee)
	} else {
		pool.Reserve1, pool.Reserve0 = quote.NewReserveIn, quote.NewReserveOut
		pool.ProtocolFees1.Add(pool.ProtocolFees1, quote.ProtocolFee)
	}
	if err := e.state.PutPool(pool); err != nil {
		return nil, err
	}
	return &SwapResult{SwapQuote: quote, Pool: pool.Clone()}, nil
}

func (e *Engine) persist(pool *Pool, position *LiquidityPosition) error {
	if err := e.state.PutPool(pool); err != nil {
		return err
	}
	return e.state.PutLiquidityPosition(position)
}
