package server

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"bricsengine/core"
	"bricsengine/core/types"
	"bricsengine/native/vault"
)

func (s *Server) caller(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	addr, ok := callerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "missing caller")
		return common.Address{}, false
	}
	return addr, true
}

func (s *Server) handleListRates(w http.ResponseWriter, r *http.Request) {
	entries, err := s.engine.Rates(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRateViews(entries, s.symbol))
}

func (s *Server) handleGetRate(w http.ResponseWriter, r *http.Request) {
	currency, err := s.parseCurrency("currency", chi.URLParam(r, "currency"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	rate, err := s.engine.ExchangeRate(r.Context(), currency)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rateView{Currency: s.symbol(currency), Rate: rateString(rate)})
}

func (s *Server) handleSetRate(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	currency, err := s.parseCurrency("currency", chi.URLParam(r, "currency"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	var req struct {
		Rate string `json:"rate"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "%v", err)
		return
	}
	rate, err := types.ParseRate(req.Rate)
	if err != nil {
		badRequest(w, "rate: %v", err)
		return
	}
	if err := s.engine.SetExchangeRate(r.Context(), caller, currency, rate); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rateView{Currency: s.symbol(currency), Rate: rateString(rate)})
}

func (s *Server) handleGetVaultParams(w http.ResponseWriter, r *http.Request) {
	params, err := s.engine.VaultParams(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newVaultParamsView(params))
}

func (s *Server) handleSetVaultParams(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req vaultParamsView
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "%v", err)
		return
	}
	current, err := s.engine.VaultParams(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	params := current
	if req.CollateralRatioBps != 0 {
		params.CollateralRatio = req.CollateralRatioBps
	}
	if req.LiquidationRatioBps != 0 {
		params.LiquidationRatio = req.LiquidationRatioBps
	}
	params.LiquidationBonus = req.LiquidationBonusBps
	if req.BurnSource != "" {
		source, err := vault.ParseBurnSource(req.BurnSource)
		if err != nil {
			badRequest(w, "burnSource: %v", err)
			return
		}
		params.BurnSource = source
	}
	if err := s.engine.SetVaultParams(r.Context(), caller, params); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newVaultParamsView(params))
}

func (s *Server) handleVaultState(w http.ResponseWriter, r *http.Request) {
	global, err := s.engine.VaultState(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	view := vaultStateView{TotalDeposits: map[string]string{}, StablecoinSupply: amount(nil), BadDebt: amount(nil)}
	if global != nil {
		for _, d := range global.TotalDeposits {
			view.TotalDeposits[s.symbol(d.Currency)] = amount(d.Amount)
		}
		view.StablecoinSupply = amount(global.StablecoinSupply)
		view.BadDebt = amount(global.BadDebt)
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) ownerAndCurrency(w http.ResponseWriter, r *http.Request) (common.Address, types.Currency, bool) {
	owner, err := parseAddress("owner", chi.URLParam(r, "owner"))
	if err != nil {
		badRequest(w, "%v", err)
		return common.Address{}, 0, false
	}
	currency, err := s.parseCurrency("currency", chi.URLParam(r, "currency"))
	if err != nil {
		s.writeEngineError(w, err)
		return common.Address{}, 0, false
	}
	return owner, currency, true
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	owner, currency, ok := s.ownerAndCurrency(w, r)
	if !ok {
		return
	}
	position, err := s.engine.Position(r.Context(), owner, currency)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.positionView(position))
}

func (s *Server) handlePreviewLiquidate(w http.ResponseWriter, r *http.Request) {
	owner, currency, ok := s.ownerAndCurrency(w, r)
	if !ok {
		return
	}
	preview, err := s.engine.PreviewLiquidate(r.Context(), owner, currency)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.liquidationView(preview))
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := s.engine.LiquidationCandidates(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	out := make([]liquidationView, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, s.liquidationView(c))
	}
	writeJSON(w, http.StatusOK, out)
}

type collateralRequest struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

func (s *Server) decodeCollateral(w http.ResponseWriter, r *http.Request) (types.Currency, *big.Int, bool) {
	var req collateralRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "%v", err)
		return types.CurrencyUnknown, nil, false
	}
	currency, err := s.parseCurrency("currency", req.Currency)
	if err != nil {
		s.writeEngineError(w, err)
		return types.CurrencyUnknown, nil, false
	}
	value, err := parsePositiveAmount("amount", req.Amount)
	if err != nil {
		badRequest(w, "%v", err)
		return types.CurrencyUnknown, nil, false
	}
	return currency, value, true
}

func (s *Server) handlePreviewDeposit(w http.ResponseWriter, r *http.Request) {
	currency, value, ok := s.decodeCollateral(w, r)
	if !ok {
		return
	}
	quote, err := s.engine.PreviewDeposit(r.Context(), currency, value)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.depositView(quote, nil))
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	currency, value, ok := s.decodeCollateral(w, r)
	if !ok {
		return
	}
	res, err := s.engine.DepositCollateral(r.Context(), caller, currency, value)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.depositView(res.DepositQuote, res.Position))
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	currency, value, ok := s.decodeCollateral(w, r)
	if !ok {
		return
	}
	res, err := s.engine.RedeemCollateral(r.Context(), caller, currency, value)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redeemView{
		Currency:      s.symbol(res.Currency),
		Rate:          rateString(res.Rate),
		Burned:        amount(res.Burned),
		CollateralOut: amount(res.CollateralOut),
		Position:      s.positionView(res.Position),
	})
}

func (s *Server) handleLiquidate(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Owner    string `json:"owner"`
		Currency string `json:"currency"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "%v", err)
		return
	}
	owner, err := parseAddress("owner", req.Owner)
	if err != nil {
		badRequest(w, "%v", err)
		return
	}
	currency, err := s.parseCurrency("currency", req.Currency)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	res, err := s.engine.Liquidate(r.Context(), caller, owner, currency)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	view := s.liquidationView(res.LiquidationPreview)
	view.Recipient = res.Recipient.Hex()
	view.Burner = res.Burner.Hex()
	view.Position = s.positionView(res.Position)
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handlePools(w http.ResponseWriter, r *http.Request) {
	avail, err := s.engine.PoolsAvailability(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAvailabilityView(avail))
}

func (s *Server) pairFromQuery(w http.ResponseWriter, r *http.Request, first, second string) (types.Currency, types.Currency, bool) {
	a, err := s.parseCurrency(first, r.URL.Query().Get(first))
	if err != nil {
		s.writeEngineError(w, err)
		return 0, 0, false
	}
	b, err := s.parseCurrency(second, r.URL.Query().Get(second))
	if err != nil {
		s.writeEngineError(w, err)
		return 0, 0, false
	}
	return a, b, true
}

func (s *Server) handlePoolKey(w http.ResponseWriter, r *http.Request) {
	a, b, ok := s.pairFromQuery(w, r, "a", "b")
	if !ok {
		return
	}
	key, err := s.engine.PoolKey(a, b)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key.Hex()})
}

func (s *Server) handlePoolRate(w http.ResponseWriter, r *http.Request) {
	from, to, ok := s.pairFromQuery(w, r, "from", "to")
	if !ok {
		return
	}
	rate, err := s.engine.PoolExchangeRate(r.Context(), from, to)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"from": s.symbol(from), "to": s.symbol(to), "rate": rateString(rate)})
}

func (s *Server) pairFromPath(w http.ResponseWriter, r *http.Request) (types.Currency, types.Currency, bool) {
	a, err := s.parseCurrency("a", chi.URLParam(r, "a"))
	if err != nil {
		s.writeEngineError(w, err)
		return 0, 0, false
	}
	b, err := s.parseCurrency("b", chi.URLParam(r, "b"))
	if err != nil {
		s.writeEngineError(w, err)
		return 0, 0, false
	}
	return a, b, true
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	a, b, ok := s.pairFromPath(w, r)
	if !ok {
		return
	}
	p, err := s.engine.Pool(r.Context(), a, b)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.poolView(p))
}

func (s *Server) handleUserLiquidity(w http.ResponseWriter, r *http.Request) {
	a, b, ok := s.pairFromPath(w, r)
	if !ok {
		return
	}
	owner, err := parseAddress("owner", chi.URLParam(r, "owner"))
	if err != nil {
		badRequest(w, "%v", err)
		return
	}
	liq, err := s.engine.UserLiquidity(r.Context(), owner, a, b)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userLiquidityView{
		LPTokens:     amount(liq.LPTokens),
		Token0Amount: amount(liq.Token0Amount),
		Token1Amount: amount(liq.Token1Amount),
	})
}

type liquidityRequest struct {
	TokenA       string  `json:"tokenA"`
	TokenB       string  `json:"tokenB"`
	AmountA      string  `json:"amountA"`
	AmountB      string  `json:"amountB"`
	ToleranceBps *uint32 `json:"toleranceBps,omitempty"`
}

func (s *Server) decodeLiquidity(w http.ResponseWriter, r *http.Request) (liquidityRequest, types.Currency, types.Currency, *big.Int, *big.Int, bool) {
	var req liquidityRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "%v", err)
		return req, 0, 0, nil, nil, false
	}
	a, err := s.parseCurrency("tokenA", req.TokenA)
	if err != nil {
		s.writeEngineError(w, err)
		return req, 0, 0, nil, nil, false
	}
	b, err := s.parseCurrency("tokenB", req.TokenB)
	if err != nil {
		s.writeEngineError(w, err)
		return req, 0, 0, nil, nil, false
	}
	amountA, err := parsePositiveAmount("amountA", req.AmountA)
	if err != nil {
		badRequest(w, "%v", err)
		return req, 0, 0, nil, nil, false
	}
	amountB, err := parsePositiveAmount("amountB", req.AmountB)
	if err != nil {
		badRequest(w, "%v", err)
		return req, 0, 0, nil, nil, false
	}
	return req, a, b, amountA, amountB, true
}

func (s *Server) handleAddLiquidity(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	req, a, b, amountA, amountB, ok := s.decodeLiquidity(w, r)
	if !ok {
		return
	}
	res, err := s.engine.AddLiquidity(r.Context(), caller, a, b, amountA, amountB, req.ToleranceBps)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, addLiquidityView{
		Amount0:    amount(res.Amount0),
		Amount1:    amount(res.Amount1),
		LPMinted:   amount(res.LPMinted),
		DepositFee: amount(res.DepositFee),
		LowFeeTier: res.LowFeeTier,
		Bootstrap:  res.Bootstrap,
		Pool:       s.poolView(res.Pool),
	})
}

func (s *Server) handleRemoveLiquidity(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	_, a, b, amountA, amountB, ok := s.decodeLiquidity(w, r)
	if !ok {
		return
	}
	res, err := s.engine.RemoveLiquidity(r.Context(), caller, a, b, amountA, amountB)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, removeLiquidityView{
		LPBurned:      amount(res.LPBurned),
		Amount0:       amount(res.Amount0),
		Amount1:       amount(res.Amount1),
		WithdrawalFee: amount(res.WithdrawalFee),
		Pool:          s.poolView(res.Pool),
	})
}

type swapRequest struct {
	From         string `json:"from"`
	To           string `json:"to"`
	AmountIn     string `json:"amountIn"`
	MinAmountOut string `json:"minAmountOut,omitempty"`
}

func (s *Server) decodeSwap(w http.ResponseWriter, r *http.Request) (swapRequest, types.Currency, types.Currency, *big.Int, bool) {
	var req swapRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "%v", err)
		return req, 0, 0, nil, false
	}
	from, err := s.parseCurrency("from", req.From)
	if err != nil {
		s.writeEngineError(w, err)
		return req, 0, 0, nil, false
	}
	to, err := s.parseCurrency("to", req.To)
	if err != nil {
		s.writeEngineError(w, err)
		return req, 0, 0, nil, false
	}
	amountIn, err := parsePositiveAmount("amountIn", req.AmountIn)
	if err != nil {
		badRequest(w, "%v", err)
		return req, 0, 0, nil, false
	}
	return req, from, to, amountIn, true
}

func (s *Server) handlePreviewSwap(w http.ResponseWriter, r *http.Request) {
	_, from, to, amountIn, ok := s.decodeSwap(w, r)
	if !ok {
		return
	}
	quote, err := s.engine.PreviewSwap(r.Context(), from, to, amountIn)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.swapView(quote, nil))
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	req, from, to, amountIn, ok := s.decodeSwap(w, r)
	if !ok {
		return
	}
	var minOut *big.Int
	if req.MinAmountOut != "" {
		parsed, err := types.ParseAmount(req.MinAmountOut)
		if err != nil {
			badRequest(w, "minAmountOut: %v", err)
			return
		}
		minOut = parsed
	}
	res, err := s.engine.Swap(r.Context(), caller, from, to, amountIn, minOut)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.swapView(res.SwapQuote, res.Pool))
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	owner, currency, ok := s.ownerAndCurrency(w, r)
	if !ok {
		return
	}
	bal, err := s.engine.Balance(r.Context(), owner, currency)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"owner":    owner.Hex(),
		"currency": s.symbol(currency),
		"balance":  amount(bal),
	})
}

type movementRequest struct {
	Spender  string `json:"spender,omitempty"`
	To       string `json:"to,omitempty"`
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req movementRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "%v", err)
		return
	}
	spender, err := parseAddress("spender", req.Spender)
	if err != nil {
		badRequest(w, "%v", err)
		return
	}
	currency, err := s.parseCurrency("currency", req.Currency)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	value, err := types.ParseAmount(req.Amount)
	if err != nil || value.Sign() < 0 {
		badRequest(w, "amount: invalid value %q", req.Amount)
		return
	}
	if err := s.engine.Approve(r.Context(), caller, spender, currency, value); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"spender": spender.Hex(), "currency": s.symbol(currency), "allowance": amount(value)})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req movementRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "%v", err)
		return
	}
	to, err := parseAddress("to", req.To)
	if err != nil {
		badRequest(w, "%v", err)
		return
	}
	currency, err := s.parseCurrency("currency", req.Currency)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	value, err := parsePositiveAmount("amount", req.Amount)
	if err != nil {
		badRequest(w, "%v", err)
		return
	}
	if err := s.engine.Transfer(r.Context(), caller, to, currency, value); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"to": to.Hex(), "currency": s.symbol(currency), "amount": amount(value)})
}

func (s *Server) handleListPaused(w http.ResponseWriter, r *http.Request) {
	paused, err := s.engine.Paused(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paused)
}

func (s *Server) handleSetPaused(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Paused bool `json:"paused"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "%v", err)
		return
	}
	module := normalizeModule(chi.URLParam(r, "module"))
	if err := s.engine.SetPaused(r.Context(), caller, module, req.Paused); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"module": module, "paused": req.Paused})
}

func (s *Server) handleReceipts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := core.ReceiptFilter{Operation: query.Get("operation")}
	if raw := query.Get("caller"); raw != "" {
		addr, err := parseAddress("caller", raw)
		if err != nil {
			badRequest(w, "%v", err)
			return
		}
		filter.Caller = &addr
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			badRequest(w, "limit: invalid value %q", raw)
			return
		}
		filter.Limit = limit
	}
	receipts, err := s.engine.Receipts(r.Context(), filter)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	out := make([]receiptView, 0, len(receipts))
	for _, rec := range receipts {
		out = append(out, newReceiptView(rec))
	}
	writeJSON(w, http.StatusOK, out)
}
