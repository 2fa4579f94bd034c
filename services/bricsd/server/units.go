package server

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"bricsengine/core"
	"bricsengine/core/types"
	"bricsengine/native/pool"
	"bricsengine/native/rates"
	"bricsengine/native/vault"
)

func amount(v *big.Int) string { return types.FormatAmount(v) }

func rateString(v *big.Int) string { return types.FormatRate(v) }

func parsePositiveAmount(field, raw string) (*big.Int, error) {
	v, err := types.ParseAmount(raw)
	if err != nil {
		return nil, fieldError(field, err)
	}
	if v.Sign() <= 0 {
		return nil, fieldError(field, errNotPositive)
	}
	return v, nil
}

func (s *Server) parseCurrency(field, raw string) (types.Currency, error) {
	code, err := s.engine.Currencies().Parse(raw)
	if err != nil {
		return types.CurrencyUnknown, fieldError(field, err)
	}
	return code, nil
}

func parseAddress(field, raw string) (common.Address, error) {
	addr, err := types.ParseAddress(raw)
	if err != nil {
		return common.Address{}, fieldError(field, err)
	}
	return addr, nil
}

type rateView struct {
	Currency string `json:"currency"`
	Rate     string `json:"rate"`
}

type vaultParamsView struct {
	CollateralRatioBps  uint32 `json:"collateralRatioBps"`
	LiquidationRatioBps uint32 `json:"liquidationRatioBps"`
	LiquidationBonusBps uint32 `json:"liquidationBonusBps"`
	BurnSource          string `json:"burnSource"`
}

func newVaultParamsView(p vault.Params) vaultParamsView {
	return vaultParamsView{
		CollateralRatioBps:  p.CollateralRatio,
		LiquidationRatioBps: p.LiquidationRatio,
		LiquidationBonusBps: p.LiquidationBonus,
		BurnSource:          p.BurnSource.String(),
	}
}

type positionView struct {
	Owner               string `json:"owner"`
	Currency            string `json:"currency"`
	CollateralDeposited string `json:"collateralDeposited"`
	StablecoinMinted    string `json:"stablecoinMinted"`
}

func (s *Server) positionView(p *vault.Position) *positionView {
	if p == nil {
		return nil
	}
	return &positionView{
		Owner:               p.Owner.Hex(),
		Currency:            s.symbol(p.Currency),
		CollateralDeposited: amount(p.CollateralDeposited),
		StablecoinMinted:    amount(p.StablecoinMinted),
	}
}

type vaultStateView struct {
	TotalDeposits    map[string]string `json:"totalDeposits"`
	StablecoinSupply string            `json:"stablecoinSupply"`
	BadDebt          string            `json:"badDebt"`
}

type depositView struct {
	Currency        string        `json:"currency"`
	Amount          string        `json:"amount"`
	Rate            string        `json:"rate"`
	CollateralValue string        `json:"collateralValue"`
	Minted          string        `json:"minted"`
	Position        *positionView `json:"position,omitempty"`
}

func (s *Server) depositView(q vault.DepositQuote, pos *vault.Position) depositView {
	return depositView{
		Currency:        s.symbol(q.Currency),
		Amount:          amount(q.Amount),
		Rate:            rateString(q.Rate),
		CollateralValue: amount(q.CollateralValue),
		Minted:          amount(q.Minted),
		Position:        s.positionView(pos),
	}
}

type redeemView struct {
	Currency      string        `json:"currency"`
	Rate          string        `json:"rate"`
	Burned        string        `json:"burned"`
	CollateralOut string        `json:"collateralOut"`
	Position      *positionView `json:"position,omitempty"`
}

type liquidationView struct {
	Owner                   string        `json:"owner"`
	Currency                string        `json:"currency"`
	Rate                    string        `json:"rate"`
	Status                  string        `json:"status"`
	Minted                  string        `json:"minted"`
	Collateral              string        `json:"collateral"`
	ActualCollateralValue   string        `json:"actualCollateralValue"`
	RequiredCollateralValue string        `json:"requiredCollateralValue"`
	DeficitValue            string        `json:"deficitValue"`
	TokensToLiquidate       string        `json:"tokensToLiquidate"`
	DebtToRepay             string        `json:"debtToRepay"`
	FullLiquidation         bool          `json:"fullLiquidation"`
	BadDebt                 string        `json:"badDebt"`
	Recipient               string        `json:"recipient,omitempty"`
	Burner                  string        `json:"burner,omitempty"`
	Position                *positionView `json:"position,omitempty"`
}

func (s *Server) liquidationView(p vault.LiquidationPreview) liquidationView {
	return liquidationView{
		Owner:                   p.Owner.Hex(),
		Currency:                s.symbol(p.Currency),
		Rate:                    rateString(p.Rate),
		Status:                  p.Status.String(),
		Minted:                  amount(p.Minted),
		Collateral:              amount(p.Collateral),
		ActualCollateralValue:   amount(p.ActualCollateralValue),
		RequiredCollateralValue: amount(p.RequiredCollateralValue),
		DeficitValue:            amount(p.DeficitValue),
		TokensToLiquidate:       amount(p.TokensToLiquidate),
		DebtToRepay:             amount(p.DebtToRepay),
		FullLiquidation:         p.FullLiquidation,
		BadDebt:                 amount(p.BadDebt),
	}
}

type poolView struct {
	Key           string `json:"key"`
	Name          string `json:"name"`
	Reserve0      string `json:"reserve0"`
	Reserve1      string `json:"reserve1"`
	TotalLP       string `json:"totalLp"`
	ProtocolFees0 string `json:"protocolFees0"`
	ProtocolFees1 string `json:"protocolFees1"`
}

func (s *Server) poolView(p *pool.Pool) *poolView {
	if p == nil {
		return nil
	}
	return &poolView{
		Key:           p.Key.Hex(),
		Name:          s.symbol(p.Currency0) + "/" + s.symbol(p.Currency1),
		Reserve0:      amount(p.Reserve0),
		Reserve1:      amount(p.Reserve1),
		TotalLP:       amount(p.TotalLP),
		ProtocolFees0: amount(p.ProtocolFees0),
		ProtocolFees1: amount(p.ProtocolFees1),
	}
}

type availabilityView struct {
	Names       []string `json:"names"`
	Reserve0    []string `json:"reserve0"`
	Reserve1    []string `json:"reserve1"`
	IsAvailable []bool   `json:"isAvailable"`
}

func newAvailabilityView(a *pool.Availability) availabilityView {
	out := availabilityView{Names: []string{}, Reserve0: []string{}, Reserve1: []string{}, IsAvailable: []bool{}}
	if a == nil {
		return out
	}
	out.Names = append(out.Names, a.Names...)
	out.IsAvailable = append(out.IsAvailable, a.IsAvailable...)
	for i := range a.Reserve0 {
		out.Reserve0 = append(out.Reserve0, amount(a.Reserve0[i]))
		out.Reserve1 = append(out.Reserve1, amount(a.Reserve1[i]))
	}
	return out
}

type userLiquidityView struct {
	LPTokens     string `json:"lpTokens"`
	Token0Amount string `json:"token0Amount"`
	Token1Amount string `json:"token1Amount"`
}

type addLiquidityView struct {
	Amount0    string    `json:"amount0"`
	Amount1    string    `json:"amount1"`
	LPMinted   string    `json:"lpMinted"`
	DepositFee string    `json:"depositFee"`
	LowFeeTier bool      `json:"lowFeeTier"`
	Bootstrap  bool      `json:"bootstrap"`
	Pool       *poolView `json:"pool,omitempty"`
}

type removeLiquidityView struct {
	LPBurned      string    `json:"lpBurned"`
	Amount0       string    `json:"amount0"`
	Amount1       string    `json:"amount1"`
	WithdrawalFee string    `json:"withdrawalFee"`
	Pool          *poolView `json:"pool,omitempty"`
}

type swapView struct {
	From                  string    `json:"from"`
	To                    string    `json:"to"`
	AmountIn              string    `json:"amountIn"`
	AmountOut             string    `json:"amountOut"`
	TotalFee              string    `json:"totalFee"`
	ProtocolFee           string    `json:"protocolFee"`
	LPFee                 string    `json:"lpFee"`
	TotalFeeBrics         string    `json:"totalFeeBrics"`
	ProtocolFeeBrics      string    `json:"protocolFeeBrics"`
	LPFeeBrics            string    `json:"lpFeeBrics"`
	SuggestedMinAmountOut string    `json:"suggestedMinAmountOut"`
	Pool                  *poolView `json:"pool,omitempty"`
}

func (s *Server) swapView(q pool.SwapQuote, p *pool.Pool) swapView {
	return swapView{
		From:                  s.symbol(q.From),
		To:                    s.symbol(q.To),
		AmountIn:              amount(q.AmountIn),
		AmountOut:             amount(q.AmountOut),
		TotalFee:              amount(q.TotalFee),
		ProtocolFee:           amount(q.ProtocolFee),
		LPFee:                 amount(q.LPFee),
		TotalFeeBrics:         amount(q.TotalFeeBrics),
		ProtocolFeeBrics:      amount(q.ProtocolFeeBrics),
		LPFeeBrics:            amount(q.LPFeeBrics),
		SuggestedMinAmountOut: amount(q.SuggestedMinAmountOut),
		Pool:                  s.poolView(p),
	}
}

type receiptView struct {
	ID        string            `json:"id"`
	Operation string            `json:"operation"`
	Caller    string            `json:"caller"`
	Details   map[string]string `json:"details"`
	CreatedAt string            `json:"createdAt"`
}

func newReceiptView(r core.Receipt) receiptView {
	return receiptView{
		ID:        r.ID,
		Operation: r.Operation,
		Caller:    r.Caller.Hex(),
		Details:   r.Details,
		CreatedAt: r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func newRateViews(entries []rates.RateEntry, symbol func(types.Currency) string) []rateView {
	out := make([]rateView, 0, len(entries))
	for _, e := range entries {
		out = append(out, rateView{Currency: symbol(e.Currency), Rate: rateString(e.Rate)})
	}
	return out
}

func (s *Server) symbol(c types.Currency) string {
	return s.engine.Currencies().Symbol(c)
}

func normalizeModule(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

var errNotPositive = errors.New("must be positive")

func fieldError(field string, err error) error {
	return fmt.Errorf("%s: %w", field, err)
}
