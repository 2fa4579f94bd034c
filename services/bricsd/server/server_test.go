package server

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"bricsengine/core"
	"bricsengine/core/state"
	"bricsengine/core/types"
	"bricsengine/storage"
)

const (
	testSecret   = "test-secret"
	authorityHex = "0x00000000000000000000000000000000000000aa"
)

var (
	alice  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	keeper = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

type fixture struct {
	t       *testing.T
	engine  *core.Engine
	handler http.Handler
}

func newFixture(t *testing.T, limit RateLimitConfig) *fixture {
	t.Helper()
	engine, err := core.NewEngine(state.NewManager(storage.NewMemDB()), core.Config{
		Authority: authorityHex,
		Rates:     map[types.Currency]*big.Int{types.CNY: big.NewInt(10_000)},
		Genesis: []core.GenesisBalance{
			{Account: alice, Currency: types.CNY, Amount: big.NewInt(1_000_000)},
			{Account: alice, Currency: types.BRICS, Amount: big.NewInt(1_000_000)},
		},
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	srv, err := New(Config{Auth: AuthConfig{HMACSecret: testSecret}, RateLimit: limit}, engine, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return &fixture{t: t, engine: engine, handler: srv.Handler()}
}

func token(t *testing.T, subject string, secret string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func (f *fixture) do(method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			f.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})
	rec := f.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "brics_api_requests_total")
}

func TestRatesRequireAuthority(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})

	rec := f.do(http.MethodGet, "/v1/rates/cny", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rate rateView
	decode(t, rec, &rate)
	require.Equal(t, "CNY", rate.Currency)
	require.Equal(t, "1.0000", rate.Rate)

	rec = f.do(http.MethodPut, "/v1/rates/CNY", "", map[string]string{"rate": "0.9000"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPut, "/v1/rates/CNY", token(t, alice.Hex(), "wrong"), map[string]string{"rate": "0.9000"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPut, "/v1/rates/CNY", token(t, alice.Hex(), testSecret), map[string]string{"rate": "0.9000"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	var apiErr errorResponse
	decode(t, rec, &apiErr)
	require.Equal(t, "unauthorized", apiErr.Kind)

	rec = f.do(http.MethodPut, "/v1/rates/CNY", token(t, authorityHex, testSecret), map[string]string{"rate": "0.9000"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/v1/rates/XYZ", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDepositFlow(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})
	bearer := token(t, alice.Hex(), testSecret)
	vaultAddr := f.engine.Accounts().Vault.Hex()

	rec := f.do(http.MethodPost, "/v1/vault/deposit/preview", "", collateralRequest{Currency: "CNY", Amount: "300.00"})
	require.Equal(t, http.StatusOK, rec.Code)
	var preview depositView
	decode(t, rec, &preview)
	require.Equal(t, "200.00", preview.Minted)

	rec = f.do(http.MethodPost, "/v1/vault/deposit", bearer, collateralRequest{Currency: "CNY", Amount: "300.00"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(http.MethodPost, "/v1/approve", bearer, movementRequest{Spender: vaultAddr, Currency: "CNY", Amount: "300.00"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/v1/vault/deposit", bearer, collateralRequest{Currency: "CNY", Amount: "300.00"})
	require.Equal(t, http.StatusOK, rec.Code)
	var dep depositView
	decode(t, rec, &dep)
	require.Equal(t, "200.00", dep.Minted)
	require.NotNil(t, dep.Position)
	require.Equal(t, "300.00", dep.Position.CollateralDeposited)

	rec = f.do(http.MethodGet, "/v1/vault/positions/"+alice.Hex()+"/CNY/liquidation", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var liq liquidationView
	decode(t, rec, &liq)
	require.Equal(t, "healthy", liq.Status)

	rec = f.do(http.MethodPost, "/v1/vault/liquidate", token(t, keeper.Hex(), testSecret), map[string]string{"owner": alice.Hex(), "currency": "CNY"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var apiErr errorResponse
	decode(t, rec, &apiErr)
	require.Equal(t, "not_eligible", apiErr.Kind)

	rec = f.do(http.MethodGet, "/v1/balances/"+alice.Hex()+"/BRICS", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bal map[string]string
	decode(t, rec, &bal)
	require.Equal(t, "10200.00", bal["balance"])
}

func TestSwapSlippageAndPause(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})
	bearer := token(t, alice.Hex(), testSecret)
	poolAddr := f.engine.Accounts().Pool.Hex()

	for _, c := range []string{"CNY", "BRICS"} {
		rec := f.do(http.MethodPost, "/v1/approve", bearer, movementRequest{Spender: poolAddr, Currency: c, Amount: "6000.00"})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := f.do(http.MethodPost, "/v1/pools/liquidity/add", bearer, liquidityRequest{TokenA: "CNY", TokenB: "BRICS", AmountA: "5000.00", AmountB: "5000.00"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	exact := uint32(0)
	rec = f.do(http.MethodPost, "/v1/pools/liquidity/add", bearer, liquidityRequest{TokenA: "CNY", TokenB: "BRICS", AmountA: "100.00", AmountB: "100.01", ToleranceBps: &exact})
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = f.do(http.MethodGet, "/v1/pools", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var avail availabilityView
	decode(t, rec, &avail)
	require.Contains(t, avail.Names, "CNY/BRICS")

	rec = f.do(http.MethodPost, "/v1/pools/swap/preview", "", swapRequest{From: "CNY", To: "BRICS", AmountIn: "100.00"})
	require.Equal(t, http.StatusOK, rec.Code)
	var quote swapView
	decode(t, rec, &quote)
	require.Equal(t, "97.75", quote.AmountOut)

	rec = f.do(http.MethodPost, "/v1/pools/swap", bearer, swapRequest{From: "CNY", To: "BRICS", AmountIn: "100.00", MinAmountOut: "99.70"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(http.MethodPut, "/v1/admin/pause/pool", token(t, authorityHex, testSecret), map[string]bool{"paused": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/v1/pools/swap", bearer, swapRequest{From: "CNY", To: "BRICS", AmountIn: "100.00"})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = f.do(http.MethodPut, "/v1/admin/pause/pool", token(t, authorityHex, testSecret), map[string]bool{"paused": false})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/v1/pools/swap", bearer, swapRequest{From: "CNY", To: "BRICS", AmountIn: "100.00", MinAmountOut: quote.SuggestedMinAmountOut})
	require.Equal(t, http.StatusOK, rec.Code)
	var res swapView
	decode(t, rec, &res)
	require.Equal(t, "97.75", res.AmountOut)
	require.NotNil(t, res.Pool)
}

func TestBadRequests(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})
	bearer := token(t, alice.Hex(), testSecret)

	rec := f.do(http.MethodPost, "/v1/vault/deposit", bearer, map[string]string{"currency": "CNY", "amount": "1.001"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/v1/vault/deposit", bearer, map[string]string{"currency": "CNY", "amount": "-5"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/v1/vault/deposit", bearer, map[string]string{"currency": "CNY", "amount": "1.00", "extra": "x"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/v1/balances/nobody/CNY", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/v1/receipts?limit=abc", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimitThrottles(t *testing.T) {
	f := newFixture(t, RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2})
	for i := 0; i < 2; i++ {
		rec := f.do(http.MethodGet, "/v1/rates", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := f.do(http.MethodGet, "/v1/rates", "", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = f.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
