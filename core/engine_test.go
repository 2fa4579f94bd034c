package core

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"bricsengine/core/state"
	"bricsengine/core/types"
	nativecommon "bricsengine/native/common"
	"bricsengine/native/vault"
	"bricsengine/observability/logging"
	"bricsengine/storage"
)

const authorityHex = "0x00000000000000000000000000000000000000AA"

var (
	authority = common.HexToAddress(authorityHex)
	alice     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	keeper    = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

type memJournal struct {
	mu       sync.Mutex
	receipts []Receipt
}

func (j *memJournal) Record(_ context.Context, r Receipt) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.receipts = append(j.receipts, r)
	return nil
}

func (j *memJournal) List(_ context.Context, filter ReceiptFilter) ([]Receipt, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []Receipt
	for i := len(j.receipts) - 1; i >= 0; i-- {
		r := j.receipts[i]
		if filter.Operation != "" && r.Operation != filter.Operation {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func testConfig() Config {
	return Config{
		Authority: authorityHex,
		Rates:     map[types.Currency]*big.Int{types.CNY: big.NewInt(10_000), types.RUB: big.NewInt(1_100)},
		Genesis: []GenesisBalance{
			{Account: alice, Currency: types.CNY, Amount: big.NewInt(1_000_000)},
			{Account: alice, Currency: types.BRICS, Amount: big.NewInt(1_000_000)},
			{Account: keeper, Currency: types.BRICS, Amount: big.NewInt(10_000)},
		},
	}
}

func newTestEngine(t *testing.T) (*Engine, *memJournal, *state.Manager) {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	journal := &memJournal{}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	engine, err := NewEngine(manager, testConfig(), WithJournal(journal), WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	return engine, journal, manager
}

func balance(t *testing.T, e *Engine, owner common.Address, c types.Currency) int64 {
	t.Helper()
	bal, err := e.Balance(context.Background(), owner, c)
	require.NoError(t, err)
	return bal.Int64()
}

func TestGenesisIsAppliedOnce(t *testing.T) {
	engine, _, manager := newTestEngine(t)
	require.Equal(t, int64(1_000_000), balance(t, engine, alice, types.CNY))

	again, err := NewEngine(manager, testConfig())
	require.NoError(t, err)
	require.Equal(t, int64(1_000_000), balance(t, again, alice, types.CNY))

	cr, err := again.CollateralRatio(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint32(15_000), cr)
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	manager := state.NewManager(storage.NewMemDB())
	cfg := testConfig()
	cfg.Authority = "nobody"
	_, err := NewEngine(manager, cfg)
	require.Error(t, err)

	cfg = testConfig()
	cfg.Vault = vault.Params{CollateralRatio: 11_000, LiquidationRatio: 12_000}
	_, err = NewEngine(manager, cfg)
	require.Error(t, err)
}

func TestDepositAndRedeemJournalReceipts(t *testing.T) {
	ctx := context.Background()
	engine, journal, _ := newTestEngine(t)
	accounts := engine.Accounts()

	require.NoError(t, engine.Approve(ctx, alice, accounts.Vault, types.CNY, big.NewInt(30_000)))
	dep, err := engine.DepositCollateral(ctx, alice, types.CNY, big.NewInt(30_000))
	require.NoError(t, err)
	require.Equal(t, int64(20_000), dep.Minted.Int64())
	require.Equal(t, int64(1_020_000), balance(t, engine, alice, types.BRICS))

	red, err := engine.RedeemCollateral(ctx, alice, types.CNY, dep.Minted)
	require.NoError(t, err)
	require.LessOrEqual(t, red.CollateralOut.Int64(), int64(30_000))
	require.Equal(t, int64(1_000_000), balance(t, engine, alice, types.BRICS))

	receipts, err := engine.Receipts(ctx, ReceiptFilter{})
	require.NoError(t, err)
	require.Len(t, receipts, 3)
	require.Equal(t, "vault.redeem", receipts[0].Operation)
	require.Equal(t, "200.00", receipts[0].Details["burned"])
	require.NotEmpty(t, receipts[0].ID)
	require.Equal(t, 2026, receipts[0].CreatedAt.Year())
	require.Len(t, journal.receipts, 3)
}

func TestFailedOperationLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	engine, journal, _ := newTestEngine(t)
	poolAddr := engine.Accounts().Pool

	require.NoError(t, engine.Approve(ctx, alice, poolAddr, types.CNY, big.NewInt(500_000)))
	require.NoError(t, engine.Approve(ctx, alice, poolAddr, types.BRICS, big.NewInt(100)))
	before := len(journal.receipts)

	// The CNY leg is pulled before the BRICS leg fails.
	_, err := engine.AddLiquidity(ctx, alice, types.CNY, types.BRICS, big.NewInt(500_000), big.NewInt(500_000), nil)
	require.ErrorIs(t, err, nativecommon.ErrTransferFailed)

	require.Equal(t, int64(1_000_000), balance(t, engine, alice, types.CNY))
	require.Equal(t, int64(0), balance(t, engine, poolAddr, types.CNY))
	allowance, err := engine.Allowance(ctx, alice, poolAddr, types.CNY)
	require.NoError(t, err)
	require.Equal(t, int64(500_000), allowance.Int64())
	p, err := engine.Pool(ctx, types.CNY, types.BRICS)
	require.NoError(t, err)
	require.Zero(t, p.TotalLP.Sign())
	require.Len(t, journal.receipts, before)
}

func TestSwapEndToEnd(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)
	poolAddr := engine.Accounts().Pool

	require.NoError(t, engine.Approve(ctx, alice, poolAddr, types.CNY, big.NewInt(600_000)))
	require.NoError(t, engine.Approve(ctx, alice, poolAddr, types.BRICS, big.NewInt(600_000)))
	_, err := engine.AddLiquidity(ctx, alice, types.CNY, types.BRICS, big.NewInt(500_000), big.NewInt(500_000), nil)
	require.NoError(t, err)

	avail, err := engine.PoolsAvailability(ctx)
	require.NoError(t, err)
	require.True(t, avail.IsAvailable[0])

	_, err = engine.Swap(ctx, alice, types.CNY, types.BRICS, big.NewInt(10_000), big.NewInt(9_970))
	require.ErrorIs(t, err, nativecommon.ErrSlippageExceeded)

	quote, err := engine.PreviewSwap(ctx, types.CNY, types.BRICS, big.NewInt(10_000))
	require.NoError(t, err)
	res, err := engine.Swap(ctx, alice, types.CNY, types.BRICS, big.NewInt(10_000), quote.SuggestedMinAmountOut)
	require.NoError(t, err)
	require.Equal(t, int64(9_775), res.AmountOut.Int64())

	rate, err := engine.PoolExchangeRate(ctx, types.CNY, types.BRICS)
	require.NoError(t, err)
	require.Equal(t, int64(9_612), rate.Int64())
	require.Equal(t, int64(5), balance(t, engine, engine.Accounts().Treasury, types.CNY))
}

func TestRateDropEnablesLiquidation(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)

	require.NoError(t, engine.Approve(ctx, alice, engine.Accounts().Vault, types.CNY, big.NewInt(30_000)))
	_, err := engine.DepositCollateral(ctx, alice, types.CNY, big.NewInt(30_000))
	require.NoError(t, err)

	err = engine.SetExchangeRate(ctx, keeper, types.CNY, big.NewInt(7_500))
	require.ErrorIs(t, err, nativecommon.ErrUnauthorized)
	require.NoError(t, engine.SetExchangeRate(ctx, authority, types.CNY, big.NewInt(7_500)))

	candidates, err := engine.LiquidationCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, vault.StatusLiquidatable, candidates[0].Status)

	res, err := engine.Liquidate(ctx, keeper, alice, types.CNY)
	require.NoError(t, err)
	require.Equal(t, int64(7_500), res.DebtToRepay.Int64())
	require.Equal(t, int64(10_000), res.TokensToLiquidate.Int64())
	require.Equal(t, int64(10_000-7_500), balance(t, engine, keeper, types.BRICS))
	require.Equal(t, int64(10_000), balance(t, engine, keeper, types.CNY))

	preview, err := engine.PreviewLiquidate(ctx, alice, types.CNY)
	require.NoError(t, err)
	require.NotEqual(t, vault.StatusLiquidatable, preview.Status)

	global, err := engine.VaultState(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(20_000-7_500), global.StablecoinSupply.Int64())
}

func TestPauseRequiresAuthority(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)

	require.ErrorIs(t, engine.SetPaused(ctx, alice, "vault", true), nativecommon.ErrUnauthorized)
	require.ErrorIs(t, engine.SetPaused(ctx, authority, "bridge", true), nativecommon.ErrInvalidInput)
	require.NoError(t, engine.SetPaused(ctx, authority, "vault", true))

	paused, err := engine.Paused(ctx)
	require.NoError(t, err)
	require.True(t, paused["vault"])
	require.False(t, paused["pool"])

	require.NoError(t, engine.Approve(ctx, alice, engine.Accounts().Vault, types.CNY, big.NewInt(30_000)))
	_, err = engine.DepositCollateral(ctx, alice, types.CNY, big.NewInt(30_000))
	require.ErrorIs(t, err, nativecommon.ErrModulePaused)

	_, err = engine.PreviewDeposit(ctx, types.CNY, big.NewInt(30_000))
	require.NoError(t, err)
}

func TestCommittedLogMasksAccounts(t *testing.T) {
	var buf bytes.Buffer
	manager := state.NewManager(storage.NewMemDB())
	journal := &memJournal{}
	engine, err := NewEngine(manager, testConfig(), WithJournal(journal), WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, engine.Approve(ctx, alice, keeper, types.BRICS, big.NewInt(500)))
	require.NoError(t, engine.Transfer(ctx, alice, keeper, types.CNY, big.NewInt(100)))

	masked := logging.MaskAddress("to", keeper.Hex()).Value.String()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var seen int
	for _, raw := range lines {
		var line map[string]any
		require.NoError(t, json.Unmarshal(raw, &line))
		if line["msg"] != "operation committed" {
			continue
		}
		seen++
		for _, key := range []string{"spender", "to"} {
			if v, ok := line[key]; ok {
				require.Equal(t, masked, v)
			}
		}
		require.Contains(t, line, "amount")
	}
	require.Equal(t, 2, seen)
	require.NotContains(t, strings.ToLower(buf.String()), strings.ToLower(keeper.Hex()))

	// Receipts keep the full address.
	receipts, err := engine.Receipts(ctx, ReceiptFilter{Operation: "bank.transfer"})
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	require.Equal(t, keeper.Hex(), receipts[0].Details["to"])
}
