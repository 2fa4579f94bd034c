package state

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"bricsengine/core/types"
	"bricsengine/native/pool"
	"bricsengine/native/vault"
	"bricsengine/storage"
)

var owner = common.HexToAddress("0x00000000000000000000000000000000000000a1")

func TestUpdateRollsBackOnError(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	boom := errors.New("boom")

	err := m.Update(func(tx *Tx) error {
		if err := tx.PutBankBalance(owner, types.CNY, big.NewInt(500)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	err = m.View(func(tx *Tx) error {
		bal, err := tx.BankBalance(owner, types.CNY)
		if err != nil {
			return err
		}
		if bal.Sign() != 0 {
			t.Fatalf("rolled back write leaked: %s", bal)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestUpdateReadsOwnWrites(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	err := m.Update(func(tx *Tx) error {
		if err := tx.PutBankSupply(types.BRICS, big.NewInt(42)); err != nil {
			return err
		}
		supply, err := tx.BankSupply(types.BRICS)
		if err != nil {
			return err
		}
		if supply.Int64() != 42 {
			t.Fatalf("expected staged supply 42, got %s", supply)
		}
		if tx.Dirty() != 1 {
			t.Fatalf("expected one staged key, got %d", tx.Dirty())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestViewIsReadOnly(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	err := m.View(func(tx *Tx) error {
		return tx.SetPaused("vault", true)
	})
	if !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
}

func TestVaultRecordsRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	params := vault.Params{CollateralRatio: 15_000, LiquidationRatio: 12_000, LiquidationBonus: 500, BurnSource: vault.BurnFromOwner}
	err := m.Update(func(tx *Tx) error {
		if err := tx.PutVaultParams(params); err != nil {
			return err
		}
		if err := tx.PutVaultPosition(&vault.Position{
			Owner:               owner,
			Currency:            types.RUB,
			CollateralDeposited: big.NewInt(30_000),
			StablecoinMinted:    big.NewInt(2_200),
		}); err != nil {
			return err
		}
		if err := tx.PutVaultGlobal(&vault.GlobalState{
			TotalDeposits:    []vault.DepositTotal{{Currency: types.RUB, Amount: big.NewInt(30_000)}},
			StablecoinSupply: big.NewInt(2_200),
		}); err != nil {
			return err
		}
		if err := tx.TrackVaultOwner(owner); err != nil {
			return err
		}
		return tx.TrackVaultOwner(owner)
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	err = m.View(func(tx *Tx) error {
		got, ok, err := tx.VaultParams()
		if err != nil || !ok {
			t.Fatalf("params: ok=%v err=%v", ok, err)
		}
		if got != params {
			t.Fatalf("params mismatch: %+v", got)
		}
		position, ok, err := tx.VaultPosition(owner, types.RUB)
		if err != nil || !ok {
			t.Fatalf("position: ok=%v err=%v", ok, err)
		}
		if position.CollateralDeposited.Int64() != 30_000 || position.StablecoinMinted.Int64() != 2_200 {
			t.Fatalf("unexpected position: %+v", position)
		}
		if _, ok, _ := tx.VaultPosition(owner, types.CNY); ok {
			t.Fatalf("expected no CNY position")
		}
		global, err := tx.VaultGlobal()
		if err != nil {
			return err
		}
		if global.Deposits(types.RUB).Int64() != 30_000 || global.BadDebt.Sign() != 0 {
			t.Fatalf("unexpected global: %+v", global)
		}
		owners, err := tx.VaultOwners()
		if err != nil {
			return err
		}
		if len(owners) != 1 || owners[0] != owner {
			t.Fatalf("unexpected owners: %v", owners)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestPoolRecordsRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	key := pool.KeyForSymbols("CNY", "BRICS")
	err := m.Update(func(tx *Tx) error {
		if err := tx.PutPool(&pool.Pool{
			Key:       key,
			Currency0: types.CNY,
			Currency1: types.BRICS,
			Reserve0:  big.NewInt(500_000),
			Reserve1:  big.NewInt(490_000),
			TotalLP:   big.NewInt(500_000),
		}); err != nil {
			return err
		}
		return tx.PutLiquidityPosition(&pool.LiquidityPosition{Pool: key, Provider: owner, LPTokens: big.NewInt(500_000)})
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	err = m.View(func(tx *Tx) error {
		p, ok, err := tx.Pool(key)
		if err != nil || !ok {
			t.Fatalf("pool: ok=%v err=%v", ok, err)
		}
		if p.Currency0 != types.CNY || p.Reserve1.Int64() != 490_000 || p.ProtocolFees0.Sign() != 0 {
			t.Fatalf("unexpected pool: %+v", p)
		}
		lp, ok, err := tx.LiquidityPosition(key, owner)
		if err != nil || !ok {
			t.Fatalf("position: ok=%v err=%v", ok, err)
		}
		if lp.LPTokens.Int64() != 500_000 {
			t.Fatalf("unexpected lp: %s", lp.LPTokens)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestPauseFlags(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	if err := m.Update(func(tx *Tx) error { return tx.SetPaused(" Pool ", true) }); err != nil {
		t.Fatalf("pause: %v", err)
	}
	_ = m.View(func(tx *Tx) error {
		if !tx.IsPaused("pool") {
			t.Fatalf("expected pool paused")
		}
		if tx.IsPaused("vault") {
			t.Fatalf("expected vault running")
		}
		return nil
	})
}
