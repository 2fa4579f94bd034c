package bank

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"bricsengine/core/types"
	nativecommon "bricsengine/native/common"
)

type mockStore struct {
	balances   map[string]*big.Int
	allowances map[string]*big.Int
	supply     map[types.Currency]*big.Int
}

func newMockStore() *mockStore {
	return &mockStore{
		balances:   make(map[string]*big.Int),
		allowances: make(map[string]*big.Int),
		supply:     make(map[types.Currency]*big.Int),
	}
}

func balKey(a common.Address, c types.Currency) string { return fmt.Sprintf("%x/%d", a, c) }

func (m *mockStore) BankBalance(a common.Address, c types.Currency) (*big.Int, error) {
	if v, ok := m.balances[balKey(a, c)]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (m *mockStore) PutBankBalance(a common.Address, c types.Currency, v *big.Int) error {
	m.balances[balKey(a, c)] = new(big.Int).Set(v)
	return nil
}

func (m *mockStore) BankAllowance(o, s common.Address, c types.Currency) (*big.Int, error) {
	if v, ok := m.allowances[balKey(o, c)+balKey(s, c)]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (m *mockStore) PutBankAllowance(o, s common.Address, c types.Currency, v *big.Int) error {
	m.allowances[balKey(o, c)+balKey(s, c)] = new(big.Int).Set(v)
	return nil
}

func (m *mockStore) BankSupply(c types.Currency) (*big.Int, error) {
	if v, ok := m.supply[c]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (m *mockStore) PutBankSupply(c types.Currency, v *big.Int) error {
	m.supply[c] = new(big.Int).Set(v)
	return nil
}

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	vault = types.ModuleAddress("vault")
)

func TestMintBurnTracksSupply(t *testing.T) {
	ledger := NewLedger(newMockStore(), types.DefaultCurrencies())
	if err := ledger.Mint(alice, types.BRICS, big.NewInt(500)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Burn(alice, types.BRICS, big.NewInt(200)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	supply, _ := ledger.TotalSupply(types.BRICS)
	bal, _ := ledger.BalanceOf(alice, types.BRICS)
	if supply.Int64() != 300 || bal.Int64() != 300 {
		t.Fatalf("unexpected supply=%s balance=%s", supply, bal)
	}
	if err := ledger.Burn(alice, types.BRICS, big.NewInt(301)); !errors.Is(err, nativecommon.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	ledger := NewLedger(newMockStore(), types.DefaultCurrencies())
	if err := ledger.Mint(alice, types.CNY, big.NewInt(1_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	err := ledger.TransferFrom(vault, alice, vault, types.CNY, big.NewInt(100))
	if !errors.Is(err, nativecommon.ErrTransferFailed) {
		t.Fatalf("expected transfer failed without allowance, got %v", err)
	}
	if err := ledger.Approve(alice, vault, types.CNY, big.NewInt(2_000)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	err = ledger.TransferFrom(vault, alice, vault, types.CNY, big.NewInt(1_500))
	if !errors.Is(err, nativecommon.ErrTransferFailed) {
		t.Fatalf("expected transfer failed on short balance, got %v", err)
	}
	if err := ledger.TransferFrom(vault, alice, vault, types.CNY, big.NewInt(600)); err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	allowance, _ := ledger.Allowance(alice, vault, types.CNY)
	vaultBal, _ := ledger.BalanceOf(vault, types.CNY)
	if allowance.Int64() != 1_400 || vaultBal.Int64() != 600 {
		t.Fatalf("unexpected allowance=%s vault=%s", allowance, vaultBal)
	}
}

func TestTransferRejectsBadInput(t *testing.T) {
	ledger := NewLedger(newMockStore(), types.DefaultCurrencies())
	if err := ledger.Transfer(alice, bob, types.CNY, big.NewInt(0)); !errors.Is(err, nativecommon.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if err := ledger.Transfer(alice, bob, types.Currency(99), big.NewInt(1)); !errors.Is(err, nativecommon.ErrInvalidInput) {
		t.Fatalf("expected unknown currency, got %v", err)
	}
	if err := ledger.Transfer(alice, bob, types.CNY, big.NewInt(1)); !errors.Is(err, nativecommon.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}
