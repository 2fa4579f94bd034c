package state

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"bricsengine/core/types"
	"bricsengine/native/vault"
)

type storedPosition struct {
	Owner      [20]byte
	Currency   uint8
	Collateral *big.Int
	Minted     *big.Int
}

type storedDepositTotal struct {
	Currency uint8
	Amount   *big.Int
}

type storedVaultGlobal struct {
	Deposits []storedDepositTotal
	Supply   *big.Int
	BadDebt  *big.Int
}

type storedVaultParams struct {
	CollateralRatio  uint32
	LiquidationRatio uint32
	LiquidationBonus uint32
	BurnSource       uint8
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// VaultPosition loads the position of owner in currency. A missing record
// returns (nil, false, nil).
func (tx *Tx) VaultPosition(owner common.Address, currency types.Currency) (*vault.Position, bool, error) {
	var stored storedPosition
	ok, err := tx.KVGet(VaultPositionKey(owner, currency), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &vault.Position{
		Owner:               common.Address(stored.Owner),
		Currency:            types.Currency(stored.Currency),
		CollateralDeposited: bigOrZero(stored.Collateral),
		StablecoinMinted:    bigOrZero(stored.Minted),
	}, true, nil
}

// PutVaultPosition persists a position.
func (tx *Tx) PutVaultPosition(position *vault.Position) error {
	if position == nil {
		return fmt.Errorf("vault: position required")
	}
	return tx.KVPut(VaultPositionKey(position.Owner, position.Currency), &storedPosition{
		Owner:      position.Owner,
		Currency:   uint8(position.Currency),
		Collateral: bigOrZero(position.CollateralDeposited),
		Minted:     bigOrZero(position.StablecoinMinted),
	})
}

// VaultGlobal loads the vault totals. A fresh store yields nil.
func (tx *Tx) VaultGlobal() (*vault.GlobalState, error) {
	var stored storedVaultGlobal
	ok, err := tx.KVGet(vaultGlobalKey, &stored)
	if err != nil || !ok {
		return nil, err
	}
	global := &vault.GlobalState{
		StablecoinSupply: bigOrZero(stored.Supply),
		BadDebt:          bigOrZero(stored.BadDebt),
	}
	for _, entry := range stored.Deposits {
		global.TotalDeposits = append(global.TotalDeposits, vault.DepositTotal{
			Currency: types.Currency(entry.Currency),
			Amount:   bigOrZero(entry.Amount),
		})
	}
	return global, nil
}

// PutVaultGlobal persists the vault totals.
func (tx *Tx) PutVaultGlobal(global *vault.GlobalState) error {
	if global == nil {
		return fmt.Errorf("vault: global state required")
	}
	stored := &storedVaultGlobal{
		Supply:  bigOrZero(global.StablecoinSupply),
		BadDebt: bigOrZero(global.BadDebt),
	}
	for _, entry := range global.TotalDeposits {
		stored.Deposits = append(stored.Deposits, storedDepositTotal{
			Currency: uint8(entry.Currency),
			Amount:   bigOrZero(entry.Amount),
		})
	}
	return tx.KVPut(vaultGlobalKey, stored)
}

// VaultParams loads the vault risk parameters.
func (tx *Tx) VaultParams() (vault.Params, bool, error) {
	var stored storedVaultParams
	ok, err := tx.KVGet(vaultParamsKey, &stored)
	if err != nil || !ok {
		return vault.Params{}, ok, err
	}
	return vault.Params{
		CollateralRatio:  stored.CollateralRatio,
		LiquidationRatio: stored.LiquidationRatio,
		LiquidationBonus: stored.LiquidationBonus,
		BurnSource:       vault.BurnSource(stored.BurnSource),
	}, true, nil
}

// PutVaultParams persists the vault risk parameters.
func (tx *Tx) PutVaultParams(params vault.Params) error {
	return tx.KVPut(vaultParamsKey, &storedVaultParams{
		CollateralRatio:  params.CollateralRatio,
		LiquidationRatio: params.LiquidationRatio,
		LiquidationBonus: params.LiquidationBonus,
		BurnSource:       uint8(params.BurnSource),
	})
}

// TrackVaultOwner indexes owner so liquidation scans can find it.
func (tx *Tx) TrackVaultOwner(owner common.Address) error {
	return tx.KVAppend(vaultOwnersKey, owner.Bytes())
}

// VaultOwners lists every owner that ever opened a position, in first-seen
// order.
func (tx *Tx) VaultOwners() ([]common.Address, error) {
	var raw [][]byte
	if err := tx.KVGetList(vaultOwnersKey, &raw); err != nil {
		return nil, err
	}
	owners := make([]common.Address, 0, len(raw))
	for _, entry := range raw {
		owners = append(owners, common.BytesToAddress(entry))
	}
	return owners, nil
}
