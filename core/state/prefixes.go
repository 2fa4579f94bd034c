package state

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"bricsengine/core/types"
)

var (
	bankBalancePrefix   = []byte("bank/balance/")
	bankAllowancePrefix = []byte("bank/allowance/")
	bankSupplyPrefix    = []byte("bank/supply/")
	ratePrefix          = []byte("rates/")
	vaultPositionPrefix = []byte("vault/position/")
	vaultGlobalKey      = []byte("vault/global")
	vaultParamsKey      = []byte("vault/params")
	vaultOwnersKey      = []byte("vault/owners")
	poolPrefix          = []byte("pool/state/")
	poolPositionPrefix  = []byte("pool/lp/")
	pausePrefix         = "admin/pause/"
)

func composeKey(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, part := range parts {
		size += len(part)
	}
	key := make([]byte, 0, size)
	key = append(key, prefix...)
	for _, part := range parts {
		key = append(key, part...)
	}
	return key
}

// BankBalanceKey is the storage key of an account balance.
func BankBalanceKey(account common.Address, currency types.Currency) []byte {
	return composeKey(bankBalancePrefix, account.Bytes(), []byte{byte(currency)})
}

// BankAllowanceKey is the storage key of a spender allowance.
func BankAllowanceKey(owner, spender common.Address, currency types.Currency) []byte {
	return composeKey(bankAllowancePrefix, owner.Bytes(), spender.Bytes(), []byte{byte(currency)})
}

// BankSupplyKey is the storage key of a currency's total supply.
func BankSupplyKey(currency types.Currency) []byte {
	return composeKey(bankSupplyPrefix, []byte{byte(currency)})
}

// RateKey is the storage key of a collateral rate.
func RateKey(currency types.Currency) []byte {
	return composeKey(ratePrefix, []byte{byte(currency)})
}

// VaultPositionKey is the storage key of a vault position.
func VaultPositionKey(owner common.Address, currency types.Currency) []byte {
	return composeKey(vaultPositionPrefix, owner.Bytes(), []byte{byte(currency)})
}

// PoolKey is the storage key of a pool record.
func PoolKey(key common.Hash) []byte {
	return composeKey(poolPrefix, key.Bytes())
}

// PoolPositionKey is the storage key of a provider's LP holding.
func PoolPositionKey(key common.Hash, provider common.Address) []byte {
	return composeKey(poolPositionPrefix, key.Bytes(), provider.Bytes())
}

// PauseKey is the storage key of a module pause flag.
func PauseKey(module string) []byte {
	return []byte(fmt.Sprintf("%s%s", pausePrefix, strings.ToLower(strings.TrimSpace(module))))
}
