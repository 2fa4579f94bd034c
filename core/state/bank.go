package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"bricsengine/core/types"
)

func (tx *Tx) readBig(key []byte) (*big.Int, error) {
	value := new(big.Int)
	ok, err := tx.KVGet(key, value)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return value, nil
}

func (tx *Tx) writeBig(key []byte, value *big.Int) error {
	if value == nil {
		value = big.NewInt(0)
	}
	return tx.KVPut(key, value)
}

// BankBalance returns the balance of account. Missing entries are zero.
func (tx *Tx) BankBalance(account common.Address, currency types.Currency) (*big.Int, error) {
	return tx.readBig(BankBalanceKey(account, currency))
}

// PutBankBalance overwrites the balance of account.
func (tx *Tx) PutBankBalance(account common.Address, currency types.Currency, amount *big.Int) error {
	return tx.writeBig(BankBalanceKey(account, currency), amount)
}

// BankAllowance returns what spender may still pull from owner.
func (tx *Tx) BankAllowance(owner, spender common.Address, currency types.Currency) (*big.Int, error) {
	return tx.readBig(BankAllowanceKey(owner, spender, currency))
}

// PutBankAllowance overwrites an allowance.
func (tx *Tx) PutBankAllowance(owner, spender common.Address, currency types.Currency, amount *big.Int) error {
	return tx.writeBig(BankAllowanceKey(owner, spender, currency), amount)
}

// BankSupply returns the circulating supply of currency.
func (tx *Tx) BankSupply(currency types.Currency) (*big.Int, error) {
	return tx.readBig(BankSupplyKey(currency))
}

// PutBankSupply overwrites the circulating supply of currency.
func (tx *Tx) PutBankSupply(currency types.Currency, amount *big.Int) error {
	return tx.writeBig(BankSupplyKey(currency), amount)
}
