package state

import (
	"math/big"

	"bricsengine/core/types"
)

// RateEntry loads the stored rate of currency.
func (tx *Tx) RateEntry(currency types.Currency) (*big.Int, bool, error) {
	rate := new(big.Int)
	ok, err := tx.KVGet(RateKey(currency), rate)
	if err != nil || !ok {
		return nil, ok, err
	}
	return rate, true, nil
}

// PutRateEntry stores the rate of currency.
func (tx *Tx) PutRateEntry(currency types.Currency, rate *big.Int) error {
	return tx.writeBig(RateKey(currency), rate)
}
