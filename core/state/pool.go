package state

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"bricsengine/core/types"
	"bricsengine/native/pool"
)

type storedPool struct {
	Key           [32]byte
	Currency0     uint8
	Currency1     uint8
	Reserve0      *big.Int
	Reserve1      *big.Int
	TotalLP       *big.Int
	ProtocolFees0 *big.Int
	ProtocolFees1 *big.Int
}

// Pool loads a pool record by key.
func (tx *Tx) Pool(key common.Hash) (*pool.Pool, bool, error) {
	var stored storedPool
	ok, err := tx.KVGet(PoolKey(key), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &pool.Pool{
		Key:           common.Hash(stored.Key),
		Currency0:     types.Currency(stored.Currency0),
		Currency1:     types.Currency(stored.Currency1),
		Reserve0:      bigOrZero(stored.Reserve0),
		Reserve1:      bigOrZero(stored.Reserve1),
		TotalLP:       bigOrZero(stored.TotalLP),
		ProtocolFees0: bigOrZero(stored.ProtocolFees0),
		ProtocolFees1: bigOrZero(stored.ProtocolFees1),
	}, true, nil
}

// PutPool persists a pool record.
func (tx *Tx) PutPool(p *pool.Pool) error {
	if p == nil {
		return fmt.Errorf("pool: record required")
	}
	return tx.KVPut(PoolKey(p.Key), &storedPool{
		Key:           p.Key,
		Currency0:     uint8(p.Currency0),
		Currency1:     uint8(p.Currency1),
		Reserve0:      bigOrZero(p.Reserve0),
		Reserve1:      bigOrZero(p.Reserve1),
		TotalLP:       bigOrZero(p.TotalLP),
		ProtocolFees0: bigOrZero(p.ProtocolFees0),
		ProtocolFees1: bigOrZero(p.ProtocolFees1),
	})
}

// LiquidityPosition loads the LP holding of provider.
func (tx *Tx) LiquidityPosition(key common.Hash, provider common.Address) (*pool.LiquidityPosition, bool, error) {
	amount := new(big.Int)
	ok, err := tx.KVGet(PoolPositionKey(key, provider), amount)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &pool.LiquidityPosition{Pool: key, Provider: provider, LPTokens: amount}, true, nil
}

// PutLiquidityPosition persists an LP holding.
func (tx *Tx) PutLiquidityPosition(position *pool.LiquidityPosition) error {
	if position == nil {
		return fmt.Errorf("pool: position required")
	}
	return tx.writeBig(PoolPositionKey(position.Pool, position.Provider), position.LPTokens)
}
