package pool

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	nativecommon "bricsengine/native/common"
)

const basisPoints = 10_000

var (
	bpsBig      = big.NewInt(basisPoints)
	errOverflow = fmt.Errorf("pool: arithmetic overflow: %w", nativecommon.ErrInvalidInput)
	errDivZero  = errors.New("pool: division by zero")
)

func toUint256(v *big.Int) (*uint256.Int, error) {
	if v == nil || v.Sign() < 0 {
		return nil, errOverflow
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, errOverflow
	}
	return out, nil
}

// mulDiv returns floor(x*y/d) with a 512-bit intermediate product.
func mulDiv(x, y, d *big.Int) (*big.Int, error) {
	ux, err := toUint256(x)
	if err != nil {
		return nil, err
	}
	uy, err := toUint256(y)
	if err != nil {
		return nil, err
	}
	ud, err := toUint256(d)
	if err != nil {
		return nil, err
	}
	if ud.IsZero() {
		return nil, errDivZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(ux, uy, ud)
	if overflow {
		return nil, errOverflow
	}
	return z.ToBig(), nil
}

// mulDivUp returns ceil(x*y/d).
func mulDivUp(x, y, d *big.Int) (*big.Int, error) {
	q, err := mulDiv(x, y, d)
	if err != nil {
		return nil, err
	}
	ux, _ := toUint256(x)
	uy, _ := toUint256(y)
	ud, _ := toUint256(d)
	if !new(uint256.Int).MulMod(ux, uy, ud).IsZero() {
		q.Add(q, big.NewInt(1))
	}
	return q, nil
}

func bps(amount *big.Int, rate uint32) (*big.Int, error) {
	return mulDiv(amount, big.NewInt(int64(rate)), bpsBig)
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
