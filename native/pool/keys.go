package pool

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeyForSymbols derives the pool key of an unordered symbol pair. Symbols
// must already be in canonical form.
func KeyForSymbols(a, b string) common.Hash {
	pair := []string{a, b}
	sort.Strings(pair)
	return crypto.Keccak256Hash([]byte(pair[0]), []byte{'/'}, []byte(pair[1]))
}
