package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ParseAddress accepts a 0x-prefixed hex account identifier in any casing.
func ParseAddress(raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(trimmed), nil
}

// ModuleAddress derives the deterministic account that holds funds for a
// protocol module such as the vault or the pools.
func ModuleAddress(label string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte("bricsengine/module/" + label))[12:])
}
