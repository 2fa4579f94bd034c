package common

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsAuthority compares the configured authority with the caller's hex
// identity, ignoring checksum casing. An empty authority matches nobody.
func IsAuthority(authority string, caller common.Address) bool {
	authority = strings.TrimSpace(authority)
	if authority == "" {
		return false
	}
	return strings.EqualFold(authority, caller.Hex())
}

// RequireAuthority returns ErrUnauthorized unless caller is the authority.
func RequireAuthority(authority string, caller common.Address) error {
	if !IsAuthority(authority, caller) {
		return ErrUnauthorized
	}
	return nil
}
