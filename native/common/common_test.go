package common

import (
	"errors"
	"fmt"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

type pauseSet map[string]bool

func (p pauseSet) IsPaused(module string) bool { return p[module] }

func TestGuard(t *testing.T) {
	if err := Guard(nil, ModuleVault); err != nil {
		t.Fatalf("nil view must not block: %v", err)
	}
	view := pauseSet{ModulePool: true}
	if err := Guard(view, ModuleVault); err != nil {
		t.Fatalf("vault not paused: %v", err)
	}
	if err := Guard(view, ModulePool); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected paused error, got %v", err)
	}
}

func TestIsAuthorityIgnoresCase(t *testing.T) {
	caller := ethcommon.HexToAddress("0x00000000000000000000000000000000000000Ab")
	if !IsAuthority("0x00000000000000000000000000000000000000AB", caller) {
		t.Fatalf("upper-case authority should match")
	}
	if !IsAuthority(" 0x00000000000000000000000000000000000000ab ", caller) {
		t.Fatalf("lower-case authority should match")
	}
	if IsAuthority("", caller) {
		t.Fatalf("empty authority must not match")
	}
	if err := RequireAuthority("0x0000000000000000000000000000000000000001", caller); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestKindClassifiesWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("vault: %w", ErrUnknownCurrency)
	if Kind(wrapped) != ErrInvalidInput {
		t.Fatalf("unknown currency should classify as invalid input")
	}
	if Kind(errors.New("boom")) != nil {
		t.Fatalf("unclassified error should have no kind")
	}
}
