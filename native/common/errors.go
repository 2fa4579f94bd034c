package common

import (
	"errors"
	"fmt"
)

// Error kinds shared by every module. Module errors wrap exactly one of these
// so callers can classify failures with errors.Is.
var (
	// ErrInvalidInput covers non-positive amounts, unknown currencies and
	// malformed requests.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned when a non-authority calls an
	// authority-only operation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInsufficientBalance is returned when a burn or transfer exceeds
	// holdings.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrTransferFailed is returned when the caller's allowance or balance
	// does not cover a pull transfer.
	ErrTransferFailed = errors.New("transfer failed")
	// ErrRatioMismatch is returned when liquidity amounts do not match the
	// pool price.
	ErrRatioMismatch = errors.New("ratio mismatch")
	// ErrSlippageExceeded is returned when a swap yields less than the
	// caller's minimum.
	ErrSlippageExceeded = errors.New("slippage exceeded")
	// ErrBelowMinimum is returned when an operation would breach the pool
	// reserve floor.
	ErrBelowMinimum = errors.New("below minimum")
	// ErrNotEligible is returned when liquidating a solvent position.
	ErrNotEligible = errors.New("not eligible")
	// ErrModulePaused is returned by Guard for halted modules.
	ErrModulePaused = errors.New("module paused")
)

var (
	// ErrUnknownCurrency is an ErrInvalidInput for currencies that are not
	// configured.
	ErrUnknownCurrency = fmt.Errorf("%w: unknown currency", ErrInvalidInput)
	// ErrInvalidRate is an ErrInvalidInput for non-positive exchange rates.
	ErrInvalidRate = fmt.Errorf("%w: invalid rate", ErrInvalidInput)
)

// Kind returns the taxonomy sentinel wrapped by err, or nil when err is not
// classified.
func Kind(err error) error {
	for _, kind := range []error{
		ErrInvalidInput,
		ErrUnauthorized,
		ErrInsufficientBalance,
		ErrTransferFailed,
		ErrRatioMismatch,
		ErrSlippageExceeded,
		ErrBelowMinimum,
		ErrNotEligible,
		ErrModulePaused,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
