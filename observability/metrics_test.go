package observability

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	nativecommon "bricsengine/native/common"
)

func TestErrorKindLabels(t *testing.T) {
	require.Equal(t, "", ErrorKind(nil))
	require.Equal(t, "internal", ErrorKind(errors.New("disk on fire")))
	require.Equal(t, "slippage_exceeded", ErrorKind(fmt.Errorf("pool: %w", nativecommon.ErrSlippageExceeded)))
	require.Equal(t, "unknown_currency", ErrorKind(fmt.Errorf("rates: %w", nativecommon.ErrUnknownCurrency)))
	require.Equal(t, "invalid_input", ErrorKind(nativecommon.ErrInvalidInput))
}

func TestObserveNilSafe(t *testing.T) {
	var m *EngineMetrics
	m.Observe("swap", 0, nil)
	Engine().Observe("swap", 0, nativecommon.ErrBelowMinimum)
	Events().RecordLiquidation("cny", true)
}
