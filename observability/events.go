package observability

import (
	"math/big"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type eventMetrics struct {
	transfers  *prometheus.CounterVec
	supply     *prometheus.GaugeVec
	badDebt    prometheus.Gauge
	liquidated *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking ledger and vault events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "brics",
				Subsystem: "events",
				Name:      "transfers_total",
				Help:      "Count of ledger transfers segmented by currency.",
			}, []string{"currency"}),
			supply: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "brics",
				Subsystem: "vault",
				Name:      "stablecoin_supply",
				Help:      "Outstanding vault-minted BRICS in whole units.",
			}, []string{"currency"}),
			badDebt: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "brics",
				Subsystem: "vault",
				Name:      "bad_debt",
				Help:      "Accumulated uncovered debt from full liquidations in whole BRICS.",
			}),
			liquidated: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "brics",
				Subsystem: "vault",
				Name:      "liquidations_total",
				Help:      "Count of liquidations segmented by collateral and kind.",
			}, []string{"currency", "kind"}),
		}
		prometheus.MustRegister(eventRegistry.transfers, eventRegistry.supply, eventRegistry.badDebt, eventRegistry.liquidated)
	})
	return eventRegistry
}

func normalizeLabel(v string) string {
	normalized := strings.TrimSpace(strings.ToUpper(v))
	if normalized == "" {
		return "UNKNOWN"
	}
	return normalized
}

// RecordTransfer increments the transfer counter for currency.
func (m *eventMetrics) RecordTransfer(currency string) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(normalizeLabel(currency)).Inc()
}

// RecordLiquidation counts a liquidation. full marks a position that was
// wiped out.
func (m *eventMetrics) RecordLiquidation(currency string, full bool) {
	if m == nil {
		return
	}
	kind := "partial"
	if full {
		kind = "full"
	}
	m.liquidated.WithLabelValues(normalizeLabel(currency), kind).Inc()
}

// SetVaultTotals publishes the vault supply and bad debt. Values are scaled
// by 100.
func (m *eventMetrics) SetVaultTotals(stablecoin string, supply, badDebt *big.Int) {
	if m == nil {
		return
	}
	m.supply.WithLabelValues(normalizeLabel(stablecoin)).Set(unscale(supply))
	m.badDebt.Set(unscale(badDebt))
}

func unscale(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(v), big.NewFloat(100)).Float64()
	return f
}
