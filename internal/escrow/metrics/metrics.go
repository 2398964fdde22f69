package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the escrow module: transfer lifecycle
// counts and the aggregate balance currently held.
type Metrics struct {
	TransfersOpened    prometheus.Counter
	TransfersCompleted prometheus.Counter
	TransfersCancelled prometheus.Counter
	HeldBalance        prometheus.Gauge
}

// New creates a Metrics instance with all escrow metrics registered.
func New() *Metrics {
	return &Metrics{
		TransfersOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "landledger_transfers_opened_total",
			Help: "Total number of transfer requests opened",
		}),
		TransfersCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "landledger_transfers_completed_total",
			Help: "Total number of transfers completed",
		}),
		TransfersCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "landledger_transfers_cancelled_total",
			Help: "Total number of transfers cancelled",
		}),
		HeldBalance: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "landledger_escrow_held_balance",
			Help: "Aggregate amount currently held in escrow",
		}),
	}
}
