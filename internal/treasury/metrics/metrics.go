package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the treasury module.
type Metrics struct {
	Balance           prometheus.Gauge
	FundedAmount      prometheus.Counter
	PayoutsReleased   *prometheus.CounterVec
	PayoutAmount      prometheus.Counter
	ReleasesRejected  *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// New registers all treasury metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Balance: f.NewGauge(prometheus.GaugeOpts{
			Name: "aegis_treasury_balance",
			Help: "Current vault balance after the last mutation",
		}),
		FundedAmount: f.NewCounter(prometheus.CounterOpts{
			Name: "aegis_treasury_funded_amount_total",
			Help: "Total amount deposited into the vault",
		}),
		PayoutsReleased: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aegis_treasury_payouts_released_total",
			Help: "Initial funding releases by severity, including zero payouts",
		}, []string{"severity"}),
		PayoutAmount: f.NewCounter(prometheus.CounterOpts{
			Name: "aegis_treasury_payout_amount_total",
			Help: "Total amount released as initial funding",
		}),
		ReleasesRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aegis_treasury_releases_rejected_total",
			Help: "Initial funding releases rejected by error code",
		}, []string{"code"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aegis_treasury_operation_duration_seconds",
			Help:    "Duration of state-changing treasury operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) ObserveBalance(balance int64) {
	m.Balance.Set(float64(balance))
}

func (m *Metrics) IncrementFunded(amount int64) {
	m.FundedAmount.Add(float64(amount))
}

// IncrementReleased records a release. Zero payouts are counted under their severity
// but add nothing to the payout amount.
func (m *Metrics) IncrementReleased(severity string, amount int64) {
	m.PayoutsReleased.WithLabelValues(severityLabel(severity)).Inc()
	m.PayoutAmount.Add(float64(amount))
}

func (m *Metrics) IncrementRejected(code string) {
	m.ReleasesRejected.WithLabelValues(code).Inc()
}

// ObserveOperation records the duration of op.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(op string, start time.Time) {
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// severityLabel bounds label cardinality to the known tiers.
func severityLabel(severity string) string {
	switch severity {
	case "Critical", "High", "Medium":
		return severity
	default:
		return "other"
	}
}
