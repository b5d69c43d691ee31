// Package metrics exposes ledger activity as Prometheus collectors.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rideledger/internal/domain"
	"rideledger/internal/service"
)

const namespace = "rideledger"

// Outcome label values.
const (
	OutcomeOK           = "ok"
	OutcomeRejected     = "rejected"
	OutcomeTransferFail = "transfer_failed"
	OutcomeError        = "error"
)

// Recorder implements service.Recorder on top of Prometheus collectors.
type Recorder struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	funds      *prometheus.CounterVec
	escrowed   prometheus.Gauge
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Ledger operations by outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time spent in ledger operations, including the unit of work.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		funds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "funds_moved_total",
			Help:      "Smallest units moved in or out of custody.",
		}, []string{"kind"}),
		escrowed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "funds_in_custody",
			Help:      "Smallest units currently held in escrow.",
		}),
	}

	for _, c := range []prometheus.Collector{r.operations, r.duration, r.funds, r.escrowed} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveOperation counts an operation and records its latency.
func (r *Recorder) ObserveOperation(operation string, err error, elapsed time.Duration) {
	r.operations.WithLabelValues(operation, Outcome(err)).Inc()
	r.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveFunds counts a committed custody movement.
func (r *Recorder) ObserveFunds(kind domain.TransferKind, amount domain.Amount) {
	r.funds.WithLabelValues(string(kind)).Add(float64(amount))
	switch kind {
	case domain.TransferKindDeposit:
		r.escrowed.Add(float64(amount))
	case domain.TransferKindPayout, domain.TransferKindRefund:
		r.escrowed.Sub(float64(amount))
	}
}

// SetFundsInCustody resets the custody gauge, e.g. from the store at startup.
func (r *Recorder) SetFundsInCustody(amount domain.Amount) {
	r.escrowed.Set(float64(amount))
}

// Outcome classifies an operation error into a label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, service.ErrPayoutFailed), errors.Is(err, service.ErrRefundFailed):
		return OutcomeTransferFail
	case errors.Is(err, service.ErrFundsMismatch),
		errors.Is(err, service.ErrRideNotFound),
		errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrInvalidCaller),
		errors.Is(err, service.ErrInvalidAmount):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

var _ service.Recorder = (*Recorder)(nil)
