package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"rideledger/internal/domain"
	"rideledger/internal/service"
)

func TestRecorder(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	require.NoError(t, err)

	r.ObserveOperation(service.OpRequestRide, nil, time.Millisecond)
	r.ObserveOperation(service.OpRequestRide, service.ErrFundsMismatch, time.Millisecond)
	r.ObserveOperation(service.OpCompleteRide, fmt.Errorf("%w: %w", service.ErrPayoutFailed, errors.New("x")), time.Millisecond)
	r.ObserveFunds(domain.TransferKindDeposit, 10)
	r.ObserveFunds(domain.TransferKindPayout, 4)

	require.Equal(t, 1.0, testutil.ToFloat64(r.operations.WithLabelValues(service.OpRequestRide, OutcomeOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(r.operations.WithLabelValues(service.OpRequestRide, OutcomeRejected)))
	require.Equal(t, 1.0, testutil.ToFloat64(r.operations.WithLabelValues(service.OpCompleteRide, OutcomeTransferFail)))
	require.Equal(t, 10.0, testutil.ToFloat64(r.funds.WithLabelValues(string(domain.TransferKindDeposit))))
	require.Equal(t, 6.0, testutil.ToFloat64(r.escrowed))
}

func TestNewRecorder_DuplicateRegistration(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	_, err := NewRecorder(reg)
	require.NoError(t, err)

	_, err = NewRecorder(reg)
	require.Error(t, err)
}

func TestOutcome(t *testing.T) {
	t.Parallel()
	require.Equal(t, OutcomeOK, Outcome(nil))
	require.Equal(t, OutcomeRejected, Outcome(service.ErrUnauthorized))
	require.Equal(t, OutcomeRejected, Outcome(service.ErrRideNotFound))
	require.Equal(t, OutcomeTransferFail, Outcome(service.ErrRefundFailed))
	require.Equal(t, OutcomeError, Outcome(errors.New("db down")))
}
