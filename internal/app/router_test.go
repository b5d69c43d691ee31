package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"rideledger/internal/handler"
	"rideledger/internal/metrics"
	"rideledger/internal/middleware"
	"rideledger/internal/repository/memory"
	"rideledger/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	log, _ := test.NewNullLogger()

	reg := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(reg)
	require.NoError(t, err)

	ledger := service.NewRideLedger(service.LedgerDeps{
		UnitOfWork: memory.NewStore(),
		Recorder:   recorder,
		Logger:     log,
	})

	return NewRouter(RouterDeps{
		RideHandler:    handler.NewRideHandler(ledger, 2),
		PaymentHandler: handler.NewPaymentHandler(ledger, 2),
		AccountHandler: handler.NewAccountHandler(ledger, 2),
		EventHandler:   handler.NewEventHandler(ledger, 2),
		Metrics:        metrics.Handler(reg),
		Logger:         log,
	})
}

func do(t *testing.T, router *gin.Engine, method, path, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set(middleware.CallerHeader, caller)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRouter_RideLifecycle(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodPost, "/v1/rides", "rider-R", handler.CreateRideRequest{
		PickupLocation:  "A",
		DropoffLocation: "B",
		Fare:            "10",
		Payment:         "10.00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[handler.TransitionResponse](t, w)
	require.Equal(t, uint64(0), created.RideID)
	require.Equal(t, "Requested", created.Status)
	require.NotEmpty(t, created.OperationID)
	require.Equal(t, "/v1/rides/0", w.Header().Get("Location"))

	w = do(t, router, http.MethodGet, "/v1/rides/0", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ride := decode[handler.RideView](t, w)
	require.Equal(t, "rider-R", ride.Rider)
	require.Equal(t, "10.00", ride.Fare)
	require.Equal(t, "A", ride.PickupLocation)

	w = do(t, router, http.MethodPost, "/v1/rides/0/accept", "driver-D", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodPost, "/v1/rides/0/accept", "driver-E", nil)
	require.Equal(t, http.StatusConflict, w.Code)

	w = do(t, router, http.MethodPost, "/v1/rides/0/complete", "rider-R", nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, router, http.MethodPost, "/v1/rides/0/complete", "driver-D", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Completed", decode[handler.TransitionResponse](t, w).Status)

	w = do(t, router, http.MethodGet, "/v1/accounts/driver-D", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "10.00", decode[handler.AccountView](t, w).Balance)

	w = do(t, router, http.MethodGet, "/v1/rides/0/escrow", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	escrow := decode[handler.EscrowView](t, w)
	require.True(t, escrow.Released)
	require.Equal(t, "0.00", escrow.Amount)

	w = do(t, router, http.MethodGet, "/v1/rides/0/transfers", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]handler.TransferView](t, w), 2)

	w = do(t, router, http.MethodGet, "/v1/events?after=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[handler.EventPage](t, w)
	require.Len(t, page.Events, 2)
	require.Equal(t, "RideAccepted", page.Events[0].Type)
	require.Equal(t, uint64(3), page.Next)
}

func TestRouter_CancelRefunds(t *testing.T) {
	router := newTestRouter(t)

	do(t, router, http.MethodPost, "/v1/rides", "rider-R", handler.CreateRideRequest{Fare: "10", Payment: "10"})
	w := do(t, router, http.MethodPost, "/v1/rides", "rider-R", handler.CreateRideRequest{Fare: "5", Payment: "5"})
	require.Equal(t, uint64(1), decode[handler.TransitionResponse](t, w).RideID)

	w = do(t, router, http.MethodPost, "/v1/rides/1/cancel", "rider-R", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodGet, "/v1/accounts/rider-R", "", nil)
	require.Equal(t, "5.00", decode[handler.AccountView](t, w).Balance)

	w = do(t, router, http.MethodGet, "/v1/escrow", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "10.00", decode[handler.EscrowTotalResponse](t, w).Amount)
}

func TestRouter_RejectedPayoutIs422(t *testing.T) {
	router := newTestRouter(t)

	do(t, router, http.MethodPost, "/v1/rides", "rider-R", handler.CreateRideRequest{Fare: "3", Payment: "3"})
	do(t, router, http.MethodPost, "/v1/rides/0/accept", "driver-D", nil)

	optOut := false
	w := do(t, router, http.MethodPut, "/v1/accounts/me", "driver-D", handler.UpdateAccountRequest{AcceptsTransfers: &optOut})
	require.Equal(t, http.StatusOK, w.Code)
	require.False(t, decode[handler.AccountView](t, w).AcceptsTransfers)

	w = do(t, router, http.MethodPost, "/v1/rides/0/complete", "driver-D", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, router, http.MethodGet, "/v1/rides/0", "", nil)
	require.Equal(t, "Accepted", decode[handler.RideView](t, w).Status)
}

func TestRouter_BadRequests(t *testing.T) {
	router := newTestRouter(t)

	testCases := []struct {
		name   string
		method string
		path   string
		caller string
		body   any
		code   int
	}{
		{"missing caller", http.MethodPost, "/v1/rides", "", handler.CreateRideRequest{Fare: "1", Payment: "1"}, http.StatusUnauthorized},
		{"funds mismatch", http.MethodPost, "/v1/rides", "r", handler.CreateRideRequest{Fare: "10", Payment: "9.99"}, http.StatusBadRequest},
		{"no payment", http.MethodPost, "/v1/rides", "r", handler.CreateRideRequest{Fare: "10"}, http.StatusBadRequest},
		{"too precise", http.MethodPost, "/v1/rides", "r", handler.CreateRideRequest{Fare: "1.001", Payment: "1.001"}, http.StatusBadRequest},
		{"negative", http.MethodPost, "/v1/rides", "r", handler.CreateRideRequest{Fare: "-1", Payment: "-1"}, http.StatusBadRequest},
		{"missing fare", http.MethodPost, "/v1/rides", "r", map[string]string{"payment": "1"}, http.StatusBadRequest},
		{"bad ride id", http.MethodGet, "/v1/rides/abc", "", nil, http.StatusBadRequest},
		{"unknown ride", http.MethodGet, "/v1/rides/99", "", nil, http.StatusNotFound},
		{"accept unknown ride", http.MethodPost, "/v1/rides/99/accept", "d", nil, http.StatusNotFound},
		{"unknown status filter", http.MethodGet, "/v1/rides?status=Flying", "", nil, http.StatusBadRequest},
		{"bad event cursor", http.MethodGet, "/v1/events?after=-1", "", nil, http.StatusBadRequest},
		{"account update without body", http.MethodPut, "/v1/accounts/me", "r", map[string]string{}, http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, router, tc.method, tc.path, tc.caller, tc.body)
			require.Equal(t, tc.code, w.Code, w.Body.String())
		})
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	do(t, router, http.MethodPost, "/v1/rides", "r", handler.CreateRideRequest{Fare: "1", Payment: "1"})

	w = do(t, router, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `rideledger_operations_total{operation="request_ride",outcome="ok"} 1`)
}
