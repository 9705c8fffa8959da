package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luminapay/capture"
)

var testNow = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

type testServer struct {
	router *gin.Engine
	clock  *capture.FixedClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := capture.NewFixedClock(testNow)
	service := capture.NewService(
		capture.NewMemoryLockProvider(),
		capture.NewMemoryPaymentStore(),
		capture.NewMemoryCaptureStore(),
		capture.WithClock(clock),
	)
	handler := NewHandler(service, zap.NewNop())
	return &testServer{router: handler.Router(), clock: clock}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// createAuthorizedPayment drives the API itself: POST /payments then
// authorize with the given window.
func (s *testServer) createAuthorizedPayment(t *testing.T, windowSeconds int64) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/payments", nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[paymentResponse](t, rec)

	rec = s.do(t, http.MethodPost, "/payments/"+created.ID+"/authorize",
		map[string]any{"capture_window_seconds": windowSeconds}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	authorized := decode[paymentResponse](t, rec)
	require.Equal(t, "authorized", authorized.State)
	return created.ID
}

func captureHeaders(key string) map[string]string {
	return map[string]string{IdempotencyKeyHeader: key}
}

func TestCapturePayment_FullFlow(t *testing.T) {
	s := newTestServer(t)
	id := s.createAuthorizedPayment(t, 3600)

	rec := s.do(t, http.MethodPost, "/payments/"+id+"/capture",
		map[string]any{"amount_cents": 1000}, captureHeaders("order-1"))
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decode[captureResponse](t, rec)
	require.Equal(t, id, first.PaymentID)
	require.Equal(t, int64(1000), first.AmountCents)
	require.False(t, first.Replayed)

	// Same key, same amount: replayed with 200 and the original capture id.
	rec = s.do(t, http.MethodPost, "/payments/"+id+"/capture",
		map[string]any{"amount_cents": 1000}, captureHeaders("order-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	replay := decode[captureResponse](t, rec)
	require.True(t, replay.Replayed)
	require.Equal(t, first.CaptureID, replay.CaptureID)

	// The payment reads back as captured.
	rec = s.do(t, http.MethodGet, "/payments/"+id, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	payment := decode[paymentResponse](t, rec)
	require.Equal(t, "captured", payment.State)
	require.Equal(t, int64(1000), *payment.CapturedAmountCents)
}

func TestCapturePayment_MissingIdempotencyKey(t *testing.T) {
	s := newTestServer(t)
	id := s.createAuthorizedPayment(t, 3600)

	rec := s.do(t, http.MethodPost, "/payments/"+id+"/capture",
		map[string]any{"amount_cents": 1000}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorResponse](t, rec)
	require.Equal(t, capture.ErrCodeInvalidIdempotencyKey, body.Code)
}

func TestCapturePayment_InvalidIdempotencyKey(t *testing.T) {
	s := newTestServer(t)
	id := s.createAuthorizedPayment(t, 3600)

	rec := s.do(t, http.MethodPost, "/payments/"+id+"/capture",
		map[string]any{"amount_cents": 1000}, captureHeaders("bad key!"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCapturePayment_UnknownPayment(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/payments/"+capture.NewPaymentID().String()+"/capture",
		map[string]any{"amount_cents": 1000}, captureHeaders("order-1"))
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[errorResponse](t, rec)
	require.Equal(t, capture.ErrCodePaymentNotFound, body.Code)
}

func TestCapturePayment_MalformedPaymentID(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/payments/not-a-uuid/capture",
		map[string]any{"amount_cents": 1000}, captureHeaders("order-1"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCapturePayment_KeyReuseConflict(t *testing.T) {
	s := newTestServer(t)
	id := s.createAuthorizedPayment(t, 3600)

	rec := s.do(t, http.MethodPost, "/payments/"+id+"/capture",
		map[string]any{"amount_cents": 1000}, captureHeaders("order-1"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/payments/"+id+"/capture",
		map[string]any{"amount_cents": 2000}, captureHeaders("order-1"))
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode[errorResponse](t, rec)
	require.Equal(t, capture.ErrCodeIdempotencyKeyReuse, body.Code)
}

func TestCapturePayment_AlreadyCaptured(t *testing.T) {
	s := newTestServer(t)
	id := s.createAuthorizedPayment(t, 3600)

	rec := s.do(t, http.MethodPost, "/payments/"+id+"/capture",
		map[string]any{"amount_cents": 1000}, captureHeaders("order-1"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/payments/"+id+"/capture",
		map[string]any{"amount_cents": 1000}, captureHeaders("order-2"))
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode[errorResponse](t, rec)
	require.Equal(t, capture.ErrCodePaymentAlreadyCaptured, body.Code)
}

func TestCapturePayment_Expired(t *testing.T) {
	s := newTestServer(t)
	id := s.createAuthorizedPayment(t, 3600)

	s.clock.Set(testNow.Add(time.Hour))
	rec := s.do(t, http.MethodPost, "/payments/"+id+"/capture",
		map[string]any{"amount_cents": 1000}, captureHeaders("order-1"))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[errorResponse](t, rec)
	require.Equal(t, capture.ErrCodePaymentExpired, body.Code)
}

func TestCapturePayment_MissingAmount(t *testing.T) {
	s := newTestServer(t)
	id := s.createAuthorizedPayment(t, 3600)

	rec := s.do(t, http.MethodPost, "/payments/"+id+"/capture",
		map[string]any{}, captureHeaders("order-1"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCapturePayment_NegativeAmount(t *testing.T) {
	s := newTestServer(t)
	id := s.createAuthorizedPayment(t, 3600)

	rec := s.do(t, http.MethodPost, "/payments/"+id+"/capture",
		map[string]any{"amount_cents": -5}, captureHeaders("order-1"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorResponse](t, rec)
	require.Equal(t, capture.ErrCodeInvalidAmount, body.Code)
}

func TestAuthorizePayment_DefaultWindow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/payments", nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[paymentResponse](t, rec)
	require.Equal(t, "pending", created.State)

	// Empty body falls back to the handler's default window of 24h.
	rec = s.do(t, http.MethodPost, "/payments/"+created.ID+"/authorize",
		map[string]any{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	authorized := decode[paymentResponse](t, rec)
	require.NotNil(t, authorized.CaptureExpiresAt)
	require.True(t, authorized.CaptureExpiresAt.Equal(testNow.Add(24*time.Hour)))
}

func TestAuthorizePayment_AlreadyAuthorized(t *testing.T) {
	s := newTestServer(t)
	id := s.createAuthorizedPayment(t, 3600)

	rec := s.do(t, http.MethodPost, "/payments/"+id+"/authorize",
		map[string]any{}, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode[errorResponse](t, rec)
	require.Equal(t, capture.ErrCodeInvalidStateTransition, body.Code)
}

func TestGetPayment_NotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/payments/"+capture.NewPaymentID().String(), nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
