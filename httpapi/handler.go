// Package httpapi exposes the capture service over HTTP with gin.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/luminapay/capture"
)

// IdempotencyKeyHeader carries the client-supplied idempotency key on
// capture requests.
const IdempotencyKeyHeader = "Idempotency-Key"

// Handler adapts the capture service to HTTP. All domain validation stays in
// the domain constructors; the handler only moves bytes and maps errors to
// statuses.
type Handler struct {
	service              *capture.Service
	defaultCaptureWindow time.Duration
	requestTimeout       time.Duration
	logger               *zap.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithDefaultCaptureWindow sets the window applied when an authorize request
// does not specify one. Default 24h.
func WithDefaultCaptureWindow(window time.Duration) Option {
	return func(h *Handler) {
		h.defaultCaptureWindow = window
	}
}

// WithRequestTimeout bounds each request context. With a lock-backed capture
// path this is what turns an indefinitely blocked acquisition into a
// lock_timeout response. Zero disables the bound.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(h *Handler) {
		h.requestTimeout = timeout
	}
}

// NewHandler builds a Handler around the capture service.
func NewHandler(service *capture.Service, logger *zap.Logger, opts ...Option) *Handler {
	h := &Handler{
		service:              service,
		defaultCaptureWindow: 24 * time.Hour,
		logger:               logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router builds the gin engine with all payment routes registered.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if h.requestTimeout > 0 {
		router.Use(h.timeoutMiddleware())
	}

	router.POST("/payments", h.createPayment)
	router.GET("/payments/:id", h.getPayment)
	router.POST("/payments/:id/authorize", h.authorizePayment)
	router.POST("/payments/:id/capture", h.capturePayment)
	return router
}

func (h *Handler) timeoutMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

type authorizeRequest struct {
	CaptureWindowSeconds int64 `json:"capture_window_seconds" binding:"omitempty,gt=0"`
}

type captureRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required"`
}

type paymentResponse struct {
	ID                  string     `json:"id"`
	State               string     `json:"state"`
	AuthorizedAt        *time.Time `json:"authorized_at,omitempty"`
	CaptureExpiresAt    *time.Time `json:"capture_expires_at,omitempty"`
	CapturedAt          *time.Time `json:"captured_at,omitempty"`
	CapturedAmountCents *int64     `json:"captured_amount_cents,omitempty"`
}

type captureResponse struct {
	CaptureID   string    `json:"capture_id"`
	PaymentID   string    `json:"payment_id"`
	AmountCents int64     `json:"amount_cents"`
	CreatedAt   time.Time `json:"created_at"`
	Replayed    bool      `json:"replayed"`
}

func toPaymentResponse(p capture.Payment) paymentResponse {
	return paymentResponse{
		ID:                  p.ID.String(),
		State:               string(p.State),
		AuthorizedAt:        p.AuthorizedAt,
		CaptureExpiresAt:    p.CaptureExpiresAt,
		CapturedAt:          p.CapturedAt,
		CapturedAmountCents: p.CapturedAmountCents,
	}
}

func (h *Handler) createPayment(c *gin.Context) {
	payment, err := h.service.CreatePayment(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPaymentResponse(payment))
}

func (h *Handler) getPayment(c *gin.Context) {
	id, err := capture.ParsePaymentID(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	payment, err := h.service.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(payment))
}

func (h *Handler) authorizePayment(c *gin.Context) {
	id, err := capture.ParsePaymentID(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	var req authorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}
	window := h.defaultCaptureWindow
	if req.CaptureWindowSeconds > 0 {
		window = time.Duration(req.CaptureWindowSeconds) * time.Second
	}

	payment, err := h.service.Authorize(c.Request.Context(), id, window)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(payment))
}

func (h *Handler) capturePayment(c *gin.Context) {
	id, err := capture.ParsePaymentID(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	key, err := capture.NewIdempotencyKey(c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		h.writeError(c, err)
		return
	}

	var req captureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	result, err := h.service.Capture(c.Request.Context(), capture.CaptureRequest{
		PaymentID:      id,
		IdempotencyKey: key,
		AmountCents:    req.AmountCents,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, captureResponse{
		CaptureID:   result.Capture.ID.String(),
		PaymentID:   result.Capture.PaymentID.String(),
		AmountCents: result.Capture.AmountCents,
		CreatedAt:   result.Capture.CreatedAt,
		Replayed:    result.Replayed,
	})
}
