package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/luminapay/capture"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusForError maps domain failure conditions to HTTP statuses. Invariant
// violations (duplicate capture, state transitions escaping the orchestrator)
// fall through to 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, capture.ErrInvalidPaymentID),
		errors.Is(err, capture.ErrInvalidCaptureID),
		errors.Is(err, capture.ErrInvalidIdempotencyKey),
		errors.Is(err, capture.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, capture.ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, capture.ErrIdempotencyKeyReuse),
		errors.Is(err, capture.ErrPaymentAlreadyCaptured),
		errors.Is(err, capture.ErrInvalidStateTransition):
		return http.StatusConflict
	case errors.Is(err, capture.ErrPaymentExpired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, capture.ErrLockTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, errorResponse{Code: "internal_error", Message: "internal error"})
		return
	}

	code := capture.ErrorCode(err)
	if code == "" {
		code = "bad_request"
	}
	c.JSON(status, errorResponse{Code: code, Message: err.Error()})
}

func (h *Handler) writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorResponse{Code: "invalid_request_body", Message: err.Error()})
}
