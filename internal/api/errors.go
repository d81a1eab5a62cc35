package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/order"
	"solana-token-sniper/internal/storage"
	"solana-token-sniper/internal/worker"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, storage.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrStatusConflict),
		errors.Is(err, storage.ErrDuplicateKey),
		errors.Is(err, order.ErrTerminal),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, worker.ErrSweepRunning),
		errors.Is(err, worker.ErrScanRunning):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUpstreamUnavailable),
		errors.Is(err, domain.ErrRateLimited),
		errors.Is(err, domain.ErrExecutionFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.log.WithError(err).WithField("route", c.FullPath()).Error("unhandled error")
	}
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
