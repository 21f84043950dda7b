package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bwanakweli4ever/prozlab-backend/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// verificationErrorCases covers the shared outcomes of the verification
// state machine. Handlers append flow-specific cases in front.
func verificationErrorCases() []ErrorCase {
	return []ErrorCase{
		{Err: usecase.ErrTokenNotFound, Status: http.StatusNotFound, Message: "verification not found"},
		{Err: usecase.ErrAlreadyVerified, Status: http.StatusConflict, Message: "already verified"},
		{Err: usecase.ErrTokenExpired, Status: http.StatusGone, Message: "verification expired"},
		{Err: usecase.ErrTooManyAttempts, Status: http.StatusTooManyRequests, Message: "too many attempts, request a new code"},
		{Err: usecase.ErrUnsupportedPurpose, Status: http.StatusBadRequest, Message: "unsupported verification purpose"},
		{Err: usecase.ErrStoreUnavailable, Status: http.StatusServiceUnavailable, Message: "verification store unavailable"},
	}
}

// RespondWithMappedError resolves the provided error against known cases or falls back to a generic response.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	if respondRateLimited(c, err) {
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

// respondRateLimited handles the limiter's refusal with a Retry-After hint.
func respondRateLimited(c *gin.Context, err error) bool {
	var rateErr *usecase.RateLimitExceededError
	if !errors.As(err, &rateErr) {
		return false
	}

	seconds := int(math.Ceil(rateErr.RetryAfter.Seconds()))
	if seconds > 0 {
		c.Header("Retry-After", strconv.Itoa(seconds))
	}
	c.JSON(http.StatusTooManyRequests, NewErrorResponse(c, "too many requests, try again later"))
	return true
}
