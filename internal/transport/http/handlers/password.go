package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bwanakweli4ever/prozlab-backend/internal/infra/logger"
	"github.com/bwanakweli4ever/prozlab-backend/internal/usecase"
)

// PasswordHandler exposes the reset flow: forgot (request) and reset (confirm).
type PasswordHandler struct {
	reset  *usecase.PasswordResetService
	logger *zap.Logger
	isDev  bool
}

// NewPasswordHandler constructs the handler.
func NewPasswordHandler(reset *usecase.PasswordResetService, log *zap.Logger, isDev bool) *PasswordHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PasswordHandler{
		reset:  reset,
		logger: log,
		isDev:  isDev,
	}
}

// RegisterRoutes wires the password endpoints onto the group.
func (h *PasswordHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/forgot", h.Forgot)
	group.POST("/reset", h.Reset)
}

// Forgot initiates a password reset. Unknown accounts get the same accepted
// response as known ones to avoid account enumeration.
func (h *PasswordHandler) Forgot(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "a valid email is required"))
		return
	}

	email := strings.TrimSpace(req.Email)

	result, err := h.reset.Request(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, usecase.ErrUserNotFound) {
			c.JSON(http.StatusAccepted, MessageResponse{
				Message: "If the account exists, instructions have been sent",
			})
			return
		}
		RespondWithMappedError(c, err, verificationErrorCases(), http.StatusInternalServerError, "failed to initiate password reset")
		return
	}

	response := IssueResponse{
		Message:    "If the account exists, instructions have been sent",
		Identifier: logger.MaskEmail(result.Identifier),
		Delivery:   result.Delivery,
		ExpiresAt:  result.ExpiresAt,
		Dispatched: result.Dispatched,
	}

	// SECURITY: Only expose the raw token in development mode
	if h.isDev {
		if token := strings.TrimSpace(result.Token); token != "" {
			response.DevToken = &token
		}
	}

	c.JSON(http.StatusAccepted, response)
}

// Reset consumes the token and applies the new password.
func (h *PasswordHandler) Reset(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "token and new password are required"))
		return
	}

	result, err := h.reset.Confirm(c.Request.Context(), strings.TrimSpace(req.Token), req.NewPassword)
	if err != nil {
		cases := append([]ErrorCase{
			{Err: usecase.ErrWeakPassword, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
			{Err: usecase.ErrUserStoreUnavailable, Status: http.StatusServiceUnavailable, Message: "password reset unavailable"},
		}, verificationErrorCases()...)
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to reset password")
		return
	}

	c.JSON(http.StatusOK, ResetConfirmResponse{
		Message:   "Password reset successful",
		UserID:    result.UserID,
		ChangedAt: result.ChangedAt,
	})
}
