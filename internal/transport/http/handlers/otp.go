package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bwanakweli4ever/prozlab-backend/internal/core/domain"
	"github.com/bwanakweli4ever/prozlab-backend/internal/core/port"
	"github.com/bwanakweli4ever/prozlab-backend/internal/infra/logger"
	"github.com/bwanakweli4ever/prozlab-backend/internal/repository"
	"github.com/bwanakweli4ever/prozlab-backend/internal/usecase"
)

// OTPHandler exposes the phone code flow: send, verify, resend.
type OTPHandler struct {
	verifier *usecase.VerificationService
	users    port.UserRepository
	logger   *zap.Logger
	isDev    bool
}

// NewOTPHandler constructs the handler. The user repository may be nil.
func NewOTPHandler(verifier *usecase.VerificationService, users port.UserRepository, log *zap.Logger, isDev bool) *OTPHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &OTPHandler{
		verifier: verifier,
		users:    users,
		logger:   log,
		isDev:    isDev,
	}
}

// RegisterRoutes wires the OTP endpoints onto the group.
func (h *OTPHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/send", h.Send)
	group.POST("/resend", h.Resend)
	group.POST("/verify", h.Verify)
}

// Send issues a fresh code for the phone number and dispatches it.
func (h *OTPHandler) Send(c *gin.Context) {
	h.issue(c)
}

// Resend replaces any pending code for the phone number. Issue already
// overwrites the pending record, so this shares the same path.
func (h *OTPHandler) Resend(c *gin.Context) {
	h.issue(c)
}

func (h *OTPHandler) issue(c *gin.Context) {
	var req SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "phone number is required"))
		return
	}

	phone := strings.TrimSpace(req.Phone)

	result, err := h.verifier.Issue(c.Request.Context(), phone, domain.PurposePhoneVerification, "")
	if err != nil {
		RespondWithMappedError(c, err, verificationErrorCases(), http.StatusInternalServerError, "failed to issue code")
		return
	}

	response := IssueResponse{
		Message:    "Verification code sent",
		Identifier: logger.MaskPhone(result.Identifier),
		Delivery:   result.Delivery,
		ExpiresAt:  result.ExpiresAt,
		Dispatched: result.Dispatched,
	}

	// SECURITY: Only expose the raw code in development mode
	if h.isDev {
		if code := strings.TrimSpace(result.Code); code != "" {
			response.DevCode = &code
		}
	}

	c.JSON(http.StatusAccepted, response)
}

// Verify matches the submitted code against the pending record for the phone.
func (h *OTPHandler) Verify(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "phone and code are required"))
		return
	}

	phone := strings.TrimSpace(req.Phone)
	code := strings.TrimSpace(req.Code)

	result, err := h.verifier.ValidateCode(c.Request.Context(), domain.PurposePhoneVerification, phone, code)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCode) {
			h.respondInvalidCode(c, phone)
			return
		}
		RespondWithMappedError(c, err, verificationErrorCases(), http.StatusInternalServerError, "failed to verify code")
		return
	}

	h.markVerified(c, phone, result)

	c.JSON(http.StatusOK, VerifyResponse{
		Message:    "Phone verified",
		Identifier: logger.MaskPhone(result.Identifier),
		VerifiedAt: result.VerifiedAt,
	})
}

func (h *OTPHandler) respondInvalidCode(c *gin.Context, phone string) {
	remaining, err := h.verifier.AttemptsRemaining(c.Request.Context(), domain.PurposePhoneVerification, phone)
	if err != nil {
		remaining = 0
	}

	c.JSON(http.StatusUnprocessableEntity, InvalidCodeResponse{
		Error:             "invalid verification code",
		AttemptsRemaining: remaining,
		TraceID:           c.GetString("trace_id"),
	})
}

func (h *OTPHandler) markVerified(c *gin.Context, phone string, result *usecase.ValidationResult) {
	if h.users == nil {
		return
	}

	err := h.users.MarkPhoneVerified(c.Request.Context(), phone, result.VerifiedAt)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.logger.Warn("mark phone verified failed",
			zap.String("phone", logger.MaskPhone(phone)),
			zap.Error(err),
		)
	}
}
