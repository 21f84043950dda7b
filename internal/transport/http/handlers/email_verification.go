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

// EmailVerificationHandler exposes the email link flow: send, verify, resend.
type EmailVerificationHandler struct {
	verifier *usecase.VerificationService
	users    port.UserRepository
	logger   *zap.Logger
	isDev    bool
}

// NewEmailVerificationHandler constructs the handler. The user repository may
// be nil; verified flags are then not persisted to accounts.
func NewEmailVerificationHandler(verifier *usecase.VerificationService, users port.UserRepository, log *zap.Logger, isDev bool) *EmailVerificationHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &EmailVerificationHandler{
		verifier: verifier,
		users:    users,
		logger:   log,
		isDev:    isDev,
	}
}

// RegisterRoutes wires the email verification endpoints onto the group.
func (h *EmailVerificationHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/send", h.Send)
	group.POST("/resend", h.Resend)
	group.POST("/verify", h.Verify)
	// Link targets arrive as GET with the token in the query string.
	group.GET("/verify", h.Verify)
}

// Send issues a verification token for the email and dispatches the link.
func (h *EmailVerificationHandler) Send(c *gin.Context) {
	h.issue(c, false)
}

// Resend replaces any pending token for the email with a fresh one.
func (h *EmailVerificationHandler) Resend(c *gin.Context) {
	h.issue(c, true)
}

func (h *EmailVerificationHandler) issue(c *gin.Context, resend bool) {
	var req SendEmailVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "a valid email is required"))
		return
	}

	email := strings.TrimSpace(req.Email)
	name := strings.TrimSpace(req.Name)

	var (
		result *usecase.IssueResult
		err    error
	)
	if resend {
		result, err = h.verifier.Resend(c.Request.Context(), email, domain.PurposeEmailVerification, name)
	} else {
		result, err = h.verifier.Issue(c.Request.Context(), email, domain.PurposeEmailVerification, name)
	}
	if err != nil {
		RespondWithMappedError(c, err, verificationErrorCases(), http.StatusInternalServerError, "failed to issue verification")
		return
	}

	response := IssueResponse{
		Message:    "Verification email sent",
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

// Verify consumes a verification token and marks the account's email
// verified when an account store is wired.
func (h *EmailVerificationHandler) Verify(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		var req VerifyEmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "token is required"))
			return
		}
		token = strings.TrimSpace(req.Token)
	}

	result, err := h.verifier.ValidateToken(c.Request.Context(), domain.PurposeEmailVerification, token)
	if err != nil {
		RespondWithMappedError(c, err, verificationErrorCases(), http.StatusInternalServerError, "failed to verify email")
		return
	}

	h.markVerified(c, result.Identifier, result)

	c.JSON(http.StatusOK, VerifyResponse{
		Message:    "Email verified",
		Identifier: logger.MaskEmail(result.Identifier),
		VerifiedAt: result.VerifiedAt,
	})
}

func (h *EmailVerificationHandler) markVerified(c *gin.Context, email string, result *usecase.ValidationResult) {
	if h.users == nil {
		return
	}

	err := h.users.MarkEmailVerified(c.Request.Context(), email, result.VerifiedAt)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.logger.Warn("mark email verified failed",
			zap.String("email", logger.MaskEmail(email)),
			zap.Error(err),
		)
	}
}
