package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/compass-coaching/compass-go/internal/application/services"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/logging"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/performance"
	"github.com/compass-coaching/compass-go/internal/presentation/http/middleware"
)

// AuthHandlers contains all authentication-related HTTP handlers
type AuthHandlers struct {
	authService *services.AuthService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewAuthHandlers creates auth handlers with injected dependencies
func NewAuthHandlers(authService *services.AuthService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// PostLogin handles POST /api/v1/auth/login - credential authentication
func (h *AuthHandlers) PostLogin(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("post_login_request")
	defer marker.Complete()

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Auth().Error("Login request JSON binding failed", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	result, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		h.logger.Auth().Warn("Login attempt failed", "duration", time.Since(start))
		respondServiceError(c, err)
		return
	}

	h.logger.Auth().Info("Login successful", "userId", result.User.ID, "duration", time.Since(start))
	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{
		"token": result.Token,
		"user":  result.User,
	})
}

// PostRegister handles POST /api/v1/auth/register - invitation-gated signup
func (h *AuthHandlers) PostRegister(c *gin.Context) {
	marker := h.perfTracker.StartOperation("post_register_request")
	defer marker.Complete()

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if len(req.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
		return
	}

	account, err := h.authService.Register(req.Name, req.Email, req.Password, req.InvitationCode)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusCreated, gin.H{
		"id":      account.ID,
		"email":   account.Email,
		"message": "Account created. Check your inbox to verify your email address.",
	})
}

// PostLogout handles POST /api/v1/auth/logout
func (h *AuthHandlers) PostLogout(c *gin.Context) {
	authenticated, ok := middleware.GetAuthUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	h.authService.Logout(authenticated.ID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetSession handles GET /api/v1/auth/session - resolves the bearer token to
// an auth state. Always 200; an invalid token is a logged-out state, not an
// error.
func (h *AuthHandlers) GetSession(c *gin.Context) {
	token := ""
	if header := c.GetHeader("Authorization"); len(header) > 7 && header[:7] == "Bearer " {
		token = header[7:]
	}

	authenticated := h.authService.ResolveSession(token)
	if authenticated == nil {
		c.JSON(http.StatusOK, gin.H{"user": nil, "status": "LOGGED_OUT"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": authenticated, "status": "LOGGED_IN"})
}

// GetVerifyEmail handles GET /api/v1/auth/verify-email?token=...
func (h *AuthHandlers) GetVerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	if err := h.authService.VerifyEmail(token); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true})
}

// PostResendVerification handles POST /api/v1/auth/resend-verification
func (h *AuthHandlers) PostResendVerification(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.authService.ResendVerification(req.Email); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PostPasswordResetRequest handles POST /api/v1/auth/password-reset/request
func (h *AuthHandlers) PostPasswordResetRequest(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.authService.RequestPasswordReset(req.Email); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PostPasswordReset handles POST /api/v1/auth/password-reset
func (h *AuthHandlers) PostPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if len(req.NewPassword) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
		return
	}

	if err := h.authService.ResetPassword(req.Token, req.NewPassword); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// LoginRequest is the payload for PostLogin
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the payload for PostRegister
type RegisterRequest struct {
	Name           string `json:"name" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required"`
	InvitationCode string `json:"invitationCode" binding:"required"`
}

// EmailRequest is the payload for endpoints keyed by email only
type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// PasswordResetRequest is the payload for PostPasswordReset
type PasswordResetRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}
