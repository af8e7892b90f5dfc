package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/compass-coaching/compass-go/internal/application/services"
	"github.com/compass-coaching/compass-go/internal/domain/user"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/logging"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/performance"
	"github.com/compass-coaching/compass-go/internal/presentation/http/middleware"
)

// PreferenceHandlers contains the preference-related HTTP handlers
type PreferenceHandlers struct {
	prefService *services.PreferenceService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewPreferenceHandlers creates preference handlers with injected dependencies
func NewPreferenceHandlers(prefService *services.PreferenceService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *PreferenceHandlers {
	return &PreferenceHandlers{
		prefService: prefService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// GetPreferences handles GET /api/v1/preferences
func (h *PreferenceHandlers) GetPreferences(c *gin.Context) {
	authenticated, ok := middleware.GetAuthUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	marker := h.perfTracker.StartOperation("get_preferences_request")
	defer marker.Complete()

	pref, err := h.prefService.Get(authenticated.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, pref)
}

// PostAcceptTerms handles POST /api/v1/preferences/accept-terms
func (h *PreferenceHandlers) PostAcceptTerms(c *gin.Context) {
	authenticated, ok := middleware.GetAuthUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	pref, err := h.prefService.AcceptTerms(authenticated.ID, time.Now())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, pref)
}

// PutLanguage handles PUT /api/v1/preferences/language
func (h *PreferenceHandlers) PutLanguage(c *gin.Context) {
	authenticated, ok := middleware.GetAuthUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req LanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	pref, err := h.prefService.SetLanguage(authenticated.ID, user.Language(req.Language))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, pref)
}

// PutSensitiveData handles PUT /api/v1/preferences/sensitive-data
func (h *PreferenceHandlers) PutSensitiveData(c *gin.Context) {
	authenticated, ok := middleware.GetAuthUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req SensitiveDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	pref, err := h.prefService.SetSensitiveDataRequirement(authenticated.ID, user.SensitiveDataRequirement(req.Requirement))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, pref)
}

// PostFeedbackAnswers handles POST /api/v1/preferences/feedback
func (h *PreferenceHandlers) PostFeedbackAnswers(c *gin.Context) {
	authenticated, ok := middleware.GetAuthUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req FeedbackAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	pref, err := h.prefService.RecordFeedbackAnswers(authenticated.ID, req.SessionID, req.QuestionKeys)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, pref)
}

// LanguageRequest is the payload for PutLanguage
type LanguageRequest struct {
	Language string `json:"language" binding:"required"`
}

// SensitiveDataRequest is the payload for PutSensitiveData
type SensitiveDataRequest struct {
	Requirement string `json:"sensitivePersonalDataRequirement" binding:"required"`
}

// FeedbackAnswersRequest is the payload for PostFeedbackAnswers
type FeedbackAnswersRequest struct {
	SessionID    int      `json:"sessionId" binding:"required"`
	QuestionKeys []string `json:"questionKeys" binding:"required"`
}
