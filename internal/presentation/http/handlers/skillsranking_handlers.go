package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/compass-coaching/compass-go/internal/application/services"
	"github.com/compass-coaching/compass-go/internal/domain/skillsranking"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/logging"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/performance"
	"github.com/compass-coaching/compass-go/internal/presentation/http/middleware"
	"github.com/compass-coaching/compass-go/pkg/config"
)

// SkillsRankingHandlers contains the experiment flow HTTP handlers
type SkillsRankingHandlers struct {
	rankingService *services.SkillsRankingService
	logger         *logging.ChanneledLogger
	perfTracker    *performance.Tracker
}

// NewSkillsRankingHandlers creates skills ranking handlers with injected dependencies
func NewSkillsRankingHandlers(rankingService *services.SkillsRankingService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *SkillsRankingHandlers {
	return &SkillsRankingHandlers{
		rankingService: rankingService,
		logger:         logger,
		perfTracker:    perfTracker,
	}
}

// GetConfig handles GET /api/v1/skills-ranking/config - flow pacing and the
// job platform link the proof-of-value phase points at.
func (h *SkillsRankingHandlers) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, ConfigResponse{
		JobPlatformURL: config.JobPlatformURL,
		TypingDurationsMs: [3]int{
			int(config.TypingDurationFirst / time.Millisecond),
			int(config.TypingDurationSecond / time.Millisecond),
			int(config.TypingDurationThird / time.Millisecond),
		},
		MinThinkingTimeMs: int(config.MinThinkingTime / time.Millisecond),
	})
}

// PostStart handles POST /api/v1/skills-ranking - creates the experiment
// state for a new session with a randomly assigned group.
func (h *SkillsRankingHandlers) PostStart(c *gin.Context) {
	authenticated, ok := middleware.GetAuthUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	marker := h.perfTracker.StartOperation("post_ranking_start_request")
	defer marker.Complete()

	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	state, err := h.rankingService.Start(authenticated.ID, req.SessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusCreated, state)
}

// GetState handles GET /api/v1/skills-ranking/:sessionId
func (h *SkillsRankingHandlers) GetState(c *gin.Context) {
	sessionID, err := strconv.Atoi(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId must be an integer"})
		return
	}

	state, err := h.rankingService.GetState(sessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// PatchState handles PATCH /api/v1/skills-ranking/:sessionId - validates the
// requested transition against the flow graph, appends it, and returns the
// full authoritative snapshot.
func (h *SkillsRankingHandlers) PatchState(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("patch_ranking_state_request")
	defer marker.Complete()

	sessionID, err := strconv.Atoi(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId must be an integer"})
		return
	}

	var req UpdateStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	state, err := h.rankingService.Advance(sessionID, skillsranking.Phase(req.NextPhase))
	if err != nil {
		h.logger.Flow().Warn("Transition rejected", "sessionId", sessionID, "requested", req.NextPhase, "duration", time.Since(start))
		respondServiceError(c, err)
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, state)
}

// ConfigResponse is the body for GetConfig
type ConfigResponse struct {
	JobPlatformURL    string `json:"jobPlatformUrl"`
	TypingDurationsMs [3]int `json:"typingDurationsMs"`
	MinThinkingTimeMs int    `json:"minThinkingTimeMs"`
}

// StartRequest is the payload for PostStart
type StartRequest struct {
	SessionID int `json:"sessionId" binding:"required"`
}

// UpdateStateRequest is the payload for PatchState
type UpdateStateRequest struct {
	NextPhase string `json:"nextPhase" binding:"required"`
}
