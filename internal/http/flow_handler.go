package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cinematch-llm/internal/domain"
	"cinematch-llm/internal/repository"
	"cinematch-llm/internal/service"
)

// FlowHandler mantiene dependencias para el flujo de recomendacion paso a paso.
type FlowHandler struct {
	logger  *zap.Logger
	store   repository.SessionStore
	flow    *service.FlowController
	agents  *service.AgentFlow
	archive repository.SessionArchive
}

// NewFlowHandler crea una instancia de FlowHandler con dependencias necesarias.
func NewFlowHandler(
	logger *zap.Logger,
	store repository.SessionStore,
	flow *service.FlowController,
	agents *service.AgentFlow,
	archive repository.SessionArchive,
) *FlowHandler {
	return &FlowHandler{
		logger:  logger,
		store:   store,
		flow:    flow,
		agents:  agents,
		archive: archive,
	}
}

// SubmitPreferences maneja POST /session/preferences para ambos modos.
func (h *FlowHandler) SubmitPreferences(c *gin.Context) {
	var req struct {
		LikedMovies    []string `json:"liked_movies" binding:"required"`
		DislikedMovies []string `json:"disliked_movies"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid preferences request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	sess := loadSession(c, h.logger, h.store)
	if sess == nil {
		return
	}

	var err error
	if sess.Mode == domain.ModeMultiAgent {
		err = h.agents.Start(c.Request.Context(), sess,
			strings.Join(req.LikedMovies, ", "),
			strings.Join(req.DislikedMovies, ", "),
		)
	} else {
		err = h.flow.SubmitPreferences(sess, req.LikedMovies, req.DislikedMovies)
	}
	if err != nil {
		h.writeFlowError(c, err)
		return
	}

	if !saveSession(c, h.logger, h.store, sess) {
		return
	}
	c.JSON(http.StatusOK, stateView(sess))
}

// Advance maneja POST /session/advance. Solo aplica al modo paso a paso.
func (h *FlowHandler) Advance(c *gin.Context) {
	sess := loadSession(c, h.logger, h.store)
	if sess == nil {
		return
	}
	if sess.Mode != domain.ModeStepMachine {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not available in this mode"})
		return
	}

	if err := h.flow.Advance(c.Request.Context(), sess); err != nil {
		h.writeFlowError(c, err)
		return
	}

	maybeArchive(c, h.logger, h.archive, sess)
	if !saveSession(c, h.logger, h.store, sess) {
		return
	}
	c.JSON(http.StatusOK, stateView(sess))
}

// SubmitAnswer maneja POST /session/answer con la opcion elegida.
func (h *FlowHandler) SubmitAnswer(c *gin.Context) {
	var req struct {
		Choice *int `json:"choice" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid answer request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	sess := loadSession(c, h.logger, h.store)
	if sess == nil {
		return
	}
	if sess.Mode != domain.ModeStepMachine {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not available in this mode"})
		return
	}

	if err := h.flow.SubmitAnswer(c.Request.Context(), sess, domain.AnswerChoice(*req.Choice)); err != nil {
		h.writeFlowError(c, err)
		return
	}

	if !saveSession(c, h.logger, h.store, sess) {
		return
	}
	c.JSON(http.StatusOK, stateView(sess))
}

// GetRecommendation maneja GET /session/recommendation.
func (h *FlowHandler) GetRecommendation(c *gin.Context) {
	sess := loadSession(c, h.logger, h.store)
	if sess == nil {
		return
	}
	if sess.Mode != domain.ModeStepMachine {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not available in this mode"})
		return
	}

	rec, err := h.flow.Recommendation(c.Request.Context(), sess)
	if err != nil {
		h.writeFlowError(c, err)
		return
	}

	maybeArchive(c, h.logger, h.archive, sess)
	warnings := sess.DrainWarnings()
	if !saveSession(c, h.logger, h.store, sess) {
		return
	}
	resp := gin.H{"recommendation": rec}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}

// RegenerateRecommendation maneja POST /session/recommendation/regenerate.
func (h *FlowHandler) RegenerateRecommendation(c *gin.Context) {
	sess := loadSession(c, h.logger, h.store)
	if sess == nil {
		return
	}
	if sess.Mode != domain.ModeStepMachine {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not available in this mode"})
		return
	}

	rec, err := h.flow.RegenerateRecommendation(c.Request.Context(), sess)
	if err != nil {
		h.writeFlowError(c, err)
		return
	}

	warnings := sess.DrainWarnings()
	if !saveSession(c, h.logger, h.store, sess) {
		return
	}
	resp := gin.H{"recommendation": rec}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}

// FollowUp maneja GET /session/followup con pares de preguntas y respuestas.
func (h *FlowHandler) FollowUp(c *gin.Context) {
	sess := loadSession(c, h.logger, h.store)
	if sess == nil {
		return
	}
	if sess.Mode != domain.ModeStepMachine {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not available in this mode"})
		return
	}

	pairs, err := h.flow.FollowUp(c.Request.Context(), sess)
	if err != nil {
		h.writeFlowError(c, err)
		return
	}

	warnings := sess.DrainWarnings()
	if !saveSession(c, h.logger, h.store, sess) {
		return
	}
	resp := gin.H{"qa_pairs": pairs}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}

// Report maneja GET /session/report con el detalle de la sesion terminada.
func (h *FlowHandler) Report(c *gin.Context) {
	sess := loadSession(c, h.logger, h.store)
	if sess == nil {
		return
	}

	report := gin.H{
		"session_id":    sess.ID,
		"mode":          sess.Mode,
		"state":         sess.State,
		"history":       sess.History,
		"eliminations":  sess.Eliminations,
		"final_profile": sess.FinalProfile,
	}
	if sess.Recommendation != nil {
		report["recommendation"] = sess.Recommendation
	}
	if sess.AgentRecommendation != nil {
		report["agent_recommendation"] = sess.AgentRecommendation
	}

	if scores, ok := finalScores(sess); ok {
		similar, err := h.archive.SimilarProfiles(c.Request.Context(), scores, 0)
		if err != nil {
			h.logger.Warn("similar profiles lookup failed", zap.Error(err), zap.String("session_id", sess.ID))
		} else if len(similar) > 0 {
			report["similar_profiles"] = similar
		}
	}

	c.JSON(http.StatusOK, report)
}

// finalScores devuelve el vector del perfil final si la sesion llego a uno.
func finalScores(sess *domain.Session) (domain.ScoreVector, bool) {
	if sess.FinalProfile == nil {
		return domain.ScoreVector{}, false
	}
	for _, v := range sess.Scores {
		if v.ProfileID == sess.FinalProfile.ProfileID {
			return v, true
		}
	}
	return domain.ScoreVector{}, false
}

// writeFlowError traduce errores del flujo a respuestas HTTP.
func (h *FlowHandler) writeFlowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNoLikedMovies), errors.Is(err, service.ErrInvalidChoice):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("flow operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "flow operation failed"})
	}
}
