package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cinematch-llm/internal/domain"
	"cinematch-llm/internal/repository"
	"cinematch-llm/internal/service"
)

// AgentHandler mantiene dependencias para el dialogo multi agente.
type AgentHandler struct {
	logger  *zap.Logger
	store   repository.SessionStore
	agents  *service.AgentFlow
	archive repository.SessionArchive
}

// NewAgentHandler crea una instancia de AgentHandler con dependencias necesarias.
func NewAgentHandler(
	logger *zap.Logger,
	store repository.SessionStore,
	agents *service.AgentFlow,
	archive repository.SessionArchive,
) *AgentHandler {
	return &AgentHandler{
		logger:  logger,
		store:   store,
		agents:  agents,
		archive: archive,
	}
}

// Chat maneja POST /session/chat con un turno del usuario.
func (h *AgentHandler) Chat(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid chat request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	sess := loadSession(c, h.logger, h.store)
	if sess == nil {
		return
	}
	if sess.Mode != domain.ModeMultiAgent {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not available in this mode"})
		return
	}

	msg, err := h.agents.Chat(c.Request.Context(), sess, req.Message)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("agent chat failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "chat failed"})
		return
	}

	warnings := sess.DrainWarnings()
	if !saveSession(c, h.logger, h.store, sess) {
		return
	}
	resp := gin.H{
		"message": msg,
		"turn":    sess.Turn,
		"done":    h.agents.Done(sess),
	}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}

// GetRecommendation maneja GET /session/agent-recommendation.
func (h *AgentHandler) GetRecommendation(c *gin.Context) {
	sess := loadSession(c, h.logger, h.store)
	if sess == nil {
		return
	}
	if sess.Mode != domain.ModeMultiAgent {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not available in this mode"})
		return
	}

	rec, err := h.agents.Recommend(c.Request.Context(), sess)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("agent recommendation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "recommendation failed"})
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
