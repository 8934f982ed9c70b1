package http

import (
	"math/rand"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"cinematch-llm/internal/domain"
	"cinematch-llm/internal/repository"
	"cinematch-llm/internal/service"
)

// SessionHandler mantiene dependencias para el ciclo de vida de sesiones.
type SessionHandler struct {
	logger *zap.Logger
	store  repository.SessionStore
	jwtSvc *service.JWTService
	flow   *service.FlowController
}

// NewSessionHandler crea una instancia de SessionHandler con dependencias necesarias.
func NewSessionHandler(
	logger *zap.Logger,
	store repository.SessionStore,
	jwtSvc *service.JWTService,
	flow *service.FlowController,
) *SessionHandler {
	return &SessionHandler{
		logger: logger,
		store:  store,
		jwtSvc: jwtSvc,
		flow:   flow,
	}
}

// CreateSession maneja POST /session. El modo se asigna al azar si se omite.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		h.logger.Warn("invalid create session request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	var mode domain.ExperimentMode
	switch req.Mode {
	case "":
		mode = domain.ModeStepMachine
		if rand.Intn(2) == 1 {
			mode = domain.ModeMultiAgent
		}
	case string(domain.ModeStepMachine):
		mode = domain.ModeStepMachine
	case string(domain.ModeMultiAgent):
		mode = domain.ModeMultiAgent
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be A or B"})
		return
	}

	sess := domain.NewSession(uuid.NewString(), mode)
	if !saveSession(c, h.logger, h.store, sess) {
		return
	}

	token, err := h.jwtSvc.GenerateToken(sess.ID)
	if err != nil {
		h.logger.Error("generate session token failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}

	h.logger.Info("session created",
		zap.String("session_id", sess.ID),
		zap.String("mode", string(sess.Mode)),
	)
	c.JSON(http.StatusCreated, gin.H{
		"session_id": sess.ID,
		"mode":       sess.Mode,
		"token":      token,
	})
}

// GetState maneja GET /session/state.
func (h *SessionHandler) GetState(c *gin.Context) {
	sess := loadSession(c, h.logger, h.store)
	if sess == nil {
		return
	}

	view := stateView(sess)
	if !saveSession(c, h.logger, h.store, sess) {
		return
	}
	c.JSON(http.StatusOK, view)
}

// Restart maneja POST /session/restart. Conserva id y modo asignado.
func (h *SessionHandler) Restart(c *gin.Context) {
	sess := loadSession(c, h.logger, h.store)
	if sess == nil {
		return
	}

	h.flow.Restart(sess)
	if !saveSession(c, h.logger, h.store, sess) {
		return
	}
	c.JSON(http.StatusOK, stateView(sess))
}

// stateView arma el snapshot de la sesion y drena avisos pendientes.
func stateView(sess *domain.Session) gin.H {
	view := gin.H{
		"session_id":      sess.ID,
		"mode":            sess.Mode,
		"state":           sess.State,
		"liked_movies":    sess.LikedMovies,
		"disliked_movies": sess.DislikedMovies,
		"population":      len(sess.Personas),
		"questions_asked": len(sess.History),
	}

	if sess.Pending != nil {
		view["pending_question"] = gin.H{
			"question":     sess.Pending.Question,
			"option_a":     sess.Pending.OptionA,
			"option_b":     sess.Pending.OptionB,
			"dimension_id": sess.Pending.DimensionID,
			"choices":      domain.ChoiceTexts(*sess.Pending),
		}
	}
	if sess.FinalProfile != nil {
		view["final_profile"] = sess.FinalProfile
	}
	if sess.Recommendation != nil {
		view["recommendation"] = sess.Recommendation
	}
	if sess.Mode == domain.ModeMultiAgent {
		view["turn"] = sess.Turn
		view["chat"] = sess.Chat
		if sess.AgentRecommendation != nil {
			view["agent_recommendation"] = sess.AgentRecommendation
		}
	}
	if warnings := sess.DrainWarnings(); len(warnings) > 0 {
		view["warnings"] = warnings
	}
	return view
}
