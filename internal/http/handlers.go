package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cinematch-llm/internal/domain"
	"cinematch-llm/internal/repository"
)

// loadSession resuelve la sesion del token ya validado por el middleware.
// Escribe la respuesta de error y devuelve nil cuando no puede resolverla.
func loadSession(c *gin.Context, logger *zap.Logger, store repository.SessionStore) *domain.Session {
	sessionID, ok := sessionIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session token"})
		return nil
	}

	sess, err := store.Get(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return nil
		}
		logger.Error("load session failed", zap.Error(err), zap.String("session_id", sessionID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load session"})
		return nil
	}
	return sess
}

// saveSession persiste la sesion mutada; responde 500 si falla.
func saveSession(c *gin.Context, logger *zap.Logger, store repository.SessionStore, sess *domain.Session) bool {
	if err := store.Save(c.Request.Context(), sess); err != nil {
		logger.Error("save session failed", zap.Error(err), zap.String("session_id", sess.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save session"})
		return false
	}
	return true
}

// maybeArchive guarda un snapshot de la sesion completada, una sola vez.
func maybeArchive(c *gin.Context, logger *zap.Logger, archive repository.SessionArchive, sess *domain.Session) {
	if sess.Archived || archive == nil {
		return
	}
	if sess.Recommendation == nil && sess.AgentRecommendation == nil {
		return
	}
	if err := archive.ArchiveCompleted(c.Request.Context(), sess); err != nil {
		logger.Warn("archive session failed", zap.Error(err), zap.String("session_id", sess.ID))
		return
	}
	sess.Archived = true
}
