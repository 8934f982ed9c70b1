package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cinematch-llm/internal/service"
)

const sessionIDKey = "session_id"

// JWTAuthMiddleware valida el token de sesion y deja el id de sesion en el
// contexto. Un token expirado se distingue de uno invalido para que el
// cliente sepa que debe crear una sesion nueva.
func JWTAuthMiddleware(jwtSvc *service.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtSvc == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "jwt not configured"})
			c.Abort()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session token"})
			c.Abort()
			return
		}

		token := strings.TrimSpace(header[len("Bearer "):])
		claims, err := jwtSvc.ParseToken(token)
		if err != nil {
			msg := "invalid session token"
			if errors.Is(err, service.ErrJWTExpired) {
				msg = "session token expired"
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
			c.Abort()
			return
		}

		c.Set(sessionIDKey, claims.SessionID)
		c.Next()
	}
}

// sessionIDFromContext obtiene el id de sesion que dejo el middleware.
func sessionIDFromContext(c *gin.Context) (string, bool) {
	val, ok := c.Get(sessionIDKey)
	if !ok {
		return "", false
	}
	id, ok := val.(string)
	return id, ok && id != ""
}
