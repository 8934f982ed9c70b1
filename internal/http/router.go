package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cinematch-llm/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	jwtSvc *service.JWTService,
	sessionH *SessionHandler,
	flowH *FlowHandler,
	agentH *AgentHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.POST("/session", sessionH.CreateSession)

	// Todas las operaciones de sesion requieren el token emitido al crearla.
	auth := r.Group("/session", JWTAuthMiddleware(jwtSvc))
	auth.GET("/state", sessionH.GetState)
	auth.POST("/restart", sessionH.Restart)

	auth.POST("/preferences", flowH.SubmitPreferences)
	auth.POST("/advance", flowH.Advance)
	auth.POST("/answer", flowH.SubmitAnswer)
	auth.GET("/recommendation", flowH.GetRecommendation)
	auth.POST("/recommendation/regenerate", flowH.RegenerateRecommendation)
	auth.GET("/followup", flowH.FollowUp)
	auth.GET("/report", flowH.Report)

	auth.POST("/chat", agentH.Chat)
	auth.GET("/agent-recommendation", agentH.GetRecommendation)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
