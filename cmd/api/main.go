package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"cinematch-llm/internal/config"
	"cinematch-llm/internal/db"
	apihttp "cinematch-llm/internal/http"
	"cinematch-llm/internal/llm"
	"cinematch-llm/internal/oracle"
	"cinematch-llm/internal/repository"
	"cinematch-llm/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// El archivo de sesiones completadas es opcional: sin DATABASE_URL el
	// servicio funciona igual, solo que sin busqueda de perfiles similares.
	var archive repository.SessionArchive = repository.NewDisabledArchive("database not configured")
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		if err := db.Ping(ctx, pool); err != nil {
			logger.Warn("db ping failed", zap.Error(err))
		}
		if err := db.EnsureSchema(ctx, pool); err != nil {
			logger.Fatal("db schema", zap.Error(err))
		}
		archive = repository.NewPgSessionArchive(pool)
	}

	store := repository.NewMemorySessionStore(cfg.SessionTTL())
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory sessions", zap.Error(err))
		} else {
			store = repository.NewRedisSessionStore(redisClient, cfg.SessionTTL())
		}
		cancel()
	}

	retry := oracle.RetryPolicy{
		MaxAttempts: cfg.LLMMaxAttempts,
		Backoff:     cfg.LLMRetryBackoff(),
	}
	stepClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout(), logger)
	agentClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMAgentTimeout(), logger)
	stepGateway := oracle.NewGateway(stepClient, retry, logger)
	agentGateway := oracle.NewGateway(agentClient, retry, logger)

	personaSvc := service.NewPersonaService(stepGateway, logger)
	scoringSvc := service.NewScoringService(stepGateway, logger)
	selector := service.NewQuestionSelector(stepGateway, logger)
	eliminator := service.NewEliminationEngine(stepGateway, logger)
	recommender := service.NewRecommender(stepGateway, logger)
	flow := service.NewFlowController(personaSvc, scoringSvc, selector, eliminator, recommender, logger)
	agents := service.NewAgentFlow(agentGateway, logger)

	jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.SessionTTL())

	sessionHandler := apihttp.NewSessionHandler(logger, store, jwtSvc, flow)
	flowHandler := apihttp.NewFlowHandler(logger, store, flow, agents, archive)
	agentHandler := apihttp.NewAgentHandler(logger, store, agents, archive)
	router := apihttp.NewRouter(logger, jwtSvc, sessionHandler, flowHandler, agentHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
