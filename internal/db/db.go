package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"cinematch-llm/internal/config"
)

// NewPool construye y devuelve un pool de conexiones configurado.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	// Configuración razonable para ambientes iniciales.
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second

	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// Ping verifica conectividad con la base de datos.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	return pool.Ping(ctx)
}

// EnsureSchema crea la tabla de archivo de sesiones si no existe. El vector
// de puntajes finales tiene una entrada por dimension de gusto.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const ddl = `
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS session_archive (
			id UUID PRIMARY KEY,
			session_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			final_profile JSONB,
			recommendation JSONB,
			eliminations JSONB,
			final_scores vector(7),
			archived_at TIMESTAMPTZ NOT NULL
		);
	`
	_, err := pool.Exec(ctx, ddl)
	return err
}
