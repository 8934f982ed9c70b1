package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"cinematch-llm/internal/domain"
)

// ArchivedSession es el snapshot persistido de una sesion completada.
type ArchivedSession struct {
	ID               string
	SessionID        string
	Mode             string
	FinalBasicInfo   string
	RecommendedMovie string
	Distance         float64
}

// SessionArchive persiste sesiones completadas para analisis del experimento.
// El vector de puntajes del perfil final se guarda como pgvector, lo que
// habilita la busqueda de perfiles finales similares de sesiones pasadas.
type SessionArchive interface {
	ArchiveCompleted(ctx context.Context, sess *domain.Session) error
	SimilarProfiles(ctx context.Context, scores domain.ScoreVector, k int) ([]ArchivedSession, error)
}

type PgSessionArchive struct {
	pool *pgxpool.Pool
}

func NewPgSessionArchive(pool *pgxpool.Pool) *PgSessionArchive {
	return &PgSessionArchive{pool: pool}
}

func (r *PgSessionArchive) ArchiveCompleted(ctx context.Context, sess *domain.Session) error {
	finalJSON, err := json.Marshal(sess.FinalProfile)
	if err != nil {
		return fmt.Errorf("marshal final profile: %w", err)
	}
	recJSON, err := json.Marshal(sess.Recommendation)
	if err != nil {
		return fmt.Errorf("marshal recommendation: %w", err)
	}
	elimJSON, err := json.Marshal(sess.Eliminations)
	if err != nil {
		return fmt.Errorf("marshal eliminations: %w", err)
	}

	const query = `
		INSERT INTO session_archive (
			id, session_id, mode, final_profile, recommendation, eliminations, final_scores, archived_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.pool.Exec(ctx, query,
		uuid.NewString(),
		sess.ID,
		string(sess.Mode),
		finalJSON,
		recJSON,
		elimJSON,
		finalScoreVector(sess),
		time.Now().UTC(),
	)
	return err
}

func (r *PgSessionArchive) SimilarProfiles(ctx context.Context, scores domain.ScoreVector, k int) ([]ArchivedSession, error) {
	if k <= 0 {
		k = 3
	}
	const query = `
		SELECT id, session_id, mode,
			final_profile->>'basic_info',
			recommendation->>'recommended_movie',
			final_scores <=> $1
		FROM session_archive
		WHERE final_scores IS NOT NULL
		ORDER BY final_scores <=> $1
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, toVector(scores), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ArchivedSession
	for rows.Next() {
		var a ArchivedSession
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Mode, &a.FinalBasicInfo, &a.RecommendedMovie, &a.Distance); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// finalScoreVector busca el vector del perfil final; nil cuando la sesion
// termino sin scoring (ej. modo B).
func finalScoreVector(sess *domain.Session) any {
	if sess.FinalProfile == nil {
		return nil
	}
	for _, v := range sess.Scores {
		if v.ProfileID == sess.FinalProfile.ProfileID {
			return toVector(v)
		}
	}
	return nil
}

func toVector(v domain.ScoreVector) pgvector.Vector {
	out := make([]float32, len(v.Scores))
	for i, s := range v.Scores {
		out[i] = float32(s)
	}
	return pgvector.NewVector(out)
}

// DisabledArchive descarta los snapshots cuando no hay base configurada.
type DisabledArchive struct {
	Reason string
}

func NewDisabledArchive(reason string) *DisabledArchive {
	return &DisabledArchive{Reason: reason}
}

func (a *DisabledArchive) ArchiveCompleted(ctx context.Context, sess *domain.Session) error {
	return nil
}

func (a *DisabledArchive) SimilarProfiles(ctx context.Context, scores domain.ScoreVector, k int) ([]ArchivedSession, error) {
	return nil, nil
}
