package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cinematch-llm/internal/domain"
	"cinematch-llm/internal/oracle"
)

// ScoringService puntua cada persona sobre las dimensiones del modelo de rasgos.
type ScoringService struct {
	gateway *oracle.Gateway
	logger  *zap.Logger
}

func NewScoringService(gateway *oracle.Gateway, logger *zap.Logger) *ScoringService {
	return &ScoringService{gateway: gateway, logger: logger}
}

const scoringSystemPrompt = "You are a psychologist and film analyst. Analyze the persona's personality and values quantitatively."

// ScoreAll emite una llamada por persona, en secuencia. El fallo de una
// persona le asigna el vector neutral y no corta el batch.
func (s *ScoringService) ScoreAll(ctx context.Context, personas []domain.Persona) ([]domain.ScoreVector, []string) {
	var warnings []string
	vectors := make([]domain.ScoreVector, 0, len(personas))

	for _, p := range personas {
		vec, w, err := s.scoreOne(ctx, p)
		if err != nil {
			s.logger.Warn("scoring failed, using neutral vector",
				zap.Int("profile_id", p.ProfileID), zap.Error(err))
			warnings = append(warnings, fmt.Sprintf("persona %d: scoring failed, neutral scores applied", p.ProfileID))
			vectors = append(vectors, domain.DefaultScoreVector(p.ProfileID))
			continue
		}
		warnings = append(warnings, w...)
		vectors = append(vectors, vec)
	}
	return vectors, warnings
}

func (s *ScoringService) scoreOne(ctx context.Context, p domain.Persona) (domain.ScoreVector, []string, error) {
	userPrompt := fmt.Sprintf(`Rate the following user persona on each of the listed psychological dimensions.

Dimensions (rate 1-10):
%s

Persona:
Basic info: %s
Personality: %s
Values: %s

Instructions:
- "scores": a list with one score (1-10) per dimension, in order
- "explanations": a list with the reasoning behind each score

Output only a JSON object with those two keys.`, dimensionList(), p.BasicInfo, p.Personality, p.Values)

	obj, err := s.gateway.InvokeObject(ctx, scoringSystemPrompt, userPrompt)
	if err != nil {
		return domain.ScoreVector{}, nil, err
	}

	vec, coer := normalizeScoreVector(p.ProfileID, obj)
	return vec, coer.Warnings, nil
}

// normalizeScoreVector fuerza la forma invariante del vector: exactamente
// DimensionCount entradas, puntajes enteros en [1,10], explicaciones presentes.
// Faltantes se rellenan con el default neutral; sobrantes se truncan.
func normalizeScoreVector(profileID int, obj map[string]any) (domain.ScoreVector, *oracle.Coercion) {
	var coer oracle.Coercion

	rawScores := coer.List(obj["scores"], "scores")
	scores := make([]int, 0, domain.DimensionCount)
	for _, raw := range rawScores {
		n := coer.Int(raw, domain.DefaultScore, "scores[]")
		scores = append(scores, clampScore(n))
	}

	explanations := coer.StringSlice(obj["explanations"], "explanations")

	for len(scores) < domain.DimensionCount {
		coer.Warnings = append(coer.Warnings, fmt.Sprintf("profile %d: missing score padded", profileID))
		scores = append(scores, domain.DefaultScore)
	}
	for len(explanations) < domain.DimensionCount {
		explanations = append(explanations, domain.DefaultExplanation)
	}
	if len(scores) > domain.DimensionCount {
		scores = scores[:domain.DimensionCount]
	}
	if len(explanations) > domain.DimensionCount {
		explanations = explanations[:domain.DimensionCount]
	}

	return domain.ScoreVector{
		ProfileID:    profileID,
		Scores:       scores,
		Explanations: explanations,
	}, &coer
}

func clampScore(n int) int {
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}

func dimensionList() string {
	var b strings.Builder
	for _, d := range domain.Dimensions() {
		fmt.Fprintf(&b, "%d. %s: %s\n", d.ID+1, d.Name, d.Keywords)
	}
	return strings.TrimRight(b.String(), "\n")
}
