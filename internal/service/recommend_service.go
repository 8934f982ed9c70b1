package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cinematch-llm/internal/domain"
	"cinematch-llm/internal/oracle"
)

// Recommender produce la recomendacion final y las preguntas anticipadas.
type Recommender struct {
	gateway *oracle.Gateway
	logger  *zap.Logger
}

func NewRecommender(gateway *oracle.Gateway, logger *zap.Logger) *Recommender {
	return &Recommender{gateway: gateway, logger: logger}
}

// Recommend genera la recomendacion una sola vez por sesion: reentrar con el
// resultado cacheado lo devuelve sin reinvocar al oracle. Regenerate limpia
// la cache explicitamente.
func (r *Recommender) Recommend(ctx context.Context, sess *domain.Session) (domain.Recommendation, []string) {
	if sess.Recommendation != nil {
		return *sess.Recommendation, nil
	}
	if sess.FinalProfile == nil {
		rec := domain.FallbackRecommendation()
		sess.Recommendation = &rec
		return rec, []string{"no final profile available, default recommendation applied"}
	}

	rec, warnings := r.generate(ctx, sess)
	sess.Recommendation = &rec
	return rec, warnings
}

// Regenerate descarta la recomendacion cacheada y produce una nueva.
func (r *Recommender) Regenerate(ctx context.Context, sess *domain.Session) (domain.Recommendation, []string) {
	sess.Recommendation = nil
	return r.Recommend(ctx, sess)
}

func (r *Recommender) generate(ctx context.Context, sess *domain.Session) (domain.Recommendation, []string) {
	profileJSON, _ := json.Marshal(sess.FinalProfile)

	questions := make([]string, 0, len(sess.History))
	answers := make([]string, 0, len(sess.History))
	for _, qa := range sess.History {
		questions = append(questions, qa.Question)
		answers = append(answers, qa.Answer)
	}

	systemPrompt := `You are a professional movie recommendation expert.
Recommend the single best-fitting movie for the persona and preferences given.`
	userPrompt := fmt.Sprintf(`Recommend one movie to the user based on:

Final confirmed persona:
%s

Movies the user likes: %s
Movies the user dislikes: %s

Dialogue record:
Questions: %s
Answers: %s

Important, about the "reason" field:
- Never mention the persona's predicted age, gender or occupation; a wrong guess alienates the user.
- Explain the fit through personality, values and tone preferences instead.

Output only a JSON object with these fields:
- recommended_movie: the movie title (must be a real movie)
- year: release year
- genre: list of genres
- director: director name
- main_cast: list of the main cast
- reason: detailed reasoning, at least 100 words, no demographic attributes
- match_points: list of at least 3 match points
- streaming_platforms: list of platforms where it can be watched`,
		profileJSON,
		strings.Join(sess.LikedMovies, ", "),
		joinOrNone(sess.DislikedMovies),
		joinOrNone(questions),
		joinOrNone(answers),
	)

	obj, err := r.gateway.InvokeObject(ctx, systemPrompt, userPrompt)
	if err != nil {
		r.logger.Warn("recommendation failed, using fallback", zap.Error(err))
		return domain.FallbackRecommendation(), []string{"recommendation generation failed, default recommendation applied"}
	}

	fb := domain.FallbackRecommendation()
	var coer oracle.Coercion
	rec := domain.Recommendation{
		RecommendedMovie:   coer.String(obj["recommended_movie"], fb.RecommendedMovie, "recommended_movie"),
		Year:               coer.String(obj["year"], "unknown", "year"),
		Genre:              coer.StringSlice(obj["genre"], "genre"),
		Director:           coer.String(obj["director"], "unknown", "director"),
		MainCast:           coer.StringSlice(obj["main_cast"], "main_cast"),
		Reason:             coer.String(obj["reason"], fb.Reason, "reason"),
		MatchPoints:        coer.StringSlice(obj["match_points"], "match_points"),
		StreamingPlatforms: coer.StringSlice(obj["streaming_platforms"], "streaming_platforms"),
	}
	return rec, coer.Warnings
}

// FollowUp predice hasta tres preguntas frecuentes sobre la recomendacion,
// con el set fijo como fallback.
func (r *Recommender) FollowUp(ctx context.Context, sess *domain.Session) ([]domain.QAPair, []string) {
	if len(sess.FollowUps) > 0 {
		return sess.FollowUps, nil
	}

	recJSON, _ := json.Marshal(sess.Recommendation)

	systemPrompt := "You are a film expert who anticipates the questions a user may have about a recommended movie and answers them accurately and helpfully."
	userPrompt := fmt.Sprintf(`Predict the three questions the user is most likely to ask about this recommendation, and answer them:

Recommendation: %s

Output only a JSON object containing:
- qa_pairs: a list of question-answer pairs, each with "question" and "answer" fields

Cover aspects such as critical reception, viewing advice and similar movies.
Each answer should be detailed and at least 50 words long.`, recJSON)

	obj, err := r.gateway.InvokeObject(ctx, systemPrompt, userPrompt)
	if err != nil {
		r.logger.Warn("follow-up generation failed, using fallback", zap.Error(err))
		sess.FollowUps = domain.FallbackQAPairs()
		return sess.FollowUps, []string{"follow-up generation failed, default questions applied"}
	}

	var coer oracle.Coercion
	pairs := make([]domain.QAPair, 0, 3)
	for i, item := range coer.List(obj["qa_pairs"], "qa_pairs") {
		if i >= 3 {
			break
		}
		pair, ok := item.(map[string]any)
		if !ok {
			coer.Warnings = append(coer.Warnings, fmt.Sprintf("qa_pairs[%d]: expected object, got %T", i, item))
			continue
		}
		pairs = append(pairs, domain.QAPair{
			Question: coer.String(pair["question"], "", "question"),
			Answer:   coer.String(pair["answer"], "", "answer"),
		})
	}
	if len(pairs) == 0 {
		pairs = domain.FallbackQAPairs()
		coer.Warnings = append(coer.Warnings, "no usable qa_pairs returned, default questions applied")
	}

	sess.FollowUps = pairs
	return pairs, coer.Warnings
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, "\n")
}
