package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cinematch-llm/internal/domain"
)

var (
	// ErrInvalidTransition indica una operacion que el estado actual no admite.
	ErrInvalidTransition = errors.New("invalid flow transition")
	// ErrNoLikedMovies indica un intake sin al menos una pelicula que guste.
	ErrNoLikedMovies = errors.New("at least one liked movie is required")
	// ErrInvalidChoice indica una respuesta fuera de las cinco opciones.
	ErrInvalidChoice = errors.New("answer choice out of range")
)

const (
	maxLikedMovies    = 10
	maxDislikedMovies = 5
)

// FlowController secuencia la maquina de estados del modo A. Cada transicion
// corre sincronicamente hasta completarse; todo el estado vive en la Session
// que recibe cada operacion.
type FlowController struct {
	personas    *PersonaService
	scoring     *ScoringService
	selector    *QuestionSelector
	eliminator  *EliminationEngine
	recommender *Recommender
	logger      *zap.Logger
}

func NewFlowController(
	personas *PersonaService,
	scoring *ScoringService,
	selector *QuestionSelector,
	eliminator *EliminationEngine,
	recommender *Recommender,
	logger *zap.Logger,
) *FlowController {
	return &FlowController{
		personas:    personas,
		scoring:     scoring,
		selector:    selector,
		eliminator:  eliminator,
		recommender: recommender,
		logger:      logger,
	}
}

// SubmitPreferences procesa el intake: al menos una pelicula que guste,
// deduplicacion por match exacto y topes de 10 gustadas / 5 no gustadas,
// truncando en silencio.
func (f *FlowController) SubmitPreferences(sess *domain.Session, liked, disliked []string) error {
	if sess.State != domain.StateIntake {
		return fmt.Errorf("%w: preferences in state %s", ErrInvalidTransition, sess.State)
	}

	likedClean := dedupe(liked)
	if len(likedClean) == 0 {
		return ErrNoLikedMovies
	}
	if len(likedClean) > maxLikedMovies {
		likedClean = likedClean[:maxLikedMovies]
	}

	dislikedClean := dedupe(disliked)
	if len(dislikedClean) > maxDislikedMovies {
		dislikedClean = dislikedClean[:maxDislikedMovies]
	}

	sess.LikedMovies = likedClean
	sess.DislikedMovies = dislikedClean
	sess.State = domain.StateGeneratePersonas
	return nil
}

// Advance ejecuta el trabajo del estado actual y mueve la sesion hasta el
// proximo punto de espera. En AwaitAnswer no hay nada que avanzar: el proximo
// evento es SubmitAnswer.
func (f *FlowController) Advance(ctx context.Context, sess *domain.Session) error {
	switch sess.State {
	case domain.StateGeneratePersonas:
		f.generatePersonas(ctx, sess)
		sess.State = domain.StateScore
		return nil

	case domain.StateScore:
		scores, warnings := f.scoring.ScoreAll(ctx, sess.Personas)
		sess.Scores = scores
		for _, w := range warnings {
			sess.AddWarning(w)
		}
		sess.State = domain.StateSelectQuestion
		return nil

	case domain.StateSelectQuestion:
		// Chequeo de terminacion antes de seleccionar: poblacion de 1 salta
		// directo a la recomendacion.
		if len(sess.Personas) <= 1 {
			f.sealFinalProfile(sess)
			sess.State = domain.StateRecommend
			return nil
		}
		pending, warnings := f.selector.NextQuestion(ctx, sess)
		sess.Pending = pending
		for _, w := range warnings {
			sess.AddWarning(w)
		}
		sess.State = domain.StateAwaitAnswer
		return nil

	case domain.StateRecommend:
		_, warnings := f.recommender.Recommend(ctx, sess)
		for _, w := range warnings {
			sess.AddWarning(w)
		}
		sess.State = domain.StateFollowUpQA
		return nil

	case domain.StateFollowUpQA:
		_, warnings := f.recommender.FollowUp(ctx, sess)
		for _, w := range warnings {
			sess.AddWarning(w)
		}
		return nil
	}

	return fmt.Errorf("%w: advance in state %s", ErrInvalidTransition, sess.State)
}

// SubmitAnswer registra la eleccion ordinal como texto literal, corre la
// ronda de eliminacion y decide si el loop sigue o termina. La poblacion se
// chequea de nuevo inmediatamente despues de eliminar.
func (f *FlowController) SubmitAnswer(ctx context.Context, sess *domain.Session, choice domain.AnswerChoice) error {
	if sess.State != domain.StateAwaitAnswer || sess.Pending == nil {
		return fmt.Errorf("%w: answer in state %s", ErrInvalidTransition, sess.State)
	}
	if !choice.Valid() {
		return ErrInvalidChoice
	}

	pending := *sess.Pending
	sess.History = append(sess.History, domain.QAExchange{
		Question:    pending.Question,
		Answer:      choice.Text(pending),
		DimensionID: pending.DimensionID,
	})
	sess.Pending = nil
	sess.State = domain.StateEliminate

	_, warnings := f.eliminator.Eliminate(ctx, sess)
	for _, w := range warnings {
		sess.AddWarning(w)
	}

	if len(sess.Personas) <= 1 {
		f.sealFinalProfile(sess)
		sess.State = domain.StateRecommend
		return nil
	}
	sess.State = domain.StateSelectQuestion
	return nil
}

// Recommendation garantiza la recomendacion cacheada (idempotente).
func (f *FlowController) Recommendation(ctx context.Context, sess *domain.Session) (domain.Recommendation, error) {
	if sess.State != domain.StateRecommend && sess.State != domain.StateFollowUpQA {
		return domain.Recommendation{}, fmt.Errorf("%w: recommendation in state %s", ErrInvalidTransition, sess.State)
	}
	rec, warnings := f.recommender.Recommend(ctx, sess)
	for _, w := range warnings {
		sess.AddWarning(w)
	}
	return rec, nil
}

// RegenerateRecommendation descarta la cache a pedido explicito del usuario.
func (f *FlowController) RegenerateRecommendation(ctx context.Context, sess *domain.Session) (domain.Recommendation, error) {
	if sess.State != domain.StateRecommend && sess.State != domain.StateFollowUpQA {
		return domain.Recommendation{}, fmt.Errorf("%w: regenerate in state %s", ErrInvalidTransition, sess.State)
	}
	rec, warnings := f.recommender.Regenerate(ctx, sess)
	for _, w := range warnings {
		sess.AddWarning(w)
	}
	return rec, nil
}

// FollowUp devuelve las preguntas anticipadas del paso final.
func (f *FlowController) FollowUp(ctx context.Context, sess *domain.Session) ([]domain.QAPair, error) {
	if sess.State != domain.StateFollowUpQA {
		return nil, fmt.Errorf("%w: follow-up in state %s", ErrInvalidTransition, sess.State)
	}
	pairs, warnings := f.recommender.FollowUp(ctx, sess)
	for _, w := range warnings {
		sess.AddWarning(w)
	}
	return pairs, nil
}

// Restart descarta todo menos el marcador de experimento, desde cualquier estado.
func (f *FlowController) Restart(sess *domain.Session) {
	f.logger.Info("session restarted", zap.String("session_id", sess.ID), zap.String("mode", string(sess.Mode)))
	sess.Reset()
}

func (f *FlowController) generatePersonas(ctx context.Context, sess *domain.Session) {
	personas, warnings, err := f.personas.Generate(ctx, sess.LikedMovies, sess.DislikedMovies)
	if err != nil {
		f.logger.Warn("persona generation failed, using fallback pair", zap.Error(err))
		sess.Personas = domain.FallbackPersonas()
		sess.AddWarning("persona generation failed, sample personas applied")
		return
	}
	sess.Personas = personas
	for _, w := range warnings {
		sess.AddWarning(w)
	}
}

// sealFinalProfile copia la unica persona sobreviviente como perfil final.
func (f *FlowController) sealFinalProfile(sess *domain.Session) {
	if sess.FinalProfile != nil || len(sess.Personas) == 0 {
		return
	}
	final := sess.Personas[0]
	sess.FinalProfile = &final
}

// dedupe limpia espacios y descarta vacios y repetidos por match exacto,
// preservando el orden de entrada.
func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		clean := strings.TrimSpace(item)
		if clean == "" {
			continue
		}
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		out = append(out, clean)
	}
	return out
}
