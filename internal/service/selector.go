package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cinematch-llm/internal/domain"
	"cinematch-llm/internal/oracle"
)

// varianceSentinel queda por debajo de cualquier varianza legal, asi el argmax
// nunca reelige una dimension usada mientras quede alguna sin usar.
const varianceSentinel = -1.0

// QuestionSelector elige la siguiente dimension discriminante y le pide al
// oracle una pregunta de eleccion forzada sobre ella.
type QuestionSelector struct {
	gateway *oracle.Gateway
	logger  *zap.Logger
}

func NewQuestionSelector(gateway *oracle.Gateway, logger *zap.Logger) *QuestionSelector {
	return &QuestionSelector{gateway: gateway, logger: logger}
}

// SelectDimension aplica maxima-varianza-con-exclusion sobre los vectores
// vivos. Si todas las dimensiones estan usadas, el set de exclusion se resetea
// dentro de esta misma llamada y se recomputa: el selector cicla
// indefinidamente en vez de frenar. La dimension elegida se registra como
// usada antes de pedir la pregunta.
func (s *QuestionSelector) SelectDimension(sess *domain.Session) domain.TraitDimension {
	variances := dimensionVariances(sess.Scores)

	effective := make([]float64, len(variances))
	copy(effective, variances)
	for _, used := range sess.UsedDimensions {
		if used >= 0 && used < len(effective) {
			effective[used] = varianceSentinel
		}
	}

	best := argmax(effective)
	if effective[best] == varianceSentinel {
		// Todas excluidas: wrap-around. Sin tope de preguntas, a proposito.
		sess.UsedDimensions = nil
		best = argmax(variances)
	}

	sess.UsedDimensions = append(sess.UsedDimensions, best)
	dim, _ := domain.DimensionByID(best)

	s.logger.Info("dimension selected",
		zap.Int("dimension_id", best),
		zap.String("dimension", dim.Name),
		zap.Float64("variance", variances[best]),
	)
	return dim
}

// NextQuestion selecciona dimension y genera la pregunta A/B. Si el oracle
// falla, sustituye la pregunta generica de esa categoria; el flujo nunca se
// queda sin pregunta.
func (s *QuestionSelector) NextQuestion(ctx context.Context, sess *domain.Session) (*domain.PendingQuestion, []string) {
	dim := s.SelectDimension(sess)

	pastQuestions := "none"
	if len(sess.History) > 0 {
		var b strings.Builder
		for _, qa := range sess.History {
			b.WriteString(qa.Question)
			b.WriteString("\n")
		}
		pastQuestions = strings.TrimRight(b.String(), "\n")
	}

	systemPrompt := `You are a friendly movie concierge.
Write questions that probe the user's taste as an "A or B" choice.`
	userPrompt := fmt.Sprintf(`Write one question about the topic %q that contrasts two opposing options, A and B.
Avoid technical jargon; phrase both options as concrete ways of enjoying movies.

Keywords: %s
Questions already asked (do not repeat them):
%s

Output only a JSON object of this form:
{
  "question": "the question text",
  "option_a": "what option A concretely means",
  "option_b": "what option B concretely means"
}`, dim.Topic, dim.Keywords, pastQuestions)

	obj, err := s.gateway.InvokeObject(ctx, systemPrompt, userPrompt)
	if err != nil {
		s.logger.Warn("question generation failed, using fallback",
			zap.Int("dimension_id", dim.ID), zap.Error(err))
		q := fallbackQuestion(dim.ID)
		return &q, []string{fmt.Sprintf("question generation failed for %s, generic question used", dim.Name)}
	}

	var coer oracle.Coercion
	fb := fallbackQuestion(dim.ID)
	pending := &domain.PendingQuestion{
		Question:    coer.String(obj["question"], fb.Question, "question"),
		OptionA:     coer.String(obj["option_a"], fb.OptionA, "option_a"),
		OptionB:     coer.String(obj["option_b"], fb.OptionB, "option_b"),
		DimensionID: dim.ID,
	}
	return pending, coer.Warnings
}

// dimensionVariances calcula la varianza poblacional de cada dimension a
// traves de los vectores sobrevivientes.
func dimensionVariances(vectors []domain.ScoreVector) []float64 {
	variances := make([]float64, domain.DimensionCount)
	if len(vectors) == 0 {
		return variances
	}

	n := float64(len(vectors))
	for d := 0; d < domain.DimensionCount; d++ {
		var sum float64
		for _, v := range vectors {
			sum += float64(v.Scores[d])
		}
		mean := sum / n

		var sq float64
		for _, v := range vectors {
			diff := float64(v.Scores[d]) - mean
			sq += diff * diff
		}
		variances[d] = sq / n
	}
	return variances
}

// argmax devuelve el primer indice del maximo: desempate estable, sin azar.
func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

// fallbackQuestion da la pregunta generica fija de cada categoria de dimension.
func fallbackQuestion(dimensionID int) domain.PendingQuestion {
	questions := map[int]domain.PendingQuestion{
		0: {Question: "What kind of story do you prefer?", OptionA: "a complex story that rewards close attention", OptionB: "a clear story that is easy to follow and satisfying"},
		1: {Question: "How do you feel about intense scenes?", OptionA: "thrilling, high-stakes action and suspense", OptionB: "a calmer pace with room to breathe"},
		2: {Question: "Do you look for a message in movies?", OptionA: "stories that wrestle with justice and social questions", OptionB: "pure entertainment without a lesson"},
		3: {Question: "How should a movie leave you feeling?", OptionA: "comforted, with a reassuring happy ending", OptionB: "challenged, even if the ending is unsettling"},
		4: {Question: "What draws your eye on screen?", OptionA: "striking visuals and a distinctive atmosphere", OptionB: "straightforward filmmaking that serves the story"},
		5: {Question: "What part of a story holds you?", OptionA: "relationships, conversations and human drama", OptionB: "plot, spectacle and momentum"},
		6: {Question: "How real should a movie feel?", OptionA: "grounded stories based on real events", OptionB: "imaginative worlds far from everyday life"},
	}
	q, ok := questions[dimensionID]
	if !ok {
		q = questions[0]
	}
	q.DimensionID = dimensionID
	return q
}
