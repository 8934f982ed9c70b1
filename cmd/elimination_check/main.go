package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"cinematch-llm/internal/config"
	"cinematch-llm/internal/domain"
	"cinematch-llm/internal/llm"
	"cinematch-llm/internal/oracle"
	"cinematch-llm/internal/service"
)

const (
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
	colorReset = "\033[0m"
)

// Archetype describe un espectador simulado que responde las preguntas A/B.
type Archetype struct {
	Name        string
	Description string
	Liked       []string
	Disliked    []string
}

type answerResponse struct {
	Choice int    `json:"choice"`
	Reason string `json:"reason"`
}

type judgeResponse struct {
	Reasoning        string `json:"reasoning"`
	ConsistencyScore int    `json:"consistency_score"`
	EliminationScore int    `json:"elimination_score"`
}

func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	client := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout(), logger)
	gateway := oracle.NewGateway(client, oracle.DefaultRetryPolicy(), logger)

	personaSvc := service.NewPersonaService(gateway, logger)
	scoringSvc := service.NewScoringService(gateway, logger)
	selector := service.NewQuestionSelector(gateway, logger)
	eliminator := service.NewEliminationEngine(gateway, logger)
	recommender := service.NewRecommender(gateway, logger)
	flow := service.NewFlowController(personaSvc, scoringSvc, selector, eliminator, recommender, logger)

	archetypes := []Archetype{
		{
			Name:        "Cinefilo de autor",
			Description: "Prefiere cine lento, contemplativo y ambiguo. Evita blockbusters y finales cerrados.",
			Liked:       []string{"Stalker", "In the Mood for Love", "Drive My Car"},
			Disliked:    []string{"Fast & Furious 9", "Transformers"},
		},
		{
			Name:        "Fan de accion",
			Description: "Busca ritmo alto, espectaculo y heroes claros. Se aburre con dramas largos.",
			Liked:       []string{"Mad Max: Fury Road", "John Wick", "Top Gun: Maverick"},
			Disliked:    []string{"The Tree of Life"},
		},
		{
			Name:        "Espectador social",
			Description: "Ve peliculas para comentarlas con amigos. Prefiere comedias y dramas accesibles con temas actuales.",
			Liked:       []string{"Barbie", "Knives Out", "Parasite"},
			Disliked:    []string{"Tenet"},
		},
	}

	var totalCons, totalElim int
	for _, arc := range archetypes {
		fmt.Printf("%s[Arquetipo]%s %s\n", colorCyan, colorReset, arc.Name)

		sess, err := runFlow(ctx, flow, client, arc)
		if err != nil {
			log.Fatalf("flow run failed: %v", err)
		}

		fmt.Printf("%s[Resultado]%s %s -> %s (%s)\n",
			colorGreen, colorReset,
			sess.FinalProfile.BasicInfo,
			sess.Recommendation.RecommendedMovie,
			sess.Recommendation.Year,
		)

		jr, err := evaluateRun(ctx, client, arc, sess)
		if err != nil {
			log.Fatalf("judge failed: %v", err)
		}

		fmt.Printf("%sJuez%s %q\n", colorCyan, colorReset, jr.Reasoning)
		fmt.Printf("Scores: Consistencia %d/5 | Eliminaciones %d/5\n\n", jr.ConsistencyScore, jr.EliminationScore)

		totalCons += jr.ConsistencyScore
		totalElim += jr.EliminationScore
	}

	n := len(archetypes)
	fmt.Println("==== Promedios ====")
	fmt.Printf("Consistencia: %.2f/5 | Eliminaciones: %.2f/5 | Llamadas LLM: %d\n",
		float64(totalCons)/float64(n), float64(totalElim)/float64(n), gateway.CallCount())
}

// runFlow conduce una sesion completa respondiendo con el arquetipo simulado.
func runFlow(ctx context.Context, flow *service.FlowController, answerer llm.LLMClient, arc Archetype) (*domain.Session, error) {
	sess := domain.NewSession(uuid.NewString(), domain.ModeStepMachine)
	if err := flow.SubmitPreferences(sess, arc.Liked, arc.Disliked); err != nil {
		return nil, err
	}

	for sess.State != domain.StateFollowUpQA {
		if sess.State == domain.StateAwaitAnswer {
			choice, err := chooseAnswer(ctx, answerer, arc, *sess.Pending)
			if err != nil {
				return nil, err
			}
			if err := flow.SubmitAnswer(ctx, sess, choice); err != nil {
				return nil, err
			}
			continue
		}
		if err := flow.Advance(ctx, sess); err != nil {
			return nil, err
		}
	}

	if _, err := flow.Recommendation(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func chooseAnswer(ctx context.Context, answerer llm.LLMClient, arc Archetype, q domain.PendingQuestion) (domain.AnswerChoice, error) {
	prompt := fmt.Sprintf(`You are role-playing a movie viewer with this profile: %s

Question: %s
The available answers are:
%s

Pick the answer this viewer would give.

Respond ONLY with JSON:
{"choice": <int 0-4>, "reason": "<one sentence>"}`,
		arc.Description, q.Question, numberedChoices(q))

	raw, err := answerer.Generate(ctx, prompt)
	if err != nil {
		return 0, err
	}

	obj := oracle.ExtractFirstObject(oracle.CleanResponse(raw))
	if obj == "" {
		return 0, fmt.Errorf("no json object in answer (raw: %s)", raw)
	}
	var ar answerResponse
	if err := json.Unmarshal([]byte(obj), &ar); err != nil {
		return 0, fmt.Errorf("parse answer json: %w", err)
	}

	choice := domain.AnswerChoice(ar.Choice)
	if !choice.Valid() {
		choice = domain.AnswerNeutral
	}
	return choice, nil
}

func evaluateRun(ctx context.Context, judge llm.LLMClient, arc Archetype, sess *domain.Session) (judgeResponse, error) {
	var sb strings.Builder
	for i, e := range sess.Eliminations {
		fmt.Fprintf(&sb, "Elimination %d: profile %d removed. Reason: %s\n", i+1, e.EliminatedID, e.Reason)
	}

	prompt := fmt.Sprintf(`Act as an expert evaluator of recommendation systems. A simulated viewer with this profile answered a series of A/B preference questions:

Viewer profile: %s
Final surviving profile: %s
Recommended movie: %s (%s)
Recommendation reason: %s

Elimination log:
%s
Evaluate on two dimensions (scale 1-5):
1. Consistency: does the final profile and recommendation fit the viewer profile? (1=unrelated, 5=excellent fit).
2. Eliminations: are the elimination reasons grounded in the answers rather than arbitrary? (1=arbitrary, 5=well grounded).

MANDATORY JSON OUTPUT FORMAT:
{
  "reasoning": "brief explanation...",
  "consistency_score": <int 1-5>,
  "elimination_score": <int 1-5>
}`,
		arc.Description,
		sess.FinalProfile.BasicInfo,
		sess.Recommendation.RecommendedMovie,
		sess.Recommendation.Year,
		sess.Recommendation.Reason,
		sb.String(),
	)

	raw, err := judge.Generate(ctx, prompt)
	if err != nil {
		return judgeResponse{}, err
	}

	obj := oracle.ExtractFirstObject(oracle.CleanResponse(raw))
	if obj == "" {
		return judgeResponse{}, fmt.Errorf("no json object in judge response (raw: %s)", raw)
	}
	var jr judgeResponse
	if err := json.Unmarshal([]byte(obj), &jr); err != nil {
		return judgeResponse{}, fmt.Errorf("parse judge json: %w", err)
	}
	return jr, nil
}

func numberedChoices(q domain.PendingQuestion) string {
	var sb strings.Builder
	for i, text := range domain.ChoiceTexts(q) {
		fmt.Fprintf(&sb, "[%d] %s\n", i, text)
	}
	return sb.String()
}
