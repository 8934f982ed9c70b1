package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cinematch-llm/internal/domain"
	"cinematch-llm/internal/oracle"
)

// maxAgentTurns es el tope de turnos de dialogo antes de recomendar.
const maxAgentTurns = 5

const (
	agentRespondGuidance = "Respond (Guidance)"
	agentRespondAnswer   = "Respond (Answer)"

	plannerActionAnswer  = "answer"
	plannerActionAskMore = "ask_more"
)

// PlannerAgent decide si el ultimo mensaje del usuario es una pregunta al
// sistema o informacion de preferencias.
type PlannerAgent struct {
	gateway *oracle.Gateway
}

// Run clasifica el mensaje; ante salida malformada o fallo del oracle cae a
// ask_more, que mantiene el dialogo avanzando.
func (a *PlannerAgent) Run(ctx context.Context, userInput, history string) (string, string) {
	systemPrompt := `You are a Planner Agent managing the flow of a conversation.
Analyze the user's latest message and decide which of two actions to take:
1. "answer": the user is asking the system a question.
2. "ask_more": the user is stating preferences or replying to the previous question.
Output only a JSON object: { "action": "answer" or "ask_more", "reason": "why" }`
	userPrompt := fmt.Sprintf("Conversation history:\n%s\n\nLatest user message: %s", history, userInput)

	obj, err := a.gateway.InvokeObject(ctx, systemPrompt, userPrompt)
	if err != nil {
		return plannerActionAskMore, "planner unavailable, defaulting to asking for more"
	}

	var coer oracle.Coercion
	action := coer.String(obj["action"], plannerActionAskMore, "action")
	if action != plannerActionAnswer && action != plannerActionAskMore {
		action = plannerActionAskMore
	}
	reason := coer.String(obj["reason"], "", "reason")
	return action, reason
}

// RespondAgent produce la siguiente intervencion del asistente: o una pregunta
// guia para acotar gustos, o una respuesta directa a lo que pregunto el usuario.
type RespondAgent struct {
	gateway *oracle.Gateway
}

func (a *RespondAgent) AskGuidance(ctx context.Context, liked, disliked, history string) (string, error) {
	systemPrompt := `You are an interviewer working towards a movie recommendation.
Given the user's liked movie, disliked movie and the conversation so far,
ask exactly one short question that narrows down what to recommend.`
	userPrompt := fmt.Sprintf("Liked movie: %s\nDisliked movie: %s\nConversation so far: %s\nWrite the next question.", liked, emptyAsNone(disliked), history)
	return a.gateway.Invoke(ctx, systemPrompt, userPrompt)
}

func (a *RespondAgent) AnswerUser(ctx context.Context, query, history string) (string, error) {
	systemPrompt := `You are a knowledgeable movie assistant.
Answer the user's question helpfully and concisely, then casually add a short
prompt inviting them to share more about their taste.`
	userPrompt := fmt.Sprintf("Conversation history: %s\nUser's question: %s", history, query)
	return a.gateway.Invoke(ctx, systemPrompt, userPrompt)
}

// RecommendAgent cierra el dialogo con una unica pelicula.
type RecommendAgent struct {
	gateway *oracle.Gateway
}

func (a *RecommendAgent) Run(ctx context.Context, liked, disliked, history string) (domain.AgentRecommendation, []string) {
	systemPrompt := `You are an expert movie concierge.
Weigh the whole conversation plus the liked and disliked movies, and recommend
the single best movie. Output only a JSON object:
{
  "movie_title": "title",
  "year": "release year",
  "reason": "detailed reasoning",
  "genre": "genre",
  "match_point": "the key match point"
}`
	userPrompt := fmt.Sprintf("Liked movie: %s\nDisliked movie: %s\nDialogue log:\n%s\nPick the single best movie.", liked, emptyAsNone(disliked), history)

	obj, err := a.gateway.InvokeObject(ctx, systemPrompt, userPrompt)
	if err != nil {
		fb := domain.FallbackRecommendation()
		return domain.AgentRecommendation{
			MovieTitle: fb.RecommendedMovie,
			Year:       fb.Year,
			Reason:     fb.Reason,
			Genre:      strings.Join(fb.Genre, ", "),
			MatchPoint: fb.MatchPoints[0],
		}, []string{"agent recommendation failed, default recommendation applied"}
	}

	var coer oracle.Coercion
	rec := domain.AgentRecommendation{
		MovieTitle: coer.String(obj["movie_title"], "The Shawshank Redemption", "movie_title"),
		Year:       coer.String(obj["year"], "unknown", "year"),
		Reason:     coer.String(obj["reason"], "a widely loved classic", "reason"),
		Genre:      coer.String(obj["genre"], "Drama", "genre"),
		MatchPoint: coer.String(obj["match_point"], "broad appeal", "match_point"),
	}
	return rec, coer.Warnings
}

// AgentFlow orquesta el modo B: planner, responder y recommender sobre un
// chat libre con tope de turnos.
type AgentFlow struct {
	planner     *PlannerAgent
	respond     *RespondAgent
	recommender *RecommendAgent
	logger      *zap.Logger
}

func NewAgentFlow(gateway *oracle.Gateway, logger *zap.Logger) *AgentFlow {
	return &AgentFlow{
		planner:     &PlannerAgent{gateway: gateway},
		respond:     &RespondAgent{gateway: gateway},
		recommender: &RecommendAgent{gateway: gateway},
		logger:      logger,
	}
}

// Start fija las peliculas de referencia y abre el dialogo con la primera
// pregunta guia.
func (f *AgentFlow) Start(ctx context.Context, sess *domain.Session, liked, disliked string) error {
	if sess.Turn != 0 {
		return fmt.Errorf("%w: agent flow already started", ErrInvalidTransition)
	}
	liked = strings.TrimSpace(liked)
	if liked == "" {
		return ErrNoLikedMovies
	}

	sess.LikedMovies = []string{liked}
	if d := strings.TrimSpace(disliked); d != "" {
		sess.DislikedMovies = []string{d}
	}

	question, err := f.respond.AskGuidance(ctx, liked, disliked, "initial state")
	if err != nil {
		question = "What do you usually look for when choosing a movie: the story, the mood, or something else?"
		sess.AddWarning("guidance generation failed, generic opening question applied")
	}

	sess.Chat = append(sess.Chat, domain.ChatMessage{Role: domain.RoleAssistant, Content: question, Agent: agentRespondGuidance})
	sess.Turn = 1
	return nil
}

// Chat procesa un turno de usuario. Mientras queden turnos, el planner decide
// que agente responde; al agotarse el tope se produce la recomendacion final
// exactamente una vez.
func (f *AgentFlow) Chat(ctx context.Context, sess *domain.Session, input string) (domain.ChatMessage, error) {
	if sess.Turn == 0 {
		return domain.ChatMessage{}, fmt.Errorf("%w: agent flow not started", ErrInvalidTransition)
	}
	if sess.Turn >= maxAgentTurns {
		return domain.ChatMessage{}, fmt.Errorf("%w: dialogue phase is over", ErrInvalidTransition)
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return domain.ChatMessage{}, fmt.Errorf("%w: empty message", ErrInvalidTransition)
	}

	sess.Chat = append(sess.Chat, domain.ChatMessage{Role: domain.RoleUser, Content: input})
	history := chatHistoryText(sess.Chat)

	action, reason := f.planner.Run(ctx, input, history)
	f.logger.Info("planner decision", zap.String("action", action), zap.String("reason", reason))

	var (
		content string
		agent   string
		err     error
	)
	if action == plannerActionAnswer {
		agent = agentRespondAnswer
		content, err = f.respond.AnswerUser(ctx, input, history)
	} else {
		agent = agentRespondGuidance
		liked := strings.Join(sess.LikedMovies, ", ")
		disliked := strings.Join(sess.DislikedMovies, ", ")
		content, err = f.respond.AskGuidance(ctx, liked, disliked, history)
	}
	if err != nil {
		content = "Tell me a bit more about what you enjoy in a movie."
		sess.AddWarning("responder failed, generic reply applied")
	}

	reply := domain.ChatMessage{Role: domain.RoleAssistant, Content: content, Agent: agent}
	sess.Chat = append(sess.Chat, reply)
	sess.Turn++
	return reply, nil
}

// Done informa si la fase de dialogo termino y corresponde recomendar.
func (f *AgentFlow) Done(sess *domain.Session) bool {
	return sess.Turn >= maxAgentTurns
}

// Recommend produce la recomendacion final del modo B, cacheada.
func (f *AgentFlow) Recommend(ctx context.Context, sess *domain.Session) (domain.AgentRecommendation, error) {
	if sess.Turn < maxAgentTurns {
		return domain.AgentRecommendation{}, fmt.Errorf("%w: dialogue phase still running", ErrInvalidTransition)
	}
	if sess.AgentRecommendation != nil {
		return *sess.AgentRecommendation, nil
	}

	liked := strings.Join(sess.LikedMovies, ", ")
	disliked := strings.Join(sess.DislikedMovies, ", ")
	rec, warnings := f.recommender.Run(ctx, liked, disliked, chatHistoryText(sess.Chat))
	for _, w := range warnings {
		sess.AddWarning(w)
	}
	sess.AgentRecommendation = &rec
	return rec, nil
}

func chatHistoryText(chat []domain.ChatMessage) string {
	var b strings.Builder
	for _, m := range chat {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

func emptyAsNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}
