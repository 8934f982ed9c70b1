package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"cinematch-llm/internal/domain"
	"cinematch-llm/internal/llm"
	"cinematch-llm/internal/oracle"
)

func newAgentFlowWith(client llm.LLMClient) *AgentFlow {
	g := oracle.NewGateway(client, oracle.RetryPolicy{MaxAttempts: 1}, nil)
	return NewAgentFlow(g, zap.NewNop())
}

func TestAgentStartOpensWithGuidance(t *testing.T) {
	mock := &llm.MockClient{Response: "What draws you to a movie first?"}
	f := newAgentFlowWith(mock)
	sess := domain.NewSession("s1", domain.ModeMultiAgent)

	if err := f.Start(context.Background(), sess, "Interstellar", "Grease"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.Turn != 1 {
		t.Fatalf("expected turn 1, got %d", sess.Turn)
	}
	if len(sess.Chat) != 1 || sess.Chat[0].Role != domain.RoleAssistant {
		t.Fatalf("expected one assistant message, got %+v", sess.Chat)
	}
	if sess.Chat[0].Agent != agentRespondGuidance {
		t.Fatalf("expected guidance agent tag, got %q", sess.Chat[0].Agent)
	}

	// Reiniciar el arranque es invalido.
	if err := f.Start(context.Background(), sess, "Heat", ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestAgentStartRequiresLikedMovie(t *testing.T) {
	f := newAgentFlowWith(&llm.MockClient{})
	sess := domain.NewSession("s1", domain.ModeMultiAgent)

	if err := f.Start(context.Background(), sess, "   ", ""); !errors.Is(err, ErrNoLikedMovies) {
		t.Fatalf("expected ErrNoLikedMovies, got %v", err)
	}
}

func TestAgentStartFallbackQuestion(t *testing.T) {
	f := newAgentFlowWith(&llm.MockClient{Err: errors.New("down")})
	sess := domain.NewSession("s1", domain.ModeMultiAgent)

	if err := f.Start(context.Background(), sess, "Heat", ""); err != nil {
		t.Fatalf("start should absorb the failure: %v", err)
	}
	if len(sess.Chat) != 1 || sess.Chat[0].Content == "" {
		t.Fatal("expected a generic opening question")
	}
	if len(sess.Warnings) == 0 {
		t.Fatal("expected a degradation warning")
	}
}

func TestAgentChatRoutesAskMore(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{
		"opening question",
		`{"action": "ask_more", "reason": "user stated a preference"}`,
		"next guidance question",
	}}
	f := newAgentFlowWith(mock)
	sess := domain.NewSession("s1", domain.ModeMultiAgent)
	f.Start(context.Background(), sess, "Heat", "")

	reply, err := f.Chat(context.Background(), sess, "I like slow movies")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Agent != agentRespondGuidance {
		t.Fatalf("expected guidance agent, got %q", reply.Agent)
	}
	if sess.Turn != 2 {
		t.Fatalf("expected turn 2, got %d", sess.Turn)
	}
	if len(sess.Chat) != 3 {
		t.Fatalf("expected user+assistant appended, got %d messages", len(sess.Chat))
	}
}

func TestAgentChatRoutesAnswer(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{
		"opening question",
		`{"action": "answer", "reason": "the user asked the system"}`,
		"Dune is from 2021.",
	}}
	f := newAgentFlowWith(mock)
	sess := domain.NewSession("s1", domain.ModeMultiAgent)
	f.Start(context.Background(), sess, "Heat", "")

	reply, err := f.Chat(context.Background(), sess, "What year is Dune from?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Agent != agentRespondAnswer {
		t.Fatalf("expected answer agent, got %q", reply.Agent)
	}
	if reply.Content != "Dune is from 2021." {
		t.Fatalf("unexpected content: %q", reply.Content)
	}
}

func TestAgentChatPlannerFailureDefaultsToAskMore(t *testing.T) {
	mock := &llm.MockClient{
		Responses: []string{"opening question", "", "next question"},
		Errs:      []error{nil, errors.New("planner down"), nil},
	}
	f := newAgentFlowWith(mock)
	sess := domain.NewSession("s1", domain.ModeMultiAgent)
	f.Start(context.Background(), sess, "Heat", "")

	reply, err := f.Chat(context.Background(), sess, "something")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Agent != agentRespondGuidance {
		t.Fatalf("planner failure should fall back to guidance, got %q", reply.Agent)
	}
}

func TestAgentChatTurnCap(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{
		"opening",
		`{"action": "ask_more"}`, "q2",
		`{"action": "ask_more"}`, "q3",
		`{"action": "ask_more"}`, "q4",
		`{"action": "ask_more"}`, "q5",
	}}
	f := newAgentFlowWith(mock)
	sess := domain.NewSession("s1", domain.ModeMultiAgent)
	f.Start(context.Background(), sess, "Heat", "")

	for i := 0; i < maxAgentTurns-1; i++ {
		if _, err := f.Chat(context.Background(), sess, "more input"); err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
	}
	if !f.Done(sess) {
		t.Fatalf("expected dialogue done at turn %d", sess.Turn)
	}
	if _, err := f.Chat(context.Background(), sess, "one more"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition past the cap, got %v", err)
	}
}

func TestAgentRecommendCached(t *testing.T) {
	mock := &llm.MockClient{Response: `{"movie_title": "Heat 2", "year": "2030", "reason": "r", "genre": "Crime", "match_point": "m"}`}
	f := newAgentFlowWith(mock)
	sess := domain.NewSession("s1", domain.ModeMultiAgent)
	sess.LikedMovies = []string{"Heat"}
	sess.Turn = maxAgentTurns

	first, err := f.Recommend(context.Background(), sess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.MovieTitle != "Heat 2" {
		t.Fatalf("unexpected title: %q", first.MovieTitle)
	}

	second, err := f.Recommend(context.Background(), sess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.MovieTitle != first.MovieTitle || mock.Calls() != 1 {
		t.Fatalf("expected cached recommendation, %d calls", mock.Calls())
	}
}

func TestAgentRecommendBeforeDone(t *testing.T) {
	f := newAgentFlowWith(&llm.MockClient{})
	sess := domain.NewSession("s1", domain.ModeMultiAgent)
	sess.Turn = 2

	if _, err := f.Recommend(context.Background(), sess); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestAgentRecommendFallback(t *testing.T) {
	f := newAgentFlowWith(&llm.MockClient{Err: errors.New("down")})
	sess := domain.NewSession("s1", domain.ModeMultiAgent)
	sess.LikedMovies = []string{"Heat"}
	sess.Turn = maxAgentTurns

	rec, err := f.Recommend(context.Background(), sess)
	if err != nil {
		t.Fatalf("recommend should absorb the failure: %v", err)
	}
	fb := domain.FallbackRecommendation()
	if rec.MovieTitle != fb.RecommendedMovie {
		t.Fatalf("expected fallback movie, got %q", rec.MovieTitle)
	}
	if len(sess.Warnings) == 0 {
		t.Fatal("expected a degradation warning")
	}
}

func TestChatHistoryText(t *testing.T) {
	chat := []domain.ChatMessage{
		{Role: domain.RoleAssistant, Content: "hola"},
		{Role: domain.RoleUser, Content: "que tal"},
	}
	got := chatHistoryText(chat)
	if !strings.Contains(got, "assistant: hola") || !strings.Contains(got, "user: que tal") {
		t.Fatalf("unexpected history text: %q", got)
	}
}
