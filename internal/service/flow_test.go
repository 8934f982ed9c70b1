package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"cinematch-llm/internal/domain"
	"cinematch-llm/internal/llm"
	"cinematch-llm/internal/oracle"
)

func newFlowWith(client llm.LLMClient) *FlowController {
	g := oracle.NewGateway(client, oracle.RetryPolicy{MaxAttempts: 1}, nil)
	logger := zap.NewNop()
	return NewFlowController(
		NewPersonaService(g, logger),
		NewScoringService(g, logger),
		NewQuestionSelector(g, logger),
		NewEliminationEngine(g, logger),
		NewRecommender(g, logger),
		logger,
	)
}

const (
	personasJSON = `[
		{"basic_info": "p1", "personality": "x", "values": "y"},
		{"basic_info": "p2", "personality": "x", "values": "y"},
		{"basic_info": "p3", "personality": "x", "values": "y"}
	]`
	questionJSON = `{"question": "A or B?", "option_a": "A side", "option_b": "B side"}`
	qaPairsJSON  = `{"qa_pairs": [{"question": "q", "answer": "a"}]}`
)

func scoreJSON(base int) string {
	return fmt.Sprintf(`{"scores": [%d, 5, 5, 5, 5, 5, 5], "explanations": ["e","e","e","e","e","e","e"]}`, base)
}

func TestSubmitPreferencesValidation(t *testing.T) {
	f := newFlowWith(&llm.MockClient{})
	sess := domain.NewSession("s1", domain.ModeStepMachine)

	if err := f.SubmitPreferences(sess, nil, nil); !errors.Is(err, ErrNoLikedMovies) {
		t.Fatalf("expected ErrNoLikedMovies, got %v", err)
	}
	if err := f.SubmitPreferences(sess, []string{"  ", ""}, nil); !errors.Is(err, ErrNoLikedMovies) {
		t.Fatalf("blank entries: expected ErrNoLikedMovies, got %v", err)
	}

	if err := f.SubmitPreferences(sess, []string{"Heat"}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.State != domain.StateGeneratePersonas {
		t.Fatalf("expected GeneratePersonas state, got %s", sess.State)
	}

	// Repetir el intake fuera de Intake es una transicion invalida.
	if err := f.SubmitPreferences(sess, []string{"Heat"}, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestSubmitPreferencesDedupeAndCaps(t *testing.T) {
	f := newFlowWith(&llm.MockClient{})
	sess := domain.NewSession("s1", domain.ModeStepMachine)

	liked := []string{" Heat ", "Heat", "A1", "A2", "A3", "A4", "A5", "A6", "A7", "A8", "A9", "A10"}
	disliked := []string{"B1", "B1", "B2", "B3", "B4", "B5", "B6"}
	if err := f.SubmitPreferences(sess, liked, disliked); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sess.LikedMovies) != maxLikedMovies {
		t.Fatalf("expected %d liked after cap, got %d", maxLikedMovies, len(sess.LikedMovies))
	}
	if sess.LikedMovies[0] != "Heat" || sess.LikedMovies[1] != "A1" {
		t.Fatalf("expected trimmed dedupe preserving order, got %v", sess.LikedMovies)
	}
	if len(sess.DislikedMovies) != maxDislikedMovies {
		t.Fatalf("expected %d disliked after cap, got %d", maxDislikedMovies, len(sess.DislikedMovies))
	}
}

func TestFullFlowToFollowUp(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{
		personasJSON,
		scoreJSON(1), scoreJSON(9), scoreJSON(5),
		questionJSON,
		`{"eliminated_id": 3, "reason": "inconsistent"}`,
		questionJSON,
		`{"eliminated_id": 1, "reason": "inconsistent"}`,
		recommendationJSON,
		qaPairsJSON,
	}}
	f := newFlowWith(mock)
	sess := domain.NewSession("s1", domain.ModeStepMachine)

	if err := f.SubmitPreferences(sess, []string{"Arrival"}, []string{"Grease"}); err != nil {
		t.Fatalf("preferences: %v", err)
	}
	if err := f.Advance(context.Background(), sess); err != nil {
		t.Fatalf("generate personas: %v", err)
	}
	if sess.State != domain.StateScore || len(sess.Personas) != 3 {
		t.Fatalf("after generation: state %s, %d personas", sess.State, len(sess.Personas))
	}

	if err := f.Advance(context.Background(), sess); err != nil {
		t.Fatalf("score: %v", err)
	}
	if sess.State != domain.StateSelectQuestion || len(sess.Scores) != 3 {
		t.Fatalf("after scoring: state %s, %d vectors", sess.State, len(sess.Scores))
	}

	if err := f.Advance(context.Background(), sess); err != nil {
		t.Fatalf("select question: %v", err)
	}
	if sess.State != domain.StateAwaitAnswer || sess.Pending == nil {
		t.Fatalf("expected a pending question, state %s", sess.State)
	}

	if err := f.SubmitAnswer(context.Background(), sess, domain.AnswerStrongA); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if len(sess.Personas) != 2 {
		t.Fatalf("expected one elimination, got %d personas", len(sess.Personas))
	}
	if sess.State != domain.StateSelectQuestion {
		t.Fatalf("expected loop back to SelectQuestion, got %s", sess.State)
	}
	if len(sess.History) != 1 {
		t.Fatalf("expected answer recorded, got %d entries", len(sess.History))
	}

	if err := f.Advance(context.Background(), sess); err != nil {
		t.Fatalf("second question: %v", err)
	}
	if err := f.SubmitAnswer(context.Background(), sess, domain.AnswerLeanB); err != nil {
		t.Fatalf("second answer: %v", err)
	}

	// Quedo una sola persona: el loop termina y el perfil final queda sellado.
	if sess.State != domain.StateRecommend {
		t.Fatalf("expected Recommend state, got %s", sess.State)
	}
	if sess.FinalProfile == nil || sess.FinalProfile.ProfileID != 2 {
		t.Fatalf("expected persona 2 as final profile, got %+v", sess.FinalProfile)
	}

	if err := f.Advance(context.Background(), sess); err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if sess.State != domain.StateFollowUpQA || sess.Recommendation == nil {
		t.Fatalf("expected follow-up state with recommendation, got %s", sess.State)
	}

	pairs, err := f.FollowUp(context.Background(), sess)
	if err != nil {
		t.Fatalf("follow-up: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
}

func TestAdvanceSkipsQuestionsWithSinglePersona(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{
		`[{"basic_info": "only", "personality": "x", "values": "y"}]`,
		scoreJSON(5),
	}}
	f := newFlowWith(mock)
	sess := domain.NewSession("s1", domain.ModeStepMachine)

	if err := f.SubmitPreferences(sess, []string{"Heat"}, nil); err != nil {
		t.Fatalf("preferences: %v", err)
	}
	f.Advance(context.Background(), sess)
	f.Advance(context.Background(), sess)
	if err := f.Advance(context.Background(), sess); err != nil {
		t.Fatalf("select question: %v", err)
	}

	if sess.State != domain.StateRecommend {
		t.Fatalf("single persona should jump to Recommend, got %s", sess.State)
	}
	if sess.FinalProfile == nil || sess.FinalProfile.ProfileID != 1 {
		t.Fatalf("expected the only persona sealed, got %+v", sess.FinalProfile)
	}
	if len(sess.History) != 0 {
		t.Fatalf("expected no questions asked, got %d", len(sess.History))
	}
}

func TestPersonaFailureUsesFallbackPair(t *testing.T) {
	f := newFlowWith(&llm.MockClient{Err: errors.New("down")})
	sess := domain.NewSession("s1", domain.ModeStepMachine)

	f.SubmitPreferences(sess, []string{"Heat"}, nil)
	if err := f.Advance(context.Background(), sess); err != nil {
		t.Fatalf("advance should absorb the failure: %v", err)
	}

	if len(sess.Personas) != 2 {
		t.Fatalf("expected fallback pair, got %d personas", len(sess.Personas))
	}
	if sess.State != domain.StateScore {
		t.Fatalf("expected Score state, got %s", sess.State)
	}
	if len(sess.Warnings) == 0 {
		t.Fatal("expected a degradation warning on the session")
	}
}

func TestSubmitAnswerValidation(t *testing.T) {
	f := newFlowWith(&llm.MockClient{})
	sess := domain.NewSession("s1", domain.ModeStepMachine)

	err := f.SubmitAnswer(context.Background(), sess, domain.AnswerNeutral)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition out of AwaitAnswer, got %v", err)
	}

	sess.State = domain.StateAwaitAnswer
	sess.Pending = &domain.PendingQuestion{Question: "A or B?", OptionA: "a", OptionB: "b"}
	if err := f.SubmitAnswer(context.Background(), sess, domain.AnswerChoice(7)); !errors.Is(err, ErrInvalidChoice) {
		t.Fatalf("expected ErrInvalidChoice, got %v", err)
	}
	if err := f.SubmitAnswer(context.Background(), sess, domain.AnswerChoice(-1)); !errors.Is(err, ErrInvalidChoice) {
		t.Fatalf("expected ErrInvalidChoice for negative, got %v", err)
	}
}

func TestSubmitAnswerRecordsVerbatimText(t *testing.T) {
	mock := &llm.MockClient{Response: `{"eliminated_id": 1, "reason": "r"}`}
	f := newFlowWith(mock)
	sess := eliminationSession()
	sess.State = domain.StateAwaitAnswer
	sess.Pending = &domain.PendingQuestion{Question: "Pace?", OptionA: "slow burn", OptionB: "fast ride", DimensionID: 1}

	if err := f.SubmitAnswer(context.Background(), sess, domain.AnswerStrongA); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	last := sess.History[len(sess.History)-1]
	want := domain.AnswerStrongA.Text(domain.PendingQuestion{Question: "Pace?", OptionA: "slow burn", OptionB: "fast ride"})
	if last.Answer != want {
		t.Fatalf("expected literal choice text %q, got %q", want, last.Answer)
	}
	if last.DimensionID != 1 {
		t.Fatalf("expected dimension recorded, got %d", last.DimensionID)
	}
	if sess.Pending != nil {
		t.Fatal("expected pending question cleared")
	}
}

func TestRecommendationRequiresTerminalState(t *testing.T) {
	f := newFlowWith(&llm.MockClient{})
	sess := domain.NewSession("s1", domain.ModeStepMachine)

	if _, err := f.Recommendation(context.Background(), sess); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := f.FollowUp(context.Background(), sess); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("follow-up: expected ErrInvalidTransition, got %v", err)
	}
}

func TestRestartPreservesIdentityAndMode(t *testing.T) {
	f := newFlowWith(&llm.MockClient{})
	sess := domain.NewSession("s1", domain.ModeMultiAgent)
	sess.Turn = 3
	sess.Chat = []domain.ChatMessage{{Role: domain.RoleUser, Content: "hola"}}
	created := sess.CreatedAt

	f.Restart(sess)

	if sess.ID != "s1" || sess.Mode != domain.ModeMultiAgent {
		t.Fatalf("restart must keep id and mode, got %s/%s", sess.ID, sess.Mode)
	}
	if !sess.CreatedAt.Equal(created) {
		t.Fatal("restart must keep creation time")
	}
	if sess.Turn != 0 || len(sess.Chat) != 0 {
		t.Fatalf("expected cleared dialogue, turn=%d chat=%d", sess.Turn, len(sess.Chat))
	}
	if sess.State != domain.StateIntake {
		t.Fatalf("expected Intake state, got %s", sess.State)
	}
}
