package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"cinematch-llm/internal/llm"
	"cinematch-llm/internal/oracle"
)

func newPersonaWith(client llm.LLMClient) *PersonaService {
	g := oracle.NewGateway(client, oracle.RetryPolicy{MaxAttempts: 1}, nil)
	return NewPersonaService(g, zap.NewNop())
}

func TestGeneratePersonasAssignsDenseIDs(t *testing.T) {
	mock := &llm.MockClient{Response: `[
		{"basic_info": "a", "personality": "b", "values": "c"},
		{"basic_info": "d", "personality": "e", "values": "f"},
		{"basic_info": "g", "personality": "h", "values": "i"}
	]`}
	s := newPersonaWith(mock)

	personas, warnings, err := s.Generate(context.Background(), []string{"Inception"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(personas) != 3 {
		t.Fatalf("expected 3 personas, got %d", len(personas))
	}
	for i, p := range personas {
		if p.ProfileID != i+1 {
			t.Fatalf("persona %d: expected id %d, got %d", i, i+1, p.ProfileID)
		}
	}
	if personas[0].BasicInfo != "a" || personas[2].Values != "i" {
		t.Fatalf("fields not mapped: %+v", personas)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
}

func TestGeneratePersonasTruncatesToFive(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("[")
	for i := 0; i < 8; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`{"basic_info": "x", "personality": "y", "values": "z"}`)
	}
	sb.WriteString("]")

	s := newPersonaWith(&llm.MockClient{Response: sb.String()})
	personas, _, err := s.Generate(context.Background(), []string{"Heat"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(personas) != maxPersonas {
		t.Fatalf("expected %d personas, got %d", maxPersonas, len(personas))
	}
}

func TestGeneratePersonasEmptyArrayIsError(t *testing.T) {
	s := newPersonaWith(&llm.MockClient{Response: "[]"})
	_, _, err := s.Generate(context.Background(), []string{"Heat"}, nil)
	if err == nil {
		t.Fatal("expected error for empty persona array")
	}
	if !errors.Is(err, oracle.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestGeneratePersonasOracleFailure(t *testing.T) {
	s := newPersonaWith(&llm.MockClient{Err: errors.New("down")})
	_, _, err := s.Generate(context.Background(), []string{"Heat"}, nil)
	if !errors.Is(err, oracle.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}

func TestGeneratePersonasDefaultsMissingFields(t *testing.T) {
	mock := &llm.MockClient{Response: `[{"basic_info": "a"}, "not an object"]`}
	s := newPersonaWith(mock)

	personas, warnings, err := s.Generate(context.Background(), []string{"Heat"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(personas) != 2 {
		t.Fatalf("expected 2 personas, got %d", len(personas))
	}
	if personas[0].Personality != "unknown" {
		t.Fatalf("expected unknown default, got %q", personas[0].Personality)
	}
	if personas[1].BasicInfo != "unknown" {
		t.Fatalf("expected unknown default for malformed entry, got %q", personas[1].BasicInfo)
	}
	if len(warnings) == 0 {
		t.Fatal("expected coercion warnings")
	}
}

func TestGeneratePersonasPromptIncludesPreferences(t *testing.T) {
	mock := &llm.MockClient{Response: `[{"basic_info": "a", "personality": "b", "values": "c"}]`}
	s := newPersonaWith(mock)

	_, _, err := s.Generate(context.Background(), []string{"Blade Runner"}, []string{"Grease"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prompt := mock.Prompts[0]
	if !strings.Contains(prompt, "Blade Runner") || !strings.Contains(prompt, "Grease") {
		t.Fatalf("expected both preference lists in prompt, got: %s", prompt)
	}
}
