package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cinematch-llm/internal/domain"
	"cinematch-llm/internal/oracle"
)

// maxPersonas acota la poblacion generada: min(5, lo que devuelva el oracle).
const maxPersonas = 5

// PersonaService genera la poblacion inicial de personas candidatas.
type PersonaService struct {
	gateway *oracle.Gateway
	logger  *zap.Logger
}

func NewPersonaService(gateway *oracle.Gateway, logger *zap.Logger) *PersonaService {
	return &PersonaService{gateway: gateway, logger: logger}
}

const personaSystemPrompt = `You are a seasoned film enthusiast and an expert in user behavior analysis. Based on the user's movie preferences, generate 5 plausible user personas.
Each persona must include:
1. Basic user information (age range, gender, occupation, education)
2. A personality analysis
3. Values and aesthetic preferences

Make the personas diverse, covering different kinds of possible people.`

// Generate pide al oracle una lista de personas y les asigna ids densos 1..n.
// Un array vacio se trata como fallo: el caller sustituye la poblacion fallback.
func (s *PersonaService) Generate(ctx context.Context, liked, disliked []string) ([]domain.Persona, []string, error) {
	userPrompt := fmt.Sprintf(`Movies the user likes:
%s
Movies the user dislikes:
%s

Output a JSON array where every persona object has exactly these three keys:
1. "basic_info": predicted basic user information
2. "personality": predicted personality analysis
3. "values": predicted values and aesthetic preferences

Return only the JSON array, with no surrounding text.`, bulletList(liked), bulletListOrNone(disliked))

	items, err := s.gateway.InvokeList(ctx, personaSystemPrompt, userPrompt)
	if err != nil {
		return nil, nil, fmt.Errorf("generate personas: %w", err)
	}
	if len(items) == 0 {
		return nil, nil, fmt.Errorf("generate personas: %w: empty array", oracle.ErrMalformed)
	}

	var coer oracle.Coercion
	if len(items) > maxPersonas {
		items = items[:maxPersonas]
	}

	personas := make([]domain.Persona, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			coer.Warnings = append(coer.Warnings, fmt.Sprintf("persona %d: expected object, got %T", i+1, item))
			obj = map[string]any{}
		}
		personas = append(personas, domain.Persona{
			ProfileID:   i + 1,
			BasicInfo:   coer.String(obj["basic_info"], "unknown", "basic_info"),
			Personality: coer.String(obj["personality"], "unknown", "personality"),
			Values:      coer.String(obj["values"], "unknown", "values"),
		})
	}

	if coer.Degraded() {
		s.logger.Warn("persona generation degraded", zap.Strings("warnings", coer.Warnings))
	}
	return personas, coer.Warnings, nil
}

func bulletList(items []string) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func bulletListOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return bulletList(items)
}
