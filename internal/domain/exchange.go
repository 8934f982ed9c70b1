package domain

import "fmt"

// QAExchange es una entrada append-only del historial de dialogo. Cada ronda
// de eliminacion posterior lee el historial completo, no solo la ultima.
type QAExchange struct {
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	DimensionID int    `json:"dimension_id"`
}

// EliminationRecord documenta una ronda de eliminacion para auditoria.
// Nunca se muta despues de agregarse.
type EliminationRecord struct {
	EliminatedID int    `json:"eliminated_id"`
	Reason       string `json:"reason"`
	Question     string `json:"question"`
	Answer       string `json:"answer"`
}

// PendingQuestion es la pregunta de eleccion forzada en espera de respuesta.
type PendingQuestion struct {
	Question    string `json:"question"`
	OptionA     string `json:"option_a"`
	OptionB     string `json:"option_b"`
	DimensionID int    `json:"dimension_id"`
}

// AnswerChoice es una de las cinco opciones ordinales de respuesta.
type AnswerChoice int

const (
	AnswerStrongA AnswerChoice = iota
	AnswerLeanA
	AnswerNeutral
	AnswerLeanB
	AnswerStrongB
)

// Valid indica si la eleccion esta dentro de las cinco opciones.
func (c AnswerChoice) Valid() bool {
	return c >= AnswerStrongA && c <= AnswerStrongB
}

// Text renderiza la eleccion con el texto literal de las opciones. Se guarda
// tal cual como respuesta, preservando el wording para el razonamiento de
// eliminacion posterior.
func (c AnswerChoice) Text(q PendingQuestion) string {
	switch c {
	case AnswerStrongA:
		return fmt.Sprintf("A: strongly prefer [%s]", q.OptionA)
	case AnswerLeanA:
		return fmt.Sprintf("leaning towards A (%s)", q.OptionA)
	case AnswerNeutral:
		return "no strong preference / a balance of both"
	case AnswerLeanB:
		return fmt.Sprintf("leaning towards B (%s)", q.OptionB)
	case AnswerStrongB:
		return fmt.Sprintf("B: strongly prefer [%s]", q.OptionB)
	}
	return ""
}

// ChoiceTexts lista las cinco respuestas posibles para una pregunta pendiente,
// en orden ordinal. La capa de presentacion las muestra tal cual.
func ChoiceTexts(q PendingQuestion) []string {
	choices := []AnswerChoice{AnswerStrongA, AnswerLeanA, AnswerNeutral, AnswerLeanB, AnswerStrongB}
	out := make([]string, 0, len(choices))
	for _, c := range choices {
		out = append(out, c.Text(q))
	}
	return out
}
