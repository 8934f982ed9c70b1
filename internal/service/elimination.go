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

// fallbackEliminationReason es la razon registrada cuando el oracle no dio un
// id utilizable y se elimina el primer elemento.
const fallbackEliminationReason = "fallback — oracle unavailable"

// EliminationEngine elimina exactamente una persona por ronda, juzgando la
// consistencia con el historial completo de preguntas y respuestas.
type EliminationEngine struct {
	gateway *oracle.Gateway
	logger  *zap.Logger
}

func NewEliminationEngine(gateway *oracle.Gateway, logger *zap.Logger) *EliminationEngine {
	return &EliminationEngine{gateway: gateway, logger: logger}
}

const eliminationSystemPrompt = "You are an expert in user behavior analysis. Review the entire dialogue history with the user and eliminate the persona whose profile is most inconsistent with the user's answer pattern."

// Eliminate pide al oracle el id a eliminar, valida la coercion a entero y
// remueve persona y vector de puntajes en la misma operacion. Ante cualquier
// fallo cae al primer elemento del orden actual. Siempre remueve exactamente
// una persona y agrega el EliminationRecord antes de devolver el control.
func (e *EliminationEngine) Eliminate(ctx context.Context, sess *domain.Session) (domain.EliminationRecord, []string) {
	var warnings []string

	eliminatedID, reason, ok := e.judge(ctx, sess)
	if !ok || !personaExists(sess.Personas, eliminatedID) {
		eliminatedID = sess.Personas[0].ProfileID
		reason = fallbackEliminationReason
		warnings = append(warnings, "elimination fell back to the first remaining persona")
		e.logger.Warn("elimination fallback applied", zap.Int("eliminated_id", eliminatedID))
	}

	lastQ, lastA := "N/A", "N/A"
	if len(sess.History) > 0 {
		last := sess.History[len(sess.History)-1]
		lastQ, lastA = last.Question, last.Answer
	}

	record := domain.EliminationRecord{
		EliminatedID: eliminatedID,
		Reason:       reason,
		Question:     lastQ,
		Answer:       lastA,
	}

	sess.RemovePersona(eliminatedID)
	sess.Eliminations = append(sess.Eliminations, record)

	e.logger.Info("persona eliminated",
		zap.Int("eliminated_id", eliminatedID),
		zap.Int("remaining", len(sess.Personas)),
	)
	return record, warnings
}

// judge consulta al oracle; ok=false ante fallo de la llamada o id no
// coercionable a entero.
func (e *EliminationEngine) judge(ctx context.Context, sess *domain.Session) (int, string, bool) {
	profilesJSON, err := json.Marshal(sess.Personas)
	if err != nil {
		return 0, "", false
	}

	userPrompt := fmt.Sprintf(`Based on the information below, eliminate the single least consistent persona.

Persona set:
%s

Full dialogue history (every question and answer so far):
%s

Instructions:
- Judge consistency against all of the answers, not only the latest one.
- Pick the persona that contradicts the user's overall pattern the most.

Output only a JSON object with:
- "eliminated_id": the eliminated persona id (must be an integer)
- "reason": why, citing the specific part of the history it contradicts`, profilesJSON, historyText(sess.History))

	obj, err := e.gateway.InvokeObject(ctx, eliminationSystemPrompt, userPrompt)
	if err != nil {
		e.logger.Warn("elimination judgement failed", zap.Error(err))
		return 0, "", false
	}

	id, ok := oracle.IntStrict(obj["eliminated_id"])
	if !ok {
		e.logger.Warn("elimination id not coercible", zap.Any("eliminated_id", obj["eliminated_id"]))
		return 0, "", false
	}

	var coer oracle.Coercion
	reason := coer.String(obj["reason"], "inconsistent with the answer history", "reason")
	return id, reason, true
}

func personaExists(personas []domain.Persona, id int) bool {
	for _, p := range personas {
		if p.ProfileID == id {
			return true
		}
	}
	return false
}

func historyText(history []domain.QAExchange) string {
	if len(history) == 0 {
		return "no history"
	}
	var b strings.Builder
	for i, qa := range history {
		fmt.Fprintf(&b, "Question %d: %s\nAnswer %d: %s\n---\n", i+1, qa.Question, i+1, qa.Answer)
	}
	return strings.TrimRight(b.String(), "\n")
}
