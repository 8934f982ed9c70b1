package domain

// Persona es un perfil hipotetico de usuario consistente con las preferencias declaradas.
// Se crea una vez por generacion de poblacion y nunca se edita: las personas
// eliminadas se quitan enteras.
type Persona struct {
	ProfileID   int    `json:"profile_id"`
	BasicInfo   string `json:"basic_info"`
	Personality string `json:"personality"`
	Values      string `json:"values"`
}

// ScoreVector guarda los puntajes 1-10 de una persona sobre cada dimension,
// con una explicacion por entrada. Invariante: len(Scores) == len(Explanations)
// == DimensionCount; la normalizacion ocurre en la capa de scoring, aca nunca
// entra un vector malformado.
type ScoreVector struct {
	ProfileID    int      `json:"profile_id"`
	Scores       []int    `json:"scores"`
	Explanations []string `json:"explanations"`
}

const (
	// DefaultScore es el puntaje neutral usado para rellenar entradas faltantes.
	DefaultScore = 5
	// DefaultExplanation marca una explicacion ausente en la respuesta del oracle.
	DefaultExplanation = "no detail"
	// FailedExplanation marca un vector completo generado por fallo del oracle.
	FailedExplanation = "failed"
)

// DefaultScoreVector construye el vector neutral que recibe una persona cuando
// su llamada de scoring fallo. El batch sigue con las demas.
func DefaultScoreVector(profileID int) ScoreVector {
	scores := make([]int, DimensionCount)
	explanations := make([]string, DimensionCount)
	for i := range scores {
		scores[i] = DefaultScore
		explanations[i] = FailedExplanation
	}
	return ScoreVector{ProfileID: profileID, Scores: scores, Explanations: explanations}
}

// FallbackPersonas es la poblacion minima de dos personas que sustituye a la
// generacion cuando el oracle no responde. El flujo nunca se queda sin poblacion.
func FallbackPersonas() []Persona {
	return []Persona{
		{
			ProfileID:   1,
			BasicInfo:   "25-35 years old, male, works in tech, university educated",
			Personality: "Strongly analytical, drawn to complex narratives, values logical rigor",
			Values:      "Cares about thematic depth and narrative structure",
		},
		{
			ProfileID:   2,
			BasicInfo:   "30-40 years old, female, works in culture or education, holds a master's degree",
			Personality: "Emotionally perceptive, attentive to character work and expression",
			Values:      "Cares about emotional resonance and artistic merit",
		},
	}
}
