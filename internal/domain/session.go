package domain

import "time"

// FlowState es el estado actual de la maquina de pasos del modo A.
type FlowState string

const (
	StateIntake           FlowState = "intake"
	StateGeneratePersonas FlowState = "generate_personas"
	StateScore            FlowState = "score"
	StateSelectQuestion   FlowState = "select_question"
	StateAwaitAnswer      FlowState = "await_answer"
	StateEliminate        FlowState = "eliminate"
	StateRecommend        FlowState = "recommend"
	StateFollowUpQA       FlowState = "follow_up_qa"
)

// ExperimentMode marca a que arquitectura quedo asignada la sesion.
// Sobrevive a los restarts.
type ExperimentMode string

const (
	ModeStepMachine ExperimentMode = "A"
	ModeMultiAgent  ExperimentMode = "B"
)

// Session agrupa todo el estado mutable de una interaccion. No hay estado
// global: cada operacion de los servicios recibe la sesion explicita.
type Session struct {
	ID        string         `json:"id"`
	Mode      ExperimentMode `json:"mode"`
	State     FlowState      `json:"state"`
	CreatedAt time.Time      `json:"created_at"`

	LikedMovies    []string `json:"liked_movies"`
	DislikedMovies []string `json:"disliked_movies"`

	Personas []Persona     `json:"personas"`
	Scores   []ScoreVector `json:"scores"`

	History        []QAExchange        `json:"history"`
	UsedDimensions []int               `json:"used_dimensions"`
	Pending        *PendingQuestion    `json:"pending,omitempty"`
	Eliminations   []EliminationRecord `json:"eliminations"`

	FinalProfile   *Persona        `json:"final_profile,omitempty"`
	Recommendation *Recommendation `json:"recommendation,omitempty"`
	FollowUps      []QAPair        `json:"follow_ups,omitempty"`

	// Modo B: historial de chat y turno actual.
	Chat                []ChatMessage        `json:"chat,omitempty"`
	Turn                int                  `json:"turn"`
	AgentRecommendation *AgentRecommendation `json:"agent_recommendation,omitempty"`

	// Archived evita duplicar el snapshot al completarse la sesion.
	Archived bool `json:"archived"`

	// Avisos transitorios de degradacion (fallbacks aplicados) para la capa
	// de presentacion; se limpian al leerse.
	Warnings []string `json:"warnings,omitempty"`
}

// NewSession crea una sesion en Intake con el modo asignado.
func NewSession(id string, mode ExperimentMode) *Session {
	return &Session{
		ID:        id,
		Mode:      mode,
		State:     StateIntake,
		CreatedAt: time.Now().UTC(),
	}
}

// Reset descarta todas las entidades de la sesion menos el id, el modo de
// experimento y la fecha de creacion.
func (s *Session) Reset() {
	*s = Session{
		ID:        s.ID,
		Mode:      s.Mode,
		State:     StateIntake,
		CreatedAt: s.CreatedAt,
	}
}

// RemovePersona filtra la persona y su vector de puntajes por el mismo id en
// una sola operacion; ningun otro componente observa los sets desparejados.
func (s *Session) RemovePersona(profileID int) {
	personas := s.Personas[:0]
	for _, p := range s.Personas {
		if p.ProfileID != profileID {
			personas = append(personas, p)
		}
	}
	s.Personas = personas

	scores := s.Scores[:0]
	for _, v := range s.Scores {
		if v.ProfileID != profileID {
			scores = append(scores, v)
		}
	}
	s.Scores = scores
}

// IsDimensionUsed consulta el set de exclusion del selector.
func (s *Session) IsDimensionUsed(id int) bool {
	for _, used := range s.UsedDimensions {
		if used == id {
			return true
		}
	}
	return false
}

// AddWarning registra un aviso transitorio de degradacion.
func (s *Session) AddWarning(msg string) {
	s.Warnings = append(s.Warnings, msg)
}

// DrainWarnings devuelve y limpia los avisos acumulados.
func (s *Session) DrainWarnings() []string {
	w := s.Warnings
	s.Warnings = nil
	return w
}
