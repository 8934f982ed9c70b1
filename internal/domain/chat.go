package domain

// ChatMessage es una entrada del historial de dialogo del modo multi-agente.
// Agent identifica que agente produjo el mensaje del asistente.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Agent   string `json:"agent,omitempty"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
