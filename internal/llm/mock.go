package llm

import "context"

// MockClient permite tests sin llamar a un LLM real. Si Responses tiene
// entradas, se devuelven en orden (la ultima se repite); si no, devuelve
// Response/Err fijos. Prompts guarda cada prompt recibido.
type MockClient struct {
	Response  string
	Err       error
	Responses []string
	Errs      []error
	Prompts   []string

	calls int
}

func (m *MockClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	i := m.calls
	m.calls++

	if len(m.Errs) > 0 {
		idx := i
		if idx >= len(m.Errs) {
			idx = len(m.Errs) - 1
		}
		if err := m.Errs[idx]; err != nil {
			return "", err
		}
	} else if m.Err != nil {
		return "", m.Err
	}

	if len(m.Responses) > 0 {
		idx := i
		if idx >= len(m.Responses) {
			idx = len(m.Responses) - 1
		}
		return m.Responses[idx], nil
	}
	return m.Response, nil
}

// Calls devuelve cuantas invocaciones recibio el mock.
func (m *MockClient) Calls() int {
	return m.calls
}
