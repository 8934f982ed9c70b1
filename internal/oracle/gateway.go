package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"cinematch-llm/internal/llm"
)

var (
	// ErrExhausted indica que la llamada agoto el presupuesto de reintentos.
	ErrExhausted = errors.New("oracle retries exhausted")
	// ErrMalformed indica que la respuesta no contenia la forma JSON esperada.
	ErrMalformed = errors.New("oracle malformed response")
)

// RetryPolicy acota los reintentos de una llamada logica al oracle.
// Es un valor explicito, independiente de cada call site.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy da la politica estandar del servicio: 2 intentos, 2s de espera.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, Backoff: 2 * time.Second}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	return p
}

// Gateway envuelve al LLMClient con reintentos, backoff y parseo estructurado.
// Toda respuesta estructurada sale de aca ya extraida pero sin tipar: los
// callers la coercionan con los helpers de coerce.go.
type Gateway struct {
	client llm.LLMClient
	retry  RetryPolicy
	logger *zap.Logger
	sleep  func(time.Duration)

	mu       sync.Mutex
	calls    int64
	lastCall time.Time
}

// NewGateway construye el gateway con la politica dada.
func NewGateway(client llm.LLMClient, retry RetryPolicy, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		client: client,
		retry:  retry.normalized(),
		logger: logger,
		sleep:  time.Sleep,
	}
}

// Invoke ejecuta una llamada de texto libre con reintentos.
func (g *Gateway) Invoke(ctx context.Context, system, user string) (string, error) {
	return g.invoke(ctx, system, user, nil)
}

// InvokeObject ejecuta la llamada esperando un objeto JSON. Una respuesta sin
// objeto extraible cuenta como intento fallido y se reintenta.
func (g *Gateway) InvokeObject(ctx context.Context, system, user string) (map[string]any, error) {
	var out map[string]any
	_, err := g.invoke(ctx, system, user, func(raw string) error {
		cleaned := CleanResponse(raw)
		obj := ExtractFirstObject(cleaned)
		if obj == "" {
			obj = ExtractFirstObject(raw)
		}
		if obj == "" {
			return fmt.Errorf("%w: no JSON object found", ErrMalformed)
		}
		if err := json.Unmarshal([]byte(obj), &out); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// InvokeList ejecuta la llamada esperando un array JSON.
func (g *Gateway) InvokeList(ctx context.Context, system, user string) ([]any, error) {
	var out []any
	_, err := g.invoke(ctx, system, user, func(raw string) error {
		cleaned := CleanResponse(raw)
		arr := ExtractFirstArray(cleaned)
		if arr == "" {
			arr = ExtractFirstArray(raw)
		}
		if arr == "" {
			return fmt.Errorf("%w: no JSON array found", ErrMalformed)
		}
		if err := json.Unmarshal([]byte(arr), &out); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// invoke corre el loop de reintentos. validate, si esta, forma parte del
// intento: parseo fallido tambien gasta presupuesto.
func (g *Gateway) invoke(ctx context.Context, system, user string, validate func(raw string) error) (string, error) {
	prompt := system
	if user != "" {
		prompt = system + "\n\n" + user
	}

	var lastErr error
	for attempt := 1; attempt <= g.retry.MaxAttempts; attempt++ {
		g.recordCall()

		raw, err := g.client.Generate(ctx, prompt)
		if err == nil && validate != nil {
			err = validate(raw)
		}
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if attempt < g.retry.MaxAttempts {
			g.logger.Warn("oracle call failed, retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", g.retry.MaxAttempts),
				zap.Error(err),
			)
			if g.retry.Backoff > 0 {
				g.sleep(g.retry.Backoff)
			}
		}
	}

	g.logger.Error("oracle call exhausted retries", zap.Int("attempts", g.retry.MaxAttempts), zap.Error(lastErr))
	if errors.Is(lastErr, ErrMalformed) {
		return "", fmt.Errorf("%w: %w", ErrExhausted, lastErr)
	}
	return "", fmt.Errorf("%w after %d attempts: %w", ErrExhausted, g.retry.MaxAttempts, lastErr)
}

func (g *Gateway) recordCall() {
	g.mu.Lock()
	g.calls++
	g.lastCall = time.Now().UTC()
	g.mu.Unlock()
}

// CallCount devuelve cuantos intentos se emitieron en total. Solo observabilidad.
func (g *Gateway) CallCount() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// LastCall devuelve el timestamp del ultimo intento.
func (g *Gateway) LastCall() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastCall
}
