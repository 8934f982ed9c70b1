package oracle

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Coercion acumula los defaults aplicados al validar una respuesta del oracle.
// Degraded=false equivale a Ok(shape); Degraded=true a Degraded(shape, warnings).
type Coercion struct {
	Warnings []string
}

// Degraded indica si hubo que aplicar algun default o conversion forzada.
func (c *Coercion) Degraded() bool {
	return len(c.Warnings) > 0
}

func (c *Coercion) warnf(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

// Int coerciona v a entero; acepta float64 (JSON numbers), int y strings
// numericos. Si no se puede, devuelve def y registra el aviso.
func (c *Coercion) Int(v any, def int, field string) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	c.warnf("field %q: expected integer, got %T", field, v)
	return def
}

// IntStrict coerciona v a entero pero reporta ok=false en vez de default,
// para callers que ante un id invalido deben ir al fallback (eliminacion).
func IntStrict(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n, true
		}
	}
	return 0, false
}

// String coerciona v a string no vacio, o devuelve def con aviso.
func (c *Coercion) String(v any, def string, field string) string {
	if s, ok := v.(string); ok {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			return trimmed
		}
	}
	c.warnf("field %q: expected non-empty string, got %T", field, v)
	return def
}

// List coerciona v a lista de valores sin tipar. Los objetos {"k": v} que
// algunos modelos devuelven en lugar de arrays se aplanan a sus valores en
// orden de clave.
func (c *Coercion) List(v any, field string) []any {
	switch t := v.(type) {
	case []any:
		return t
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]any, 0, len(t))
		for _, k := range keys {
			out = append(out, t[k])
		}
		c.warnf("field %q: expected list, flattened object values", field)
		return out
	case nil:
		c.warnf("field %q: missing", field)
		return nil
	}
	c.warnf("field %q: expected list, got %T", field, v)
	return nil
}

// StringSlice coerciona v a []string; un string suelto se envuelve en un slice.
func (c *Coercion) StringSlice(v any, field string) []string {
	if s, ok := v.(string); ok {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}
	items := c.List(v, field)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
			continue
		}
		out = append(out, fmt.Sprintf("%v", item))
	}
	return out
}
