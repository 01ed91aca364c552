package attributes

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mrzor/endpoint-sec/internal/event"
)

// Env is the evaluation environment of one message. It owns its data and
// stays usable after the delivery scope ends.
type Env map[string]any

// typeEnv is the environment expressions are type-checked against.
var typeEnv = map[string]any{
	"kind":    "",
	"event":   map[string]any{},
	"process": map[string]any{},
	"message": map[string]any{},
}

// NewEnv projects m into an Env. It must be called inside the delivery
// scope. A missing process or an unknown kind yields an empty map.
func NewEnv(m event.Message) Env {
	msg := m.Fields()

	proc, _ := msg["process"].(map[string]any)
	if proc == nil {
		proc = map[string]any{}
	}
	ev, _ := msg["event"].(map[string]any)
	if ev == nil {
		ev = map[string]any{}
	}
	delete(msg, "process")
	delete(msg, "event")

	kind, _ := msg["event_type"].(string)
	return Env{
		"kind":    kind,
		"event":   ev,
		"process": proc,
		"message": msg,
	}
}

// Kind returns the short kind name.
func (e Env) Kind() string {
	k, _ := e["kind"].(string)
	return k
}

// Flatten returns the environment as dotted keys, e.g.
// "process.executable.path", the shape Sigma rules and span attributes use.
func (e Env) Flatten() map[string]any {
	out := make(map[string]any)
	flatten(out, "", map[string]any(e))
	return out
}

func flatten(out map[string]any, prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flatten(out, key, nested)
			continue
		}
		out[key] = v
	}
}

// KeyValues returns the flattened environment as sorted span attributes
// under prefix.
func (e Env) KeyValues(prefix string) []attribute.KeyValue {
	flat := e.Flatten()
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		if flat[k] == nil {
			continue
		}
		attrs = append(attrs, KeyValue(prefix+k, flat[k]))
	}
	return attrs
}

// KeyValue converts a projected value to a typed span attribute.
func KeyValue(key string, v any) attribute.KeyValue {
	switch x := v.(type) {
	case string:
		return attribute.String(key, x)
	case bool:
		return attribute.Bool(key, x)
	case time.Time:
		return attribute.String(key, x.UTC().Format(time.RFC3339Nano))
	}

	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		return attribute.Int64(key, rv.Int())
	case rv.CanUint() && rv.Uint() <= 1<<63-1:
		return attribute.Int64(key, int64(rv.Uint())) //nolint:gosec // Bounds checked above
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
