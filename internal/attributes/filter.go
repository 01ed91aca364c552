package attributes

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Filter is a compiled boolean expression deciding which events are kept.
// The zero Filter, and a nil *Filter, keep everything.
type Filter struct {
	program *vm.Program
	source  string
}

// NewFilter compiles exprStr. An empty string yields a filter that keeps
// every event.
func NewFilter(exprStr string) (*Filter, error) {
	if exprStr == "" {
		return &Filter{}, nil
	}

	program, err := expr.Compile(exprStr, expr.Env(typeEnv), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile filter expression: %w", err)
	}
	return &Filter{program: program, source: exprStr}, nil
}

// Match reports whether env passes the filter.
func (f *Filter) Match(env Env) (bool, error) {
	if f == nil || f.program == nil {
		return true, nil
	}

	output, err := expr.Run(f.program, map[string]any(env))
	if err != nil {
		return false, fmt.Errorf("evaluating filter %q: %w", f.source, err)
	}
	keep, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("filter %q returned %T, want bool", f.source, output)
	}
	return keep, nil
}

func (f *Filter) String() string {
	if f == nil || f.source == "" {
		return "true"
	}
	return f.source
}
