// Package filter selects devices with a CEL expression over the variables id, flow, state
// and name, for example:
//
//	flow == "render" && name.contains("Speaker")
package filter

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/cel-go/cel"
)

// Vars are the values an expression can refer to.
type Vars struct {
	ID    string
	Flow  string
	State string
	Name  string
}

func (v Vars) activation() map[string]any {
	return map[string]any{
		"id":    v.ID,
		"flow":  v.Flow,
		"state": v.State,
		"name":  v.Name,
	}
}

// Filter is a compiled device filter. The zero value and nil match everything.
type Filter struct {
	expr string
	prg  cel.Program
}

// Compile parses and type-checks expr. An empty expression matches every device.
func Compile(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &Filter{}, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("flow", cel.StringType),
		cel.Variable("state", cel.StringType),
		cel.Variable("name", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", expr, issues.Err())
	}
	if !reflect.DeepEqual(ast.OutputType(), cel.BoolType) {
		return nil, fmt.Errorf("filter %q must evaluate to bool, got %s", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build filter %q: %w", expr, err)
	}
	return &Filter{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}

// Empty reports whether the filter matches everything.
func (f *Filter) Empty() bool {
	return f == nil || f.prg == nil
}

// Match evaluates the filter against one device.
func (f *Filter) Match(v Vars) (bool, error) {
	if f.Empty() {
		return true, nil
	}
	out, _, err := f.prg.Eval(v.activation())
	if err != nil {
		return false, fmt.Errorf("failed to evaluate filter %q: %w", f.expr, err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter %q returned %T, want bool", f.expr, out.Value())
	}
	return matched, nil
}
