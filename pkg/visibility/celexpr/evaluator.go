// Package celexpr evaluates visibility rules written in CEL. Rules see two
// variables: values (the form values) and session (operator attributes).
//
//	values.tier == "G" && session.role != "viewer"
//	has(values.limit) && double(values.limit) > 1000.0
package celexpr

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-backoffice/pkg/visibility"
	"github.com/google/cel-go/cel"
)

// Evaluator compiles each distinct rule once and caches the program.
type Evaluator struct {
	env      *cel.Env
	programs sync.Map
}

var _ visibility.Evaluator = (*Evaluator)(nil)

// New builds an evaluator with the values and session variables declared.
func New() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("values", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("session", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("celexpr: env: %w", err)
	}
	return &Evaluator{env: env}, nil
}

// Eval runs the rule. Empty rules are true; non-boolean results are errors.
func (e *Evaluator) Eval(_ string, rule string, ctx visibility.Context) (bool, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return true, nil
	}
	program, err := e.program(rule)
	if err != nil {
		return false, err
	}
	out, _, err := program.Eval(map[string]any{
		"values":  orEmpty(ctx.Values),
		"session": orEmpty(ctx.Session),
	})
	if err != nil {
		return false, fmt.Errorf("celexpr: eval %q: %w", rule, err)
	}
	visible, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("celexpr: rule %q returned %T, want bool", rule, out.Value())
	}
	return visible, nil
}

// Compile checks a rule without evaluating it, for linting definitions.
func (e *Evaluator) Compile(rule string) error {
	_, err := e.program(strings.TrimSpace(rule))
	return err
}

func (e *Evaluator) program(rule string) (cel.Program, error) {
	if rule == "" {
		return nil, errors.New("celexpr: expression required")
	}
	if cached, ok := e.programs.Load(rule); ok {
		return cached.(cel.Program), nil
	}
	ast, issues := e.env.Compile(rule)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("celexpr: compile %q: %w", rule, issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("celexpr: rule %q has output type %s, want bool", rule, out)
	}
	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("celexpr: program %q: %w", rule, err)
	}
	e.programs.Store(rule, program)
	return program, nil
}

func orEmpty(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	return in
}
