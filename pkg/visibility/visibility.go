// Package visibility decides which fields of a form are shown. Rules are
// expressions stored on the field definition (visibleWhen) and evaluated
// against the current values and the operator session.
package visibility

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-backoffice/pkg/model"
)

// Evaluator determines whether a field should be visible based on a rule
// string and the evaluation context.
type Evaluator interface {
	Eval(fieldCode, rule string, ctx Context) (bool, error)
}

// Context provides inputs to an Evaluator. Values holds the current form
// values; Session carries operator attributes such as role and locale.
type Context struct {
	Values  map[string]any
	Session map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(fieldCode, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(fieldCode, rule string, ctx Context) (bool, error) {
	return fn(fieldCode, rule, ctx)
}

// Resolve evaluates every field rule of the form. Fields without a rule are
// visible. A rule that fails to evaluate leaves its field visible and the
// failure is reported in the joined error.
func Resolve(form model.FormDefinition, eval Evaluator, ctx Context) (map[string]bool, error) {
	out := make(map[string]bool, len(form.Fields))
	var errs []error
	for _, field := range form.Fields {
		rule := strings.TrimSpace(field.VisibleWhen)
		if rule == "" || eval == nil {
			out[field.Code] = true
			continue
		}
		visible, err := eval.Eval(field.Code, rule, ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("visibility: field %q: %w", field.Code, err))
			visible = true
		}
		out[field.Code] = visible
	}
	return out, errors.Join(errs...)
}
