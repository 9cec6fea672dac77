// Package txn executes ordered operation batches atomically and aggregates
// their results by SQL verb.
package txn

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/dbexec/internal/core/statement"
	"github.com/satishbabariya/dbexec/pkg/dberr"
)

// StepKind distinguishes literal operations from templates.
type StepKind uint8

const (
	StepLiteral StepKind = iota
	StepTemplate
)

func (k StepKind) String() string {
	if k == StepTemplate {
		return "template"
	}
	return "literal"
}

// Step is a validated batch operation.
type Step struct {
	Index  int
	Kind   StepKind
	SQL    string
	Verb   statement.Verb
	Params []string
	Types  []statement.ParamType

	// Values holds the coerced parameter values of each execution. A
	// literal has a single nil entry.
	Values []map[string]any
}

// Runs returns how many times the step executes.
func (s Step) Runs() int {
	return len(s.Values)
}

// Plan classifies and validates ops without touching a connection.
func Plan(ops []statement.Operation) ([]Step, error) {
	if len(ops) == 0 {
		return nil, dberr.Validation("batch", "transaction batch is empty")
	}

	steps := make([]Step, 0, len(ops))
	for i, op := range ops {
		s, err := planOne(i, op)
		if err != nil {
			return nil, err.WithPayload(op)
		}
		steps = append(steps, s)
	}
	return steps, nil
}

func planOne(i int, op statement.Operation) (Step, *dberr.Error) {
	path := fmt.Sprintf("batch.%d", i)
	hasText := strings.TrimSpace(op.Text) != ""
	hasTemplate := strings.TrimSpace(op.Template) != ""

	switch {
	case hasText && hasTemplate:
		return Step{}, dberr.Validation(path, "operation has both text and template")
	case hasText:
		return Step{
			Index:  i,
			Kind:   StepLiteral,
			SQL:    op.Text,
			Verb:   statement.DetectVerb(op.Text),
			Values: []map[string]any{nil},
		}, nil
	case !hasTemplate:
		return Step{}, dberr.Validation(path, "operation needs text or a template")
	}

	params := op.Params
	if len(params) == 0 {
		params = statement.Placeholders(op.Template)
	}
	if len(params) == 0 {
		return Step{}, dberr.Validation(path, "template has no parameters")
	}
	if name, ok := statement.Unbound(op.Template, params); ok {
		return Step{}, dberr.Validation(path, "missing parameter values %q", name)
	}

	types := op.Types
	if len(types) == 0 {
		types = make([]statement.ParamType, len(params))
	}
	if len(types) != len(params) {
		return Step{}, dberr.Validation(path,
			"%d parameter types declared for %d parameters", len(types), len(params))
	}

	runs := -1
	for j, name := range params {
		if !types[j].Valid() {
			return Step{}, dberr.Validation(path, "parameter %q has unknown type %s", name, types[j])
		}
		values, ok := op.Values[name]
		if !ok {
			return Step{}, dberr.Validation(path, "missing parameter values %q", name)
		}
		switch {
		case len(values) == 0:
			return Step{}, dberr.Validation(path, "parameter %q has no values", name)
		case runs < 0:
			runs = len(values)
		case len(values) != runs:
			return Step{}, dberr.Validation(path,
				"parameter %q has %d values, expected %d", name, len(values), runs)
		}
	}

	executions := make([]map[string]any, runs)
	for r := range executions {
		bound := make(map[string]any, len(params))
		for j, name := range params {
			v, err := types[j].Coerce(op.Values[name][r])
			if err != nil {
				return Step{}, dberr.Validation(path, "parameter %q value %d: %v", name, r, err)
			}
			bound[name] = v
		}
		executions[r] = bound
	}

	return Step{
		Index:  i,
		Kind:   StepTemplate,
		SQL:    op.Template,
		Verb:   statement.DetectVerb(op.Template),
		Params: params,
		Types:  types,
		Values: executions,
	}, nil
}
