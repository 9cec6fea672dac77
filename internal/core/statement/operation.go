package statement

import (
	"encoding/json"
	"fmt"
)

// Operation is one entry of a transaction batch: either a literal (Text) or
// a template executed once per index of its value arrays. Exactly one of
// Text and Template must be set; the orchestrator enforces this.
type Operation struct {
	Text     string           `json:"text,omitempty"`
	Template string           `json:"template,omitempty"`
	Params   []string         `json:"paramNames,omitempty"`
	Types    []ParamType      `json:"paramTypes,omitempty"`
	Values   map[string][]any `json:"-"`
}

// Literal returns an operation executing sql as-is.
func Literal(sql string) Operation {
	return Operation{Text: sql}
}

// Template returns a templated operation with no values bound yet.
func Template(sql string) Operation {
	return Operation{Template: sql, Values: map[string][]any{}}
}

// Bind returns a copy of op with values bound to the named parameter. The
// i-th value of every parameter forms the i-th execution.
func (op Operation) Bind(name string, values ...any) Operation {
	next := make(map[string][]any, len(op.Values)+1)
	for k, v := range op.Values {
		next[k] = v
	}
	next[name] = append([]any(nil), values...)
	op.Values = next
	return op
}

// Named returns a copy of op with an explicit parameter-name list.
func (op Operation) Named(names ...string) Operation {
	op.Params = append([]string(nil), names...)
	return op
}

// Typed returns a copy of op with an explicit parameter-type list.
func (op Operation) Typed(types ...ParamType) Operation {
	op.Types = append([]ParamType(nil), types...)
	return op
}

// SQL returns whichever of Text or Template is set.
func (op Operation) SQL() string {
	if op.Template != "" {
		return op.Template
	}
	return op.Text
}

// MarshalJSON encodes the descriptor form with parameter arrays inlined.
func (op Operation) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(op.Values)+4)
	for name, values := range op.Values {
		out[name] = values
	}
	if op.Text != "" {
		out["text"] = op.Text
	}
	if op.Template != "" {
		out["template"] = op.Template
	}
	if len(op.Params) > 0 {
		out["paramNames"] = op.Params
	}
	if len(op.Types) > 0 {
		out["paramTypes"] = op.Types
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes {"template": ..., "<name>": [v, v, ...], ...}.
func (op *Operation) UnmarshalJSON(data []byte) error {
	type plain Operation
	var head plain
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	extra, err := decodeExtra(data, "text", "template", "paramNames", "paramTypes")
	if err != nil {
		return err
	}

	*op = Operation(head)
	if len(extra) == 0 {
		return nil
	}
	op.Values = make(map[string][]any, len(extra))
	for name, raw := range extra {
		var values []any
		if err := decodeNumber(raw, &values); err != nil {
			return fmt.Errorf("parameter %q must be an array of values: %w", name, err)
		}
		op.Values[name] = values
	}
	return nil
}
