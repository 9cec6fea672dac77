package statement

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/satishbabariya/dbexec/pkg/dberr"
)

const validatorPath = "statement"

// allowedVerbs are the leading keywords accepted for one-shot statements.
var allowedVerbs = map[string]bool{
	"SELECT":   true,
	"INSERT":   true,
	"UPDATE":   true,
	"DELETE":   true,
	"CREATE":   true,
	"ALTER":    true,
	"DROP":     true,
	"TRUNCATE": true,
	"CALL":     true,
}

// Statement is a single-operation descriptor for one-shot execution.
type Statement struct {
	// SQL is the statement text with :name placeholders.
	SQL string `json:"text"`

	// Bind is the declared bind style.
	Bind BindStyle `json:"bindStyle,omitempty"`

	// Fetch is the shape of returned rows.
	Fetch FetchShape `json:"fetchShape,omitempty"`

	// Params lists the parameter names. Derived from SQL when empty.
	Params []string `json:"paramNames,omitempty"`

	// Types lists one type per parameter. Defaults to ParamString.
	Types []ParamType `json:"paramTypes,omitempty"`

	// Values maps each parameter name to its value.
	Values map[string]any `json:"-"`
}

// Prepared is a validated Statement with defaults applied and values
// coerced to their declared types.
type Prepared struct {
	SQL    string
	Verb   Verb
	Fetch  FetchShape
	Params []string
	Types  []ParamType
	Values map[string]any
}

// Args returns the bound values in the given placeholder order.
func (p *Prepared) Args(order []string) []any {
	args := make([]any, len(order))
	for i, name := range order {
		args[i] = p.Values[name]
	}
	return args
}

// Validate checks s and returns it ready for execution. It performs no I/O.
func Validate(s Statement) (*Prepared, error) {
	if !allowedVerbs[LeadingKeyword(s.SQL)] {
		return nil, dberr.Validation(validatorPath, "not a recognized statement").
			WithPayload(s.SQL)
	}

	if !s.Bind.Valid() {
		return nil, dberr.Validation(validatorPath, "unknown bind style %s", s.Bind)
	}
	if !s.Fetch.Valid() {
		return nil, dberr.Validation(validatorPath, "unknown fetch shape %s", s.Fetch)
	}

	params := s.Params
	if len(params) == 0 {
		params = Placeholders(s.SQL)
	}
	if name, ok := Unbound(s.SQL, params); ok {
		return nil, dberr.Validation(validatorPath, "missing parameter value %q", name)
	}

	types := s.Types
	if len(types) == 0 {
		types = make([]ParamType, len(params))
	}
	if len(types) != len(params) {
		return nil, dberr.Validation(validatorPath,
			"%d parameter types declared for %d parameters", len(types), len(params))
	}

	values := make(map[string]any, len(params))
	for i, name := range params {
		if !types[i].Valid() {
			return nil, dberr.Validation(validatorPath, "parameter %q has unknown type %s", name, types[i])
		}
		raw, ok := s.Values[name]
		if !ok {
			return nil, dberr.Validation(validatorPath, "missing parameter value %q", name)
		}
		v, err := types[i].Coerce(raw)
		if err != nil {
			return nil, dberr.Validation(validatorPath, "parameter %q: %v", name, err)
		}
		values[name] = v
	}

	return &Prepared{
		SQL:    s.SQL,
		Verb:   DetectVerb(s.SQL),
		Fetch:  s.Fetch,
		Params: params,
		Types:  types,
		Values: values,
	}, nil
}

// UnmarshalJSON decodes the descriptor form
// {"text": ..., "paramNames": [...], "<name>": value, ...}.
func (s *Statement) UnmarshalJSON(data []byte) error {
	type plain Statement
	var head plain
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	extra, err := decodeExtra(data, "text", "bindStyle", "fetchShape", "paramNames", "paramTypes")
	if err != nil {
		return err
	}

	*s = Statement(head)
	s.Values = make(map[string]any, len(extra))
	for name, raw := range extra {
		var v any
		if err := decodeNumber(raw, &v); err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
		s.Values[name] = v
	}
	return nil
}

// decodeExtra returns the object members not named in known.
func decodeExtra(data []byte, known ...string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	return all, nil
}

func decodeNumber(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}
