package statement

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cast"
)

// ParamType is the declared type of a bound parameter. The zero value is
// ParamString, the default for undeclared parameters.
type ParamType uint8

const (
	ParamString ParamType = iota
	ParamInt
	ParamBool
	ParamNull
	ParamLOB
)

var paramTypeNames = [...]string{
	ParamString: "str",
	ParamInt:    "int",
	ParamBool:   "bool",
	ParamNull:   "null",
	ParamLOB:    "lob",
}

// Valid reports whether t is a recognized type tag.
func (t ParamType) Valid() bool {
	return int(t) < len(paramTypeNames)
}

func (t ParamType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("ParamType(%d)", uint8(t))
	}
	return paramTypeNames[t]
}

// ParseParamType parses a type tag. Long forms are accepted.
func ParseParamType(tag string) (ParamType, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "str", "string":
		return ParamString, nil
	case "int", "integer":
		return ParamInt, nil
	case "bool", "boolean":
		return ParamBool, nil
	case "null":
		return ParamNull, nil
	case "lob", "blob":
		return ParamLOB, nil
	}
	return 0, fmt.Errorf("unknown parameter type %q", tag)
}

// MarshalText implements encoding.TextMarshaler.
func (t ParamType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown parameter type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ParamType) UnmarshalText(text []byte) error {
	parsed, err := ParseParamType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Coerce converts v to the Go value bound for this type. nil always binds
// as NULL.
func (t ParamType) Coerce(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case ParamString:
		return cast.ToStringE(v)
	case ParamInt:
		return cast.ToInt64E(v)
	case ParamBool:
		return cast.ToBoolE(v)
	case ParamNull:
		return nil, nil
	case ParamLOB:
		switch b := v.(type) {
		case []byte:
			return b, nil
		case io.Reader:
			return io.ReadAll(b)
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	}
	return nil, fmt.Errorf("unknown parameter type %d", uint8(t))
}

// BindStyle is the declared binding convention. Both styles are bound by
// name; the distinction is kept for descriptor compatibility.
type BindStyle uint8

const (
	BindUnset BindStyle = iota
	BindByName
	BindByValue
)

// Valid reports whether b is a recognized style.
func (b BindStyle) Valid() bool {
	return b <= BindByValue
}

func (b BindStyle) String() string {
	switch b {
	case BindUnset:
		return ""
	case BindByName:
		return "byName"
	case BindByValue:
		return "byValue"
	}
	return fmt.Sprintf("BindStyle(%d)", uint8(b))
}

// MarshalText implements encoding.TextMarshaler.
func (b BindStyle) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown styles decode
// to an invalid value so the validator reports them.
func (b *BindStyle) UnmarshalText(text []byte) error {
	switch string(text) {
	case "":
		*b = BindUnset
	case "byName", "bindParam", "named":
		*b = BindByName
	case "byValue", "bindValue":
		*b = BindByValue
	default:
		*b = BindStyle(0xff)
	}
	return nil
}

// FetchShape controls the keys of fetched rows.
type FetchShape uint8

const (
	// FetchAssoc keys rows by column name.
	FetchAssoc FetchShape = iota
	// FetchNum keys rows by zero-based column ordinal ("0", "1", ...).
	FetchNum
	// FetchBoth keys rows by name and by ordinal.
	FetchBoth
)

// Valid reports whether f is a known shape.
func (f FetchShape) Valid() bool {
	return f <= FetchBoth
}

func (f FetchShape) String() string {
	switch f {
	case FetchAssoc:
		return "assoc"
	case FetchNum:
		return "num"
	case FetchBoth:
		return "both"
	}
	return fmt.Sprintf("FetchShape(%d)", uint8(f))
}

// ParseFetchShape parses a shape name.
func ParseFetchShape(s string) (FetchShape, error) {
	switch strings.ToLower(s) {
	case "", "assoc":
		return FetchAssoc, nil
	case "num":
		return FetchNum, nil
	case "both":
		return FetchBoth, nil
	}
	return 0, fmt.Errorf("unknown fetch shape %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (f FetchShape) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *FetchShape) UnmarshalText(text []byte) error {
	parsed, err := ParseFetchShape(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
