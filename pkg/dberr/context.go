package dberr

import "fmt"

// Context tags the surface an operation was invoked from, so the
// presentation layer can choose HTML, JSON or terminal formatting.
type Context string

const (
	ContextPage      Context = "page"
	ContextAPI       Context = "api"
	ContextCLI       Context = "cli"
	ContextAsync     Context = "async"
	ContextStrongAPI Context = "strong-api"
)

// Valid reports whether c is a known tag.
func (c Context) Valid() bool {
	switch c {
	case ContextPage, ContextAPI, ContextCLI, ContextAsync, ContextStrongAPI:
		return true
	}
	return false
}

// ParseContext parses a context tag.
func ParseContext(s string) (Context, error) {
	c := Context(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown exception context %q", s)
	}
	return c, nil
}
