package dbexec

import (
	"github.com/satishbabariya/dbexec/pkg/dberr"
)

// DriverFactory builds a driver for a resolved backend. The driver must
// not connect until it is first used.
type DriverFactory func(b BackendConfig) Driver

// Option is a function that configures the engine.
type Option func(*Engine)

// WithDecrypter sets the collaborator that resolves backend passwords.
// Passwords are used as written when no decrypter is set.
func WithDecrypter(d Decrypter) Option {
	return func(e *Engine) {
		e.decrypter = d
	}
}

// WithDriverFactory replaces the driver factory for a dialect.
func WithDriverFactory(d Dialect, f DriverFactory) Option {
	return func(e *Engine) {
		e.factories[d] = f
	}
}

// WithFetchShape sets the initial row shape.
func WithFetchShape(shape FetchShape) Option {
	return func(e *Engine) {
		e.fetch = shape
	}
}

// CallOption configures a single facade call.
type CallOption func(*call)

type call struct {
	backend string
	tag     dberr.Context
}

// Backend selects the named backend instead of the default.
func Backend(name string) CallOption {
	return func(c *call) {
		c.backend = name
	}
}

// Tag sets the exception context attached to errors raised by the call.
// The default is dberr.ContextAPI.
func Tag(ctx dberr.Context) CallOption {
	return func(c *call) {
		c.tag = ctx
	}
}

func applyCall(opts []CallOption) call {
	c := call{tag: dberr.ContextAPI}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
