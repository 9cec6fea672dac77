// Package config provides backend configuration lookup.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/satishbabariya/dbexec/pkg/dberr"
)

// Dialect is the closed set of supported database engines.
type Dialect string

const (
	PostgreSQL Dialect = "postgres"
	MySQL      Dialect = "mysql"
	SQLite     Dialect = "sqlite"
)

// ParseDialect maps a configured dialect tag to a Dialect.
func ParseDialect(tag string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "postgres", "postgresql", "pgsql":
		return PostgreSQL, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("unsupported dialect %q", tag)
}

// Backend identifies one database target. It is immutable once loaded.
type Backend struct {
	Name     string
	Dialect  Dialect
	Host     string
	Port     int
	Database string
	User     string
	// Password is opaque until resolved through a Decrypter.
	Password string
	Encoding string
	// Options are extra DSN parameters (sslmode, parseTime, ...).
	Options map[string]string
}

// Source looks up backend configurations by name.
type Source interface {
	// Backend returns the named configuration. An empty name selects the
	// default.
	Backend(name string) (Backend, error)
}

// Registry is an in-memory Source.
type Registry struct {
	backends map[string]Backend
	def      string
}

// NewRegistry creates a registry. def names the default backend; when empty
// and exactly one backend is given, that one becomes the default.
func NewRegistry(def string, backends ...Backend) *Registry {
	r := &Registry{backends: make(map[string]Backend, len(backends)), def: strings.ToLower(def)}
	for _, b := range backends {
		r.backends[strings.ToLower(b.Name)] = b
	}
	if r.def == "" && len(backends) == 1 {
		r.def = strings.ToLower(backends[0].Name)
	}
	return r
}

// Backend implements Source.
func (r *Registry) Backend(name string) (Backend, error) {
	name = strings.ToLower(name)
	if name == "" {
		name = r.def
	}
	if name == "" {
		return Backend{}, dberr.New(dberr.KindConfiguration, "config", "no default backend configured")
	}
	b, ok := r.backends[name]
	if !ok {
		return Backend{}, dberr.Newf(dberr.KindConfiguration, "config", "unknown backend %q", name)
	}
	return b, nil
}

// Default returns the default backend name.
func (r *Registry) Default() string {
	return r.def
}

// Names returns the configured backend names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
