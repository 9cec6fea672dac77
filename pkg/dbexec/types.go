package dbexec

import (
	"github.com/satishbabariya/dbexec/internal/adapters/database"
	"github.com/satishbabariya/dbexec/internal/config"
	"github.com/satishbabariya/dbexec/internal/core/statement"
)

// Configuration types.
type (
	// BackendConfig identifies one database target.
	BackendConfig = config.Backend
	// Dialect is a supported database engine.
	Dialect = config.Dialect
	// Source looks up backend configurations by name.
	Source = config.Source
	// Registry is an in-memory Source.
	Registry = config.Registry
	// Decrypter resolves stored passwords before connecting.
	Decrypter = config.Decrypter
	// DecryptFunc adapts a function to Decrypter.
	DecryptFunc = config.DecryptFunc
	// EnvDecrypter resolves ${VAR} references from the environment.
	EnvDecrypter = config.EnvDecrypter
)

const (
	PostgreSQL = config.PostgreSQL
	MySQL      = config.MySQL
	SQLite     = config.SQLite
)

// Plaintext uses stored passwords as written.
var Plaintext = config.Plaintext

// NewRegistry builds a Source from backends. def names the default.
func NewRegistry(def string, backends ...BackendConfig) *Registry {
	return config.NewRegistry(def, backends...)
}

// Load reads backend configurations from file, or from the default search
// paths when file is empty.
func Load(file string) (*Registry, error) {
	return config.Load(file)
}

// ParseDialect maps a dialect tag such as "postgresql" to a Dialect.
func ParseDialect(tag string) (Dialect, error) {
	return config.ParseDialect(tag)
}

// Descriptor types.
type (
	// Statement describes one-shot execution.
	Statement = statement.Statement
	// Operation is one step of a transaction batch.
	Operation = statement.Operation
	// ParamType is the declared type of a bound parameter.
	ParamType = statement.ParamType
	// BindStyle is the declared binding convention.
	BindStyle = statement.BindStyle
	// FetchShape controls the keys of fetched rows.
	FetchShape = statement.FetchShape
)

const (
	ParamString = statement.ParamString
	ParamInt    = statement.ParamInt
	ParamBool   = statement.ParamBool
	ParamNull   = statement.ParamNull
	ParamLOB    = statement.ParamLOB

	BindByName  = statement.BindByName
	BindByValue = statement.BindByValue

	FetchAssoc = statement.FetchAssoc
	FetchNum   = statement.FetchNum
	FetchBoth  = statement.FetchBoth
)

// Literal returns a batch operation that runs sql as written.
func Literal(sql string) Operation {
	return statement.Literal(sql)
}

// Template returns a batch operation executed once per bound value index.
func Template(sql string) Operation {
	return statement.Template(sql)
}

// ParseParamType maps a type tag such as "int" to a ParamType.
func ParseParamType(tag string) (ParamType, error) {
	return statement.ParseParamType(tag)
}

// ParseFetchShape maps "assoc", "num" or "both" to a FetchShape.
func ParseFetchShape(s string) (FetchShape, error) {
	return statement.ParseFetchShape(s)
}

// Driver types.
type (
	// Outcome is the result of one statement.
	Outcome = database.Outcome
	// Driver is a caller-owned connection to one backend.
	Driver = database.Driver
	// Tx is the single open transaction of a Driver.
	Tx = database.Tx
	// Stmt is a prepared statement inside a Tx.
	Stmt = database.Stmt
	// Cursor pulls rows from an open cursor.
	Cursor = database.Cursor
)
