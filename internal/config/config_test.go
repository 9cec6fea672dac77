package config

import (
	"context"
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/dbexec/pkg/dberr"
)

const sampleConfig = `
default: main
databases:
  main:
    dialect: postgresql
    host: localhost
    port: 5432
    database: app
    user: app
    pass: "${DBEXEC_TEST_PASS}"
    encoding: UTF8
    options:
      sslmode: disable
  reports:
    dialect: mysql
    host: reports.internal
    port: 3306
    database: reports
    user: ro
  legacy:
    dialect: oracle
`

func withFs(t *testing.T, files map[string]string) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, body := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(body), 0o644))
	}
	prev := AppFs
	AppFs = fs
	t.Cleanup(func() { AppFs = prev })
}

func TestLoad(t *testing.T) {
	withFs(t, map[string]string{"/etc/dbexec.yaml": sampleConfig})

	reg, err := Load("/etc/dbexec.yaml")
	require.NoError(t, err)

	assert.Equal(t, "main", reg.Default())
	assert.Equal(t, []string{"legacy", "main", "reports"}, reg.Names())

	main, err := reg.Backend("")
	require.NoError(t, err)
	assert.Equal(t, Backend{
		Name:     "main",
		Dialect:  PostgreSQL,
		Host:     "localhost",
		Port:     5432,
		Database: "app",
		User:     "app",
		Password: "${DBEXEC_TEST_PASS}",
		Encoding: "UTF8",
		Options:  map[string]string{"sslmode": "disable"},
	}, main)

	reports, err := reg.Backend("reports")
	require.NoError(t, err)
	assert.Equal(t, MySQL, reports.Dialect)
	assert.Equal(t, 3306, reports.Port)

	legacy, err := reg.Backend("legacy")
	require.NoError(t, err)
	assert.Equal(t, Dialect("oracle"), legacy.Dialect)
}

func TestLoadEnvOverride(t *testing.T) {
	withFs(t, map[string]string{"/etc/dbexec.yaml": sampleConfig})
	t.Setenv("DBEXEC_DATABASES_MAIN_HOST", "db.prod")

	reg, err := Load("/etc/dbexec.yaml")
	require.NoError(t, err)

	main, err := reg.Backend("main")
	require.NoError(t, err)
	assert.Equal(t, "db.prod", main.Host)
}

func TestLoadDotenv(t *testing.T) {
	withFs(t, map[string]string{
		"/etc/dbexec.yaml": sampleConfig,
		".env":             "DBEXEC_TEST_PASS=from-env\nDBEXEC_TEST_OTHER=base\n",
		".env.local":       "DBEXEC_TEST_OTHER=local\n",
	})
	t.Cleanup(func() {
		os.Unsetenv("DBEXEC_TEST_PASS")
		os.Unsetenv("DBEXEC_TEST_OTHER")
	})

	reg, err := Load("/etc/dbexec.yaml")
	require.NoError(t, err)
	assert.Equal(t, "local", os.Getenv("DBEXEC_TEST_OTHER"))

	main, err := reg.Backend("main")
	require.NoError(t, err)
	resolved, err := Resolve(context.Background(), main, EnvDecrypter{})
	require.NoError(t, err)
	assert.Equal(t, "from-env", resolved.Password)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		withFs(t, nil)
		_, err := Load("/nope.yaml")
		assert.ErrorIs(t, err, dberr.ErrConfiguration)
	})

	t.Run("no databases", func(t *testing.T) {
		withFs(t, map[string]string{"/c.yaml": "default: x\n"})
		_, err := Load("/c.yaml")
		assert.ErrorIs(t, err, dberr.ErrConfiguration)
	})

	t.Run("unknown default", func(t *testing.T) {
		withFs(t, map[string]string{"/c.yaml": "default: other\ndatabases:\n  main:\n    dialect: sqlite\n"})
		_, err := Load("/c.yaml")
		assert.ErrorIs(t, err, dberr.ErrConfiguration)
	})
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry("", Backend{Name: "only", Dialect: SQLite})
	b, err := reg.Backend("")
	require.NoError(t, err)
	assert.Equal(t, "only", b.Name)

	b, err = reg.Backend("ONLY")
	require.NoError(t, err, "names are case-insensitive")
	assert.Equal(t, "only", b.Name)

	_, err = reg.Backend("missing")
	assert.ErrorIs(t, err, dberr.ErrConfiguration)

	_, err = NewRegistry("").Backend("")
	assert.ErrorIs(t, err, dberr.ErrConfiguration)
}

func TestParseDialect(t *testing.T) {
	for tag, want := range map[string]Dialect{
		"postgres": PostgreSQL, "PostgreSQL": PostgreSQL, "pgsql": PostgreSQL,
		"mysql": MySQL, "mariadb": MySQL,
		"sqlite": SQLite, "sqlite3": SQLite,
	} {
		got, err := ParseDialect(tag)
		require.NoError(t, err, tag)
		assert.Equal(t, want, got, tag)
	}
	_, err := ParseDialect("oracle")
	assert.Error(t, err)
}

func TestEnvDecrypter(t *testing.T) {
	env := map[string]string{"USER_PW": "s3cret"}
	d := EnvDecrypter{Lookup: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}

	out, err := d.Decrypt(context.Background(), "pre-${USER_PW}-post")
	require.NoError(t, err)
	assert.Equal(t, "pre-s3cret-post", out)

	out, err = d.Decrypt(context.Background(), "literal")
	require.NoError(t, err)
	assert.Equal(t, "literal", out)

	_, err = d.Decrypt(context.Background(), "${MISSING}")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	b := Backend{Name: "x", Password: "enc"}
	calls := 0
	upper := DecryptFunc(func(_ context.Context, s string) (string, error) {
		calls++
		return "plain-" + s, nil
	})

	got, err := Resolve(context.Background(), b, upper)
	require.NoError(t, err)
	assert.Equal(t, "plain-enc", got.Password)
	assert.Equal(t, "enc", b.Password)

	_, err = Resolve(context.Background(), Backend{Name: "y"}, upper)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "empty passwords skip the decrypter")
}
