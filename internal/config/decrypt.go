package config

import (
	"context"
	"fmt"
	"os"
	"regexp"
)

// Decrypter resolves an opaque credential into the value sent to the
// backend.
type Decrypter interface {
	Decrypt(ctx context.Context, secret string) (string, error)
}

// DecryptFunc adapts a function to Decrypter.
type DecryptFunc func(ctx context.Context, secret string) (string, error)

// Decrypt implements Decrypter.
func (f DecryptFunc) Decrypt(ctx context.Context, secret string) (string, error) {
	return f(ctx, secret)
}

// Plaintext returns secrets unchanged.
var Plaintext Decrypter = DecryptFunc(func(_ context.Context, secret string) (string, error) {
	return secret, nil
})

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// EnvDecrypter resolves ${VAR} references from the environment. A
// reference to an unset variable is an error.
type EnvDecrypter struct {
	// Lookup defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

// Decrypt implements Decrypter.
func (d EnvDecrypter) Decrypt(_ context.Context, secret string) (string, error) {
	lookup := d.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var missing string
	out := envRef.ReplaceAllStringFunc(secret, func(ref string) string {
		name := envRef.FindStringSubmatch(ref)[1]
		v, ok := lookup(name)
		if !ok && missing == "" {
			missing = name
		}
		return v
	})
	if missing != "" {
		return "", fmt.Errorf("credential references unset variable %s", missing)
	}
	return out, nil
}

// Resolve returns a copy of b with its password decrypted.
func Resolve(ctx context.Context, b Backend, d Decrypter) (Backend, error) {
	if d == nil || b.Password == "" {
		return b, nil
	}
	pw, err := d.Decrypt(ctx, b.Password)
	if err != nil {
		return Backend{}, fmt.Errorf("decrypt credentials for %s: %w", b.Name, err)
	}
	b.Password = pw
	return b, nil
}
