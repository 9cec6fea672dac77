package debug

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisabledDiscards(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, false)
	t.Cleanup(func() { Init(false) })

	Debug("hidden")
	Error("also hidden")
	assert.False(t, Enabled())
	assert.Empty(t, buf.String())
}

func TestOp(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, true)
	t.Cleanup(func() { Init(false) })
	assert.True(t, Enabled())

	done := Op("execRaw", "main")
	done(nil)
	assert.Contains(t, buf.String(), "op=execRaw")
	assert.Contains(t, buf.String(), "backend=main")
	assert.Contains(t, buf.String(), "msg=done")

	buf.Reset()
	Op("queryRaw", "main")(errors.New("boom"))
	assert.Contains(t, buf.String(), "msg=failed")
	assert.Contains(t, buf.String(), "error=boom")
}
