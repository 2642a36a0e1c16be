package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/fab/internal/adapters/logger"
	"go.trai.ch/zerr"
)

func newTestLogger(buf *bytes.Buffer) *logger.Logger {
	l := logger.New()
	l.SetOutput(buf)
	return l
}

func TestLogger_InfoAndWarn(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)

	l.Info("building project")
	l.Warn("style import missing")

	out := buf.String()
	assert.Contains(t, out, "building project")
	assert.Contains(t, out, "style import missing")
}

func TestLogger_DebugHiddenByDefault(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)

	l.Debug("rebuild aborted")
	assert.Empty(t, buf.String())

	l.SetVerbose(true)
	l.Debug("rebuild aborted")
	assert.Contains(t, buf.String(), "rebuild aborted")
}

func TestLogger_ErrorChain(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)

	cause := errors.New("no such file")
	err := zerr.Wrap(cause, "failed to open entry module")

	l.Error(err)

	out := buf.String()
	assert.Contains(t, out, "Error: failed to open entry module")
	assert.Contains(t, out, "Caused by:")
	assert.Contains(t, out, "no such file")
}

func TestLogger_ErrorNil(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)

	l.Error(nil)
	assert.Empty(t, buf.String())
}

func TestLogger_JSONMode(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)
	l.SetJSON(true)

	l.Info("bundled scripts")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "bundled scripts", record["msg"])
	assert.Equal(t, "INFO", record["level"])
}

func TestFormatErrorChain_PlainError(t *testing.T) {
	out := logger.FormatErrorChain(errors.New("boom"))
	assert.Equal(t, "Error: boom", out)
}
