package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_JSONOutputByDefault(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Writer: &buf, Level: "info", Component: "test"})
	require.NoError(t, err)

	log.Info("hello", "key", "value")
	out := buf.String()
	require.Contains(t, out, `"msg":"hello"`)
	require.Contains(t, out, `"component":"test"`)
	require.Contains(t, out, `"key":"value"`)
}

func TestNew_HumanReadable(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Writer: &buf, HumanReadable: true})
	require.NoError(t, err)

	log.Info("plain message")
	require.Contains(t, buf.String(), "plain message")
	require.False(t, strings.Contains(buf.String(), `"msg"`))
}

func TestNew_RejectsBadLevel(t *testing.T) {
	_, err := New(Options{Level: "chatty"})
	require.Error(t, err)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Writer: &buf, Level: "warn"})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("hidden too")
	log.Warn("visible")
	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "visible")
}

func TestWith_AttachesFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Writer: &buf})
	require.NoError(t, err)

	log.With("run_id", "run-1").Info("started")
	require.Contains(t, buf.String(), "run-1")
}

func TestNilLoggerIsSafe(t *testing.T) {
	var log *Logger
	log.Info("no panic")
	log.Error("still no panic")
	require.Nil(t, log.With("k", "v"))
}

func TestNoopDiscards(t *testing.T) {
	log := Noop()
	log.Info("dropped")
	log.Error("dropped")
}
