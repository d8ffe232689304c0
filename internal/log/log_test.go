package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(nil, "NOT_A_LEVEL")
	require.Error(t, err)
}

func TestLoggerWritesToBackend(t *testing.T) {
	var buf bytes.Buffer
	backend, err := New(&buf, "DEBUG")
	require.NoError(t, err)

	logger := backend.GetLogger("test")
	logger.Info("hello")

	require.Contains(t, buf.String(), "hello")
	require.Contains(t, buf.String(), "test")
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	backend, err := New(&buf, "ERROR")
	require.NoError(t, err)

	logger := backend.GetLogger("test")
	logger.Debug("should not appear")

	require.Empty(t, buf.String())
}
