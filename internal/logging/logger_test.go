package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, TRACE, ParseLevel("trace"))
	assert.Equal(t, DEBUG, ParseLevel(" DEBUG "))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel("bogus"))
}

func TestConsoleLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger("test", &buf, WARN)

	logger.Info("hidden %d", 1)
	logger.Warn("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "component=test")
}

func TestFileSink(t *testing.T) {
	dir := t.TempDir()
	Configure(Options{Dir: dir, ConsoleLevel: ERROR, FileLevel: DEBUG})
	t.Cleanup(func() { Configure(Options{Dir: "logs", ConsoleLevel: INFO, FileLevel: DEBUG}) })

	manager := NewLoggerManager()
	logger, err := manager.GetLogger("storage")
	require.NoError(t, err)

	again, err := manager.GetLogger("storage")
	require.NoError(t, err)
	assert.Same(t, logger, again)

	logger.Debug("document inserted id=%s", "abc")
	require.NoError(t, manager.CloseAll())

	matches, err := filepath.Glob(filepath.Join(dir, "storage_*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "document inserted id=abc")
	assert.Empty(t, manager.ListComponents())
}

func TestSetLogLevelUnknownComponent(t *testing.T) {
	manager := NewLoggerManager()
	assert.Error(t, manager.SetLogLevel("missing", INFO, INFO))
}
