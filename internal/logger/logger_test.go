package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IsUsableBeforeInit(t *testing.T) {
	l := New()
	require.NotNil(t, l.Log)
	l.Log.Info("dropped")
}

func TestInit_InvalidLevel(t *testing.T) {
	l := New()
	err := l.Init("loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}

func TestInit_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.log")

	l := New()
	require.NoError(t, l.Init("debug", path))
	l.Log.Debug("hello from test")
	_ = l.Log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
}
