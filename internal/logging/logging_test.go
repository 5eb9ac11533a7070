package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToWorkspaceLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	log, err := New(Options{Dir: dir, Level: "debug"})
	require.NoError(t, err)

	log.Debug("drag start")
	_ = log.Sync()

	b, err := os.ReadFile(filepath.Join(dir, fileName))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"drag start"`)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Options{Dir: t.TempDir(), Level: "chatty"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "chatty"))
}

func TestVerboseForcesDebug(t *testing.T) {
	dir := t.TempDir()
	log, err := New(Options{Dir: dir, Level: "error", Verbose: true})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(-1))
}
