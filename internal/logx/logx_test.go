package logx

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diffkit.log")
	t.Setenv(EnvFile, path)
	t.Setenv(EnvLevel, "debug")

	log, closeLog := New()
	log.Debug("computed", "hunks", 2)
	require.NoError(t, closeLog())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(b), "msg=computed hunks=2"), string(b))
}

func TestNew_DiscardsWhenUnset(t *testing.T) {
	t.Setenv(EnvFile, "")
	log, closeLog := New()
	log.Info("dropped")
	require.NoError(t, closeLog())
}

func TestNew_DiscardsWhenPathIsDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvFile, dir)

	log, closeLog := New()
	log.Info("ignored")
	require.NoError(t, closeLog())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	require.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}
