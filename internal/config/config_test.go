package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specatalog/internal/catalogerr"
)

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "defaults.yaml")
	want := Config{BaseDir: "/data/epr", LogLevel: "debug"}

	require.NoError(t, Save(path, want))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	level, err := got.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"relative base dir", "base_dir: archive\n", "must be an absolute path"},
		{"missing base dir", "log_level: info\n", "base_dir is required"},
		{"bad level", "base_dir: /a\nlog_level: loud\n", `unknown log_level "loud"`},
		{"unknown key", "base_dir: /a\nbase_path: /b\n", "base_path"},
		{"not yaml", "base_dir: [\n", "defaults.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "defaults.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := Load(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, catalogerr.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "defaults.yaml"))
	assert.ErrorIs(t, err, catalogerr.ErrConfiguration)
	assert.Contains(t, err.Error(), "specatalog init")
}

func TestSave_Validates(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), "d.yaml"), Config{BaseDir: "rel"})
	assert.ErrorIs(t, err, catalogerr.ErrConfiguration)
}

func TestDefaultPath(t *testing.T) {
	t.Setenv(EnvPath, "/tmp/custom.yaml")
	p, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.yaml", p)

	t.Setenv(EnvPath, "")
	t.Setenv("HOME", "/home/tester")
	p, err = DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/tester", ".specatalog", "defaults.yaml"), p)
}
