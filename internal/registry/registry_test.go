package registry

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/schema"
	"github.com/roach88/specatalog/internal/value"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefault_CoversSchema(t *testing.T) {
	tbl := Default()
	assert.Empty(t, tbl.Missing())

	bands, ok := tbl.Lookup(schema.SetFrequencyBands)
	require.True(t, ok)
	assert.Equal(t, []string{"", "S", "X", "Q", "W"}, bands)
	assert.Contains(t, tbl.Sets(), "radicals")
}

func TestParse(t *testing.T) {
	tbl, err := Parse("test.cue", []byte(`
solvents: ["toluene", "THF"]
"frequency_bands": ["X"]
`))
	require.NoError(t, err)
	assert.Equal(t, Table{
		"solvents":        {"toluene", "THF"},
		"frequency_bands": {"X"},
	}, tbl)
	assert.Contains(t, tbl.Missing(), schema.SetNames)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", `solvents: ["toluene"`, "test.cue"},
		{"not a list", `solvents: "toluene"`, "expected a list of strings"},
		{"not strings", `solvents: ["toluene", 3]`, "element 1"},
		{"conflict", "solvents: [\"toluene\"]\nsolvents: [\"THF\"]", "test.cue"},
		{"duplicate", `solvents: ["toluene", "toluene"]`, `duplicate value "toluene"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("test.cue", []byte(tt.src))
			require.Error(t, err)
			assert.ErrorIs(t, err, catalogerr.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRegistry_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allowed_values.cue")
	wrote, err := WriteDefault(path)
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = WriteDefault(path)
	require.NoError(t, err)
	assert.False(t, wrote)

	r, err := Open(path, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, path, r.Path())

	e := schema.Measurement
	err = schema.ValidateChanges(e, map[string]value.Value{"solvent": value.String("THF")}, r)
	assert.ErrorIs(t, err, catalogerr.ErrValidation)

	require.NoError(t, os.WriteFile(path, []byte("solvents: [\"toluene\", \"water\", \"THF\"]\n"), 0o644))
	require.NoError(t, r.Reload())
	err = schema.ValidateChanges(e, map[string]value.Value{"solvent": value.String("THF")}, r)
	assert.NoError(t, err)
}

func TestRegistry_ReloadKeepsTableOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allowed_values.cue")
	require.NoError(t, os.WriteFile(path, []byte(`solvents: ["toluene"]`), 0o644))
	r, err := Open(path, quietLogger())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`solvents: [`), 0o644))
	assert.Error(t, r.Reload())

	values, ok := r.Lookup("solvents")
	require.True(t, ok)
	assert.Equal(t, []string{"toluene"}, values)
}

func TestRegistry_ConcurrentReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allowed_values.cue")
	_, err := WriteDefault(path)
	require.NoError(t, err)
	r, err := Open(path, quietLogger())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, ok := r.Lookup(schema.SetSolvents)
				assert.True(t, ok)
			}
		}()
	}
	require.NoError(t, r.Reload())
	wg.Wait()
}

func TestStatic(t *testing.T) {
	r := Static(Table{"solvents": {"toluene"}})
	_, ok := r.Lookup("solvents")
	assert.True(t, ok)
	assert.Error(t, r.Reload())
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.cue"), quietLogger())
	assert.Error(t, err)
}
