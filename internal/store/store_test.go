package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/queryir"
	"github.com/roach88/specatalog/internal/schema"
	"github.com/roach88/specatalog/internal/shape"
	"github.com/roach88/specatalog/internal/value"
)

var testTime = value.NewTime(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "specatalog.db")
	s, err := Open(path, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func singleValues(id int64, name string) map[string]value.Value {
	return map[string]value.Value{
		"mol_id":             value.Int(id),
		"name":               value.String(name),
		"molecular_formula":  value.String("C24H12"),
		"smiles":             value.Null{},
		"structural_formula": value.String(fmt.Sprintf("molecules/MOL%d", id)),
		"group":              value.String("single"),
		"created_at":         testTime,
		"updated_at":         testTime,
		"additional_info":    value.String("reference compound"),
	}
}

func cweprValues(id, molID int64, temp float64) map[string]value.Value {
	return map[string]value.Value{
		"ms_id":          value.Int(id),
		"molecular_id":   value.Int(molID),
		"method":         value.String("cwepr"),
		"temperature":    value.Float(temp),
		"solvent":        value.String("toluene"),
		"concentration":  value.Null{},
		"date":           value.NewDate(2024, time.March, 1),
		"measured_by":    value.String("richert"),
		"location":       value.String("Berlin"),
		"device":         value.String("EMXnano"),
		"series":         value.Null{},
		"path":           value.String(fmt.Sprintf("data/M%d", id)),
		"corrected":      value.Bool(false),
		"evaluated":      value.Bool(true),
		"created_at":     testTime,
		"updated_at":     testTime,
		"frequency_band": value.String("X"),
		"attenuation":    value.Float(20),
	}
}

func insert(t *testing.T, s *Store, e *schema.Entity, values map[string]value.Value) {
	t.Helper()
	err := s.InTx(context.Background(), func(tx *Tx) error {
		return tx.Insert(context.Background(), e, values)
	})
	require.NoError(t, err)
}

func collect(t *testing.T, seq func(func(schema.Record, error) bool)) []schema.Record {
	t.Helper()
	var out []schema.Record
	for rec, err := range seq {
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))

	version, err := s.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "specatalog.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestOpen_PathWithURIMetacharacters(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run?mode=memory#1 %20")
	require.NoError(t, os.Mkdir(dir, 0o755))
	path := filepath.Join(dir, "specatalog.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.FileExists(t, path)
	entries, err := os.ReadDir(filepath.Dir(dir))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDSN_EscapesPath(t *testing.T) {
	got := dsn("/data/a?b#c.db")
	assert.True(t, strings.HasPrefix(got, "file:///data/a%3Fb%23c.db?"), got)
	assert.Contains(t, got, "_txlock=immediate")
}

// The embedded DDL must declare exactly the columns the descriptors do.
func TestSchema_MatchesDescriptors(t *testing.T) {
	s := createTestStore(t)

	for _, e := range schema.All() {
		t.Run(e.Name, func(t *testing.T) {
			rows, err := s.DB().Query(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(e.Table)))
			require.NoError(t, err)
			defer rows.Close()

			var got []string
			for rows.Next() {
				var (
					cid     int
					name    string
					typ     string
					notNull int
					dflt    any
					pk      int
				)
				require.NoError(t, rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk))
				got = append(got, name)
			}
			require.NoError(t, rows.Err())

			var want []string
			if !e.IsBase() {
				want = append(want, e.Key())
			}
			for _, f := range e.Own {
				want = append(want, f.Name)
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestInsertGet_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	insert(t, s, schema.SingleMolecule, singleValues(1, "PDI0"))
	insert(t, s, schema.CWEPR, cweprValues(1, 1, 80))

	rec, err := s.Get(ctx, schema.CWEPR, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID())
	for k, want := range cweprValues(1, 1, 80) {
		assert.True(t, value.Equal(want, rec.Get(k)), "%s: want %v got %v", k, want, rec.Get(k))
	}

	base, err := s.Get(ctx, schema.Measurement, 1)
	require.NoError(t, err)
	assert.Equal(t, value.String("cwepr"), base.Get("method"))
	_, hasSub := base.Values["frequency_band"]
	assert.False(t, hasSub)

	kind, err := s.Resolve(ctx, schema.FamilyMeasurement, 1)
	require.NoError(t, err)
	assert.Same(t, schema.CWEPR, kind)

	_, err = s.Get(ctx, schema.TREPR, 1)
	assert.ErrorIs(t, err, catalogerr.ErrNotFound)

	_, err = s.Resolve(ctx, schema.FamilyMolecule, 9)
	assert.ErrorIs(t, err, catalogerr.ErrNotFound)
}

func TestNextID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	next := func() int64 {
		var id int64
		require.NoError(t, s.InTx(ctx, func(tx *Tx) error {
			var err error
			id, err = tx.NextID(ctx, schema.FamilyMolecule)
			return err
		}))
		return id
	}

	assert.Equal(t, int64(1), next())
	insert(t, s, schema.SingleMolecule, singleValues(1, "PDI0"))
	insert(t, s, schema.SingleMolecule, singleValues(5, "PER"))
	assert.Equal(t, int64(6), next())
}

func TestInsert_KeyConflict(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	insert(t, s, schema.SingleMolecule, singleValues(1, "PDI0"))

	err := s.InTx(ctx, func(tx *Tx) error {
		return tx.Insert(ctx, schema.SingleMolecule, singleValues(1, "PER"))
	})
	assert.ErrorIs(t, err, ErrKeyConflict)

	exists, err := s.Exists(ctx, schema.FamilyMolecule, 1)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestInsert_UniqueViolation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	insert(t, s, schema.SingleMolecule, singleValues(1, "PDI0"))

	err := s.InTx(ctx, func(tx *Tx) error {
		return tx.Insert(ctx, schema.SingleMolecule, singleValues(2, "PDI0"))
	})
	require.ErrorIs(t, err, catalogerr.ErrValidation)

	var ce *catalogerr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "name", ce.Field)

	// The failed transaction left nothing behind.
	exists, err := s.Exists(ctx, schema.FamilyMolecule, 2)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpdate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	insert(t, s, schema.SingleMolecule, singleValues(1, "PDI0"))
	insert(t, s, schema.CWEPR, cweprValues(1, 1, 80))

	err := s.InTx(ctx, func(tx *Tx) error {
		return tx.Update(ctx, schema.CWEPR, 1, map[string]value.Value{
			"attenuation": value.Float(10),
			"location":    value.Null{},
		})
	})
	require.NoError(t, err)

	rec, err := s.Get(ctx, schema.CWEPR, 1)
	require.NoError(t, err)
	assert.Equal(t, value.Float(10), rec.Get("attenuation"))
	assert.Equal(t, value.Null{}, rec.Get("location"))
	assert.Equal(t, value.Float(80), rec.Get("temperature"))

	err = s.InTx(ctx, func(tx *Tx) error {
		return tx.Update(ctx, schema.CWEPR, 2, map[string]value.Value{"attenuation": value.Float(1)})
	})
	assert.ErrorIs(t, err, catalogerr.ErrNotFound)
}

func TestDelete_CascadesFromMolecule(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	insert(t, s, schema.SingleMolecule, singleValues(1, "PDI0"))
	insert(t, s, schema.SingleMolecule, singleValues(2, "PER"))
	insert(t, s, schema.CWEPR, cweprValues(1, 1, 80))
	insert(t, s, schema.CWEPR, cweprValues(2, 1, 90))
	insert(t, s, schema.CWEPR, cweprValues(3, 2, 100))

	ids, err := s.MeasurementIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)

	require.NoError(t, s.InTx(ctx, func(tx *Tx) error {
		return tx.Delete(ctx, schema.FamilyMolecule, 1)
	}))

	var subRows int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM cwepr").Scan(&subRows))
	assert.Equal(t, 1, subRows)

	ids, err = s.MeasurementIDs(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, ids)

	err = s.InTx(ctx, func(tx *Tx) error {
		return tx.Delete(ctx, schema.FamilyMolecule, 1)
	})
	assert.ErrorIs(t, err, catalogerr.ErrNotFound)
}

func TestQuery_FilterOrderRestart(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	insert(t, s, schema.SingleMolecule, singleValues(1, "PDI0"))
	insert(t, s, schema.CWEPR, cweprValues(1, 1, 80))
	insert(t, s, schema.CWEPR, cweprValues(2, 1, 120))
	insert(t, s, schema.CWEPR, cweprValues(3, 1, 100))

	shapes, err := shape.Make(schema.CWEPR)
	require.NoError(t, err)
	f := shapes.Filter.New()
	require.NoError(t, f.Set("temperature__ge", value.Float(90)))
	o := shapes.Ordering.New()
	require.NoError(t, o.By("temperature", queryir.Desc))

	sel, err := shape.Query(schema.CWEPR, f, o)
	require.NoError(t, err)

	seq := s.Query(ctx, schema.CWEPR, sel)
	first := collect(t, seq)
	second := collect(t, seq)

	require.Len(t, first, 2)
	assert.Equal(t, int64(2), first[0].ID())
	assert.Equal(t, int64(3), first[1].ID())
	assert.Equal(t, first, second)

	for range seq {
		break
	}
	// The connection was released by the early break.
	_, err = s.Get(ctx, schema.CWEPR, 1)
	require.NoError(t, err)
}

func TestQuery_LikeIsCaseSensitive(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	insert(t, s, schema.SingleMolecule, singleValues(1, "PDI0"))
	insert(t, s, schema.CWEPR, cweprValues(1, 1, 80))

	shapes, err := shape.Make(schema.CWEPR)
	require.NoError(t, err)

	count := func(key, pattern string) int {
		f := shapes.Filter.New()
		require.NoError(t, f.Set(key, value.String(pattern)))
		sel, err := shape.Query(schema.CWEPR, f, nil)
		require.NoError(t, err)
		return len(collect(t, s.Query(ctx, schema.CWEPR, sel)))
	}

	assert.Equal(t, 1, count("location__like", "Ber%"))
	assert.Equal(t, 0, count("location__like", "ber%"))
	assert.Equal(t, 1, count("location__ilike", "ber%"))
	assert.Equal(t, 1, count("location__contains", "erl"))
	assert.Equal(t, 0, count("location__contains", "%"))
}

func TestQuery_CompileErrorIsYielded(t *testing.T) {
	s := createTestStore(t)
	var errs []error
	for _, err := range s.Query(context.Background(), schema.CWEPR, queryir.Select{}) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "compile query")
}

func TestConstraintColumn(t *testing.T) {
	assert.Equal(t, "name", constraintColumn("UNIQUE constraint failed: molecules.name"))
	assert.Equal(t, "ms_id", constraintColumn("UNIQUE constraint failed: measurements.ms_id"))
	assert.Equal(t, "", constraintColumn("disk I/O error"))
}
