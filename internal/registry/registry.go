// Package registry loads the user-editable allowed-values file that
// constrains enum fields. The file is CUE: each top-level field names a set
// and holds a list of strings.
//
//	solvents: ["toluene", "water"]
//	frequency_bands: ["", "S", "X", "Q", "W"]
//
// A Registry can be reloaded while the process runs; readers always see
// one complete table.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sort"
	"sync/atomic"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/schema"
)

// Table maps set names to their allowed values.
type Table map[string][]string

// Lookup implements schema.AllowedValues.
func (t Table) Lookup(set string) ([]string, bool) {
	values, ok := t[set]
	return values, ok
}

// Sets returns the set names in sorted order.
func (t Table) Sets() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Missing returns the enum sets referenced by the entity schema that t does
// not define.
func (t Table) Missing() []string {
	var missing []string
	for _, e := range schema.All() {
		for _, f := range e.Fields() {
			if f.Type != schema.TypeEnum {
				continue
			}
			if _, ok := t[f.Enum]; !ok && !slices.Contains(missing, f.Enum) {
				missing = append(missing, f.Enum)
			}
		}
	}
	sort.Strings(missing)
	return missing
}

// Parse compiles CUE source into a table. filename is used in error
// positions only.
func Parse(filename string, src []byte) (Table, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(filename, err)
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, cueError(filename, err)
	}

	t := Table{}
	for iter.Next() {
		set := iter.Selector().Unquoted()
		values, err := parseList(iter.Value())
		if err != nil {
			return nil, catalogerr.Configuration("", "%s: set %q: %v", filename, set, err)
		}
		t[set] = values
	}
	return t, nil
}

func parseList(v cue.Value) ([]string, error) {
	if v.IncompleteKind() != cue.ListKind {
		return nil, fmt.Errorf("expected a list of strings, got %s", v.IncompleteKind())
	}
	list, err := v.List()
	if err != nil {
		return nil, err
	}

	values := []string{}
	for list.Next() {
		s, err := list.Value().String()
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", len(values), err)
		}
		if slices.Contains(values, s) {
			return nil, fmt.Errorf("duplicate value %q", s)
		}
		values = append(values, s)
	}
	return values, nil
}

// cueError reports the first CUE error with its position.
func cueError(filename string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return catalogerr.Configuration("", "%s: %v", filename, err)
	}
	first := errs[0]
	if pos := cueerrors.Positions(first); len(pos) > 0 {
		return catalogerr.Configuration("", "%s:%d:%d: %v", filename, pos[0].Line(), pos[0].Column(), first)
	}
	return catalogerr.Configuration("", "%s: %v", filename, first)
}

// Load reads and parses the file at path.
func Load(path string) (Table, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read allowed values: %w", err)
	}
	return Parse(path, src)
}

// Registry holds the current table loaded from a file.
type Registry struct {
	path   string
	table  atomic.Pointer[Table]
	logger *slog.Logger
}

// Open loads the file at path.
func Open(path string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{path: path, logger: logger}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Static returns a registry over a fixed table that cannot be reloaded.
func Static(t Table) *Registry {
	r := &Registry{logger: slog.Default()}
	r.table.Store(&t)
	return r
}

// Path returns the backing file, or "" for a static registry.
func (r *Registry) Path() string {
	return r.path
}

// Reload re-reads the file. On error the previous table stays in effect.
func (r *Registry) Reload() error {
	if r.path == "" {
		return errors.New("reload allowed values: registry has no file")
	}
	t, err := Load(r.path)
	if err != nil {
		return err
	}
	if missing := t.Missing(); len(missing) > 0 {
		r.logger.Warn("allowed values file lacks sets", "path", r.path, "missing", missing)
	}
	r.table.Store(&t)
	r.logger.Debug("allowed values loaded", "path", r.path, "sets", len(t))
	return nil
}

// Table returns the current table.
func (r *Registry) Table() Table {
	return *r.table.Load()
}

// Lookup implements schema.AllowedValues against the current table.
func (r *Registry) Lookup(set string) ([]string, bool) {
	return r.Table().Lookup(set)
}
