// Package archive manages the on-disk layout of an archive:
//
//	base_dir/
//	  specatalog.db
//	  allowed_values.cue
//	  data/M{id}/{raw,scripts,figures,additional_info,literature}/
//	  data/M{id}/measurement_M{id}.h5
//	  molecules/MOL{id}/
//	  .trash/
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/uuid"

	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/h5"
)

// Fixed names below the base directory.
const (
	DataDir           = "data"
	MoleculesDir      = "molecules"
	TrashDir          = ".trash"
	DatabaseFile      = "specatalog.db"
	AllowedValuesFile = "allowed_values.cue"
)

// Categories are the subfolders of every measurement directory.
var Categories = []string{"raw", "scripts", "figures", "additional_info", "literature"}

const dirPerm = 0o755

// Layout resolves and materializes archive paths below BaseDir.
type Layout struct {
	BaseDir string

	logger *slog.Logger
	newID  func() string
}

// Option configures a Layout.
type Option func(*Layout)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(lay *Layout) {
		lay.logger = l
	}
}

// WithIDGenerator replaces the UUID generator used for trash entries.
func WithIDGenerator(gen func() string) Option {
	return func(lay *Layout) {
		lay.newID = gen
	}
}

// New returns the layout rooted at baseDir, which must be absolute.
func New(baseDir string, opts ...Option) (*Layout, error) {
	if !filepath.IsAbs(baseDir) {
		return nil, catalogerr.Configuration("", "base_dir %q must be an absolute path", baseDir)
	}
	l := &Layout{
		BaseDir: filepath.Clean(baseDir),
		logger:  slog.Default(),
		newID:   func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Init creates the top-level directories. Existing directories are kept.
func (l *Layout) Init() error {
	for _, dir := range []string{l.BaseDir, l.Abs(DataDir), l.Abs(MoleculesDir)} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Abs joins a slash-separated relative path onto the base directory.
func (l *Layout) Abs(rel string) string {
	return filepath.Join(l.BaseDir, filepath.FromSlash(rel))
}

// DatabasePath returns the path of the relational store file.
func (l *Layout) DatabasePath() string {
	return l.Abs(DatabaseFile)
}

// AllowedValuesPath returns the path of the allowed-values file.
func (l *Layout) AllowedValuesPath() string {
	return l.Abs(AllowedValuesFile)
}

// MeasurementRel returns the stored path of a measurement ("data/M7").
func MeasurementRel(id int64) string {
	return fmt.Sprintf("%s/M%d", DataDir, id)
}

// MoleculeRel returns the stored path of a molecule ("molecules/MOL3").
func MoleculeRel(id int64) string {
	return fmt.Sprintf("%s/MOL%d", MoleculesDir, id)
}

// HDF5Name returns the file name of a measurement's HDF5 file.
func HDF5Name(id int64) string {
	return fmt.Sprintf("measurement_M%d.h5", id)
}

// MeasurementDir returns the absolute measurement directory, existing or not.
func (l *Layout) MeasurementDir(id int64) string {
	return l.Abs(MeasurementRel(id))
}

// MoleculeDir returns the absolute molecule directory, existing or not.
func (l *Layout) MoleculeDir(id int64) string {
	return l.Abs(MoleculeRel(id))
}

// HDF5Path returns the absolute path of a measurement's HDF5 file.
func (l *Layout) HDF5Path(id int64) string {
	return filepath.Join(l.MeasurementDir(id), HDF5Name(id))
}

// MeasurementPath returns the measurement directory, failing with
// NotFound if it does not exist.
func (l *Layout) MeasurementPath(id int64) (string, error) {
	dir := l.MeasurementDir(id)
	if !isDir(dir) {
		return "", catalogerr.MissingPath(dir)
	}
	return dir, nil
}

// CreateMeasurementDir creates the measurement directory, its category
// folders and its HDF5 file. Fails with AlreadyExists if the directory is
// present. A partially created directory is removed on failure.
func (l *Layout) CreateMeasurementDir(id int64) (dir string, err error) {
	dir = l.MeasurementDir(id)
	if err := l.claim(dir); err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			if rmErr := os.RemoveAll(dir); rmErr != nil {
				err = errors.Join(err, fmt.Errorf("remove partial %s: %w", dir, rmErr))
			}
		}
	}()

	for _, c := range Categories {
		if err := os.Mkdir(filepath.Join(dir, c), dirPerm); err != nil {
			return "", fmt.Errorf("create category %s: %w", c, err)
		}
	}
	if err := h5.Create(l.HDF5Path(id)); err != nil {
		return "", err
	}

	l.logger.Debug("measurement directory created", "ms_id", id, "path", dir)
	return dir, nil
}

// CreateMoleculeDir creates the molecule directory. Fails with
// AlreadyExists if it is present.
func (l *Layout) CreateMoleculeDir(id int64) (string, error) {
	dir := l.MoleculeDir(id)
	if err := l.claim(dir); err != nil {
		return "", err
	}
	l.logger.Debug("molecule directory created", "mol_id", id, "path", dir)
	return dir, nil
}

// claim creates dir, which must not exist yet. The parent is created if
// needed.
func (l *Layout) claim(dir string) error {
	if err := os.MkdirAll(filepath.Dir(dir), dirPerm); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(dir), err)
	}
	if err := os.Mkdir(dir, dirPerm); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return catalogerr.AlreadyExists(dir)
		}
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}

// CheckCategory validates a category name.
func CheckCategory(category string) error {
	if !slices.Contains(Categories, category) {
		return catalogerr.Validation("", "category", "invalid category %q (allowed: %v)", category, Categories)
	}
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
