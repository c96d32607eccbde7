// Package h5 reads and writes the per-measurement HDF5 files.
//
// Every measurement file holds three groups: raw_data, corrected_data and
// evaluations. Datasets are float64 arrays addressed by slash-separated
// paths ("raw_data/data_real").
//
// Files are acquired per call: With opens the file, runs a function and
// closes the file on every exit path. The HDF5 library is not reentrant,
// so all access in this package is serialized.
package h5

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"

	"gonum.org/v1/hdf5"

	"github.com/roach88/specatalog/internal/catalogerr"
)

// Groups created in every new measurement file.
const (
	GroupRaw         = "raw_data"
	GroupCorrected   = "corrected_data"
	GroupEvaluations = "evaluations"
)

// Groups lists the top-level groups in creation order.
var Groups = []string{GroupRaw, GroupCorrected, GroupEvaluations}

// Mode selects read-only or read-write access.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

var libMu sync.Mutex

// File is an open measurement file. Obtain one through With.
type File struct {
	f        *hdf5.File
	path     string
	writable bool
}

// Create makes a new measurement file with the standard groups.
// Fails with AlreadyExists if the file is present.
func Create(filename string) error {
	libMu.Lock()
	defer libMu.Unlock()

	if _, err := os.Stat(filename); err == nil {
		return catalogerr.AlreadyExists(filename)
	}

	f, err := hdf5.CreateFile(filename, hdf5.F_ACC_EXCL)
	if err != nil {
		return fmt.Errorf("create %s: %w", filename, err)
	}

	var errs []error
	for _, name := range Groups {
		g, err := f.CreateGroup(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("create group %s: %w", name, err))
			continue
		}
		errs = append(errs, g.Close())
	}
	errs = append(errs, f.Close())
	return errors.Join(errs...)
}

// With opens filename, runs fn and closes the file, also when fn fails.
func With(filename string, mode Mode, fn func(*File) error) (err error) {
	libMu.Lock()
	defer libMu.Unlock()

	if _, statErr := os.Stat(filename); errors.Is(statErr, fs.ErrNotExist) {
		return catalogerr.MissingPath(filename)
	}

	flags := hdf5.F_ACC_RDONLY
	if mode == ReadWrite {
		flags = hdf5.F_ACC_RDWR
	}
	f, err := hdf5.OpenFile(filename, flags)
	if err != nil {
		return fmt.Errorf("open %s: %w", filename, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close %s: %w", filename, cerr))
		}
	}()

	return fn(&File{f: f, path: filename, writable: mode == ReadWrite})
}

// Path returns the file name.
func (f *File) Path() string {
	return f.path
}

// Has reports whether an object exists at name.
func (f *File) Has(name string) bool {
	name = clean(name)
	if name == "" {
		return true
	}
	parts := strings.Split(name, "/")
	for i := range parts {
		if !f.f.LinkExists(strings.Join(parts[:i+1], "/")) {
			return false
		}
	}
	return true
}

// clean normalizes a dataset path to "a/b" form.
func clean(name string) string {
	name = path.Clean("/" + name)
	return strings.TrimPrefix(name, "/")
}
