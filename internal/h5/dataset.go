package h5

import (
	"fmt"
	"path"
	"strings"

	"gonum.org/v1/hdf5"

	"github.com/roach88/specatalog/internal/catalogerr"
)

// Dataset is an array read from or written to a file.
type Dataset struct {
	Name string
	Dims []uint
	Data []float64
}

// Len returns the number of elements the dims describe.
func (d Dataset) Len() int {
	if len(d.Dims) == 0 {
		return 0
	}
	n := 1
	for _, dim := range d.Dims {
		n *= int(dim)
	}
	return n
}

// Vector builds a one-dimensional dataset.
func Vector(name string, data []float64) Dataset {
	return Dataset{Name: name, Dims: []uint{uint(len(data))}, Data: data}
}

// Read loads a float64 dataset.
func (f *File) Read(name string) (Dataset, error) {
	name = clean(name)
	if !f.Has(name) {
		return Dataset{}, catalogerr.MissingPath(f.path + ":" + name)
	}

	dset, err := f.f.OpenDataset(name)
	if err != nil {
		return Dataset{}, fmt.Errorf("open dataset %s: %w", name, err)
	}
	defer dset.Close()

	if err := checkFloat64(dset); err != nil {
		return Dataset{}, fmt.Errorf("read %s: %w", name, err)
	}

	space := dset.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return Dataset{}, fmt.Errorf("read %s dims: %w", name, err)
	}

	out := Dataset{Name: name, Dims: dims}
	out.Data = make([]float64, out.Len())
	if len(out.Data) == 0 {
		return out, nil
	}
	if err := dset.Read(&out.Data); err != nil {
		return Dataset{}, fmt.Errorf("read %s: %w", name, err)
	}
	return out, nil
}

// Write stores d. An existing dataset is replaced only when overwrite is
// set, and only in place with identical dims, since HDF5 cannot reclaim
// the old storage.
func (f *File) Write(d Dataset, overwrite bool) error {
	if !f.writable {
		return fmt.Errorf("write %s: file %s is open read-only", d.Name, f.path)
	}

	name := clean(d.Name)
	if name == "" {
		return catalogerr.Validation("", "dataset", "dataset name is empty")
	}
	if len(d.Data) == 0 {
		return catalogerr.Validation("", "dataset", "dataset %s has no data", name)
	}
	if d.Len() != len(d.Data) {
		return catalogerr.Validation("", "dataset", "dataset %s: dims %v describe %d values, got %d", name, d.Dims, d.Len(), len(d.Data))
	}

	if f.Has(name) {
		if !overwrite {
			return catalogerr.DuplicateDataset(f.path, name)
		}
		return f.overwrite(name, d)
	}

	if err := f.ensureGroups(path.Dir(name)); err != nil {
		return err
	}

	space, err := hdf5.CreateSimpleDataspace(d.Dims, nil)
	if err != nil {
		return fmt.Errorf("create dataspace %s: %w", name, err)
	}
	defer space.Close()

	dset, err := f.f.CreateDataset(name, hdf5.T_NATIVE_DOUBLE, space)
	if err != nil {
		return fmt.Errorf("create dataset %s: %w", name, err)
	}
	defer dset.Close()

	data := d.Data
	if err := dset.Write(&data); err != nil {
		return fmt.Errorf("write dataset %s: %w", name, err)
	}
	return nil
}

func (f *File) overwrite(name string, d Dataset) error {
	dset, err := f.f.OpenDataset(name)
	if err != nil {
		return fmt.Errorf("open dataset %s: %w", name, err)
	}
	defer dset.Close()

	if err := checkFloat64(dset); err != nil {
		return fmt.Errorf("overwrite %s: %w", name, err)
	}

	space := dset.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return fmt.Errorf("overwrite %s dims: %w", name, err)
	}
	if !sameDims(dims, d.Dims) {
		return catalogerr.Validation("", "dataset", "cannot overwrite %s: dims %v differ from stored %v", name, d.Dims, dims)
	}

	data := d.Data
	if err := dset.Write(&data); err != nil {
		return fmt.Errorf("overwrite dataset %s: %w", name, err)
	}
	return nil
}

// ensureGroups creates the groups along dir that do not exist yet.
func (f *File) ensureGroups(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	parts := strings.Split(dir, "/")
	for i := range parts {
		prefix := strings.Join(parts[:i+1], "/")
		if f.f.LinkExists(prefix) {
			continue
		}
		g, err := f.f.CreateGroup(prefix)
		if err != nil {
			return fmt.Errorf("create group %s: %w", prefix, err)
		}
		if err := g.Close(); err != nil {
			return fmt.Errorf("close group %s: %w", prefix, err)
		}
	}
	return nil
}

func checkFloat64(dset *hdf5.Dataset) error {
	dtype, err := dset.Datatype()
	if err != nil {
		return fmt.Errorf("datatype: %w", err)
	}
	defer dtype.Close()

	if dtype.Class() != hdf5.T_FLOAT || dtype.Size() != 8 {
		return fmt.Errorf("unsupported datatype (class %v, %d bytes); only float64 is supported", dtype.Class(), dtype.Size())
	}
	return nil
}

func sameDims(a, b []uint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
