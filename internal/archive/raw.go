package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/specatalog/internal/bes3t"
	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/h5"
)

// Format tags a raw-data file format.
type Format string

// FormatBrukerBES3T is a .DSC descriptor with a .DTA data file.
const FormatBrukerBES3T Format = "bruker_bes3t"

// supportedFormats maps each format to the extensions it requires.
var supportedFormats = []struct {
	format Format
	exts   []string
}{
	{FormatBrukerBES3T, []string{".dsc", ".dta"}},
}

// ParseFormat validates a format tag.
func ParseFormat(s string) (Format, error) {
	for _, sf := range supportedFormats {
		if string(sf.format) == s {
			return sf.format, nil
		}
	}
	return "", catalogerr.Validation("", "format", "unknown raw data format %q", s)
}

// DetectSupportedFormat returns the first format whose extensions are all
// present among the files of dir, or "" if none matches.
func DetectSupportedFormat(dir string) (Format, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", dir, err)
	}
	present := map[string]bool{}
	for _, e := range entries {
		if e.Type().IsRegular() {
			present[strings.ToLower(filepath.Ext(e.Name()))] = true
		}
	}

	for _, sf := range supportedFormats {
		all := true
		for _, ext := range sf.exts {
			all = all && present[ext]
		}
		if all {
			return sf.format, nil
		}
	}
	return "", nil
}

// bes3tExts are the extensions of files that belong to a BES3T dataset.
var bes3tExts = map[string]bool{".dsc": true, ".dta": true, ".xgf": true, ".ygf": true, ".zgf": true}

// RawCopy is a raw dataset copied into a raw folder. Undo puts the folder
// back as it was; Commit drops the files the copy replaced.
type RawCopy struct {
	Files []string

	added    []string
	replaced *Grave
}

// Undo removes the copied files and restores the ones they replaced.
func (rc *RawCopy) Undo() error {
	var errs []error
	for _, p := range rc.added {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", p, err))
		}
	}
	rc.added = nil
	if rc.replaced != nil {
		errs = append(errs, rc.replaced.Restore())
		rc.replaced = nil
	}
	return errors.Join(errs...)
}

// Commit deletes the replaced files for good.
func (rc *RawCopy) Commit() error {
	rc.added = nil
	if rc.replaced == nil {
		return nil
	}
	err := rc.replaced.Purge()
	rc.replaced = nil
	return err
}

// RawDataToFolder copies the files of a raw dataset into the raw category.
// base is the source path without extension. Files of the same dataset
// already in the folder are replaced; a folder holding a dataset under
// another name is left alone and the copy fails with a validation error.
// On failure nothing in the folder has changed.
func (l *Layout) RawDataToFolder(id int64, base string, format Format) (*RawCopy, error) {
	if format != FormatBrukerBES3T {
		return nil, catalogerr.Validation("", "format", "unknown raw data format %q", format)
	}
	dir, err := l.MeasurementPath(id)
	if err != nil {
		return nil, err
	}

	var sources []string
	for _, ext := range []string{".DSC", ".DTA"} {
		src, ok := withExt(base, ext)
		if !ok {
			return nil, catalogerr.MissingPath(base + ext)
		}
		sources = append(sources, src)
	}
	for _, ext := range []string{".XGF", ".YGF", ".ZGF"} {
		if src, ok := withExt(base, ext); ok {
			sources = append(sources, src)
		}
	}

	rawDir := filepath.Join(dir, "raw")
	names := map[string]bool{}
	for _, src := range sources {
		names[filepath.Base(src)] = true
	}
	entries, err := os.ReadDir(rawDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", rawDir, err)
	}
	var replaced []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !bes3tExts[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		if !names[name] {
			return nil, catalogerr.Validation("", "raw", "raw folder of M%d already holds %s; remove it before importing %s", id, name, filepath.Base(base))
		}
		replaced = append(replaced, filepath.Join(rawDir, name))
	}

	rc := &RawCopy{}
	if len(replaced) > 0 {
		if rc.replaced, err = l.Bury(replaced...); err != nil {
			return nil, err
		}
	}
	for _, src := range sources {
		target, err := l.AddFile(id, "raw", src, false)
		if err != nil {
			return nil, errors.Join(err, rc.Undo())
		}
		rc.added = append(rc.added, target)
		rc.Files = append(rc.Files, target)
	}
	return rc, nil
}

// withExt returns base+ext in upper or lower case, whichever exists.
func withExt(base, ext string) (string, bool) {
	for _, p := range []string{base + ext, base + strings.ToLower(ext)} {
		if exists(p) {
			return p, true
		}
	}
	return "", false
}

// RawDataToHDF5 converts the raw data in the raw category into the
// raw_data group of the measurement's HDF5 file:
//
//	raw_data/data       real-valued spectra only
//	raw_data/data_real
//	raw_data/data_imag  zeros for real-valued spectra
//	raw_data/xaxis      single axis, or axis_0..axis_n for several
//
// The descriptor parameters become attributes of raw_data. Existing
// datasets are replaced only when overwrite is set; without it, any
// conflict fails the import before a dataset is written.
func (l *Layout) RawDataToHDF5(id int64, overwrite bool) (*bes3t.Spectrum, error) {
	dir, err := l.MeasurementPath(id)
	if err != nil {
		return nil, err
	}
	rawDir := filepath.Join(dir, "raw")

	format, err := DetectSupportedFormat(rawDir)
	if err != nil {
		return nil, err
	}
	if format == "" {
		return nil, catalogerr.Validation("", "format", "no supported raw data format in %s", rawDir)
	}

	base, err := bes3tBase(rawDir)
	if err != nil {
		return nil, err
	}
	spec, err := bes3t.Load(base)
	if err != nil {
		return nil, fmt.Errorf("import raw data of M%d: %w", id, err)
	}

	dims := make([]uint, 0, len(spec.Dims))
	for i := len(spec.Dims) - 1; i >= 0; i-- {
		dims = append(dims, uint(spec.Dims[i]))
	}

	imag := spec.Imag
	if imag == nil {
		imag = make([]float64, len(spec.Real))
	}
	sets := []h5.Dataset{
		{Name: h5.GroupRaw + "/data_real", Dims: dims, Data: spec.Real},
		{Name: h5.GroupRaw + "/data_imag", Dims: dims, Data: imag},
	}
	if !spec.Complex() {
		sets = append([]h5.Dataset{{Name: h5.GroupRaw + "/data", Dims: dims, Data: spec.Real}}, sets...)
	}
	if len(spec.Axes) == 1 {
		sets = append(sets, h5.Vector(h5.GroupRaw+"/xaxis", spec.Axes[0]))
	} else {
		for i, axis := range spec.Axes {
			sets = append(sets, h5.Vector(fmt.Sprintf("%s/axis_%d", h5.GroupRaw, i), axis))
		}
	}

	err = h5.With(l.HDF5Path(id), h5.ReadWrite, func(f *h5.File) error {
		if !overwrite {
			for _, d := range sets {
				if f.Has(d.Name) {
					return catalogerr.DuplicateDataset(f.Path(), d.Name)
				}
			}
		}
		for _, d := range sets {
			if err := f.Write(d, overwrite); err != nil {
				return err
			}
		}
		return f.SetAttrs(h5.GroupRaw, spec.Params)
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("raw data imported", "ms_id", id, "format", format, "datasets", len(sets), "attrs", len(spec.Params))
	return spec, nil
}

// bes3tBase finds the single DSC/DTA pair in dir and returns its path
// without extension.
func bes3tBase(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", dir, err)
	}

	var dsc, dta []string
	for _, e := range entries {
		name := e.Name()
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		switch strings.ToLower(filepath.Ext(name)) {
		case ".dsc":
			dsc = append(dsc, stem)
		case ".dta":
			dta = append(dta, stem)
		}
	}
	sort.Strings(dsc)
	sort.Strings(dta)

	if len(dsc) != 1 || len(dta) != 1 {
		return "", catalogerr.Validation("", "raw", "expected exactly one DSC and one DTA file in %s, found %d and %d", dir, len(dsc), len(dta))
	}
	if dsc[0] != dta[0] {
		return "", catalogerr.Validation("", "raw", "DSC and DTA base names differ: %q and %q", dsc[0], dta[0])
	}
	return filepath.Join(dir, dsc[0]), nil
}

// LoadFromID loads the object tree of a measurement's HDF5 file.
func (l *Layout) LoadFromID(id int64) (h5.Node, error) {
	if _, err := l.MeasurementPath(id); err != nil {
		return h5.Node{}, err
	}
	return h5.Load(l.HDF5Path(id))
}

// WithHDF5 opens a measurement's HDF5 file for the duration of fn.
func (l *Layout) WithHDF5(id int64, mode h5.Mode, fn func(*h5.File) error) error {
	if _, err := l.MeasurementPath(id); err != nil {
		return err
	}
	return h5.With(l.HDF5Path(id), mode, fn)
}
