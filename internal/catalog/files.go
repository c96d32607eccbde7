package catalog

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/roach88/specatalog/internal/archive"
	"github.com/roach88/specatalog/internal/bes3t"
	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/h5"
	"github.com/roach88/specatalog/internal/schema"
)

// requireMeasurement fails with NotFound unless the record exists.
func (c *Catalog) requireMeasurement(ctx context.Context, id int64) error {
	ok, err := c.store.Exists(ctx, schema.FamilyMeasurement, id)
	if err != nil {
		return err
	}
	if !ok {
		return catalogerr.NotFound(schema.Measurement.Name, id)
	}
	return nil
}

// AddFile copies src into a category folder of measurement id.
func (c *Catalog) AddFile(ctx context.Context, id int64, category, src string, overwrite bool) (target string, err error) {
	_, done := c.begin(ctx, "add_file")
	defer done(&err)

	if err := c.requireMeasurement(ctx, id); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layout.AddFile(id, category, src, overwrite)
}

// ListFiles lists the files of measurement id, optionally in one category.
func (c *Catalog) ListFiles(ctx context.Context, id int64, category string) ([]string, error) {
	if err := c.requireMeasurement(ctx, id); err != nil {
		return nil, err
	}
	return c.layout.ListFiles(id, category)
}

// RemoveFile deletes one file from a category folder of measurement id.
func (c *Catalog) RemoveFile(ctx context.Context, id int64, category, name string) (err error) {
	_, done := c.begin(ctx, "remove_file")
	defer done(&err)

	if err := c.requireMeasurement(ctx, id); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layout.RemoveFile(id, category, name)
}

// ImportRawData copies a raw dataset (base is the path without extension)
// into the raw folder of measurement id and converts it into the raw_data
// group of the HDF5 file. An empty format is detected from the files next
// to base. If the conversion fails, the raw folder is restored.
func (c *Catalog) ImportRawData(ctx context.Context, id int64, base string, format archive.Format, overwrite bool) (spec *bes3t.Spectrum, err error) {
	log, done := c.begin(ctx, "import_raw_data")
	defer done(&err)

	if err := c.requireMeasurement(ctx, id); err != nil {
		return nil, err
	}
	if format == "" {
		if format, err = archive.DetectSupportedFormat(filepath.Dir(base)); err != nil {
			return nil, err
		}
		if format == "" {
			return nil, catalogerr.Validation("", "format", "no supported raw data format next to %s", base)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rc, err := c.layout.RawDataToFolder(id, base, format)
	if err != nil {
		return nil, err
	}
	spec, err = c.layout.RawDataToHDF5(id, overwrite)
	if err != nil {
		if undoErr := rc.Undo(); undoErr != nil {
			return nil, catalogerr.IOConsistency(schema.Measurement.Name, id, false, errors.Join(err, undoErr))
		}
		return nil, err
	}
	if err := rc.Commit(); err != nil {
		log.Warn("purging replaced raw files failed", "ms_id", id, "err", err)
	}
	log.Info("raw data imported", "ms_id", id, "format", format, "dims", spec.Dims)
	return spec, nil
}

// WriteDataset adds a dataset to the HDF5 file of measurement id. An
// existing dataset is replaced only when overwrite is set.
func (c *Catalog) WriteDataset(ctx context.Context, id int64, d h5.Dataset, overwrite bool) (err error) {
	log, done := c.begin(ctx, "write_dataset")
	defer done(&err)

	if err := c.requireMeasurement(ctx, id); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.layout.WithHDF5(id, h5.ReadWrite, func(f *h5.File) error {
		return f.Write(d, overwrite)
	})
	if err != nil {
		return err
	}
	log.Info("dataset written", "ms_id", id, "dataset", d.Name, "dims", d.Dims)
	return nil
}

// DeleteDataset unlinks a dataset or subgroup from the HDF5 file of
// measurement id.
func (c *Catalog) DeleteDataset(ctx context.Context, id int64, name string) (err error) {
	log, done := c.begin(ctx, "delete_dataset")
	defer done(&err)

	if err := c.requireMeasurement(ctx, id); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.layout.WithHDF5(id, h5.ReadWrite, func(f *h5.File) error {
		return f.Delete(name)
	})
	if err != nil {
		return err
	}
	log.Info("dataset deleted", "ms_id", id, "dataset", name)
	return nil
}

// SetAttrs stores string attributes on a group or dataset of the HDF5 file
// of measurement id.
func (c *Catalog) SetAttrs(ctx context.Context, id int64, object string, attrs map[string]string) (err error) {
	log, done := c.begin(ctx, "set_attrs")
	defer done(&err)

	if err := c.requireMeasurement(ctx, id); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.layout.WithHDF5(id, h5.ReadWrite, func(f *h5.File) error {
		return f.SetAttrs(object, attrs)
	})
	if err != nil {
		return err
	}
	log.Info("attributes set", "ms_id", id, "object", object, "count", len(attrs))
	return nil
}

// DeleteAttr removes one attribute from a group or dataset of the HDF5
// file of measurement id.
func (c *Catalog) DeleteAttr(ctx context.Context, id int64, object, key string) (err error) {
	log, done := c.begin(ctx, "delete_attr")
	defer done(&err)

	if err := c.requireMeasurement(ctx, id); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.layout.WithHDF5(id, h5.ReadWrite, func(f *h5.File) error {
		return f.DeleteAttr(object, key)
	})
	if err != nil {
		return err
	}
	log.Info("attribute deleted", "ms_id", id, "object", object, "key", key)
	return nil
}

// Attrs returns the attributes of a group or dataset of the HDF5 file of
// measurement id.
func (c *Catalog) Attrs(ctx context.Context, id int64, object string) (map[string]string, error) {
	if err := c.requireMeasurement(ctx, id); err != nil {
		return nil, err
	}
	var attrs map[string]string
	err := c.layout.WithHDF5(id, h5.ReadOnly, func(f *h5.File) error {
		var err error
		attrs, err = f.Attrs(object)
		return err
	})
	return attrs, err
}

// ReadDataset reads one dataset from the HDF5 file of measurement id.
func (c *Catalog) ReadDataset(ctx context.Context, id int64, name string) (h5.Dataset, error) {
	if err := c.requireMeasurement(ctx, id); err != nil {
		return h5.Dataset{}, err
	}
	var d h5.Dataset
	err := c.layout.WithHDF5(id, h5.ReadOnly, func(f *h5.File) error {
		var err error
		d, err = f.Read(name)
		return err
	})
	return d, err
}

// LoadH5 returns the object tree of the HDF5 file of measurement id.
func (c *Catalog) LoadH5(ctx context.Context, id int64) (h5.Node, error) {
	if err := c.requireMeasurement(ctx, id); err != nil {
		return h5.Node{}, err
	}
	return c.layout.LoadFromID(id)
}
