package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/specatalog/internal/catalogerr"
)

// AddFile copies src into a category folder of a measurement, keeping its
// base name, mode and modification time. An existing target is replaced
// only when overwrite is set.
func (l *Layout) AddFile(id int64, category, src string, overwrite bool) (string, error) {
	if err := CheckCategory(category); err != nil {
		return "", err
	}
	dir, err := l.MeasurementPath(id)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(src)
	if errors.Is(err, fs.ErrNotExist) {
		return "", catalogerr.MissingPath(src)
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", src, err)
	}
	if info.IsDir() {
		return "", catalogerr.Validation("", "file", "%s is a directory", src)
	}

	targetDir := filepath.Join(dir, category)
	if err := os.MkdirAll(targetDir, dirPerm); err != nil {
		return "", fmt.Errorf("create %s: %w", targetDir, err)
	}

	target := filepath.Join(targetDir, filepath.Base(src))
	if exists(target) && !overwrite {
		return "", catalogerr.AlreadyExists(target)
	}

	if err := copyFile(src, target, info); err != nil {
		return "", err
	}
	l.logger.Info("file added", "ms_id", id, "category", category, "path", target)
	return target, nil
}

// copyFile writes src to dst through a temporary file in dst's directory,
// so a failed copy never leaves a truncated target.
func copyFile(src, dst string, info fs.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", dst, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		cleanup()
		return fmt.Errorf("chmod %s: %w", dst, err)
	}
	if err := os.Chtimes(tmpName, info.ModTime(), info.ModTime()); err != nil {
		cleanup()
		return fmt.Errorf("chtimes %s: %w", dst, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		cleanup()
		return fmt.Errorf("rename to %s: %w", dst, err)
	}
	return nil
}

// ListFiles returns the files of a measurement below category, or below
// the measurement directory when category is empty. Paths are relative to
// the measurement directory, slash-separated and sorted. A missing category
// folder yields an empty list.
func (l *Layout) ListFiles(id int64, category string) ([]string, error) {
	if category != "" {
		if err := CheckCategory(category); err != nil {
			return nil, err
		}
	}
	dir, err := l.MeasurementPath(id)
	if err != nil {
		return nil, err
	}

	root := filepath.Join(dir, category)
	files := []string{}
	if !isDir(root) {
		return files, nil
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list files of M%d: %w", id, err)
	}
	sort.Strings(files)
	return files, nil
}

// RemoveFile deletes one file from a category folder.
func (l *Layout) RemoveFile(id int64, category, name string) error {
	if err := CheckCategory(category); err != nil {
		return err
	}
	if name == "" || strings.Contains(name, "..") || filepath.IsAbs(name) {
		return catalogerr.Validation("", "file", "invalid file name %q", name)
	}
	dir, err := l.MeasurementPath(id)
	if err != nil {
		return err
	}

	target := filepath.Join(dir, category, filepath.FromSlash(name))
	info, err := os.Stat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return catalogerr.MissingPath(target)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", target, err)
	}
	if info.IsDir() {
		return catalogerr.Validation("", "file", "%s is a directory", target)
	}

	if err := os.Remove(target); err != nil {
		return fmt.Errorf("remove %s: %w", target, err)
	}
	l.logger.Info("file removed", "ms_id", id, "category", category, "path", target)
	return nil
}

// Rename records one file rename so it can be undone.
type Rename struct {
	From string
	To   string
}

// RenameStem renames every file in dir whose name without extension equals
// oldStem to newStem, keeping the extension. Nothing is renamed if any
// target already exists. A missing dir renames nothing. A new stem that
// would leave dir is rejected.
func RenameStem(dir, oldStem, newStem string) ([]Rename, error) {
	if oldStem == newStem {
		return nil, nil
	}
	if newStem == "" || filepath.Dir(filepath.Join(dir, newStem+".x")) != filepath.Clean(dir) {
		return nil, catalogerr.Validation("", "name", "%q cannot be used as a file name", newStem)
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var plan []Rename
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if strings.TrimSuffix(e.Name(), ext) != oldStem {
			continue
		}
		to := filepath.Join(dir, newStem+ext)
		if exists(to) {
			return nil, catalogerr.AlreadyExists(to)
		}
		plan = append(plan, Rename{From: filepath.Join(dir, e.Name()), To: to})
	}

	for i, r := range plan {
		if err := os.Rename(r.From, r.To); err != nil {
			undoErr := UndoRenames(plan[:i])
			return nil, errors.Join(fmt.Errorf("rename %s: %w", r.From, err), undoErr)
		}
	}
	return plan, nil
}

// UndoRenames reverses renames in reverse order.
func UndoRenames(renames []Rename) error {
	var errs []error
	for i := len(renames) - 1; i >= 0; i-- {
		r := renames[i]
		if err := os.Rename(r.To, r.From); err != nil {
			errs = append(errs, fmt.Errorf("undo rename %s: %w", r.To, err))
		}
	}
	return errors.Join(errs...)
}
