package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Grave holds paths moved into the trash by Bury. Restore puts them
// back; Purge deletes them for good.
type Grave struct {
	dir    string
	moves  []Rename
	layout *Layout
}

// Bury moves the given directories or files into a fresh trash entry.
// Paths that do not exist are skipped. If a move fails, the ones already moved
// are restored and the error is returned.
func (l *Layout) Bury(dirs ...string) (*Grave, error) {
	entry := filepath.Join(l.BaseDir, TrashDir, l.newID())
	if err := os.MkdirAll(entry, dirPerm); err != nil {
		return nil, fmt.Errorf("create trash entry: %w", err)
	}

	g := &Grave{dir: entry, layout: l}
	for i, dir := range dirs {
		if !exists(dir) {
			l.logger.Warn("directory to delete is missing", "path", dir)
			continue
		}
		to := filepath.Join(entry, strconv.Itoa(i)+"_"+filepath.Base(dir))
		if err := os.Rename(dir, to); err != nil {
			restoreErr := g.Restore()
			return nil, errors.Join(fmt.Errorf("move %s to trash: %w", dir, err), restoreErr)
		}
		g.moves = append(g.moves, Rename{From: dir, To: to})
	}
	return g, nil
}

// Len returns the number of directories buried.
func (g *Grave) Len() int {
	return len(g.moves)
}

// Restore moves every buried directory back and removes the trash entry.
func (g *Grave) Restore() error {
	err := UndoRenames(g.moves)
	g.moves = nil
	if err != nil {
		return err
	}
	return os.RemoveAll(g.dir)
}

// Purge permanently deletes the trash entry.
func (g *Grave) Purge() error {
	if err := os.RemoveAll(g.dir); err != nil {
		return fmt.Errorf("purge %s: %w", g.dir, err)
	}
	g.moves = nil
	return nil
}
