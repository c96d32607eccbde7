package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/specatalog/internal/archive"
	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/schema"
	"github.com/roach88/specatalog/internal/store"
	"github.com/roach88/specatalog/internal/value"
)

// CreateMeasurement validates fields against the subtype e, allocates the
// next ms_id, inserts the record and creates data/M{id} with its category
// folders and HDF5 file. The referenced molecule must exist.
func (c *Catalog) CreateMeasurement(ctx context.Context, e *schema.Entity, fields map[string]value.Value) (id int64, err error) {
	log, done := c.begin(ctx, "create_measurement")
	defer done(&err)

	if e.Family != schema.FamilyMeasurement {
		return 0, catalogerr.Validation(e.Name, "", "%s is not a measurement type", e.Name)
	}
	values, err := schema.ValidateCreate(e, fields, c.allowed)
	if err != nil {
		return 0, err
	}
	molID, _ := values["molecular_id"].(value.Int)

	c.mu.Lock()
	defer c.mu.Unlock()

	id, err = c.allocate(ctx, log, e, func(tx *store.Tx, id int64) (undo func() error, err error) {
		if _, err := tx.Resolve(ctx, schema.FamilyMolecule, int64(molID)); err != nil {
			return nil, err
		}

		now := value.NewTime(c.timestamp())
		values["ms_id"] = value.Int(id)
		values["method"] = value.String(e.Name)
		values["path"] = value.String(archive.MeasurementRel(id))
		values["created_at"] = now
		values["updated_at"] = now
		if err := tx.Insert(ctx, e, values); err != nil {
			return nil, err
		}

		dir, err := c.layout.CreateMeasurementDir(id)
		if err != nil {
			return nil, err
		}
		return c.removeDir(dir), nil
	})
	if err != nil {
		return 0, err
	}

	log.Info("measurement created", "ms_id", id, "type", e.Name, "molecular_id", int64(molID))
	return id, nil
}

// CreateMolecule validates fields against the subtype e, allocates the next
// mol_id, computes the name of composite groups, inserts the record and
// creates molecules/MOL{id}.
func (c *Catalog) CreateMolecule(ctx context.Context, e *schema.Entity, fields map[string]value.Value) (id int64, err error) {
	log, done := c.begin(ctx, "create_molecule")
	defer done(&err)

	if e.Family != schema.FamilyMolecule {
		return 0, catalogerr.Validation(e.Name, "", "%s is not a molecule group", e.Name)
	}
	values, err := schema.ValidateCreate(e, fields, c.allowed)
	if err != nil {
		return 0, err
	}
	if e.ComputesName() {
		values["name"] = value.String(e.ComposeName(values))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id, err = c.allocate(ctx, log, e, func(tx *store.Tx, id int64) (func() error, error) {
		now := value.NewTime(c.timestamp())
		values["mol_id"] = value.Int(id)
		values["group"] = value.String(e.Name)
		values["structural_formula"] = value.String(archive.MoleculeRel(id))
		values["created_at"] = now
		values["updated_at"] = now
		if err := tx.Insert(ctx, e, values); err != nil {
			return nil, err
		}

		dir, err := c.layout.CreateMoleculeDir(id)
		if err != nil {
			return nil, err
		}
		return c.removeDir(dir), nil
	})
	if err != nil {
		return 0, err
	}

	log.Info("molecule created", "mol_id", id, "group", e.Name, "name", value.Format(values["name"]))
	return id, nil
}

// allocate reads max+1 for e's family and runs write with it inside one
// transaction. A key conflict retries with a fresh read up to maxAttempts
// times. write returns an undo for its filesystem side effects, which runs
// if the transaction fails to commit.
func (c *Catalog) allocate(ctx context.Context, log *slog.Logger, e *schema.Entity, write func(tx *store.Tx, id int64) (func() error, error)) (int64, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		var (
			id   int64
			undo func() error
		)
		err := c.store.InTx(ctx, func(tx *store.Tx) error {
			var err error
			if id, err = tx.NextID(ctx, e.Family); err != nil {
				return err
			}
			undo, err = write(tx, id)
			return err
		})
		if err == nil {
			return id, nil
		}

		if undo != nil {
			// write succeeded, so the commit failed.
			undoErr := undo()
			if undoErr != nil {
				log.Error("compensation failed", "id", id, "err", undoErr)
			} else {
				log.Warn("compensated failed commit", "id", id, "err", err)
			}
			return 0, catalogerr.IOConsistency(e.Name, id, undoErr == nil, errors.Join(err, undoErr))
		}
		if !errors.Is(err, store.ErrKeyConflict) {
			return 0, err
		}

		lastErr = err
		log.Warn("id allocation conflict; retrying", "id", id, "attempt", attempt)
	}
	return 0, catalogerr.Allocation(e.Name, c.maxAttempts, lastErr)
}

// removeDir returns an undo that deletes a freshly created directory.
func (c *Catalog) removeDir(dir string) func() error {
	return func() error {
		g, err := c.layout.Bury(dir)
		if err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}
		return g.Purge()
	}
}
