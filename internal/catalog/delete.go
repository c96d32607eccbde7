package catalog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/specatalog/internal/archive"
	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/schema"
	"github.com/roach88/specatalog/internal/store"
)

// DeleteMeasurement removes a measurement record and data/M{id}.
func (c *Catalog) DeleteMeasurement(ctx context.Context, id int64) error {
	return c.deleteRecord(ctx, schema.Measurement, id)
}

// DeleteMolecule removes a molecule record, its measurements and their
// directories, and molecules/MOL{id}.
func (c *Catalog) DeleteMolecule(ctx context.Context, id int64) error {
	return c.deleteRecord(ctx, schema.Molecule, id)
}

// DeleteObject removes record id of e. For a subtype, a record of another
// subtype with the same key is NotFound and nothing is removed.
func (c *Catalog) DeleteObject(ctx context.Context, e *schema.Entity, id int64) error {
	return c.deleteRecord(ctx, e, id)
}

func (c *Catalog) deleteRecord(ctx context.Context, e *schema.Entity, id int64) (err error) {
	log, done := c.begin(ctx, "delete_"+e.Family.String())
	defer done(&err)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.delete(ctx, log, e, id); err != nil {
		return err
	}
	log.Info(e.Family.String()+" deleted", e.Family.Key(), id)
	return nil
}

// delete moves the affected directories to the trash inside the
// transaction, restores them if the transaction does not commit and purges
// them if it does.
func (c *Catalog) delete(ctx context.Context, log *slog.Logger, e *schema.Entity, id int64) error {
	var grave *archive.Grave
	err := c.store.InTx(ctx, func(tx *store.Tx) error {
		if !e.IsBase() {
			concrete, err := tx.Resolve(ctx, e.Family, id)
			if err != nil {
				return err
			}
			if concrete != e {
				return catalogerr.NotFound(e.Name, id)
			}
		}

		var dirs []string
		if e.Family == schema.FamilyMolecule {
			msIDs, err := tx.MeasurementIDs(ctx, id)
			if err != nil {
				return err
			}
			for _, ms := range msIDs {
				dirs = append(dirs, c.layout.MeasurementDir(ms))
			}
			dirs = append(dirs, c.layout.MoleculeDir(id))
		} else {
			dirs = append(dirs, c.layout.MeasurementDir(id))
		}

		if err := tx.Delete(ctx, e.Family, id); err != nil {
			return err
		}

		var err error
		grave, err = c.layout.Bury(dirs...)
		return err
	})
	if err != nil {
		if grave != nil {
			restoreErr := grave.Restore()
			if restoreErr != nil {
				log.Error("restoring directories failed", "id", id, "err", restoreErr)
			}
			return catalogerr.IOConsistency(e.Name, id, restoreErr == nil, errors.Join(err, restoreErr))
		}
		return err
	}

	if err := grave.Purge(); err != nil {
		log.Warn("purging trash failed; directories remain in trash", "id", id, "err", err)
	}
	return nil
}
