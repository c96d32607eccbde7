package catalog

import (
	"context"
	"errors"

	"github.com/roach88/specatalog/internal/archive"
	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/schema"
	"github.com/roach88/specatalog/internal/shape"
	"github.com/roach88/specatalog/internal/store"
	"github.com/roach88/specatalog/internal/value"
)

// Update applies the fields present in patch to record id of e and returns
// the record with all fields of its concrete subtype. Absent fields are left
// unchanged; an empty patch writes nothing. updated_at is set on every write.
//
// When the name of a molecule changes, directly or because a component of
// a composite name changed, files in molecules/MOL{id} named after the old
// name are renamed to the new one.
func (c *Catalog) Update(ctx context.Context, e *schema.Entity, id int64, patch *shape.Patch) (rec schema.Record, err error) {
	log, done := c.begin(ctx, "update")
	defer done(&err)

	if patch == nil || patch.Shape().Entity != e {
		return schema.Record{}, catalogerr.Validation(e.Name, "", "patch is not for %s", e.Name)
	}

	changes := patch.Changes()
	if err := schema.ValidateChanges(e, changes, c.allowed); err != nil {
		return schema.Record{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(changes) == 0 {
		concrete, err := c.checkSubtype(ctx, e, id)
		if err != nil {
			return schema.Record{}, err
		}
		return c.store.Get(ctx, concrete, id)
	}

	var (
		concrete *schema.Entity
		renames  []archive.Rename
	)
	err = c.store.InTx(ctx, func(tx *store.Tx) error {
		var err error
		if concrete, err = tx.Resolve(ctx, e.Family, id); err != nil {
			return err
		}
		if !e.IsBase() && concrete != e {
			return catalogerr.NotFound(e.Name, id)
		}
		if _, named := changes["name"]; named && concrete.ComputesName() {
			return catalogerr.Validation(concrete.Name, "name", "field is set automatically")
		}

		before, err := tx.Get(ctx, concrete, id)
		if err != nil {
			return err
		}
		if err := automaticNameUpdate(concrete, before, changes); err != nil {
			return err
		}
		changes["updated_at"] = value.NewTime(c.timestamp())

		if err := tx.Update(ctx, concrete, id, changes); err != nil {
			return err
		}

		newName, renamed := changes["name"]
		if !renamed || e.Family != schema.FamilyMolecule || value.Equal(newName, before.Get("name")) {
			return nil
		}
		renames, err = archive.RenameStem(c.layout.MoleculeDir(id), before.Text("name"), value.Format(newName))
		return err
	})
	if err != nil {
		if len(renames) > 0 {
			undoErr := archive.UndoRenames(renames)
			return schema.Record{}, catalogerr.IOConsistency(e.Name, id, undoErr == nil, errors.Join(err, undoErr))
		}
		return schema.Record{}, err
	}

	rec, err = c.store.Get(ctx, concrete, id)
	if err != nil {
		return schema.Record{}, err
	}
	log.Info("record updated", "entity", concrete.Name, "id", id, "fields", patch.Fields(), "renamed_files", len(renames))
	return rec, nil
}

// automaticNameUpdate recomputes the name of a composite molecule when a
// component is in changes and adds it to changes if it differs.
func automaticNameUpdate(e *schema.Entity, before schema.Record, changes map[string]value.Value) error {
	if !e.ComputesName() {
		return nil
	}

	touched := false
	merged := make(map[string]value.Value, len(e.NameParts))
	for _, part := range e.NameParts {
		v, ok := changes[part]
		if ok {
			touched = true
		} else {
			v = before.Get(part)
		}
		if value.IsNull(v) {
			return catalogerr.Validation(e.Name, part, "field is required")
		}
		merged[part] = v
	}
	if !touched {
		return nil
	}

	name := value.String(e.ComposeName(merged))
	if !value.Equal(name, before.Get("name")) {
		changes["name"] = name
	}
	return nil
}
