package catalog

import (
	"context"
	"iter"
	"time"

	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/schema"
	"github.com/roach88/specatalog/internal/shape"
)

// Get reads one record of e. For a subtype, a record of another subtype
// with the same key is NotFound.
func (c *Catalog) Get(ctx context.Context, e *schema.Entity, id int64) (schema.Record, error) {
	return c.store.Get(ctx, e, id)
}

// GetObject reads a record with all the fields of its concrete subtype.
func (c *Catalog) GetObject(ctx context.Context, f schema.Family, id int64) (schema.Record, error) {
	e, err := c.store.Resolve(ctx, f, id)
	if err != nil {
		return schema.Record{}, err
	}
	return c.store.Get(ctx, e, id)
}

// RunQuery returns the records of e that match every predicate of filter,
// sorted by ordering and then by key. filter and ordering may be nil.
//
// The sequence is lazy, finite and restartable: each range runs the query
// again. Do not call other catalog methods from inside the loop; the store
// has a single connection.
func (c *Catalog) RunQuery(ctx context.Context, e *schema.Entity, filter *shape.Filter, ordering *shape.Ordering) iter.Seq2[schema.Record, error] {
	return func(yield func(schema.Record, error) bool) {
		start := time.Now()
		var err error
		defer func() {
			c.metrics.Observe(ctx, "run_query", err, time.Since(start))
		}()

		sel, qerr := shape.Query(e, filter, ordering)
		if qerr != nil {
			err = qerr
			yield(schema.Record{}, err)
			return
		}

		for rec, rerr := range c.store.Query(ctx, e, sel) {
			if rerr != nil {
				err = rerr
			}
			if !yield(rec, rerr) {
				return
			}
		}
	}
}

// Collect drains a query into a slice, stopping at the first error.
func Collect(seq iter.Seq2[schema.Record, error]) ([]schema.Record, error) {
	out := []schema.Record{}
	for rec, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// checkSubtype resolves the concrete subtype of id and checks that it is e
// or a subtype of e.
func (c *Catalog) checkSubtype(ctx context.Context, e *schema.Entity, id int64) (*schema.Entity, error) {
	concrete, err := c.store.Resolve(ctx, e.Family, id)
	if err != nil {
		return nil, err
	}
	if !e.IsBase() && concrete != e {
		return nil, catalogerr.NotFound(e.Name, id)
	}
	return concrete, nil
}
