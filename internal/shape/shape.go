// Package shape derives the Filter, Ordering and Update shapes of an entity
// from its schema descriptors.
//
// Shapes are plain data built once per entity. A Filter, Ordering or Patch
// is an instance of a shape that callers fill in and hand to the catalog.
package shape

import (
	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/queryir"
	"github.com/roach88/specatalog/internal/schema"
)

// Op is a filter operator.
type Op string

const (
	OpEq       Op = "eq"
	OpNe       Op = "ne"
	OpGt       Op = "gt"
	OpLt       Op = "lt"
	OpGe       Op = "ge"
	OpLe       Op = "le"
	OpLike     Op = "like"
	OpILike    Op = "ilike"
	OpContains Op = "contains"
)

// KeySeparator joins a field name and an operator in a filter key.
const KeySeparator = "__"

var (
	rangeOps  = []Op{OpEq, OpNe, OpGt, OpLt, OpGe, OpLe}
	stringOps = []Op{OpEq, OpLike, OpILike, OpContains}
)

// predicates maps each field type to the filter operators it supports.
var predicates = map[schema.FieldType][]Op{
	schema.TypeInt:      rangeOps,
	schema.TypeFloat:    rangeOps,
	schema.TypeDate:     rangeOps,
	schema.TypeDateTime: rangeOps,
	schema.TypeString:   stringOps,
	schema.TypeText:     stringOps,
	schema.TypeEnum:     {OpEq, OpNe},
	schema.TypeBool:     {OpEq},
}

// orderable lists the field types usable as sort keys.
var orderable = map[schema.FieldType]bool{
	schema.TypeInt:      true,
	schema.TypeFloat:    true,
	schema.TypeDate:     true,
	schema.TypeDateTime: true,
	schema.TypeString:   true,
	schema.TypeText:     true,
	schema.TypeEnum:     true,
	schema.TypeBool:     true,
}

var compareOps = map[Op]queryir.CompareOp{
	OpNe: queryir.OpNe,
	OpGt: queryir.OpGt,
	OpLt: queryir.OpLt,
	OpGe: queryir.OpGe,
	OpLe: queryir.OpLe,
}

// Ops returns the filter operators registered for t.
func Ops(t schema.FieldType) ([]Op, bool) {
	ops, ok := predicates[t]
	return ops, ok
}

func checkEntity(e *schema.Entity) ([]schema.Field, error) {
	if e == nil {
		return nil, catalogerr.Configuration("", "no entity given")
	}
	fields := e.Fields()
	if len(fields) == 0 {
		return nil, catalogerr.Configuration(e.Name, "entity declares no fields")
	}
	return fields, nil
}

// Columns returns the columns selected for e. Fields declared by a subtype
// are read from the joined subtype table.
func Columns(e *schema.Entity) []queryir.Column {
	fields := e.Fields()
	cols := make([]queryir.Column, 0, len(fields))
	for _, f := range fields {
		cols = append(cols, queryir.Column{
			Name:   f.Name,
			Joined: !e.IsBase() && e.OwnsField(f.Name),
		})
	}
	return cols
}

// Query builds the select for e with an optional filter and ordering.
func Query(e *schema.Entity, f *Filter, o *Ordering) (queryir.Select, error) {
	sel := queryir.Select{
		From:    e.Family.Table(),
		Key:     e.Key(),
		Columns: Columns(e),
	}
	if !e.IsBase() {
		sel.Join = e.Table
	}

	if f != nil {
		if f.shape.Entity != e {
			return queryir.Select{}, catalogerr.Validation(e.Name, "", "filter is for %s", f.shape.Entity.Name)
		}
		sel.Filter = f.Predicate()
	}
	if o != nil {
		if o.shape.Entity != e {
			return queryir.Select{}, catalogerr.Validation(e.Name, "", "ordering is for %s", o.shape.Entity.Name)
		}
		sel.OrderBy = o.Terms()
	}
	return sel, nil
}
