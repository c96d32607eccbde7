package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/queryir"
	"github.com/roach88/specatalog/internal/querysql"
	"github.com/roach88/specatalog/internal/schema"
	"github.com/roach88/specatalog/internal/shape"
	"github.com/roach88/specatalog/internal/value"
)

// ErrKeyConflict reports that an allocated key was taken by another writer.
var ErrKeyConflict = errors.New("primary key conflict")

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx is a write transaction. Obtain one through Store.InTx.
type Tx struct {
	tx    *sql.Tx
	store *Store
}

// InTx runs fn in a write transaction, committing if fn returns nil and
// rolling back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&Tx{tx: tx, store: s}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NextID returns max(key)+1 for the family, starting at 1.
func (t *Tx) NextID(ctx context.Context, f schema.Family) (int64, error) {
	var next int64
	q := fmt.Sprintf(`SELECT COALESCE(MAX(%s), 0) + 1 FROM %s`, quoteIdent(f.Key()), quoteIdent(f.Table()))
	if err := t.tx.QueryRowContext(ctx, q).Scan(&next); err != nil {
		return 0, fmt.Errorf("next %s id: %w", f, err)
	}
	return next, nil
}

// Insert writes the base row and the subtype row of a record.
// values must hold every column of e, including the key and discriminator.
func (t *Tx) Insert(ctx context.Context, e *schema.Entity, values map[string]value.Value) error {
	base := e.Family.Base()
	if err := t.insertRow(ctx, e, base.Table, base.Own, values); err != nil {
		return err
	}

	own := append([]schema.Field{{Name: e.Key(), Type: schema.TypeInt}}, e.Own...)
	return t.insertRow(ctx, e, e.Table, own, values)
}

func (t *Tx) insertRow(ctx context.Context, e *schema.Entity, table string, fields []schema.Field, values map[string]value.Value) error {
	cols := make([]string, len(fields))
	marks := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, f := range fields {
		cols[i] = quoteIdent(f.Name)
		marks[i] = "?"
		args[i] = value.SQL(values[f.Name])
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(cols, ", "), strings.Join(marks, ", "))
	t.store.logger.Debug("sql insert", "table", table, "sql", q)

	if _, err := t.tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert %s: %w", table, constraintError(e, err))
	}
	return nil
}

// Update writes changed columns to the base and subtype tables.
// Returns NotFound if no base row has the key.
func (t *Tx) Update(ctx context.Context, e *schema.Entity, id int64, changes map[string]value.Value) error {
	base := e.Family.Base()
	var baseFields, ownFields []schema.Field
	for _, f := range e.Fields() {
		if _, ok := changes[f.Name]; !ok {
			continue
		}
		if !e.IsBase() && e.OwnsField(f.Name) {
			ownFields = append(ownFields, f)
		} else {
			baseFields = append(baseFields, f)
		}
	}

	if len(baseFields) > 0 {
		n, err := t.updateRow(ctx, e, base.Table, id, baseFields, changes)
		if err != nil {
			return err
		}
		if n == 0 {
			return catalogerr.NotFound(e.Name, id)
		}
	}
	if len(ownFields) > 0 {
		n, err := t.updateRow(ctx, e, e.Table, id, ownFields, changes)
		if err != nil {
			return err
		}
		if n == 0 {
			return catalogerr.NotFound(e.Name, id)
		}
	}
	return nil
}

func (t *Tx) updateRow(ctx context.Context, e *schema.Entity, table string, id int64, fields []schema.Field, changes map[string]value.Value) (int64, error) {
	sets := make([]string, len(fields))
	args := make([]any, 0, len(fields)+1)
	for i, f := range fields {
		sets[i] = quoteIdent(f.Name) + " = ?"
		args = append(args, value.SQL(changes[f.Name]))
	}
	args = append(args, id)

	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		quoteIdent(table), strings.Join(sets, ", "), quoteIdent(e.Key()))
	t.store.logger.Debug("sql update", "table", table, "id", id, "sql", q)

	res, err := t.tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, constraintError(e, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	return n, nil
}

// Delete removes a base row; subtype rows and dependent measurements
// cascade. Returns NotFound if no row has the key.
func (t *Tx) Delete(ctx context.Context, f schema.Family, id int64) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quoteIdent(f.Table()), quoteIdent(f.Key()))
	res, err := t.tx.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", f, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", f, err)
	}
	if n == 0 {
		return catalogerr.NotFound(f.String(), id)
	}
	return nil
}

// Get reads one record inside the transaction.
func (t *Tx) Get(ctx context.Context, e *schema.Entity, id int64) (schema.Record, error) {
	return get(ctx, t.tx, e, id)
}

// Resolve returns the concrete subtype of the record with the given key.
func (t *Tx) Resolve(ctx context.Context, f schema.Family, id int64) (*schema.Entity, error) {
	return resolve(ctx, t.tx, f, id)
}

// MeasurementIDs returns the keys of the measurements of a molecule.
func (t *Tx) MeasurementIDs(ctx context.Context, molID int64) ([]int64, error) {
	return measurementIDs(ctx, t.tx, molID)
}

// Get reads one record by key.
func (s *Store) Get(ctx context.Context, e *schema.Entity, id int64) (schema.Record, error) {
	return get(ctx, s.db, e, id)
}

// Resolve returns the concrete subtype of the record with the given key.
func (s *Store) Resolve(ctx context.Context, f schema.Family, id int64) (*schema.Entity, error) {
	return resolve(ctx, s.db, f, id)
}

// MeasurementIDs returns the keys of the measurements of a molecule,
// ascending.
func (s *Store) MeasurementIDs(ctx context.Context, molID int64) ([]int64, error) {
	return measurementIDs(ctx, s.db, molID)
}

// Exists reports whether a record with the key exists in the family.
func (s *Store) Exists(ctx context.Context, f schema.Family, id int64) (bool, error) {
	var one int
	q := fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ?", quoteIdent(f.Table()), quoteIdent(f.Key()))
	err := s.db.QueryRowContext(ctx, q, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check %s %d: %w", f, id, err)
	}
	return true, nil
}

// Query runs sel and yields records of e.
//
// The returned sequence is lazy and restartable: each range re-executes the
// query. Rows are released when the loop ends, including on early break.
func (s *Store) Query(ctx context.Context, e *schema.Entity, sel queryir.Select) iter.Seq2[schema.Record, error] {
	return func(yield func(schema.Record, error) bool) {
		q, args, err := querysql.NewSQLCompiler().Compile(sel)
		if err != nil {
			yield(schema.Record{}, fmt.Errorf("compile query: %w", err))
			return
		}
		s.logger.Debug("sql query", "entity", e.Name, "sql", q, "params", len(args))

		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			yield(schema.Record{}, fmt.Errorf("query %s: %w", e.Name, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanRecord(rows, e, sel.Columns)
			if !yield(rec, err) || err != nil {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(schema.Record{}, fmt.Errorf("query %s: %w", e.Name, err))
		}
	}
}

func get(ctx context.Context, db querier, e *schema.Entity, id int64) (schema.Record, error) {
	sel, err := shape.Query(e, nil, nil)
	if err != nil {
		return schema.Record{}, err
	}
	sel.Filter = queryir.Equals{Field: e.Key(), Value: value.Int(id)}

	q, args, err := querysql.NewSQLCompiler().Compile(sel)
	if err != nil {
		return schema.Record{}, fmt.Errorf("compile get: %w", err)
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return schema.Record{}, fmt.Errorf("get %s %d: %w", e.Name, id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return schema.Record{}, fmt.Errorf("get %s %d: %w", e.Name, id, err)
		}
		return schema.Record{}, catalogerr.NotFound(e.Name, id)
	}
	return scanRecord(rows, e, sel.Columns)
}

func resolve(ctx context.Context, db querier, f schema.Family, id int64) (*schema.Entity, error) {
	var name string
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		quoteIdent(f.Discriminator()), quoteIdent(f.Table()), quoteIdent(f.Key()))
	err := db.QueryRowContext(ctx, q, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalogerr.NotFound(f.String(), id)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %s %d: %w", f, id, err)
	}

	e, err := schema.Lookup(name)
	if err != nil || e.Family != f {
		return nil, fmt.Errorf("resolve %s %d: unknown subtype %q", f, id, name)
	}
	return e, nil
}

func measurementIDs(ctx context.Context, db querier, molID int64) ([]int64, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT ms_id FROM measurements WHERE molecular_id = ? ORDER BY ms_id ASC`, molID)
	if err != nil {
		return nil, fmt.Errorf("list measurements of molecule %d: %w", molID, err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan measurement id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list measurements of molecule %d: %w", molID, err)
	}
	return ids, nil
}

func scanRecord(rows *sql.Rows, e *schema.Entity, cols []queryir.Column) (schema.Record, error) {
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return schema.Record{}, fmt.Errorf("scan %s: %w", e.Name, err)
	}

	rec := schema.Record{Entity: e, Values: make(map[string]value.Value, len(cols))}
	for i, col := range cols {
		f, ok := e.Field(col.Name)
		if !ok {
			return schema.Record{}, fmt.Errorf("scan %s: unknown column %q", e.Name, col.Name)
		}
		v, err := value.FromSQL(f.Type.Kind(), raw[i])
		if err != nil {
			return schema.Record{}, fmt.Errorf("scan %s.%s: %w", e.Name, col.Name, err)
		}
		rec.Values[col.Name] = v
	}
	return rec, nil
}

// constraintError maps SQLite constraint failures to catalog errors.
func constraintError(e *schema.Entity, err error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.Code != sqlite3.ErrConstraint {
		return err
	}

	column := constraintColumn(se.Error())
	switch se.ExtendedCode {
	case sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w: %w", ErrKeyConflict, err)
	case sqlite3.ErrConstraintUnique:
		if column == e.Key() {
			return fmt.Errorf("%w: %w", ErrKeyConflict, err)
		}
		return catalogerr.Validation(e.Name, column, "value is already used by another record")
	case sqlite3.ErrConstraintNotNull:
		return catalogerr.Validation(e.Name, column, "field is required")
	case sqlite3.ErrConstraintForeignKey:
		return catalogerr.Validation(e.Name, "", "referenced record does not exist")
	default:
		return err
	}
}

// constraintColumn extracts "name" from "UNIQUE constraint failed: molecules.name".
func constraintColumn(msg string) string {
	_, detail, ok := strings.Cut(msg, "failed: ")
	if !ok {
		return ""
	}
	detail, _, _ = strings.Cut(detail, ",")
	if _, col, ok := strings.Cut(detail, "."); ok {
		return strings.TrimSpace(col)
	}
	return strings.TrimSpace(detail)
}

// quoteIdent double-quotes an identifier such as "group".
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
