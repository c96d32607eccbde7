// Package queryir is the backend-neutral query tree produced by filter and
// ordering shapes and consumed by the SQL compiler.
//
// The tree sits between the typed shapes and the store:
//
//	[Filter, Ordering] → [Query IR] → [querysql] → SQLite
//
// # Fragment
//
// A query is a single Select over one entity:
//   - From and an optional Join on the shared key for subtype tables
//   - Explicit columns (no SELECT *)
//   - Predicates: Equals, Compare, Like, Contains, And
//   - OrderBy terms, always followed by the key
//
// The fragment excludes OR, outer joins, aggregations, subqueries and NULL
// literals. Clearing a field is an update, not a filter.
//
// # Sealed Interfaces
//
// Query and Predicate are sealed with marker methods, so compilers can
// switch exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case Compare:
//	case Like:
//	case Contains:
//	case And:
//	}
//
// Literals are value.Value, the same typed values records hold.
package queryir
