// Package harness runs end-to-end catalog scenarios.
//
// A scenario creates a fresh archive, runs a list of catalog operations and
// checks the outcome of each one, then asserts on the records, the directory
// tree and the trace that remain.
//
// # Scenario Format
//
//	name: create_query_delete
//	description: "What this scenario validates"
//	setup:
//	  - op: create
//	    entity: single
//	    fields: { name: TEMPO }
//	flow:
//	  - op: create
//	    entity: cwepr
//	    fields: { mol_id: 1, temperature: 80 }
//	    expect: { outcome: ok, id: 1 }
//	  - op: query
//	    entity: measurement
//	    where: { temperature__gt: 50 }
//	    expect: { outcome: ok, ids: [1] }
//	assertions:
//	  - type: record
//	    entity: cwepr
//	    id: 1
//	    expect: { temperature: 80 }
//	  - type: path_exists
//	    path: data/M1
//
// Outcomes are "ok" or a catalog error code such as NOT_FOUND.
//
// # Assertion Types
//
//   - record: reads a record and compares the listed fields
//   - absent: the record must not exist
//   - query_count: a filtered query returns exactly N records
//   - path_exists, path_absent: a path relative to the archive root
//   - trace_count: an op (optionally with an outcome) appears exactly N times
//
// # Deterministic Testing
//
// Scenarios run with testutil.StepClock starting at Epoch and a
// testutil.SequenceGenerator for trash tokens. Traces carry no timestamps,
// so they compare byte for byte against golden files.
package harness
