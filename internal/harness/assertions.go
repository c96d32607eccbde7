package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/specatalog/internal/catalog"
	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/schema"
	"github.com/roach88/specatalog/internal/value"
)

// AssertionContext carries what the assertions inspect.
type AssertionContext struct {
	Ctx     context.Context
	Catalog *catalog.Catalog
	BaseDir string
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %d -> %s\n", event.Seq, event.Op, event.Entity, event.ID, event.Outcome)
		}
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertRecord:
		return assertRecord(actx, a)
	case AssertAbsent:
		return assertAbsent(actx, a)
	case AssertQueryCount:
		return assertQueryCount(actx, a)
	case AssertPathExists, AssertPathAbsent:
		return assertPath(actx, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertRecord reads the record with all fields of its concrete subtype and
// compares the expected fields by their text form (subset match).
func assertRecord(actx *AssertionContext, a Assertion) error {
	e, err := schema.Lookup(a.Entity)
	if err != nil {
		return err
	}
	rec, err := actx.Catalog.Get(actx.Ctx, e, a.ID)
	if err != nil {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("%s %d", e.Name, a.ID),
			Actual:   err.Error(),
		}
	}
	if e.IsBase() {
		if rec, err = actx.Catalog.GetObject(actx.Ctx, e.Family, a.ID); err != nil {
			return err
		}
	}

	keys := make([]string, 0, len(a.Expect))
	for k := range a.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var diffs []string
	for _, k := range keys {
		want := formatExpected(a.Expect[k])
		got := value.Format(rec.Get(k))
		if want != got {
			diffs = append(diffs, fmt.Sprintf("%s=%s (want %s)", k, got, want))
		}
	}
	if len(diffs) > 0 {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("%s %d with %v", e.Name, a.ID, a.Expect),
			Actual:   strings.Join(diffs, ", "),
		}
	}
	return nil
}

// formatExpected renders a YAML scalar the way value.Format renders the
// stored value.
func formatExpected(x any) string {
	if x == nil {
		return value.Format(value.Null{})
	}
	if f, ok := x.(float64); ok {
		return value.Format(value.Float(f))
	}
	return fmt.Sprint(x)
}

func assertAbsent(actx *AssertionContext, a Assertion) error {
	e, err := schema.Lookup(a.Entity)
	if err != nil {
		return err
	}
	_, err = actx.Catalog.Get(actx.Ctx, e, a.ID)
	if catalogerr.Is(err, catalogerr.CodeNotFound) {
		return nil
	}
	actual := "record exists"
	if err != nil {
		actual = err.Error()
	}
	return &AssertionError{
		Type:     AssertAbsent,
		Expected: fmt.Sprintf("no %s %d", e.Name, a.ID),
		Actual:   actual,
	}
}

func assertQueryCount(actx *AssertionContext, a Assertion) error {
	e, err := schema.Lookup(a.Entity)
	if err != nil {
		return err
	}
	h := &Harness{cat: actx.Catalog}
	filter, err := h.filter(e, a.Where)
	if err != nil {
		return err
	}
	recs, err := catalog.Collect(actx.Catalog.RunQuery(actx.Ctx, e, filter, nil))
	if err != nil {
		return err
	}
	if len(recs) != a.Count {
		return &AssertionError{
			Type:     AssertQueryCount,
			Expected: fmt.Sprintf("%d %s record(s) matching %v", a.Count, e.Name, a.Where),
			Actual:   fmt.Sprintf("%d record(s)", len(recs)),
		}
	}
	return nil
}

func assertPath(actx *AssertionContext, a Assertion) error {
	_, err := os.Stat(filepath.Join(actx.BaseDir, filepath.FromSlash(a.Path)))
	exists := err == nil
	if exists == (a.Type == AssertPathExists) {
		return nil
	}
	want, got := "absent", "present"
	if !exists {
		want, got = got, want
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s %s", a.Path, want),
		Actual:   got,
	}
}

// assertTraceCount checks if the op appears exactly the specified number
// of times, optionally with a given outcome.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Op == a.Op && (a.Outcome == "" || event.Outcome == a.Outcome) {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s %s", a.Count, a.Op, a.Outcome),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}
