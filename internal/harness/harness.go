package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/specatalog/internal/catalog"
	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/h5"
	"github.com/roach88/specatalog/internal/schema"
	"github.com/roach88/specatalog/internal/shape"
	"github.com/roach88/specatalog/internal/testutil"
	"github.com/roach88/specatalog/internal/value"
)

// Epoch is the first timestamp a scenario archive sees.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness is the test execution engine.
// It runs scenarios against a real archive with a deterministic clock and
// ID generator.
type Harness struct {
	cat     *catalog.Catalog
	base    string
	scratch string
	logger  *slog.Logger
}

// Run executes a test scenario in a fresh archive below dir and returns
// the result.
//
// Execution flow:
// 1. Initialize an archive in dir/archive
// 2. Execute setup steps (each must succeed)
// 3. Execute flow steps, checking expect clauses
// 4. Evaluate assertions against the archive and trace
func Run(ctx context.Context, scenario *Scenario, dir string) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	base := filepath.Join(dir, "archive")
	scratch := filepath.Join(dir, "scratch")
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	if err := catalog.Init(base, catalog.WithLogger(logger)); err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	clock := testutil.NewStepClock(Epoch, time.Second)
	cat, err := catalog.Open(base,
		catalog.WithLogger(logger),
		catalog.WithClock(clock.Now),
		catalog.WithIDGenerator(testutil.NewSequenceGenerator(scenario.Name)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer cat.Close()

	h := &Harness{cat: cat, base: base, scratch: scratch, logger: logger}
	result := NewResult()

	for i, step := range scenario.Setup {
		event := result.AddTrace(h.execute(ctx, step))
		if event.Outcome != OutcomeOK {
			return nil, fmt.Errorf("setup step %d (%s %s): outcome %s", i, step.Op, step.Entity, event.Outcome)
		}
	}

	for i, step := range scenario.Flow {
		event := result.AddTrace(h.execute(ctx, step))
		if msg := checkExpect(step, event); msg != "" {
			result.AddError(fmt.Sprintf("flow[%d] %s %s: %s", i, step.Op, step.Entity, msg))
		}
	}

	actx := &AssertionContext{Ctx: ctx, Catalog: cat, BaseDir: base}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// checkExpect compares an event with the step's expect clause. A step
// without one must succeed.
func checkExpect(step Step, event TraceEvent) string {
	want := &ExpectClause{Outcome: OutcomeOK}
	if step.Expect != nil {
		want = step.Expect
	}
	if event.Outcome != want.Outcome {
		return fmt.Sprintf("expected outcome %s, got %s", want.Outcome, event.Outcome)
	}
	if want.ID != 0 && event.ID != want.ID {
		return fmt.Sprintf("expected id %d, got %d", want.ID, event.ID)
	}
	if want.IDs != nil && fmt.Sprint(want.IDs) != fmt.Sprint(event.IDs) {
		return fmt.Sprintf("expected ids %v, got %v", want.IDs, event.IDs)
	}
	return ""
}

// execute runs one step and describes what happened.
func (h *Harness) execute(ctx context.Context, step Step) TraceEvent {
	event := TraceEvent{Op: step.Op, Entity: step.Entity, ID: step.ID}
	err := h.dispatch(ctx, step, &event)
	event.Outcome = outcome(err)
	if err != nil {
		h.logger.Debug("step failed", "op", step.Op, "entity", step.Entity, "error", err)
	}
	return event
}

func (h *Harness) dispatch(ctx context.Context, step Step, event *TraceEvent) error {
	switch step.Op {
	case OpCreate:
		return h.create(ctx, step, event)
	case OpQuery:
		return h.query(ctx, step, event)
	case OpUpdate:
		return h.update(ctx, step)
	case OpDelete:
		e, err := schema.Lookup(step.Entity)
		if err != nil {
			return err
		}
		return h.cat.DeleteObject(ctx, e, step.ID)
	case OpAddFile:
		src := filepath.Join(h.scratch, step.Name)
		if err := os.WriteFile(src, []byte(step.Content), 0o644); err != nil {
			return fmt.Errorf("write scratch file: %w", err)
		}
		_, err := h.cat.AddFile(ctx, step.ID, step.Category, src, step.Overwrite)
		return err
	case OpRemoveFile:
		return h.cat.RemoveFile(ctx, step.ID, step.Category, step.Name)
	case OpWriteDataset:
		return h.cat.WriteDataset(ctx, step.ID, h5.Vector(step.Dataset, step.Values), step.Overwrite)
	case OpReadDataset:
		d, err := h.cat.ReadDataset(ctx, step.ID, step.Dataset)
		if err != nil {
			return err
		}
		event.Data = d.Data
		return nil
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

func (h *Harness) create(ctx context.Context, step Step, event *TraceEvent) error {
	e, err := schema.Lookup(step.Entity)
	if err != nil {
		return err
	}
	fields, err := convertFields(e, step.Fields)
	if err != nil {
		return err
	}
	if e.Family == schema.FamilyMolecule {
		event.ID, err = h.cat.CreateMolecule(ctx, e, fields)
	} else {
		event.ID, err = h.cat.CreateMeasurement(ctx, e, fields)
	}
	return err
}

func (h *Harness) query(ctx context.Context, step Step, event *TraceEvent) error {
	e, err := schema.Lookup(step.Entity)
	if err != nil {
		return err
	}
	filter, err := h.filter(e, step.Where)
	if err != nil {
		return err
	}
	shapes, err := h.cat.Shapes(e)
	if err != nil {
		return err
	}
	ordering := shapes.Ordering.New()
	for _, term := range step.Order {
		if err := ordering.Parse(term); err != nil {
			return err
		}
	}

	recs, err := catalog.Collect(h.cat.RunQuery(ctx, e, filter, ordering))
	if err != nil {
		return err
	}
	count := len(recs)
	event.Count = &count
	for _, rec := range recs {
		event.IDs = append(event.IDs, rec.ID())
	}
	return nil
}

func (h *Harness) update(ctx context.Context, step Step) error {
	e, err := schema.Lookup(step.Entity)
	if err != nil {
		return err
	}
	shapes, err := h.cat.Shapes(e)
	if err != nil {
		return err
	}
	fields, err := convertFields(e, step.Fields)
	if err != nil {
		return err
	}
	patch := shapes.Update.New()
	for name, v := range fields {
		if err := patch.Set(name, v); err != nil {
			return err
		}
	}
	for _, name := range step.Null {
		if err := patch.SetNull(name); err != nil {
			return err
		}
	}
	_, err = h.cat.Update(ctx, e, step.ID, patch)
	return err
}

// filter builds a filter of e from YAML scalars.
func (h *Harness) filter(e *schema.Entity, where map[string]any) (*shape.Filter, error) {
	shapes, err := h.cat.Shapes(e)
	if err != nil {
		return nil, err
	}
	filter := shapes.Filter.New()
	for key, raw := range where {
		slot, ok := shapes.Filter.Slot(key)
		if !ok {
			// SetRaw reports the unknown key.
			return nil, filter.SetRaw(key, fmt.Sprint(raw))
		}
		v, err := schema.FromAny(e, slot.Field, raw)
		if err != nil {
			return nil, err
		}
		if err := filter.Set(key, v); err != nil {
			return nil, err
		}
	}
	return filter, nil
}

// convertFields converts YAML scalars to field values of e.
func convertFields(e *schema.Entity, raw map[string]any) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(raw))
	for name, x := range raw {
		f, ok := e.Field(name)
		if !ok {
			return nil, catalogerr.Validation(e.Name, name, "unknown field")
		}
		v, err := schema.FromAny(e, f, x)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// outcome labels an error with its catalog code.
func outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if code := catalogerr.CodeOf(err); code != "" {
		return string(code)
	}
	return "ERROR"
}
