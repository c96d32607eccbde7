package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func molecule(name string) Step {
	return Step{
		Op:     OpCreate,
		Entity: "single",
		Fields: map[string]any{"name": name, "molecular_formula": "C9H18NO"},
	}
}

func cwepr(molID int, temperature any) Step {
	return Step{
		Op:     OpCreate,
		Entity: "cwepr",
		Fields: map[string]any{
			"molecular_id":   molID,
			"temperature":    temperature,
			"solvent":        "toluene",
			"date":           "2024-05-02",
			"measured_by":    "richert",
			"corrected":      false,
			"evaluated":      false,
			"frequency_band": "X",
			"attenuation":    20,
		},
	}
}

func run(t *testing.T, s *Scenario) *Result {
	t.Helper()
	result, err := Run(context.Background(), s, t.TempDir())
	require.NoError(t, err)
	return result
}

func TestRun_TraceAndPass(t *testing.T) {
	result := run(t, &Scenario{
		Name:  "trace",
		Setup: []Step{molecule("TEMPO")},
		Flow: []Step{
			cwepr(1, 80),
			cwepr(1, 95.5),
			{Op: OpQuery, Entity: "measurement", Order: []string{"-temperature"}},
		},
		Assertions: []Assertion{
			{Type: AssertQueryCount, Entity: "cwepr", Where: map[string]any{"temperature__lt": 90}, Count: 1},
			{Type: AssertRecord, Entity: "measurement", ID: 2, Expect: map[string]any{"temperature": 95.5, "method": "cwepr"}},
			{Type: AssertPathExists, Path: "data/M2"},
			{Type: AssertTraceCount, Op: OpCreate, Count: 3},
		},
	})

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 4)
	for i, event := range result.Trace {
		assert.Equal(t, int64(i+1), event.Seq)
		assert.Equal(t, OutcomeOK, event.Outcome)
	}
	assert.Equal(t, int64(2), result.Trace[2].ID)
	require.NotNil(t, result.Trace[3].Count)
	assert.Equal(t, 2, *result.Trace[3].Count)
	assert.Equal(t, []int64{2, 1}, result.Trace[3].IDs)
}

func TestRun_SetupFailureAborts(t *testing.T) {
	_, err := Run(context.Background(), &Scenario{
		Name:       "setup",
		Setup:      []Step{cwepr(1, 80)},
		Flow:       []Step{{Op: OpQuery, Entity: "cwepr"}},
		Assertions: []Assertion{{Type: AssertQueryCount, Entity: "cwepr"}},
	}, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup step 0 (create cwepr): outcome NOT_FOUND")
}

func TestRun_UnexpectedOutcomeFails(t *testing.T) {
	result := run(t, &Scenario{
		Name:  "mismatch",
		Setup: []Step{molecule("TEMPO")},
		Flow: []Step{
			// A negative temperature is rejected.
			cwepr(1, -3),
			{Op: OpDelete, Entity: "molecule", ID: 1, Expect: &ExpectClause{Outcome: "NOT_FOUND"}},
			{Op: OpQuery, Entity: "molecule", Expect: &ExpectClause{Outcome: OutcomeOK, IDs: []int64{1}}},
		},
		Assertions: []Assertion{{Type: AssertTraceCount, Op: OpCreate, Outcome: "VALIDATION", Count: 1}},
	})

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "flow[0] create cwepr: expected outcome ok, got VALIDATION")
	assert.Contains(t, result.Errors[1], "flow[1] delete molecule: expected outcome NOT_FOUND, got ok")
	assert.Contains(t, result.Errors[2], "expected ids [1], got []")
}

func TestRun_FailedAssertions(t *testing.T) {
	result := run(t, &Scenario{
		Name:  "assertions",
		Setup: []Step{molecule("TEMPO"), cwepr(1, 80)},
		Flow:  []Step{{Op: OpUpdate, Entity: "cwepr", ID: 1, Fields: map[string]any{"location": "Bay 2"}}},
		Assertions: []Assertion{
			{Type: AssertRecord, Entity: "cwepr", ID: 1, Expect: map[string]any{"location": "Bay 3", "series": nil}},
			{Type: AssertRecord, Entity: "cwepr", ID: 5, Expect: map[string]any{"location": "Bay 2"}},
			{Type: AssertAbsent, Entity: "molecule", ID: 1},
			{Type: AssertQueryCount, Entity: "measurement", Count: 3},
			{Type: AssertPathAbsent, Path: "data/M1"},
			{Type: AssertPathExists, Path: "data/M2"},
			{Type: AssertTraceCount, Op: OpUpdate, Outcome: "VALIDATION", Count: 1},
		},
	})

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 7)
	assert.Contains(t, result.Errors[0], "location=Bay 2 (want Bay 3)")
	assert.Contains(t, result.Errors[1], "NOT_FOUND")
	assert.Contains(t, result.Errors[2], "record exists")
	assert.Contains(t, result.Errors[3], "1 record(s)")
	assert.Contains(t, result.Errors[4], "data/M1 absent")
	assert.Contains(t, result.Errors[5], "data/M2 present")
	assert.Contains(t, result.Errors[6], "0 occurrences")
	assert.Contains(t, result.Errors[6], "Full trace:")
}

func TestRun_UpdateNullAndPatch(t *testing.T) {
	result := run(t, &Scenario{
		Name:  "patch",
		Setup: []Step{molecule("TEMPO"), cwepr(1, 80)},
		Flow: []Step{
			{Op: OpUpdate, Entity: "cwepr", ID: 1, Fields: map[string]any{"location": "Bay 2", "series": "s1"}},
			{Op: OpUpdate, Entity: "measurement", ID: 1, Null: []string{"series"}},
			{Op: OpUpdate, Entity: "cwepr", ID: 1, Null: []string{"temperature"}, Expect: &ExpectClause{Outcome: "VALIDATION"}},
			{Op: OpUpdate, Entity: "cwepr", ID: 1, Fields: map[string]any{"bogus": 1}, Expect: &ExpectClause{Outcome: "VALIDATION"}},
		},
		Assertions: []Assertion{
			{Type: AssertRecord, Entity: "cwepr", ID: 1, Expect: map[string]any{
				"location":    "Bay 2",
				"series":      nil,
				"temperature": 80,
				"updated_at":  "2025-01-01T00:00:03.000000000Z",
			}},
		},
	})
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_UnknownFilterKey(t *testing.T) {
	result := run(t, &Scenario{
		Name: "filter",
		Flow: []Step{{
			Op:     OpQuery,
			Entity: "cwepr",
			Where:  map[string]any{"temperature__between": 3},
			Expect: &ExpectClause{Outcome: "VALIDATION"},
		}},
		Assertions: []Assertion{{Type: AssertTraceCount, Op: OpQuery, Outcome: "VALIDATION", Count: 1}},
	})
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeOK, outcome(nil))
	assert.Equal(t, "ERROR", outcome(assert.AnError))
}
