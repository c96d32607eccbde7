package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specatalog/internal/catalogerr"
)

func TestResult(t *testing.T) {
	assert.Equal(t, "ok", Result(nil))
	assert.Equal(t, "error", Result(errors.New("boom")))
	assert.Equal(t, "not_found", Result(catalogerr.NotFound("measurement", 3)))
	assert.Equal(t, "validation", Result(errors.Join(errors.New("x"), catalogerr.Validation("cwepr", "temperature", "bad"))))
}

func TestPrometheus_Observe(t *testing.T) {
	p := NewPrometheus()
	ctx := context.Background()

	p.Observe(ctx, "create_measurement", nil, 3*time.Millisecond)
	p.Observe(ctx, "create_measurement", nil, 5*time.Millisecond)
	p.Observe(ctx, "create_measurement", catalogerr.Validation("cwepr", "solvent", "bad"), time.Millisecond)
	p.Observe(ctx, "", nil, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.operations.WithLabelValues("create_measurement", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.operations.WithLabelValues("create_measurement", "validation")))
	assert.Equal(t, 1, testutil.CollectAndCount(p.durations))

	expected := `
# HELP specatalog_operations_total Catalog operations by outcome. result is ok or an error code.
# TYPE specatalog_operations_total counter
specatalog_operations_total{operation="create_measurement",result="ok"} 2
specatalog_operations_total{operation="create_measurement",result="validation"} 1
`
	require.NoError(t, testutil.GatherAndCompare(p.Gatherer(), strings.NewReader(expected), "specatalog_operations_total"))
}

func TestPrometheus_WriteTextfile(t *testing.T) {
	p := NewPrometheus()
	p.Observe(context.Background(), "delete_measurement", nil, time.Millisecond)

	path := filepath.Join(t.TempDir(), "specatalog.prom")
	require.NoError(t, p.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `specatalog_operations_total{operation="delete_measurement",result="ok"} 1`)
	assert.Contains(t, string(data), "specatalog_operation_duration_seconds_count")
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.Observe(context.Background(), "x", nil, time.Second)
}
