package catalogerr

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesCode(t *testing.T) {
	err := fmt.Errorf("delete measurement: %w", NotFound("measurement", 7))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.True(t, Is(err, CodeNotFound))
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestError_MessageIncludesContext(t *testing.T) {
	err := Validation("cwepr", "temperature", "must be greater than 0, got %v", -3.0)

	assert.Equal(t, "VALIDATION: must be greater than 0, got -3 (entity=cwepr, field=temperature)", err.Error())
}

func TestError_UnwrapKeepsCause(t *testing.T) {
	err := IOConsistency("measurement", 3, true, os.ErrPermission)

	assert.True(t, errors.Is(err, os.ErrPermission))
	assert.True(t, errors.Is(err, ErrIOConsistency))
	assert.True(t, err.Compensated)
	assert.Contains(t, err.Error(), "rollback completed")
}

func TestCodeOf_NonCatalogError(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
	assert.False(t, Is(nil, CodeNotFound))
}

func TestAllocation_ReportsAttempts(t *testing.T) {
	err := Allocation("molecule", 3, errors.New("UNIQUE constraint failed"))

	assert.Contains(t, err.Error(), "after 3 attempt(s)")
	assert.True(t, errors.Is(err, ErrAllocation))
}
