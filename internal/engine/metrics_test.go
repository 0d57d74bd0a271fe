package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/untoldecay/InstructionLog/internal/storage"
)

func TestResultLabel(t *testing.T) {
	cases := map[string]error{
		"ok":               nil,
		"not_found":        fmt.Errorf("instruction x: %w", storage.ErrNotFound),
		"conflict":         storage.ErrConflict,
		"version_conflict": storage.ErrVersionConflict,
		"invalid_argument": storage.ErrInvalidArgument,
		"error":            errors.New("disk I/O error"),
	}
	for want, err := range cases {
		assert.Equal(t, want, resultLabel(err))
	}
}

func TestOperationsAreCounted(t *testing.T) {
	e, _ := newTestEngine(t)
	counter := operationsTotal.WithLabelValues("diff", "not_found")
	before := testutil.ToFloat64(counter)

	_, err := e.Diff(context.Background(), "missing", 1, 2)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
