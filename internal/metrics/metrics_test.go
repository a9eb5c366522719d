package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/mesh-intelligence/larder/pkg/types"
)

func TestObserverRecordsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := New(reg)

	o.ObserveOperation("items", "insert_one", nil)
	o.ObserveOperation("items", "insert_one", nil)
	o.ObserveOperation("items", "insert_one", &types.LockTimeoutError{Path: "x"})

	assert.Equal(t, 2.0, testutil.ToFloat64(o.operations.WithLabelValues("items", "insert_one", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.operations.WithLabelValues("items", "insert_one", "lock_timeout")))
}

func TestObserverRecordsDocumentsAndLockWait(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := New(reg)

	o.ObserveDocuments("items", 7)
	o.ObserveLockWait("items", 3*time.Millisecond)

	assert.Equal(t, 7.0, testutil.ToFloat64(o.documents.WithLabelValues("items")))
	assert.Equal(t, 1, testutil.CollectAndCount(o.lockWait))

	n, err := testutil.GatherAndCount(reg, "larder_documents", "larder_lock_wait_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&types.LockTimeoutError{}, "lock_timeout"},
		{&types.ParseError{Err: errors.New("x")}, "parse_error"},
		{&types.IOError{Err: errors.New("x")}, "io_error"},
		{types.ErrClosed, "closed"},
		{fmt.Errorf("wrap: %w", types.ErrInvalidFilter), "invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Result(tt.err))
		})
	}
}
