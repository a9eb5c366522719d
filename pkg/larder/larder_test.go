package larder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/larder/pkg/types"
)

func TestOpenWithOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	path := filepath.Join(t.TempDir(), "records.json")

	coll, err := Open(path,
		WithLockOptions(types.LockOptions{Timeout: time.Second}),
		WithMetrics(reg),
		WithFileMode(0o600),
	)
	require.NoError(t, err)
	defer coll.Close()

	ctx := context.Background()
	res, err := coll.InsertOne(ctx, types.Document{"title": "Blue Train"})
	require.NoError(t, err)
	assert.True(t, res.Acknowledged)

	doc, err := coll.FindOne(ctx, types.FindOptions{Where: types.Filter{"title": "Blue Train"}})
	require.NoError(t, err)
	assert.Equal(t, res.InsertedID, doc[types.IDField])
	assert.Equal(t, path, coll.Path())

	n, err := testutil.GatherAndCount(reg, "larder_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one series per operation")
}

func TestOpenRejectsInvalidLockOptions(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "c.json"),
		WithLockOptions(types.LockOptions{RetryInterval: -time.Second}))
	assert.ErrorIs(t, err, types.ErrLockRetryInvalid)
}

func TestWithOnChangeEnablesWatching(t *testing.T) {
	var o types.Options
	WithOnChange(func() {})(&o)
	assert.True(t, o.WatchChanges)
	assert.NotNil(t, o.OnChange)
}
