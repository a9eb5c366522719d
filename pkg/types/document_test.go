package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSort(t *testing.T) {
	t.Run("multiple keys", func(t *testing.T) {
		got, err := ParseSort("v:-1, name:1,created:desc,size")
		require.NoError(t, err)
		assert.Equal(t, []SortField{
			{Field: "v", Direction: Descending},
			{Field: "name", Direction: Ascending},
			{Field: "created", Direction: Descending},
			{Field: "size", Direction: Ascending},
		}, got)
	})

	t.Run("empty string", func(t *testing.T) {
		got, err := ParseSort("  ")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("bad direction", func(t *testing.T) {
		_, err := ParseSort("v:2")
		assert.ErrorIs(t, err, ErrInvalidSort)
	})

	t.Run("empty field", func(t *testing.T) {
		_, err := ParseSort(":1")
		assert.ErrorIs(t, err, ErrInvalidSort)
	})
}

func TestSortBy(t *testing.T) {
	got := SortBy("v", Descending, "name", Ascending)
	assert.Equal(t, []SortField{{"v", -1}, {"name", 1}}, got)
}

func TestParseProjection(t *testing.T) {
	got, err := ParseProjection(map[string]any{"name": float64(1), "_id": float64(0), "path": true})
	require.NoError(t, err)
	assert.Equal(t, Projection{"name": true, "_id": false, "path": true}, got)

	empty, err := ParseProjection(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = ParseProjection(map[string]any{"name": []any{1}})
	assert.ErrorIs(t, err, ErrInvalidProjection)
}
