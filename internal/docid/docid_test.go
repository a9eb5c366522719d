package docid

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFormat(t *testing.T) {
	id := New()

	assert.Len(t, id, Len)
	_, err := hex.DecodeString(id)
	require.NoError(t, err)
	assert.Equal(t, byte('7'), id[12], "version nibble should mark UUID v7")
}

func TestNewUnique(t *testing.T) {
	seen := make(map[string]bool, 10000)
	for range 10000 {
		id := New()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestNewTimeOrdered(t *testing.T) {
	first := New()
	time.Sleep(2 * time.Millisecond)
	second := New()

	assert.Less(t, first, second)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("abc"))
	assert.False(t, Valid(""))
	assert.False(t, Valid(42))
	assert.False(t, Valid(nil))
}
