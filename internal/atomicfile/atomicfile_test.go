package atomicfile

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/larder/pkg/types"
)

func TestWriteFileReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"a":1}]`), 0o644))

	require.NoError(t, WriteFile(path, []byte(`[{"a":2}]`), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `[{"a":2}]`, string(data))

	_, err = os.Stat(TempPath(path))
	assert.True(t, os.IsNotExist(err), "temp file should be gone after rename")
}

func TestWriteFileCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.json")

	require.NoError(t, WriteFile(path, []byte("[]\n"), 0o600))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.Size())
}

func TestWriteFileMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "c.json")

	err := WriteFile(path, []byte("[]"), 0o644)

	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrIO)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestWriteFileRenameFailureLeavesOriginal(t *testing.T) {
	dir := t.TempDir()
	// A non-empty directory at the target path makes the rename fail.
	path := filepath.Join(dir, "c.json")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "child"), 0o755))

	err := WriteFile(path, []byte("[]"), 0o644)

	var ioErr *types.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "rename temp file", ioErr.Op)
	info, statErr := os.Stat(path)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
}

func TestStaleTempFileDoesNotAffectTarget(t *testing.T) {
	// A writer killed between the temp write and the rename leaves a stray
	// temp file; the target must stay valid and the next write must succeed.
	path := filepath.Join(t.TempDir(), "c.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"_id":"a"}]`), 0o644))
	require.NoError(t, os.WriteFile(TempPath(path), []byte(`[{"_id":`), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"_id":"a"}]`, string(data))

	require.NoError(t, WriteFile(path, []byte(`[]`), 0o644))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestWriteJSONIndents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.json")

	require.NoError(t, WriteJSON(path, []map[string]any{{"_id": "x"}}, 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"_id\": \"x\"\n  }\n]\n", string(data))
}
