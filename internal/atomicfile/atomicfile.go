// Package atomicfile writes whole files so that readers never observe a
// truncated or mixed result.
//
// Data is written to "<path>.tmp", fsynced, and renamed over path. Renames
// within one volume are atomic, so path always holds either the previous
// content or the new content.
package atomicfile

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// TempSuffix is appended to the target path to name the temporary file.
const TempSuffix = ".tmp"

// TempPath returns the temporary file used while writing path.
func TempPath(path string) string {
	return path + TempSuffix
}

// WriteFile atomically replaces path with data.
// A failure before the rename leaves path untouched and removes the
// temporary file. All failures are returned as *types.IOError.
func WriteFile(path string, data []byte, perm fs.FileMode) error {
	tmpName := TempPath(path)
	tmp, err := os.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return &types.IOError{Op: "create temp file", Path: tmpName, Err: err}
	}

	w := bufio.NewWriter(tmp)
	if _, err := w.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &types.IOError{Op: "write temp file", Path: tmpName, Err: err}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &types.IOError{Op: "flush temp file", Path: tmpName, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &types.IOError{Op: "sync temp file", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &types.IOError{Op: "close temp file", Path: tmpName, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &types.IOError{Op: "rename temp file", Path: path, Err: err}
	}
	return nil
}

// WriteJSON marshals v with two-space indentation and a trailing newline and
// writes it atomically.
func WriteJSON(path string, v any, perm fs.FileMode) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	data = append(data, '\n')
	return WriteFile(path, data, perm)
}
