package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/larder/internal/collection"
	"github.com/mesh-intelligence/larder/internal/paths"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// openCollection resolves a collection argument against the data directory
// and opens it with the configured lock options and logger.
func (a *app) openCollection(arg string, watch bool) (*collection.Collection, error) {
	path, err := a.collectionPath(arg)
	if err != nil {
		return nil, err
	}
	lock, err := lockOptions(a.cfg)
	if err != nil {
		return nil, err
	}
	return collection.Open(path, types.Options{
		Lock:         lock,
		Logger:       a.logger,
		WatchChanges: watch,
	})
}

func (a *app) collectionPath(arg string) (string, error) {
	dataDir, err := a.resolveDataDir()
	if err != nil {
		return "", fmt.Errorf("resolve data dir: %w", err)
	}
	return paths.CollectionPath(dataDir, arg)
}

// parseObject decodes a JSON object given on the command line. An empty
// string yields nil.
func parseObject(flag, s string) (map[string]any, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("--%s: expected a JSON object: %w", flag, err)
	}
	if m == nil {
		return nil, fmt.Errorf("--%s: expected a JSON object, got null", flag)
	}
	return m, nil
}

func parseProjection(s string) (types.Projection, error) {
	raw, err := parseObject("projection", s)
	if err != nil {
		return nil, err
	}
	return types.ParseProjection(raw)
}

// readDocuments parses documents from args, or from in when args is empty or
// "-". Each source may hold one object or an array of objects.
func readDocuments(args []string, in io.Reader) ([]types.Document, error) {
	var sources [][]byte
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		sources = append(sources, data)
	} else {
		for _, arg := range args {
			sources = append(sources, []byte(arg))
		}
	}

	var docs []types.Document
	for i, src := range sources {
		var v any
		if err := json.Unmarshal(src, &v); err != nil {
			return nil, fmt.Errorf("document %d: invalid JSON: %w", i, err)
		}
		switch t := v.(type) {
		case map[string]any:
			docs = append(docs, t)
		case []any:
			for j, e := range t {
				m, ok := e.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("document %d[%d]: %w: not a JSON object", i, j, types.ErrInvalidDocument)
				}
				docs = append(docs, m)
			}
		default:
			return nil, fmt.Errorf("document %d: %w: not a JSON object", i, types.ErrInvalidDocument)
		}
	}
	return docs, nil
}

// printJSON writes v as indented JSON followed by a newline.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

// closeQuietly closes c and logs a failure instead of masking the command's
// own error.
func (a *app) closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		a.logger.Warn("closing collection", "error", err)
	}
}
