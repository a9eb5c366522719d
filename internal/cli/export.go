package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/larder/internal/export"
	"github.com/mesh-intelligence/larder/internal/paths"
)

func newExportCmd(a *app) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "export [collection...]",
		Short: "Snapshot collections into a SQLite database",
		Long: `Export copies collections into the documents table of a SQLite database,
replacing earlier snapshots of the same collections. Without arguments every
collection in the data directory is exported.

Example:
  larder export --sqlite snapshot.db
  sqlite3 snapshot.db "SELECT json_extract(body, '$.title') FROM documents"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				return fmt.Errorf("--sqlite is required")
			}
			names := args
			if len(names) == 0 {
				dataDir, err := a.resolveDataDir()
				if err != nil {
					return fmt.Errorf("resolve data dir: %w", err)
				}
				names, err = paths.ListCollections(dataDir)
				if err != nil {
					return fmt.Errorf("list collections: %w", err)
				}
			}

			var sources []export.Source
			for _, name := range names {
				coll, err := a.openCollection(name, false)
				if err != nil {
					return err
				}
				defer a.closeQuietly(coll)
				sources = append(sources, export.Source{Name: collectionName(name), Collection: coll})
			}

			summary, err := export.ToSQLite(cmd.Context(), dbPath, sources)
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd, summary)
			}
			keys := make([]string, 0, len(summary))
			for k := range summary {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", k, summary[k])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "sqlite", "", "path of the SQLite database to write")
	return cmd
}
