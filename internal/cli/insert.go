package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInsertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <collection> [document...]",
		Short: "Insert documents into a collection",
		Long: `Insert one or more JSON documents. Each argument is an object or an array
of objects; with no document arguments (or "-") documents are read from stdin.
Documents without an _id are assigned one. All documents are inserted or none.

Example:
  larder insert records '{"title":"Blue Train","year":1957}'
  cat records.json | larder insert records`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := readDocuments(args[1:], cmd.InOrStdin())
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				return fmt.Errorf("no documents to insert")
			}

			coll, err := a.openCollection(args[0], false)
			if err != nil {
				return err
			}
			defer a.closeQuietly(coll)

			res, err := coll.InsertMany(cmd.Context(), docs)
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd, res)
			}
			for _, id := range res.InsertedIDs {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

