package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/larder/pkg/types"
)

func newDeleteCmd(a *app) *cobra.Command {
	var (
		where      string
		many       bool
		ret        bool
		projection string
	)
	cmd := &cobra.Command{
		Use:   "delete <collection>",
		Short: "Delete documents matching a filter",
		Long: `Delete removes the first document matching --where, or every match with
--many. With --return the removed documents are printed instead of the count.

Example:
  larder delete records --where '{"mono":false}' --many`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseObject("where", where)
			if err != nil {
				return err
			}
			proj, err := parseProjection(projection)
			if err != nil {
				return err
			}
			coll, err := a.openCollection(args[0], false)
			if err != nil {
				return err
			}
			defer a.closeQuietly(coll)
			ctx := cmd.Context()
			opts := types.DeleteOptions{Where: filter, Projection: proj}

			if ret {
				if many {
					docs, err := coll.FindManyAndDelete(ctx, opts)
					if err != nil {
						return err
					}
					return printJSON(cmd, docs)
				}
				doc, err := coll.FindOneAndDelete(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(cmd, doc)
			}

			var res types.DeleteResult
			if many {
				res, err = coll.DeleteMany(ctx, opts)
			} else {
				res, err = coll.DeleteOne(ctx, opts)
			}
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd, res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", res.DeletedCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&where, "where", "", "filter as a JSON object")
	cmd.Flags().BoolVar(&many, "many", false, "delete every match instead of the first")
	cmd.Flags().BoolVar(&ret, "return", false, "print the removed documents")
	cmd.Flags().StringVar(&projection, "projection", "", "projection applied to returned documents")
	return cmd
}
