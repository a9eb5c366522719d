package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Values accepted by --return.
const (
	returnNone   = ""
	returnBefore = "before"
	returnAfter  = "after"
)

func newUpdateCmd(a *app) *cobra.Command {
	var (
		where      string
		set        string
		many       bool
		ret        string
		projection string
	)
	cmd := &cobra.Command{
		Use:   "update <collection>",
		Short: "Update documents matching a filter",
		Long: `Update applies --set to the first document matching --where, or to every
match with --many. A plain object is merged into each document; an object of
update operators ($set, $unset, $inc, $push) is applied field by field.

With --return before|after the affected documents are printed instead of the
match counts.

Example:
  larder update records --where '{"title":"Blue Train"}' --set '{"rating":5}'
  larder update records --many --set '{"$inc":{"plays":1}}' --return after`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseObject("where", where)
			if err != nil {
				return err
			}
			update, err := parseObject("set", set)
			if err != nil {
				return err
			}
			if update == nil {
				return fmt.Errorf("--set is required")
			}
			proj, err := parseProjection(projection)
			if err != nil {
				return err
			}
			switch ret {
			case returnNone, returnBefore, returnAfter:
			default:
				return fmt.Errorf("--return must be %q or %q", returnBefore, returnAfter)
			}

			coll, err := a.openCollection(args[0], false)
			if err != nil {
				return err
			}
			defer a.closeQuietly(coll)
			ctx := cmd.Context()

			if ret != returnNone {
				opts := types.FindAndUpdateOptions{
					Where:      filter,
					Update:     update,
					ReturnNew:  ret == returnAfter,
					Projection: proj,
				}
				if many {
					docs, err := coll.FindManyAndUpdate(ctx, opts)
					if err != nil {
						return err
					}
					return printJSON(cmd, docs)
				}
				doc, err := coll.FindOneAndUpdate(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(cmd, doc)
			}

			opts := types.UpdateOptions{Where: filter, Update: update}
			var res types.UpdateResult
			if many {
				res, err = coll.UpdateMany(ctx, opts)
			} else {
				res, err = coll.UpdateOne(ctx, opts)
			}
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd, res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "matched %d, modified %d\n", res.MatchedCount, res.ModifiedCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&where, "where", "", "filter as a JSON object")
	cmd.Flags().StringVar(&set, "set", "", "update as a JSON object")
	cmd.Flags().BoolVar(&many, "many", false, "update every match instead of the first")
	cmd.Flags().StringVar(&ret, "return", "", "print the documents before or after the update")
	cmd.Flags().StringVar(&projection, "projection", "", "projection applied to returned documents")
	return cmd
}
