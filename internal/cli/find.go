package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/larder/pkg/types"
)

type findFlags struct {
	where      string
	projection string
	sort       string
	limit      int
	skip       int
	one        bool
}

func newFindCmd(a *app) *cobra.Command {
	var f findFlags
	cmd := &cobra.Command{
		Use:   "find <collection>",
		Short: "Query documents",
		Long: `Find prints the documents matching --where as a JSON array, or a single
document (null when none matches) with --one.

Example:
  larder find records --where '{"year":{"$lt":1960}}' --sort year:-1
  larder find records --projection '{"title":1}' --limit 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.options()
			if err != nil {
				return err
			}
			coll, err := a.openCollection(args[0], false)
			if err != nil {
				return err
			}
			defer a.closeQuietly(coll)

			if f.one {
				doc, err := coll.FindOne(cmd.Context(), opts)
				if err != nil {
					return err
				}
				return printJSON(cmd, doc)
			}
			docs, err := coll.FindMany(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printJSON(cmd, docs)
		},
	}
	cmd.Flags().StringVar(&f.where, "where", "", "filter as a JSON object")
	cmd.Flags().StringVar(&f.projection, "projection", "", `projection as a JSON object, e.g. '{"title":1}'`)
	cmd.Flags().StringVar(&f.sort, "sort", "", "sort keys as field:dir[,field:dir], dir is 1, -1, asc or desc")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum number of documents (0 for no limit)")
	cmd.Flags().IntVar(&f.skip, "skip", 0, "number of documents to skip after sorting")
	cmd.Flags().BoolVar(&f.one, "one", false, "return only the first match")
	return cmd
}

func (f findFlags) options() (types.FindOptions, error) {
	if f.limit < 0 || f.skip < 0 {
		return types.FindOptions{}, fmt.Errorf("--limit and --skip must not be negative")
	}
	where, err := parseObject("where", f.where)
	if err != nil {
		return types.FindOptions{}, err
	}
	projection, err := parseProjection(f.projection)
	if err != nil {
		return types.FindOptions{}, err
	}
	sort, err := types.ParseSort(f.sort)
	if err != nil {
		return types.FindOptions{}, err
	}
	return types.FindOptions{
		Where:      where,
		Projection: projection,
		Sort:       sort,
		Skip:       f.skip,
		Limit:      f.limit,
	}, nil
}

func newCountCmd(a *app) *cobra.Command {
	var where string
	cmd := &cobra.Command{
		Use:   "count <collection>",
		Short: "Count documents matching a filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseObject("where", where)
			if err != nil {
				return err
			}
			coll, err := a.openCollection(args[0], false)
			if err != nil {
				return err
			}
			defer a.closeQuietly(coll)

			n, err := coll.Count(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd, map[string]int{"count": n})
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	cmd.Flags().StringVar(&where, "where", "", "filter as a JSON object")
	return cmd
}
