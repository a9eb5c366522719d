package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/larder/internal/collection"
	"github.com/mesh-intelligence/larder/pkg/types"
)

func newWatchCmd(a *app) *cobra.Command {
	var where string
	cmd := &cobra.Command{
		Use:   "watch <collection>",
		Short: "Print the match count whenever the collection file changes",
		Long: `Watch follows a collection file and prints a line with the number of
documents matching --where each time another process changes it. Stop with
Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseObject("where", where)
			if err != nil {
				return err
			}
			path, err := a.collectionPath(args[0])
			if err != nil {
				return err
			}
			lock, err := lockOptions(a.cfg)
			if err != nil {
				return err
			}

			changed := make(chan struct{}, 1)
			coll, err := collection.Open(path, types.Options{
				Lock:         lock,
				Logger:       a.logger,
				WatchChanges: true,
				OnChange: func() {
					select {
					case changed <- struct{}{}:
					default:
					}
				},
			})
			if err != nil {
				return err
			}
			defer a.closeQuietly(coll)

			ctx := cmd.Context()
			report := func() error {
				n, err := coll.Count(ctx, filter)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d\n", time.Now().Format(time.TimeOnly), collectionName(args[0]), n)
				return nil
			}
			if err := report(); err != nil {
				return err
			}
			for {
				select {
				case <-ctx.Done():
					if errors.Is(ctx.Err(), context.Canceled) {
						return nil
					}
					return ctx.Err()
				case <-changed:
					if err := report(); err != nil {
						a.logger.Warn("reading collection", "error", err)
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&where, "where", "", "filter as a JSON object")
	return cmd
}

// collectionName returns the display name of a collection argument.
func collectionName(arg string) string {
	return collection.Name(arg)
}
