package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/larder/internal/lockfile"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// lockStatus is the JSON form of the lock command output.
type lockStatus struct {
	Locked    bool              `json:"locked"`
	Path      string            `json:"path"`
	Holder    *types.LockHolder `json:"holder,omitempty"`
	Heartbeat *time.Time        `json:"heartbeat,omitempty"`
}

func newLockCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lock <collection>",
		Short: "Show who holds a collection's lock file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.collectionPath(args[0])
			if err != nil {
				return err
			}
			status := lockStatus{Path: lockfile.PathFor(path)}
			holder, heartbeat, err := lockfile.Inspect(status.Path)
			switch {
			case errors.Is(err, fs.ErrNotExist):
			case err != nil && heartbeat.IsZero():
				return &types.IOError{Op: "inspect lock file", Path: status.Path, Err: err}
			default:
				// A lock file that cannot be decoded is still held.
				status.Locked = true
				status.Holder = holder
				status.Heartbeat = &heartbeat
			}

			if a.jsonMode {
				return printJSON(cmd, status)
			}
			out := cmd.OutOrStdout()
			if !status.Locked {
				fmt.Fprintln(out, "unlocked")
				return nil
			}
			if status.Holder == nil {
				fmt.Fprintf(out, "locked (unreadable holder), last heartbeat %s\n", heartbeat.Format(time.RFC3339))
				return nil
			}
			fmt.Fprintf(out, "locked by pid %d on %s since %s, last heartbeat %s\n",
				holder.PID, holder.Hostname,
				holder.CreatedAt.Format(time.RFC3339), heartbeat.Format(time.RFC3339))
			return nil
		},
	}
}
