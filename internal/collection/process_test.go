package collection

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/larder/pkg/types"
)

const (
	helperPathEnv  = "LARDER_HELPER_COLLECTION"
	helperCountEnv = "LARDER_HELPER_COUNT"
)

// TestHelperProcess is not a real test. It is re-executed as a child process
// by TestConcurrentInsertsFromProcesses.
func TestHelperProcess(t *testing.T) {
	path := os.Getenv(helperPathEnv)
	if path == "" {
		t.Skip("helper process only")
	}
	n, err := strconv.Atoi(os.Getenv(helperCountEnv))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	c, err := Open(path, testOptions())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	for i := range n {
		if _, err := c.InsertOne(context.Background(), types.Document{"pid": os.Getpid(), "i": i}); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	os.Exit(0)
}

func TestConcurrentInsertsFromProcesses(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns processes")
	}
	path := filepath.Join(t.TempDir(), "shared.json")
	const procs, perProc = 3, 15

	cmds := make([]*exec.Cmd, procs)
	for i := range cmds {
		cmd := exec.Command(os.Args[0], "-test.run=^TestHelperProcess$")
		cmd.Env = append(os.Environ(),
			helperPathEnv+"="+path,
			helperCountEnv+"="+strconv.Itoa(perProc),
		)
		cmd.Stderr = os.Stderr
		require.NoError(t, cmd.Start())
		cmds[i] = cmd
	}
	for _, cmd := range cmds {
		require.NoError(t, cmd.Wait())
	}

	docs := readFileDocs(t, path)
	assert.Len(t, docs, procs*perProc)
	pids := map[any]int{}
	for _, d := range docs {
		pids[d["pid"]]++
	}
	assert.Len(t, pids, procs)
	for _, n := range pids {
		assert.Equal(t, perProc, n)
	}
}
