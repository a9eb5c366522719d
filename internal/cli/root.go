// Package cli implements the larder command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/larder/internal/paths"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// app holds global flag values and state shared by all subcommands.
type app struct {
	configDir string
	dataDir   string
	logLevel  string
	jsonMode  bool

	cfg    *viper.Viper
	logger *slog.Logger
	level  slog.LevelVar
}

// NewRootCmd creates the top-level "larder" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "larder",
		Short: "A file-backed JSON document store",
		Long: "Larder stores collections of JSON documents in plain files and queries\n" +
			"them with MongoDB-style filters. Writers in different processes are\n" +
			"serialized through a lock file next to each collection.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configDir, "config-dir", "", "configuration directory (default: $(CWD)/.larder)")
	pf.StringVar(&a.dataDir, "data-dir", "", "data directory (default: $(CWD)/.larder-data)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (default: info)")
	pf.BoolVar(&a.jsonMode, "json", false, "output results as JSON")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newCollectionsCmd(a),
		newInsertCmd(a),
		newFindCmd(a),
		newCountCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newExportCmd(a),
		newWatchCmd(a),
		newLockCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, NewRootCmd(), os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// run executes root with args and returns the process exit code. Errors are
// printed to stderr.
func run(ctx context.Context, root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintf(stderr, "larder: %v\n", err)
	return exitCode(err)
}

// exitCode maps storage failures to exitSysError and everything else, such
// as bad flags, filters or documents, to exitUserError.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, types.ErrIO),
		errors.Is(err, types.ErrLockTimeout),
		errors.Is(err, types.ErrParse):
		return exitSysError
	default:
		return exitUserError
	}
}

// setup loads configuration and builds the logger before any subcommand
// runs.
func (a *app) setup(cmd *cobra.Command) error {
	configDir, err := paths.ResolveConfigDir(a.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	a.configDir = configDir

	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	if err := cfg.BindPFlag(cfgKeyLogLevel, cmd.Flags().Lookup("log-level")); err != nil {
		return fmt.Errorf("bind log level: %w", err)
	}
	a.cfg = cfg

	level, err := parseLevel(cfg.GetString(cfgKeyLogLevel))
	if err != nil {
		return err
	}
	a.level.Set(level)
	a.logger = newLogger(cmd.ErrOrStderr(), &a.level)
	return nil
}

// resolveDataDir returns the data directory following the precedence:
// --data-dir flag > config.yaml data_dir (or LARDER_DATA_DIR) > default.
func (a *app) resolveDataDir() (string, error) {
	var configured string
	if a.cfg != nil {
		configured = a.cfg.GetString(cfgKeyDataDir)
	}
	return paths.ResolveDataDir(a.dataDir, configured)
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %q", s)
	}
}

// newLogger returns a tint handler writing to w, colored only when w is a
// terminal.
func newLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
		w = colorable.NewColorable(f)
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
	}))
}
