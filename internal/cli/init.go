package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize larder configuration and data directories",
		Long:  "Create the configuration directory with a default config.yaml and the data directory.\nExisting files are left untouched.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, err := a.resolveDataDir()
			if err != nil {
				return fmt.Errorf("resolve data dir: %w", err)
			}

			// Only an explicit --data-dir is recorded in the new config.
			recorded := ""
			if a.dataDir != "" {
				recorded = dataDir
			}
			configPath := filepath.Join(a.configDir, configFileExt)
			created, err := writeConfigIfMissing(configPath, recorded)
			if err != nil {
				return err
			}
			if created {
				a.logger.Debug("wrote config", "path", configPath)
			}

			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return fmt.Errorf("create data directory: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Larder initialized successfully")
			return nil
		},
	}
}
