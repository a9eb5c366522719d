package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/larder/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// envPrefix maps config keys to environment variables, e.g.
	// lock.timeout to LARDER_LOCK_TIMEOUT.
	envPrefix = "LARDER"

	cfgKeyDataDir       = "data_dir"
	cfgKeyLogLevel      = "log_level"
	cfgKeyLockRetry     = "lock.retry_interval"
	cfgKeyLockTimeout   = "lock.timeout"
	cfgKeyLockStale     = "lock.stale_after"
	defaultLogLevelName = "info"
)

// configFile is the structure written to config.yaml by init.
type configFile struct {
	DataDir  string     `yaml:"data_dir,omitempty"`
	LogLevel string     `yaml:"log_level"`
	Lock     lockConfig `yaml:"lock"`
}

type lockConfig struct {
	RetryInterval string `yaml:"retry_interval"`
	Timeout       string `yaml:"timeout"`
	StaleAfter    string `yaml:"stale_after"`
}

// loadConfig reads config.yaml from configDir using Viper. A missing file is
// not an error; defaults and LARDER_* environment variables still apply.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyLogLevel, defaultLogLevelName)
	v.SetDefault(cfgKeyLockRetry, types.DefaultLockRetryInterval)
	v.SetDefault(cfgKeyLockTimeout, types.DefaultLockTimeout)
	v.SetDefault(cfgKeyLockStale, types.DefaultLockStaleAfter)
	v.SetDefault(cfgKeyDataDir, "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// lockOptions builds lock options from the lock.* config keys.
func lockOptions(v *viper.Viper) (types.LockOptions, error) {
	opts := types.LockOptions{
		RetryInterval: v.GetDuration(cfgKeyLockRetry),
		Timeout:       v.GetDuration(cfgKeyLockTimeout),
		StaleAfter:    v.GetDuration(cfgKeyLockStale),
	}
	if err := opts.WithDefaults().Validate(); err != nil {
		return types.LockOptions{}, fmt.Errorf("config lock: %w", err)
	}
	return opts, nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. If it already exists, the function returns nil.
func writeConfigIfMissing(path, dataDir string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	cfg := configFile{
		DataDir:  dataDir,
		LogLevel: defaultLogLevelName,
		Lock: lockConfig{
			RetryInterval: types.DefaultLockRetryInterval.String(),
			Timeout:       types.DefaultLockTimeout.String(),
			StaleAfter:    types.DefaultLockStaleAfter.String(),
		},
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	data = append([]byte("# Larder CLI configuration\n"), data...)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
