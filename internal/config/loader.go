package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. ENPASS_LOG_LEVEL.
const EnvPrefix = "ENPASS"

// Loader handles configuration loading from multiple sources.
type Loader struct {
	configPath string
	v          *viper.Viper
}

// NewLoader creates a config loader. An empty path searches the default
// locations and tolerates a missing file.
func NewLoader(configPath string) *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{
		configPath: configPath,
		v:          v,
	}
}

// BindFlag makes a command line flag override the config key.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("bind %s: flag not defined", key)
	}
	return l.v.BindPFlag(key, flag)
}

// Load reads configuration from file, environment and bound flags.
func (l *Loader) Load() (*Config, error) {
	l.setDefaults(DefaultConfig())

	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	} else {
		l.v.SetConfigName("config")
		for _, dir := range l.defaultPaths() {
			l.v.AddConfigPath(dir)
		}
		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("load config file %s: %w", l.v.ConfigFileUsed(), err)
			}
		}
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ConfigFileUsed returns the file the config was read from, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// defaultPaths returns default config directories.
func (l *Loader) defaultPaths() []string {
	paths := []string{".enpass"}

	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "enpass-cli"))
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".enpass-cli"))
	}

	return paths
}

// setDefaults registers every key so env overrides and Unmarshal see them.
func (l *Loader) setDefaults(cfg *Config) {
	defaults := map[string]interface{}{
		"vault.path":                 cfg.Vault.Path,
		"vault.passphrase_env":       cfg.Vault.PassphraseEnv,
		"store.driver":               cfg.Store.Driver,
		"store.memvfs_extension":     cfg.Store.MemVFSExtension,
		"store.cipher_compatibility": cfg.Store.CipherCompatibility,
		"store.cipher_page_size":     cfg.Store.CipherPageSize,
		"store.verify_on_unlock":     cfg.Store.VerifyOnUnlock,
		"output.json":                cfg.Output.JSON,
		"output.color":               cfg.Output.Color,
		"output.spinner":             cfg.Output.Spinner,
		"output.clipboard_clear":     cfg.Output.ClipboardClear,
		"log.level":                  cfg.Log.Level,
		"log.format":                 cfg.Log.Format,
		"log.file":                   cfg.Log.File,
		"log.color":                  cfg.Log.Color,
		"log.timestamp":              cfg.Log.Timestamp,
	}
	for k, v := range defaults {
		l.v.SetDefault(k, v)
	}
}
