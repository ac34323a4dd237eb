package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	EnvPrefix   = "TASK_CLI"
	DefaultFile = "tasks.json"

	keyFile     = "file"
	keyFormat   = "format"
	keyLogLevel = "log_level"
	keyLock     = "lock"
)

type Config struct {
	File     string `mapstructure:"file"`
	Format   string `mapstructure:"format"`
	LogLevel string `mapstructure:"log_level"`
	Lock     bool   `mapstructure:"lock"`
}

// FlagNames maps config keys to the CLI flags that override them.
var FlagNames = map[string]string{
	keyFile:   "file",
	keyFormat: "format",
	keyLock:   "lock",
}

type LoadOptions struct {
	// ConfigFile, if set, is the only config file read and must exist.
	ConfigFile string
	Flags      *pflag.FlagSet
	// SearchDirs overrides the default global/project lookup; used by tests.
	SearchDirs []string
}

// Load resolves configuration from defaults, config files, TASK_CLI_*
// environment variables and changed flags, later sources winning.
func Load(opts LoadOptions) (Config, error) {
	v := viper.New()
	v.SetDefault(keyFile, DefaultFile)
	v.SetDefault(keyFormat, "")
	v.SetDefault(keyLogLevel, "warn")
	v.SetDefault(keyLock, false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
	} else {
		dirs := opts.SearchDirs
		if dirs == nil {
			dirs = defaultSearchDirs()
		}
		// Project config is merged after global config so it wins.
		for _, dir := range dirs {
			if err := mergeFile(v, filepath.Join(dir, "config.yaml")); err != nil {
				return Config{}, err
			}
		}
	}

	if opts.Flags != nil {
		for key, name := range FlagNames {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.File) == "" {
		return errors.New("config: file must not be empty")
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c Config) Level() (zapcore.Level, error) {
	return zapcore.ParseLevel(c.LogLevel)
}

func mergeFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

func defaultSearchDirs() []string {
	var dirs []string
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".task-cli"))
	}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, filepath.Join(cwd, ".task-cli"))
	}
	return dirs
}
