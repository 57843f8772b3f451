package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/taoxee/scribeflow/logger"
)

// FileSystem abstracts file lookups so tests can inject fixtures.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

type osFileSystem struct{}

func (osFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (osFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoaderOption customizes Load.
type LoaderOption func(*loaderConfig)

type loaderConfig struct {
	fs         FileSystem
	configFile string
	envFile    string
}

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *loaderConfig) { lc.fs = fs }
}

// WithConfigFile sets an explicit config file path, skipping the search.
func WithConfigFile(path string) LoaderOption {
	return func(lc *loaderConfig) { lc.configFile = path }
}

// WithEnvFile sets an explicit .env file path, skipping the search.
func WithEnvFile(path string) LoaderOption {
	return func(lc *loaderConfig) { lc.envFile = path }
}

// configSearchPaths lists where a config.yml is looked up, first hit wins.
var configSearchPaths = []string{
	"./cmd/scribeflow/config.yml",
	"./config/config.yml",
	"./config.yml",
	"../config.yml",
}

var envSearchPaths = []string{
	"./.env",
	"../.env",
	"./cmd/scribeflow/.env",
}

// Load resolves config and .env files, binds environment variables, and
// returns a validated Config with defaults applied.
func Load(opts ...LoaderOption) (*Config, error) {
	var lc loaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.fs == nil {
		lc.fs = osFileSystem{}
	}
	if lc.configFile == "" {
		lc.configFile = firstExisting(lc.fs, configSearchPaths)
	}
	if lc.envFile == "" {
		lc.envFile = firstExisting(lc.fs, envSearchPaths)
	}

	v := viper.New()

	if lc.configFile != "" && lc.fs.Exists(lc.configFile) {
		v.SetConfigFile(lc.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", lc.configFile, err)
		}
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	if lc.envFile != "" && lc.fs.Exists(lc.envFile) {
		if err := lc.fs.LoadEnv(lc.envFile); err != nil {
			logger.Warn("failed to load .env file", logger.Fields(
				"path", lc.envFile,
				logger.FieldError, err.Error(),
			))
		} else {
			// Pick up variables the .env file just introduced.
			bindEnvVars(v)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func firstExisting(fs FileSystem, paths []string) string {
	for _, path := range paths {
		if fs.Exists(path) {
			return path
		}
	}
	return ""
}

// envPrefix scopes which environment variables feed configuration keys.
const envPrefix = "SCRIBEFLOW_"

// bindEnvVars maps SCRIBEFLOW_SERVER_PORT style variables onto nested
// config keys. Underscores become dots one split at a time so both
// server.port and server.static_dir resolve.
func bindEnvVars(v *viper.Viper) {
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 || !strings.HasPrefix(pair[0], envPrefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(pair[0], envPrefix))
		for _, variant := range keyVariants(key) {
			v.Set(variant, pair[1])
		}
	}
}

// keyVariants returns the nested key interpretations of an underscore
// separated name. SERVER_STATIC_DIR yields server_static_dir,
// server.static_dir, server_static.dir and server.static.dir, so a nested
// config key matches regardless of where the word break falls.
func keyVariants(key string) []string {
	parts := strings.Split(key, "_")
	variants := []string{key}
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], "_")+"."+strings.Join(parts[i:], "_"))
	}
	if len(parts) > 1 {
		variants = append(variants, strings.Join(parts, "."))
	}
	return variants
}
