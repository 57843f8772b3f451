// Package config loads ScribeFlow service configuration from a YAML file
// and the environment. File values form the base, environment variables
// override them, and an optional .env file feeds the environment before
// binding.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/taoxee/scribeflow/llm"
	"github.com/taoxee/scribeflow/logger"
	"github.com/taoxee/scribeflow/metrics"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port" validate:"min=1,max=65535"`
	// StaticDir serves a built web UI when set.
	StaticDir string `yaml:"static_dir" mapstructure:"static_dir"`
	// MaxUploadMB caps the size of a single media upload.
	MaxUploadMB     int64         `yaml:"max_upload_mb" mapstructure:"max_upload_mb" validate:"min=1"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address in host:port form.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig locates the durable task store.
type StorageConfig struct {
	// TasksDir is the root directory holding one subdirectory per task.
	TasksDir string `yaml:"tasks_dir" mapstructure:"tasks_dir" validate:"required"`
}

// Config is the full service configuration.
type Config struct {
	Name        string `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string `yaml:"version" mapstructure:"version"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`

	Server  ServerConfig       `yaml:"server" mapstructure:"server"`
	Storage StorageConfig      `yaml:"storage" mapstructure:"storage"`
	Prompt  llm.PromptTemplate `yaml:"prompt" mapstructure:"prompt"`
	Logging logger.Config      `yaml:"logging" mapstructure:"logging"`
	Metrics metrics.Config     `yaml:"metrics" mapstructure:"metrics"`
}

// ApplyDefaults fills in unset fields with working defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "scribeflow"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 512
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Storage.TasksDir == "" {
		c.Storage.TasksDir = "./data/tasks"
	}
	tpl := llm.DefaultPromptTemplate()
	if c.Prompt.System == "" {
		c.Prompt.System = tpl.System
	}
	if c.Prompt.UserPrefix == "" {
		c.Prompt.UserPrefix = tpl.UserPrefix
	}
	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
}

// Validate checks the configuration after defaults were applied.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return nil
}
