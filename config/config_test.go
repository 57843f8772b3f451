package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(WithConfigFile("does-not-exist.yml"), WithEnvFile("does-not-exist.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "scribeflow" {
		t.Errorf("Name = %q, want scribeflow", cfg.Name)
	}
	if cfg.Environment != "development" || !cfg.Debug {
		t.Errorf("Environment = %q Debug = %v, want development/true", cfg.Environment, cfg.Debug)
	}
	if got := cfg.Server.Addr(); got != ":8080" {
		t.Errorf("Addr = %q, want :8080", got)
	}
	if cfg.Server.MaxUploadMB != 512 {
		t.Errorf("MaxUploadMB = %d, want 512", cfg.Server.MaxUploadMB)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Storage.TasksDir != "./data/tasks" {
		t.Errorf("TasksDir = %q", cfg.Storage.TasksDir)
	}
	if cfg.Prompt.System == "" || cfg.Prompt.UserPrefix == "" {
		t.Error("prompt defaults not applied")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Metrics.ServiceName != "scribeflow" {
		t.Errorf("Metrics.ServiceName = %q", cfg.Metrics.ServiceName)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
name: scribeflow-test
environment: production
server:
  host: 127.0.0.1
  port: 9090
  max_upload_mb: 64
storage:
  tasks_dir: /var/lib/scribeflow/tasks
prompt:
  system: custom system
  user_prefix: "custom prefix: "
logging:
  level: debug
  format: json
metrics:
  endpoint: otel:4318
  insecure: true
`)

	cfg, err := Load(WithConfigFile(path), WithEnvFile("does-not-exist.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "scribeflow-test" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.Environment != "production" || cfg.Debug {
		t.Errorf("Environment = %q Debug = %v", cfg.Environment, cfg.Debug)
	}
	if got := cfg.Server.Addr(); got != "127.0.0.1:9090" {
		t.Errorf("Addr = %q", got)
	}
	if cfg.Server.MaxUploadMB != 64 {
		t.Errorf("MaxUploadMB = %d", cfg.Server.MaxUploadMB)
	}
	if cfg.Storage.TasksDir != "/var/lib/scribeflow/tasks" {
		t.Errorf("TasksDir = %q", cfg.Storage.TasksDir)
	}
	if cfg.Prompt.System != "custom system" {
		t.Errorf("Prompt.System = %q", cfg.Prompt.System)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Metrics.Endpoint != "otel:4318" || !cfg.Metrics.Insecure {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
	if cfg.Metrics.ServiceName != "scribeflow-test" {
		t.Errorf("Metrics.ServiceName = %q", cfg.Metrics.ServiceName)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
server:
  port: 9090
`)
	t.Setenv("SCRIBEFLOW_SERVER_PORT", "7070")
	t.Setenv("SCRIBEFLOW_STORAGE_TASKS_DIR", "/tmp/tasks")

	cfg, err := Load(WithConfigFile(path), WithEnvFile("does-not-exist.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Port = %d, want 7070 from env", cfg.Server.Port)
	}
	if cfg.Storage.TasksDir != "/tmp/tasks" {
		t.Errorf("TasksDir = %q, want /tmp/tasks from env", cfg.Storage.TasksDir)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "SCRIBEFLOW_LOGGING_LEVEL=warn\n")
	// godotenv writes into the process environment.
	t.Cleanup(func() { os.Unsetenv("SCRIBEFLOW_LOGGING_LEVEL") })

	cfg, err := Load(WithConfigFile("does-not-exist.yml"), WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn from .env", cfg.Logging.Level)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		yml  string
	}{
		{"bad environment", "environment: prod\n"},
		{"bad port", "server:\n  port: 70000\n"},
		{"bad log level", "logging:\n  level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeFile(t, dir, "config.yml", tt.yml)
			if _, err := Load(WithConfigFile(path), WithEnvFile("does-not-exist.env")); err == nil {
				t.Fatal("Load succeeded, want validation error")
			}
		})
	}
}

func TestKeyVariants(t *testing.T) {
	got := keyVariants("server_static_dir")
	want := map[string]bool{"server.static_dir": true, "server.static.dir": true}
	for _, v := range got {
		delete(want, v)
	}
	for missing := range want {
		t.Errorf("keyVariants missing %q in %v", missing, got)
	}
}
