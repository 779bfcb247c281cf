package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/taskpoolio/taskpool/pkg/config"
)

// End-to-end check through the public surface: file values, env overrides
// and validation composed the way an embedding application uses them.
func TestLoadWithEnvOverrides(t *testing.T) {
	yamlContent := `
pool:
  workers: 8
  name: "simulation"
inspector:
  addr: "localhost:9190"
  enabled: false
`
	path := filepath.Join(t.TempDir(), "taskpool.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	t.Setenv("TASKPOOL_POOL_WORKERS", "24")
	t.Setenv("TASKPOOL_INSPECTOR_ENABLED", "true")

	type appConfig struct {
		Pool struct {
			Workers int    `yaml:"workers"`
			Name    string `yaml:"name"`
		} `yaml:"pool"`
		Inspector struct {
			Addr    string `yaml:"addr"`
			Enabled bool   `yaml:"enabled"`
		} `yaml:"inspector"`
	}

	var cfg appConfig
	if err := config.LoadWithEnv(path, "TASKPOOL", &cfg); err != nil {
		t.Fatalf("LoadWithEnv() error = %v", err)
	}

	if cfg.Pool.Workers != 24 {
		t.Errorf("Pool.Workers = %v, want 24 from env", cfg.Pool.Workers)
	}
	if !cfg.Inspector.Enabled {
		t.Error("Inspector.Enabled should be overridden to true")
	}
	// File values without overrides survive.
	if cfg.Pool.Name != "simulation" {
		t.Errorf("Pool.Name = %v, want simulation", cfg.Pool.Name)
	}
	if cfg.Inspector.Addr != "localhost:9190" {
		t.Errorf("Inspector.Addr = %v, want localhost:9190", cfg.Inspector.Addr)
	}

	err := config.Validate(&cfg,
		config.RequiredFields("Inspector.Addr", "Pool.Name"),
		config.RangeValidator("Pool.Workers", 1, 1024),
	)
	if err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}
