package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Model declares one hosted model and its engine binding.
type Model struct {
	ID            string `json:"id" yaml:"id" toml:"id"`
	Engine        string `json:"engine" yaml:"engine" toml:"engine"`
	Capacity      int    `json:"capacity" yaml:"capacity" toml:"capacity"`
	AdmitAttempts int    `json:"admit_attempts" yaml:"admit_attempts" toml:"admit_attempts"`
	AdmitBackoff  string `json:"admit_backoff" yaml:"admit_backoff" toml:"admit_backoff"`

	// echo engine
	LoadDelay  string `json:"load_delay" yaml:"load_delay" toml:"load_delay"`
	InferDelay string `json:"infer_delay" yaml:"infer_delay" toml:"infer_delay"`

	// llama engine
	ModelPath string `json:"model_path" yaml:"model_path" toml:"model_path"`
	CtxSize   int    `json:"ctx_size" yaml:"ctx_size" toml:"ctx_size"`
	Threads   int    `json:"threads" yaml:"threads" toml:"threads"`
}

// CORS is the opt-in cross-origin configuration for the HTTP server.
type CORS struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// Config holds runtime parameters for the daemon and CLI.
// Zero values mean "unspecified" and are replaced by defaults in Normalize.
type Config struct {
	Addr     string `json:"addr" yaml:"addr" toml:"addr"`
	LockFile string `json:"lock_file" yaml:"lock_file" toml:"lock_file"`
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`

	JobTTL        string `json:"job_ttl" yaml:"job_ttl" toml:"job_ttl"`
	SweepInterval string `json:"sweep_interval" yaml:"sweep_interval" toml:"sweep_interval"`

	// Client-side poll cadence used by the CLI commands.
	PollInterval    string `json:"poll_interval" yaml:"poll_interval" toml:"poll_interval"`
	PollMaxAttempts int    `json:"poll_max_attempts" yaml:"poll_max_attempts" toml:"poll_max_attempts"`

	CORS   CORS    `json:"cors" yaml:"cors" toml:"cors"`
	Models []Model `json:"models" yaml:"models" toml:"models"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
