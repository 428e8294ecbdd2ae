package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the process-wide settings for talking to Volatility 3.
type Config struct {
	// Python is the interpreter used to run the Volatility entry script.
	Python string `yaml:"python"`
	// VolatilityDir is the Volatility 3 checkout; also the working
	// directory for every invocation.
	VolatilityDir string `yaml:"volatility_dir"`
	// EntryPoint is the path to vol.py. Defaults to
	// <VolatilityDir>/vol.py when empty.
	EntryPoint string `yaml:"entrypoint"`
	// HistoryDB is an optional SQLite file recording invocations.
	// Empty disables the audit log.
	HistoryDB string `yaml:"history_db"`
}

// Load reads config from an env map. For production use LoadFromEnv.
func Load(env map[string]string) (*Config, error) {
	cfg := &Config{}

	if path := env["VOLMCP_CONFIG"]; path != "" {
		fileCfg, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	// env overrides file
	if v := env["VOLATILITY_PYTHON"]; v != "" {
		cfg.Python = v
	}
	if v := env["VOLATILITY_DIR"]; v != "" {
		cfg.VolatilityDir = v
	}
	if v := env["VOLATILITY_SCRIPT"]; v != "" {
		cfg.EntryPoint = v
	}
	if v := env["VOLMCP_HISTORY_DB"]; v != "" {
		cfg.HistoryDB = v
	}

	if cfg.Python == "" {
		cfg.Python = "python3"
	}
	if cfg.VolatilityDir == "" {
		return nil, errors.New("VOLATILITY_DIR required")
	}
	cfg.VolatilityDir = filepath.Clean(cfg.VolatilityDir)
	if cfg.EntryPoint == "" {
		cfg.EntryPoint = filepath.Join(cfg.VolatilityDir, "vol.py")
	}

	return cfg, nil
}

// LoadFromEnv loads config from os environment variables.
func LoadFromEnv() (*Config, error) {
	env := map[string]string{
		"VOLMCP_CONFIG":     os.Getenv("VOLMCP_CONFIG"),
		"VOLATILITY_PYTHON": os.Getenv("VOLATILITY_PYTHON"),
		"VOLATILITY_DIR":    os.Getenv("VOLATILITY_DIR"),
		"VOLATILITY_SCRIPT": os.Getenv("VOLATILITY_SCRIPT"),
		"VOLMCP_HISTORY_DB": os.Getenv("VOLMCP_HISTORY_DB"),
	}
	return Load(env)
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config file")
	}

	return &cfg, nil
}
