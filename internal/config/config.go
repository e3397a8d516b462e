// Package config resolves where rollday keeps its database, log and
// exports. Sources are layered: built-in defaults, then config.yaml in the
// user config dir, then ROLLDAY_* environment variables (which a .env file
// may supply).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	FileName = "config.yaml"

	EnvDB        = "ROLLDAY_DB"
	EnvLogFile   = "ROLLDAY_LOG_FILE"
	EnvLogLevel  = "ROLLDAY_LOG_LEVEL"
	EnvExportDir = "ROLLDAY_EXPORT_DIR"
)

type Config struct {
	DBPath    string `yaml:"db"`
	LogFile   string `yaml:"log_file"`
	LogLevel  string `yaml:"log_level"`
	ExportDir string `yaml:"export_dir"`
}

// Dir returns ~/.config/rollday
func Dir() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "rollday"), nil
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults(dir string) Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		DBPath:    filepath.Join(dir, "rollday.db"),
		LogFile:   filepath.Join(dir, "rollday.log"),
		LogLevel:  "info",
		ExportDir: home,
	}
}

// LoadDotEnv loads the given .env files (or ./.env) into the process
// environment. Missing files are not an error; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load builds the configuration for dir. getenv is usually os.Getenv.
func Load(dir string, getenv func(string) string) (Config, error) {
	cfg := Defaults(dir)

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		var file Config
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", FileName, err)
		}
		cfg.merge(file)
	}

	cfg.merge(Config{
		DBPath:    getenv(EnvDB),
		LogFile:   getenv(EnvLogFile),
		LogLevel:  getenv(EnvLogLevel),
		ExportDir: getenv(EnvExportDir),
	})

	cfg.DBPath = expandHome(cfg.DBPath)
	cfg.LogFile = expandHome(cfg.LogFile)
	cfg.ExportDir = expandHome(cfg.ExportDir)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	return cfg, nil
}

// merge copies the non-empty fields of o over c.
func (c *Config) merge(o Config) {
	if o.DBPath != "" {
		c.DBPath = o.DBPath
	}
	if o.LogFile != "" {
		c.LogFile = o.LogFile
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.ExportDir != "" {
		c.ExportDir = o.ExportDir
	}
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
