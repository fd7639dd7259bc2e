package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// defaultTemplate is written to disk the first time an app directory has no
// config.toml, per spec §6 ("auto-created with defaults on first run").
const defaultTemplate = `# auto-generated on first run

[server]
host = "0.0.0.0"
port = 8000
debug = false

[database]
path = "${CHRONICLE_DATA_DIR:%s}/chronicle.db"

[screenshot]
save_path = "${CHRONICLE_DATA_DIR:%s}/screenshots"

[monitoring]
window_size = 20
capture_interval = 0.2
processing_interval = 30

[processing]
event_extraction_threshold = 20
activity_summary_interval = 600
knowledge_merge_interval = 1200
todo_merge_interval = 1200
enable_screenshot_deduplication = true

[image_optimization]
enable_cropping = true
compression_level = "Balanced"
enable_content_check = false
phash_threshold = 0.10
min_interval_seconds = 2
max_images_per_event = 8

[language]
default_language = "en"
`

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnv replaces ${VAR} and ${VAR:default} occurrences with the
// environment variable's value, falling back to the given default (or empty
// string) when unset. Grounded on original_source/backend/config/loader.py's
// ConfigLoader._replace_env_vars, same regex and same substitution rule.
func expandEnv(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		name, def := groups[1], groups[2]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return def
	})
}

// DefaultPath returns ~/.config/<app>/config.toml.
func DefaultPath(appName string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Load loads a .env file (if present, via godotenv, non-fatal if absent),
// then reads path, expanding ${VAR}/${VAR:default} references, parsing the
// result as TOML, and applying spec defaults for any unset field. If path
// does not exist, a default config is written there first.
func Load(path string) (Config, error) {
	_ = godotenv.Load() // optional; silently proceeds if no .env is present

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefaultConfig(path); err != nil {
			return Config{}, err
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded := expandEnv(string(raw))

	var cfg Config
	if _, err := toml.Decode(expanded, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func writeDefaultConfig(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: create %s: %w", dir, err)
	}
	content := fmt.Sprintf(defaultTemplate, dir, dir)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("config: write default %s: %w", path, err)
	}
	return nil
}
