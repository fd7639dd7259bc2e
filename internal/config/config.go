// Package config loads the TOML configuration file described in spec §6:
// located at ~/.config/<app>/config.toml, auto-created from a template on
// first run, with ${VAR} / ${VAR:default} environment interpolation applied
// before parsing. Grounded on original_source/backend/config/loader.py's
// ConfigLoader (default-file bootstrap, env-substitution regex) translated
// from its TOML+YAML dual format into a TOML-only loader per spec, using
// github.com/BurntSushi/toml in place of the original's toml/yaml pair.
package config

// ScreenSetting describes one monitor's capture configuration.
type ScreenSetting struct {
	MonitorIndex int    `toml:"monitor_index"`
	IsEnabled    bool   `toml:"is_enabled"`
	MonitorName  string `toml:"monitor_name"`
	Resolution   string `toml:"resolution"`
	IsPrimary    bool   `toml:"is_primary"`
}

// ServerConfig controls the HTTP bind.
type ServerConfig struct {
	Host  string `toml:"host"`
	Port  int    `toml:"port"`
	Debug bool   `toml:"debug"`
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// ScreenshotConfig controls the Image Store base path and monitor selection.
type ScreenshotConfig struct {
	SavePath       string          `toml:"save_path"`
	ScreenSettings []ScreenSetting `toml:"screen_settings"`
}

// MonitoringConfig controls the Sliding Window and capture/drain cadence.
type MonitoringConfig struct {
	WindowSize         int     `toml:"window_size"`
	CaptureInterval    float64 `toml:"capture_interval"`
	ProcessingInterval int     `toml:"processing_interval"`
}

// ProcessingConfig controls the Pipeline and Aggregation Scheduler.
type ProcessingConfig struct {
	EventExtractionThreshold       int  `toml:"event_extraction_threshold"`
	ActivitySummaryInterval        int  `toml:"activity_summary_interval"`
	KnowledgeMergeInterval         int  `toml:"knowledge_merge_interval"`
	TodoMergeInterval              int  `toml:"todo_merge_interval"`
	EnableScreenshotDeduplication  bool `toml:"enable_screenshot_deduplication"`
}

// ImageOptimizationConfig controls C5 (Image Optimizer) and C6 (Sampler).
//
// MaxImagesPerEvent is a *int, not a bare int: spec §8 names 0 as a
// meaningful boundary value ("no images sent, extraction still happens
// with text-only prompt"), so the zero value must be distinguishable from
// "not set in config.toml" rather than silently promoted to the default.
type ImageOptimizationConfig struct {
	EnableCropping     bool    `toml:"enable_cropping"`
	CompressionLevel   string  `toml:"compression_level"`
	EnableContentCheck bool    `toml:"enable_content_check"`
	PHashThreshold     float64 `toml:"phash_threshold"`
	MinIntervalSeconds float64 `toml:"min_interval_seconds"`
	MaxImagesPerEvent  *int    `toml:"max_images_per_event"`
}

// LanguageConfig selects the prompt template language.
type LanguageConfig struct {
	DefaultLanguage string `toml:"default_language"`
}

// ObsConfig controls the optional OpenTelemetry tracing exporter. Grounded
// on the teacher's own obsYAML block in internal/config/loader.go; OTLP
// empty means tracing stays disabled (observability.InitOTel returns an
// error, which chronicled logs as a warning rather than erroring the whole
// daemon).
type ObsConfig struct {
	ServiceName    string `toml:"service_name"`
	ServiceVersion string `toml:"service_version"`
	Environment    string `toml:"environment"`
	OTLP           string `toml:"otlp"`
}

// Config is the top-level decoded configuration file. The `llm` section is
// accepted and ignored per spec §6 ("legacy; active model comes from DB") —
// LLMLegacy exists only so toml.Decode doesn't error on an unknown-but-
// present section, never read by any component.
type Config struct {
	Server            ServerConfig            `toml:"server"`
	Database          DatabaseConfig          `toml:"database"`
	Screenshot        ScreenshotConfig        `toml:"screenshot"`
	Monitoring        MonitoringConfig        `toml:"monitoring"`
	Processing        ProcessingConfig        `toml:"processing"`
	ImageOptimization ImageOptimizationConfig `toml:"image_optimization"`
	Language          LanguageConfig          `toml:"language"`
	Obs               ObsConfig               `toml:"observability"`
	LLMLegacy         map[string]any          `toml:"llm"`
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Monitoring.WindowSize == 0 {
		c.Monitoring.WindowSize = 20
	}
	if c.Monitoring.CaptureInterval == 0 {
		c.Monitoring.CaptureInterval = 0.2
	}
	if c.Monitoring.ProcessingInterval == 0 {
		c.Monitoring.ProcessingInterval = 30
	}
	if c.Processing.EventExtractionThreshold == 0 {
		c.Processing.EventExtractionThreshold = 20
	}
	if c.Processing.ActivitySummaryInterval == 0 {
		c.Processing.ActivitySummaryInterval = 600
	}
	if c.Processing.KnowledgeMergeInterval == 0 {
		c.Processing.KnowledgeMergeInterval = 1200
	}
	if c.Processing.TodoMergeInterval == 0 {
		c.Processing.TodoMergeInterval = 1200
	}
	if c.ImageOptimization.CompressionLevel == "" {
		c.ImageOptimization.CompressionLevel = "Balanced"
	}
	if c.ImageOptimization.PHashThreshold == 0 {
		c.ImageOptimization.PHashThreshold = 0.10
	}
	if c.ImageOptimization.MinIntervalSeconds == 0 {
		c.ImageOptimization.MinIntervalSeconds = 2
	}
	if c.ImageOptimization.MaxImagesPerEvent == nil {
		def := 8
		c.ImageOptimization.MaxImagesPerEvent = &def
	}
	if c.Language.DefaultLanguage == "" {
		c.Language.DefaultLanguage = "en"
	}
}
