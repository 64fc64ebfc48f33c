package types

import "time"

// DatabaseDriver names the database/sql driver backing the catalog.
type DatabaseDriver string

const (
	DriverSQLite   DatabaseDriver = "sqlite3"
	DriverPostgres DatabaseDriver = "postgres"
)

// CatalogConfig holds settings for the product catalog.
type CatalogConfig struct {
	// Driver selects the database: sqlite3 (default) or postgres.
	Driver DatabaseDriver `json:"driver" yaml:"driver" mapstructure:"driver"`

	// DSN is the data source name. For sqlite3 it is a file path
	// (default "catalog/catalog.db").
	DSN string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`
}

// SponsoredConfig locates the sponsored product identifiers that every
// catalog lookup includes.
type SponsoredConfig struct {
	// File lists one identifier per line. A missing file yields no ids.
	File string `json:"file" yaml:"file" mapstructure:"file"`

	// IDs are merged with the ids read from File.
	IDs []string `json:"ids" yaml:"ids" mapstructure:"ids"`
}

// ManualConfig holds settings for the manual renderer.
type ManualConfig struct {
	// Dir is the manual storage directory; the only source of PDF inputs.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// ScratchDir receives temporary render output. It must live inside Dir
	// (default "<Dir>/.scratch").
	ScratchDir string `json:"scratch_dir" yaml:"scratch_dir" mapstructure:"scratch_dir"`
}

// RenderConfig holds settings for the external conversion tool.
type RenderConfig struct {
	// ToolPaths are absolute paths of converter binaries, tried in order.
	ToolPaths []string `json:"tool_paths" yaml:"tool_paths" mapstructure:"tool_paths"`

	// Timeout bounds a single conversion (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// Page is the zero-based PDF page rendered into the preview.
	Page int `json:"page" yaml:"page" mapstructure:"page"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "console" or "json" (default console).
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// ServerConfig holds settings for the HTTP preview server.
type ServerConfig struct {
	Addr         string        `json:"addr" yaml:"addr" mapstructure:"addr"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
}

// Config groups all settings.
type Config struct {
	Database  CatalogConfig   `json:"database" yaml:"database" mapstructure:"database"`
	Sponsored SponsoredConfig `json:"sponsored" yaml:"sponsored" mapstructure:"sponsored"`
	Manuals   ManualConfig    `json:"manuals" yaml:"manuals" mapstructure:"manuals"`
	Render    RenderConfig    `json:"render" yaml:"render" mapstructure:"render"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
}
