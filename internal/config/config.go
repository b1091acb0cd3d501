package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"       validate:"required"`
	Pipeline     PipelineConfig     `mapstructure:"pipeline"     validate:"required"`
	Storage      StorageConfig      `mapstructure:"storage"      validate:"required"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator" validate:"required"`
}

// ServerConfig contains all HTTP server related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// PipelineConfig contains settings for the external generation pipeline.
type PipelineConfig struct {
	BaseURL      string        `mapstructure:"base_url"      validate:"required,url"`
	APIKey       string        `mapstructure:"api_key"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"required,gt=0"`
	JobTimeout   time.Duration `mapstructure:"job_timeout"   validate:"required,gt=0"`
}

// StorageConfig contains settings for the durable state store.
type StorageConfig struct {
	// Backend selects the key-value backend: file, postgres or memory.
	Backend string `mapstructure:"backend" validate:"required,oneof=file postgres memory"`
	// Path is the state directory for the file backend.
	Path string `mapstructure:"path" validate:"required_if=Backend file"`
	// DatabaseURL is the connection string for the postgres backend.
	DatabaseURL string `mapstructure:"database_url" validate:"required_if=Backend postgres"`
	// ByteBudget caps the serialized snapshot size before tier fallback.
	ByteBudget int `mapstructure:"byte_budget" validate:"required,gt=0"`
}

// OrchestratorConfig contains scheduling settings.
type OrchestratorConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency" validate:"required,gt=0,lte=32"`
}
