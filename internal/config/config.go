package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" default:"50"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// PathsConfig contains file system paths configuration.
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR" default:"data/reports"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// PipelineConfig contains tunables for the preprocessing pipeline.
type PipelineConfig struct {
	// ZThreshold is the default Z-score cutoff for outlier removal.
	ZThreshold float64 `yaml:"z_threshold" envconfig:"Z_THRESHOLD" default:"3"`
	// OperationTimeout bounds a full preprocessing run.
	OperationTimeout time.Duration `yaml:"operation_timeout" envconfig:"OPERATION_TIMEOUT" default:"30m"`
}

// Load loads configuration from environment variables, then overlays an
// optional config.yaml. Environment values win.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("TUESDATA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if path := findConfigFile(); path != "" {
		fileCfg, err := loadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileCfg, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence).
func mergeConfigs(fileCfg, envCfg Config) Config {
	if envCfg.Server.Port == 0 {
		envCfg.Server.Port = fileCfg.Server.Port
	}
	if envCfg.Server.ReadTimeout == 0 {
		envCfg.Server.ReadTimeout = fileCfg.Server.ReadTimeout
	}
	if envCfg.Server.WriteTimeout == 0 {
		envCfg.Server.WriteTimeout = fileCfg.Server.WriteTimeout
	}
	if envCfg.Logging.Level == "" {
		envCfg.Logging.Level = fileCfg.Logging.Level
	}
	if envCfg.Paths.DataDir == "" {
		envCfg.Paths.DataDir = fileCfg.Paths.DataDir
	}
	if envCfg.Paths.ReportsDir == "" {
		envCfg.Paths.ReportsDir = fileCfg.Paths.ReportsDir
	}
	if envCfg.Pipeline.ZThreshold == 0 {
		envCfg.Pipeline.ZThreshold = fileCfg.Pipeline.ZThreshold
	}
	return envCfg
}

// validate checks the configuration for obviously broken values.
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Pipeline.ZThreshold <= 0 {
		return fmt.Errorf("pipeline z threshold must be positive")
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}
	return nil
}

// findConfigFile returns the path to the config file, if any.
func findConfigFile() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// Default returns the default configuration used when no environment or
// file overrides are present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitRPS:    100,
			RateLimitBurst:  50,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "both",
			FilePath: "logs/app.log",
		},
		Paths: PathsConfig{
			DataDir:    "data",
			ReportsDir: "data/reports",
			LogsDir:    "logs",
		},
		Pipeline: PipelineConfig{
			ZThreshold:       3,
			OperationTimeout: 30 * time.Minute,
		},
	}
}
