package model

import (
	"fmt"
	"strings"
	"time"
)

// Tie-break rules for categories sharing the maximum aggregate
const (
	TieBreakLowestTag = "lowest_tag"
	TieBreakBalanced  = "balanced"
)

// Export backends
const (
	ExportNone   = "none"
	ExportSheets = "sheets"
	ExportCSV    = "csv"
)

// Config is the complete runtime configuration
type Config struct {
	Catalog string        `yaml:"catalog" mapstructure:"catalog"` // Built-in catalog name or path
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	LLM     LLMConfig     `yaml:"llm" mapstructure:"llm"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
}

// ScoringConfig tunes the classification step
type ScoringConfig struct {
	ScaleMax         int     `yaml:"scale_max" mapstructure:"scale_max"` // 0 keeps the catalog value
	BalanceThreshold float64 `yaml:"balance_threshold" mapstructure:"balance_threshold"`
	TieBreak         string  `yaml:"tie_break" mapstructure:"tie_break"`
}

// ExportConfig configures the best-effort row export
type ExportConfig struct {
	Backend         string        `yaml:"backend" mapstructure:"backend"`
	SpreadsheetID   string        `yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	Sheet           string        `yaml:"sheet" mapstructure:"sheet"`
	CredentialsFile string        `yaml:"credentials_file" mapstructure:"credentials_file"`
	CSVPath         string        `yaml:"csv_path" mapstructure:"csv_path"`
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Retries         int           `yaml:"retries" mapstructure:"retries"`
	RatePerSecond   float64       `yaml:"rate_per_second" mapstructure:"rate_per_second"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Addr       string        `yaml:"addr" mapstructure:"addr"`
	SessionTTL time.Duration `yaml:"session_ttl" mapstructure:"session_ttl"`
	Debug      bool          `yaml:"debug" mapstructure:"debug"`
}

// LLMConfig configures the optional narrative
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // "", openai, ollama
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// LogConfig configures the structured logger
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// OutputConfig configures report rendering
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Catalog: "compass",
		Scoring: ScoringConfig{
			BalanceThreshold: 0.5,
			TieBreak:         TieBreakLowestTag,
		},
		Export: ExportConfig{
			Backend:       ExportNone,
			Sheet:         "Risposte",
			CSVPath:       "compass-responses.csv",
			Timeout:       10 * time.Second,
			Retries:       1,
			RatePerSecond: 1,
		},
		Server: ServerConfig{
			Addr:       ":8080",
			SessionTTL: 30 * time.Minute,
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 400,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ConfigError reports every invalid setting at once
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConfiguration.Error(), strings.Join(e.Problems, "; "))
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// Validate checks the settings that do not depend on the catalog
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Catalog) == "" {
		problems = append(problems, "catalog must name a built-in catalog or a file")
	}

	if c.Scoring.ScaleMax != 0 && c.Scoring.ScaleMax != 5 && c.Scoring.ScaleMax != 6 {
		problems = append(problems, fmt.Sprintf("scoring.scale_max must be 5 or 6, got %d", c.Scoring.ScaleMax))
	}
	if c.Scoring.BalanceThreshold < 0 {
		problems = append(problems, fmt.Sprintf("scoring.balance_threshold must not be negative, got %g", c.Scoring.BalanceThreshold))
	}
	switch c.Scoring.TieBreak {
	case TieBreakLowestTag, TieBreakBalanced:
	default:
		problems = append(problems, fmt.Sprintf("scoring.tie_break must be %q or %q, got %q", TieBreakLowestTag, TieBreakBalanced, c.Scoring.TieBreak))
	}

	switch c.Export.Backend {
	case ExportNone:
	case ExportSheets:
		if c.Export.SpreadsheetID == "" {
			problems = append(problems, "export.spreadsheet_id is required for the sheets backend")
		}
		if c.Export.Sheet == "" {
			problems = append(problems, "export.sheet is required for the sheets backend")
		}
	case ExportCSV:
		if c.Export.CSVPath == "" {
			problems = append(problems, "export.csv_path is required for the csv backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("export.backend must be none, sheets or csv, got %q", c.Export.Backend))
	}
	if c.Export.Timeout <= 0 {
		problems = append(problems, "export.timeout must be positive")
	}
	if c.Export.Retries < 0 || c.Export.Retries > 1 {
		problems = append(problems, fmt.Sprintf("export.retries must be 0 or 1, got %d", c.Export.Retries))
	}
	if c.Export.RatePerSecond <= 0 {
		problems = append(problems, "export.rate_per_second must be positive")
	}

	if c.Server.SessionTTL <= 0 {
		problems = append(problems, "server.session_ttl must be positive")
	}

	switch strings.ToLower(c.LLM.Provider) {
	case "", "openai", "ollama":
	default:
		problems = append(problems, fmt.Sprintf("llm.provider must be empty, openai or ollama, got %q", c.LLM.Provider))
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format must be text or json, got %q", c.Log.Format))
	}

	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}
