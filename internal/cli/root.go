package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/genera/compass/internal/logging"
	"github.com/genera/compass/internal/model"
)

// Version is set at build time with -ldflags
var Version = "v0.3.0"

var (
	cfgFile     string
	verbose     bool
	catalogName string

	// configErr holds a config file that could not be read; loadConfig reports it
	configErr error
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "compass",
	Short: "Compass - motivational orientation questionnaire",
	Long: `Compass administers a fixed motivational questionnaire, scores the
answers per category and reports the dominant orientation, or a balanced
profile when no category stands out.

Answers can be collected interactively (take), over HTTP (serve) or read
from a file (score). Raw rows are exported on a best-effort basis to
Google Sheets or a local CSV file; an export failure never changes the
result shown to the respondent.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "compass %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.compass/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&catalogName, "catalog", "", "built-in catalog name or path to a catalog file")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("catalog", rootCmd.PersistentFlags().Lookup("catalog"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	setDefaults(viper.GetViper(), model.DefaultConfig())

	// COMPASS_EXPORT_BACKEND overrides export.backend, and so on
	viper.SetEnvPrefix("COMPASS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	configErr = readConfig(viper.GetViper(), cfgFile)
	if configErr == nil && verbose && viper.ConfigFileUsed() != "" {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// readConfig reads path, or ~/.compass/config.yaml when path is empty.
// Only a missing default file is tolerated.
func readConfig(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("%w: read config file %s: %v", model.ErrConfiguration, path, err)
		}
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
		return nil
	}
	v.AddConfigPath(filepath.Join(home, ".compass"))
	v.SetConfigType("yaml")
	v.SetConfigName("config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("%w: read config file %s: %v", model.ErrConfiguration, v.ConfigFileUsed(), err)
	}
	return nil
}

// setDefaults registers every key so that env variables and Unmarshal see it
func setDefaults(v *viper.Viper, d *model.Config) {
	v.SetDefault("catalog", d.Catalog)

	v.SetDefault("scoring.scale_max", d.Scoring.ScaleMax)
	v.SetDefault("scoring.balance_threshold", d.Scoring.BalanceThreshold)
	v.SetDefault("scoring.tie_break", d.Scoring.TieBreak)

	v.SetDefault("export.backend", d.Export.Backend)
	v.SetDefault("export.spreadsheet_id", d.Export.SpreadsheetID)
	v.SetDefault("export.sheet", d.Export.Sheet)
	v.SetDefault("export.credentials_file", d.Export.CredentialsFile)
	v.SetDefault("export.csv_path", d.Export.CSVPath)
	v.SetDefault("export.timeout", d.Export.Timeout)
	v.SetDefault("export.retries", d.Export.Retries)
	v.SetDefault("export.rate_per_second", d.Export.RatePerSecond)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.session_ttl", d.Server.SessionTTL)
	v.SetDefault("server.debug", d.Server.Debug)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("output.verbose", d.Output.Verbose)
}

// loadConfig merges defaults, file, environment and flags, then validates
func loadConfig(v *viper.Viper) (*model.Config, error) {
	if configErr != nil {
		return nil, configErr
	}

	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: decode configuration: %v", model.ErrConfiguration, err)
	}

	if cfg.Catalog == "" {
		cfg.Catalog = model.DefaultConfig().Catalog
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = model.DefaultConfig().Log.Level
	}
	if cfg.LLM.APIKey == "" && strings.EqualFold(cfg.LLM.Provider, "openai") {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.LLM.BaseURL == "" && strings.EqualFold(cfg.LLM.Provider, "ollama") {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads the configuration and builds the logger every command uses
func setup() (*model.Config, *logging.Logger, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	logger := logging.FromConfig(cfg.Log)
	if cfg.LLM.APIKey != "" {
		logger.Debug("llm configured", "provider", cfg.LLM.Provider, "api_key", logging.MaskSecret(cfg.LLM.APIKey))
	}
	return cfg, logger, nil
}
