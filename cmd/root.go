package cmd

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/nvsudo/jodi/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	app = "jodi"
)

type Config struct {
	Database   *DatabaseConfig   `mapstructure:"database"`
	Extraction *ExtractionConfig `mapstructure:"extraction"`
	Matching   *MatchingConfig   `mapstructure:"matching"`
	Rollout    *RolloutConfig    `mapstructure:"rollout"`
	Screening  *ScreeningConfig  `mapstructure:"screening"`
}

type DatabaseConfig struct {
	URL     string `mapstructure:"url"`
	URLFile string `mapstructure:"url-file"`
}

type ExtractionConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type MatchingConfig struct {
	MinScore   float64 `mapstructure:"min-score"`
	Limit      int     `mapstructure:"limit"`
	TablesFile string  `mapstructure:"tables-file"`
}

type RolloutConfig struct {
	// ConversationalExtraction is the percentage of users whose free text
	// goes through the extractor. Unset means everyone.
	ConversationalExtraction *int `mapstructure:"conversational-extraction"`
}

type ScreeningConfig struct {
	// DealbreakersEnabled switches the dealbreakers screening step.
	// Unset means enabled.
	DealbreakersEnabled *bool `mapstructure:"dealbreakers-enabled"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "jodi is a conversational matchmaker: it builds dating profiles from chat and scores candidate pairs",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("database.url-file", "JODI_DATABASE_URL_FILE"); err != nil {
		log.Fatalf("binding JODI_DATABASE_URL_FILE environment variable: %v", err)
	}

	if err := viper.BindEnv("extraction.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jodi.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config is needed only for the run and match commands. If there is no
	// config, we can skip initialization.
	if runCmd.CalledAs() == "" && matchCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

// bootstrap builds the logger and loads the config shared by the run and
// match commands.
func bootstrap() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting jodi", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	return logger, config
}
