package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/profile-extractor/internal/browser"
	"github.com/spigell/profile-extractor/internal/fetch"
	"github.com/spigell/profile-extractor/internal/normalize"
	"github.com/spigell/profile-extractor/internal/secrets"
	"github.com/spigell/profile-extractor/internal/targets"
)

const (
	app       = "profile-extractor"
	envPrefix = "PROFILE_EXTRACTOR"
)

type Config struct {
	// Source is "rapidapi" or "browser".
	Source string `mapstructure:"source"`
	// Input is a CSV file of identifiers or, with the browser source, a search URL.
	Input       string `mapstructure:"input"`
	InputColumn string `mapstructure:"input-column"`
	MaxPages    int    `mapstructure:"max-pages"`

	Output    *OutputConfig `mapstructure:"output"`
	Resume    bool          `mapstructure:"resume"`
	BatchSize int           `mapstructure:"batch-size"`
	// Delay is a "min-max" or single value in seconds, e.g. "3-5".
	Delay string       `mapstructure:"delay"`
	Fetch fetch.Config `mapstructure:"fetch"`

	FuzzyThreshold int               `mapstructure:"fuzzy-threshold"`
	Targets        targets.Files     `mapstructure:"targets"`
	Aliases        normalize.Aliases `mapstructure:"aliases"`
	AliasesFile    string            `mapstructure:"aliases-file"`

	ExcludeFile   string `mapstructure:"exclude-file"`
	ExcludeFailed bool   `mapstructure:"exclude-failed"`
	ArchiveDir    string `mapstructure:"archive-dir"`
	MetricsFile   string `mapstructure:"metrics-file"`

	RapidAPI *RapidAPIConfig `mapstructure:"rapidapi"`
	Browser  browser.Config  `mapstructure:"browser"`
	AI       *AIConfig       `mapstructure:"ai"`
}

type OutputConfig struct {
	// Type is "csv" or "sqlite".
	Type string `mapstructure:"type"`
	Path string `mapstructure:"path"`
}

type RapidAPIConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
}

type AIConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Gemini  *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "profile-extractor fetches professional profiles, normalizes them and stores one row per profile",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is profile-extractor.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	viper.SetDefault("source", "rapidapi")
	viper.SetDefault("output.type", "csv")
	viper.SetDefault("output.path", "output/profiles.csv")
	viper.SetDefault("delay", "3-5")
	viper.SetDefault("batch-size", 50)
	viper.SetDefault("fuzzy-threshold", 85)
	viper.SetDefault("browser.headless", true)
	viper.SetDefault("targets.schools", "config/target_schools.txt")
	viper.SetDefault("targets.companies", "config/target_companies.txt")
	viper.SetDefault("targets.food-retailers", "config/food_retailers.txt")
}

func initConfig() {
	// Config needed only for commands doing real work.
	if runCmd.CalledAs() == "" && reprocessCmd.CalledAs() == "" {
		return
	}

	// Variables from .env never override the environment.
	if err := secrets.LoadDotEnv(".env"); err != nil {
		log.Fatal(err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// A missing default config is fine, flags and env may be enough.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

// bindFlags binds the flags of the command being executed to their config
// keys. Commands share keys, so binding happens when a command runs and not
// in init, where the last registered command would win.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for flag, key := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("binding --%s to %s: %w", flag, key, err)
		}
	}
	return nil
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.Output == nil {
		config.Output = &OutputConfig{}
	}

	return config, nil
}
