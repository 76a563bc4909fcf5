package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cptntrps/contract-v2-sub001/internal/model"
	"github.com/cptntrps/contract-v2-sub001/internal/rules"
)

const version = "contractdiff v1.0.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "contractdiff",
	Short: "contractdiff - compare two versions of a legal document",
	Long: `contractdiff compares two versions of a contract and reports what changed:

- Entities (amounts, dates, organizations, obligations) added or removed
- Clauses added, removed or reworded, with per-clause risk levels
- Required clauses missing from the new version
- Financial, legal, operational and compliance risk scores with recommendations

The analysis is deterministic: the same inputs and configuration always
produce the same report.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger := newLogger(viper.GetBool("verbose"))
		cmd.SetContext(logger.WithContext(cmd.Context()))
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.contractdiff/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home + "/.contractdiff")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// CONTRACTDIFF_CACHE_ENABLED overrides cache.enabled
	viper.SetEnvPrefix("CONTRACTDIFF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// newLogger writes human-readable logs to stderr; verbose lowers the level to debug
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// envOverrides lists the operational keys that CONTRACTDIFF_* variables may set
var envOverrides = []string{
	"cache.enabled",
	"cache.dir",
	"concurrency.workers",
	"fetch.user_agent",
	"fetch.requests_per_second",
	"fetch.respect_robots",
	"fetch.http_proxy",
	"fetch.https_proxy",
	"output.color",
}

// loadConfig overlays the config file used by viper on the defaults, then applies
// environment overrides. Flags are applied by each command afterwards.
func loadConfig() (*model.Config, error) {
	cfg, err := rules.LoadConfig(viper.ConfigFileUsed())
	if err != nil {
		return nil, err
	}

	for _, key := range envOverrides {
		if os.Getenv("CONTRACTDIFF_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_"))) == "" {
			continue
		}
		switch key {
		case "cache.enabled":
			cfg.Cache.Enabled = viper.GetBool(key)
		case "cache.dir":
			cfg.Cache.Dir = viper.GetString(key)
		case "concurrency.workers":
			cfg.Concurrency.Workers = viper.GetInt(key)
		case "fetch.user_agent":
			cfg.Fetch.UserAgent = viper.GetString(key)
		case "fetch.requests_per_second":
			cfg.Fetch.RequestsPerSecond = viper.GetFloat64(key)
		case "fetch.respect_robots":
			cfg.Fetch.RespectRobots = viper.GetBool(key)
		case "fetch.http_proxy":
			cfg.Fetch.HTTPProxy = viper.GetString(key)
		case "fetch.https_proxy":
			cfg.Fetch.HTTPSProxy = viper.GetString(key)
		case "output.color":
			cfg.Output.Color = viper.GetBool(key)
		}
	}

	cfg.Output.Verbose = viper.GetBool("verbose")
	return cfg, nil
}
