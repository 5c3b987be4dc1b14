// Package cmd provides the main command structure for the podenrich CLI.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrmamen/podenrich/pkg/enrich"
	"github.com/mrmamen/podenrich/pkg/feed"
	"github.com/mrmamen/podenrich/pkg/logging"
)

var (
	configFile string
	localCache string
	verbose    bool
	quiet      bool

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "podenrich",
	Short: "Podcasting 2.0 feed enrichment",
	Long: `Podenrich rewrites a podcast RSS feed with Podcasting 2.0 tags:
host and guest credits resolved from episode titles, season names,
chapter markers, funding and social links, and OP3 analytics prefixes.

Guests are detected from Norwegian episode titles ("... med Gjest Navn")
and matched against a local registry of known people.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date
	rootCmd.Version = version

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "podenrich.yaml", "enrichment config file")
	rootCmd.PersistentFlags().StringVar(&localCache, "local-cache", "", "read the feed from a local XML file instead of fetching")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")

	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		panic(fmt.Sprintf("Failed to bind verbose flag: %v", err))
	}
	if err := viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet")); err != nil {
		panic(fmt.Sprintf("Failed to bind quiet flag: %v", err))
	}
}

// initConfig reads ENV variables and .env files, then configures logging.
func initConfig() {
	// .env.local overrides .env
	loadEnvFile(".env")
	loadEnvFile(".env.local")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	configureLogging()
}

// configureLogging sets up the logging system based on flags and environment.
func configureLogging() {
	level := zerolog.InfoLevel
	if verbose || viper.GetBool("verbose") {
		level = zerolog.DebugLevel
	}
	if quiet || viper.GetBool("quiet") {
		level = zerolog.WarnLevel
	}
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		if parsed, err := zerolog.ParseLevel(envLevel); err == nil {
			level = parsed
		}
	}

	logging.SetLevel(level)
}

// loadEnvFile loads a single .env file using godotenv.
func loadEnvFile(filename string) {
	if err := godotenv.Load(filename); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Loaded %s\n", filename)
	}
}

// loadConfig reads and validates the enrichment configuration.
func loadConfig() (*enrich.Config, error) {
	cfg, err := enrich.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fetchChannel retrieves the feed from the configured URL, or from a local
// file when --local-cache is set.
func fetchChannel(ctx context.Context, cfg *enrich.Config) (*feed.Channel, error) {
	fetcher := feed.NewFetcher()
	if localCache != "" {
		logging.Debug().Str("path", localCache).Msg("Reading feed from local file")
		return fetcher.FetchFile(localCache)
	}
	logging.Debug().Str("url", cfg.Feed.URL).Msg("Fetching feed")
	return fetcher.Fetch(ctx, cfg.Feed.URL)
}
