package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mrmamen/podenrich/pkg/feed"
	"github.com/mrmamen/podenrich/pkg/logging"
)

var fetchOut string

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the upstream feed to a local file",
	Long: `Fetch saves the configured upstream feed to disk, byte-for-byte.

The saved file is meant for the --local-cache flag: later runs can read
it instead of hitting the live feed, for offline testing or faster
development iterations. Scheduled runs should keep fetching live.`,
	Example: `  podenrich fetch
  podenrich enrich --local-cache .cache/feed.xml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		size, err := feed.NewFetcher().Download(ctx, cfg.Feed.URL, fetchOut)
		if err != nil {
			return err
		}
		logging.Info().Str("url", cfg.Feed.URL).Str("path", fetchOut).Int64("bytes", size).Msg("Cached feed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchOut, "out", ".cache/feed.xml", "destination file for the downloaded feed")
}
