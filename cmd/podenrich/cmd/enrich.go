package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mrmamen/podenrich/internal/feedxml"
	"github.com/mrmamen/podenrich/pkg/enrich"
	"github.com/mrmamen/podenrich/pkg/errors"
	"github.com/mrmamen/podenrich/pkg/logging"
)

var enrichForce bool

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Generate the enriched feed",
	Long: `Enrich fetches the upstream feed, resolves hosts and guests, merges
local chapter files, and writes the enriched RSS document.

The run is skipped when the feed fingerprint matches the previous run
for the same output file. Use --force to regenerate anyway.`,
	Example: `  podenrich enrich
  podenrich enrich --force
  podenrich enrich --local-cache feed.xml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ch, err := fetchChannel(ctx, cfg)
		if err != nil {
			return err
		}
		logging.Info().Str("title", ch.Title).Int("episodes", len(ch.Episodes)).Msg("Fetched feed")

		pipeline, err := enrich.New(cfg)
		if err != nil {
			return err
		}

		result, err := pipeline.Run(ctx, ch, enrichForce)
		if err != nil {
			return err
		}
		if result.Skipped {
			return nil
		}

		logWarnings(result.Warnings)

		doc := feedxml.Build(ch, result)
		if err := feedxml.WriteFile(doc, cfg.Feed.Output); err != nil {
			return err
		}
		logging.Info().Str("output", cfg.Feed.Output).Msg("Wrote enriched feed")

		if out := cfg.Feed.YouTubeOutput; out != "" {
			ytDoc := feedxml.BuildYouTube(ch, result)
			if err := feedxml.WriteFile(ytDoc, out); err != nil {
				return err
			}
			logging.Info().Str("output", out).Msg("Wrote YouTube feed")
		}

		// Advance the baseline only after the output exists on disk.
		return pipeline.Commit(result.Digest)
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)

	enrichCmd.Flags().BoolVar(&enrichForce, "force", false, "regenerate even when no feed changes are detected")
}

// maxWarningSample bounds how many individual warnings are logged;
// beyond that only the total count is reported.
const maxWarningSample = 5

// logWarnings reports a sample of non-fatal problems from the run.
func logWarnings(warnings []errors.Warning) {
	if len(warnings) == 0 {
		return
	}
	for _, w := range errors.SampleWarnings(warnings, maxWarningSample) {
		logging.Warn().Str("kind", string(w.Kind)).Str("subject", w.Subject).Msg(w.Detail)
	}
	if len(warnings) > maxWarningSample {
		logging.Warn().Int("total", len(warnings)).Msg("Additional warnings suppressed")
	}
}
