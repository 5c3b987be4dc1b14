package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mrmamen/podenrich/internal/feedmerge"
	"github.com/mrmamen/podenrich/pkg/errors"
	"github.com/mrmamen/podenrich/pkg/logging"
)

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split a source feed into category feeds",
	Long: `Split routes items from the configured source feed into several output
feeds by title patterns and merges each bucket with the channel
metadata of a companion feed.

Categories are matched in order, first match wins; a category with no
pattern collects everything left over. Namespace-prefixed tags in the
items and channel metadata are carried over unchanged.`,
	Example: `  podenrich split`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(cfg.Split.Categories) == 0 {
			return &errors.ValidationError{Field: "split", Message: "no split block configured"}
		}

		categories := make([]feedmerge.Category, 0, len(cfg.Split.Categories))
		for _, c := range cfg.Split.Categories {
			categories = append(categories, feedmerge.Category{
				Pattern:     c.Pattern,
				MetadataURL: c.Metadata,
				Output:      c.Output,
			})
		}

		splitter, err := feedmerge.New(categories)
		if err != nil {
			return err
		}
		report, err := splitter.Split(ctx, cfg.Split.Source)
		if err != nil {
			return err
		}

		if report.Skipped > 0 {
			logging.Warn().Int("items", report.Skipped).Msg("Items matched no category")
		}
		logging.Info().
			Int("items", report.Items).
			Int("feeds", len(report.Written)).
			Msg("Split complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(splitCmd)
}
