package cmd

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mrmamen/podenrich/internal/cmd/output"
	"github.com/mrmamen/podenrich/pkg/people"
	"github.com/mrmamen/podenrich/pkg/registry"
)

var (
	rankTop    int
	rankFormat string
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank guests by number of appearances",
	Long: `Rank counts how often each known guest appears across the feed,
combining title-detected appearances with the manual contribution
entries in the guest registry. Bonus episodes are excluded.`,
	Example: `  podenrich rank
  podenrich rank --top 10 --format json`,
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

		reg, err := registry.Load(cfg.Registry.Staff, cfg.Registry.Guests)
		if err != nil {
			return err
		}

		ranks := people.RankGuests(ch.Episodes, reg)
		if rankTop > 0 && len(ranks) > rankTop {
			ranks = ranks[:rankTop]
		}

		format, err := output.ParseFormat(rankFormat)
		if err != nil {
			return err
		}
		if format == "" {
			format = output.DetectFormat("")
		}

		data := output.Data{
			Headers: []string{"Rank", "Name", "Episodes", "Contributions", "Total"},
		}
		for i, r := range ranks {
			data.Rows = append(data.Rows, []string{
				strconv.Itoa(i + 1),
				r.Name,
				strconv.Itoa(r.Full),
				strconv.Itoa(r.Contributions),
				strconv.Itoa(r.Total()),
			})
		}

		return output.NewFormatter(format).Format(os.Stdout, data)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().IntVar(&rankTop, "top", 0, "limit to the top N guests (0 for all)")
	rankCmd.Flags().StringVar(&rankFormat, "format", "", "output format: table or json (default: auto-detect)")
}
