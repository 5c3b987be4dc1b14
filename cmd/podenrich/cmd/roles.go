package cmd

import (
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mrmamen/podenrich/internal/cmd/output"
	"github.com/mrmamen/podenrich/pkg/people"
	"github.com/mrmamen/podenrich/pkg/registry"
)

var rolesFormat string

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Classify extracted names as hosts or guests",
	Long: `Roles analyzes every episode title and classifies each extracted name
by appearance frequency: a name present in more than half of the
regular episodes is classified as a host, everyone else as a guest.

Useful for bootstrapping the staff file for a new feed.`,
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

		classifications := people.ClassifyRoles(ch.Episodes, reg.Aliases())

		names := make([]string, 0, len(classifications))
		for name := range classifications {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			a, b := classifications[names[i]], classifications[names[j]]
			if a.Appearances != b.Appearances {
				return a.Appearances > b.Appearances
			}
			return names[i] < names[j]
		})

		format, err := output.ParseFormat(rolesFormat)
		if err != nil {
			return err
		}
		if format == "" {
			format = output.DetectFormat("")
		}

		data := output.Data{
			Headers: []string{"Name", "Role", "Appearances"},
		}
		for _, name := range names {
			c := classifications[name]
			data.Rows = append(data.Rows, []string{
				c.Name,
				c.Role,
				strconv.Itoa(c.Appearances),
			})
		}

		return output.NewFormatter(format).Format(os.Stdout, data)
	},
}

func init() {
	rootCmd.AddCommand(rolesCmd)

	rolesCmd.Flags().StringVar(&rolesFormat, "format", "", "output format: table or json (default: auto-detect)")
}
