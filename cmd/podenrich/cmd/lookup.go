package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mrmamen/podenrich/internal/cmd/output"
	"github.com/mrmamen/podenrich/internal/config"
	"github.com/mrmamen/podenrich/internal/podchaser"
	"github.com/mrmamen/podenrich/pkg/errors"
	"github.com/mrmamen/podenrich/pkg/logging"
)

var lookupFormat string

var lookupCmd = &cobra.Command{
	Use:   "lookup <name>",
	Short: "Look up a person on Podchaser",
	Long: `Lookup searches Podchaser for a creator profile by name and prints
the best match. Requires PODCHASER_API_KEY and PODCHASER_API_SECRET.`,
	Example: `  podenrich lookup "Roar Granevang"`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := args[0]

		key, secret, err := config.PodchaserCredentials()
		if err != nil {
			return err
		}
		client, err := podchaser.New(key, secret)
		if err != nil {
			return err
		}

		creator, err := client.SearchCreator(ctx, name)
		if err != nil {
			return err
		}
		if creator == nil {
			logging.Warn().Str("name", name).Msg("No Podchaser results")
			return &errors.NotFoundError{Resource: "creator", ID: name}
		}

		format, err := output.ParseFormat(lookupFormat)
		if err != nil {
			return err
		}
		if format == "" {
			format = output.DetectFormat("")
		}

		data := output.Data{
			Headers: []string{"Name", "Image", "URL"},
			Rows:    [][]string{{creator.Name, creator.ImageURL, creator.URL}},
		}
		return output.NewFormatter(format).Format(os.Stdout, data)
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().StringVar(&lookupFormat, "format", "", "output format: table or json (default: auto-detect)")
}
