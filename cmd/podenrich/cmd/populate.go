package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mrmamen/podenrich/internal/config"
	"github.com/mrmamen/podenrich/internal/podchaser"
	"github.com/mrmamen/podenrich/pkg/feed"
	"github.com/mrmamen/podenrich/pkg/logging"
	"github.com/mrmamen/podenrich/pkg/people"
	"github.com/mrmamen/podenrich/pkg/registry"
)

var populateDryRun bool

var populateCmd = &cobra.Command{
	Use:   "populate",
	Short: "Add unknown guests from episode titles to the registry",
	Long: `Populate scans every episode title for guest names and adds the ones
missing from the guest registry.

When Podchaser API credentials are configured (PODCHASER_API_KEY and
PODCHASER_API_SECRET), each new guest is looked up and stored with a
profile image and link. Without credentials, guests are added with
empty profiles for manual completion.`,
	Example: `  podenrich populate
  podenrich populate --dry-run`,
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

		var client *podchaser.Client
		if key, secret, err := config.PodchaserCredentials(); err == nil {
			client, err = podchaser.New(key, secret)
			if err != nil {
				return err
			}
		} else {
			logging.Warn().Msg("Missing Podchaser credentials, adding guests without profile data")
		}

		var added int
		for _, name := range unknownGuests(ch.Episodes, reg) {
			if err := ctx.Err(); err != nil {
				return err
			}

			profile := registry.GuestProfile{}
			if client != nil {
				creator, err := client.SearchCreator(ctx, name)
				if err != nil {
					logging.Err(err).Str("name", name).Msg("Podchaser lookup failed")
				} else if creator != nil {
					profile.Img = creator.ImageURL
					profile.Href = creator.URL
				}
			}

			if populateDryRun {
				logging.Info().Str("name", name).Msg("Would add guest")
				continue
			}
			if err := reg.AddGuest(name, profile); err != nil {
				return err
			}
			logging.Info().Str("name", name).Bool("profile", profile.Href != "").Msg("Added guest")
			added++
		}

		if populateDryRun || added == 0 {
			logging.Info().Int("added", added).Msg("No registry changes to save")
			return nil
		}
		if err := reg.SaveGuests(); err != nil {
			return err
		}
		logging.Info().Int("added", added).Str("path", cfg.Registry.Guests).Msg("Saved guest registry")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(populateCmd)

	populateCmd.Flags().BoolVar(&populateDryRun, "dry-run", false, "report new guests without saving")
}

// unknownGuests returns the canonical names extracted from episode titles
// that the registry does not know yet, deduplicated in first-seen order.
func unknownGuests(episodes []feed.Episode, reg *registry.Registry) []string {
	seen := make(map[string]bool)
	var names []string
	for i := range episodes {
		if people.IsBonusEpisode(episodes[i].Title) {
			continue
		}
		for _, surface := range people.ExtractGuests(episodes[i].Title) {
			name := reg.Canonical(surface)
			if seen[name] || reg.Known(name) {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}
