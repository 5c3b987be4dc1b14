package people

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mrmamen/podenrich/pkg/feed"
	"github.com/mrmamen/podenrich/pkg/registry"
)

// GuestRank is one row of the appearance statistics report.
type GuestRank struct {
	Name string
	// Full counts title-extracted appearances: the guest was present for
	// the whole episode.
	Full int
	// Contributions counts manual extra-episode records: the guest has a
	// segment but was not present throughout.
	Contributions int
}

// Total is the combined appearance count.
func (g GuestRank) Total() int { return g.Full + g.Contributions }

var rankCollator = collate.New(language.Norwegian, collate.Loose)

// RankGuests counts guest appearances across the feed. Bonus episodes are
// excluded from both counts (for contributions, a bonus marker in the note
// excludes the record). Rows sort by full appearances, then contributions,
// both descending, then name in Norwegian collation order.
func RankGuests(episodes []feed.Episode, reg *registry.Registry) []GuestRank {
	full := make(map[string]int)
	for i := range episodes {
		ep := &episodes[i]
		if IsBonusEpisode(ep.Title) {
			continue
		}
		for _, name := range ExtractGuests(ep.Title) {
			full[reg.Canonical(name)]++
		}
	}

	contrib := make(map[string]int)
	for _, name := range reg.GuestNames() {
		profile, _ := reg.Guest(name)
		canonical := reg.Canonical(name)
		for _, extra := range profile.ExtraEpisodes {
			if IsBonusEpisode(extra.Note) {
				continue
			}
			contrib[canonical]++
		}
	}

	names := make(map[string]bool, len(full)+len(contrib))
	for name := range full {
		names[name] = true
	}
	for name := range contrib {
		names[name] = true
	}

	ranks := make([]GuestRank, 0, len(names))
	for name := range names {
		ranks = append(ranks, GuestRank{
			Name:          name,
			Full:          full[name],
			Contributions: contrib[name],
		})
	}

	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Full != ranks[j].Full {
			return ranks[i].Full > ranks[j].Full
		}
		if ranks[i].Contributions != ranks[j].Contributions {
			return ranks[i].Contributions > ranks[j].Contributions
		}
		return rankCollator.CompareString(ranks[i].Name, ranks[j].Name) < 0
	})

	return ranks
}
