package people

import (
	"github.com/mrmamen/podenrich/pkg/feed"
	"github.com/mrmamen/podenrich/pkg/registry"
)

// Classification is the batch role decision for one person.
type Classification struct {
	Name        string
	Role        string
	Appearances int
	// Histogram counts appearances per role category observed while
	// classifying (today: title-extracted guest slots only).
	Histogram map[string]int
}

// ClassifyRoles is the batch cache-build path that decides who is permanent
// staff and who is a guest when building a registry from scratch. A person
// appearing in more than half of all non-bonus episodes is classified as
// host; everyone else is a guest. The per-run resolver never calls this;
// it treats classification as already-decided input.
func ClassifyRoles(episodes []feed.Episode, aliases map[string]string) map[string]Classification {
	canonical := func(name string) string {
		if c, ok := aliases[name]; ok && c != "" {
			return c
		}
		return name
	}

	total := 0
	counts := make(map[string]int)
	for i := range episodes {
		ep := &episodes[i]
		if IsBonusEpisode(ep.Title) {
			continue
		}
		total++
		for _, name := range ExtractGuests(ep.Title) {
			counts[canonical(name)]++
		}
	}

	out := make(map[string]Classification, len(counts))
	for name, n := range counts {
		role := registry.RoleGuest
		if total > 0 && float64(n)/float64(total) > 0.5 {
			role = registry.RoleHost
		}
		out[name] = Classification{
			Name:        name,
			Role:        role,
			Appearances: n,
			Histogram:   map[string]int{registry.RoleGuest: n},
		}
	}
	return out
}
