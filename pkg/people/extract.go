// Package people resolves person tags for a feed: it extracts candidate
// guest names from episode titles, normalizes them through the registry's
// alias table, attaches profile data, and classifies roles for batch
// registry builds.
package people

import (
	"regexp"
	"strings"
)

// Episode titles introduce guests with the connective "med" and join
// multiple guests with "og", e.g. "OutRun med Mats Lindh og Øystein Lill
// (#53)". The trailing episode-number suffix is stripped before splitting.
//
// Known limitation: comma-separated guest lists ("med A, B og C") are not
// split further; the comma segment rides along with the first name. Titles
// have never used that form, so the extractor does not guess at it.
var (
	guestClause   = regexp.MustCompile(`(?i)\bmed\s+(.+?)(?:\s*\(|$)`)
	episodeSuffix = regexp.MustCompile(`\s*\(#?\d+\)$`)
	conjunction   = regexp.MustCompile(`(?i)\s+og\s+`)
)

// ExtractGuests returns the candidate guest names found in an episode
// title, in left-to-right order. A title without the guest-introduction
// marker yields an empty slice; that is a valid outcome, not an error.
// Extraction is pure and deterministic for identical input.
func ExtractGuests(title string) []string {
	match := guestClause.FindStringSubmatch(title)
	if match == nil {
		return nil
	}

	clause := strings.TrimSpace(match[1])
	clause = episodeSuffix.ReplaceAllString(clause, "")

	var names []string
	for _, part := range conjunction.Split(clause, -1) {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// IsBonusEpisode reports whether a title marks a bonus episode. Bonus
// episodes are excluded from appearance counting and role classification.
func IsBonusEpisode(title string) bool {
	return strings.Contains(strings.ToLower(title), "bonus")
}
