package enrich

import (
	"fmt"
	"strings"
)

// DefaultOP3Prefix is the Open Podcast Prefix Project analytics gateway.
const DefaultOP3Prefix = "https://op3.dev/e/"

// defaultSeasonFirstYear anchors season numbering: season 1 is the spring
// of that year, season 2 its autumn, and so on.
const defaultSeasonFirstYear = 2020

// SeasonName renders the display name for a season number, alternating
// spring and autumn from the configured first year: 1 = "Vår 2020",
// 2 = "Høst 2020", 3 = "Vår 2021".
func SeasonName(season, firstYear int) string {
	if season <= 0 {
		return fmt.Sprintf("Sesong %d", season)
	}

	year := firstYear + (season-1)/2
	if season%2 == 1 {
		return fmt.Sprintf("Vår %d", year)
	}
	return fmt.Sprintf("Høst %d", year)
}

// RewriteEnclosureURL prefixes an enclosure URL with the analytics gateway.
// The https:// scheme is stripped from the original URL; http:// URLs keep
// their scheme verbatim. Already-prefixed URLs pass through unchanged, so
// the rewrite is idempotent.
func RewriteEnclosureURL(url, prefix string) string {
	if url == "" || strings.HasPrefix(url, prefix) {
		return url
	}
	return prefix + strings.TrimPrefix(url, "https://")
}

// applyTitleSuffix appends the suffix unless the title already carries it.
func applyTitleSuffix(title, suffix string) string {
	if suffix == "" || strings.Contains(title, suffix) {
		return title
	}
	return title + suffix
}
