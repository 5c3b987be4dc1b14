package chapters

import (
	"strings"

	"github.com/mrmamen/podenrich/pkg/errors"
	"github.com/mrmamen/podenrich/pkg/feed"
)

// ImageSource identifies where an injected chapter image comes from.
type ImageSource int

// Image sources an injection rule can resolve to.
const (
	// ImageEpisodeCover uses the current episode's cover image.
	ImageEpisodeCover ImageSource = iota
	// ImageChannelCover uses the channel-level cover image.
	ImageChannelCover
	// ImagePreviousCover uses the nearest earlier episode's cover, by
	// publish date.
	ImagePreviousCover
	// ImageNextCover uses the nearest later episode's cover, by publish
	// date.
	ImageNextCover
)

// ImageRule maps a chapter-title pattern to an image source. Matching is
// case-insensitive; Exact requires the whole title to equal the pattern,
// otherwise substring containment is enough. Rules are evaluated in order
// and the first match wins.
type ImageRule struct {
	Pattern string
	Exact   bool
	Source  ImageSource
}

// Matches reports whether the rule applies to a chapter title.
func (r ImageRule) Matches(title string) bool {
	title = strings.ToLower(strings.TrimSpace(title))
	pattern := strings.ToLower(r.Pattern)
	if r.Exact {
		return title == pattern
	}
	return strings.Contains(title, pattern)
}

// DefaultImageRules mirrors the structural patterns of the produced feeds:
// the intro and game-summary segments show the episode cover, teasers for
// the adjacent episode show that episode's cover, and the outro falls back
// to the channel logo.
var DefaultImageRules = []ImageRule{
	{Pattern: "intro", Exact: true, Source: ImageEpisodeCover},
	{Pattern: "oppsummering", Source: ImageEpisodeCover},
	{Pattern: "neste episode", Source: ImageNextCover},
	{Pattern: "forrige episode", Source: ImagePreviousCover},
	{Pattern: "outro", Exact: true, Source: ImageChannelCover},
}

// injectImages fills in missing chapter images from the rule table. A
// chapter that already carries an image is never overwritten. A matching
// rule whose source resolves to no image leaves the chapter bare and
// surfaces a missing-reference warning.
func (e *Enricher) injectImages(chapters []feed.Chapter, ctx Context) []errors.Warning {
	var warnings []errors.Warning

	for i := range chapters {
		c := &chapters[i]
		if c.ImageURL != "" {
			continue
		}

		for _, rule := range e.rules {
			if !rule.Matches(c.Title) {
				continue
			}
			img := resolveImage(rule.Source, ctx)
			if img == "" {
				warnings = append(warnings, errors.Warning{
					Kind:    errors.WarnMissingReference,
					Subject: c.Title,
					Detail:  "image rule matched but no source image available",
				})
			} else {
				c.ImageURL = img
			}
			break // first matching rule wins
		}
	}

	return warnings
}

func resolveImage(source ImageSource, ctx Context) string {
	switch source {
	case ImageEpisodeCover:
		if ctx.Episode != nil {
			return ctx.Episode.ImageURL
		}
	case ImageChannelCover:
		if ctx.Channel != nil {
			return ctx.Channel.ImageURL
		}
	case ImagePreviousCover:
		if ctx.Previous != nil {
			return ctx.Previous.ImageURL
		}
	case ImageNextCover:
		if ctx.Next != nil {
			return ctx.Next.ImageURL
		}
	}
	return ""
}

// Neighbors finds the publish-date-adjacent episodes of episodes[i]:
// the nearest earlier and nearest later by publish date, regardless of
// list position.
func Neighbors(episodes []feed.Episode, i int) (previous, next *feed.Episode) {
	target := episodes[i].PubDate
	for j := range episodes {
		if j == i {
			continue
		}
		ep := &episodes[j]
		switch {
		case ep.PubDate.Before(target):
			if previous == nil || ep.PubDate.After(previous.PubDate) {
				previous = ep
			}
		case ep.PubDate.After(target):
			if next == nil || ep.PubDate.Before(next.PubDate) {
				next = ep
			}
		}
	}
	return previous, next
}
