// Package feed defines the podcast feed data model consumed by the
// enrichment engine, plus a gofeed-backed fetcher that adapts an upstream
// RSS document into it. Episodes carry only the fields the engine reads;
// the upstream document is not kept.
package feed

import "time"

// Channel is the feed-level view of a podcast.
type Channel struct {
	Title       string
	Link        string
	Description string
	ImageURL    string // channel logo / cover

	// Episodes in feed document order. Publication order is derived where
	// it matters; feeds are not trusted to be date-sorted.
	Episodes []Episode
}

// Episode is a single feed item. GUID is the stable identity used for
// manual overrides; the title is mutable upstream and only ever used for
// heuristic extraction.
type Episode struct {
	GUID        string
	Title       string
	Link        string
	Description string
	PubDate     time.Time
	ImageURL    string // episode cover
	Enclosure   Enclosure

	Season int
	Number int

	// ChaptersURL is the upstream podcast:chapters JSON reference, also the
	// key for locating a local high-fidelity chapter file.
	ChaptersURL string

	// Chapters as provided upstream, ordered by start time. May be empty.
	Chapters []Chapter
}

// Enclosure is the episode's media attachment.
type Enclosure struct {
	URL    string
	Type   string
	Length int64
}

// Chapter is a single chapter marker. Ordering by StartTime is the natural
// order. TOCVisible=false entries are excluded from visible table-of-contents
// projections but retained in full-fidelity ones.
type Chapter struct {
	StartTime  float64 // seconds, sub-second precision
	Title      string
	TOCVisible bool
	URL        string
	ImageURL   string
}

// Summary returns the (guid, pubDate, link) view of every episode, the field
// set change detection digests over.
func (c *Channel) Summary() []EpisodeSummary {
	summaries := make([]EpisodeSummary, 0, len(c.Episodes))
	for _, ep := range c.Episodes {
		summaries = append(summaries, EpisodeSummary{
			GUID:    ep.GUID,
			PubDate: ep.PubDate,
			Link:    ep.Link,
		})
	}
	return summaries
}

// EpisodeSummary is the minimal per-episode field set that signals a
// rendered-output change: a new episode, a changed publish date, or a
// changed link. Cosmetic description edits deliberately do not appear here.
type EpisodeSummary struct {
	GUID    string
	PubDate time.Time
	Link    string
}
