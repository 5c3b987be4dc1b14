// Package chapters enriches per-episode chapter data. When a local
// high-fidelity chapter file exists for an episode it replaces the upstream
// auto-generated chapters; missing images are then injected from an ordered
// title-pattern rule table. Both the visible table-of-contents projection
// and the full-fidelity projection derive from one canonical sequence and
// are never maintained as two independently edited lists.
package chapters

import (
	"encoding/json"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"

	stderrors "errors"

	"github.com/mrmamen/podenrich/pkg/errors"
	"github.com/mrmamen/podenrich/pkg/feed"
	"github.com/mrmamen/podenrich/pkg/logging"
)

// Set is the canonical enriched chapter sequence for one episode, ordered
// by start time.
type Set struct {
	chapters []feed.Chapter

	// HighFidelity is true when the set came from a local chapter file
	// rather than the upstream pass-through fallback.
	HighFidelity bool
}

// All returns the full-fidelity projection: every chapter regardless of
// visibility flag.
func (s *Set) All() []feed.Chapter {
	out := make([]feed.Chapter, len(s.chapters))
	copy(out, s.chapters)
	return out
}

// Visible returns the table-of-contents projection, excluding chapters
// flagged hidden. It is always a subset of All.
func (s *Set) Visible() []feed.Chapter {
	var out []feed.Chapter
	for _, c := range s.chapters {
		if c.TOCVisible {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of chapters in the canonical sequence.
func (s *Set) Len() int { return len(s.chapters) }

// localFile is the on-disk schema of a high-fidelity chapter source.
type localFile struct {
	Version  string         `json:"version"`
	Chapters []localChapter `json:"chapters"`
}

type localChapter struct {
	StartTime float64 `json:"startTime"`
	Title     string  `json:"title"`
	TOC       *bool   `json:"toc,omitempty"` // absent means visible
	URL       string  `json:"url,omitempty"`
	Img       string  `json:"img,omitempty"`
}

// Enricher loads local chapter sources from a directory and injects images
// per its rule table.
type Enricher struct {
	dir   string
	rules []ImageRule
}

// NewEnricher creates a chapter enricher. dir may be empty, in which case
// every episode takes the upstream pass-through path. A nil rule slice uses
// DefaultImageRules.
func NewEnricher(dir string, rules []ImageRule) *Enricher {
	if rules == nil {
		rules = DefaultImageRules
	}
	return &Enricher{dir: dir, rules: rules}
}

// Context carries the metadata image injection rules may reference.
// Previous and Next are publish-date neighbors, not list neighbors, so
// out-of-order feeds still resolve the right episode.
type Context struct {
	Episode  *feed.Episode
	Channel  *feed.Channel
	Previous *feed.Episode
	Next     *feed.Episode
}

// Enrich produces the enriched chapter set for one episode. A local source,
// when present and well-formed, wins over upstream chapters and gets hidden-
// chapter flags and image injection applied. Without one (or when the local
// file is malformed, which surfaces a warning), upstream chapters pass
// through unchanged, with no filtering and no injection.
func (e *Enricher) Enrich(ctx Context) (*Set, []errors.Warning) {
	ep := ctx.Episode

	local, warnings := e.loadLocal(ep)
	if local == nil {
		set := &Set{chapters: append([]feed.Chapter(nil), ep.Chapters...)}
		sortByStart(set.chapters)
		return set, warnings
	}

	sortByStart(local)
	injectWarnings := e.injectImages(local, ctx)
	warnings = append(warnings, injectWarnings...)

	return &Set{chapters: local, HighFidelity: true}, warnings
}

// loadLocal reads the high-fidelity chapter file for an episode, keyed by
// the basename of the upstream chapter URL. Returns nil when there is no
// local source to use.
func (e *Enricher) loadLocal(ep *feed.Episode) ([]feed.Chapter, []errors.Warning) {
	if e.dir == "" || ep.ChaptersURL == "" {
		return nil, nil
	}

	name := localKey(ep.ChaptersURL)
	if name == "" {
		return nil, nil
	}
	fullPath := filepath.Join(e.dir, name)

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, []errors.Warning{{
			Kind:    errors.WarnMalformedLocalSource,
			Subject: name,
			Detail:  err.Error(),
		}}
	}

	var lf localFile
	if err := json.Unmarshal(data, &lf); err != nil {
		logging.Warn().Str("file", name).Err(err).Msg("Malformed local chapter source, falling back to upstream chapters")
		return nil, []errors.Warning{{
			Kind:    errors.WarnMalformedLocalSource,
			Subject: name,
			Detail:  err.Error(),
		}}
	}

	chapters := make([]feed.Chapter, 0, len(lf.Chapters))
	for _, c := range lf.Chapters {
		visible := true
		if c.TOC != nil {
			visible = *c.TOC
		}
		chapters = append(chapters, feed.Chapter{
			StartTime:  c.StartTime,
			Title:      c.Title,
			TOCVisible: visible,
			URL:        c.URL,
			ImageURL:   c.Img,
		})
	}
	return chapters, nil
}

// localKey derives the chapter filename from the upstream chapter URL.
func localKey(chaptersURL string) string {
	u, err := url.Parse(chaptersURL)
	if err != nil {
		return path.Base(chaptersURL)
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

func sortByStart(chapters []feed.Chapter) {
	sort.SliceStable(chapters, func(i, j int) bool {
		return chapters[i].StartTime < chapters[j].StartTime
	})
}
