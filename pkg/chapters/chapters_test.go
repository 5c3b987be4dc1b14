package chapters_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrmamen/podenrich/pkg/chapters"
	"github.com/mrmamen/podenrich/pkg/errors"
	"github.com/mrmamen/podenrich/pkg/feed"
)

const localChapterFile = `{
  "version": "1.2.0",
  "chapters": [
    {"startTime": 0, "title": "Intro"},
    {"startTime": 95.5, "title": "Klippemarkør", "toc": false},
    {"startTime": 120, "title": "Oppsummering av spillet"},
    {"startTime": 1800, "title": "Neste episode"},
    {"startTime": 1900, "title": "Outro", "img": "https://example.com/custom.jpg"}
  ]
}`

func writeChapterFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func testContext() chapters.Context {
	return chapters.Context{
		Episode: &feed.Episode{
			GUID:        "ep-1",
			Title:       "Doom (#1)",
			ImageURL:    "https://example.com/ep1.jpg",
			ChaptersURL: "https://cdn.example.com/chapters/ep1.json",
		},
		Channel: &feed.Channel{ImageURL: "https://example.com/logo.jpg"},
		Next:    &feed.Episode{ImageURL: "https://example.com/ep2.jpg"},
	}
}

func TestEnrichLocalSourceWins(t *testing.T) {
	dir := t.TempDir()
	writeChapterFile(t, dir, "ep1.json", localChapterFile)

	enricher := chapters.NewEnricher(dir, nil)
	ctx := testContext()
	ctx.Episode.Chapters = []feed.Chapter{
		{StartTime: 0, Title: "Auto-generated", TOCVisible: true},
	}

	set, warnings := enricher.Enrich(ctx)
	require.Empty(t, warnings)
	assert.True(t, set.HighFidelity)
	assert.Equal(t, 5, set.Len(), "local chapters replace upstream entirely")

	all := set.All()
	assert.Equal(t, "Intro", all[0].Title)
	assert.NotEqual(t, "Auto-generated", all[0].Title)
}

func TestEnrichVisibleProjection(t *testing.T) {
	dir := t.TempDir()
	writeChapterFile(t, dir, "ep1.json", localChapterFile)

	enricher := chapters.NewEnricher(dir, nil)
	set, _ := enricher.Enrich(testContext())

	all := set.All()
	visible := set.Visible()
	assert.Len(t, all, 5)
	assert.Len(t, visible, 4, "hidden working marker excluded from TOC projection")
	for _, c := range visible {
		assert.NotEqual(t, "Klippemarkør", c.Title)
	}

	hidden := len(all) - len(visible)
	assert.Equal(t, len(all), len(visible)+hidden)
}

func TestEnrichImageInjection(t *testing.T) {
	dir := t.TempDir()
	writeChapterFile(t, dir, "ep1.json", localChapterFile)

	enricher := chapters.NewEnricher(dir, nil)
	set, warnings := enricher.Enrich(testContext())
	require.Empty(t, warnings)

	byTitle := make(map[string]feed.Chapter)
	for _, c := range set.All() {
		byTitle[c.Title] = c
	}

	assert.Equal(t, "https://example.com/ep1.jpg", byTitle["Intro"].ImageURL, "intro shows episode cover")
	assert.Equal(t, "https://example.com/ep1.jpg", byTitle["Oppsummering av spillet"].ImageURL, "substring rule")
	assert.Equal(t, "https://example.com/ep2.jpg", byTitle["Neste episode"].ImageURL, "next episode cover")
	assert.Equal(t, "https://example.com/custom.jpg", byTitle["Outro"].ImageURL, "existing image never overwritten")
	assert.Empty(t, byTitle["Klippemarkør"].ImageURL, "no rule match leaves chapter bare")
}

func TestEnrichMissingImageSourceWarns(t *testing.T) {
	dir := t.TempDir()
	writeChapterFile(t, dir, "ep1.json", `{
		"version": "1.2.0",
		"chapters": [{"startTime": 0, "title": "Forrige episode"}]
	}`)

	enricher := chapters.NewEnricher(dir, nil)
	ctx := testContext()
	ctx.Previous = nil

	set, warnings := enricher.Enrich(ctx)
	require.Len(t, warnings, 1)
	assert.Equal(t, errors.WarnMissingReference, warnings[0].Kind)
	assert.Empty(t, set.All()[0].ImageURL)
}

func TestEnrichNoLocalSourcePassesThrough(t *testing.T) {
	enricher := chapters.NewEnricher(t.TempDir(), nil)

	ctx := testContext()
	ctx.Episode.Chapters = []feed.Chapter{
		{StartTime: 10, Title: "Intro", TOCVisible: true}, // would match a rule
		{StartTime: 0, Title: "Start", TOCVisible: true},
	}

	set, warnings := enricher.Enrich(ctx)
	require.Empty(t, warnings)
	assert.False(t, set.HighFidelity)

	all := set.All()
	require.Len(t, all, 2)
	assert.Equal(t, "Start", all[0].Title, "sorted by start time")
	assert.Empty(t, all[0].ImageURL)
	assert.Empty(t, all[1].ImageURL, "no image injection on the pass-through path")
}

func TestEnrichMalformedLocalSourceFallsBack(t *testing.T) {
	dir := t.TempDir()
	writeChapterFile(t, dir, "ep1.json", `{broken`)

	enricher := chapters.NewEnricher(dir, nil)
	ctx := testContext()
	ctx.Episode.Chapters = []feed.Chapter{
		{StartTime: 0, Title: "Upstream", TOCVisible: true},
	}

	set, warnings := enricher.Enrich(ctx)
	require.Len(t, warnings, 1)
	assert.Equal(t, errors.WarnMalformedLocalSource, warnings[0].Kind)
	assert.Equal(t, "ep1.json", warnings[0].Subject)

	assert.False(t, set.HighFidelity)
	require.Equal(t, 1, set.Len())
	assert.Equal(t, "Upstream", set.All()[0].Title)
}

func TestEnrichNoChaptersAtAll(t *testing.T) {
	enricher := chapters.NewEnricher("", nil)

	set, warnings := enricher.Enrich(chapters.Context{Episode: &feed.Episode{GUID: "ep-9"}})
	require.Empty(t, warnings)
	assert.Zero(t, set.Len())
	assert.Empty(t, set.Visible())
}

func TestNeighborsByPublishDate(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
	}
	// Deliberately out of document order.
	episodes := []feed.Episode{
		{GUID: "c", PubDate: day(30)},
		{GUID: "a", PubDate: day(10)},
		{GUID: "b", PubDate: day(20)},
	}

	previous, next := chapters.Neighbors(episodes, 2) // "b"
	require.NotNil(t, previous)
	require.NotNil(t, next)
	assert.Equal(t, "a", previous.GUID)
	assert.Equal(t, "c", next.GUID)

	previous, next = chapters.Neighbors(episodes, 1) // "a", the oldest
	assert.Nil(t, previous)
	require.NotNil(t, next)
	assert.Equal(t, "b", next.GUID)
}

func TestImageRuleMatching(t *testing.T) {
	exact := chapters.ImageRule{Pattern: "intro", Exact: true}
	assert.True(t, exact.Matches("Intro"))
	assert.True(t, exact.Matches("  intro "))
	assert.False(t, exact.Matches("Introduksjon"))

	substring := chapters.ImageRule{Pattern: "oppsummering"}
	assert.True(t, substring.Matches("Oppsummering av spillet"))
	assert.False(t, substring.Matches("Oppvarming"))
}
