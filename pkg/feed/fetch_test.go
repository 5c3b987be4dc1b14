package feed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrmamen/podenrich/pkg/feed"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"
     xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd"
     xmlns:podcast="https://podcastindex.org/namespace/1.0">
  <channel>
    <title>cd SPILL</title>
    <link>https://example.com</link>
    <description>En podcast om retrospill</description>
    <itunes:image href="https://example.com/logo.jpg"/>
    <item>
      <title>Total Annihilation med Roar Granevang (#120)</title>
      <guid isPermaLink="false">ep-120</guid>
      <link>https://example.com/120</link>
      <description>Vi snakker om Total Annihilation.</description>
      <pubDate>Wed, 01 May 2024 06:00:00 +0000</pubDate>
      <enclosure url="https://cdn.example.com/ep120.mp3" type="audio/mpeg" length="52428800"/>
      <itunes:image href="https://example.com/ep120.jpg"/>
      <itunes:season>9</itunes:season>
      <itunes:episode>120</itunes:episode>
      <podcast:chapters url="https://cdn.example.com/chapters/ep120.json" type="application/json+chapters"/>
    </item>
    <item>
      <title>Tetris (#121)</title>
      <link>https://example.com/121</link>
    </item>
  </channel>
</rss>`

func TestParse(t *testing.T) {
	ch, err := feed.NewFetcher().Parse(strings.NewReader(sampleRSS), "sample")
	require.NoError(t, err)

	assert.Equal(t, "cd SPILL", ch.Title)
	assert.Equal(t, "https://example.com/logo.jpg", ch.ImageURL)
	require.Len(t, ch.Episodes, 2)

	ep := ch.Episodes[0]
	assert.Equal(t, "ep-120", ep.GUID)
	assert.Equal(t, "Total Annihilation med Roar Granevang (#120)", ep.Title)
	assert.Equal(t, time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC), ep.PubDate.UTC())
	assert.Equal(t, "https://example.com/ep120.jpg", ep.ImageURL)
	assert.Equal(t, 9, ep.Season)
	assert.Equal(t, 120, ep.Number)
	assert.Equal(t, "https://cdn.example.com/ep120.mp3", ep.Enclosure.URL)
	assert.Equal(t, int64(52428800), ep.Enclosure.Length)
	assert.Equal(t, "https://cdn.example.com/chapters/ep120.json", ep.ChaptersURL)

	plain := ch.Episodes[1]
	assert.Equal(t, "https://example.com/121", plain.GUID, "missing GUID falls back to link")
	assert.Zero(t, plain.Season)
	assert.Empty(t, plain.ChaptersURL)
}

func TestParseMalformed(t *testing.T) {
	_, err := feed.NewFetcher().Parse(strings.NewReader("not xml at all"), "broken")
	require.Error(t, err)
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), ".cache", "feed.xml")
	size, err := feed.NewFetcher().Download(context.Background(), srv.URL, path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(sampleRSS)), size)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleRSS, string(data), "saved byte-for-byte")

	// The saved file must round-trip through the local-cache path.
	ch, err := feed.NewFetcher().FetchFile(path)
	require.NoError(t, err)
	assert.Len(t, ch.Episodes, 2)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp file left behind")
}

func TestDownloadHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "feed.xml")
	_, err := feed.NewFetcher().Download(context.Background(), srv.URL, path)
	require.Error(t, err)
	assert.NoFileExists(t, path)
}

func TestSummary(t *testing.T) {
	ch, err := feed.NewFetcher().Parse(strings.NewReader(sampleRSS), "sample")
	require.NoError(t, err)

	summaries := ch.Summary()
	require.Len(t, summaries, 2)
	assert.Equal(t, "ep-120", summaries[0].GUID)
	assert.Equal(t, "https://example.com/120", summaries[0].Link)
	assert.False(t, summaries[0].PubDate.IsZero())
}
