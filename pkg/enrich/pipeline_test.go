package enrich

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrmamen/podenrich/pkg/feed"
)

func pipelineConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()

	staff := `{
		"hosts": [
			{"name": "Sigve Indregard", "role": "host", "href": "https://example.com/sigve"}
		],
		"other": []
	}`
	guests := `{
		"guests": {
			"Roar Granevang": {"href": "https://example.com/roar"}
		},
		"aliases": {}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "staff.json"), []byte(staff), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guests.json"), []byte(guests), 0o644))

	cfg := &Config{}
	cfg.Feed.URL = "https://example.com/feed.xml"
	cfg.Feed.Output = filepath.Join(dir, "out.xml")
	cfg.TitleSuffix = " (Beta)"
	cfg.GUID = "a550e4b5-6615-5a5d-b1d5-a371c01552a2"
	cfg.Medium = "podcast"
	cfg.OP3.Enabled = true
	cfg.Registry.Staff = filepath.Join(dir, "staff.json")
	cfg.Registry.Guests = filepath.Join(dir, "guests.json")
	cfg.Cache.Path = filepath.Join(dir, "cache.json")
	require.NoError(t, cfg.Validate())
	return cfg
}

func pipelineChannel() *feed.Channel {
	return &feed.Channel{
		Title:    "cd SPILL",
		ImageURL: "https://example.com/logo.jpg",
		Episodes: []feed.Episode{
			{
				GUID:    "ep-120",
				Title:   "Total Annihilation med Roar Granevang (#120)",
				Link:    "https://example.com/120",
				PubDate: time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC),
				Season:  9,
				Number:  120,
				Enclosure: feed.Enclosure{
					URL:  "https://cdn.example.com/ep120.mp3",
					Type: "audio/mpeg",
				},
			},
			{
				GUID:    "ep-121",
				Title:   "Tetris (#121)",
				Link:    "https://example.com/121",
				PubDate: time.Date(2024, 5, 15, 6, 0, 0, 0, time.UTC),
			},
		},
	}
}

func TestPipelineRun(t *testing.T) {
	cfg := pipelineConfig(t)
	p, err := New(cfg)
	require.NoError(t, err)

	result, err := p.Run(context.Background(), pipelineChannel(), false)
	require.NoError(t, err)
	require.False(t, result.Skipped)
	assert.NotEmpty(t, result.Digest)

	assert.Equal(t, "cd SPILL (Beta)", result.Channel.Title)
	assert.Equal(t, cfg.GUID, result.Channel.GUID)
	assert.Equal(t, "podcast", result.Channel.Medium)
	require.Len(t, result.Channel.Persons, 1)
	assert.Equal(t, "Sigve Indregard", result.Channel.Persons[0].Name)

	require.Len(t, result.Episodes, 2)

	ep := result.Episodes[0]
	assert.Equal(t, "ep-120", ep.GUID)
	require.Len(t, ep.Persons, 1)
	assert.Equal(t, "Roar Granevang", ep.Persons[0].Name)
	require.NotNil(t, ep.Season)
	assert.Equal(t, 9, ep.Season.Number)
	assert.Equal(t, "Vår 2024", ep.Season.Name)
	assert.Equal(t, 120, ep.Number)
	assert.Equal(t, "https://op3.dev/e/cdn.example.com/ep120.mp3", ep.EnclosureURL)

	assert.Nil(t, result.Episodes[1].Season)
	assert.Empty(t, result.Episodes[1].Persons)
}

func TestPipelineSkipsUnchangedFeed(t *testing.T) {
	cfg := pipelineConfig(t)
	p, err := New(cfg)
	require.NoError(t, err)

	ch := pipelineChannel()
	result, err := p.Run(context.Background(), ch, false)
	require.NoError(t, err)
	require.False(t, result.Skipped)
	require.NoError(t, p.Commit(result.Digest))

	// A fresh pipeline reloads the committed baseline from disk.
	p, err = New(cfg)
	require.NoError(t, err)
	result, err = p.Run(context.Background(), ch, false)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Empty(t, result.Episodes)

	result, err = p.Run(context.Background(), ch, true)
	require.NoError(t, err)
	assert.False(t, result.Skipped, "force overrides the baseline")
}

func TestPipelineRegenerateOnNewOutputTarget(t *testing.T) {
	cfg := pipelineConfig(t)
	p, err := New(cfg)
	require.NoError(t, err)

	ch := pipelineChannel()
	result, err := p.Run(context.Background(), ch, false)
	require.NoError(t, err)
	require.NoError(t, p.Commit(result.Digest))

	// Adding a second output target invalidates the skip: the new target
	// has no baseline yet, even though the feed is unchanged.
	cfg.Feed.YouTubeOutput = filepath.Join(t.TempDir(), "youtube.xml")
	p, err = New(cfg)
	require.NoError(t, err)
	result, err = p.Run(context.Background(), ch, false)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	require.NoError(t, p.Commit(result.Digest))

	// Once both baselines are committed, the skip applies again.
	p, err = New(cfg)
	require.NoError(t, err)
	result, err = p.Run(context.Background(), ch, false)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
}

func TestPipelineRegenerateOnNewEpisode(t *testing.T) {
	cfg := pipelineConfig(t)
	p, err := New(cfg)
	require.NoError(t, err)

	ch := pipelineChannel()
	result, err := p.Run(context.Background(), ch, false)
	require.NoError(t, err)
	require.NoError(t, p.Commit(result.Digest))

	ch.Episodes = append(ch.Episodes, feed.Episode{
		GUID:    "ep-122",
		Title:   "Doom (#122)",
		PubDate: time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC),
	})

	p, err = New(cfg)
	require.NoError(t, err)
	result, err = p.Run(context.Background(), ch, false)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Len(t, result.Episodes, 3)
}

func TestPipelineWarningsAggregate(t *testing.T) {
	cfg := pipelineConfig(t)
	p, err := New(cfg)
	require.NoError(t, err)

	ch := pipelineChannel()
	ch.Episodes[1].Title = "Tetris med Helt Ukjent (#121)"

	result, err := p.Run(context.Background(), ch, false)
	require.NoError(t, err, "unknown guest is a warning, not a failure")
	require.NotEmpty(t, result.Warnings)
	require.Len(t, result.Episodes[1].Persons, 1)
	assert.Equal(t, "Helt Ukjent", result.Episodes[1].Persons[0].Name)
}

func TestPipelineContextCancellation(t *testing.T) {
	cfg := pipelineConfig(t)
	p, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Run(ctx, pipelineChannel(), false)
	assert.ErrorIs(t, err, context.Canceled)
}
