// Package cache decides whether a regeneration pass is needed by
// fingerprinting the upstream feed state. The digest covers exactly the
// per-episode fields that affect rendered output (GUID, publish date,
// link), so cosmetic upstream edits do not trigger spurious regeneration
// while new episodes and changed dates or links always do.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	stderrors "errors"

	"github.com/mrmamen/podenrich/pkg/errors"
	"github.com/mrmamen/podenrich/pkg/feed"
	"github.com/mrmamen/podenrich/pkg/logging"
)

// Entry is the persisted cache record: one digest per output target for one
// feed identity.
type Entry struct {
	FeedIdentity string            `json:"feed_identity"`
	Targets      map[string]string `json:"targets"` // output target -> digest
	GeneratedAt  time.Time         `json:"generated_at"`
}

// Detector gates the enrichment pipeline on feed changes. An unreadable or
// schema-mismatched cache file is treated as "no previous entry": it
// forces regeneration but is never fatal.
type Detector struct {
	path  string
	entry Entry
}

// NewDetector loads the cache entry at path for the given feed identity.
// Corruption and a missing file both start from an empty entry.
func NewDetector(path, feedIdentity string) *Detector {
	d := &Detector{
		path: path,
		entry: Entry{
			FeedIdentity: feedIdentity,
			Targets:      make(map[string]string),
		},
	}

	if path == "" {
		return d
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !stderrors.Is(err, fs.ErrNotExist) {
			logging.Warn().Str("path", path).Err(err).Msg("Unreadable cache entry, forcing regeneration")
		}
		return d
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Targets == nil {
		logging.Warn().Str("path", path).Err(err).Msg("Corrupt cache entry, forcing regeneration")
		return d
	}
	if entry.FeedIdentity != feedIdentity {
		logging.Warn().
			Str("cached", entry.FeedIdentity).
			Str("current", feedIdentity).
			Msg("Cache entry belongs to a different feed, forcing regeneration")
		return d
	}

	d.entry = entry
	return d
}

// Digest computes the fingerprint of the feed's change-relevant state:
// a SHA-256 over the ordered (guid, pubDate, link) triples.
func Digest(summaries []feed.EpisodeSummary) string {
	h := sha256.New()
	for _, s := range summaries {
		h.Write([]byte(s.GUID))
		h.Write([]byte{0})
		h.Write([]byte(s.PubDate.UTC().Format(time.RFC3339Nano)))
		h.Write([]byte{0})
		h.Write([]byte(s.Link))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ShouldRegenerate reports whether the pipeline must run for the given
// output target. force always wins; otherwise the current digest is
// compared against the previous run's baseline, and any absent or differing
// baseline means regenerate.
func (d *Detector) ShouldRegenerate(digest, target string, force bool) bool {
	if force {
		return true
	}
	previous, ok := d.entry.Targets[target]
	if !ok {
		return true
	}
	return previous != digest
}

// Commit records the digest as the next run's baseline for target and
// persists the entry atomically. It must be called only after the output
// has been written successfully, so a failed run leaves the previous
// baseline intact.
func (d *Detector) Commit(target, digest string) error {
	d.entry.Targets[target] = digest
	d.entry.GeneratedAt = time.Now().UTC()

	if d.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(d.entry, "", "  ")
	if err != nil {
		return errors.WrapParse("json", d.path, err)
	}

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapIO("create", dir, err)
	}

	tmpPath := d.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return errors.WrapIO("write", tmpPath, err)
	}
	if err := os.Rename(tmpPath, d.path); err != nil {
		os.Remove(tmpPath)
		return errors.WrapIO("rename", d.path, err)
	}

	short := digest
	if len(short) > 12 {
		short = short[:12]
	}
	logging.Debug().
		Str("target", target).
		Str("digest", short).
		Msg("Committed cache baseline")
	return nil
}
