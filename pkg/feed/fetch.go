package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mmcdole/gofeed"

	"github.com/mrmamen/podenrich/pkg/errors"
	"github.com/mrmamen/podenrich/pkg/logging"
)

// Fetcher retrieves and parses upstream RSS feeds.
type Fetcher struct {
	parser *gofeed.Parser
}

// NewFetcher creates a feed fetcher.
func NewFetcher() *Fetcher {
	return &Fetcher{parser: gofeed.NewParser()}
}

// Fetch downloads and parses the feed at url.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Channel, error) {
	parsed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, errors.WrapParse("rss", url, err)
	}
	return adapt(parsed), nil
}

// FetchFile parses a previously downloaded feed from disk. Used by the
// --local-cache development path so steady-state testing needs no network.
func (f *Fetcher) FetchFile(path string) (*Channel, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	defer file.Close()
	return f.Parse(file, path)
}

// Download saves the raw feed document at url to path, unparsed and
// byte-for-byte. The saved file is the input for FetchFile on later runs.
// Parent directories are created; the write is atomic.
func (f *Fetcher) Download(ctx context.Context, url, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errors.WrapIO("request", url, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, errors.WrapIO("download", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, errors.WrapIO("download", url, fmt.Errorf("unexpected status %s", resp.Status))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, errors.WrapIO("create", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".feed-*.xml")
	if err != nil {
		return 0, errors.WrapIO("create", path, err)
	}
	tmpName := tmp.Name()
	size, err := io.Copy(tmp, resp.Body)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return 0, errors.WrapIO("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return 0, errors.WrapIO("close", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return 0, errors.WrapIO("rename", path, err)
	}

	logging.Debug().Str("url", url).Str("path", path).Int64("bytes", size).Msg("Downloaded feed")
	return size, nil
}

// Parse parses feed XML from r. name is used in error messages only.
func (f *Fetcher) Parse(r io.Reader, name string) (*Channel, error) {
	parsed, err := f.parser.Parse(r)
	if err != nil {
		return nil, errors.WrapParse("rss", name, err)
	}
	return adapt(parsed), nil
}

// adapt maps a parsed gofeed document onto the engine's data model.
func adapt(src *gofeed.Feed) *Channel {
	ch := &Channel{
		Title:       src.Title,
		Link:        src.Link,
		Description: src.Description,
	}
	if src.Image != nil {
		ch.ImageURL = src.Image.URL
	}
	if ch.ImageURL == "" && src.ITunesExt != nil {
		ch.ImageURL = src.ITunesExt.Image
	}

	ch.Episodes = make([]Episode, 0, len(src.Items))
	for _, item := range src.Items {
		ch.Episodes = append(ch.Episodes, adaptItem(item))
	}

	logging.Debug().
		Str("feed", src.Title).
		Int("episodes", len(ch.Episodes)).
		Msg("Adapted upstream feed")

	return ch
}

func adaptItem(item *gofeed.Item) Episode {
	ep := Episode{
		GUID:        item.GUID,
		Title:       item.Title,
		Link:        item.Link,
		Description: item.Description,
	}
	if ep.GUID == "" {
		ep.GUID = item.Link
	}
	if item.PublishedParsed != nil {
		ep.PubDate = *item.PublishedParsed
	}

	if item.ITunesExt != nil {
		ep.ImageURL = item.ITunesExt.Image
		ep.Season = atoiOrZero(item.ITunesExt.Season)
		ep.Number = atoiOrZero(item.ITunesExt.Episode)
	}

	if len(item.Enclosures) > 0 {
		enc := item.Enclosures[0]
		ep.Enclosure = Enclosure{
			URL:    enc.URL,
			Type:   enc.Type,
			Length: atoi64OrZero(enc.Length),
		}
	}

	// podcast:chapters JSON reference, when the feed carries one.
	if podcast, ok := item.Extensions["podcast"]; ok {
		if chaps, ok := podcast["chapters"]; ok && len(chaps) > 0 {
			ep.ChaptersURL = chaps[0].Attrs["url"]
		}
	}

	return ep
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func atoi64OrZero(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
