// Package feedmerge splits one upstream feed into several output feeds by
// title-pattern routing, merging each bucket's items with the channel
// metadata of a companion feed. Items and channel metadata are copied at
// the XML element level, so namespace-prefixed tags (itunes:, podcast:)
// survive untouched.
package feedmerge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/beevik/etree"

	"github.com/mrmamen/podenrich/internal/feedxml"
	"github.com/mrmamen/podenrich/pkg/errors"
	"github.com/mrmamen/podenrich/pkg/logging"
)

const fetchTimeout = 30 * time.Second

// Category routes source items to one output feed. Pattern is a
// case-insensitive regular expression matched against item titles. An
// empty pattern marks the rest bucket: it collects every item no earlier
// category claimed, and it must come last.
type Category struct {
	Pattern     string
	MetadataURL string
	Output      string
}

type category struct {
	Category
	re *regexp.Regexp // nil for the rest bucket
}

// Splitter fetches a source feed, routes its items per category, and
// writes one merged feed per category.
type Splitter struct {
	categories []category
	httpClient *http.Client
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithHTTPClient overrides the HTTP client. Used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Splitter) { s.httpClient = hc }
}

// New creates a splitter over an ordered category table. Routing is first
// match wins in table order.
func New(categories []Category, opts ...Option) (*Splitter, error) {
	if len(categories) == 0 {
		return nil, &errors.ValidationError{Field: "split.categories", Message: "at least one category is required"}
	}

	s := &Splitter{httpClient: &http.Client{Timeout: fetchTimeout}}
	for i, c := range categories {
		if c.MetadataURL == "" || c.Output == "" {
			return nil, &errors.ValidationError{
				Field:   "split.categories",
				Message: "every category requires metadata and output",
			}
		}
		cat := category{Category: c}
		switch {
		case c.Pattern != "":
			re, err := regexp.Compile("(?i)" + c.Pattern)
			if err != nil {
				return nil, &errors.ValidationError{
					Field:   "split.categories.pattern",
					Value:   c.Pattern,
					Message: "invalid pattern",
				}
			}
			cat.re = re
		case i != len(categories)-1:
			return nil, &errors.ValidationError{
				Field:   "split.categories",
				Message: "only the last category may omit a pattern",
			}
		}
		s.categories = append(s.categories, cat)
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Report summarizes one split run.
type Report struct {
	Items   int            // items found in the source feed
	Written []string       // output files written, in category order
	Counts  map[string]int // output file -> item count
	Skipped int            // items no category claimed
}

// Split fetches the source feed, routes every item, and writes one merged
// output feed per non-empty category. Categories that match no items are
// skipped with a warning rather than producing an empty feed.
func (s *Splitter) Split(ctx context.Context, sourceURL string) (*Report, error) {
	source, err := s.fetch(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	channel, err := channelElement(source, sourceURL)
	if err != nil {
		return nil, err
	}
	items := channel.SelectElements("item")
	logging.Info().Str("url", sourceURL).Int("items", len(items)).Msg("Fetched source feed")

	buckets := make([][]*etree.Element, len(s.categories))
	skipped := 0
	for _, item := range items {
		idx := s.route(itemTitle(item))
		if idx < 0 {
			skipped++
			continue
		}
		buckets[idx] = append(buckets[idx], item)
	}

	report := &Report{
		Items:   len(items),
		Counts:  make(map[string]int, len(s.categories)),
		Skipped: skipped,
	}
	for i, cat := range s.categories {
		if len(buckets[i]) == 0 {
			logging.Warn().Str("output", cat.Output).Str("pattern", cat.Pattern).Msg("No items for category, skipping")
			continue
		}

		metadata, err := s.fetch(ctx, cat.MetadataURL)
		if err != nil {
			return nil, err
		}
		merged, err := Merge(metadata, cat.MetadataURL, buckets[i])
		if err != nil {
			return nil, err
		}
		if err := feedxml.WriteFile(merged, cat.Output); err != nil {
			return nil, err
		}

		report.Written = append(report.Written, cat.Output)
		report.Counts[cat.Output] = len(buckets[i])
		logging.Info().
			Str("output", cat.Output).
			Str("metadata", cat.MetadataURL).
			Int("items", len(buckets[i])).
			Msg("Wrote merged feed")
	}
	return report, nil
}

// Merge builds a feed document from one feed's channel metadata and another
// feed's items. The rss element attributes, namespace declarations
// included, come from the metadata feed; its own items are dropped. Every
// element is deep-copied, so the inputs stay usable.
func Merge(metadata *etree.Document, metadataURL string, items []*etree.Element) (*etree.Document, error) {
	srcChannel, err := channelElement(metadata, metadataURL)
	if err != nil {
		return nil, err
	}
	srcRoot := metadata.Root()

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(srcRoot.FullTag())
	for _, attr := range srcRoot.Attr {
		root.CreateAttr(attr.FullKey(), attr.Value)
	}

	channel := root.CreateElement("channel")
	for _, child := range srcChannel.ChildElements() {
		if child.Tag == "item" {
			continue
		}
		channel.AddChild(child.Copy())
	}
	for _, item := range items {
		channel.AddChild(item.Copy())
	}
	return doc, nil
}

// route returns the index of the first matching category, the rest bucket
// when nothing matches, or -1 when there is no rest bucket either.
func (s *Splitter) route(title string) int {
	rest := -1
	for i, cat := range s.categories {
		if cat.re == nil {
			rest = i
			continue
		}
		if cat.re.MatchString(title) {
			return i
		}
	}
	return rest
}

func (s *Splitter) fetch(ctx context.Context, url string) (*etree.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapIO("request", url, err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.WrapIO("fetch", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.WrapIO("fetch", url, fmt.Errorf("unexpected status %s", resp.Status))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapIO("read", url, err)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, errors.WrapParse("rss", url, err)
	}
	return doc, nil
}

func channelElement(doc *etree.Document, name string) (*etree.Element, error) {
	root := doc.Root()
	if root == nil {
		return nil, &errors.ParseError{Format: "rss", File: name, Message: "empty document"}
	}
	channel := root.SelectElement("channel")
	if channel == nil {
		return nil, &errors.ParseError{Format: "rss", File: name, Message: "no channel element"}
	}
	return channel, nil
}

func itemTitle(item *etree.Element) string {
	title := item.SelectElement("title")
	if title == nil {
		return ""
	}
	return title.Text()
}
