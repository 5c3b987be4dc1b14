// Package feedxml builds the enriched RSS document. It is the serialization
// boundary: the pipeline produces tag values, this package renders them as
// Podcasting 2.0 XML.
package feedxml

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/mrmamen/podenrich/pkg/enrich"
	"github.com/mrmamen/podenrich/pkg/errors"
	"github.com/mrmamen/podenrich/pkg/feed"
)

// Namespace URIs for the prefixed elements the enriched feed carries.
const (
	nsPodcast = "https://podcastindex.org/namespace/1.0"
	nsITunes  = "http://www.itunes.com/dtds/podcast-1.0.dtd"
	nsPSC     = "http://podlove.org/simple-chapters"
)

// Build renders a fetched channel plus one enrichment result as a complete
// RSS document. Episodes and result entries are matched by GUID, so a
// partial result simply leaves the unmatched episodes unenriched.
func Build(ch *feed.Channel, result *enrich.Result) *etree.Document {
	return build(ch, result, false)
}

// BuildYouTube renders the YouTube distribution variant. YouTube ignores
// chapter tags but reads timestamp lines in descriptions, and it displays
// titles without the surrounding feed context, so episode numbers go back
// into the title text. Chapter tags are omitted entirely.
func BuildYouTube(ch *feed.Channel, result *enrich.Result) *etree.Document {
	return build(ch, result, true)
}

func build(ch *feed.Channel, result *enrich.Result, youtube bool) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	rss := doc.CreateElement("rss")
	rss.CreateAttr("version", "2.0")
	rss.CreateAttr("xmlns:podcast", nsPodcast)
	rss.CreateAttr("xmlns:itunes", nsITunes)
	rss.CreateAttr("xmlns:psc", nsPSC)

	channel := rss.CreateElement("channel")
	addText(channel, "title", result.Channel.Title)
	addText(channel, "link", ch.Link)
	addText(channel, "description", ch.Description)
	if ch.ImageURL != "" {
		channel.CreateElement("itunes:image").CreateAttr("href", ch.ImageURL)
	}

	if result.Channel.GUID != "" {
		addText(channel, "podcast:guid", result.Channel.GUID)
	}
	if result.Channel.Medium != "" {
		addText(channel, "podcast:medium", result.Channel.Medium)
	}
	for _, p := range result.Channel.Persons {
		addPerson(channel, p.Name, p.Role, p.Img, p.Href)
	}
	if f := result.Channel.Funding; f != nil {
		elem := channel.CreateElement("podcast:funding")
		elem.CreateAttr("url", f.URL)
		elem.SetText(f.Message)
	}
	for _, s := range result.Channel.Social {
		elem := channel.CreateElement("podcast:socialInteract")
		elem.CreateAttr("protocol", s.Protocol)
		elem.CreateAttr("uri", s.URI)
		if s.AccountID != "" {
			elem.CreateAttr("accountId", s.AccountID)
		}
	}
	if len(result.Channel.Podroll) > 0 {
		podroll := channel.CreateElement("podcast:podroll")
		for _, entry := range result.Channel.Podroll {
			remote := podroll.CreateElement("podcast:remoteItem")
			remote.CreateAttr("feedGuid", entry.FeedGUID)
			remote.CreateAttr("feedUrl", entry.FeedURL)
			if entry.FeedTitle != "" {
				remote.CreateAttr("feedTitle", entry.FeedTitle)
			}
		}
	}
	if uf := result.Channel.UpdateFrequency; uf != nil {
		addUpdateFrequency(channel, uf)
	}

	byGUID := make(map[string]*enrich.EpisodeTags, len(result.Episodes))
	for i := range result.Episodes {
		byGUID[result.Episodes[i].GUID] = &result.Episodes[i]
	}

	for i := range ch.Episodes {
		addItem(channel, &ch.Episodes[i], byGUID[ch.Episodes[i].GUID], youtube)
	}

	return doc
}

// WriteFile serializes the document atomically: the rename only happens
// after the full document has been written.
func WriteFile(doc *etree.Document, path string) error {
	doc.Indent(2)
	data, err := doc.WriteToBytes()
	if err != nil {
		return errors.WrapIO("serialize", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".feed-*.xml")
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.WrapIO("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.WrapIO("close", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return errors.WrapIO("rename", path, err)
	}
	return nil
}

func addItem(channel *etree.Element, ep *feed.Episode, tags *enrich.EpisodeTags, youtube bool) {
	title := ep.Title
	description := ep.Description
	if youtube && tags != nil {
		title = restoreEpisodeNumber(title, tags.Number)
		if tags.Chapters != nil {
			description = appendTimestamps(description, tags.Chapters.Visible())
		}
	}

	item := channel.CreateElement("item")
	addText(item, "title", title)
	guid := item.CreateElement("guid")
	guid.CreateAttr("isPermaLink", "false")
	guid.SetText(ep.GUID)
	if ep.Link != "" {
		addText(item, "link", ep.Link)
	}
	if description != "" {
		addText(item, "description", description)
	}
	if !ep.PubDate.IsZero() {
		addText(item, "pubDate", ep.PubDate.Format(time.RFC1123Z))
	}
	if ep.ImageURL != "" {
		item.CreateElement("itunes:image").CreateAttr("href", ep.ImageURL)
	}

	enclosureURL := ep.Enclosure.URL
	if tags != nil && tags.EnclosureURL != "" {
		enclosureURL = tags.EnclosureURL
	}
	if enclosureURL != "" {
		enclosure := item.CreateElement("enclosure")
		enclosure.CreateAttr("url", enclosureURL)
		if ep.Enclosure.Type != "" {
			enclosure.CreateAttr("type", ep.Enclosure.Type)
		}
		if ep.Enclosure.Length > 0 {
			enclosure.CreateAttr("length", fmt.Sprintf("%d", ep.Enclosure.Length))
		}
	}

	if tags == nil {
		return
	}

	if tags.Season != nil {
		season := item.CreateElement("podcast:season")
		season.CreateAttr("name", tags.Season.Name)
		season.SetText(fmt.Sprintf("%d", tags.Season.Number))
	}
	if tags.Number > 0 {
		addText(item, "podcast:episode", fmt.Sprintf("%d", tags.Number))
	}
	for _, p := range tags.Persons {
		addPerson(item, p.Name, p.Role, p.Img, p.Href)
	}
	if youtube {
		// Chapters already live in the description as timestamp lines.
		return
	}
	if tags.ChaptersURL != "" {
		chaptersRef := item.CreateElement("podcast:chapters")
		chaptersRef.CreateAttr("url", tags.ChaptersURL)
		chaptersRef.CreateAttr("type", "application/json+chapters")
	}
	if tags.Chapters != nil && tags.Chapters.Len() > 0 {
		addPSCChapters(item, tags.Chapters.Visible())
	}
}

// restoreEpisodeNumber appends the "(#N)" marker YouTube viewers expect in
// the title text. Titles that already carry the marker, and episodes with
// no number (bonus episodes), stay unchanged.
func restoreEpisodeNumber(title string, number int) string {
	if number <= 0 {
		return title
	}
	marker := fmt.Sprintf("(#%d)", number)
	if strings.Contains(title, marker) {
		return title
	}
	return title + " " + marker
}

// appendTimestamps renders visible chapters as YouTube timestamp lines
// ("0:00 Intro") below the description text.
func appendTimestamps(description string, chapters []feed.Chapter) string {
	if len(chapters) == 0 {
		return description
	}
	var b strings.Builder
	if description != "" {
		b.WriteString(description)
		b.WriteString("\n\n")
	}
	for i, c := range chapters {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(formatTimestamp(c.StartTime))
		b.WriteByte(' ')
		b.WriteString(c.Title)
	}
	return b.String()
}

// formatTimestamp renders a chapter offset the way YouTube parses it:
// M:SS, or H:MM:SS past the first hour. Sub-second precision is dropped.
func formatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// addPSCChapters renders the visible chapter projection as Podlove Simple
// Chapters. Hidden working markers stay in the JSON source only.
func addPSCChapters(item *etree.Element, chapters []feed.Chapter) {
	if len(chapters) == 0 {
		return
	}
	root := item.CreateElement("psc:chapters")
	root.CreateAttr("version", "1.2")
	for _, c := range chapters {
		elem := root.CreateElement("psc:chapter")
		elem.CreateAttr("start", formatStart(c.StartTime))
		elem.CreateAttr("title", c.Title)
		if c.URL != "" {
			elem.CreateAttr("href", c.URL)
		}
		if c.ImageURL != "" {
			elem.CreateAttr("image", c.ImageURL)
		}
	}
}

func addPerson(parent *etree.Element, name, role, img, href string) {
	elem := parent.CreateElement("podcast:person")
	elem.CreateAttr("role", role)
	if img != "" {
		elem.CreateAttr("img", img)
	}
	if href != "" {
		elem.CreateAttr("href", href)
	}
	elem.SetText(name)
}

func addUpdateFrequency(channel *etree.Element, uf *enrich.UpdateFrequencyConfig) {
	elem := channel.CreateElement("podcast:updateFrequency")
	if uf.Complete {
		elem.CreateAttr("complete", "true")
		elem.SetText("complete")
		return
	}
	elem.SetText(fmt.Sprintf("%d", uf.Frequency))
	if uf.DTStart != "" {
		elem.CreateAttr("dtstart", uf.DTStart)
	}
	if uf.RRule != "" {
		elem.CreateAttr("rrule", uf.RRule)
	}
}

// formatStart renders a chapter start offset as HH:MM:SS.mmm, the normal
// time form in Podlove Simple Chapters.
func formatStart(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int64(seconds*1000 + 0.5)
	h := millis / 3600000
	m := (millis % 3600000) / 60000
	s := (millis % 60000) / 1000
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

func addText(parent *etree.Element, tag, text string) {
	parent.CreateElement(tag).SetText(text)
}
