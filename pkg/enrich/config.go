// Package enrich orchestrates the enrichment pipeline: change-detection
// gating, person resolution, chapter enrichment, and output tag assembly.
// Serialization of the assembled tags is left to the feed I/O layer.
package enrich

import (
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/mrmamen/podenrich/pkg/errors"
)

// Config is the typed enrichment configuration, loaded from YAML and
// validated up front. Funding, social, podroll, and update-frequency blocks
// are opaque pass-through data for the serializer; validation only checks
// the recognized keys, never interprets them.
type Config struct {
	Feed struct {
		URL      string `yaml:"url"`
		Identity string `yaml:"identity"`
		Output   string `yaml:"output"`

		// YouTubeOutput enables the YouTube distribution variant: episode
		// numbers restored into titles and chapter timestamps rendered
		// into descriptions, with chapter tags omitted.
		YouTubeOutput string `yaml:"youtube_output"`
	} `yaml:"feed"`

	TitleSuffix string `yaml:"title_suffix"`
	GUID        string `yaml:"guid"`
	Medium      string `yaml:"medium"`

	Funding         *FundingConfig         `yaml:"funding"`
	Social          []SocialConfig         `yaml:"social"`
	Podroll         []PodrollEntry         `yaml:"podroll"`
	UpdateFrequency *UpdateFrequencyConfig `yaml:"update_frequency"`

	OP3 struct {
		Enabled bool   `yaml:"enabled"`
		Prefix  string `yaml:"prefix"`
	} `yaml:"op3"`

	Season struct {
		FirstYear int `yaml:"first_year"`
	} `yaml:"season"`

	Registry struct {
		Staff  string `yaml:"staff"`
		Guests string `yaml:"guests"`
	} `yaml:"registry"`

	Chapters struct {
		Dir string `yaml:"dir"`
	} `yaml:"chapters"`

	Cache struct {
		Path string `yaml:"path"`
	} `yaml:"cache"`

	// Split routes a source feed's items into several output feeds by
	// title patterns; each bucket is merged with the channel metadata of
	// a companion feed. Optional: used by the split command only.
	Split struct {
		Source     string          `yaml:"source"`
		Categories []SplitCategory `yaml:"categories"`
	} `yaml:"split"`
}

// SplitCategory is one routing rule of the split block. A category with no
// pattern is the rest bucket and must come last.
type SplitCategory struct {
	Pattern  string `yaml:"pattern"`
	Metadata string `yaml:"metadata"`
	Output   string `yaml:"output"`
}

// FundingConfig is the podcast:funding block.
type FundingConfig struct {
	URL     string `yaml:"url"`
	Message string `yaml:"message"`
}

// SocialConfig is one podcast:socialInteract block.
type SocialConfig struct {
	Protocol  string `yaml:"protocol"`
	URI       string `yaml:"uri"`
	AccountID string `yaml:"account_id"`
}

// PodrollEntry is one recommended feed in the podcast:podroll block.
type PodrollEntry struct {
	FeedURL   string `yaml:"feed_url"`
	FeedGUID  string `yaml:"feed_guid"`
	FeedTitle string `yaml:"feed_title"`
}

// UpdateFrequencyConfig is the podcast:updateFrequency block.
type UpdateFrequencyConfig struct {
	Complete  bool   `yaml:"complete"`
	Frequency int    `yaml:"frequency"`
	DTStart   string `yaml:"dtstart"`
	RRule     string `yaml:"rrule"`
}

// socialProtocols enumerates the recognized socialInteract protocols.
var socialProtocols = map[string]bool{
	"activitypub": true,
	"twitter":     true,
	"bluesky":     true,
	"disabled":    true,
}

// LoadConfig reads and validates an enrichment configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration invariants at load time rather than at
// first use.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Feed.URL) == "" {
		return &errors.ValidationError{Field: "feed.url", Message: "feed URL is required"}
	}
	if strings.TrimSpace(c.Feed.Output) == "" {
		return &errors.ValidationError{Field: "feed.output", Message: "output target is required"}
	}
	if c.Feed.Identity == "" {
		c.Feed.Identity = c.Feed.URL
	}

	if c.Funding != nil && strings.TrimSpace(c.Funding.URL) == "" {
		return &errors.ValidationError{Field: "funding.url", Message: "funding block requires a URL"}
	}

	for _, s := range c.Social {
		if !socialProtocols[s.Protocol] {
			return &errors.ValidationError{
				Field:   "social.protocol",
				Value:   s.Protocol,
				Message: "unrecognized protocol",
			}
		}
		if strings.TrimSpace(s.URI) == "" {
			return &errors.ValidationError{Field: "social.uri", Message: "social block requires a URI"}
		}
	}

	for _, p := range c.Podroll {
		if strings.TrimSpace(p.FeedURL) == "" || strings.TrimSpace(p.FeedGUID) == "" {
			return &errors.ValidationError{
				Field:   "podroll",
				Message: "podroll entries require feed_url and feed_guid",
			}
		}
	}

	if len(c.Split.Categories) > 0 && strings.TrimSpace(c.Split.Source) == "" {
		return &errors.ValidationError{Field: "split.source", Message: "split block requires a source feed URL"}
	}
	for i, cat := range c.Split.Categories {
		if strings.TrimSpace(cat.Metadata) == "" || strings.TrimSpace(cat.Output) == "" {
			return &errors.ValidationError{
				Field:   "split.categories",
				Message: "split categories require metadata and output",
			}
		}
		if cat.Pattern == "" && i != len(c.Split.Categories)-1 {
			return &errors.ValidationError{
				Field:   "split.categories",
				Message: "only the last split category may omit a pattern",
			}
		}
	}

	if uf := c.UpdateFrequency; uf != nil && !uf.Complete && uf.Frequency <= 0 {
		return &errors.ValidationError{
			Field:   "update_frequency",
			Message: "requires complete: true or a positive frequency",
		}
	}

	if c.OP3.Enabled && c.OP3.Prefix == "" {
		c.OP3.Prefix = DefaultOP3Prefix
	}
	if c.Season.FirstYear == 0 {
		c.Season.FirstYear = defaultSeasonFirstYear
	}

	return nil
}
