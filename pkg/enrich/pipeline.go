package enrich

import (
	"context"

	"github.com/mrmamen/podenrich/pkg/cache"
	"github.com/mrmamen/podenrich/pkg/chapters"
	"github.com/mrmamen/podenrich/pkg/errors"
	"github.com/mrmamen/podenrich/pkg/feed"
	"github.com/mrmamen/podenrich/pkg/logging"
	"github.com/mrmamen/podenrich/pkg/people"
	"github.com/mrmamen/podenrich/pkg/registry"
)

// ChannelTags is the channel-scope output of one pipeline run.
type ChannelTags struct {
	Title           string // with suffix applied
	GUID            string
	Medium          string
	Persons         []people.PersonTag
	Funding         *FundingConfig
	Social          []SocialConfig
	Podroll         []PodrollEntry
	UpdateFrequency *UpdateFrequencyConfig
}

// SeasonTag pairs a season number with its display name.
type SeasonTag struct {
	Number int
	Name   string
}

// EpisodeTags is the per-episode output of one pipeline run.
type EpisodeTags struct {
	GUID         string
	Persons      []people.PersonTag
	Season       *SeasonTag
	Number       int
	EnclosureURL string // rewritten when OP3 is enabled
	ChaptersURL  string
	Chapters     *chapters.Set
}

// Result is everything the serialization layer needs, plus the digest the
// caller commits once the output has been written.
type Result struct {
	Channel  ChannelTags
	Episodes []EpisodeTags
	Digest   string
	Warnings []errors.Warning

	// Skipped is true when change detection decided no regeneration was
	// needed; Channel and Episodes are empty in that case.
	Skipped bool
}

// Pipeline is the enrichment root: it gates on the change detector, then
// runs person resolution and chapter enrichment and assembles output tags.
// It performs no network I/O; fetching is the caller's job.
type Pipeline struct {
	cfg      *Config
	reg      *registry.Registry
	resolver *people.Resolver
	enricher *chapters.Enricher
	detector *cache.Detector
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRegistry injects a pre-loaded registry, bypassing the configured
// registry paths. Used by tests and by callers that batch several runs.
func WithRegistry(reg *registry.Registry) Option {
	return func(p *Pipeline) { p.reg = reg }
}

// WithImageRules overrides the chapter image injection rule table.
func WithImageRules(rules []chapters.ImageRule) Option {
	return func(p *Pipeline) {
		p.enricher = chapters.NewEnricher(p.cfg.Chapters.Dir, rules)
	}
}

// New creates a pipeline from a validated configuration. The registry is
// loaded here so integrity violations fail fast, before any feed work.
func New(cfg *Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		cfg:      cfg,
		enricher: chapters.NewEnricher(cfg.Chapters.Dir, nil),
		detector: cache.NewDetector(cfg.Cache.Path, cfg.Feed.Identity),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.reg == nil {
		reg, err := registry.Load(cfg.Registry.Staff, cfg.Registry.Guests)
		if err != nil {
			return nil, err
		}
		p.reg = reg
	}
	p.resolver = people.NewResolver(p.reg)

	return p, nil
}

// Run executes one enrichment pass over a fetched channel. When force is
// false and the feed fingerprint matches the previous baseline for the
// configured output target, the run is skipped. Per-episode problems
// aggregate into Result.Warnings; only fatal conditions return an error.
func (p *Pipeline) Run(ctx context.Context, ch *feed.Channel, force bool) (*Result, error) {
	// Step 1: fingerprint the feed and gate on the change detector. Every
	// configured output target must be current for the run to be skipped,
	// so a newly added target regenerates even when the feed is unchanged.
	digest := cache.Digest(ch.Summary())
	stale := false
	for _, target := range p.targets() {
		if p.detector.ShouldRegenerate(digest, target, force) {
			stale = true
			break
		}
	}
	if !stale {
		logging.Info().Str("feed", p.cfg.Feed.Identity).Msg("Feed unchanged, skipping regeneration")
		return &Result{Digest: digest, Skipped: true}, nil
	}

	// Step 2: resolve person tags for the whole feed.
	resolution := p.resolver.Resolve(ch.Episodes)

	result := &Result{
		Digest:   digest,
		Warnings: resolution.Warnings,
		Channel: ChannelTags{
			Title:           applyTitleSuffix(ch.Title, p.cfg.TitleSuffix),
			GUID:            p.cfg.GUID,
			Medium:          p.cfg.Medium,
			Persons:         resolution.Channel,
			Funding:         p.cfg.Funding,
			Social:          p.cfg.Social,
			Podroll:         p.cfg.Podroll,
			UpdateFrequency: p.cfg.UpdateFrequency,
		},
	}

	// Step 3: per-episode chapter enrichment and tag assembly.
	for i := range ch.Episodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ep := &ch.Episodes[i]

		previous, next := chapters.Neighbors(ch.Episodes, i)
		set, warnings := p.enricher.Enrich(chapters.Context{
			Episode:  ep,
			Channel:  ch,
			Previous: previous,
			Next:     next,
		})
		result.Warnings = append(result.Warnings, warnings...)

		tags := EpisodeTags{
			GUID:         ep.GUID,
			Persons:      resolution.ByGUID[ep.GUID],
			Number:       ep.Number,
			EnclosureURL: ep.Enclosure.URL,
			ChaptersURL:  ep.ChaptersURL,
			Chapters:     set,
		}
		if ep.Season > 0 {
			tags.Season = &SeasonTag{
				Number: ep.Season,
				Name:   SeasonName(ep.Season, p.cfg.Season.FirstYear),
			}
		}
		if p.cfg.OP3.Enabled {
			tags.EnclosureURL = RewriteEnclosureURL(ep.Enclosure.URL, p.cfg.OP3.Prefix)
		}

		result.Episodes = append(result.Episodes, tags)
	}

	logging.Info().
		Str("feed", p.cfg.Feed.Identity).
		Int("episodes", len(result.Episodes)).
		Int("warnings", len(result.Warnings)).
		Msg("Enrichment pass complete")

	return result, nil
}

// Commit persists the run's digest as the next baseline for every
// configured output target. Call it only after the output files have been
// written, so a failed write never advances the baseline.
func (p *Pipeline) Commit(digest string) error {
	for _, target := range p.targets() {
		if err := p.detector.Commit(target, digest); err != nil {
			return err
		}
	}
	return nil
}

// targets returns the configured output files, primary first.
func (p *Pipeline) targets() []string {
	targets := []string{p.cfg.Feed.Output}
	if p.cfg.Feed.YouTubeOutput != "" {
		targets = append(targets, p.cfg.Feed.YouTubeOutput)
	}
	return targets
}

// Registry exposes the loaded registry for commands that combine the
// pipeline with registry operations.
func (p *Pipeline) Registry() *registry.Registry {
	return p.reg
}
