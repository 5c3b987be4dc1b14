package people

import (
	"github.com/mrmamen/podenrich/pkg/errors"
	"github.com/mrmamen/podenrich/pkg/feed"
	"github.com/mrmamen/podenrich/pkg/logging"
	"github.com/mrmamen/podenrich/pkg/registry"
)

// PersonTag is one podcast:person tag worth of data, at channel or episode
// scope. Img and Href stay empty when no profile reference is known.
type PersonTag struct {
	Name string
	Role string
	Img  string
	Href string
}

// Resolution is the person-tag output for a whole feed.
type Resolution struct {
	// Channel persons: permanent staff attached identically to every
	// episode, in registry insertion order.
	Channel []PersonTag

	// ByGUID holds per-episode person tags, ordered by first appearance in
	// the extracted candidate sequence, followed by manual extra-episode
	// contributions in collation order.
	ByGUID map[string][]PersonTag

	Warnings []errors.Warning
}

// Resolver composes the registry with title extraction to produce the final
// person-tag set. Staff/guest classification is already-decided input here;
// the batch classifier in classify.go is a separate, periodic path.
type Resolver struct {
	reg *registry.Registry
}

// NewResolver creates a resolver over a loaded registry.
func NewResolver(reg *registry.Registry) *Resolver {
	return &Resolver{reg: reg}
}

// Resolve maps every episode to its person tags. Resolving the same episode
// list twice against an unchanged registry produces identical output: the
// only orderings used are the declared ones (registry insertion order for
// channel persons, extraction order then collation order per episode).
func (r *Resolver) Resolve(episodes []feed.Episode) Resolution {
	res := Resolution{
		ByGUID: make(map[string][]PersonTag, len(episodes)),
	}

	for _, p := range r.reg.Staff() {
		res.Channel = append(res.Channel, PersonTag{
			Name: p.Name,
			Role: p.Role,
			Img:  p.Img,
			Href: p.Href,
		})
	}

	contributions := r.contributionsByGUID()

	for i := range episodes {
		ep := &episodes[i]
		tags, warnings := r.resolveEpisode(ep)

		for _, name := range contributions[ep.GUID] {
			if containsName(tags, name) {
				continue
			}
			tag, warning := r.guestTag(name, ep.Title)
			tags = append(tags, tag)
			if warning != nil {
				warnings = append(warnings, *warning)
			}
		}

		if len(tags) > 0 {
			res.ByGUID[ep.GUID] = tags
		}
		res.Warnings = append(res.Warnings, warnings...)
	}

	logging.Debug().
		Int("channel_persons", len(res.Channel)).
		Int("episodes_with_guests", len(res.ByGUID)).
		Int("warnings", len(res.Warnings)).
		Msg("Resolved person tags")

	return res
}

// resolveEpisode extracts, canonicalizes, and profiles the guests named in
// one episode title. Duplicate canonical names keep their first position.
func (r *Resolver) resolveEpisode(ep *feed.Episode) ([]PersonTag, []errors.Warning) {
	candidates := ExtractGuests(ep.Title)
	if len(candidates) == 0 {
		return nil, nil
	}

	var tags []PersonTag
	var warnings []errors.Warning
	seen := make(map[string]bool, len(candidates))

	for _, candidate := range candidates {
		canonical := r.reg.Canonical(candidate)
		if seen[canonical] {
			continue
		}
		seen[canonical] = true

		tag, warning := r.guestTag(canonical, ep.Title)
		tags = append(tags, tag)
		if warning != nil {
			warnings = append(warnings, *warning)
		}
	}

	return tags, warnings
}

// guestTag builds a guest person tag, attaching profile data when the
// canonical name is known. An unknown name still yields a name-only tag
// plus a missing-reference warning; the person is never dropped.
func (r *Resolver) guestTag(canonical, title string) (PersonTag, *errors.Warning) {
	tag := PersonTag{Name: canonical, Role: registry.RoleGuest}

	profile, ok := r.reg.Guest(canonical)
	if !ok {
		return tag, &errors.Warning{
			Kind:    errors.WarnMissingReference,
			Subject: canonical,
			Detail:  "no profile reference in known-guests (title: " + title + ")",
		}
	}

	tag.Img = profile.Img
	tag.Href = profile.Href
	if tag.Img == "" && tag.Href == "" {
		return tag, &errors.Warning{
			Kind:    errors.WarnMissingReference,
			Subject: canonical,
			Detail:  "known guest without image or profile URL",
		}
	}
	return tag, nil
}

// contributionsByGUID inverts the extra-episodes records into a GUID index.
// Names per GUID come out in collation order so output stays deterministic.
func (r *Resolver) contributionsByGUID() map[string][]string {
	byGUID := make(map[string][]string)
	for _, name := range r.reg.GuestNames() {
		profile, _ := r.reg.Guest(name)
		for _, extra := range profile.ExtraEpisodes {
			byGUID[extra.GUID] = append(byGUID[extra.GUID], name)
		}
	}
	return byGUID
}

func containsName(tags []PersonTag, name string) bool {
	for _, t := range tags {
		if t.Name == name {
			return true
		}
	}
	return false
}
