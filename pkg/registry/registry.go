// Package registry provides the persisted person knowledge base: permanent
// staff, known guests, and name aliases. The registry is an explicit store
// object with a load-at-start / save-at-end lifecycle and a single writer
// per run; there is no implicit global singleton.
//
// Two independent tables back it:
//
//   - permanent staff: small, hand-edited, authoritative. Never written by
//     this package, only read.
//   - known guests + aliases: auto-populatable by the populate command,
//     authoritative for profile images and URLs once filled in.
//
// A canonical name present in permanent staff must never also appear in the
// known-guests table; loading such a registry fails with an IntegrityError
// rather than silently picking one table.
package registry

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mrmamen/podenrich/pkg/errors"
)

// Role values used by person tags.
const (
	RoleHost  = "host"
	RoleGuest = "guest"
)

// Person is a permanent staff member attached to every episode at channel
// level, independent of per-episode title extraction.
type Person struct {
	Name string `json:"name"`
	Role string `json:"role"`
	Img  string `json:"img,omitempty"`
	Href string `json:"href,omitempty"`
}

// GuestProfile is the known-guests record for one canonical name.
type GuestProfile struct {
	Img  string `json:"img,omitempty"`
	Href string `json:"href,omitempty"`

	// ExtraEpisodes records contributions to episodes where the guest is
	// not named in the title (manual additions keyed by episode GUID).
	ExtraEpisodes []ExtraEpisode `json:"extra_episodes,omitempty"`
}

// ExtraEpisode is a manual per-episode override tying a guest to an episode.
type ExtraEpisode struct {
	GUID string `json:"guid"`
	Note string `json:"note,omitempty"`
}

// Registry is the in-memory view over the two persisted tables.
type Registry struct {
	staffPath  string
	guestsPath string

	staff   []Person // hosts then other, file order
	guests  map[string]GuestProfile
	aliases map[string]string // surface form -> canonical name
}

// norwegian orders names the way the output files and reports are sorted.
var norwegian = collate.New(language.Norwegian, collate.Loose)

// Staff returns the permanent staff in registry insertion order: the hosts
// table first, then the other-roles table, each in file order.
func (r *Registry) Staff() []Person {
	out := make([]Person, len(r.staff))
	copy(out, r.staff)
	return out
}

// Canonical resolves a surface form through the alias table. Resolution is
// a single hop and idempotent: an already-canonical name (or any name with
// no alias entry) is returned unchanged.
func (r *Registry) Canonical(surface string) string {
	if canonical, ok := r.aliases[surface]; ok && canonical != "" {
		return canonical
	}
	return surface
}

// Guest looks up a canonical name in the known-guests table.
func (r *Registry) Guest(name string) (GuestProfile, bool) {
	profile, ok := r.guests[name]
	return profile, ok
}

// Known reports whether the name is already recorded as a guest, an alias
// surface form, or a staff member. The populate command uses this to skip
// re-lookups.
func (r *Registry) Known(name string) bool {
	if _, ok := r.guests[name]; ok {
		return true
	}
	if _, ok := r.aliases[name]; ok {
		return true
	}
	for _, p := range r.staff {
		if p.Name == name {
			return true
		}
	}
	return false
}

// AddGuest inserts or replaces a known-guest record. Adding a name that is
// permanent staff violates the table-separation invariant.
func (r *Registry) AddGuest(name string, profile GuestProfile) error {
	for _, p := range r.staff {
		if p.Name == name {
			return &errors.IntegrityError{
				Name:    name,
				Message: "present in permanent staff, refusing to add as guest",
			}
		}
	}
	r.guests[name] = profile
	return nil
}

// SetAlias records a surface-form variant of a canonical name.
func (r *Registry) SetAlias(surface, canonical string) error {
	if surface == "" || canonical == "" {
		return &errors.ValidationError{Field: "alias", Message: "surface form and canonical name must be non-empty"}
	}
	if existing, ok := r.aliases[surface]; ok && existing != canonical {
		return &errors.IntegrityError{
			Name:    surface,
			Message: "surface form already aliased to " + existing,
		}
	}
	r.aliases[surface] = canonical
	return nil
}

// GuestNames returns all canonical guest names in Norwegian collation order.
func (r *Registry) GuestNames() []string {
	names := make([]string, 0, len(r.guests))
	for name := range r.guests {
		names = append(names, name)
	}
	norwegian.SortStrings(names)
	return names
}

// Aliases returns a copy of the alias table.
func (r *Registry) Aliases() map[string]string {
	out := make(map[string]string, len(r.aliases))
	for k, v := range r.aliases {
		out[k] = v
	}
	return out
}

// validate enforces the registry invariants after load.
func (r *Registry) validate() error {
	staffNames := make(map[string]bool, len(r.staff))
	for _, p := range r.staff {
		staffNames[p.Name] = true
	}

	for name := range r.guests {
		if staffNames[name] {
			return &errors.IntegrityError{
				Name:    name,
				Message: "present in both permanent-staff and known-guests tables",
			}
		}
	}

	for surface, canonical := range r.aliases {
		if surface == canonical {
			continue // self-referential aliases are allowed
		}
		if _, ok := r.guests[surface]; ok {
			return &errors.IntegrityError{
				Name:    surface,
				Message: "alias surface form collides with a canonical guest name",
			}
		}
		if staffNames[surface] {
			return &errors.IntegrityError{
				Name:    surface,
				Message: "alias surface form collides with a permanent staff name",
			}
		}
	}

	return nil
}
