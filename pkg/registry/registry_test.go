package registry_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrmamen/podenrich/pkg/errors"
	"github.com/mrmamen/podenrich/pkg/registry"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFilesYieldsEmptyRegistry(t *testing.T) {
	dir := t.TempDir()

	reg, err := registry.Load(filepath.Join(dir, "absent.json"), filepath.Join(dir, "also-absent.json"))
	require.NoError(t, err)

	assert.Empty(t, reg.Staff())
	assert.Empty(t, reg.GuestNames())
}

func TestLoadStaffOrder(t *testing.T) {
	dir := t.TempDir()
	staffPath := writeFile(t, dir, "staff.json", `{
		"hosts": [
			{"name": "Sigve Indregard", "role": "host"},
			{"name": "Hans-Henrik Mamen", "role": "host"}
		],
		"other": [
			{"name": "Klipper Knut", "role": "editor"}
		]
	}`)

	reg, err := registry.Load(staffPath, "")
	require.NoError(t, err)

	staff := reg.Staff()
	require.Len(t, staff, 3)
	assert.Equal(t, "Sigve Indregard", staff[0].Name)
	assert.Equal(t, "Hans-Henrik Mamen", staff[1].Name)
	assert.Equal(t, "Klipper Knut", staff[2].Name)
}

func TestLoadMalformedGuestsIsFatal(t *testing.T) {
	dir := t.TempDir()
	guestsPath := writeFile(t, dir, "guests.json", `{not json`)

	_, err := registry.Load("", guestsPath)
	require.Error(t, err)

	var parseErr *errors.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestLoadIntegrityViolation(t *testing.T) {
	dir := t.TempDir()
	staffPath := writeFile(t, dir, "staff.json", `{
		"hosts": [{"name": "Sigve Indregard", "role": "host"}],
		"other": []
	}`)
	guestsPath := writeFile(t, dir, "guests.json", `{
		"guests": {"Sigve Indregard": {}},
		"aliases": {}
	}`)

	_, err := registry.Load(staffPath, guestsPath)
	require.Error(t, err)
	assert.True(t, errors.IsIntegrity(err))
}

func TestLoadAliasCollisionWithGuestName(t *testing.T) {
	dir := t.TempDir()
	guestsPath := writeFile(t, dir, "guests.json", `{
		"guests": {"Aksel M. Bjerke": {}},
		"aliases": {"Aksel M. Bjerke": "Noen Andre"}
	}`)

	_, err := registry.Load("", guestsPath)
	require.Error(t, err)
	assert.True(t, errors.IsIntegrity(err))
}

func TestLoadSelfReferentialAliasAllowed(t *testing.T) {
	dir := t.TempDir()
	guestsPath := writeFile(t, dir, "guests.json", `{
		"guests": {"Aksel M. Bjerke": {}},
		"aliases": {"Aksel M. Bjerke": "Aksel M. Bjerke"}
	}`)

	reg, err := registry.Load("", guestsPath)
	require.NoError(t, err)
	assert.Equal(t, "Aksel M. Bjerke", reg.Canonical("Aksel M. Bjerke"))
}

func TestCanonicalIdempotent(t *testing.T) {
	dir := t.TempDir()
	guestsPath := writeFile(t, dir, "guests.json", `{
		"guests": {"Aksel M. Bjerke": {}},
		"aliases": {"Aksel Bjerke": "Aksel M. Bjerke"}
	}`)

	reg, err := registry.Load("", guestsPath)
	require.NoError(t, err)

	once := reg.Canonical("Aksel Bjerke")
	assert.Equal(t, "Aksel M. Bjerke", once)
	assert.Equal(t, once, reg.Canonical(once), "canonical of canonical is itself")
	assert.Equal(t, "Helt Ukjent", reg.Canonical("Helt Ukjent"))
}

func TestAddGuestRefusesStaffName(t *testing.T) {
	dir := t.TempDir()
	staffPath := writeFile(t, dir, "staff.json", `{
		"hosts": [{"name": "Sigve Indregard", "role": "host"}],
		"other": []
	}`)

	reg, err := registry.Load(staffPath, filepath.Join(dir, "guests.json"))
	require.NoError(t, err)

	err = reg.AddGuest("Sigve Indregard", registry.GuestProfile{})
	require.Error(t, err)
	assert.True(t, errors.IsIntegrity(err))
}

func TestSetAliasConflict(t *testing.T) {
	dir := t.TempDir()
	reg, err := registry.Load("", filepath.Join(dir, "guests.json"))
	require.NoError(t, err)

	require.NoError(t, reg.SetAlias("Aksel", "Aksel M. Bjerke"))
	require.NoError(t, reg.SetAlias("Aksel", "Aksel M. Bjerke"), "re-setting the same mapping is fine")

	err = reg.SetAlias("Aksel", "Aksel Annen")
	require.Error(t, err)
	assert.True(t, errors.IsIntegrity(err))
}

func TestSaveGuestsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	guestsPath := filepath.Join(dir, "guests.json")

	reg, err := registry.Load("", guestsPath)
	require.NoError(t, err)

	require.NoError(t, reg.AddGuest("Øystein Lill", registry.GuestProfile{Href: "https://example.com/oystein"}))
	require.NoError(t, reg.AddGuest("Anette Jøsendal", registry.GuestProfile{
		Img: "https://example.com/anette.jpg",
		ExtraEpisodes: []registry.ExtraEpisode{
			{GUID: "ep-42", Note: "gjesteinnslag"},
		},
	}))
	require.NoError(t, reg.SetAlias("Anette", "Anette Jøsendal"))
	require.NoError(t, reg.SaveGuests())

	reloaded, err := registry.Load("", guestsPath)
	require.NoError(t, err)

	profile, ok := reloaded.Guest("Anette Jøsendal")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/anette.jpg", profile.Img)
	require.Len(t, profile.ExtraEpisodes, 1)
	assert.Equal(t, "ep-42", profile.ExtraEpisodes[0].GUID)

	assert.Equal(t, "Anette Jøsendal", reloaded.Canonical("Anette"))
	assert.Equal(t, []string{"Anette Jøsendal", "Øystein Lill"}, reloaded.GuestNames())
}

func TestSaveGuestsCollatedKeyOrder(t *testing.T) {
	dir := t.TempDir()
	guestsPath := filepath.Join(dir, "guests.json")

	reg, err := registry.Load("", guestsPath)
	require.NoError(t, err)

	// Æ/Ø/Å sort after Z in Norwegian, unlike their UTF-8 byte order.
	require.NoError(t, reg.AddGuest("Åse Berg", registry.GuestProfile{}))
	require.NoError(t, reg.AddGuest("Bjørn Dal", registry.GuestProfile{}))
	require.NoError(t, reg.SaveGuests())

	data, err := os.ReadFile(guestsPath)
	require.NoError(t, err)

	assert.True(t, json.Valid(data))
	bjorn := strings.Index(string(data), "Bjørn Dal")
	aase := strings.Index(string(data), "Åse Berg")
	require.Positive(t, bjorn)
	require.Positive(t, aase)
	assert.Less(t, bjorn, aase, "Å sorts last in Norwegian collation")
}

func TestKnown(t *testing.T) {
	dir := t.TempDir()
	staffPath := writeFile(t, dir, "staff.json", `{
		"hosts": [{"name": "Sigve Indregard", "role": "host"}],
		"other": []
	}`)
	guestsPath := writeFile(t, dir, "guests.json", `{
		"guests": {"Roar Granevang": {}},
		"aliases": {"Roar": "Roar Granevang"}
	}`)

	reg, err := registry.Load(staffPath, guestsPath)
	require.NoError(t, err)

	assert.True(t, reg.Known("Roar Granevang"), "guest")
	assert.True(t, reg.Known("Roar"), "alias surface form")
	assert.True(t, reg.Known("Sigve Indregard"), "staff")
	assert.False(t, reg.Known("Ukjent Person"))
}
