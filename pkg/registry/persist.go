package registry

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"

	stderrors "errors"

	"github.com/mrmamen/podenrich/pkg/errors"
	"github.com/mrmamen/podenrich/pkg/logging"
)

// staffFile mirrors the permanent-staff table on disk.
type staffFile struct {
	Hosts []Person `json:"hosts"`
	Other []Person `json:"other"`
}

// guestsFile mirrors the known-guests table on disk.
type guestsFile struct {
	Comment string                  `json:"_comment,omitempty"`
	Guests  map[string]GuestProfile `json:"guests"`
	Aliases map[string]string       `json:"aliases"`
}

// Load reads both registry tables and validates their invariants. A missing
// file yields an empty table (fresh start); a file that exists but fails to
// parse is fatal, since running against half a knowledge base would silently
// strip person data from the output.
func Load(staffPath, guestsPath string) (*Registry, error) {
	r := &Registry{
		staffPath:  staffPath,
		guestsPath: guestsPath,
		guests:     make(map[string]GuestProfile),
		aliases:    make(map[string]string),
	}

	if staffPath != "" {
		var sf staffFile
		ok, err := readJSON(staffPath, &sf)
		if err != nil {
			return nil, err
		}
		if ok {
			r.staff = append(r.staff, sf.Hosts...)
			r.staff = append(r.staff, sf.Other...)
		}
	}

	if guestsPath != "" {
		var gf guestsFile
		ok, err := readJSON(guestsPath, &gf)
		if err != nil {
			return nil, err
		}
		if ok {
			if gf.Guests != nil {
				r.guests = gf.Guests
			}
			if gf.Aliases != nil {
				r.aliases = gf.Aliases
			}
		}
	}

	if err := r.validate(); err != nil {
		return nil, err
	}

	logging.Debug().
		Int("staff", len(r.staff)).
		Int("guests", len(r.guests)).
		Int("aliases", len(r.aliases)).
		Msg("Loaded person registry")

	return r, nil
}

// SaveGuests persists the known-guests table atomically. The permanent-staff
// table is hand-edited and never written back. Keys are emitted in Norwegian
// collation order so successive saves diff cleanly.
func (r *Registry) SaveGuests() error {
	if r.guestsPath == "" {
		return &errors.ConfigError{Component: "registry", Message: "no known-guests path configured"}
	}

	data, err := marshalGuests(guestsFile{
		Guests:  r.guests,
		Aliases: r.aliases,
	})
	if err != nil {
		return errors.WrapParse("json", r.guestsPath, err)
	}

	if err := writeAtomic(r.guestsPath, data); err != nil {
		return err
	}

	logging.Debug().
		Str("path", r.guestsPath).
		Int("guests", len(r.guests)).
		Msg("Saved known-guests table")
	return nil
}

// readJSON loads path into v. Returns false with no error when the file
// does not exist.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, errors.WrapIO("read", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.WrapParse("json", path, err)
	}
	return true, nil
}

// marshalGuests renders the guests file with collated, stable key order.
// encoding/json sorts map keys bytewise, which misplaces Æ/Ø/Å, so the
// object is assembled manually.
func marshalGuests(gf guestsFile) ([]byte, error) {
	guestNames := make([]string, 0, len(gf.Guests))
	for name := range gf.Guests {
		guestNames = append(guestNames, name)
	}
	norwegian.SortStrings(guestNames)

	surfaces := make([]string, 0, len(gf.Aliases))
	for surface := range gf.Aliases {
		surfaces = append(surfaces, surface)
	}
	norwegian.SortStrings(surfaces)

	var buf bytes.Buffer
	buf.WriteString("{\n  \"guests\": {")
	for i, name := range guestNames {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString("\n    ")
		writeJSONString(&buf, name)
		buf.WriteString(": ")
		entry, err := json.Marshal(gf.Guests[name])
		if err != nil {
			return nil, err
		}
		buf.Write(entry)
	}
	buf.WriteString("\n  },\n  \"aliases\": {")
	for i, surface := range surfaces {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString("\n    ")
		writeJSONString(&buf, surface)
		buf.WriteString(": ")
		writeJSONString(&buf, gf.Aliases[surface])
	}
	buf.WriteString("\n  }\n}\n")
	return buf.Bytes(), nil
}

func writeJSONString(buf *bytes.Buffer, s string) {
	encoded, _ := json.Marshal(s)
	buf.Write(encoded)
}

// writeAtomic writes data via a temp file and rename so a failed run never
// leaves a truncated table behind.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapIO("create", dir, err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return errors.WrapIO("write", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.WrapIO("rename", path, err)
	}
	return nil
}
