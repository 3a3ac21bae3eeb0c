// Package fields projects response records down to a client-chosen set of
// fields.
package fields

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"bggcache/internal/core"
)

// Header carries the comma-separated field allowlist.
const Header = "Bgg-Field-Whitelist"

// Reduction is a field allowlist. The zero value keeps every field.
type Reduction struct {
	fields []string
}

// New returns a Reduction keeping fields. Names are trimmed and empty names
// dropped; a reduction with no names keeps everything.
func New(fields []string) Reduction {
	var kept []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			kept = append(kept, f)
		}
	}
	return Reduction{fields: kept}
}

// FromHeader reads the allowlist from request headers.
func FromHeader(h http.Header) Reduction {
	raw := h.Get(Header)
	if strings.TrimSpace(raw) == "" {
		return Reduction{}
	}
	return New(strings.Split(raw, ","))
}

// Enabled reports whether any field selection is configured.
func (r Reduction) Enabled() bool {
	return len(r.fields) > 0
}

// Fields returns the configured field names.
func (r Reduction) Fields() []string {
	return r.fields
}

// Apply returns one JSON object per game, in order. Selected fields whose
// value is missing or empty (null, false, 0, "", [] or {}) are left out.
// Each name is matched literally against the record's top-level attributes;
// path syntax such as dots, wildcards or modifiers is not interpreted.
func (r Reduction) Apply(games []core.Game) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(games))
	for i := range games {
		raw, err := json.Marshal(&games[i])
		if err != nil {
			return nil, fmt.Errorf("marshal game %d: %w", games[i].ID, err)
		}
		if !r.Enabled() {
			out = append(out, raw)
			continue
		}

		projected := make(map[string]json.RawMessage, len(r.fields))
		for _, field := range r.fields {
			res := gjson.GetBytes(raw, gjson.Escape(field))
			if !present(res) {
				continue
			}
			projected[field] = json.RawMessage(res.Raw)
		}
		reduced, err := json.Marshal(projected)
		if err != nil {
			return nil, fmt.Errorf("marshal reduced game %d: %w", games[i].ID, err)
		}
		out = append(out, reduced)
	}
	return out, nil
}

func present(res gjson.Result) bool {
	if !res.Exists() {
		return false
	}
	switch res.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return res.Float() != 0
	case gjson.String:
		return res.Str != ""
	case gjson.JSON:
		if res.IsArray() {
			return len(res.Array()) > 0
		}
		return len(res.Map()) > 0
	}
	return true
}
