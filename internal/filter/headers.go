package filter

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"bggcache/internal/core"
)

// Request headers that configure the chain.
const (
	HeaderPlayerCount       = "Bgg-Filter-Player-Count"
	HeaderUseRecommended    = "Bgg-Filter-Using-Recommended-Players"
	HeaderMinDuration       = "Bgg-Filter-Min-Duration"
	HeaderMaxDuration       = "Bgg-Filter-Max-Duration"
	HeaderMaxComplexity     = "Bgg-Filter-Max-Complexity"
	HeaderIncludeExpansions = "Bgg-Include-Expansions"
	HeaderMechanics         = "Bgg-Filter-Mechanic"
	HeaderMinRating         = "Bgg-Filter-Min-Rating"
)

// FromHeaders builds the request chain:
// Expansions, Players, Duration, Complexity, Mechanics, Rating.
// Malformed values yield an invalid request error.
func FromHeaders(h http.Header) (*Chain, error) {
	p := headerParser{h: h}

	include := p.bool(HeaderIncludeExpansions, false)
	players := Players{
		Count:          p.int(HeaderPlayerCount),
		UseRecommended: p.bool(HeaderUseRecommended, true),
	}
	duration := Duration{
		Min: p.int(HeaderMinDuration),
		Max: p.int(HeaderMaxDuration),
	}
	complexity := Complexity{Max: p.float(HeaderMaxComplexity)}
	mechanics := NewMechanics(ParseMechanics(h.Get(HeaderMechanics)))
	rating := Rating{Min: p.float(HeaderMinRating)}

	if p.err != nil {
		return nil, p.err
	}

	return NewChain(
		Expansions{Include: include},
		players,
		duration,
		complexity,
		mechanics,
		rating,
	), nil
}

// ParseMechanics splits a bracketed list such as "[Dice Rolling, Trading]".
// Brackets are optional.
func ParseMechanics(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// headerParser records the first parse failure and returns zero values
// after it.
type headerParser struct {
	h   http.Header
	err error
}

func (p *headerParser) value(name string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v := strings.TrimSpace(p.h.Get(name))
	return v, v != ""
}

func (p *headerParser) fail(name, v string, err error) {
	p.err = core.NewInvalidRequestError(fmt.Sprintf("invalid %s header: %q", name, v), err)
}

func (p *headerParser) int(name string) int {
	v, ok := p.value(name)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(name, v, err)
		return 0
	}
	return n
}

func (p *headerParser) float(name string) float64 {
	v, ok := p.value(name)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(name, v, err)
		return 0
	}
	return f
}

func (p *headerParser) bool(name string, def bool) bool {
	v, ok := p.value(name)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(name, v, err)
		return def
	}
	return b
}
