package filter

import (
	"regexp"
	"strings"

	"bggcache/internal/core"
)

// Expansions drops expansions unless they were asked for.
type Expansions struct {
	Include bool
}

func (Expansions) Name() string { return "expansions" }

func (f Expansions) Excludes(g *core.Game) bool {
	return g.Expansion && !f.Include
}

// Players keeps games playable at Count players. When UseRecommended is set
// and the game carries qualifying poll rows, the range comes from the poll
// rather than the published min/max. A zero Count disables the stage.
type Players struct {
	Count          int
	UseRecommended bool
}

func (Players) Name() string { return "players" }

func (f Players) Excludes(g *core.Game) bool {
	if f.Count <= 0 {
		return false
	}
	lo, hi := g.MinPlayers, g.MaxPlayers
	if f.UseRecommended {
		if rlo, rhi, ok := recommendedRange(g.SuggestedPlayers); ok {
			lo, hi = rlo, rhi
		}
	}
	return f.Count < lo || f.Count > hi
}

func recommendedRange(suggestions []core.PlayerSuggestion) (lo, hi int, ok bool) {
	for _, s := range suggestions {
		if !s.Qualifies() {
			continue
		}
		if !ok || s.PlayerCount < lo {
			lo = s.PlayerCount
		}
		if !ok || s.PlayerCount > hi {
			hi = s.PlayerCount
		}
		ok = true
	}
	return lo, hi, ok
}

// Duration bounds playing time in minutes. Zero disables a bound.
type Duration struct {
	Min int
	Max int
}

func (Duration) Name() string { return "duration" }

func (f Duration) Excludes(g *core.Game) bool {
	if f.Min > 0 && g.MinPlayingTime < f.Min {
		return true
	}
	return f.Max > 0 && g.MaxPlayingTime > f.Max
}

// Complexity caps the community weight rating. Zero disables the stage;
// games without a rating count as weight 0.
type Complexity struct {
	Max float64
}

func (Complexity) Name() string { return "complexity" }

func (f Complexity) Excludes(g *core.Game) bool {
	return f.Max > 0 && g.Weight() > f.Max
}

var mechanicPrefix = regexp.MustCompile(`^[A-Za-z0-9]{2}-[A-Za-z0-9]{3} `)

// NormalizeMechanic strips a leading family code such as "ab-cde " so that
// coded and plain mechanic names compare equal.
func NormalizeMechanic(name string) string {
	return mechanicPrefix.ReplaceAllString(strings.TrimSpace(name), "")
}

// Mechanics keeps games sharing at least one mechanic with Wanted. Games that
// declare no mechanics are kept. An empty Wanted disables the stage.
type Mechanics struct {
	Wanted map[string]struct{}
}

// NewMechanics builds the stage from mechanic names.
func NewMechanics(names []string) Mechanics {
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n = NormalizeMechanic(n); n != "" {
			wanted[n] = struct{}{}
		}
	}
	return Mechanics{Wanted: wanted}
}

func (Mechanics) Name() string { return "mechanics" }

func (f Mechanics) Excludes(g *core.Game) bool {
	if len(f.Wanted) == 0 || len(g.Mechanics) == 0 {
		return false
	}
	for _, m := range g.Mechanics {
		if _, ok := f.Wanted[NormalizeMechanic(m)]; ok {
			return false
		}
	}
	return true
}

// Rating drops games rated below Min, and games with no rating at all once a
// minimum is set. Zero disables the stage.
type Rating struct {
	Min float64
}

func (Rating) Name() string { return "rating" }

func (f Rating) Excludes(g *core.Game) bool {
	if f.Min <= 0 {
		return false
	}
	return g.RatingAverage == nil || *g.RatingAverage < f.Min
}
