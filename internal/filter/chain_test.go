package filter

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bggcache/internal/core"
)

type countingStage struct {
	name    string
	exclude bool
	calls   int
}

func (s *countingStage) Name() string { return s.name }

func (s *countingStage) Excludes(*core.Game) bool {
	s.calls++
	return s.exclude
}

func TestChainShortCircuits(t *testing.T) {
	first := &countingStage{name: "first"}
	second := &countingStage{name: "second", exclude: true}
	third := &countingStage{name: "third"}

	chain := NewChain(first, second, third)
	assert.True(t, chain.Excludes(&core.Game{}))
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 0, third.calls, "stages after an exclusion must not run")
}

func TestChainDelegatesWhenNotExcluded(t *testing.T) {
	stages := []*countingStage{{name: "a"}, {name: "b"}, {name: "c"}}
	chain := NewChain(stages[0], stages[1], stages[2])

	assert.False(t, chain.Excludes(&core.Game{}))
	for _, s := range stages {
		assert.Equal(t, 1, s.calls, s.name)
	}
}

func TestUnconfiguredStagesDelegate(t *testing.T) {
	next := &countingStage{name: "next"}
	for _, stage := range []Stage{
		Players{UseRecommended: true},
		Duration{},
		Complexity{},
		Expansions{Include: true},
		Mechanics{},
		Rating{},
	} {
		next.calls = 0
		NewChain(stage, next).Excludes(&core.Game{Mechanics: []string{"Trading"}})
		assert.Equal(t, 1, next.calls, stage.Name())
	}
}

func TestNilChainNeverExcludes(t *testing.T) {
	var chain *Chain
	assert.False(t, chain.Excludes(&core.Game{Expansion: true}))
	assert.Equal(t, 0, chain.Len())
	assert.False(t, NewChain().Excludes(&core.Game{Expansion: true}))
}

func TestNewChainSkipsNil(t *testing.T) {
	chain := NewChain(nil, Expansions{}, nil)
	assert.Equal(t, 1, chain.Len())
}

func TestFromHeadersOrder(t *testing.T) {
	chain, err := FromHeaders(http.Header{})
	require.NoError(t, err)
	assert.Equal(t, []string{"expansions", "players", "duration", "complexity", "mechanics", "rating"}, chain.Stages())
}

func TestFromHeadersDefaults(t *testing.T) {
	chain, err := FromHeaders(http.Header{})
	require.NoError(t, err)

	assert.True(t, chain.Excludes(&core.Game{Expansion: true}), "expansions excluded by default")
	assert.False(t, chain.Excludes(&core.Game{MinPlayers: 2, MaxPlayers: 4}))
}

func TestFromHeadersParsesValues(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderPlayerCount, "4")
	h.Set(HeaderUseRecommended, "false")
	h.Set(HeaderMinDuration, "30")
	h.Set(HeaderMaxDuration, "90")
	h.Set(HeaderMaxComplexity, "2.5")
	h.Set(HeaderIncludeExpansions, "true")
	h.Set(HeaderMechanics, "[Trading, Dice Rolling]")
	h.Set(HeaderMinRating, "7")

	chain, err := FromHeaders(h)
	require.NoError(t, err)

	keep := &core.Game{
		Expansion:        true,
		MinPlayers:       3,
		MaxPlayers:       4,
		MinPlayingTime:   60,
		MaxPlayingTime:   90,
		RatingAverage:    ptr(7.2),
		Mechanics:        []string{"Trading"},
		SuggestedPlayers: []core.PlayerSuggestion{{PlayerCount: 3, Best: 9}},
	}
	assert.False(t, chain.Excludes(keep))

	tooLong := *keep
	tooLong.MaxPlayingTime = 120
	assert.True(t, chain.Excludes(&tooLong))

	heavy := *keep
	heavy.RatingAverageWeight = ptr(3.9)
	assert.True(t, chain.Excludes(&heavy))

	offTheme := *keep
	offTheme.Mechanics = []string{"Worker Placement"}
	assert.True(t, chain.Excludes(&offTheme))

	lowRated := *keep
	lowRated.RatingAverage = ptr(6.5)
	assert.True(t, chain.Excludes(&lowRated))
}

func TestFromHeadersRejectsMalformed(t *testing.T) {
	for _, header := range []string{
		HeaderPlayerCount,
		HeaderUseRecommended,
		HeaderMinDuration,
		HeaderMaxDuration,
		HeaderMaxComplexity,
		HeaderIncludeExpansions,
		HeaderMinRating,
	} {
		t.Run(header, func(t *testing.T) {
			h := http.Header{}
			h.Set(header, "not-a-value")
			_, err := FromHeaders(h)
			require.Error(t, err)

			var gw *core.GatewayError
			require.True(t, errors.As(err, &gw))
			assert.Equal(t, core.ErrorTypeInvalidRequest, gw.Type)
			assert.Contains(t, gw.Message, header)
		})
	}
}

func TestParseMechanics(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, ParseMechanics("[A, B]"))
	assert.Equal(t, []string{"A", "B"}, ParseMechanics(" A ,B,, "))
	assert.Nil(t, ParseMechanics("[ ]"))
	assert.Nil(t, ParseMechanics(""))
}
