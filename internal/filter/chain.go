// Package filter decides which games a response leaves out. A Chain is an
// ordered list of stages; the first stage that excludes a game ends the
// evaluation for that game.
package filter

import "bggcache/internal/core"

// Stage is one filter criterion with its parsed configuration.
type Stage interface {
	// Name identifies the stage in logs and tests.
	Name() string
	// Excludes reports whether this stage alone drops the game.
	Excludes(g *core.Game) bool
}

// Chain evaluates stages in order with short-circuit exclusion.
// A nil or empty Chain never excludes.
type Chain struct {
	stages []Stage
}

// NewChain builds a chain evaluating stages outermost first.
// Nil stages are skipped.
func NewChain(stages ...Stage) *Chain {
	c := &Chain{}
	for _, s := range stages {
		c.Add(s)
	}
	return c
}

// Add appends s as the innermost stage.
func (c *Chain) Add(s Stage) {
	if s != nil {
		c.stages = append(c.stages, s)
	}
}

// Len returns the number of stages.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.stages)
}

// Stages returns the stage names in evaluation order.
func (c *Chain) Stages() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.stages))
	for _, s := range c.stages {
		names = append(names, s.Name())
	}
	return names
}

// Excludes reports whether any stage drops g. Stages after the first
// excluding one are not consulted.
func (c *Chain) Excludes(g *core.Game) bool {
	if c == nil {
		return false
	}
	for _, s := range c.stages {
		if s.Excludes(g) {
			return true
		}
	}
	return false
}
