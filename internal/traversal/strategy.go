// Package traversal computes movement targets inside a grid.
//
// A Strategy is a plain value: a scope (one row or column, or the whole
// table), a cyclic flag, a step count and an optional validity predicate.
// Move is a pure function of a strategy, a starting position, a direction
// and the grid dimensions.
package traversal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/gridsel/internal/grid"
)

// Scope limits where a movement may land.
type Scope uint8

const (
	// AxisScope confines movement to the current row (Left/Right) or
	// column (Up/Down).
	AxisScope Scope = iota

	// TableScope lets movement spill into the adjacent row or column.
	TableScope
)

// String returns the scope name.
func (s Scope) String() string {
	if s == TableScope {
		return "table"
	}
	return "axis"
}

// ParseScope parses "axis" or "table".
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "axis", "":
		return AxisScope, nil
	case "table":
		return TableScope, nil
	}
	return AxisScope, fmt.Errorf("%w: %q", ErrUnknownScope, s)
}

// ToEnd moves to the farthest valid position before the boundary.
// Cyclic strategies ignore wraparound when stepping ToEnd.
const ToEnd = -1

var (
	// ErrInvalidStepCount is returned for step counts that are neither
	// positive nor ToEnd.
	ErrInvalidStepCount = errors.New("traversal: step count must be positive")

	// ErrUnknownScope is returned by ParseScope.
	ErrUnknownScope = errors.New("traversal: unknown scope")
)

// ValidFunc reports whether to is an acceptable landing when moving away
// from from. A nil ValidFunc accepts every cell.
type ValidFunc func(from, to grid.Position) bool

// Strategy is a movement policy.
type Strategy struct {
	scope  Scope
	cyclic bool
	steps  int
	valid  ValidFunc
}

// Built-in single-step strategies.
var (
	Axis       = Strategy{scope: AxisScope, steps: 1}
	AxisCycle  = Strategy{scope: AxisScope, cyclic: true, steps: 1}
	Table      = Strategy{scope: TableScope, steps: 1}
	TableCycle = Strategy{scope: TableScope, cyclic: true, steps: 1}
)

// New creates a strategy. steps must be positive or ToEnd.
func New(scope Scope, cyclic bool, steps int, valid ValidFunc) (Strategy, error) {
	if steps <= 0 && steps != ToEnd {
		return Strategy{}, fmt.Errorf("%w: %d", ErrInvalidStepCount, steps)
	}
	return Strategy{scope: scope, cyclic: cyclic, steps: steps, valid: valid}, nil
}

// Scope returns the strategy scope.
func (s Strategy) Scope() Scope { return s.scope }

// Cyclic reports whether movement wraps at the boundary.
func (s Strategy) Cyclic() bool { return s.cyclic }

// Steps returns the step count, possibly ToEnd.
func (s Strategy) Steps() int {
	if s.steps == 0 {
		return 1
	}
	return s.steps
}

// WithSteps returns a copy of s with a different step count.
func (s Strategy) WithSteps(steps int) (Strategy, error) {
	return New(s.scope, s.cyclic, steps, s.valid)
}

// WithScope returns a copy of s with a different scope and wrap mode.
func (s Strategy) WithScope(scope Scope, cyclic bool) Strategy {
	s.scope, s.cyclic = scope, cyclic
	return s
}

// WithValidator returns a copy of s that consults valid at every candidate.
func (s Strategy) WithValidator(valid ValidFunc) Strategy {
	s.valid = valid
	return s
}

// IsValidTarget evaluates the strategy's predicate.
func (s Strategy) IsValidTarget(from, to grid.Position) bool {
	return s.valid == nil || s.valid(from, to)
}

// String returns a short description such as "table/cyclic/3".
func (s Strategy) String() string {
	mode := "clamp"
	if s.cyclic {
		mode = "cyclic"
	}
	steps := fmt.Sprint(s.Steps())
	if s.steps == ToEnd {
		steps = "end"
	}
	return s.scope.String() + "/" + mode + "/" + steps
}
