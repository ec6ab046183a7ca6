// Package replay runs scripted selection scenarios.
//
// A scenario is a YAML document that describes a grid, the selection
// settings and a list of steps. Each step dispatches one action through a
// fresh session and may state what the selection must look like afterward.
// Scenarios double as regression fixtures and as executable examples of
// the selection semantics.
//
//	name: shift extends from the anchor
//	grid: {columns: 4, rows: 4}
//	steps:
//	  - action: selection.selectCell
//	    args: {column: 1, row: 1}
//	  - action: selection.selectCell
//	    args: {column: 2, row: 3, shift: true}
//	    expect: {count: 6, anchor: [1, 1], last: [2, 3]}
package replay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dshills/gridsel/internal/config"
	"github.com/dshills/gridsel/internal/grid/table"
)

// ErrInvalidScenario is wrapped by every scenario validation error.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is one scripted run.
type Scenario struct {
	Name    string   `yaml:"name"`
	Grid    GridSpec `yaml:"grid"`
	Options Options  `yaml:"options"`
	Steps   []Step   `yaml:"steps"`
}

// GridSpec describes the starting grid. Records, header first, win over
// Columns and Rows.
type GridSpec struct {
	Columns   int        `yaml:"columns"`
	Rows      int        `yaml:"rows"`
	Records   [][]string `yaml:"records"`
	KeyColumn string     `yaml:"key_column"`
}

// Options override the default selection settings.
type Options struct {
	Multiple           *bool  `yaml:"multiple"`
	RowOriented        bool   `yaml:"row_oriented"`
	ClearOnRefresh     *bool  `yaml:"clear_on_refresh"`
	PreserveByIdentity bool   `yaml:"preserve_by_identity"`
	Scope              string `yaml:"scope"`
	Cyclic             bool   `yaml:"cyclic"`
	StepCount          int    `yaml:"step_count"`
	Predicate          string `yaml:"predicate"`
}

// Step dispatches one action.
type Step struct {
	Action string         `yaml:"action"`
	Args   map[string]any `yaml:"args"`
	Count  int            `yaml:"count"`
	Expect *Expect        `yaml:"expect"`
}

// Expect lists the checks after a step. Unset fields are not checked.
type Expect struct {
	// Status is the handler status: ok, no-op, error or cancelled.
	Status string `yaml:"status"`
	// Error must appear in the error message.
	Error string `yaml:"error"`

	Cells       [][]int `yaml:"cells"`
	Count       *int    `yaml:"count"`
	Empty       *bool   `yaml:"empty"`
	Anchor      []int   `yaml:"anchor"`
	Last        []int   `yaml:"last"`
	Rects       [][]int `yaml:"rects"`
	FullRows    *[]int  `yaml:"full_rows"`
	FullColumns *[]int  `yaml:"full_columns"`

	// Events is the number of selection notifications the step caused.
	Events *int `yaml:"events"`
	// Copied is the text written to the clipboard.
	Copied *string `yaml:"copied"`
	// Size is the grid size as [columns, rows].
	Size []int `yaml:"size"`
}

// Parse decodes and validates a scenario. Unknown fields are errors.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidScenario)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = path
	}
	return sc, nil
}

// Validate checks the scenario's shape.
func (sc *Scenario) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidScenario, fmt.Sprintf(format, args...)))
	}
	if len(sc.Steps) == 0 {
		invalid("no steps")
	}
	if sc.Grid.Records == nil && (sc.Grid.Columns < 0 || sc.Grid.Rows < 0) {
		invalid("grid size must not be negative")
	}
	for i, st := range sc.Steps {
		if st.Action == "" {
			invalid("step %d: action is required", i+1)
		}
		if st.Expect == nil {
			continue
		}
		e := st.Expect
		for _, p := range [][]int{e.Anchor, e.Last, e.Size} {
			if p != nil && len(p) != 2 {
				invalid("step %d: positions and sizes are [column, row]", i+1)
			}
		}
		for _, c := range e.Cells {
			if len(c) != 2 {
				invalid("step %d: cells are [column, row]", i+1)
			}
		}
		for _, r := range e.Rects {
			if len(r) != 4 {
				invalid("step %d: rects are [x, y, width, height]", i+1)
			}
		}
	}
	return errors.Join(errs...)
}

// Config builds the settings for the run.
func (sc *Scenario) Config() *config.Config {
	cfg := config.Default()
	o := sc.Options
	if o.Multiple != nil {
		cfg.Selection.Multiple = *o.Multiple
	}
	cfg.Selection.RowOriented = o.RowOriented
	if o.ClearOnRefresh != nil {
		cfg.Structure.ClearOnRefresh = *o.ClearOnRefresh
	}
	cfg.Structure.PreserveByIdentity = o.PreserveByIdentity
	if o.Scope != "" {
		cfg.Traversal.Scope = o.Scope
	}
	cfg.Traversal.Cyclic = o.Cyclic
	if o.StepCount != 0 {
		cfg.Traversal.StepCount = o.StepCount
	}
	cfg.Script.Predicate = o.Predicate
	cfg.Grid.KeyColumn = sc.Grid.KeyColumn
	cfg.Grid.Columns, cfg.Grid.Rows = sc.Grid.Columns, sc.Grid.Rows
	cfg.Clipboard.Enabled = true
	return cfg
}

// Records returns the starting grid, header first.
func (sc *Scenario) Records() [][]string {
	if sc.Grid.Records != nil {
		return sc.Grid.Records
	}
	header := make([]string, sc.Grid.Columns)
	for i := range header {
		header[i] = table.ColumnLetter(i)
	}
	out := [][]string{header}
	for range sc.Grid.Rows {
		out = append(out, nil)
	}
	return out
}
