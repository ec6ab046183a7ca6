package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/dshills/gridsel/internal/config"
	"github.com/dshills/gridsel/internal/dispatcher/handler"
	"github.com/dshills/gridsel/internal/grid"
	"github.com/dshills/gridsel/internal/traversal"
)

var fruit = [][]string{
	{"name", "qty"},
	{"pear", "3"},
	{"apple", "10"},
	{"fig", "1"},
}

type memClipboard struct{ text string }

func (m *memClipboard) WriteAll(text string) error {
	m.text = text
	return nil
}

func dispatch(t *testing.T, s *Session, name string, args handler.Args) handler.Result {
	t.Helper()
	res := s.Dispatch(context.Background(), handler.NewAction(name, args))
	if res.IsError() {
		t.Fatalf("%s: %v", name, res.Error)
	}
	return res
}

func TestNewSessionDefaults(t *testing.T) {
	s, err := NewSession(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if s.Table().ColumnCount() != 26 || s.Table().RowCount() != 100 {
		t.Errorf("grid = %dx%d, want 26x100", s.Table().ColumnCount(), s.Table().RowCount())
	}
	dispatch(t, s, "selection.selectCell", handler.Args{"column": 2, "row": 3})
	if !s.Selection().IsCellPositionSelected(2, 3) {
		t.Error("cell (2,3) not selected")
	}
	if got := s.Strategy(); got.Scope() != traversal.AxisScope || got.Steps() != 1 {
		t.Errorf("Strategy() = %v", got)
	}
	if got := s.Dispatcher().Router().Namespaces(); !reflect.DeepEqual(got, []string{"selection", "structure"}) {
		t.Errorf("Namespaces() = %v", got)
	}
}

func TestSessionFollowsStructure(t *testing.T) {
	s, err := NewSession(nil, WithRecords(fruit))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	dispatch(t, s, "selection.selectRow", handler.Args{"column": 0, "row": 1})
	dispatch(t, s, "structure.deleteRows", handler.Args{"rows": 0})
	if got := s.Selection().FullySelectedRowPositions(); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("full rows after delete = %v, want [0]", got)
	}
	if got := s.Table().Cell(0, 0); got != "apple" {
		t.Errorf("row 0 = %q, want apple", got)
	}

	// Without explicit rows, delete acts on the fully selected rows.
	dispatch(t, s, "structure.deleteRows", nil)
	if s.Table().RowCount() != 1 || !s.Selection().IsEmpty() {
		t.Errorf("rows = %d, selection empty = %v", s.Table().RowCount(), s.Selection().IsEmpty())
	}
}

func TestSessionRefreshPolicies(t *testing.T) {
	tests := []struct {
		name     string
		preserve bool
		wantRows []int
	}{
		{"clear", false, nil},
		{"identity", true, []int{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Structure.PreserveByIdentity = tt.preserve
			cfg.Grid.KeyColumn = "name"
			s, err := NewSession(cfg, WithRecords(fruit))
			if err != nil {
				t.Fatal(err)
			}
			defer s.Close()

			// Select apple, then sort by qty: 1 (fig), 3 (pear), 10 (apple).
			dispatch(t, s, "selection.selectRow", handler.Args{"column": 0, "row": 1})
			dispatch(t, s, "structure.sort", handler.Args{"column": 1})

			got := s.Selection().FullySelectedRowPositions()
			if len(got) == 0 {
				got = nil
			}
			if !reflect.DeepEqual(got, tt.wantRows) {
				t.Errorf("full rows after sort = %v, want %v", got, tt.wantRows)
			}
		})
	}
}

func TestSessionPredicate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filled.lua")
	src := `function valid(fc, fr, tc, tr) return cell(tc, tr) ~= "" end`
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Script.Predicate = path

	s, err := NewSession(cfg, WithRecords([][]string{
		{"a", "b", "c", "d"},
		{"x", "", "", "y"},
	}))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	dispatch(t, s, "selection.setCursor", handler.Args{"column": 0, "row": 0})
	dispatch(t, s, "selection.move", handler.Args{"direction": "right"})
	if got := s.Selection().LastSelected(); got != grid.Pos(3, 0) {
		t.Errorf("LastSelected() = %v, want (3,0)", got)
	}
}

func TestSessionInitErrors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*config.Config)
		component string
	}{
		{"missing workbook", func(c *config.Config) { c.Grid.File = filepath.Join(t.TempDir(), "none.xlsx") }, "table"},
		{"missing script", func(c *config.Config) { c.Script.Predicate = filepath.Join(t.TempDir(), "none.lua") }, "script"},
		{"bad scope", func(c *config.Config) { c.Traversal.Scope = "diagonal" }, "dispatcher"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			_, err := NewSession(cfg)
			var ie *InitError
			if !errors.As(err, &ie) {
				t.Fatalf("error = %v, want *InitError", err)
			}
			if ie.Component != tt.component {
				t.Errorf("Component = %q, want %q", ie.Component, tt.component)
			}
		})
	}
}

func TestSessionApplyConfig(t *testing.T) {
	s, err := NewSession(nil, WithRecords(fruit))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	cfg := config.Default()
	cfg.Selection.Multiple = false
	cfg.Traversal.Scope = "table"
	cfg.Traversal.Cyclic = true
	cfg.Clipboard.Enabled = false
	if err := s.ApplyConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if s.Selection().MultipleSelection() {
		t.Error("multiple selection still enabled")
	}
	if st := s.Strategy(); st.Scope() != traversal.TableScope || !st.Cyclic() {
		t.Errorf("Strategy() = %v", st)
	}
	if res := s.Dispatch(context.Background(), handler.NewAction("selection.copy", nil)); !res.IsError() {
		t.Errorf("copy with clipboard disabled = %v", res)
	}

	bad := config.Default()
	bad.Traversal.Scope = "diagonal"
	var oe *OperationError
	if err := s.ApplyConfig(bad); !errors.As(err, &oe) {
		t.Errorf("ApplyConfig(bad) = %v, want *OperationError", err)
	}
	if s.Config() != cfg {
		t.Error("failed apply replaced the config")
	}
}

func TestSessionCopyAndClose(t *testing.T) {
	clip := &memClipboard{}
	s, err := NewSession(nil, WithRecords(fruit), WithClipboardWriter(clip))
	if err != nil {
		t.Fatal(err)
	}

	dispatch(t, s, "selection.selectRegion", handler.Args{"column": 0, "row": 0, "width": 2, "height": 2})
	res := dispatch(t, s, "selection.copy", nil)
	want := "pear\t3\napple\t10"
	if clip.text != want || res.GetDataString("text") != want {
		t.Errorf("copied %q (result %q), want %q", clip.text, res.GetDataString("text"), want)
	}

	s.Close()
	s.Close()
	res = s.Dispatch(context.Background(), handler.NewAction("selection.selectAll", nil))
	if !errors.Is(res.Error, ErrClosed) {
		t.Errorf("dispatch after Close = %v", res)
	}
}
