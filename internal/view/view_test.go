package view

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/gridsel/internal/grid"
	"github.com/dshills/gridsel/internal/grid/table"
	"github.com/dshills/gridsel/internal/selection"
)

func newScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	s.SetSize(w, h)
	t.Cleanup(s.Fini)
	return s
}

func content(s tcell.Screen, x, y int) (rune, tcell.Style) {
	r, _, style, _ := s.GetContent(x, y) //nolint:staticcheck // GetContent is the simulation API
	return r, style
}

func line(s tcell.Screen, y int) string {
	w, _ := s.Size()
	var b strings.Builder
	for x := 0; x < w; x++ {
		r, _ := content(s, x, y)
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}

func TestDraw(t *testing.T) {
	screen := newScreen(t, 30, 5)
	tbl := table.FromRecords([][]string{
		{"name", "qty"},
		{"pear", "3"},
		{"apple", "10"},
	})
	sel := selection.New(tbl)
	sel.SelectRegion(0, 0, 2, 1)

	v := New(screen, tbl, sel, WithColumnWidth(8))
	v.Draw()

	if got := line(screen, 0); got != "    name    qty" {
		t.Errorf("header = %q", got)
	}
	if got := line(screen, 1); got != "1   pear    3" {
		t.Errorf("row 1 = %q", got)
	}

	styles := DefaultStyles()
	tests := []struct {
		x, y  int
		r     rune
		style tcell.Style
	}{
		{4, 1, 'p', styles.Cursor},
		{12, 1, '3', styles.Selected},
		{4, 2, 'a', styles.Cell},
		{4, 0, 'n', styles.Header},
	}
	for _, tt := range tests {
		r, style := content(screen, tt.x, tt.y)
		if r != tt.r || style != tt.style {
			t.Errorf("(%d,%d) = %q %v, want %q %v", tt.x, tt.y, r, style, tt.r, tt.style)
		}
	}

	v.SetStatus("copied %d bytes", 6)
	v.Draw()
	if got := line(screen, 4); !strings.HasPrefix(got, " R1C1  2 selected  2x2  copied") {
		t.Errorf("status = %q", got)
	}
}

func TestDrawTruncatesToColumnWidth(t *testing.T) {
	screen := newScreen(t, 30, 5)
	tbl := table.FromRecords([][]string{
		{"text"},
		{"a very long value"},
		{"日本語テキスト"},
	})
	v := New(screen, tbl, selection.New(tbl), WithColumnWidth(8))
	v.Draw()

	if got := line(screen, 1); !strings.HasPrefix(got, "1   a ver") || strings.Contains(got, "value") {
		t.Errorf("row 1 = %q", got)
	}
	if r, _ := content(screen, 4, 2); r != '日' {
		t.Errorf("(4,2) = %q, want 日", r)
	}
	if r, _ := content(screen, 6, 2); r != '本' {
		t.Errorf("(6,2) = %q, want 本", r)
	}
}

func TestScrollAndCellAt(t *testing.T) {
	screen := newScreen(t, 40, 6)
	tbl := table.New([]string{"A", "B", "C"})
	tbl.InsertRows(0, 30)
	sel := selection.New(tbl)

	v := New(screen, tbl, sel, WithColumnWidth(8))
	sel.SetCursor(1, 10)
	v.Draw()

	if got := v.Origin(); got != grid.Pos(0, 7) {
		t.Errorf("Origin() = %v, want (0,7)", got)
	}
	if got := line(screen, 1); !strings.HasPrefix(got, "8") {
		t.Errorf("first visible row = %q, want row 8", got)
	}

	tests := []struct {
		x, y int
		want grid.Position
		ok   bool
	}{
		{5, 1, grid.Pos(0, 7), true},
		{13, 4, grid.Pos(1, 10), true},
		{0, 1, grid.NoPosition, false},
		{5, 0, grid.NoPosition, false},
		{5, 5, grid.NoPosition, false},
		{39, 1, grid.NoPosition, false},
	}
	for _, tt := range tests {
		got, ok := v.CellAt(tt.x, tt.y)
		if got != tt.want || ok != tt.ok {
			t.Errorf("CellAt(%d,%d) = %v, %v; want %v, %v", tt.x, tt.y, got, ok, tt.want, tt.ok)
		}
	}

	sel.SetCursor(0, 0)
	v.Draw()
	if got := v.Origin(); got != grid.Pos(0, 0) {
		t.Errorf("Origin() after moving home = %v", got)
	}
}
