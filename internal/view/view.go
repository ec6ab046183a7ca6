// Package view draws a grid and its selection on a tcell screen and maps
// key events to dispatcher actions.
//
// The view is passive: it reads the grid and the selection when Draw is
// called and never mutates either. The application's event loop owns the
// screen and decides when to redraw.
package view

import (
	"fmt"
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/dshills/gridsel/internal/grid"
)

// DefaultColumnWidth is the width of a column including its separator.
const DefaultColumnWidth = 12

// truncTail marks text cut to fit a column.
const truncTail = "…"

// Source is the grid content the view draws.
type Source interface {
	ColumnCount() int
	RowCount() int
	ColumnName(position int) string
	Cell(column, row int) string
}

// Selection is the selection state the view highlights.
type Selection interface {
	IsCellPositionSelected(column, row int) bool
	LastSelected() grid.Position
	SelectedCellCount() int
}

// Styles are the faces used by the view.
type Styles struct {
	Header   tcell.Style
	Gutter   tcell.Style
	Cell     tcell.Style
	Selected tcell.Style
	Cursor   tcell.Style
	Status   tcell.Style
}

// DefaultStyles returns the built-in faces.
func DefaultStyles() Styles {
	base := tcell.StyleDefault
	return Styles{
		Header:   base.Bold(true).Underline(true),
		Gutter:   base.Foreground(tcell.ColorGray),
		Cell:     base,
		Selected: base.Reverse(true),
		Cursor:   base.Reverse(true).Bold(true).Underline(true),
		Status:   base.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite),
	}
}

// Option configures a View.
type Option func(*View)

// WithColumnWidth sets the width of every column.
func WithColumnWidth(w int) Option {
	return func(v *View) {
		if w >= 2 {
			v.colWidth = w
		}
	}
}

// WithStyles replaces the default faces.
func WithStyles(s Styles) Option {
	return func(v *View) { v.styles = s }
}

// View renders a Source and Selection.
type View struct {
	screen   tcell.Screen
	src      Source
	sel      Selection
	styles   Styles
	colWidth int

	// top-left visible cell
	top, left int
	status    string
}

// New creates a view drawing on screen.
func New(screen tcell.Screen, src Source, sel Selection, opts ...Option) *View {
	v := &View{
		screen:   screen,
		src:      src,
		sel:      sel,
		styles:   DefaultStyles(),
		colWidth: DefaultColumnWidth,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// SetStatus sets the message shown on the status line.
func (v *View) SetStatus(format string, args ...any) {
	v.status = fmt.Sprintf(format, args...)
}

// Status returns the status message.
func (v *View) Status() string { return v.status }

// Origin returns the top-left visible cell.
func (v *View) Origin() grid.Position { return grid.Pos(v.left, v.top) }

func (v *View) gutterWidth() int {
	return max(4, len(strconv.Itoa(v.src.RowCount()))+1)
}

// visible returns how many columns and rows fit on screen.
func (v *View) visible() (cols, rows int) {
	w, h := v.screen.Size()
	cols = max(0, (w-v.gutterWidth())/v.colWidth)
	if (w-v.gutterWidth())%v.colWidth != 0 {
		cols++
	}
	return cols, max(0, h-2)
}

// EnsureVisible scrolls so that p is on screen.
func (v *View) EnsureVisible(p grid.Position) {
	if !p.IsValid() {
		return
	}
	w, _ := v.screen.Size()
	fullCols := max(1, (w-v.gutterWidth())/v.colWidth)
	_, rows := v.visible()
	rows = max(1, rows)

	switch {
	case p.Row < v.top:
		v.top = p.Row
	case p.Row >= v.top+rows:
		v.top = p.Row - rows + 1
	}
	switch {
	case p.Column < v.left:
		v.left = p.Column
	case p.Column >= v.left+fullCols:
		v.left = p.Column - fullCols + 1
	}
}

// clampOrigin keeps the origin inside the grid after it shrinks.
func (v *View) clampOrigin() {
	v.top = max(0, min(v.top, v.src.RowCount()-1))
	v.left = max(0, min(v.left, v.src.ColumnCount()-1))
}

// Draw renders the header, the visible cells and the status line, then
// shows the screen.
func (v *View) Draw() {
	v.clampOrigin()
	v.EnsureVisible(v.sel.LastSelected())
	v.screen.Clear()

	w, h := v.screen.Size()
	gutter := v.gutterWidth()
	cols, rows := v.visible()
	last := v.sel.LastSelected()

	v.put(0, 0, gutter, "", v.styles.Gutter)
	for i := 0; i < cols; i++ {
		c := v.left + i
		if c >= v.src.ColumnCount() {
			break
		}
		v.put(gutter+i*v.colWidth, 0, v.colWidth, v.src.ColumnName(c), v.styles.Header)
	}

	for j := 0; j < rows; j++ {
		r := v.top + j
		if r >= v.src.RowCount() {
			break
		}
		y := j + 1
		v.put(0, y, gutter, strconv.Itoa(r+1), v.styles.Gutter)
		for i := 0; i < cols; i++ {
			c := v.left + i
			if c >= v.src.ColumnCount() {
				break
			}
			style := v.styles.Cell
			switch {
			case grid.Pos(c, r) == last:
				style = v.styles.Cursor
			case v.sel.IsCellPositionSelected(c, r):
				style = v.styles.Selected
			}
			x := gutter + i*v.colWidth
			v.put(x, y, v.colWidth-1, v.src.Cell(c, r), style)
			v.put(x+v.colWidth-1, y, 1, "", v.styles.Cell)
		}
	}

	if h > 1 {
		v.put(0, h-1, w, v.statusLine(), v.styles.Status)
	}
	v.screen.Show()
}

func (v *View) statusLine() string {
	pos := "-"
	if p := v.sel.LastSelected(); p.IsValid() {
		pos = fmt.Sprintf("R%dC%d", p.Row+1, p.Column+1)
	}
	line := fmt.Sprintf(" %s  %d selected  %dx%d", pos, v.sel.SelectedCellCount(), v.src.ColumnCount(), v.src.RowCount())
	if v.status != "" {
		line += "  " + v.status
	}
	return line
}

// put writes text into a field of width cells at (x, y), truncating wide
// text and padding short text with spaces.
func (v *View) put(x, y, width int, text string, style tcell.Style) {
	if width <= 0 {
		return
	}
	if runewidth.StringWidth(text) > width {
		text = runewidth.Truncate(text, width, truncTail)
	}
	text = runewidth.FillRight(text, width)
	for _, r := range text {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		v.screen.SetContent(x, y, r, nil, style)
		x += rw
	}
}

// CellAt maps screen coordinates to a grid position. ok is false outside
// the cell area.
func (v *View) CellAt(x, y int) (p grid.Position, ok bool) {
	gutter := v.gutterWidth()
	cols, rows := v.visible()
	if x < gutter || y < 1 || y > rows {
		return grid.NoPosition, false
	}
	i := (x - gutter) / v.colWidth
	if i >= cols {
		return grid.NoPosition, false
	}
	c, r := v.left+i, v.top+y-1
	if c >= v.src.ColumnCount() || r >= v.src.RowCount() {
		return grid.NoPosition, false
	}
	return grid.Pos(c, r), true
}
