// Package table provides an in-memory grid of string cells.
//
// Rows and columns carry stable indexes assigned at creation and never
// reused. Hidden rows and columns keep their index but have no visible
// position. Every structural edit publishes an events.Structural
// notification so selection adapters can follow along.
package table

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/dshills/gridsel/internal/event"
	"github.com/dshills/gridsel/internal/event/events"
	"github.com/dshills/gridsel/internal/grid"
	"github.com/dshills/gridsel/internal/logging"
)

// EventSource is the Metadata.Source of events published by a Table.
const EventSource = "table"

// ErrUnknownColumn is returned when a column name cannot be resolved.
var ErrUnknownColumn = errors.New("table: unknown column")

type line struct {
	index  int
	hidden bool
}

type column struct {
	line
	name string
}

type row struct {
	line
	cells map[int]string // keyed by column index
}

// Option configures a Table.
type Option func(*Table)

// WithPublisher sets the sink for structural events.
func WithPublisher(p event.Publisher) Option {
	return func(t *Table) {
		t.publisher = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(t *Table) {
		if l != nil {
			t.logger = l.WithComponent("table")
		}
	}
}

// WithKeyColumn names the column whose values identify rows.
func WithKeyColumn(name string) Option {
	return func(t *Table) {
		t.keyColumn = name
	}
}

// Table is an in-memory grid. It is not safe for concurrent use.
type Table struct {
	columns []*column
	rows    []*row

	// visible position -> slice offset, rebuilt after every edit
	visibleColumns []int
	visibleRows    []int

	nextColumn int
	nextRow    int

	keyColumn string
	publisher event.Publisher
	logger    *logging.Logger
}

// New creates a table with the given column names and no rows.
func New(columns []string, opts ...Option) *Table {
	t := &Table{logger: logging.Discard()}
	for _, opt := range opts {
		opt(t)
	}
	for _, name := range columns {
		t.columns = append(t.columns, t.newColumn(name))
	}
	t.reindex()
	return t
}

// FromRecords creates a table whose first record is the header.
func FromRecords(records [][]string, opts ...Option) *Table {
	if len(records) == 0 {
		return New(nil, opts...)
	}
	header := records[0]
	width := len(header)
	for _, r := range records[1:] {
		width = max(width, len(r))
	}
	names := make([]string, width)
	for i := range names {
		if i < len(header) && header[i] != "" {
			names[i] = header[i]
		} else {
			names[i] = ColumnLetter(i)
		}
	}

	t := New(names, opts...)
	for _, rec := range records[1:] {
		r := t.newRow()
		for i, v := range rec {
			if v != "" {
				r.cells[t.columns[i].index] = v
			}
		}
		t.rows = append(t.rows, r)
	}
	t.reindex()
	return t
}

func (t *Table) newColumn(name string) *column {
	c := &column{line: line{index: t.nextColumn}, name: name}
	t.nextColumn++
	return c
}

func (t *Table) newRow() *row {
	r := &row{line: line{index: t.nextRow}, cells: map[int]string{}}
	t.nextRow++
	return r
}

func (t *Table) reindex() {
	t.visibleColumns = t.visibleColumns[:0]
	for i, c := range t.columns {
		if !c.hidden {
			t.visibleColumns = append(t.visibleColumns, i)
		}
	}
	t.visibleRows = t.visibleRows[:0]
	for i, r := range t.rows {
		if !r.hidden {
			t.visibleRows = append(t.visibleRows, i)
		}
	}
}

// ColumnCount returns the number of visible columns.
func (t *Table) ColumnCount() int { return len(t.visibleColumns) }

// RowCount returns the number of visible rows.
func (t *Table) RowCount() int { return len(t.visibleRows) }

// TotalRows returns the number of rows including hidden ones.
func (t *Table) TotalRows() int { return len(t.rows) }

// TotalColumns returns the number of columns including hidden ones.
func (t *Table) TotalColumns() int { return len(t.columns) }

func (t *Table) columnAt(position int) *column {
	if position < 0 || position >= len(t.visibleColumns) {
		return nil
	}
	return t.columns[t.visibleColumns[position]]
}

func (t *Table) rowAt(position int) *row {
	if position < 0 || position >= len(t.visibleRows) {
		return nil
	}
	return t.rows[t.visibleRows[position]]
}

// ColumnIndexByPosition implements grid.IndexMapper.
func (t *Table) ColumnIndexByPosition(position int) int {
	if c := t.columnAt(position); c != nil {
		return c.index
	}
	return grid.NoSelection
}

// ColumnPositionByIndex implements grid.IndexMapper.
func (t *Table) ColumnPositionByIndex(index int) int {
	for pos, off := range t.visibleColumns {
		if t.columns[off].index == index {
			return pos
		}
	}
	return grid.NoSelection
}

// RowIndexByPosition implements grid.IndexMapper.
func (t *Table) RowIndexByPosition(position int) int {
	if r := t.rowAt(position); r != nil {
		return r.index
	}
	return grid.NoSelection
}

// RowPositionByIndex implements grid.IndexMapper.
func (t *Table) RowPositionByIndex(index int) int {
	for pos, off := range t.visibleRows {
		if t.rows[off].index == index {
			return pos
		}
	}
	return grid.NoSelection
}

// ColumnName returns the name of the visible column at position.
func (t *Table) ColumnName(position int) string {
	if c := t.columnAt(position); c != nil {
		return c.name
	}
	return ""
}

// ColumnNames returns the names of the visible columns.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.visibleColumns))
	for i := range out {
		out[i] = t.ColumnName(i)
	}
	return out
}

// ColumnPositionByName returns the visible position of the named column.
func (t *Table) ColumnPositionByName(name string) (int, error) {
	for pos, off := range t.visibleColumns {
		if strings.EqualFold(t.columns[off].name, name) {
			return pos, nil
		}
	}
	return grid.NoSelection, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}

// Cell returns the text of the visible cell at (column, row).
func (t *Table) Cell(column, row int) string {
	c, r := t.columnAt(column), t.rowAt(row)
	if c == nil || r == nil {
		return ""
	}
	return r.cells[c.index]
}

// SetCell sets the text of the visible cell at (column, row).
func (t *Table) SetCell(column, row int, value string) {
	c, r := t.columnAt(column), t.rowAt(row)
	if c == nil || r == nil {
		return
	}
	if value == "" {
		delete(r.cells, c.index)
		return
	}
	r.cells[c.index] = value
}

// RowIdentity returns a stable identity for the visible row at position:
// the key column's value when a key column is configured, otherwise the
// row's stable index.
func (t *Table) RowIdentity(position int) (string, bool) {
	r := t.rowAt(position)
	if r == nil {
		return "", false
	}
	if t.keyColumn != "" {
		for _, c := range t.columns {
			if strings.EqualFold(c.name, t.keyColumn) {
				v, ok := r.cells[c.index]
				return v, ok && v != ""
			}
		}
	}
	return strconv.Itoa(r.index), true
}

// InsertRows inserts count empty rows before the visible row at position.
// A position at or past the end appends.
func (t *Table) InsertRows(position, count int) {
	if count <= 0 {
		return
	}
	position = clampInsert(position, len(t.visibleRows))
	at := len(t.rows)
	if position < len(t.visibleRows) {
		at = t.visibleRows[position]
	}
	added := make([]*row, count)
	for i := range added {
		added[i] = t.newRow()
	}
	t.rows = append(t.rows[:at], append(added, t.rows[at:]...)...)
	t.reindex()

	positions, indexes := make([]int, count), make([]int, count)
	for i, r := range added {
		positions[i] = position + i
		indexes[i] = r.index
	}
	t.publish(grid.Rows, events.KindInserted, positions, indexes)
}

// InsertColumns inserts named empty columns before the visible column at
// position.
func (t *Table) InsertColumns(position int, names ...string) {
	if len(names) == 0 {
		return
	}
	position = clampInsert(position, len(t.visibleColumns))
	at := len(t.columns)
	if position < len(t.visibleColumns) {
		at = t.visibleColumns[position]
	}
	added := make([]*column, len(names))
	for i, name := range names {
		added[i] = t.newColumn(name)
	}
	t.columns = append(t.columns[:at], append(added, t.columns[at:]...)...)
	t.reindex()

	positions, indexes := make([]int, len(added)), make([]int, len(added))
	for i, c := range added {
		positions[i] = position + i
		indexes[i] = c.index
	}
	t.publish(grid.Columns, events.KindInserted, positions, indexes)
}

// DeleteRows removes the visible rows at positions. Positions that do not
// exist are ignored.
func (t *Table) DeleteRows(positions ...int) {
	offsets, pos, idx := t.resolveRows(positions)
	if len(offsets) == 0 {
		return
	}
	t.rows = removeOffsets(t.rows, offsets)
	t.reindex()
	t.publish(grid.Rows, events.KindDeleted, pos, idx)
}

// DeleteColumns removes the visible columns at positions.
func (t *Table) DeleteColumns(positions ...int) {
	offsets, pos, idx := t.resolveColumns(positions)
	if len(offsets) == 0 {
		return
	}
	for _, off := range offsets {
		ci := t.columns[off].index
		for _, r := range t.rows {
			delete(r.cells, ci)
		}
	}
	t.columns = removeOffsets(t.columns, offsets)
	t.reindex()
	t.publish(grid.Columns, events.KindDeleted, pos, idx)
}

// HideRows hides the visible rows at positions.
func (t *Table) HideRows(positions ...int) {
	offsets, pos, idx := t.resolveRows(positions)
	if len(offsets) == 0 {
		return
	}
	for _, off := range offsets {
		t.rows[off].hidden = true
	}
	t.reindex()
	t.publish(grid.Rows, events.KindHidden, pos, idx)
}

// HideColumns hides the visible columns at positions.
func (t *Table) HideColumns(positions ...int) {
	offsets, pos, idx := t.resolveColumns(positions)
	if len(offsets) == 0 {
		return
	}
	for _, off := range offsets {
		t.columns[off].hidden = true
	}
	t.reindex()
	t.publish(grid.Columns, events.KindHidden, pos, idx)
}

// ShowRows shows hidden rows by stable index. Unknown or visible indexes
// are ignored.
func (t *Table) ShowRows(indexes ...int) {
	wanted := make(map[int]bool, len(indexes))
	for _, i := range indexes {
		wanted[i] = true
	}
	shown := map[int]bool{}
	for _, r := range t.rows {
		if r.hidden && wanted[r.index] {
			r.hidden = false
			shown[r.index] = true
		}
	}
	if len(shown) == 0 {
		return
	}
	t.reindex()
	var pos, idx []int
	for p, off := range t.visibleRows {
		if i := t.rows[off].index; shown[i] {
			pos, idx = append(pos, p), append(idx, i)
		}
	}
	t.publish(grid.Rows, events.KindShown, pos, idx)
}

// ShowColumns shows hidden columns by stable index.
func (t *Table) ShowColumns(indexes ...int) {
	wanted := make(map[int]bool, len(indexes))
	for _, i := range indexes {
		wanted[i] = true
	}
	shown := map[int]bool{}
	for _, c := range t.columns {
		if c.hidden && wanted[c.index] {
			c.hidden = false
			shown[c.index] = true
		}
	}
	if len(shown) == 0 {
		return
	}
	t.reindex()
	var pos, idx []int
	for p, off := range t.visibleColumns {
		if i := t.columns[off].index; shown[i] {
			pos, idx = append(pos, p), append(idx, i)
		}
	}
	t.publish(grid.Columns, events.KindShown, pos, idx)
}

// HiddenRows returns the stable indexes of hidden rows.
func (t *Table) HiddenRows() []int {
	var out []int
	for _, r := range t.rows {
		if r.hidden {
			out = append(out, r.index)
		}
	}
	return out
}

// HiddenColumns returns the stable indexes of hidden columns.
func (t *Table) HiddenColumns() []int {
	var out []int
	for _, c := range t.columns {
		if c.hidden {
			out = append(out, c.index)
		}
	}
	return out
}

// SortRows reorders all rows by the visible column at position, stably.
// Values that parse as numbers sort numerically before text; text is
// collated case-insensitively.
func (t *Table) SortRows(column int, descending bool) {
	c := t.columnAt(column)
	if c == nil {
		return
	}
	coll := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(t.rows, func(i, j int) bool {
		a, b := t.rows[i].cells[c.index], t.rows[j].cells[c.index]
		if descending {
			a, b = b, a
		}
		return lessCell(coll, a, b)
	})
	t.reindex()
	t.publish(grid.Rows, events.KindRefreshed, nil, nil)
}

// Replace swaps every row for the given records, keeping the columns.
// The result is a coarse refresh.
func (t *Table) Replace(records [][]string) {
	t.rows = t.rows[:0]
	for _, rec := range records {
		r := t.newRow()
		for i, v := range rec {
			if i < len(t.columns) && v != "" {
				r.cells[t.columns[i].index] = v
			}
		}
		t.rows = append(t.rows, r)
	}
	t.reindex()
	t.publish(grid.Columns, events.KindRefreshed, nil, nil)
}

// Clear removes every row.
func (t *Table) Clear() {
	t.rows = nil
	t.reindex()
	t.publish(grid.Rows, events.KindCleared, nil, nil)
}

// Records returns the visible cells, header first.
func (t *Table) Records() [][]string {
	out := [][]string{t.ColumnNames()}
	for r := range t.visibleRows {
		rec := make([]string, len(t.visibleColumns))
		for c := range rec {
			rec[c] = t.Cell(c, r)
		}
		out = append(out, rec)
	}
	return out
}

func (t *Table) resolveRows(positions []int) (offsets, pos, idx []int) {
	for _, sp := range grid.SpansFromPositions(positions) {
		for p := sp.Start; p < sp.End && p < len(t.visibleRows); p++ {
			off := t.visibleRows[p]
			offsets = append(offsets, off)
			pos = append(pos, p)
			idx = append(idx, t.rows[off].index)
		}
	}
	return offsets, pos, idx
}

func (t *Table) resolveColumns(positions []int) (offsets, pos, idx []int) {
	for _, sp := range grid.SpansFromPositions(positions) {
		for p := sp.Start; p < sp.End && p < len(t.visibleColumns); p++ {
			off := t.visibleColumns[p]
			offsets = append(offsets, off)
			pos = append(pos, p)
			idx = append(idx, t.columns[off].index)
		}
	}
	return offsets, pos, idx
}

func (t *Table) publish(axis grid.Axis, kind events.Kind, positions, indexes []int) {
	t.logger.Debug("structure changed", "axis", axis, "kind", kind, "count", len(positions))
	if t.publisher == nil {
		return
	}
	s := events.Structural{Axis: axis, Kind: kind, Positions: positions, Indexes: indexes}
	if err := t.publisher.Publish(context.Background(), events.NewStructural(EventSource, s)); err != nil {
		t.logger.Warn("structural notification failed", "kind", kind, "error", err)
	}
}

// removeOffsets drops the elements at the given ascending offsets.
func removeOffsets[T any](s []T, offsets []int) []T {
	out := s[:0]
	next := 0
	for i, v := range s {
		if next < len(offsets) && offsets[next] == i {
			next++
			continue
		}
		out = append(out, v)
	}
	var zero T
	for i := len(out); i < len(s); i++ {
		s[i] = zero
	}
	return out
}

func clampInsert(position, n int) int {
	if position < 0 {
		return 0
	}
	return min(position, n)
}

func lessCell(coll *collate.Collator, a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	switch {
	case errA == nil && errB == nil:
		return fa < fb
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return coll.CompareString(a, b) < 0
}

// ColumnLetter returns the spreadsheet-style name of a zero-based column:
// A, B, ..., Z, AA, AB, ...
func ColumnLetter(i int) string {
	var b []byte
	for i++; i > 0; i = (i - 1) / 26 {
		b = append([]byte{byte('A' + (i-1)%26)}, b...)
	}
	return string(b)
}
