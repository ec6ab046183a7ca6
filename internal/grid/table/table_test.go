package table

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/dshills/gridsel/internal/event"
	"github.com/dshills/gridsel/internal/event/events"
	"github.com/dshills/gridsel/internal/grid"
)

type capture struct {
	topics []event.Topic
	last   events.Structural
}

func (c *capture) Publish(_ context.Context, ev any) error {
	if s, ok := event.Payload[events.Structural](ev); ok {
		c.topics = append(c.topics, ev.(event.TopicProvider).EventTopic())
		c.last = s
	}
	return nil
}

func sample(opts ...Option) *Table {
	return FromRecords([][]string{
		{"id", "name", "qty"},
		{"a", "apple", "3"},
		{"b", "banana", "12"},
		{"c", "cherry", "7"},
		{"d", "date", ""},
	}, opts...)
}

func TestFromRecords(t *testing.T) {
	tb := sample()
	if tb.ColumnCount() != 3 || tb.RowCount() != 4 {
		t.Fatalf("size = %dx%d, want 3x4", tb.ColumnCount(), tb.RowCount())
	}
	if got := tb.Cell(1, 2); got != "cherry" {
		t.Errorf("Cell(1,2) = %q, want cherry", got)
	}
	if got := tb.Cell(5, 5); got != "" {
		t.Errorf("out of range Cell = %q", got)
	}

	ragged := FromRecords([][]string{{"x"}, {"1", "2", "3"}})
	if got := ragged.ColumnNames(); !reflect.DeepEqual(got, []string{"x", "B", "C"}) {
		t.Errorf("ColumnNames() = %v", got)
	}
}

func TestColumnLetter(t *testing.T) {
	tests := map[int]string{0: "A", 25: "Z", 26: "AA", 27: "AB", 701: "ZZ", 702: "AAA"}
	for in, want := range tests {
		if got := ColumnLetter(in); got != want {
			t.Errorf("ColumnLetter(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestHideShowRows(t *testing.T) {
	rec := &capture{}
	tb := sample(WithPublisher(rec))

	tb.HideRows(1, 2)
	if tb.RowCount() != 2 || tb.Cell(1, 1) != "date" {
		t.Fatalf("after hide: rows=%d cell=%q", tb.RowCount(), tb.Cell(1, 1))
	}
	if rec.last.Kind != events.KindHidden || !reflect.DeepEqual(rec.last.Positions, []int{1, 2}) {
		t.Errorf("hide event = %+v", rec.last)
	}
	if got := tb.RowPositionByIndex(1); got != grid.NoSelection {
		t.Errorf("hidden row position = %d, want NoSelection", got)
	}
	if got := tb.HiddenRows(); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("HiddenRows() = %v", got)
	}

	tb.ShowRows(2, 99)
	if rec.last.Kind != events.KindShown || !reflect.DeepEqual(rec.last.Positions, []int{1}) || !reflect.DeepEqual(rec.last.Indexes, []int{2}) {
		t.Errorf("show event = %+v", rec.last)
	}
	if tb.Cell(1, 1) != "cherry" {
		t.Errorf("Cell(1,1) = %q, want cherry", tb.Cell(1, 1))
	}

	n := len(rec.topics)
	tb.ShowRows(2)
	if len(rec.topics) != n {
		t.Error("showing a visible row published an event")
	}
}

func TestInsertDeleteKeepsIndexes(t *testing.T) {
	rec := &capture{}
	tb := sample(WithPublisher(rec))

	tb.InsertRows(1, 2)
	if tb.RowCount() != 6 {
		t.Fatalf("RowCount() = %d, want 6", tb.RowCount())
	}
	if !reflect.DeepEqual(rec.last.Positions, []int{1, 2}) || !reflect.DeepEqual(rec.last.Indexes, []int{4, 5}) {
		t.Errorf("insert event = %+v", rec.last)
	}

	tb.DeleteRows(0, 0, 42)
	if !reflect.DeepEqual(rec.last.Positions, []int{0}) || !reflect.DeepEqual(rec.last.Indexes, []int{0}) {
		t.Errorf("delete event = %+v", rec.last)
	}
	if got := tb.RowIndexByPosition(0); got != 4 {
		t.Errorf("RowIndexByPosition(0) = %d, want 4", got)
	}

	tb.InsertRows(100, 1)
	if got := tb.RowIndexByPosition(tb.RowCount() - 1); got != 6 {
		t.Errorf("appended row index = %d, want 6 (indexes are never reused)", got)
	}
}

func TestColumns(t *testing.T) {
	rec := &capture{}
	tb := sample(WithPublisher(rec))

	tb.InsertColumns(1, "color")
	if got := tb.ColumnNames(); !reflect.DeepEqual(got, []string{"id", "color", "name", "qty"}) {
		t.Errorf("ColumnNames() = %v", got)
	}
	tb.HideColumns(0)
	if rec.last.Axis != grid.Columns || rec.last.Kind != events.KindHidden {
		t.Errorf("event = %+v", rec.last)
	}
	if pos, err := tb.ColumnPositionByName("NAME"); err != nil || pos != 1 {
		t.Errorf("ColumnPositionByName() = %d, %v", pos, err)
	}
	tb.DeleteColumns(0)
	if got := tb.ColumnNames(); !reflect.DeepEqual(got, []string{"name", "qty"}) {
		t.Errorf("ColumnNames() = %v", got)
	}
	tb.ShowColumns(0)
	if got := tb.ColumnNames(); !reflect.DeepEqual(got, []string{"id", "name", "qty"}) {
		t.Errorf("ColumnNames() after show = %v", got)
	}
	if _, err := tb.ColumnPositionByName("missing"); err == nil {
		t.Error("ColumnPositionByName(missing) succeeded")
	}
}

func TestSortRowsRefreshes(t *testing.T) {
	rec := &capture{}
	tb := sample(WithPublisher(rec), WithKeyColumn("id"))

	tb.SortRows(2, false)
	var got []string
	for r := 0; r < tb.RowCount(); r++ {
		id, _ := tb.RowIdentity(r)
		got = append(got, id)
	}
	if want := []string{"a", "c", "b", "d"}; !reflect.DeepEqual(got, want) {
		t.Errorf("order after numeric sort = %v, want %v", got, want)
	}
	if rec.topics[len(rec.topics)-1] != events.TopicRowsRefreshed {
		t.Errorf("topic = %v, want %v", rec.topics[len(rec.topics)-1], events.TopicRowsRefreshed)
	}

	tb.Clear()
	if tb.RowCount() != 0 || rec.last.Kind != events.KindCleared {
		t.Errorf("Clear: rows=%d event=%+v", tb.RowCount(), rec.last)
	}
}

func TestSortRowsText(t *testing.T) {
	tests := []struct {
		name       string
		descending bool
		want       []string
	}{
		{"ascending ignores case", false, []string{"7", "apple", "Banana", "cherry"}},
		{"descending", true, []string{"cherry", "Banana", "apple", "7"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := FromRecords([][]string{{"name"}, {"cherry"}, {"Banana"}, {"7"}, {"apple"}})
			tb.SortRows(0, tt.descending)
			var got []string
			for r := 0; r < tb.RowCount(); r++ {
				got = append(got, tb.Cell(0, r))
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SortRows() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRowIdentityDefaultsToIndex(t *testing.T) {
	tb := sample()
	tb.DeleteRows(0)
	if id, ok := tb.RowIdentity(0); !ok || id != "1" {
		t.Errorf("RowIdentity(0) = %q, %v", id, ok)
	}
	if _, ok := tb.RowIdentity(10); ok {
		t.Error("RowIdentity out of range reported ok")
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.xlsx")
	if err := sample().WriteXLSX(path, "Fruit"); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	tb, err := FromXLSX(path, "Fruit")
	if err != nil {
		t.Fatalf("FromXLSX() error = %v", err)
	}
	if !reflect.DeepEqual(tb.Records(), sample().Records()) {
		t.Errorf("Records() = %v", tb.Records())
	}
}

func TestFromXLSXActiveSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_ = f.SetCellValue("Sheet1", "A1", "h")
	_ = f.SetCellValue("Sheet1", "A2", 42)
	path := filepath.Join(t.TempDir(), "active.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	tb, err := FromXLSX(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if tb.Cell(0, 0) != "42" {
		t.Errorf("Cell(0,0) = %q, want 42", tb.Cell(0, 0))
	}

	if _, err := FromXLSX(filepath.Join(t.TempDir(), "missing.xlsx"), ""); err == nil {
		t.Error("FromXLSX(missing) succeeded")
	}
}
