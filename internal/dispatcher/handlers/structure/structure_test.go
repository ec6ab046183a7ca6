package structure

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/dshills/gridsel/internal/dispatcher/handler"
	"github.com/dshills/gridsel/internal/grid/table"
)

type fixedTargets struct{ rows, columns []int }

func (f fixedTargets) FullySelectedRowPositions() []int    { return f.rows }
func (f fixedTargets) FullySelectedColumnPositions() []int { return f.columns }

func newTable() *table.Table {
	return table.FromRecords([][]string{
		{"name", "qty"},
		{"pear", "3"},
		{"apple", "10"},
		{"fig", "1"},
	})
}

func run(t *testing.T, h *Handler, name string, args handler.Args) handler.Result {
	t.Helper()
	return h.HandleAction(context.Background(), handler.NewAction(name, args))
}

func TestInsertAndDelete(t *testing.T) {
	tbl := newTable()
	h := NewHandler(tbl)

	res := run(t, h, ActionInsertRows, handler.Args{"position": 1, "count": 2})
	if !res.IsOK() || res.GetDataInt("rows") != 5 {
		t.Fatalf("insertRows = %v (%v)", res, res.Data)
	}
	if got := tbl.Cell(0, 3); got != "apple" {
		t.Errorf("row 3 after insert = %q, want apple", got)
	}

	res = run(t, h, ActionDeleteRows, handler.Args{"rows": []any{1, 2}})
	if !res.IsOK() || tbl.RowCount() != 3 {
		t.Fatalf("deleteRows = %v, rows = %d", res, tbl.RowCount())
	}

	res = run(t, h, ActionInsertColumns, handler.Args{"position": 0, "names": []any{"id"}})
	if !res.IsOK() || tbl.ColumnName(0) != "id" {
		t.Errorf("insertColumns = %v, first = %q", res, tbl.ColumnName(0))
	}
	res = run(t, h, ActionInsertColumns, handler.Args{})
	if !res.IsOK() || tbl.ColumnCount() != 4 || tbl.ColumnName(3) != "D" {
		t.Errorf("insertColumns default = %v, names = %v", res, tbl.ColumnNames())
	}

	res = run(t, h, ActionDeleteColumns, handler.Args{"columns": "0,3"})
	if !res.IsOK() || !reflect.DeepEqual(tbl.ColumnNames(), []string{"name", "qty"}) {
		t.Errorf("deleteColumns = %v, names = %v", res, tbl.ColumnNames())
	}
}

func TestTargetsFallback(t *testing.T) {
	tbl := newTable()
	h := NewHandler(tbl)
	res := run(t, h, ActionDeleteRows, nil)
	if !errors.Is(res.Error, ErrNothingTargeted) {
		t.Errorf("deleteRows without targets = %v", res)
	}

	h = NewHandler(tbl, WithTargets(fixedTargets{rows: []int{0}, columns: []int{1}}))
	if res := run(t, h, ActionHideRows, nil); !res.IsOK() {
		t.Fatal(res)
	}
	if tbl.RowCount() != 2 || tbl.Cell(0, 0) != "apple" {
		t.Errorf("hideRows fallback left %d rows, first %q", tbl.RowCount(), tbl.Cell(0, 0))
	}
	if res := run(t, h, ActionHideColumns, nil); !res.IsOK() || tbl.ColumnCount() != 1 {
		t.Errorf("hideColumns = %v, columns = %d", res, tbl.ColumnCount())
	}

	run(t, h, ActionShowRows, nil)
	run(t, h, ActionShowColumns, nil)
	if tbl.RowCount() != 3 || tbl.ColumnCount() != 2 {
		t.Errorf("show all = %dx%d, want 2x3", tbl.ColumnCount(), tbl.RowCount())
	}
}

func TestSort(t *testing.T) {
	tbl := newTable()
	h := NewHandler(tbl)

	tests := []struct {
		args handler.Args
		want []string
		err  bool
	}{
		{handler.Args{"column": 1}, []string{"fig", "pear", "apple"}, false},
		{handler.Args{"column": 0, "descending": true}, []string{"pear", "fig", "apple"}, false},
		{handler.Args{}, nil, true},
		{handler.Args{"column": 9}, nil, true},
	}
	for _, tt := range tests {
		res := run(t, h, ActionSort, tt.args)
		if tt.err {
			if !res.IsError() {
				t.Errorf("sort(%v) = %v, want error", tt.args, res)
			}
			continue
		}
		var got []string
		for r := 0; r < tbl.RowCount(); r++ {
			got = append(got, tbl.Cell(0, r))
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("sort(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}

func TestReplaceClearSetCell(t *testing.T) {
	tbl := newTable()
	h := NewHandler(tbl)

	res := run(t, h, ActionReplace, handler.Args{"records": []any{[]any{"kiwi", 4}, []any{"lime", nil}}})
	if !res.IsOK() || tbl.RowCount() != 2 || tbl.Cell(1, 0) != "4" {
		t.Fatalf("replace = %v, rows = %v", res, tbl.Records())
	}
	if res := run(t, h, ActionReplace, handler.Args{"records": "x"}); !res.IsError() {
		t.Errorf("replace with bad records = %v", res)
	}

	if res := run(t, h, ActionSetCell, handler.Args{"column": 1, "row": 1, "value": "9"}); !res.IsOK() || tbl.Cell(1, 1) != "9" {
		t.Errorf("setCell = %v, cell = %q", res, tbl.Cell(1, 1))
	}
	if res := run(t, h, ActionSetCell, handler.Args{"value": "9"}); !res.IsError() {
		t.Errorf("setCell without position = %v", res)
	}

	if res := run(t, h, ActionClear, nil); !res.IsOK() || tbl.RowCount() != 0 {
		t.Errorf("clear = %v, rows = %d", res, tbl.RowCount())
	}
}
