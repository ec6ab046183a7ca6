package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"strings"

	"github.com/dshills/gridsel/internal/app"
	"github.com/dshills/gridsel/internal/dispatcher"
	"github.com/dshills/gridsel/internal/dispatcher/handler"
	"github.com/dshills/gridsel/internal/event"
	"github.com/dshills/gridsel/internal/event/events"
	"github.com/dshills/gridsel/internal/grid"
	"github.com/dshills/gridsel/internal/logging"
)

// StepError reports a failed expectation.
type StepError struct {
	Index  int // 1-based
	Action string
	Field  string
	Want   any
	Got    any
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %s: want %v, got %v", e.Index, e.Action, e.Field, e.Want, e.Got)
}

// StepResult is the outcome of one step.
type StepResult struct {
	Index  int
	Action string
	Result handler.Result
	Events int
	Errors []error
}

// OK reports whether every expectation held.
func (r StepResult) OK() bool { return len(r.Errors) == 0 }

// Report is the outcome of a scenario.
type Report struct {
	Name  string
	Steps []StepResult
}

// Err joins every step error.
func (r *Report) Err() error {
	var errs []error
	for _, s := range r.Steps {
		errs = append(errs, s.Errors...)
	}
	return errors.Join(errs...)
}

// Passed reports whether the whole scenario held.
func (r *Report) Passed() bool { return r.Err() == nil }

// Write prints one line per step and the failures under it.
func (r *Report) Write(w io.Writer) error {
	verdict := "PASS"
	if !r.Passed() {
		verdict = "FAIL"
	}
	if _, err := fmt.Fprintf(w, "%s %s\n", verdict, r.Name); err != nil {
		return err
	}
	for _, s := range r.Steps {
		mark := "ok  "
		if !s.OK() {
			mark = "FAIL"
		}
		if _, err := fmt.Fprintf(w, "  %s %3d %s (%s)\n", mark, s.Index, s.Action, s.Result.Status); err != nil {
			return err
		}
		for _, e := range s.Errors {
			if _, err := fmt.Fprintf(w, "         %v\n", e); err != nil {
				return err
			}
		}
	}
	return nil
}

// Option configures Run.
type Option func(*runner)

// WithLogger logs each step.
func WithLogger(l *logging.Logger) Option {
	return func(r *runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithFailFast stops at the first failed step.
func WithFailFast(enabled bool) Option {
	return func(r *runner) { r.failFast = enabled }
}

type runner struct {
	logger   *logging.Logger
	failFast bool
	clip     *memClipboard
	events   int
}

type memClipboard struct{ text string }

func (m *memClipboard) WriteAll(text string) error {
	m.text = text
	return nil
}

// Run plays sc against a new session. The returned error is non-nil only
// when the session cannot be built; expectation failures are in the
// report.
func Run(ctx context.Context, sc *Scenario, opts ...Option) (*Report, error) {
	r := &runner{logger: logging.Discard(), clip: &memClipboard{}}
	for _, opt := range opts {
		opt(r)
	}
	logger := r.logger.WithComponent("replay").With("scenario", sc.Name)

	s, err := app.NewSession(sc.Config(),
		app.WithLogger(r.logger),
		app.WithRecords(sc.Records()),
		app.WithClipboardWriter(r.clip),
	)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	sub, err := s.Bus().SubscribeFunc(events.TopicSelectionChanged, func(context.Context, any) error {
		r.events++
		return nil
	}, event.WithPriority(event.PriorityLow))
	if err != nil {
		return nil, err
	}
	defer s.Bus().Unsubscribe(sub)

	s.Dispatcher().RegisterPreHook(dispatcher.PreDispatchFunc(func(_ context.Context, a *handler.Action) bool {
		a.Source = "replay"
		r.events = 0
		return true
	}))

	report := &Report{Name: sc.Name}
	for i, st := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		action := handler.NewAction(st.Action, handler.Args(st.Args))
		action.Count = st.Count

		res := s.Dispatch(ctx, action)
		sr := StepResult{Index: i + 1, Action: st.Action, Result: res, Events: r.events}
		if st.Expect != nil {
			sr.Errors = r.check(s, sr, st.Expect)
		} else if res.IsError() {
			sr.Errors = []error{&StepError{Index: sr.Index, Action: st.Action, Field: "status", Want: "no error", Got: res.Error}}
		}
		report.Steps = append(report.Steps, sr)
		logger.Debug("step", "index", sr.Index, "action", st.Action, "status", res.Status, "failures", len(sr.Errors))

		if r.failFast && !sr.OK() {
			break
		}
	}
	return report, nil
}

func (r *runner) check(s *app.Session, sr StepResult, e *Expect) []error {
	var errs []error
	fail := func(field string, want, got any) {
		errs = append(errs, &StepError{Index: sr.Index, Action: sr.Action, Field: field, Want: want, Got: got})
	}
	sel := s.Selection()
	res := sr.Result

	switch {
	case e.Status != "":
		if got := res.Status.String(); got != e.Status {
			fail("status", e.Status, fmt.Sprintf("%s (%v)", got, res.Error))
		}
	case res.IsError() && e.Error == "":
		fail("status", "no error", res.Error)
	}
	if e.Error != "" {
		if res.Error == nil || !strings.Contains(res.Error.Error(), e.Error) {
			fail("error", e.Error, res.Error)
		}
	}

	if e.Cells != nil {
		// Cells are listed column-major, the order the selection reports.
		want := positions(e.Cells)
		if got := sel.SelectedCellPositions(); !samePositions(want, got) {
			fail("cells", want, got)
		}
	}
	if e.Count != nil && sel.SelectedCellCount() != *e.Count {
		fail("count", *e.Count, sel.SelectedCellCount())
	}
	if e.Empty != nil && sel.IsEmpty() != *e.Empty {
		fail("empty", *e.Empty, sel.IsEmpty())
	}
	if e.Anchor != nil {
		if want := position(e.Anchor); sel.Anchor() != want {
			fail("anchor", want, sel.Anchor())
		}
	}
	if e.Last != nil {
		if want := position(e.Last); sel.LastSelected() != want {
			fail("last", want, sel.LastSelected())
		}
	}
	if e.Rects != nil {
		want := make([]grid.Rect, len(e.Rects))
		for i, r := range e.Rects {
			want[i] = grid.NewRect(r[0], r[1], r[2], r[3])
		}
		if got := sel.SelectedRects(); !sameRects(want, got) {
			fail("rects", want, got)
		}
	}
	if e.FullRows != nil {
		if got := sel.FullySelectedRowPositions(); !sameInts(*e.FullRows, got) {
			fail("full_rows", *e.FullRows, got)
		}
	}
	if e.FullColumns != nil {
		if got := sel.FullySelectedColumnPositions(); !sameInts(*e.FullColumns, got) {
			fail("full_columns", *e.FullColumns, got)
		}
	}
	if e.Events != nil && sr.Events != *e.Events {
		fail("events", *e.Events, sr.Events)
	}
	if e.Copied != nil && r.clip.text != *e.Copied {
		fail("copied", *e.Copied, r.clip.text)
	}
	if e.Size != nil {
		t := s.Table()
		if got := []int{t.ColumnCount(), t.RowCount()}; !slices.Equal(e.Size, got) {
			fail("size", e.Size, got)
		}
	}
	return errs
}

// position converts a validated [column, row] pair. [-1, -1] is the unset
// position.
func position(p []int) grid.Position {
	if p[0] < 0 || p[1] < 0 {
		return grid.NoPosition
	}
	return grid.Pos(p[0], p[1])
}

func positions(cells [][]int) []grid.Position {
	out := make([]grid.Position, len(cells))
	for i, c := range cells {
		out[i] = grid.Pos(c[0], c[1])
	}
	return out
}

func samePositions(a, b []grid.Position) bool {
	return len(a) == len(b) && (len(a) == 0 || reflect.DeepEqual(a, b))
}

// sameRects compares rectangle sets regardless of order.
func sameRects(want, got []grid.Rect) bool {
	if len(want) != len(got) {
		return false
	}
	used := make([]bool, len(got))
outer:
	for _, w := range want {
		for i, g := range got {
			if !used[i] && g == w {
				used[i] = true
				continue outer
			}
		}
		return false
	}
	return true
}

func sameInts(want, got []int) bool {
	return len(want) == len(got) && (len(want) == 0 || slices.Equal(want, got))
}
