// Package script compiles Lua target-validity predicates for traversal.
//
// A predicate script defines a global function
//
//	function valid(fromCol, fromRow, toCol, toRow) ... end
//
// returning a truthy value when the target cell is an acceptable landing.
// Scripts run in a state with only the base, table, string and math
// libraries. When cell text is supplied, cell(col, row) returns it; columns()
// and rows() report the grid size.
package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/gridsel/internal/grid"
	"github.com/dshills/gridsel/internal/logging"
	"github.com/dshills/gridsel/internal/traversal"
)

// FuncName is the global function a predicate script must define.
const FuncName = "valid"

// DefaultTimeout bounds one predicate evaluation.
const DefaultTimeout = 100 * time.Millisecond

var (
	// ErrNoFunction is returned when the script does not define valid.
	ErrNoFunction = errors.New("script: valid function not defined")

	// ErrClosed is returned by Eval after Close.
	ErrClosed = errors.New("script: predicate closed")
)

// CompileError reports a script that failed to load.
type CompileError struct {
	Name string
	Err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s: %v", e.Name, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Cells supplies cell text to scripts.
type Cells interface {
	Cell(column, row int) string
}

// Option configures a Predicate.
type Option func(*Predicate)

// WithTimeout bounds each evaluation.
func WithTimeout(d time.Duration) Option {
	return func(p *Predicate) { p.timeout = d }
}

// WithDimensions exposes columns() and rows().
func WithDimensions(d grid.Dimensions) Option {
	return func(p *Predicate) { p.dims = d }
}

// WithCells exposes cell(col, row).
func WithCells(c Cells) Option {
	return func(p *Predicate) { p.cells = c }
}

// WithLogger sets the logger used for runtime errors.
func WithLogger(l *logging.Logger) Option {
	return func(p *Predicate) {
		if l != nil {
			p.logger = l.WithComponent("script")
		}
	}
}

// WithName names the script in errors and logs.
func WithName(name string) Option {
	return func(p *Predicate) { p.name = name }
}

// Predicate is a compiled validity script. A Predicate is safe for
// concurrent use; evaluations are serialized.
type Predicate struct {
	mu      sync.Mutex
	L       *lua.LState
	fn      *lua.LFunction
	name    string
	timeout time.Duration
	dims    grid.Dimensions
	cells   Cells
	logger  *logging.Logger
	lastErr error
	closed  bool
}

// CompilePredicate loads src and resolves its valid function.
func CompilePredicate(src string, opts ...Option) (*Predicate, error) {
	p := &Predicate{
		name:    "predicate",
		timeout: DefaultTimeout,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(p.L)
	p.installHost()

	if err := p.load(src); err != nil {
		p.L.Close()
		return nil, &CompileError{Name: p.name, Err: err}
	}
	fn, ok := p.L.GetGlobal(FuncName).(*lua.LFunction)
	if !ok {
		p.L.Close()
		return nil, &CompileError{Name: p.name, Err: ErrNoFunction}
	}
	p.fn = fn
	return p, nil
}

// LoadPredicate compiles the script at path.
func LoadPredicate(path string, opts ...Option) (*Predicate, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read predicate: %w", err)
	}
	return CompilePredicate(string(src), append([]Option{WithName(path)}, opts...)...)
}

func (p *Predicate) load(src string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	p.L.SetContext(ctx)
	defer p.L.RemoveContext()
	return p.L.DoString(src)
}

// openSafeLibraries opens the base, table, string and math libraries and
// removes the loaders that reach the file system.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
}

func (p *Predicate) installHost() {
	p.L.SetGlobal("columns", p.L.NewFunction(func(L *lua.LState) int {
		n := 0
		if p.dims != nil {
			n = p.dims.ColumnCount()
		}
		L.Push(lua.LNumber(n))
		return 1
	}))
	p.L.SetGlobal("rows", p.L.NewFunction(func(L *lua.LState) int {
		n := 0
		if p.dims != nil {
			n = p.dims.RowCount()
		}
		L.Push(lua.LNumber(n))
		return 1
	}))
	p.L.SetGlobal("cell", p.L.NewFunction(func(L *lua.LState) int {
		col, row := L.CheckInt(1), L.CheckInt(2)
		text := ""
		if p.cells != nil {
			text = p.cells.Cell(col, row)
		}
		L.Push(lua.LString(text))
		return 1
	}))
}

// Eval runs the predicate. Errors, timeouts and panics are returned; the
// result is false in those cases.
func (p *Predicate) Eval(from, to grid.Position) (ok bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false, ErrClosed
	}

	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("lua panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	p.L.SetContext(ctx)
	defer p.L.RemoveContext()

	top := p.L.GetTop()
	defer p.L.SetTop(top)

	err = p.L.CallByParam(lua.P{Fn: p.fn, NRet: 1, Protect: true},
		lua.LNumber(from.Column), lua.LNumber(from.Row),
		lua.LNumber(to.Column), lua.LNumber(to.Row))
	if err != nil {
		return false, err
	}
	return lua.LVAsBool(p.L.Get(-1)), nil
}

// Valid evaluates the predicate and treats any failure as an invalid
// target. It has the shape of traversal.ValidFunc.
func (p *Predicate) Valid(from, to grid.Position) bool {
	ok, err := p.Eval(from, to)
	if err != nil {
		p.mu.Lock()
		p.lastErr = err
		p.mu.Unlock()
		p.logger.Warn("predicate failed", "script", p.name, "from", from, "to", to, "error", err)
	}
	return ok
}

// Func returns the predicate as a traversal.ValidFunc.
func (p *Predicate) Func() traversal.ValidFunc { return p.Valid }

// LastError returns the most recent evaluation error seen by Valid.
func (p *Predicate) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Close releases the Lua state.
func (p *Predicate) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		p.L.Close()
	}
}
