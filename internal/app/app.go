package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/gridsel/internal/clipboard"
	"github.com/dshills/gridsel/internal/config"
	"github.com/dshills/gridsel/internal/config/watcher"
	"github.com/dshills/gridsel/internal/dispatcher"
	"github.com/dshills/gridsel/internal/dispatcher/handler"
	selhandler "github.com/dshills/gridsel/internal/dispatcher/handlers/selection"
	structhandler "github.com/dshills/gridsel/internal/dispatcher/handlers/structure"
	"github.com/dshills/gridsel/internal/grid"
	"github.com/dshills/gridsel/internal/logging"
	"github.com/dshills/gridsel/internal/view"
)

// Application actions.
const (
	// ActionQuit ends the event loop.
	ActionQuit = "app.quit"
	// ActionSave writes the grid to args.path or grid.file as XLSX.
	ActionSave = "app.save"
)

// ErrNoGridFile is returned by app.save when there is nowhere to write.
var ErrNoGridFile = errors.New("no grid file")

// Options configures an Application.
type Options struct {
	// ConfigPath is the TOML or YAML settings file. Empty uses defaults
	// and the environment.
	ConfigPath string

	// GridFile overrides grid.file.
	GridFile string

	// LogFile and LogLevel override the logging section.
	LogFile  string
	LogLevel string

	// Watch reloads ConfigPath when it changes.
	Watch bool

	// Records loads the grid from memory, header first.
	Records [][]string

	// Screen replaces the terminal. Tests pass a simulation screen.
	Screen tcell.Screen

	// Clipboard replaces the system clipboard.
	Clipboard clipboard.Writer
}

// positional actions get the cursor's column and row when the key binding
// does not name them.
var positional = map[string]bool{
	selhandler.ActionSelectCell:   true,
	selhandler.ActionSelectRow:    true,
	selhandler.ActionSelectColumn: true,
	structhandler.ActionSort:      true,
	structhandler.ActionSetCell:   true,
}

// reloadEvent carries a reloaded configuration into the event loop.
type reloadEvent struct {
	tcell.EventTime
	cfg *config.Config
	err error
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Application is the interactive grid browser.
type Application struct {
	opts      Options
	cfg       *config.Config
	logger    *logging.Logger
	logCloser io.Closer

	session *Session
	keys    *view.KeyMap
	screen  tcell.Screen
	view    *view.View
	watcher *watcher.Watcher

	count     int
	mouseDown bool
	quit      bool
	running   atomic.Bool
	ready     chan struct{}
}

// New loads the configuration and builds the session. The terminal is not
// touched until Run.
func New(opts Options) (*Application, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, &InitError{Component: "config", Err: err}
	}
	if opts.GridFile != "" {
		cfg.Grid.File = opts.GridFile
	}
	if opts.LogFile != "" {
		cfg.Logging.File = opts.LogFile
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}

	a := &Application{opts: opts, cfg: cfg, ready: make(chan struct{})}
	if err := a.initLogging(); err != nil {
		return nil, &InitError{Component: "logging", Err: err}
	}

	sessOpts := []SessionOption{WithLogger(a.logger)}
	if opts.Records != nil {
		sessOpts = append(sessOpts, WithRecords(opts.Records))
	}
	if opts.Clipboard != nil {
		sessOpts = append(sessOpts, WithClipboardWriter(opts.Clipboard))
	}
	a.session, err = NewSession(cfg, sessOpts...)
	if err != nil {
		a.logCloser.Close()
		return nil, err
	}

	a.keys, err = view.NewKeyMap(cfg.Keymap)
	if err != nil {
		a.logger.Warn("ignoring invalid key bindings", "error", err)
	}
	a.session.Dispatcher().RegisterHandlerFunc(ActionQuit, func(context.Context, handler.Action) handler.Result {
		a.quit = true
		return handler.Success()
	})
	a.session.Dispatcher().RegisterHandlerFunc(ActionSave, a.save)
	a.session.Dispatcher().RegisterPostHook(dispatcher.PostDispatchFunc(a.report))
	return a, nil
}

func (a *Application) save(_ context.Context, action handler.Action) handler.Result {
	path := action.Args.String("path", a.cfg.Grid.File)
	if path == "" {
		return handler.Error(ErrNoGridFile)
	}
	if err := a.session.Table().WriteXLSX(path, a.cfg.Grid.Sheet); err != nil {
		return handler.Error(NewOperationError("save", path, err))
	}
	a.logger.Info("grid saved", "path", path)
	return handler.SuccessWithMessage("saved " + path)
}

// initLogging opens the log file. The terminal owns stdout and stderr, so
// without a file nothing is logged.
func (a *Application) initLogging() error {
	level := logging.ParseLevel(a.cfg.Logging.Level)
	if a.cfg.Logging.File == "" {
		a.logger, a.logCloser = logging.Discard(), nopCloser{}
		return nil
	}
	l, closer, err := logging.Open(a.cfg.Logging.File, level)
	if err != nil {
		return err
	}
	a.logger, a.logCloser = l.WithComponent("app"), closer
	return nil
}

// Session returns the grid session.
func (a *Application) Session() *Session { return a.session }

// Ready is closed once Run has drawn the first frame.
func (a *Application) Ready() <-chan struct{} { return a.ready }

// initScreen initializes the terminal and the view.
func (a *Application) initScreen() error {
	screen := a.opts.Screen
	if screen == nil {
		s, err := tcell.NewScreen()
		if err != nil {
			return err
		}
		screen = s
	}
	if err := screen.Init(); err != nil {
		return err
	}
	screen.EnableMouse()
	a.screen = screen
	a.view = view.New(screen, a.session.Table(), a.session.Selection())
	return nil
}

// Run shows the grid and processes input until quit or ctx is done.
func (a *Application) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	if err := a.initScreen(); err != nil {
		return &InitError{Component: "screen", Err: err}
	}
	defer a.screen.Fini()

	if a.opts.Watch && a.opts.ConfigPath != "" {
		if err := a.startWatcher(); err != nil {
			a.logger.Warn("config watcher unavailable", "error", err)
		}
	}

	stop := context.AfterFunc(ctx, func() {
		_ = a.screen.PostEvent(tcell.NewEventInterrupt(nil))
	})
	defer stop()

	a.view.Draw()
	close(a.ready)
	a.logger.Info("event loop started")

	for !a.quit {
		ev := a.screen.PollEvent()
		if ev == nil {
			break
		}
		a.HandleEvent(ctx, ev)
		if ctx.Err() != nil {
			break
		}
		a.view.Draw()
	}
	a.logger.Info("event loop stopped")
	return nil
}

func (a *Application) startWatcher() error {
	w, err := watcher.New(a.opts.ConfigPath, func(cfg *config.Config, err error) {
		ev := &reloadEvent{cfg: cfg, err: err}
		ev.SetEventNow()
		_ = a.screen.PostEvent(ev)
	}, watcher.WithLogger(a.logger))
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	a.watcher = w
	return nil
}

// HandleEvent processes one terminal event.
func (a *Application) HandleEvent(ctx context.Context, ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		a.handleKey(ctx, ev)
	case *tcell.EventMouse:
		a.handleMouse(ctx, ev)
	case *tcell.EventResize:
		a.screen.Sync()
	case *reloadEvent:
		a.applyReload(ev.cfg, ev.err)
	case *tcell.EventInterrupt:
		a.quit = true
	}
}

func (a *Application) handleKey(ctx context.Context, ev *tcell.EventKey) {
	name := view.KeyName(ev)
	b, ok := a.keys.Lookup(name)
	if !ok {
		if d, err := strconv.Atoi(name); err == nil && len(name) == 1 && (d > 0 || a.count > 0) {
			a.count = min(a.count*10+d, 9999)
			a.view.SetStatus("%d", a.count)
			return
		}
		a.count = 0
		a.view.SetStatus("%s is not bound", name)
		return
	}

	action := b.NewAction()
	action.Count, a.count = a.count, 0
	if positional[action.Name] {
		a.fillPosition(action.Args)
	}
	a.session.Dispatch(ctx, action)
}

func (a *Application) fillPosition(args handler.Args) {
	p := a.session.Selection().LastSelected()
	if !p.IsValid() {
		p = grid.Pos(0, 0)
	}
	if !args.Has("column") {
		args["column"] = p.Column
	}
	if !args.Has("row") {
		args["row"] = p.Row
	}
}

func (a *Application) handleMouse(ctx context.Context, ev *tcell.EventMouse) {
	if ev.Buttons()&tcell.Button1 == 0 {
		a.mouseDown = false
		return
	}
	p, ok := a.view.CellAt(ev.Position())
	if !ok {
		return
	}
	mods := ev.Modifiers()
	args := handler.Args{
		"column": p.Column,
		"row":    p.Row,
		"shift":  a.mouseDown || mods&tcell.ModShift != 0,
		"ctrl":   mods&(tcell.ModCtrl|tcell.ModAlt) != 0,
	}
	a.mouseDown = true
	action := handler.NewAction(selhandler.ActionSelectCell, args)
	action.Source = "mouse"
	a.session.Dispatch(ctx, action)
}

// report shows the outcome of every dispatched action on the status line.
func (a *Application) report(_ context.Context, action handler.Action, res *handler.Result) {
	if a.view == nil {
		return
	}
	switch {
	case res.IsError():
		a.view.SetStatus("%s: %v", action.Name, res.Error)
	case action.Name == selhandler.ActionCopy && res.GetDataString("text") != "":
		a.view.SetStatus("copied %d bytes", len(res.GetDataString("text")))
	case res.Message != "":
		a.view.SetStatus("%s", res.Message)
	default:
		a.view.SetStatus("")
	}
}

func (a *Application) applyReload(cfg *config.Config, err error) {
	if err != nil {
		a.view.SetStatus("config: %v", err)
		return
	}
	if err := a.session.ApplyConfig(cfg); err != nil {
		a.view.SetStatus("config: %v", err)
		return
	}
	keys, err := view.NewKeyMap(cfg.Keymap)
	if err != nil {
		a.logger.Warn("ignoring invalid key bindings", "error", err)
	}
	a.keys = keys
	a.view.SetStatus("config reloaded")
}

// Close releases the session, the watcher and the log file.
func (a *Application) Close() error {
	var errs []error
	if a.watcher != nil {
		errs = append(errs, a.watcher.Close())
	}
	a.session.Close()
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}
