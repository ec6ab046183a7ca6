package app

import (
	"context"

	"github.com/dshills/gridsel/internal/clipboard"
	"github.com/dshills/gridsel/internal/config"
	"github.com/dshills/gridsel/internal/dispatcher"
	"github.com/dshills/gridsel/internal/dispatcher/handler"
	selhandler "github.com/dshills/gridsel/internal/dispatcher/handlers/selection"
	structhandler "github.com/dshills/gridsel/internal/dispatcher/handlers/structure"
	"github.com/dshills/gridsel/internal/event"
	"github.com/dshills/gridsel/internal/grid/table"
	"github.com/dshills/gridsel/internal/logging"
	"github.com/dshills/gridsel/internal/script"
	"github.com/dshills/gridsel/internal/selection"
	"github.com/dshills/gridsel/internal/structure"
	"github.com/dshills/gridsel/internal/traversal"
)

// SessionOption configures a Session.
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	logger  *logging.Logger
	records [][]string
	writer  clipboard.Writer
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *logging.Logger) SessionOption {
	return func(o *sessionOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRecords loads the grid from records, header first, instead of the
// configured grid file or size.
func WithRecords(records [][]string) SessionOption {
	return func(o *sessionOptions) { o.records = records }
}

// WithClipboardWriter replaces the system clipboard.
func WithClipboardWriter(w clipboard.Writer) SessionOption {
	return func(o *sessionOptions) { o.writer = w }
}

// Session is one grid with its selection engine. A Session is not safe for
// concurrent use; callers serialize access on one goroutine.
type Session struct {
	cfg    *config.Config
	opts   sessionOptions
	logger *logging.Logger

	bus        *event.Bus
	table      *table.Table
	coord      *selection.Coordinator
	identity   *selection.IdentityPreserving
	adapter    *structure.Adapter
	predicate  *script.Predicate
	copier     *clipboard.Copier
	dispatcher *dispatcher.Dispatcher
	selections *selhandler.Handler

	subs      []*event.Subscription
	initOrder []string
	closed    bool
}

// NewSession builds a session from cfg. A nil cfg uses config.Default.
// Components are started in dependency order; on failure the ones already
// started are released and an *InitError is returned.
func NewSession(cfg *config.Config, opts ...SessionOption) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Session{cfg: cfg, opts: sessionOptions{logger: logging.Discard()}}
	for _, opt := range opts {
		opt(&s.opts)
	}
	s.logger = s.opts.logger.WithComponent("session")

	steps := []struct {
		name string
		fn   func() error
	}{
		{"event bus", s.initBus},
		{"table", s.initTable},
		{"selection", s.initSelection},
		{"structure", s.initStructure},
		{"script", s.initScript},
		{"dispatcher", s.initDispatcher},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			s.cleanup()
			return nil, &InitError{Component: step.name, Err: err}
		}
		s.initOrder = append(s.initOrder, step.name)
	}

	s.logger.Info("session ready",
		"columns", s.table.ColumnCount(),
		"rows", s.table.RowCount(),
		"multiple", cfg.Selection.Multiple,
		"rowOriented", cfg.Selection.RowOriented,
		"namespaces", s.dispatcher.Router().Namespaces())
	return s, nil
}

func (s *Session) initBus() error {
	s.bus = event.NewBus(event.WithLogger(s.opts.logger))
	return nil
}

func (s *Session) initTable() error {
	tableOpts := []table.Option{
		table.WithPublisher(s.bus),
		table.WithLogger(s.opts.logger),
		table.WithKeyColumn(s.cfg.Grid.KeyColumn),
	}

	switch {
	case s.opts.records != nil:
		s.table = table.FromRecords(s.opts.records, tableOpts...)
	case s.cfg.Grid.File != "":
		t, err := table.FromXLSX(s.cfg.Grid.File, s.cfg.Grid.Sheet, tableOpts...)
		if err != nil {
			return err
		}
		s.table = t
	default:
		names := make([]string, s.cfg.Grid.Columns)
		for i := range names {
			names[i] = table.ColumnLetter(i)
		}
		s.table = table.New(names, tableOpts...)
		s.table.InsertRows(0, s.cfg.Grid.Rows)
	}
	return nil
}

func (s *Session) initSelection() error {
	s.coord = selection.New(s.table,
		selection.WithNotifier(s.bus),
		selection.WithLogger(s.opts.logger),
		selection.WithMultipleSelection(s.cfg.Selection.Multiple),
		selection.WithRowOriented(s.cfg.Selection.RowOriented),
	)
	if !s.cfg.Structure.PreserveByIdentity {
		return nil
	}
	s.identity = selection.NewIdentityPreserving(s.coord, s.table.RowIdentity)
	sub, err := s.identity.Attach(s.bus)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

func (s *Session) initStructure() error {
	opts := []structure.Option{
		structure.WithLogger(s.opts.logger),
		structure.WithClearOnRefresh(s.cfg.Structure.ClearOnRefresh),
		structure.WithIndexMapper(s.table),
	}
	var sel structure.Selection = s.coord
	if s.identity != nil {
		sel = s.identity
		opts = append(opts, structure.WithRefreshPolicy(s.identity))
	}
	s.adapter = structure.New(sel, opts...)
	sub, err := s.adapter.Attach(s.bus)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

func (s *Session) initScript() error {
	if s.cfg.Script.Predicate == "" {
		return nil
	}
	p, err := script.LoadPredicate(s.cfg.Script.Predicate,
		script.WithCells(s.table),
		script.WithDimensions(s.table),
		script.WithLogger(s.opts.logger),
	)
	if err != nil {
		return err
	}
	s.predicate = p
	return nil
}

func (s *Session) initDispatcher() error {
	strategy, err := s.strategy(s.cfg)
	if err != nil {
		return err
	}

	copierOpts := []clipboard.Option{
		clipboard.WithEnabled(s.cfg.Clipboard.Enabled),
		clipboard.WithLogger(s.opts.logger),
	}
	if s.opts.writer != nil {
		copierOpts = append(copierOpts, clipboard.WithWriter(s.opts.writer))
	}
	s.copier = clipboard.NewCopier(s.coord, s.table, copierOpts...)

	s.dispatcher = dispatcher.New(
		dispatcher.WithLogger(s.opts.logger),
		dispatcher.WithMetrics(),
	)
	s.selections = selhandler.NewHandler(s.coord,
		selhandler.WithStrategy(strategy),
		selhandler.WithCopier(s.copier),
	)
	s.dispatcher.RegisterNamespace(s.selections)
	s.dispatcher.RegisterNamespace(structhandler.NewHandler(s.table, structhandler.WithTargets(s.coord)))
	return nil
}

// strategy builds the configured traversal strategy with the script
// predicate, if any, as its validator.
func (s *Session) strategy(cfg *config.Config) (traversal.Strategy, error) {
	st, err := cfg.Strategy()
	if err != nil {
		return st, err
	}
	if s.predicate != nil {
		st = st.WithValidator(s.predicate.Func())
	}
	return st, nil
}

// cleanup releases started components in reverse order.
func (s *Session) cleanup() {
	for i := len(s.initOrder) - 1; i >= 0; i-- {
		switch s.initOrder[i] {
		case "script":
			if s.predicate != nil {
				s.predicate.Close()
			}
		case "selection", "structure":
			for _, sub := range s.subs {
				_ = s.bus.Unsubscribe(sub)
			}
			s.subs = nil
		}
	}
	s.initOrder = nil
}

// Dispatch runs an action through the dispatcher.
func (s *Session) Dispatch(ctx context.Context, action handler.Action) handler.Result {
	if s.closed {
		return handler.Error(ErrClosed)
	}
	return s.dispatcher.Dispatch(ctx, action)
}

// ApplyConfig applies the settings that can change while running:
// selection modes, the traversal strategy, clipboard and log level.
// Grid, structure and script settings take effect in a new session.
func (s *Session) ApplyConfig(cfg *config.Config) error {
	strategy, err := s.strategy(cfg)
	if err != nil {
		return NewOperationError("apply", "config", err)
	}
	s.coord.SetMultipleSelection(cfg.Selection.Multiple)
	s.coord.SetRowOriented(cfg.Selection.RowOriented)
	s.selections.SetStrategy(strategy)
	s.copier.SetEnabled(cfg.Clipboard.Enabled)
	s.opts.logger.SetLevel(logging.ParseLevel(cfg.Logging.Level))
	s.cfg = cfg
	s.logger.Info("config applied", "strategy", strategy.String())
	return nil
}

// Close releases the session's subscriptions and script state.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if m := s.dispatcher.Metrics(); m != nil {
		snap := m.Snapshot()
		s.logger.Info("session closed",
			"dispatches", snap.TotalDispatches,
			"errors", snap.TotalErrors)
		for _, st := range m.TopActions(3) {
			s.logger.Debug("action stats", "action", st.Name, "count", st.DispatchCount, "errors", st.ErrorCount)
		}
	}
	s.cleanup()
}

// Config returns the active settings.
func (s *Session) Config() *config.Config { return s.cfg }

// Bus returns the event bus.
func (s *Session) Bus() *event.Bus { return s.bus }

// Table returns the grid.
func (s *Session) Table() *table.Table { return s.table }

// Selection returns the coordinator.
func (s *Session) Selection() *selection.Coordinator { return s.coord }

// Structure returns the structural adapter.
func (s *Session) Structure() *structure.Adapter { return s.adapter }

// Dispatcher returns the action dispatcher.
func (s *Session) Dispatcher() *dispatcher.Dispatcher { return s.dispatcher }

// Strategy returns the traversal strategy used by selection.move.
func (s *Session) Strategy() traversal.Strategy { return s.selections.Strategy() }
