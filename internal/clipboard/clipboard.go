// Package clipboard copies the selected cells of a grid as tab separated
// text.
package clipboard

import (
	"errors"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/dshills/gridsel/internal/grid"
	"github.com/dshills/gridsel/internal/logging"
)

// ErrDisabled is returned by Copy when copying is turned off.
var ErrDisabled = errors.New("clipboard: disabled")

// Writer receives the rendered text.
type Writer interface {
	WriteAll(text string) error
}

// System writes to the operating system clipboard.
type System struct{}

// WriteAll implements Writer.
func (System) WriteAll(text string) error { return clipboard.WriteAll(text) }

// Available reports whether a system clipboard utility was found.
func Available() bool { return !clipboard.Unsupported }

// Selection is the part of the coordinator Render reads.
type Selection interface {
	SelectedBounds() grid.Rect
	IsCellPositionSelected(column, row int) bool
}

// Cells supplies display text by visible position.
type Cells interface {
	Cell(column, row int) string
}

// Render returns the selection's bounding box as TSV. Cells inside the box
// that are not selected are left empty. Tabs and newlines inside values are
// replaced by spaces.
func Render(sel Selection, cells Cells) string {
	box := sel.SelectedBounds()
	if box.IsEmpty() {
		return ""
	}

	var b strings.Builder
	for row := box.Y; row < box.Bottom(); row++ {
		if row > box.Y {
			b.WriteByte('\n')
		}
		for col := box.X; col < box.Right(); col++ {
			if col > box.X {
				b.WriteByte('\t')
			}
			if sel.IsCellPositionSelected(col, row) {
				b.WriteString(sanitize(cells.Cell(col, row)))
			}
		}
	}
	return b.String()
}

var sanitizer = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ")

func sanitize(s string) string { return sanitizer.Replace(s) }

// Option configures a Copier.
type Option func(*Copier)

// WithWriter replaces the system clipboard.
func WithWriter(w Writer) Option {
	return func(c *Copier) { c.writer = w }
}

// WithEnabled turns copying on or off.
func WithEnabled(enabled bool) Option {
	return func(c *Copier) { c.enabled = enabled }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Copier) {
		if l != nil {
			c.logger = l.WithComponent("clipboard")
		}
	}
}

// Copier renders a selection and hands it to a Writer.
type Copier struct {
	sel     Selection
	cells   Cells
	writer  Writer
	enabled bool
	logger  *logging.Logger
}

// NewCopier creates a copier for sel over cells. It writes to the system
// clipboard unless WithWriter is given.
func NewCopier(sel Selection, cells Cells, opts ...Option) *Copier {
	c := &Copier{
		sel:     sel,
		cells:   cells,
		writer:  System{},
		enabled: true,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Copy writes the current selection and returns the text written. An empty
// selection writes nothing and returns "".
func (c *Copier) Copy() (string, error) {
	if !c.enabled {
		return "", ErrDisabled
	}
	text := Render(c.sel, c.cells)
	if text == "" {
		return "", nil
	}
	if err := c.writer.WriteAll(text); err != nil {
		c.logger.Warn("copy failed", "error", err)
		return "", err
	}
	c.logger.Debug("copied selection", "bytes", len(text))
	return text, nil
}

// SetEnabled turns copying on or off.
func (c *Copier) SetEnabled(enabled bool) { c.enabled = enabled }

// Enabled reports whether Copy writes.
func (c *Copier) Enabled() bool { return c.enabled }
