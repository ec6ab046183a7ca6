package view

import (
	"errors"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/gridsel/internal/config"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		spec string
		want string
		err  error
	}{
		{"down", "down", nil},
		{"Shift+Down", "shift+down", nil},
		{"shift+ctrl+LEFT", "ctrl+shift+left", nil},
		{"ctrl-a", "ctrl+a", nil},
		{"Ctrl+A", "ctrl+a", nil},
		{"<C-a>", "ctrl+a", nil},
		{"<A-S-Up>", "alt+shift+up", nil},
		{"S", "S", nil},
		{"shift+s", "S", nil},
		{"shift+tab", "backtab", nil},
		{"Escape", "esc", nil},
		{"PageDown", "pgdn", nil},
		{"ctrl+space", "ctrl+space", nil},
		{"-", "-", nil},
		{"", "", ErrEmptyKey},
		{"hyper+a", "", ErrInvalidKey},
		{"ctrl+", "", ErrInvalidKey},
		{"bogus", "", ErrInvalidKey},
	}
	for _, tt := range tests {
		got, err := NormalizeKey(tt.spec)
		if tt.err != nil {
			if !errors.Is(err, tt.err) {
				t.Errorf("NormalizeKey(%q) error = %v, want %v", tt.spec, err, tt.err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("NormalizeKey(%q) = %q, %v; want %q", tt.spec, got, err, tt.want)
		}
	}
}

func TestKeyName(t *testing.T) {
	tests := []struct {
		ev   *tcell.EventKey
		want string
	}{
		{tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone), "a"},
		{tcell.NewEventKey(tcell.KeyRune, 'S', tcell.ModShift), "S"},
		{tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone), "space"},
		{tcell.NewEventKey(tcell.KeyRune, 'd', tcell.ModAlt), "alt+d"},
		{tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModShift), "shift+down"},
		{tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModCtrl|tcell.ModShift), "ctrl+shift+left"},
		{tcell.NewEventKey(tcell.KeyCtrlA, 0, tcell.ModCtrl), "ctrl+a"},
		{tcell.NewEventKey(tcell.KeyTab, 0, tcell.ModNone), "tab"},
		{tcell.NewEventKey(tcell.KeyBacktab, 0, tcell.ModNone), "backtab"},
		{tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), "esc"},
		{tcell.NewEventKey(tcell.KeyPgDn, 0, tcell.ModNone), "pgdn"},
	}
	for _, tt := range tests {
		if got := KeyName(tt.ev); got != tt.want {
			t.Errorf("KeyName(%v) = %q, want %q", tt.ev.Name(), got, tt.want)
		}
	}
}

func TestKeyMapOverrides(t *testing.T) {
	km, err := NewKeyMap([]config.KeyBinding{
		{Keys: "Shift+Down", Action: "selection.move", Args: map[string]any{"direction": "down", "steps": "end", "shift": true}},
		{Keys: "q", Action: Unbind},
		{Keys: "x", Action: "selection.clear"},
	})
	if err != nil {
		t.Fatal(err)
	}

	b, ok := km.Resolve(tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModShift))
	if !ok || b.Args["steps"] != "end" {
		t.Errorf("shift+down = %+v, %v", b, ok)
	}
	if _, ok := km.Lookup("q"); ok {
		t.Error("q still bound")
	}
	if b, ok := km.Lookup("x"); !ok || b.Action != "selection.clear" {
		t.Errorf("x = %+v, %v", b, ok)
	}
	down, ok := km.Lookup("down")
	if !ok || down.Action != "selection.move" {
		t.Errorf("default down binding = %+v, %v", down, ok)
	}

	// Actions get their own argument map.
	a := down.NewAction()
	a.Args["column"] = 3
	if _, leaked := down.Args["column"]; leaked {
		t.Error("NewAction shared the binding's args")
	}
	if a.Source != "key:down" {
		t.Errorf("Source = %q", a.Source)
	}

	bindings := km.Bindings()
	for i := 1; i < len(bindings); i++ {
		if bindings[i-1].Keys >= bindings[i].Keys {
			t.Fatalf("Bindings() not sorted at %d: %q, %q", i, bindings[i-1].Keys, bindings[i].Keys)
		}
	}
}

func TestKeyMapErrors(t *testing.T) {
	km, err := NewKeyMap([]config.KeyBinding{
		{Keys: "hyper+z", Action: "selection.clear"},
		{Keys: "z", Action: "selection.clear"},
	})
	if !errors.Is(err, ErrInvalidKey) {
		t.Errorf("error = %v, want ErrInvalidKey", err)
	}
	if _, ok := km.Lookup("z"); !ok {
		t.Error("valid override after an invalid one was dropped")
	}
}
