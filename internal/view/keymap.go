package view

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/gridsel/internal/config"
	"github.com/dshills/gridsel/internal/dispatcher/handler"
)

// Unbind is the action name that removes a default binding.
const Unbind = "none"

// Key spec errors.
var (
	ErrEmptyKey   = errors.New("empty key specification")
	ErrInvalidKey = errors.New("invalid key specification")
)

// Binding maps a canonical key name to an action.
type Binding struct {
	Keys   string
	Action string
	Args   handler.Args
}

// NewAction builds the action for this binding. Args are copied so the
// caller may add to them.
func (b Binding) NewAction() handler.Action {
	args := make(handler.Args, len(b.Args)+2)
	maps.Copy(args, b.Args)
	a := handler.NewAction(b.Action, args)
	a.Source = "key:" + b.Keys
	return a
}

func bind(keys, action string, args handler.Args) Binding {
	return Binding{Keys: keys, Action: action, Args: args}
}

// DefaultBindings returns the built-in key bindings.
func DefaultBindings() []Binding {
	var out []Binding
	for _, dir := range []string{"up", "down", "left", "right"} {
		out = append(out,
			bind(dir, "selection.move", handler.Args{"direction": dir}),
			bind("shift+"+dir, "selection.move", handler.Args{"direction": dir, "shift": true}),
			bind("ctrl+"+dir, "selection.move", handler.Args{"direction": dir, "steps": "end"}),
			bind("ctrl+shift+"+dir, "selection.move", handler.Args{"direction": dir, "steps": "end", "shift": true}),
		)
	}
	return append(out,
		bind("tab", "selection.move", handler.Args{"direction": "right", "scope": "table", "cyclic": true}),
		bind("backtab", "selection.move", handler.Args{"direction": "left", "scope": "table", "cyclic": true}),
		bind("home", "selection.move", handler.Args{"direction": "left", "steps": "end"}),
		bind("end", "selection.move", handler.Args{"direction": "right", "steps": "end"}),
		bind("pgup", "selection.move", handler.Args{"direction": "up", "steps": 10}),
		bind("pgdn", "selection.move", handler.Args{"direction": "down", "steps": 10}),
		bind("space", "selection.selectCell", handler.Args{"ctrl": true}),
		bind("ctrl+space", "selection.selectColumn", nil),
		bind("alt+space", "selection.selectRow", nil),
		bind("ctrl+a", "selection.selectAll", nil),
		bind("esc", "selection.clear", nil),
		bind("ctrl+c", "selection.copy", nil),
		bind("ctrl+d", "structure.deleteRows", nil),
		bind("alt+d", "structure.deleteColumns", nil),
		bind("ctrl+k", "structure.hideRows", nil),
		bind("alt+k", "structure.hideColumns", nil),
		bind("ctrl+u", "structure.showRows", nil),
		bind("alt+u", "structure.showColumns", nil),
		bind("ctrl+o", "structure.insertRows", nil),
		bind("s", "structure.sort", nil),
		bind("S", "structure.sort", handler.Args{"descending": true}),
		bind("q", "app.quit", nil),
		bind("ctrl+q", "app.quit", nil),
		bind("ctrl+s", "app.save", nil),
	)
}

// KeyMap resolves key events to bindings.
type KeyMap struct {
	bindings map[string]Binding
}

// NewKeyMap starts from the default bindings and applies overrides in
// order. An override whose action is "none" removes the binding.
func NewKeyMap(overrides []config.KeyBinding) (*KeyMap, error) {
	km := &KeyMap{bindings: make(map[string]Binding)}
	for _, b := range DefaultBindings() {
		km.bindings[b.Keys] = b
	}

	var errs []error
	for i, o := range overrides {
		keys, err := NormalizeKey(o.Keys)
		if err != nil {
			errs = append(errs, fmt.Errorf("keymap[%d]: %w", i, err))
			continue
		}
		if o.Action == Unbind {
			delete(km.bindings, keys)
			continue
		}
		km.bindings[keys] = Binding{Keys: keys, Action: o.Action, Args: handler.Args(o.Args)}
	}
	return km, errors.Join(errs...)
}

// Lookup returns the binding for a canonical key name.
func (k *KeyMap) Lookup(keys string) (Binding, bool) {
	b, ok := k.bindings[keys]
	return b, ok
}

// Resolve returns the binding for a key event.
func (k *KeyMap) Resolve(ev *tcell.EventKey) (Binding, bool) {
	return k.Lookup(KeyName(ev))
}

// Bindings returns every binding ordered by key name.
func (k *KeyMap) Bindings() []Binding {
	out := slices.Collect(maps.Values(k.bindings))
	slices.SortFunc(out, func(a, b Binding) int { return strings.Compare(a.Keys, b.Keys) })
	return out
}

// KeyName returns the canonical name of a key event, such as "a",
// "shift+down" or "ctrl+a". Modifiers are ordered ctrl, alt, shift.
// Shift is not reported for printable characters.
func KeyName(ev *tcell.EventKey) string {
	mods := ev.Modifiers()
	var name string

	switch k := ev.Key(); {
	case k == tcell.KeyRune:
		r := ev.Rune()
		mods &^= tcell.ModShift
		switch {
		case r == ' ':
			name = "space"
		case mods&tcell.ModCtrl != 0:
			name = string(unicode.ToLower(r))
		default:
			name = string(r)
		}
	case k == tcell.KeyTab:
		name = "tab"
	case k == tcell.KeyEnter:
		name = "enter"
	case k == tcell.KeyEsc:
		name = "esc"
	case k == tcell.KeyBackspace || k == tcell.KeyBackspace2:
		name = "backspace"
	case k == tcell.KeyNUL:
		name, mods = "space", mods|tcell.ModCtrl
	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
		name, mods = string(rune('a'+int(k-tcell.KeyCtrlA))), mods|tcell.ModCtrl
	default:
		n, ok := tcell.KeyNames[k]
		if !ok {
			return ""
		}
		name = strings.ToLower(n)
	}
	return withModifiers(name, mods&tcell.ModCtrl != 0, mods&tcell.ModAlt != 0, mods&tcell.ModShift != 0)
}

func withModifiers(name string, ctrl, alt, shift bool) string {
	var b strings.Builder
	if ctrl {
		b.WriteString("ctrl+")
	}
	if alt {
		b.WriteString("alt+")
	}
	if shift {
		b.WriteString("shift+")
	}
	b.WriteString(name)
	return b.String()
}

var keyAliases = map[string]string{
	"escape":   "esc",
	"return":   "enter",
	"cr":       "enter",
	"pageup":   "pgup",
	"pagedown": "pgdn",
	"del":      "delete",
	"bs":       "backspace",
}

// NormalizeKey converts a key specification to its canonical name. It
// accepts "Ctrl+Shift+Down", "ctrl-a" and the bracketed form "<C-a>".
func NormalizeKey(spec string) (string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return "", ErrEmptyKey
	}
	if len(spec) > 2 && strings.HasPrefix(spec, "<") && strings.HasSuffix(spec, ">") {
		spec = strings.ReplaceAll(spec[1:len(spec)-1], "-", "+")
	}
	if spec == "+" || spec == "-" {
		return spec, nil
	}

	sep := "+"
	if !strings.Contains(spec, "+") && strings.Count(spec, "-") > 0 && utf8.RuneCountInString(spec) > 1 {
		sep = "-"
	}
	parts := strings.Split(spec, sep)
	keyPart := strings.TrimSpace(parts[len(parts)-1])
	if keyPart == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, spec)
	}

	var ctrl, alt, shift bool
	for _, p := range parts[:len(parts)-1] {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "ctrl", "control", "c":
			ctrl = true
		case "alt", "meta", "option", "a", "m":
			alt = true
		case "shift", "s":
			shift = true
		default:
			return "", fmt.Errorf("%w: unknown modifier %q", ErrInvalidKey, p)
		}
	}

	if utf8.RuneCountInString(keyPart) == 1 {
		r, _ := utf8.DecodeRuneInString(keyPart)
		if r == ' ' {
			return withModifiers("space", ctrl, alt, shift), nil
		}
		switch {
		case ctrl:
			keyPart = string(unicode.ToLower(r))
		case shift:
			keyPart = string(unicode.ToUpper(r))
		}
		// Printable characters carry their own case.
		return withModifiers(keyPart, ctrl, alt, false), nil
	}

	keyPart = strings.ToLower(keyPart)
	if alias, ok := keyAliases[keyPart]; ok {
		keyPart = alias
	}
	if shift && keyPart == "tab" {
		keyPart, shift = "backtab", false
	}
	if !knownKey(keyPart) {
		return "", fmt.Errorf("%w: unknown key %q", ErrInvalidKey, keyPart)
	}
	return withModifiers(keyPart, ctrl, alt, shift), nil
}

func knownKey(name string) bool {
	switch name {
	case "space", "tab", "enter", "esc", "backspace":
		return true
	}
	for _, n := range tcell.KeyNames {
		if strings.ToLower(n) == name {
			return true
		}
	}
	return false
}
