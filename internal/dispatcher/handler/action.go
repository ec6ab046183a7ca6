package handler

import (
	"fmt"
	"strconv"
	"strings"
)

// Action is a named command with loosely typed arguments. Actions come from
// the key map, replay scenarios and scripts, so argument values may be any
// of the numeric types those decoders produce.
type Action struct {
	// Name is the full action name, e.g. "selection.move".
	Name string
	// Args holds named arguments.
	Args Args
	// Count is a repeat count. Zero means unspecified.
	Count int
	// Source names the producer of the action (keymap, replay, script).
	Source string
}

// NewAction creates an action with the given name and arguments.
func NewAction(name string, args Args) Action {
	return Action{Name: name, Args: args}
}

// String returns a compact representation for logging.
func (a Action) String() string {
	if a.Count > 1 {
		return fmt.Sprintf("%d%s", a.Count, a.Name)
	}
	return a.Name
}

// Args is a bag of named action arguments.
type Args map[string]any

// Has reports whether the key is present.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Int returns the integer value of key, or def when missing or not numeric.
func (a Args) Int(key string, def int) int {
	v, ok := a[key]
	if !ok {
		return def
	}
	if n, ok := toInt(v); ok {
		return n
	}
	return def
}

// Bool returns the boolean value of key, or def.
func (a Args) Bool(key string, def bool) bool {
	switch v := a[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// String returns the string value of key, or def.
func (a Args) String(key, def string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return def
}

// Ints returns the integer list stored under key. Non-numeric entries are
// skipped.
func (a Args) Ints(key string) []int {
	switch v := a[key].(type) {
	case []int:
		return append([]int(nil), v...)
	case []any:
		out := make([]int, 0, len(v))
		for _, e := range v {
			if n, ok := toInt(e); ok {
				out = append(out, n)
			}
		}
		return out
	case string:
		var out []int
		for _, f := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
			if n, err := strconv.Atoi(f); err == nil {
				out = append(out, n)
			}
		}
		return out
	}
	if n, ok := toInt(a[key]); ok {
		return []int{n}
	}
	return nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}
