// Package config loads gridsel settings.
//
// Settings are layered, later layers overriding earlier ones:
//
//  1. Built-in defaults
//  2. The config file (TOML or YAML, chosen by extension)
//  3. Environment variables prefixed GRIDSEL_
//
// The merged map is decoded into a typed Config and validated. The watcher
// sub-package reloads the file when it changes on disk.
//
// Example file:
//
//	[selection]
//	multiple = true
//
//	[traversal]
//	scope = "table"
//	cyclic = true
//	step_count = 1
//
//	[[keymap]]
//	keys = "ctrl+a"
//	action = "selection.selectAll"
package config
