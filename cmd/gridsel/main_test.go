package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReplayCommand(t *testing.T) {
	scenario := filepath.Join("..", "..", "internal", "replay", "testdata", "four_cells.yaml")
	out, err := execute(t, "replay", scenario)
	if err != nil {
		t.Fatalf("replay: %v\n%s", err, out)
	}
	if !strings.Contains(out, "1 of 1 scenarios passed") {
		t.Errorf("output = %q", out)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	doc := "grid: {columns: 2, rows: 2}\nsteps:\n  - action: selection.selectAll\n    expect: {count: 3}\n"
	if err := os.WriteFile(bad, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "replay", "--fail-fast", bad)
	if !errors.Is(err, errFailed) {
		t.Errorf("failing replay error = %v", err)
	}
	if !strings.Contains(out, "0 of 1 scenarios passed") {
		t.Errorf("output = %q", out)
	}

	if _, err := execute(t, "replay"); err == nil {
		t.Error("replay without files succeeded")
	}
}

func TestConfigCommand(t *testing.T) {
	out, err := execute(t, "config")
	if err != nil {
		t.Fatal(err)
	}
	for _, section := range []string{"[selection]", "[traversal]"} {
		if !strings.Contains(out, section) {
			t.Errorf("config output missing %s:\n%s", section, out)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "gridsel dev") {
		t.Errorf("version = %q", out)
	}
}
