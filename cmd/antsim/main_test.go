package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func dataLines(s string) []string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if l != "" && !strings.HasPrefix(l, "#") {
			lines = append(lines, l)
		}
	}
	return lines
}

func TestVersionCmd(t *testing.T) {
	out, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, version) {
		t.Errorf("output %q does not contain version %q", out, version)
	}
}

func TestRunCmdReport(t *testing.T) {
	out, errOut, err := execute(t, "run", "--ticks", "5", "--size", "10", "--ants", "5", "--report", "-", "--log-level", "warn")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, errOut)
	}
	if !strings.HasPrefix(out, "# seed=1 world=10x10 ants=5") {
		t.Errorf("report header missing, got:\n%s", out)
	}
	// Tick 0 plus one line per tick.
	if got := len(dataLines(out)); got != 6 {
		t.Errorf("data lines = %d, want 6\n%s", got, out)
	}
	if !strings.Contains(errOut, "5 ticks in") {
		t.Errorf("summary missing from stderr:\n%s", errOut)
	}
}

func TestRunCmdRejectsBadConfig(t *testing.T) {
	_, _, err := execute(t, "run", "--size", "2", "--ants", "10", "--log-level", "warn")
	if err == nil {
		t.Fatal("expected error for ants that do not fit the world")
	}
	if !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("err = %v, want invalid config", err)
	}
}

func TestRunThenHistory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	if _, errOut, err := execute(t, "run", "--ticks", "4", "--size", "10", "--ants", "5", "--db", dbPath, "--log-level", "warn"); err != nil {
		t.Fatalf("run: %v\n%s", err, errOut)
	}

	out, _, err := execute(t, "history", "--db", dbPath, "--json")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var runs []struct {
		ID        string `json:"id"`
		FinalTick uint64 `json:"final_tick"`
	}
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode runs: %v\n%s", err, out)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	if runs[0].FinalTick != 4 {
		t.Errorf("final tick = %d, want 4", runs[0].FinalTick)
	}

	out, _, err = execute(t, "history", runs[0].ID, "--db", dbPath, "--json")
	if err != nil {
		t.Fatalf("history run: %v", err)
	}
	var rows []struct {
		Tick uint64 `json:"tick"`
	}
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode stats: %v\n%s", err, out)
	}
	if len(rows) != 5 {
		t.Errorf("stats rows = %d, want 5 (ticks 0-4)", len(rows))
	}
}

func TestConfigCmd(t *testing.T) {
	out, _, err := execute(t, "config")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("config output is not YAML: %v\n%s", err, out)
	}
	model, ok := doc["model"].(map[string]any)
	if !ok {
		t.Fatalf("model section missing:\n%s", out)
	}
	if model["activation_order"] != "fixed" {
		t.Errorf("activation_order = %v, want fixed", model["activation_order"])
	}
}
