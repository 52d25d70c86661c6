package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tordrt/json2relcsv"
	"github.com/tordrt/json2relcsv/internal/config"
	"github.com/tordrt/json2relcsv/internal/schema"
)

const ordersJSON = `{"orderId": 7, "items": [{"sku": "X1"}, {"sku": "Y9"}], "tags": ["rush"]}`

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{config.EnvLogLevel, config.EnvLogFormat, config.EnvOutDir, config.EnvLoadURL, config.EnvDatabaseURL} {
		t.Setenv(k, "")
	}
}

func execute(t *testing.T, input string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	return executeEnv(t, nil, input, args...)
}

func executeEnv(t *testing.T, env map[string]string, input string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	clearEnv(t)
	for k, v := range env {
		t.Setenv(k, v)
	}

	var out, errOut bytes.Buffer
	if args == nil {
		args = []string{}
	}
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRunWritesCSV(t *testing.T) {
	dir := t.TempDir()

	_, stderr, err := execute(t, ordersJSON, "--out-dir", dir)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, stderr)
	}

	for _, name := range []string{"root", "root_items", "root_tags"} {
		if _, err := os.Stat(filepath.Join(dir, name+".csv")); err != nil {
			t.Errorf("expected %s.csv: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "root_items.csv"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "id,root_id,seq,sku\n2,1,0,X1\n3,1,1,Y9\n" {
		t.Errorf("unexpected root_items.csv:\n%s", data)
	}

	if !strings.Contains(stderr, "converted 3 tables, 4 rows") {
		t.Errorf("expected summary on stderr, got %q", stderr)
	}
	if !strings.Contains(stderr, "wrote 3 files") {
		t.Errorf("expected file summary on stderr, got %q", stderr)
	}
}

func TestRunPrintAST(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := execute(t, `{"a": [1, "x"]}`, "--print-ast", "--out-dir", dir, "--color", "never")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(stdout, `"a"`) || !strings.Contains(stdout, `"x"`) {
		t.Errorf("expected value tree on stdout, got %q", stdout)
	}
	if strings.Contains(stdout, "\x1b[") {
		t.Errorf("expected no color escapes, got %q", stdout)
	}
	if _, err := os.Stat(filepath.Join(dir, "root_a.csv")); err != nil {
		t.Errorf("expected conversion to continue after printing: %v", err)
	}
}

func TestRunPrintASTColor(t *testing.T) {
	stdout, _, err := execute(t, `{"a": true}`, "--print-ast", "--no-output", "--color", "always")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(stdout, "\x1b[") {
		t.Errorf("expected color escapes, got %q", stdout)
	}
}

func TestRunDescribe(t *testing.T) {
	tests := []struct {
		format   string
		contains string
	}{
		{"text", "TABLE root_items (PK: id) [object, 2 rows]"},
		{"markdown", "## root_tags"},
		{"mermaid", "root_tags -->|root_id| root"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			stdout, _, err := execute(t, ordersJSON, "--describe", tt.format, "--no-output")
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if !strings.Contains(stdout, tt.contains) {
				t.Errorf("expected %q in output:\n%s", tt.contains, stdout)
			}
		})
	}
}

func TestRunDescribeTables(t *testing.T) {
	stdout, _, err := execute(t, ordersJSON, "--describe", "mermaid", "--tables", "root_tags", "--no-output")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(stdout, "root_tags") || strings.Contains(stdout, "root_items") {
		t.Errorf("expected only root_tags in diagram:\n%s", stdout)
	}
}

func TestRunCopyToStdout(t *testing.T) {
	stdout, _, err := execute(t, ordersJSON, "--format", "copy", "--out-dir", "-")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.HasPrefix(stdout, "BEGIN;") || !strings.Contains(stdout, `COPY "root_items"`) {
		t.Errorf("unexpected script:\n%s", stdout)
	}
}

func TestRunTablesFilter(t *testing.T) {
	dir := t.TempDir()

	if _, _, err := execute(t, ordersJSON, "--out-dir", dir, "--tables", "root_tags, root"); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 files, got %d", len(entries))
	}
}

func TestRunUnknownTable(t *testing.T) {
	_, _, err := execute(t, ordersJSON, "--out-dir", t.TempDir(), "--tables", "root_itms")
	if err == nil {
		t.Fatal("expected error for unknown table")
	}
	if !strings.Contains(err.Error(), `did you mean "root_items"`) {
		t.Errorf("expected suggestion, got %v", err)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		args  []string
		want  string
	}{
		{"parse error", `{"a": tru}`, nil, "parse error at line 1"},
		{"duplicate key", `{"a": 1, "a": 2}`, nil, `duplicate key "a"`},
		{"depth", `{"a": {"b": {}}}`, []string{"--max-depth", "2"}, "nesting deeper than 2 levels"},
		{"too large", ordersJSON, []string{"--max-input-bytes", "8"}, "input exceeds size limit"},
		{"bad format", ordersJSON, []string{"--format", "xml"}, "output.format"},
		{"bad color", ordersJSON, []string{"--color", "sometimes"}, "--color"},
		{"bad describe", ordersJSON, []string{"--describe", "html", "--no-output"}, "unknown describe format"},
		{"bad depth flag", ordersJSON, []string{"--max-depth", "0"}, "--max-depth"},
		{"unsupported load", ordersJSON, []string{"--no-output", "--load", "oracle://x"}, "unsupported database URL"},
		{"positional args", ordersJSON, []string{"extra"}, "unknown command"},
		{"missing config", ordersJSON, []string{"--config", "no-such-json2relcsv.yaml"}, "config file not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--out-dir", t.TempDir()}, tt.args...)
			_, _, err := execute(t, tt.input, args...)
			if err == nil {
				t.Fatal("expected error but got none")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRunDepthError(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")

	_, _, err := execute(t, `{"a": {"b": {}}}`, "--out-dir", out, "--max-depth", "2")
	if !errors.Is(err, json2relcsv.ErrDepthExceeded) {
		t.Errorf("expected ErrDepthExceeded, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Errorf("expected no output directory, stat returned %v", statErr)
	}
}

func TestRunInputFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.json")
	if err := os.WriteFile(input, []byte(`[{"x": 1}, {"x": 2}]`), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	out := filepath.Join(dir, "out")
	if _, _, err := execute(t, "", "--input", input, "--out-dir", out, "--bare-root-names"); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "items.csv")); err != nil {
		t.Errorf("expected items.csv: %v", err)
	}

	if _, _, err := execute(t, "", "--input", filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing input file")
	}
}

func TestRunConfigFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "from-config")
	cfgPath := filepath.Join(dir, "json2relcsv.yaml")
	body := "output:\n  dir: " + out + "\n  tables: [root]\nlogging:\n  level: error\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, _, err := execute(t, ordersJSON, "--config", cfgPath); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "root.csv" {
		t.Errorf("expected only root.csv, got %d entries", len(entries))
	}
}

func TestRunLoadSQLite(t *testing.T) {
	dir := t.TempDir()
	url := "sqlite://" + filepath.Join(dir, "orders.db")

	_, stderr, err := execute(t, ordersJSON, "--no-output", "--load", url)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(stderr, "loaded 4 rows into 3 tables") {
		t.Errorf("expected load summary, got %q", stderr)
	}
}

func TestRunDatabaseURLRequiresFlag(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ambient.db")
	env := map[string]string{config.EnvDatabaseURL: "sqlite://" + dbPath}

	_, stderr, err := executeEnv(t, env, ordersJSON, "--no-output")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if strings.Contains(stderr, "loaded") {
		t.Errorf("expected no load without a flag, got %q", stderr)
	}
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Errorf("expected no database file, stat returned %v", err)
	}

	_, stderr, err = executeEnv(t, env, ordersJSON, "--no-output", "--load-database-url")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(stderr, "loaded 4 rows into 3 tables") {
		t.Errorf("expected load summary, got %q", stderr)
	}
}

func TestRunLoadDatabaseURLErrors(t *testing.T) {
	if _, _, err := execute(t, ordersJSON, "--no-output", "--load-database-url"); err == nil ||
		!strings.Contains(err.Error(), config.EnvDatabaseURL) {
		t.Errorf("expected missing %s error, got %v", config.EnvDatabaseURL, err)
	}

	env := map[string]string{config.EnvDatabaseURL: "sqlite://" + filepath.Join(t.TempDir(), "a.db")}
	if _, _, err := executeEnv(t, env, ordersJSON, "--no-output", "--load-database-url", "--load", "sqlite://b.db"); err == nil {
		t.Error("expected error when both load flags are set")
	}
}

func TestWarningsLogged(t *testing.T) {
	_, stderr, err := execute(t, `{"a": [{"x": 1}, {"x": 2, "y": 3}]}`, "--no-output", "--log-format", "json")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(stderr, `"code":"W001"`) {
		t.Errorf("expected W001 warning in log, got %q", stderr)
	}
	if !strings.Contains(stderr, `"run_id":"`) {
		t.Errorf("expected run_id in log, got %q", stderr)
	}
	if !strings.Contains(stderr, "(1 warning)") {
		t.Errorf("expected warning count in summary, got %q", stderr)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{" a , b ,, c ", []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		got := splitList(tt.input)
		if strings.Join(got, "|") != strings.Join(tt.expected, "|") || len(got) != len(tt.expected) {
			t.Errorf("splitList(%q): expected %v, got %v", tt.input, tt.expected, got)
		}
	}
}

func TestCheckTables(t *testing.T) {
	r := schema.NewRegistry()
	for _, name := range []string{"root", "root_items", "root_items_tags"} {
		parent := ""
		if name != "root" {
			parent = name[:strings.LastIndex(name, "_")]
		}
		if _, err := r.Create(name, parent, false, nil); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	s := r.Schema()

	if err := checkTables(s, []string{"root", "root_items_tags"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := checkTables(s, []string{"orders"}); err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("expected plain unknown table error, got %v", err)
	}
}
