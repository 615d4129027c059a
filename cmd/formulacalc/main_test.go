package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"tabula-hq/formula/pkg/cli"
	"tabula-hq/formula/pkg/config"
	"tabula-hq/formula/pkg/formula/functions"
	"tabula-hq/formula/pkg/records"
)

const leadSchema = `columns:
  - id: col_first
    key: firstName
  - id: col_last
    key: lastName
  - id: col_budget
    key: budget
  - id: col_full
    key: fullName
    formula:
      expression: CONCAT(firstName, " ", lastName)
  - id: col_taxed
    key: taxed
    formula:
      expression: ROUND(budget * 1.2, 2)
  - id: col_tier
    key: tier
    formula:
      expression: IF(taxed > 1000, "enterprise", "smb")
`

const circularSchema = `columns:
  - id: a
    key: a
    formula:
      expression: b + 1
  - id: b
    key: b
    formula:
      expression: a + 1
`

const leadRecords = `[
  {"id": "lead-1", "firstName": "Ada", "lastName": "Lovelace", "budget": 1000},
  {"id": "lead-2", "firstName": "Alan", "lastName": "Turing", "budget": 500}
]`

func newTestApp(t *testing.T) *app {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Engine.WorkerCount = 2
	cfg.Cache.CleanupSchedule = ""
	cfg.Telemetry.Logging.Level = "error"

	a, err := newApp(cfg)
	if err != nil {
		t.Fatalf("newApp() failed: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func testCommand(t *testing.T) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd, stdout, stderr
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func withOutput(t *testing.T, format string) {
	t.Helper()
	prev := outputFormat
	outputFormat = format
	t.Cleanup(func() { outputFormat = prev })
}

func TestVersion(t *testing.T) {
	buf := &bytes.Buffer{}
	printVersion(buf)
	if !strings.HasPrefix(buf.String(), "Formulacalc "+Version) {
		t.Errorf("output = %q", buf.String())
	}
	if info := buildInfo(); info.Version != Version || info.GoVersion == "" {
		t.Errorf("buildInfo() = %+v", info)
	}
}

func TestCommandsRegistered(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"calc", "check", "deps", "eval", "functions", "version", "watch"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("command %q not registered (have %v)", want, names)
		}
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"1500", 1500.0},
		{"-2.5", -2.5},
		{"true", true},
		{"Acme", "Acme"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := parseValue(tt.in); got != tt.want {
			t.Errorf("parseValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestRunEval(t *testing.T) {
	a := newTestApp(t)
	withOutput(t, "text")

	tests := []struct {
		name       string
		expression string
		set        []string
		record     string
		want       string
	}{
		{
			name:       "set values",
			expression: `IF(budget > 1000, "enterprise", "smb")`,
			set:        []string{"budget=1500"},
			want:       "enterprise",
		},
		{
			name:       "record file",
			expression: `CONCAT(firstName, " ", lastName)`,
			record:     leadRecords,
			want:       "Ada Lovelace",
		},
		{
			name:       "set overrides record",
			expression: `budget * 2`,
			set:        []string{"budget=7"},
			record:     leadRecords,
			want:       "14",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evalFlags.set = tt.set
			evalFlags.recordFile = ""
			if tt.record != "" {
				evalFlags.recordFile = writeTemp(t, "record.json", tt.record)
			}
			t.Cleanup(func() { evalFlags.set, evalFlags.recordFile = nil, "" })

			cmd, stdout, _ := testCommand(t)
			if err := runEval(cmd, a, tt.expression, stdout); err != nil {
				t.Fatalf("runEval() failed: %v", err)
			}
			if got := strings.TrimSpace(stdout.String()); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunEval_Errors(t *testing.T) {
	a := newTestApp(t)
	withOutput(t, "text")
	cmd, stdout, _ := testCommand(t)

	err := runEval(cmd, a, "1 +", stdout)
	if cli.ExitCode(err) != cli.ExitFormula {
		t.Errorf("syntax error exit code = %d, want %d (err %v)", cli.ExitCode(err), cli.ExitFormula, err)
	}

	evalFlags.set = []string{"novalue"}
	defer func() { evalFlags.set = nil }()
	err = runEval(cmd, a, "1", stdout)
	if cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("bad --set exit code = %d, want %d", cli.ExitCode(err), cli.ExitConfig)
	}
}

func TestRunCheck(t *testing.T) {
	a := newTestApp(t)

	checkFlags.schemaPath = writeTemp(t, "columns.yaml", leadSchema)
	defer func() { checkFlags = struct{ schemaPath, column, expression string }{} }()

	cmd, stdout, _ := testCommand(t)
	if err := runCheck(cmd, a, stdout); err != nil {
		t.Fatalf("runCheck() failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "(6 columns, 3 formulas)") {
		t.Errorf("output = %q", stdout.String())
	}

	checkFlags.column, checkFlags.expression = "col_taxed", "tier"
	stdout.Reset()
	if err := runCheck(cmd, a, stdout); err == nil {
		t.Errorf("taxed = tier should be reported circular, output %q", stdout.String())
	}

	checkFlags.expression = "budget * 2"
	stdout.Reset()
	if err := runCheck(cmd, a, stdout); err != nil {
		t.Errorf("taxed = budget * 2 reported as %v", err)
	}
}

func TestRunCheck_Circular(t *testing.T) {
	a := newTestApp(t)
	checkFlags.schemaPath = writeTemp(t, "columns.yaml", circularSchema)
	defer func() { checkFlags.schemaPath = "" }()

	cmd, stdout, _ := testCommand(t)
	err := runCheck(cmd, a, stdout)
	if cli.ExitCode(err) != cli.ExitFormula {
		t.Fatalf("exit code = %d, want %d (err %v)", cli.ExitCode(err), cli.ExitFormula, err)
	}
	if !strings.Contains(stdout.String(), "is invalid") {
		t.Errorf("output = %q", stdout.String())
	}
}

func TestRunDeps(t *testing.T) {
	a := newTestApp(t)
	withOutput(t, "csv")

	depsFlags.schemaPath = writeTemp(t, "columns.yaml", leadSchema)
	defer func() { depsFlags.schemaPath = "" }()

	cmd, stdout, _ := testCommand(t)
	if err := runSchemaDeps(cmd, a, stdout); err != nil {
		t.Fatalf("runSchemaDeps() failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if lines[0] != "column,level,depends_on,dependents" {
		t.Errorf("header = %q", lines[0])
	}
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header and 3 formula columns:\n%s", len(lines), stdout.String())
	}
	if !strings.HasPrefix(lines[3], "col_tier,") {
		t.Errorf("tier should be calculated last: %q", lines[3])
	}
}

func TestRunExpressionDeps(t *testing.T) {
	a := newTestApp(t)
	withOutput(t, "text")

	stdout := &bytes.Buffer{}
	if err := runExpressionDeps(a, "IF(budget > 1000, score * 2, score)", stdout); err != nil {
		t.Fatalf("runExpressionDeps() failed: %v", err)
	}
	got := strings.Fields(stdout.String())[1:]
	sort.Strings(got)
	if want := []string{"budget", "score"}; !reflect.DeepEqual(got, want) {
		t.Errorf("dependencies = %v, want %v", got, want)
	}
}

func TestRunFunctions(t *testing.T) {
	withOutput(t, "csv")
	functionsFlags.category = string(functions.CategoryText)
	defer func() { functionsFlags.category = "" }()

	buf := &bytes.Buffer{}
	if err := runFunctions(functions.NewDefaultRegistry(), buf); err != nil {
		t.Fatalf("runFunctions() failed: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "name,category,syntax,description\n") {
		t.Errorf("missing header: %q", out)
	}
	if !strings.Contains(out, "CONCAT,text,") {
		t.Errorf("CONCAT not listed: %q", out)
	}
	if strings.Contains(out, ",math,") {
		t.Error("category filter not applied")
	}

	functionsFlags.category = "astrology"
	if err := runFunctions(functions.NewDefaultRegistry(), buf); cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("unknown category error = %v", err)
	}
}

func TestRunCalc(t *testing.T) {
	a := newTestApp(t)

	calcFlags.schemaPath = writeTemp(t, "columns.yaml", leadSchema)
	calcFlags.recordsCfg.Path = writeTemp(t, "leads.json", leadRecords)
	calcFlags.noProgress = true
	defer func() {
		calcFlags.schemaPath, calcFlags.recordsCfg.Path, calcFlags.noProgress = "", "", false
	}()

	cmd, stdout, stderr := testCommand(t)
	if err := runCalc(cmd, a); err != nil {
		t.Fatalf("runCalc() failed: %v", err)
	}

	recs, err := records.Decode(stdout, "id")
	if err != nil {
		t.Fatalf("output is not a record file: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}

	want := map[string]map[string]any{
		"lead-1": {"fullName": "Ada Lovelace", "taxed": 1200.0, "tier": "enterprise"},
		"lead-2": {"fullName": "Alan Turing", "taxed": 600.0, "tier": "smb"},
	}
	for _, r := range recs {
		for key, v := range want[r.ID] {
			if got, _ := r.Lookup(key); got != v {
				t.Errorf("record %s %s = %v, want %v", r.ID, key, got, v)
			}
		}
	}
	if !strings.Contains(stderr.String(), "6 calculations over 2 records") {
		t.Errorf("summary = %q", stderr.String())
	}
}

func TestRunCalc_Changed(t *testing.T) {
	a := newTestApp(t)

	calcFlags.schemaPath = writeTemp(t, "columns.yaml", leadSchema)
	calcFlags.recordsCfg.Path = writeTemp(t, "leads.json", leadRecords)
	calcFlags.changed = "budget"
	calcFlags.noProgress = true
	defer func() {
		calcFlags.schemaPath, calcFlags.recordsCfg.Path, calcFlags.changed, calcFlags.noProgress = "", "", "", false
	}()

	cmd, stdout, stderr := testCommand(t)
	if err := runCalc(cmd, a); err != nil {
		t.Fatalf("runCalc() failed: %v", err)
	}
	// taxed and tier read budget; fullName does not.
	if !strings.Contains(stderr.String(), "4 calculations over 2 records") {
		t.Errorf("summary = %q", stderr.String())
	}
	recs, err := records.Decode(stdout, "id")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := recs[0].Lookup("fullName"); ok {
		t.Error("fullName should not be recomputed")
	}
}

func TestRunCalc_NoRecords(t *testing.T) {
	a := newTestApp(t)
	calcFlags.schemaPath = writeTemp(t, "columns.yaml", leadSchema)
	defer func() { calcFlags.schemaPath = "" }()

	cmd, _, _ := testCommand(t)
	if err := runCalc(cmd, a); cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("runCalc() without records = %v, want a config error", err)
	}
}

func TestRunWatch(t *testing.T) {
	a := newTestApp(t)
	a.cfg.Schema.DebounceInterval = 20 * time.Millisecond

	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "columns.yaml")
	if err := os.WriteFile(schemaPath, []byte(leadSchema), 0o644); err != nil {
		t.Fatal(err)
	}
	outPath := filepath.Join(dir, "scored.json")

	watchFlags.schemaPath = schemaPath
	watchFlags.recordsCfg.Path = writeTemp(t, "leads.json", leadRecords)
	watchFlags.outPath = outPath
	watchFlags.listen = "127.0.0.1:0"
	defer func() {
		watchFlags.schemaPath, watchFlags.recordsCfg.Path, watchFlags.outPath, watchFlags.listen = "", "", "", ""
	}()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runWatch(ctx, a) }()

	tierOf := func() any {
		data, err := os.ReadFile(outPath)
		if err != nil {
			return nil
		}
		recs, err := records.Decode(bytes.NewReader(data), "id")
		if err != nil || len(recs) == 0 {
			return nil
		}
		v, _ := recs[0].Lookup("tier")
		return v
	}
	waitFor := func(want any) {
		t.Helper()
		deadline := time.Now().Add(3 * time.Second)
		for time.Now().Before(deadline) {
			if tierOf() == want {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
		t.Fatalf("tier = %v, want %v", tierOf(), want)
	}

	waitFor("enterprise")

	changed := strings.Replace(leadSchema, `"enterprise"`, `"large"`, 1)
	if err := os.WriteFile(schemaPath, []byte(changed), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor("large")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runWatch() returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runWatch() did not return after cancel")
	}
}
