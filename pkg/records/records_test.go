package records

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tabula-hq/formula/pkg/config"
	"tabula-hq/formula/pkg/schema"
	"tabula-hq/formula/pkg/telemetry/logging"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDecode(t *testing.T) {
	input := `[
		{"id": "lead-1", "firstName": "John", "score": 42, "custom": {"tier": "gold"}},
		{"id": 7, "firstName": "Ann", "phone": null},
		{"firstName": "NoID"}
	]`

	recs, err := Decode(strings.NewReader(input), "")
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("len = %d, want 3", len(recs))
	}

	tests := []struct {
		rec   *schema.Record
		id    string
		key   string
		value any
	}{
		{recs[0], "lead-1", "score", 42.0},
		{recs[0], "lead-1", "tier", "gold"},
		{recs[1], "7", "firstName", "Ann"},
		{recs[1], "7", "phone", nil},
		{recs[2], "3", "firstName", "NoID"},
	}
	for _, tt := range tests {
		if tt.rec.ID != tt.id {
			t.Errorf("ID = %q, want %q", tt.rec.ID, tt.id)
		}
		got, ok := tt.rec.Lookup(tt.key)
		if !ok || got != tt.value {
			t.Errorf("%s.%s = %v (%v), want %v", tt.id, tt.key, got, ok, tt.value)
		}
	}
	if _, ok := recs[0].Fields["id"]; ok {
		t.Error("the id field should not be copied into Fields")
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not an array", `{"id": "a"}`},
		{"bad custom", `[{"id": "a", "custom": 3}]`},
		{"bad id", `[{"id": true}]`},
		{"malformed", `[{"id": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.input), ""); err == nil {
				t.Error("Decode() should fail")
			}
		})
	}
}

func TestDecode_CustomIDField(t *testing.T) {
	recs, err := Decode(strings.NewReader(`[{"lead_id": "L1", "id": "other"}]`), "lead_id")
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if recs[0].ID != "L1" || recs[0].Fields["id"] != "other" {
		t.Errorf("record = %+v", recs[0])
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	in := []*schema.Record{
		{ID: "r1", Fields: map[string]any{"name": "bolt"}, Custom: map[string]any{"label": "BOLT"}},
		{ID: "r2", Fields: map[string]any{"name": "nut"}},
	}

	var buf bytes.Buffer
	if err := Encode(&buf, in, ""); err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	out, err := Decode(&buf, "")
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if out[0].ID != "r1" || out[0].Custom["label"] != "BOLT" || out[1].Fields["name"] != "nut" {
		t.Errorf("round trip = %+v, %+v", out[0], out[1])
	}
}

func TestJSONSource_Load(t *testing.T) {
	path := writeFile(t, "records.json", `[{"id": "a", "x": 1}, {"id": "b", "x": 2}]`)
	src := NewJSONSource(path, "", logging.Discard())
	defer src.Close()

	recs, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(recs) != 2 || recs[1].ID != "b" {
		t.Errorf("records = %+v", recs)
	}
}

func TestJSONSource_Errors(t *testing.T) {
	src := NewJSONSource(filepath.Join(t.TempDir(), "missing.json"), "", logging.Discard())
	_, err := src.Load(context.Background())
	var se *SourceError
	if !errors.As(err, &se) || se.Operation != "open" {
		t.Errorf("missing file error = %v, want open SourceError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error should unwrap to os.ErrNotExist: %v", err)
	}

	bad := NewJSONSource(writeFile(t, "bad.json", "nope"), "", logging.Discard())
	if _, err := bad.Load(context.Background()); !errors.As(err, &se) || se.Operation != "decode" {
		t.Errorf("bad file error = %v, want decode SourceError", err)
	}
}

func newTestDatabase(t *testing.T, statements ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return path
}

func TestSQLiteSource_Load(t *testing.T) {
	path := newTestDatabase(t,
		`CREATE TABLE leads (lead_id INTEGER PRIMARY KEY, email TEXT, score REAL, notes BLOB)`,
		`INSERT INTO leads VALUES (1, 'john@example.com', 72.5, x'6869')`,
		`INSERT INTO leads VALUES (2, NULL, 10, NULL)`,
	)

	src, err := NewSQLiteSource(&SQLiteConfig{Path: path, Table: "leads", IDColumn: "lead_id"}, logging.Discard())
	if err != nil {
		t.Fatalf("NewSQLiteSource() failed: %v", err)
	}
	defer src.Close()

	recs, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len = %d, want 2", len(recs))
	}

	first := recs[0]
	if first.ID != "1" {
		t.Errorf("ID = %q, want 1", first.ID)
	}
	tests := []struct {
		key  string
		want any
	}{
		{"email", "john@example.com"},
		{"score", 72.5},
		{"notes", "hi"},
	}
	for _, tt := range tests {
		if got := first.Fields[tt.key]; got != tt.want {
			t.Errorf("%s = %#v, want %#v", tt.key, got, tt.want)
		}
	}
	if _, ok := first.Fields["lead_id"]; ok {
		t.Error("the id column should not be copied into Fields")
	}
	if v, ok := recs[1].Lookup("email"); !ok || v != nil {
		t.Errorf("NULL email = %v (%v), want present nil", v, ok)
	}
	if recs[1].Fields["score"] != 10.0 {
		t.Errorf("integer score = %#v, want 10.0", recs[1].Fields["score"])
	}
}

func TestSQLiteSource_Errors(t *testing.T) {
	if _, err := NewSQLiteSource(&SQLiteConfig{}, nil); err == nil {
		t.Error("empty path should fail")
	}
	if _, err := NewSQLiteSource(&SQLiteConfig{Path: filepath.Join(t.TempDir(), "missing.db")}, nil); err == nil {
		t.Error("missing database should fail")
	}

	path := newTestDatabase(t, `CREATE TABLE records (name TEXT)`)
	src, err := NewSQLiteSource(&SQLiteConfig{Path: path}, logging.Discard())
	if err != nil {
		t.Fatalf("NewSQLiteSource() failed: %v", err)
	}
	defer src.Close()
	if _, err := src.Load(context.Background()); err == nil || !strings.Contains(err.Error(), `no id column "id"`) {
		t.Errorf("Load() error = %v, want missing id column", err)
	}
}

func TestOpen(t *testing.T) {
	jsonPath := writeFile(t, "r.json", `[]`)
	dbPath := newTestDatabase(t, `CREATE TABLE records (id TEXT)`)

	tests := []struct {
		name    string
		cfg     config.RecordsConfig
		want    string
		wantErr bool
	}{
		{"json", config.RecordsConfig{Backend: BackendJSON, Path: jsonPath}, "*records.JSONSource", false},
		{"default backend", config.RecordsConfig{Path: jsonPath}, "*records.JSONSource", false},
		{"sqlite", config.RecordsConfig{Backend: BackendSQLite, Path: dbPath}, "*records.SQLiteSource", false},
		{"unknown", config.RecordsConfig{Backend: "csv"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Open(tt.cfg, logging.Discard())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Open() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer src.Close()
			if got := typeName(src); got != tt.want {
				t.Errorf("Open() = %s, want %s", got, tt.want)
			}
		})
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *JSONSource:
		return "*records.JSONSource"
	case *SQLiteSource:
		return "*records.SQLiteSource"
	default:
		return "unknown"
	}
}
