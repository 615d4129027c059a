package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"tabula-hq/formula/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: Config{}},
		{name: "json debug", cfg: Config{Level: "debug", Format: "json"}},
		{name: "text warn", cfg: Config{Level: "warning", Format: "text"}},
		{name: "console alias", cfg: Config{Format: "console"}},
		{name: "invalid level", cfg: Config{Level: "verbose"}, wantErr: true},
		{name: "invalid format", cfg: Config{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.cfg.Writer = &buf
			logger, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Fatal("New() returned nil logger")
			}
		})
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn message should be written")
	}
}

func TestNew_RedactPII(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "json", RedactPII: true, Writer: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Info("calculated",
		"email", "john.doe@example.com",
		"note", "call 555-123-4567 or mail jane@corp.io",
		"score", 85,
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON output %q: %v", buf.String(), err)
	}
	if got := entry["email"]; got != "j***@example.com" {
		t.Errorf("email = %v, want j***@example.com", got)
	}
	note, _ := entry["note"].(string)
	if strings.Contains(note, "555-123-4567") || strings.Contains(note, "jane@corp.io") {
		t.Errorf("note not redacted: %q", note)
	}
	if got := entry["score"]; got != 85.0 {
		t.Errorf("score = %v, want 85", got)
	}
}

func TestNew_RedactWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "json", RedactPII: true, Writer: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.With("phone", "+1 (555) 123-4567").WithGroup("record").Info("loaded", "id", "rec-1")

	out := buf.String()
	if strings.Contains(out, "123-4567") {
		t.Errorf("phone attached with With() was not redacted: %s", out)
	}
	if !strings.Contains(out, `"record":{"id":"rec-1"}`) {
		t.Errorf("group attrs missing: %s", out)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.LoggingConfig{
		Level:     "debug",
		Format:    "text",
		AddSource: true,
		RedactPII: true,
	})
	if cfg.Level != "debug" || cfg.Format != "text" || !cfg.AddSource || !cfg.RedactPII {
		t.Errorf("FromConfig() = %+v", cfg)
	}
	if cfg.Writer != nil {
		t.Error("FromConfig() should leave Writer unset")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("Discard() logger should not be enabled for any level")
	}
}
