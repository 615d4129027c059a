package worker

import (
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"tabula-hq/formula/pkg/formula/functions"
	"tabula-hq/formula/pkg/formula/parser"
)

func newTestWorker() *worker {
	return newWorker(0, functions.NewDefaultRegistry(), parser.NewParser(), 4, 1, slog.Default())
}

func TestWorker_Handle(t *testing.T) {
	calc, err := EncodeMessage(MessageCalculate, "m1", request("r1", "c", "1 + 1", nil))
	if err != nil {
		t.Fatalf("EncodeMessage() error = %v", err)
	}
	batch, _ := EncodeMessage(MessageBatchCalculate, "m2", []Request{request("r1", "c", "2", nil)})
	clearMsg, _ := EncodeMessage(MessageClearCache, "m3", nil)
	stats, _ := EncodeMessage(MessageGetStats, "m4", nil)
	unknown, _ := EncodeMessage("reticulate", "m5", nil)
	noData, _ := EncodeMessage(MessageCalculate, "m6", nil)

	tests := []struct {
		name      string
		raw       []byte
		wantType  MessageType
		wantID    string
		wantError string
	}{
		{"calculate", calc, MessageResult, "m1", ""},
		{"batch", batch, MessageBatchResult, "m2", ""},
		{"clear cache", clearMsg, MessageResult, "m3", ""},
		{"stats", stats, MessageStats, "m4", ""},
		{"unknown type", unknown, MessageError, "m5", "unknown message type"},
		{"missing payload", noData, MessageError, "m6", "has no data"},
		{"garbage", []byte("{not json"), MessageError, "", "failed to decode message"},
		{"no type", []byte(`{"id":"m7"}`), MessageError, "", "message has no type"},
	}

	w := newTestWorker()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeMessage(w.handle(tt.raw))
			if err != nil {
				t.Fatalf("response is not a valid message: %v", err)
			}
			if msg.Type != tt.wantType {
				t.Errorf("Type = %q, want %q (error %q)", msg.Type, tt.wantType, msg.Error)
			}
			if msg.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", msg.ID, tt.wantID)
			}
			if tt.wantError != "" && !strings.Contains(msg.Error, tt.wantError) {
				t.Errorf("Error = %q, want it to contain %q", msg.Error, tt.wantError)
			}
		})
	}
}

func TestWorker_ASTCacheBounded(t *testing.T) {
	w := newTestWorker()
	for i := 0; i < 10; i++ {
		if _, err := w.parse(strings.Repeat("1+", i) + "1"); err != nil {
			t.Fatalf("parse() error = %v", err)
		}
	}
	if len(w.asts) > w.astLimit {
		t.Errorf("AST cache holds %d entries, limit %d", len(w.asts), w.astLimit)
	}
}

func TestResult_JSONRoundTrip(t *testing.T) {
	when := time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		value any
	}{
		{"number", 42.5},
		{"text", "hello"},
		{"bool", true},
		{"date", when},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Result{ID: "x", Success: true, Value: tt.value, ExecutionTime: time.Millisecond}
			raw, err := json.Marshal(in)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			var out Result
			if err := json.Unmarshal(raw, &out); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if ts, ok := tt.value.(time.Time); ok {
				got, ok := out.Value.(time.Time)
				if !ok || !got.Equal(ts) {
					t.Errorf("Value = %#v, want %v", out.Value, ts)
				}
				return
			}
			if out.Value != tt.value {
				t.Errorf("Value = %#v, want %#v", out.Value, tt.value)
			}
			if out.ExecutionTime != time.Millisecond {
				t.Errorf("ExecutionTime = %v, want 1ms", out.ExecutionTime)
			}
		})
	}
}
