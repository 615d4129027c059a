package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tabula-hq/formula/pkg/telemetry/health"
	"tabula-hq/formula/pkg/telemetry/logging"
)

func testServer(routes Routes) *Server {
	cfg := DefaultConfig()
	cfg.ListenAddress = "127.0.0.1:0"
	return New(cfg, routes, logging.Discard())
}

func TestHandler_Routes(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("formula_engine_calculations_total 3\n"))
	})
	s := testServer(Routes{
		Metrics:     metrics,
		MetricsPath: "/metrics",
		Health:      health.New(time.Second),
		BuildInfo:   health.BuildInfo{Version: "1.0.0"},
	})
	h := s.Handler()

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/metrics", http.StatusOK, "formula_engine_calculations_total"},
		{health.LivenessPath, http.StatusOK, ""},
		{health.ReadinessPath, http.StatusOK, ""},
		{health.VersionPath, http.StatusOK, "1.0.0"},
		{"/v1/unknown", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want containing %q", rec.Body.String(), tt.wantBody)
			}
			if rec.Header().Get(RequestIDHeader) == "" {
				t.Error("response has no request id")
			}
		})
	}
}

func TestHandler_NoMetrics(t *testing.T) {
	h := testServer(Routes{}).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without a metrics handler", rec.Code)
	}
}

func TestRequestIDMiddleware_KeepsClientID(t *testing.T) {
	var seen string
	h := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "req-42" || rec.Header().Get(RequestIDHeader) != "req-42" {
		t.Errorf("request id = %q, header %q", seen, rec.Header().Get(RequestIDHeader))
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logging.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestServer_StartStop(t *testing.T) {
	s := testServer(Routes{Health: health.New(time.Second)})
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}
	addr := s.Addr()
	if strings.HasSuffix(addr, ":0") {
		t.Fatalf("Addr() = %s, want the bound port", addr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + addr + health.LivenessPath)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET liveness failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("liveness status = %d", resp.StatusCode)
	}
	if !s.IsRunning() {
		t.Error("IsRunning() = false while serving")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}
