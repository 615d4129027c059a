//go:build integration

package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// buildBinary compiles formulacalc into a temporary directory.
func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "formulacalc")
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build formulacalc: %v\nOutput: %s", err, output)
	}
	return binaryPath
}

// waitForHealthy waits for a health endpoint to return 200
func waitForHealthy(url string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 1 * time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return true
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}

func TestBinary_ExitCodes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := t.TempDir()
	valid := filepath.Join(dir, "valid.yaml")
	circular := filepath.Join(dir, "circular.yaml")
	os.WriteFile(valid, []byte(leadSchema), 0o644)
	os.WriteFile(circular, []byte(circularSchema), 0o644)

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
	}{
		{"version", []string{"version"}, 0, "Formulacalc"},
		{"eval", []string{"eval", "ROUND(budget * 1.2, 2)", "--set", "budget=1000"}, 0, "1200"},
		{"syntax error", []string{"eval", "1 +"}, 2, ""},
		{"valid schema", []string{"check", "--schema", valid}, 0, "is valid"},
		{"circular schema", []string{"check", "--schema", circular}, 2, "is invalid"},
		{"bad output format", []string{"functions", "-o", "xml"}, 3, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(bin, append(tt.args, "--log-level", "error")...)
			var stdout bytes.Buffer
			cmd.Stdout = &stdout
			err := cmd.Run()

			code := 0
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				code = exitErr.ExitCode()
			} else if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
			if !strings.Contains(stdout.String(), tt.wantOut) {
				t.Errorf("stdout = %q, want containing %q", stdout.String(), tt.wantOut)
			}
		})
	}
}

func TestBinary_WatchStartStop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "columns.yaml")
	os.WriteFile(schemaPath, []byte(leadSchema), 0o644)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, "watch", "--schema", schemaPath, "--listen", "127.0.0.1:18090", "--log-level", "error")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start watch: %v", err)
	}
	defer func() {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
	}()

	if !waitForHealthy("http://127.0.0.1:18090/ready", 10*time.Second) {
		t.Fatalf("watch did not become ready\nStderr: %s", stderr.String())
	}

	resp, err := http.Get("http://127.0.0.1:18090/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d, want 200", resp.StatusCode)
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		t.Fatalf("failed to send SIGINT: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watch exited with %v\nStderr: %s", err, stderr.String())
		}
	case <-time.After(5 * time.Second):
		t.Error("watch did not shut down within 5 seconds")
	}
}
