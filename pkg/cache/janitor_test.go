package cache

import (
	"context"
	"testing"
	"time"
)

func TestJanitor_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantErr     bool
		wantRunning bool
	}{
		{"valid descriptor", "@every 1m", false, true},
		{"valid cron expression", "0 * * * *", false, true},
		{"empty schedule", "", false, false},
		{"invalid schedule", "not a schedule", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := NewJanitor(New(DefaultConfig()), tt.schedule, nil)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := j.Start(ctx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Start() error = %v, wantErr %v", err, tt.wantErr)
			}
			defer j.Stop()

			if j.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", j.IsRunning(), tt.wantRunning)
			}

			next := j.NextRun()
			if tt.wantRunning && next == nil {
				t.Error("NextRun() = nil for a running janitor")
			}
			if !tt.wantRunning && next != nil {
				t.Errorf("NextRun() = %v for a stopped janitor", next)
			}
		})
	}
}

func TestJanitor_StopsOnContextCancel(t *testing.T) {
	j := NewJanitor(New(DefaultConfig()), DefaultCleanupSchedule, nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := j.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for j.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if j.IsRunning() {
		t.Error("janitor should stop after context cancellation")
	}
}

func TestJanitor_RunOnce(t *testing.T) {
	c, clock := newTestCache(Config{TTL: time.Minute, MaxSize: 10})
	c.Set(Key{RecordID: "r1"}, 1.0)
	c.Set(Key{RecordID: "r2"}, 2.0)
	clock.Advance(time.Hour)

	j := NewJanitor(c, DefaultCleanupSchedule, nil)
	if removed := j.RunOnce(); removed != 2 {
		t.Errorf("RunOnce() removed %d, want 2", removed)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestJanitor_StartTwice(t *testing.T) {
	j := NewJanitor(New(DefaultConfig()), DefaultCleanupSchedule, nil)
	ctx := context.Background()
	if err := j.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer j.Stop()
	if err := j.Start(ctx); err != nil {
		t.Errorf("second Start() error = %v, want nil", err)
	}
	if n := len(j.cron.Entries()); n != 1 {
		t.Errorf("cron entries = %d, want 1", n)
	}
}

func TestJanitor_Restart(t *testing.T) {
	j := NewJanitor(New(DefaultConfig()), DefaultCleanupSchedule, nil)

	first, cancelFirst := context.WithCancel(context.Background())
	if err := j.Start(first); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	j.Stop()
	if n := len(j.cron.Entries()); n != 0 {
		t.Errorf("cron entries after Stop = %d, want 0", n)
	}

	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("second Start() failed: %v", err)
	}
	defer j.Stop()
	if n := len(j.cron.Entries()); n != 1 {
		t.Errorf("cron entries after restart = %d, want 1", n)
	}

	// Cancelling the context of the first run must not stop the second.
	cancelFirst()
	time.Sleep(50 * time.Millisecond)
	if !j.IsRunning() {
		t.Error("restarted janitor stopped by an earlier context")
	}
}
