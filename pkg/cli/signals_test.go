package cli

import (
	"os"
	"syscall"
	"testing"
	"time"
)

func TestSetupSignalHandler(t *testing.T) {
	ctx, stop := SetupSignalHandler()

	select {
	case <-ctx.Done():
		t.Fatal("context cancelled before any signal")
	default:
	}

	stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Error("stop() should cancel the context")
	}
}

func TestSetupSignalHandlerCancelsOnSignal(t *testing.T) {
	if testing.Short() {
		t.Skip("sends a signal to the test process")
	}

	ctx, stop := SetupSignalHandler()
	defer stop()

	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Signal(syscall.SIGTERM); err != nil {
		t.Fatal(err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Error("context not cancelled after SIGTERM")
	}
}

func TestReloadSignal(t *testing.T) {
	if testing.Short() {
		t.Skip("sends a signal to the test process")
	}

	ch := ReloadSignal()
	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Signal(syscall.SIGHUP); err != nil {
		t.Fatal(err)
	}

	select {
	case sig := <-ch:
		if sig != syscall.SIGHUP {
			t.Errorf("got %v, want SIGHUP", sig)
		}
	case <-time.After(2 * time.Second):
		t.Error("SIGHUP not delivered")
	}
}

func TestWaitForShutdown(t *testing.T) {
	sigChan := WaitForShutdown()
	if sigChan == nil {
		t.Fatal("WaitForShutdown() returned nil channel")
	}

	select {
	case <-sigChan:
		t.Error("signal channel should be empty initially")
	case <-time.After(10 * time.Millisecond):
	}
}
