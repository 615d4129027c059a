package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"tabula-hq/formula/pkg/engine"
)

func TestSimpleProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf)

	progress.Start(250)
	progress.Update(100)
	progress.Finish()

	output := buf.String()
	if !strings.Contains(output, "Calculating:") {
		t.Errorf("output missing label: %q", output)
	}
	if !strings.Contains(output, "40.0% (100/250)") {
		t.Errorf("output missing intermediate progress: %q", output)
	}
	if !strings.Contains(output, "100.0% (250/250)") {
		t.Errorf("output missing final progress: %q", output)
	}
	if !strings.HasSuffix(output, "\n") {
		t.Error("Finish() should end the line")
	}
}

func TestSimpleProgressZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf)

	progress.Start(0)
	progress.Update(0)
	progress.Finish()

	if got := buf.String(); got != "\n" {
		t.Errorf("output = %q, want a bare newline", got)
	}
}

func TestSimpleProgressFinishWithoutStart(t *testing.T) {
	buf := &bytes.Buffer{}
	NewProgressReporter(buf).Finish()
	if buf.Len() != 0 {
		t.Errorf("Finish() before Start() wrote %q", buf.String())
	}
}

func TestSimpleProgressError(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf)

	progress.Start(100)
	progress.Error(errors.New("batch cancelled"))
	progress.Finish()

	output := buf.String()
	if !strings.Contains(output, "Error: batch cancelled") {
		t.Errorf("output = %q", output)
	}
	if strings.Contains(output, "100.0%") {
		t.Error("Finish() after Error() should not render completion")
	}
}

func TestEngineProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf)
	report := EngineProgress(progress)

	report(engine.Progress{BatchID: "b1", Completed: 100, Total: 200, Percent: 50})
	report(engine.Progress{BatchID: "b1", Completed: 200, Total: 200, Percent: 100})
	progress.Finish()

	output := buf.String()
	for _, want := range []string{"50.0% (100/200)", "100.0% (200/200)"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q: %q", want, output)
		}
	}
}
