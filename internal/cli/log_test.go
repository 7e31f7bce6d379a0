package cli

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/patchcanvas/pkg/errors"
)

// replayWithLog runs replay with the CLI logging into a buffer.
func replayWithLog(t *testing.T, extra ...string) string {
	t.Helper()
	var logs bytes.Buffer
	c := New(&logs, LogInfo)
	c.getenv = func(string) string { return "" }

	args := append([]string{"replay", autopatchScenario, "--json", "--config", writeConfig(t, "")}, extra...)
	if _, err := execute(t, c, args...); err != nil {
		t.Fatalf("replay: %v", err)
	}
	return logs.String()
}

func TestReplayVerboseLogsCanvasComponent(t *testing.T) {
	logs := replayWithLog(t, "--verbose")

	for _, want := range []string{"config loaded", "component=canvas", "mutation", "kind=connect"} {
		if !strings.Contains(logs, want) {
			t.Errorf("verbose log missing %q:\n%s", want, logs)
		}
	}
}

func TestReplayQuietByDefault(t *testing.T) {
	logs := replayWithLog(t)

	if strings.Contains(logs, "component=canvas") {
		t.Errorf("debug lines leaked at info level:\n%s", logs)
	}
	if !strings.Contains(logs, "Replayed 4 steps") {
		t.Errorf("progress line missing:\n%s", logs)
	}
}

func TestNewLoggerKeepsComponentKey(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel).With("component", "journal")

	logger.Debug("append", "seq", 1)
	if buf.Len() != 0 {
		t.Errorf("debug written at info level: %q", buf.String())
	}

	logger.Warn("append failed", "seq", 2)
	if got := buf.String(); !strings.Contains(got, "component=journal") || !strings.Contains(got, "seq=2") {
		t.Errorf("warning = %q", got)
	}
}

func TestProgressReportsSteps(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	prog.done("Replayed 4 steps")

	if !strings.Contains(buf.String(), "Replayed 4 steps (") {
		t.Errorf("progress output = %q", buf.String())
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) == nil {
		t.Fatal("expected a default logger")
	}

	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)
	if got := loggerFromContext(withLogger(context.Background(), logger)); got != logger {
		t.Error("loggerFromContext should return the attached logger")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"interrupt", fmt.Errorf("serve: %w", context.Canceled), 130},
		{"bad scenario", errors.New(errors.ErrCodeInvalidScenario, "step 2 (drag)"), 2},
		{"bad format", errors.New(errors.ErrCodeInvalidInput, "unknown format"), 2},
		{"busy backend", errors.New(errors.ErrCodeBackendBusy, "lock timeout"), 1},
		{"plain", fmt.Errorf("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
