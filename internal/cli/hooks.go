package cli

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/patchcanvas/pkg/observability"
)

// logHooks reports backend trouble through the CLI logger and counts
// delivered events for the shutdown summary.
type logHooks struct {
	observability.NoopBackendHooks

	logger *log.Logger
	events atomic.Int64
}

func (h *logHooks) OnLockTimeout(waited time.Duration) {
	h.logger.Warn("runtime lock timed out", "waited", waited)
}

func (h *logHooks) OnEvent(string) { h.events.Add(1) }

func (h *logHooks) OnTransportError(_ context.Context, transport string, err error) {
	h.logger.Warn("transport error", "transport", transport, "err", err)
}

var _ observability.BackendHooks = (*logHooks)(nil)

// installHooks registers logHooks and returns them with a function that
// restores the defaults.
func installHooks(logger *log.Logger) (*logHooks, func()) {
	h := &logHooks{logger: logger}
	observability.SetBackendHooks(h)
	return h, observability.Reset
}
