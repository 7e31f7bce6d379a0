package journal

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/patchcanvas/pkg/canvas"
	"github.com/matzehuels/patchcanvas/pkg/errors"
	"github.com/matzehuels/patchcanvas/pkg/patch"
)

// Recorder is a canvas observer that appends every mutation to a journal.
// Append failures are logged and counted but never reach the canvas.
type Recorder struct {
	canvas.NoopObserver

	ctx     context.Context
	journal Journal
	logger  *log.Logger
	failed  int
}

// NewRecorder creates a recorder writing to j. A nil logger discards logs.
func NewRecorder(ctx context.Context, j Journal, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Recorder{ctx: ctx, journal: j, logger: logger.With("component", "journal")}
}

// Mutated appends m.
func (r *Recorder) Mutated(m canvas.Mutation) {
	if err := r.journal.Append(r.ctx, m); err != nil {
		r.failed++
		r.logger.Warn("journal append failed", "mutation", m.String(), "err", err)
	}
}

// Failed returns how many appends have failed.
func (r *Recorder) Failed() int { return r.failed }

var _ canvas.Observer = (*Recorder)(nil)

// Replay applies entries to rt in order. It acquires rt's lock once for the
// whole batch and stops at the first failure.
func Replay(rt interface {
	patch.Mutator
	patch.Locker
}, entries []Entry) (int, error) {
	release, ok := rt.Acquire(lockTimeout)
	if !ok {
		return 0, errors.New(errors.ErrCodeBackendBusy, "runtime lock not acquired within %s", lockTimeout)
	}
	defer release()
	for i, e := range entries {
		if err := e.Mutation.Apply(rt); err != nil {
			code := errors.GetCode(err)
			if code == "" {
				code = errors.ErrCodeInternal
			}
			return i, errors.Wrap(code, err, "replay entry %d (%s)", e.Seq, e.Mutation)
		}
	}
	return len(entries), nil
}

// Undo applies the inverse of entries, newest first.
func Undo(rt interface {
	patch.Mutator
	patch.Locker
}, entries []Entry) (int, error) {
	inv := make([]Entry, len(entries))
	for i, e := range entries {
		e.Mutation = e.Mutation.Invert()
		inv[len(entries)-1-i] = e
	}
	return Replay(rt, inv)
}
