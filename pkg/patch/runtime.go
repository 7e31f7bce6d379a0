package patch

import (
	"image"
	"time"
)

// Querier reads the runtime's authoritative state. Callers must hold the
// lock obtained from [Locker.Acquire].
type Querier interface {
	Units() []UnitInfo
	Unit(h Handle) (UnitInfo, bool)
	Valid(h Handle) bool
	Connections() []ConnectionInfo
	HasConnection(c ConnectionInfo) bool
	CanConnect(c ConnectionInfo) bool
}

// Mutator changes the runtime's graph. Callers must hold the lock obtained
// from [Locker.Acquire].
type Mutator interface {
	CreateUnit(text string, at image.Point) (Handle, error)
	RemoveUnits(hs []Handle) error
	Connect(c ConnectionInfo) error
	Disconnect(c ConnectionInfo) error
	MoveUnits(hs []Handle, dx, dy int) error
	SetBounds(h Handle, r image.Rectangle) error
}

// Notifier delivers change notifications. fn runs on the goroutine that
// made the change; it must not block and must not call back into the runtime.
type Notifier interface {
	Subscribe(fn func(Event)) (cancel func())
}

// Locker is the runtime's callback lock. Acquire waits at most timeout and
// reports whether the lock was taken; release must be called exactly once
// when ok is true.
type Locker interface {
	Acquire(timeout time.Duration) (release func(), ok bool)
}

// Runtime is the full backend contract used by the canvas.
type Runtime interface {
	Querier
	Mutator
	Notifier
	Locker
}
