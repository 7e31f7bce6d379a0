package canvas

import (
	"fmt"
	"image"

	"github.com/matzehuels/patchcanvas/pkg/patch"
)

// =============================================================================
// Observer
// =============================================================================

// Observer receives canvas changes. All methods run on the UI goroutine and
// must not block; the items passed in are only valid for the duration of
// the call unless their Alive method is checked later.
type Observer interface {
	NodeCreated(n *Node)
	NodeDestroyed(n *Node)
	EdgeCreated(e *Edge)
	EdgeDestroyed(e *Edge)
	SelectionChanged(items []Item)
	Mutated(m Mutation)
}

// NoopObserver implements Observer with empty methods. Embed it to
// implement only the callbacks you need.
type NoopObserver struct{}

func (NoopObserver) NodeCreated(*Node)       {}
func (NoopObserver) NodeDestroyed(*Node)     {}
func (NoopObserver) EdgeCreated(*Edge)       {}
func (NoopObserver) EdgeDestroyed(*Edge)     {}
func (NoopObserver) SelectionChanged([]Item) {}
func (NoopObserver) Mutated(Mutation)        {}

// =============================================================================
// Mutations
// =============================================================================

// MutationKind identifies a runtime change made by the editor.
type MutationKind string

const (
	MutationGeometry   MutationKind = "geometry"
	MutationConnect    MutationKind = "connect"
	MutationDisconnect MutationKind = "disconnect"
	MutationCreate     MutationKind = "create"
	MutationRemove     MutationKind = "remove"
)

// Mutation records one change the editor pushed to the runtime. Mutations
// are journaled and can be inverted for undo.
type Mutation struct {
	Kind       MutationKind          `json:"kind"`
	Handle     patch.Handle          `json:"handle,omitzero"`
	Text       string                `json:"text,omitempty"`
	Before     Rect                  `json:"before,omitzero"`
	After      Rect                  `json:"after,omitzero"`
	Connection *patch.ConnectionInfo `json:"connection,omitempty"`
}

func (m Mutation) String() string {
	switch m.Kind {
	case MutationConnect, MutationDisconnect:
		if m.Connection != nil {
			return fmt.Sprintf("%s %s", m.Kind, m.Connection)
		}
	case MutationGeometry:
		return fmt.Sprintf("%s %s %v -> %v", m.Kind, m.Handle.Short(), m.Before, m.After)
	case MutationCreate, MutationRemove:
		return fmt.Sprintf("%s %s %q", m.Kind, m.Handle.Short(), m.Text)
	}
	return string(m.Kind)
}

// Invert returns the mutation that undoes m. Create and Remove invert to
// each other but the recreated unit gets a fresh handle.
func (m Mutation) Invert() Mutation {
	inv := m
	switch m.Kind {
	case MutationGeometry:
		inv.Before, inv.After = m.After, m.Before
	case MutationConnect:
		inv.Kind = MutationDisconnect
	case MutationDisconnect:
		inv.Kind = MutationConnect
	case MutationCreate:
		inv.Kind = MutationRemove
	case MutationRemove:
		inv.Kind = MutationCreate
	}
	return inv
}

// Apply performs m against rt. The caller must hold the runtime lock.
func (m Mutation) Apply(rt patch.Mutator) error {
	switch m.Kind {
	case MutationGeometry:
		return rt.SetBounds(m.Handle, m.After.Rectangle())
	case MutationConnect:
		if m.Connection == nil {
			return fmt.Errorf("connect mutation without connection")
		}
		return rt.Connect(*m.Connection)
	case MutationDisconnect:
		if m.Connection == nil {
			return fmt.Errorf("disconnect mutation without connection")
		}
		return rt.Disconnect(*m.Connection)
	case MutationCreate:
		_, err := rt.CreateUnit(m.Text, m.After.Rectangle().Min)
		return err
	case MutationRemove:
		return rt.RemoveUnits([]patch.Handle{m.Handle})
	}
	return fmt.Errorf("unknown mutation kind %q", m.Kind)
}

func geometryMutation(h patch.Handle, before, after image.Rectangle) Mutation {
	return Mutation{Kind: MutationGeometry, Handle: h, Before: RectOf(before), After: RectOf(after)}
}

func connectionMutation(kind MutationKind, c patch.ConnectionInfo) Mutation {
	return Mutation{Kind: kind, Connection: &c}
}
