package canvas

import (
	"image"
	"slices"

	"github.com/matzehuels/patchcanvas/pkg/observability"
	"github.com/matzehuels/patchcanvas/pkg/patch"
)

// ConnectState is the state of the connection gesture.
type ConnectState uint8

const (
	// Idle means no connection is pending.
	Idle ConnectState = iota
	// CreatingFromSource means pending connections follow the cursor but no
	// drag has begun; a click on a second iolet commits them.
	CreatingFromSource
	// DraggingToTarget means the cursor is being dragged and the nearest
	// compatible iolet is tracked.
	DraggingToTarget
)

var connectStateNames = [...]string{
	Idle:               "idle",
	CreatingFromSource: "creating",
	DraggingToTarget:   "dragging",
}

func (s ConnectState) String() string {
	if int(s) < len(connectStateNames) {
		return connectStateNames[s]
	}
	return "unknown"
}

// ConnectionController drives click-to-connect and drag-to-connect
// gestures. It holds weak references to the pending sources and to the
// targeted candidate; destroyed ones are dropped.
type ConnectionController struct {
	c *Canvas

	state   ConnectState
	pending []*Iolet
	nearest *Iolet
	pressed *Iolet

	pressAt    image.Point
	cursor     image.Point
	dragged    bool
	hadPending bool
}

func newConnectionController(c *Canvas) *ConnectionController {
	return &ConnectionController{c: c}
}

// State returns the current gesture state.
func (cc *ConnectionController) State() ConnectState { return cc.state }

// Pending returns the live sources of pending connections.
func (cc *ConnectionController) Pending() []*Iolet {
	cc.prune()
	return slices.Clone(cc.pending)
}

// Nearest returns the targeted candidate, or nil.
func (cc *ConnectionController) Nearest() *Iolet {
	if !cc.nearest.Alive() {
		return nil
	}
	return cc.nearest
}

// Cursor returns the last cursor position seen by the gesture.
func (cc *ConnectionController) Cursor() image.Point { return cc.cursor }

// Press handles a press on io at pos. With no pending connection it starts
// one; shift on a selected node fans out to the same iolet index on every
// selected node that has one.
func (cc *ConnectionController) Press(io *Iolet, pos image.Point, mods Modifiers) {
	cc.prune()
	if !io.Alive() {
		return
	}
	cc.pressed = io
	cc.pressAt = pos
	cc.cursor = pos
	cc.dragged = false
	cc.hadPending = len(cc.pending) > 0
	if cc.hadPending {
		return
	}

	if mods.Shift() && io.node.selected {
		for _, n := range cc.c.selection.Nodes() {
			if src := n.Iolet(io.dir, io.index); src.Alive() {
				cc.pending = append(cc.pending, src)
			}
		}
	}
	if len(cc.pending) == 0 {
		cc.pending = []*Iolet{io}
	}
	cc.state = CreatingFromSource
	cc.c.logger.Debug("connection started", "from", io.node.handle.Short(), "dir", io.dir, "index", io.index, "pending", len(cc.pending))
}

// Drag moves the cursor. Once it has travelled far enough from the press,
// the nearest compatible candidate under the cursor is targeted.
func (cc *ConnectionController) Drag(pos image.Point) {
	cc.prune()
	if cc.state == Idle {
		return
	}
	cc.cursor = pos
	if !cc.dragged && distance(pos, cc.pressAt) > float64(cc.c.cfg.ConnectDragDistance) {
		cc.dragged = true
		if cc.state == CreatingFromSource && !cc.hadPending {
			cc.state = DraggingToTarget
		}
	}
	if cc.state == DraggingToTarget || cc.hadPending {
		cc.retarget(cc.findNearest(pos))
	}
}

// findNearest returns the candidate nearest to pos among iolets whose hit
// region contains pos, or nil.
func (cc *ConnectionController) findNearest(pos image.Point) *Iolet {
	if len(cc.pending) == 0 {
		return nil
	}
	from := cc.pending[0]
	want := from.dir.Opposite()
	var best *Iolet
	bestDist := 0.0
	for _, n := range cc.c.nodes {
		if !n.Alive() || n == from.node {
			continue
		}
		for _, io := range n.iolets(want) {
			if !pos.In(io.HitRegion(cc.c.cfg.IoletHitMargin)) {
				continue
			}
			d := distance(pos, io.Centre())
			if best == nil || d < bestDist {
				best, bestDist = io, d
			}
		}
	}
	return best
}

// retarget moves the targeted flag to io. The previous candidate is always
// cleared first so at most one iolet is targeted.
func (cc *ConnectionController) retarget(io *Iolet) {
	if cc.nearest == io {
		return
	}
	if cc.nearest != nil {
		cc.nearest.targeted = false
	}
	cc.nearest = nil
	if io.Alive() {
		io.targeted = true
		cc.nearest = io
	}
}

// Release ends the press. Depending on movement, modifiers and the current
// selection it commits, keeps waiting for a second click, chains, or runs
// auto-patching.
func (cc *ConnectionController) Release(mods Modifiers) {
	cc.prune()
	if cc.state == Idle {
		return
	}
	defer cc.retarget(nil)

	pressed := cc.pressed
	nearest := cc.Nearest()
	shift := mods.Shift()

	// A click that started the connection keeps it pending.
	if !cc.dragged && !cc.hadPending {
		return
	}

	if shift && len(cc.c.selection.Nodes()) > 1 && len(cc.pending) == 1 {
		target := nearest
		if target == nil {
			target = pressed
		}
		made := cc.autopatch(cc.pending[0], target)
		cc.finish(made, true)
		cc.reset()
		return
	}

	var target *Iolet
	switch {
	case cc.dragged && nearest != nil:
		target = nearest
	case !cc.dragged && cc.hadPending:
		target = pressed
	}
	made := 0
	if target != nil {
		made = cc.commitPending(target)
	}
	cc.finish(made, false)

	if !shift || len(cc.pending) != 1 {
		cc.reset()
		return
	}
	// Shift keeps a single pending connection alive for chaining.
	cc.state = CreatingFromSource
	cc.hadPending = false
}

// Cancel discards every pending connection and returns to Idle.
func (cc *ConnectionController) Cancel() {
	if cc.state == Idle && len(cc.pending) == 0 {
		return
	}
	if n := len(cc.pending); n > 0 {
		observability.Gesture().OnConnectionDiscarded(n)
		cc.c.logger.Debug("connection cancelled", "pending", n)
	}
	cc.retarget(nil)
	cc.reset()
}

func (cc *ConnectionController) finish(made int, autopatch bool) {
	if made > 0 {
		observability.Gesture().OnConnectionCommitted(made, autopatch)
		return
	}
	if n := len(cc.pending); n > 0 && !autopatch {
		observability.Gesture().OnConnectionDiscarded(n)
		cc.c.logger.Debug("connection discarded", "pending", n)
	}
}

// commitPending commits every pending connection to target. A pending
// connection started from target itself is dropped; incompatible pairs are
// skipped in silence.
func (cc *ConnectionController) commitPending(target *Iolet) int {
	made := 0
	kept := cc.pending[:0]
	for _, src := range cc.pending {
		if src == target {
			continue
		}
		if cc.commit(src, target) != nil {
			made++
		}
		kept = append(kept, src)
	}
	clear(cc.pending[len(kept):])
	cc.pending = kept
	return made
}

// commit creates an edge between a and b in the runtime and on the canvas.
// The pair may be given in either order. It returns nil when the pair is
// not a valid new connection or the runtime refuses it.
func (cc *ConnectionController) commit(a, b *Iolet) *Edge {
	c := cc.c
	if !a.Alive() || !b.Alive() || a.node == b.node || a.dir == b.dir {
		return nil
	}
	src, dst := a, b
	if src.dir == Inlet {
		src, dst = dst, src
	}
	conn := patch.ConnectionInfo{Src: src.node.handle, Outlet: src.index, Dst: dst.node.handle, Inlet: dst.index}
	if c.byConn[conn].Alive() {
		return nil
	}

	release, ok := c.acquire("connect")
	if !ok {
		return nil
	}
	if !c.rt.CanConnect(conn) {
		release()
		return nil
	}
	err := c.rt.Connect(conn)
	release()
	if err != nil {
		c.logger.Debug("connection refused", "conn", conn, "err", err)
		return nil
	}

	e := newEdge(conn, src, dst)
	c.byConn[conn] = e
	c.edges = append(c.edges, e)
	c.logger.Debug("connection committed", "conn", conn)
	c.notify(func(o Observer) { o.EdgeCreated(e) })
	c.mutated(connectionMutation(MutationConnect, conn))
	return e
}

// prune drops pending sources and the candidate whose nodes are gone. A
// gesture with no sources left returns to Idle.
func (cc *ConnectionController) prune() {
	cc.pending = slices.DeleteFunc(cc.pending, func(io *Iolet) bool { return !io.Alive() })
	if cc.nearest != nil && !cc.nearest.Alive() {
		cc.nearest.targeted = false
		cc.nearest = nil
	}
	if !cc.pressed.Alive() {
		cc.pressed = nil
	}
	if cc.state != Idle && len(cc.pending) == 0 {
		cc.reset()
	}
}

func (cc *ConnectionController) reset() {
	cc.state = Idle
	cc.pending = nil
	cc.pressed = nil
	cc.dragged = false
	cc.hadPending = false
}

// =============================================================================
// Canvas entry points
// =============================================================================

// PressIolet starts or continues a connection gesture on io.
func (c *Canvas) PressIolet(io *Iolet, pos image.Point, mods Modifiers) {
	c.CancelDrag()
	c.connect.Press(io, pos, mods)
}

// DragIolet moves the connection cursor to pos.
func (c *Canvas) DragIolet(pos image.Point) { c.connect.Drag(pos) }

// ReleaseIolet ends the press of a connection gesture.
func (c *Canvas) ReleaseIolet(mods Modifiers) { c.connect.Release(mods) }

// CancelConnection discards all pending connections.
func (c *Canvas) CancelConnection() { c.connect.Cancel() }
