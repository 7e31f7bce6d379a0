package canvas

import (
	"image"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/patchcanvas/pkg/errors"
	"github.com/matzehuels/patchcanvas/pkg/observability"
	"github.com/matzehuels/patchcanvas/pkg/patch"
)

// Modifiers is the keyboard modifier state of a gesture.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModAlt
	ModCommand
)

// Shift reports whether the shift modifier is held.
func (m Modifiers) Shift() bool { return m&ModShift != 0 }

// Options configures a Canvas.
type Options struct {
	Config Config
	// Logger receives debug and warning output. Nil means log.Default().
	Logger *log.Logger
	// Observers are notified of every node, edge, selection and mutation
	// change. More can be added with [Canvas.Observe].
	Observers []Observer
	// Now is the clock used by the drag rate reducer. Nil means time.Now.
	Now func() time.Time
}

// Canvas mirrors a runtime's graph and turns gestures into mutations.
type Canvas struct {
	rt     patch.Runtime
	cfg    Config
	logger *log.Logger

	observers []Observer

	nodes    []*Node
	byHandle map[patch.Handle]*Node
	edges    []*Edge
	byConn   map[patch.ConnectionInfo]*Edge

	selection *SelectionSet
	drag      *DragCoordinator
	snap      *GridSnapEngine
	connect   *ConnectionController
	tasks     *TaskQueue
	reducer   *rateReducer

	press       nodePress
	limit       image.Rectangle
	unsubscribe func()
}

// nodePress is the state of a press on a node that may become a drag.
type nodePress struct {
	node        *Node
	origin      image.Rectangle
	wasSelected bool
	shift       bool
	moved       bool
}

// New creates a canvas over rt, subscribes to its notifications and runs an
// initial synchronization.
func New(rt patch.Runtime, opts Options) *Canvas {
	cfg := opts.Config.normalized()
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	c := &Canvas{
		rt:        rt,
		cfg:       cfg,
		logger:    logger.With("component", "canvas"),
		observers: slices.Clone(opts.Observers),
		byHandle:  make(map[patch.Handle]*Node),
		byConn:    make(map[patch.ConnectionInfo]*Edge),
		drag:      NewDragCoordinator(cfg.MinDragMovement),
		snap:      NewGridSnapEngine(cfg),
		tasks:     NewTaskQueue(),
		reducer:   newRateReducer(60, opts.Now),
	}
	c.selection = NewSelectionSet(func(items []Item) {
		c.notify(func(o Observer) { o.SelectionChanged(items) })
	})
	c.connect = newConnectionController(c)
	c.unsubscribe = rt.Subscribe(c.tasks.PostEvent)
	c.Synchronize(false)
	return c
}

// Close stops listening to the runtime. Queued work is dropped.
func (c *Canvas) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.tasks.take()
}

// Observe adds an observer.
func (c *Canvas) Observe(o Observer) { c.observers = append(c.observers, o) }

func (c *Canvas) notify(fn func(Observer)) {
	for _, o := range c.observers {
		fn(o)
	}
}

func (c *Canvas) mutated(m Mutation) {
	c.logger.Debug("mutation", "kind", m.Kind, "detail", m.String())
	c.notify(func(o Observer) { o.Mutated(m) })
}

// =============================================================================
// Accessors
// =============================================================================

// Runtime returns the runtime the canvas mirrors.
func (c *Canvas) Runtime() patch.Runtime { return c.rt }

// Config returns the normalized settings.
func (c *Canvas) Config() Config { return c.cfg }

// Nodes returns the live nodes in runtime order, which is also z-order.
func (c *Canvas) Nodes() []*Node { return slices.Clone(c.nodes) }

// Edges returns the live edges in runtime order.
func (c *Canvas) Edges() []*Edge { return slices.Clone(c.edges) }

// Node returns the node for h, or nil.
func (c *Canvas) Node(h patch.Handle) *Node { return c.byHandle[h] }

// Edge returns the edge for conn, or nil.
func (c *Canvas) Edge(conn patch.ConnectionInfo) *Edge { return c.byConn[conn] }

// Selection returns the selection set.
func (c *Canvas) Selection() *SelectionSet { return c.selection }

// Snapper returns the snap engine driving node drags.
func (c *Canvas) Snapper() *GridSnapEngine { return c.snap }

// Dragger returns the drag coordinator.
func (c *Canvas) Dragger() *DragCoordinator { return c.drag }

// Connector returns the connection gesture controller.
func (c *Canvas) Connector() *ConnectionController { return c.connect }

// Tasks returns the deferred work queue.
func (c *Canvas) Tasks() *TaskQueue { return c.tasks }

// SetViewport sets the rectangle that dragged nodes may not leave. The zero
// rectangle removes the limit.
func (c *Canvas) SetViewport(r image.Rectangle) { c.limit = r.Canon() }

// SetGridEnabled toggles absolute grid snapping.
func (c *Canvas) SetGridEnabled(v bool) {
	c.cfg.GridEnabled = v
	c.snap.SetGridEnabled(v)
}

// NodeAt returns the topmost node containing p, or nil.
func (c *Canvas) NodeAt(p image.Point) *Node {
	for i := len(c.nodes) - 1; i >= 0; i-- {
		if n := c.nodes[i]; n.Alive() && p.In(n.Bounds()) {
			return n
		}
	}
	return nil
}

// acquire takes the runtime lock within the configured timeout.
func (c *Canvas) acquire(op string) (func(), bool) {
	start := time.Now()
	release, ok := c.rt.Acquire(c.cfg.LockTimeout)
	if !ok {
		waited := time.Since(start)
		c.logger.Warn("runtime lock unavailable", "op", op, "waited", waited)
		observability.Backend().OnLockTimeout(waited)
		return nil, false
	}
	return release, true
}

// =============================================================================
// Deferred work
// =============================================================================

// Drain runs everything queued so far on the calling goroutine and returns
// the number of tasks that ran. Work targeting a unit that no longer exists
// is skipped.
func (c *Canvas) Drain() int {
	ran := 0
	for _, t := range c.tasks.take() {
		switch {
		case t.event != nil:
			c.HandleEvent(*t.event)
		case t.checked:
			if !c.byHandle[t.handle].Alive() {
				c.logger.Debug("dropping task for stale handle", "handle", t.handle.Short())
				continue
			}
			t.run()
		default:
			t.run()
		}
		ran++
	}
	return ran
}

// HandleEvent applies one runtime notification. It must be called on the UI
// goroutine; [Canvas.Drain] does so for queued notifications.
func (c *Canvas) HandleEvent(ev patch.Event) {
	observability.Backend().OnEvent(ev.Kind.String())
	switch ev.Kind {
	case patch.EventGeometry:
		n := c.byHandle[ev.Handle]
		if !n.Alive() {
			return
		}
		if n.overlay != nil {
			return
		}
		c.refresh(n)
	case patch.EventMessage:
		n := c.byHandle[ev.Handle]
		if !n.Alive() {
			return
		}
		if n.behavior.ReceiveMessage(ev.Symbol, ev.Args) && n.overlay == nil {
			c.refresh(n)
		}
	case patch.EventText, patch.EventUnitAdded, patch.EventUnitRemoved, patch.EventConnections:
		c.Synchronize(true)
	case patch.EventReload:
		c.Synchronize(false)
	}
}

// refresh reloads one node's geometry from the runtime.
func (c *Canvas) refresh(n *Node) {
	release, ok := c.acquire("refresh")
	if !ok {
		return
	}
	u, found := c.rt.Unit(n.handle)
	release()
	if !found {
		return
	}
	n.setBounds(n.behavior.UpdateBounds(u.Bounds), c.cfg.MinNodeSize)
}

// =============================================================================
// Node gestures
// =============================================================================

// PressNode starts a press on n. Without shift an unselected node becomes
// the only selection; with shift its membership is toggled on release. A
// press on a selected node keeps the selection so the group can be dragged.
func (c *Canvas) PressNode(n *Node, mods Modifiers) {
	c.CancelDrag()
	if !n.Alive() {
		return
	}
	c.press = nodePress{node: n, origin: n.Bounds(), wasSelected: n.selected, shift: mods.Shift()}
	if !n.selected {
		if !mods.Shift() {
			c.selection.clear()
		}
		c.selection.add(n)
		c.selection.changed()
	}

	var movable []*Node
	for _, s := range c.selection.Nodes() {
		if _, ok := s.behavior.ApplyBounds(s.bounds); ok {
			movable = append(movable, s)
		}
	}
	c.snap.Reset()
	c.reducer.reset()
	c.drag.Begin(movable, c.nodes)
	c.logger.Debug("drag begin", "nodes", len(movable))
}

// DragNodes moves the pressed selection by offset from the press point.
func (c *Canvas) DragNodes(offset image.Point) {
	if !c.drag.Active() || !c.press.node.Alive() {
		return
	}
	if c.cfg.DragRateLimit && !c.reducer.allow(offset) {
		return
	}
	c.dragTo(offset)
}

func (c *Canvas) dragTo(offset image.Point) {
	moving := c.drag.Nodes()
	in := SnapInput{
		Anchor: c.press.node,
		Origin: c.press.origin,
		Group:  c.drag.Union(),
		Moving: moving,
		Edges:  c.edges,
		Limit:  c.limit,
	}
	for _, n := range c.nodes {
		if n.Alive() && !slices.Contains(moving, n) {
			in.Candidates = append(in.Candidates, n)
		}
	}
	if c.drag.Drag(c.snap.Snap(in, offset)) {
		c.press.moved = true
	}
}

// ReleaseNodes ends a node press. A drag pushes one batched move to the
// runtime; if the runtime lock cannot be taken the nodes return to where
// they started. A click without movement settles the selection.
func (c *Canvas) ReleaseNodes(mods Modifiers) {
	if !c.drag.Active() {
		c.press = nodePress{}
		return
	}
	if p, ok := c.reducer.flush(); ok {
		c.dragTo(p)
	}
	press := c.press
	c.press = nodePress{}
	c.snap.End(c.drag.Offset())

	res, moved := c.drag.End(&c.nodes)
	if !moved {
		c.settleClick(press, mods)
		return
	}
	c.commitMove(res)
}

func (c *Canvas) settleClick(press nodePress, mods Modifiers) {
	if press.moved || !press.node.Alive() || !press.wasSelected {
		return
	}
	if mods.Shift() {
		c.selection.Remove(press.node)
		return
	}
	if c.selection.Len() > 1 {
		c.selection.clear()
		c.selection.add(press.node)
		c.selection.changed()
	}
}

func (c *Canvas) commitMove(res DragResult) {
	revert := func() {
		for _, n := range res.Nodes {
			n.bounds = res.Before[n]
		}
	}
	release, ok := c.acquire("move")
	if !ok {
		revert()
		return
	}
	handles := make([]patch.Handle, len(res.Nodes))
	for i, n := range res.Nodes {
		handles[i] = n.handle
	}
	err := c.rt.MoveUnits(handles, res.Delta.X, res.Delta.Y)
	release()
	if err != nil {
		c.logger.Warn("move rejected by runtime", "err", err)
		revert()
		return
	}

	c.logger.Debug("drag end", "nodes", len(res.Nodes), "dx", res.Delta.X, "dy", res.Delta.Y)
	observability.Gesture().OnDragComplete(len(res.Nodes), res.Delta.X, res.Delta.Y)
	for _, n := range res.Nodes {
		c.mutated(geometryMutation(n.handle, res.Before[n], n.bounds))
	}
}

// CancelDrag abandons a node drag. Every node goes back to its position at
// press time and nothing is written to the runtime.
func (c *Canvas) CancelDrag() {
	if !c.drag.Active() {
		return
	}
	c.drag.Cancel(&c.nodes)
	c.snap.Reset()
	c.reducer.reset()
	c.press = nodePress{}
}

// Lasso selects every node intersecting r, replacing the current selection
// unless additive.
func (c *Canvas) Lasso(r image.Rectangle, additive bool) {
	c.selection.Lasso(r, c.nodes, additive)
}

// =============================================================================
// Editing commands
// =============================================================================

// CreateNode asks the runtime to create a unit from text at p and selects
// the new node.
func (c *Canvas) CreateNode(text string, at image.Point) (*Node, error) {
	if err := errors.ValidateUnitText(text); err != nil {
		return nil, err
	}
	release, ok := c.acquire("create")
	if !ok {
		return nil, errors.New(errors.ErrCodeBackendBusy, "runtime lock unavailable")
	}
	h, err := c.rt.CreateUnit(text, at)
	release()
	if err != nil {
		return nil, err
	}

	c.Synchronize(true)
	n := c.byHandle[h]
	if !n.Alive() {
		return nil, errors.New(errors.ErrCodeNotFound, "created unit not reported by runtime")
	}
	c.selection.clear()
	c.selection.add(n)
	c.selection.changed()
	c.mutated(Mutation{Kind: MutationCreate, Handle: h, Text: text, After: RectOf(n.bounds)})
	return n, nil
}

// DeleteSelection removes the selected nodes and edges from the runtime.
// Edges attached to a removed node go with it.
func (c *Canvas) DeleteSelection() error {
	nodes := c.selection.Nodes()
	edges := c.selection.Edges()
	if len(nodes) == 0 && len(edges) == 0 {
		return nil
	}
	release, ok := c.acquire("delete")
	if !ok {
		return errors.New(errors.ErrCodeBackendBusy, "runtime lock unavailable")
	}

	var muts []Mutation
	for _, e := range edges {
		if slices.ContainsFunc(nodes, e.touches) {
			continue
		}
		if err := c.rt.Disconnect(e.conn); err != nil {
			c.logger.Debug("disconnect skipped", "edge", e.conn, "err", err)
			continue
		}
		muts = append(muts, connectionMutation(MutationDisconnect, e.conn))
	}
	if len(nodes) > 0 {
		handles := make([]patch.Handle, len(nodes))
		for i, n := range nodes {
			handles[i] = n.handle
		}
		if err := c.rt.RemoveUnits(handles); err != nil {
			release()
			c.Synchronize(true)
			return err
		}
		for _, n := range nodes {
			muts = append(muts, Mutation{Kind: MutationRemove, Handle: n.handle, Text: n.Text(), After: RectOf(n.bounds)})
		}
	}
	release()

	c.Synchronize(true)
	for _, m := range muts {
		c.mutated(m)
	}
	return nil
}

// ConnectSelected connects the first outlet of the upper of exactly two
// selected nodes to the first inlet of the lower one.
func (c *Canvas) ConnectSelected() error {
	nodes := c.selection.Nodes()
	if len(nodes) != 2 {
		return errors.New(errors.ErrCodeInvalidInput, "select exactly two nodes to connect")
	}
	upper, lower := nodes[0], nodes[1]
	if lower.Bounds().Min.Y < upper.Bounds().Min.Y {
		upper, lower = lower, upper
	}
	if c.connect.commit(upper.Outlet(0), lower.Inlet(0)) == nil {
		return errors.New(errors.ErrCodeInvalidConnection, "nodes cannot be connected")
	}
	observability.Gesture().OnConnectionCommitted(1, false)
	return nil
}

// ResizeNode asks n's kind to accept r and pushes the result.
func (c *Canvas) ResizeNode(n *Node, r image.Rectangle) error {
	if !n.Alive() {
		return errors.New(errors.ErrCodeStaleHandle, "node no longer exists")
	}
	b, ok := n.behavior.ApplyBounds(clampBounds(r, c.cfg.MinNodeSize))
	if !ok {
		return errors.New(errors.ErrCodeUnsupported, "node kind cannot be resized")
	}
	release, ok := c.acquire("resize")
	if !ok {
		return errors.New(errors.ErrCodeBackendBusy, "runtime lock unavailable")
	}
	err := c.rt.SetBounds(n.handle, b)
	release()
	if err != nil {
		return err
	}
	before := n.bounds
	if n.setBounds(b, c.cfg.MinNodeSize) {
		c.mutated(geometryMutation(n.handle, before, n.bounds))
	}
	return nil
}
