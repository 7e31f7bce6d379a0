package canvas

import (
	"image"
	"slices"
)

// overlay is the temporary surface that carries dragged nodes. Nodes on it
// keep their position relative to the union box.
type overlay struct {
	origin image.Point
}

// DragCoordinator moves a set of nodes as one rigid body. Nothing reaches
// the runtime until [DragCoordinator.End]; [DragCoordinator.Cancel] restores
// every node.
type DragCoordinator struct {
	threshold int

	active   bool
	dragging bool
	nodes    []*Node
	origins  map[*Node]image.Point
	union    image.Rectangle
	zorder   []*Node
	surface  *overlay
	offset   image.Point
}

// NewDragCoordinator creates a coordinator that starts moving nodes once the
// offset reaches threshold pixels.
func NewDragCoordinator(threshold int) *DragCoordinator {
	return &DragCoordinator{threshold: threshold}
}

// Active reports whether a drag has begun and not yet ended.
func (d *DragCoordinator) Active() bool { return d.active }

// Dragging reports whether the movement threshold has been passed.
func (d *DragCoordinator) Dragging() bool { return d.dragging }

// Nodes returns the nodes being dragged.
func (d *DragCoordinator) Nodes() []*Node { return slices.Clone(d.nodes) }

// Union returns the union of the dragged nodes' bounds at Begin.
func (d *DragCoordinator) Union() image.Rectangle { return d.union }

// Offset returns the offset applied by the last Drag.
func (d *DragCoordinator) Offset() image.Point { return d.offset }

// Origin returns the bounds of n when the drag began.
func (d *DragCoordinator) Origin(n *Node) (image.Rectangle, bool) {
	p, ok := d.origins[n]
	if !ok {
		return image.Rectangle{}, false
	}
	return image.Rectangle{Min: p, Max: p.Add(n.bounds.Size())}, true
}

// Begin records the reference frame of a drag over selected, and the
// stacking order of all so it can be restored.
func (d *DragCoordinator) Begin(selected, all []*Node) {
	d.reset()
	for _, n := range selected {
		if n.Alive() {
			d.nodes = append(d.nodes, n)
		}
	}
	if len(d.nodes) == 0 {
		return
	}
	d.active = true
	d.origins = make(map[*Node]image.Point, len(d.nodes))
	for _, n := range d.nodes {
		d.origins[n] = n.bounds.Min
	}
	d.union = unionBounds(d.nodes)
	d.zorder = slices.Clone(all)
}

// Drag moves the group to origin+offset. Offsets below the threshold are
// ignored until the first one that reaches it.
func (d *DragCoordinator) Drag(offset image.Point) bool {
	if !d.active {
		return false
	}
	if !d.dragging {
		if distance(offset, image.Point{}) < float64(d.threshold) {
			return false
		}
		d.dragging = true
		d.surface = &overlay{origin: d.union.Min}
		for _, n := range d.nodes {
			if !n.Alive() {
				continue
			}
			n.overlay = d.surface
			n.rel = d.origins[n].Sub(d.union.Min)
		}
	}
	d.offset = offset
	d.surface.origin = d.union.Min.Add(offset)
	return true
}

// DragResult is the outcome of a finished drag.
type DragResult struct {
	Nodes  []*Node
	Before map[*Node]image.Rectangle
	Delta  image.Point
}

// End puts every node back on the canvas at its new position and returns the
// moved nodes and the common delta, or ok=false when nothing moved. order is
// the canvas node list; it is rewritten to the stacking order from Begin.
// Calling End without an active drag is a no-op.
func (d *DragCoordinator) End(order *[]*Node) (res DragResult, ok bool) {
	if !d.active {
		return DragResult{}, false
	}
	defer d.reset()
	if !d.dragging {
		return DragResult{}, false
	}

	res = DragResult{Before: make(map[*Node]image.Rectangle, len(d.nodes)), Delta: d.offset}
	for _, n := range d.nodes {
		if !n.Alive() {
			continue
		}
		before, _ := d.Origin(n)
		n.bounds = n.Bounds()
		n.overlay = nil
		res.Before[n] = before
		res.Nodes = append(res.Nodes, n)
	}
	d.restoreOrder(order)
	return res, len(res.Nodes) > 0 && d.offset != (image.Point{})
}

// Cancel puts every node back where it was at Begin.
func (d *DragCoordinator) Cancel(order *[]*Node) {
	if !d.active {
		return
	}
	for _, n := range d.nodes {
		n.overlay = nil
		if p, ok := d.origins[n]; ok && n.Alive() {
			n.bounds = image.Rectangle{Min: p, Max: p.Add(n.bounds.Size())}
		}
	}
	d.restoreOrder(order)
	d.reset()
}

// restoreOrder rewrites order to the Begin stacking. Nodes destroyed since
// are dropped; nodes created since keep their relative order at the end.
func (d *DragCoordinator) restoreOrder(order *[]*Node) {
	if order == nil {
		return
	}
	known := make(map[*Node]bool, len(d.zorder))
	restored := make([]*Node, 0, len(*order))
	current := make(map[*Node]bool, len(*order))
	for _, n := range *order {
		current[n] = true
	}
	for _, n := range d.zorder {
		known[n] = true
		if current[n] && n.Alive() {
			restored = append(restored, n)
		}
	}
	for _, n := range *order {
		if !known[n] && n.Alive() {
			restored = append(restored, n)
		}
	}
	*order = restored
}

// forget drops a destroyed node from the drag.
func (d *DragCoordinator) forget(n *Node) {
	n.overlay = nil
	d.nodes = slices.DeleteFunc(d.nodes, func(x *Node) bool { return x == n })
	delete(d.origins, n)
	if d.active && len(d.nodes) == 0 {
		d.reset()
	}
}

func (d *DragCoordinator) reset() {
	for _, n := range d.nodes {
		n.overlay = nil
	}
	d.active = false
	d.dragging = false
	d.nodes = nil
	d.origins = nil
	d.union = image.Rectangle{}
	d.zorder = nil
	d.surface = nil
	d.offset = image.Point{}
}
