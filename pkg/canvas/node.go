package canvas

import (
	"image"

	"github.com/matzehuels/patchcanvas/pkg/patch"
)

// Node is the visual mirror of one runtime unit. The canvas owns every node;
// other holders keep weak references and check [Node.Alive].
type Node struct {
	handle   patch.Handle
	info     patch.UnitInfo
	kind     Kind
	behavior Behavior

	bounds  image.Rectangle
	inlets  []*Iolet
	outlets []*Iolet

	selected  bool
	destroyed bool

	// Set while the node is carried by a drag overlay.
	overlay *overlay
	rel     image.Point
}

func newNode(u patch.UnitInfo, minSize image.Point) *Node {
	n := &Node{handle: u.Handle}
	n.apply(u, false, minSize)
	return n
}

// Handle returns the runtime identity of the node.
func (n *Node) Handle() patch.Handle { return n.handle }

// Kind returns the visual variant.
func (n *Node) Kind() Kind { return n.kind }

// Behavior returns the kind's capability set.
func (n *Node) Behavior() Behavior { return n.behavior }

// Class returns the runtime class name.
func (n *Node) Class() string { return n.info.Class }

// Text returns the box text.
func (n *Node) Text() string { return n.info.Text }

// TypeName returns the inspector type name.
func (n *Node) TypeName() string { return TypeName(n.info) }

// Selected reports the selection flag.
func (n *Node) Selected() bool { return n.selected }

// Alive reports whether the node is still part of its canvas.
func (n *Node) Alive() bool { return n != nil && !n.destroyed }

// Bounds returns the node rectangle in canvas coordinates, following the
// drag overlay while the node is carried by one.
func (n *Node) Bounds() image.Rectangle {
	if n.overlay != nil {
		size := n.bounds.Size()
		at := n.overlay.origin.Add(n.rel)
		return image.Rectangle{Min: at, Max: at.Add(size)}
	}
	return n.bounds
}

// Position returns the top-left corner of the node.
func (n *Node) Position() image.Point { return n.Bounds().Min }

// NumInlets returns the inlet count.
func (n *Node) NumInlets() int { return len(n.inlets) }

// NumOutlets returns the outlet count.
func (n *Node) NumOutlets() int { return len(n.outlets) }

// Inlets returns the inlets in index order.
func (n *Node) Inlets() []*Iolet { return append([]*Iolet(nil), n.inlets...) }

// Outlets returns the outlets in index order.
func (n *Node) Outlets() []*Iolet { return append([]*Iolet(nil), n.outlets...) }

// Inlet returns inlet i, or nil when out of range.
func (n *Node) Inlet(i int) *Iolet { return ioletAt(n.inlets, i) }

// Outlet returns outlet i, or nil when out of range.
func (n *Node) Outlet(i int) *Iolet { return ioletAt(n.outlets, i) }

// LastOutlet returns the rightmost outlet, or nil.
func (n *Node) LastOutlet() *Iolet { return ioletAt(n.outlets, len(n.outlets)-1) }

// Iolet returns iolet i of direction dir, or nil.
func (n *Node) Iolet(dir Direction, i int) *Iolet {
	if dir == Inlet {
		return n.Inlet(i)
	}
	return n.Outlet(i)
}

func (n *Node) iolets(dir Direction) []*Iolet {
	if dir == Inlet {
		return n.inlets
	}
	return n.outlets
}

func ioletAt(list []*Iolet, i int) *Iolet {
	if i < 0 || i >= len(list) {
		return nil
	}
	return list[i]
}

// apply brings the node in line with runtime state and reports whether any
// visible attribute changed. Iolets dropped by a port-count decrease are
// returned so the caller can destroy their edges. With preserveBounds the
// current geometry is kept.
func (n *Node) apply(u patch.UnitInfo, preserveBounds bool, minSize image.Point) (changed bool, dropped []*Iolet) {
	if kind := Classify(u); n.behavior == nil || kind != n.kind {
		n.kind = kind
		n.behavior = behaviorFor(kind)
		changed = true
	}
	if u.Text != n.info.Text || u.Class != n.info.Class || TypeName(u) != TypeName(n.info) {
		changed = true
	}
	n.info = u

	if !preserveBounds && n.overlay == nil {
		b := clampBounds(n.behavior.UpdateBounds(u.Bounds.Canon()), minSize)
		if b != n.bounds {
			n.bounds = b
			changed = true
		}
	}

	inChanged, inDropped := n.updatePorts(Inlet, u.Inlets)
	outChanged, outDropped := n.updatePorts(Outlet, u.Outlets)
	dropped = append(inDropped, outDropped...)
	return changed || inChanged || outChanged, dropped
}

// updatePorts resizes one direction's iolet list. Surviving iolets keep
// their identity; extras are detached from the tail.
func (n *Node) updatePorts(dir Direction, ports []patch.PortType) (changed bool, dropped []*Iolet) {
	list := n.iolets(dir)
	for len(list) > len(ports) {
		last := list[len(list)-1]
		last.detached = true
		last.targeted = false
		dropped = append(dropped, last)
		list = list[:len(list)-1]
		changed = true
	}
	for i, p := range ports {
		if i < len(list) {
			if list[i].port != p {
				list[i].port = p
				changed = true
			}
			continue
		}
		list = append(list, &Iolet{node: n, dir: dir, index: i, port: p})
		changed = true
	}
	if dir == Inlet {
		n.inlets = list
	} else {
		n.outlets = list
	}
	return changed, dropped
}

// setBounds replaces the geometry, applying the minimum size.
func (n *Node) setBounds(r image.Rectangle, minSize image.Point) bool {
	b := clampBounds(r, minSize)
	if b == n.bounds {
		return false
	}
	n.bounds = b
	return true
}

func (n *Node) destroy() {
	n.destroyed = true
	n.selected = false
	n.overlay = nil
	for _, io := range n.inlets {
		io.targeted = false
	}
	for _, io := range n.outlets {
		io.targeted = false
	}
}
