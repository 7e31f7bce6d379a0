package canvas

import (
	"image"

	"github.com/matzehuels/patchcanvas/pkg/patch"
)

// Edge is the visual mirror of one runtime connection. Its source is always
// an outlet and its destination an inlet, on two distinct nodes.
type Edge struct {
	src, dst  *Iolet
	conn      patch.ConnectionInfo
	selected  bool
	destroyed bool
}

func newEdge(conn patch.ConnectionInfo, src, dst *Iolet) *Edge {
	return &Edge{src: src, dst: dst, conn: conn}
}

// Source returns the outlet end.
func (e *Edge) Source() *Iolet { return e.src }

// Destination returns the inlet end.
func (e *Edge) Destination() *Iolet { return e.dst }

// Connection returns the runtime identity of the edge.
func (e *Edge) Connection() patch.ConnectionInfo { return e.conn }

// Selected reports the selection flag.
func (e *Edge) Selected() bool { return e.selected }

// Alive reports whether the edge and both endpoints still exist.
func (e *Edge) Alive() bool {
	return e != nil && !e.destroyed && e.src.Alive() && e.dst.Alive()
}

// Path returns the straight segment between the two iolet centres.
func (e *Edge) Path() (from, to image.Point) {
	return e.src.Centre(), e.dst.Centre()
}

// touches reports whether the edge has an endpoint on n.
func (e *Edge) touches(n *Node) bool {
	return e.src.node == n || e.dst.node == n
}

func (e *Edge) destroy() {
	e.destroyed = true
	e.selected = false
}
