package canvas

import (
	"image"

	"github.com/matzehuels/patchcanvas/pkg/patch"
)

// Direction tells inlets from outlets.
type Direction uint8

const (
	Inlet Direction = iota
	Outlet
)

func (d Direction) String() string {
	if d == Outlet {
		return "outlet"
	}
	return "inlet"
}

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == Inlet {
		return Outlet
	}
	return Inlet
}

// Iolet is one connection endpoint of a node. It holds a non-owning
// reference to its node and becomes stale when the node is destroyed or its
// ports are resynchronized to a smaller count.
type Iolet struct {
	node     *Node
	dir      Direction
	index    int
	port     patch.PortType
	targeted bool
	detached bool
}

// Node returns the owning node.
func (io *Iolet) Node() *Node { return io.node }

// Direction returns whether io is an inlet or an outlet.
func (io *Iolet) Direction() Direction { return io.dir }

// Index returns the position of io among the node's iolets of the same direction.
func (io *Iolet) Index() int { return io.index }

// Signal reports whether io carries audio signal. Only styling depends on it.
func (io *Iolet) Signal() bool { return io.port == patch.PortSignal }

// Targeted reports whether io is the current drag-to-connect candidate.
func (io *Iolet) Targeted() bool { return io.targeted }

// Alive reports whether io and its node still exist.
func (io *Iolet) Alive() bool {
	return io != nil && !io.detached && io.node != nil && io.node.Alive()
}

// Bounds returns the iolet's rectangle in canvas coordinates.
func (io *Iolet) Bounds() image.Rectangle {
	n := io.node
	return ioletRect(n.Bounds(), io.dir, io.index, len(n.inlets), len(n.outlets))
}

// Centre returns the centre of the iolet's bounds.
func (io *Iolet) Centre() image.Point { return centre(io.Bounds()) }

// HitRegion returns the bounds expanded by margin on every side.
func (io *Iolet) HitRegion(margin int) image.Rectangle {
	return io.Bounds().Inset(-margin)
}

// IoletStyle is what a renderer needs to draw an iolet.
type IoletStyle struct {
	Square   bool
	Signal   bool
	Targeted bool
}

// Style returns the rendering style of io under cfg.
func (io *Iolet) Style(cfg Config) IoletStyle {
	return IoletStyle{Square: cfg.SquareIolets, Signal: io.Signal(), Targeted: io.targeted}
}

// Box layout constants. Node bounds exclude the selection margin that
// surrounds every box; iolets are laid out across the outer width.
const (
	boxMargin      = 6
	ioletSize      = 13
	ioletSizeSmall = 10
	ioletHitBox    = 4
	ioletBorder    = 14
	ioletBorderSm  = 9
)

// ioletRect lays out iolet index of direction dir on a node with the given
// bounds and port counts.
func ioletRect(bounds image.Rectangle, dir Direction, index, numIn, numOut int) image.Rectangle {
	width := bounds.Dx() + 2*boxMargin
	left := bounds.Min.X - boxMargin

	size, border := ioletSize, ioletBorder
	if width < 45 && (numIn > 1 || numOut > 1) {
		size, border = ioletSizeSmall, ioletBorderSm
	}

	total := numIn
	y := bounds.Min.Y + 1 - size/2
	if dir == Outlet {
		total = numOut
		y = bounds.Max.Y - size/2
	}

	regionX, regionW := left, width
	if space := min(max(width-ioletHitBox*total-border, 0), border); space > 0 {
		regionX += space
		regionW -= 2 * space
	}

	var x int
	switch {
	case total <= 1:
		x = regionX
		if width < 40 {
			x = left + width/2 - size/2
		}
	default:
		ratio := float64(regionW-size) / float64(total-1)
		x = regionX + int(ratio*float64(index))
	}
	return image.Rect(x, y, x+size, y+size)
}
