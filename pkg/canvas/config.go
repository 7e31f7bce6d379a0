package canvas

import (
	"image"
	"time"
)

// Config holds the editor settings that affect geometry and gestures.
// It is passed explicitly; nothing in this package reads global settings.
type Config struct {
	// GridEnabled turns on absolute grid snapping when no alignment applies.
	GridEnabled bool
	// GridSize is the absolute grid spacing in canvas pixels.
	GridSize int
	// SnapTolerance is the distance at which an alignment engages.
	SnapTolerance int
	// SnapRange is how far the raw position may move past an engaged
	// alignment before it releases. Must be >= SnapTolerance.
	SnapRange int

	// IoletHitMargin expands an iolet's bounds for connection targeting.
	IoletHitMargin int
	// ConnectDragDistance is how far the cursor must travel from the press
	// point before a press on an iolet becomes a drag-to-connect.
	ConnectDragDistance int
	// OverlapTolerance relaxes "below" comparisons in auto-patching.
	OverlapTolerance int
	// SquareIolets selects square instead of round iolets when rendering.
	SquareIolets bool

	// MinDragMovement separates a click from a drag on nodes.
	MinDragMovement int
	// DragRateLimit caps drag processing at 60 events per second.
	DragRateLimit bool

	// MinNodeSize is the smallest bounds a node is given; degenerate
	// runtime geometry is clamped up to it.
	MinNodeSize image.Point
	// LockTimeout bounds every wait on the runtime's callback lock.
	LockTimeout time.Duration
}

// DefaultConfig returns the standard editor settings.
func DefaultConfig() Config {
	return Config{
		GridEnabled:         true,
		GridSize:            25,
		SnapTolerance:       3,
		SnapRange:           5,
		IoletHitMargin:      50,
		ConnectDragDistance: 3,
		OverlapTolerance:    15,
		MinDragMovement:     5,
		MinNodeSize:         image.Pt(15, 15),
		LockTimeout:         20 * time.Millisecond,
	}
}

// normalized fills zero fields with defaults and repairs inverted ranges.
func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.GridSize <= 0 {
		c.GridSize = d.GridSize
	}
	if c.SnapTolerance <= 0 {
		c.SnapTolerance = d.SnapTolerance
	}
	if c.SnapRange < c.SnapTolerance {
		c.SnapRange = max(d.SnapRange, c.SnapTolerance)
	}
	if c.IoletHitMargin < 0 {
		c.IoletHitMargin = 0
	}
	if c.ConnectDragDistance <= 0 {
		c.ConnectDragDistance = d.ConnectDragDistance
	}
	if c.OverlapTolerance < 0 {
		c.OverlapTolerance = 0
	}
	if c.MinDragMovement <= 0 {
		c.MinDragMovement = d.MinDragMovement
	}
	if c.MinNodeSize.X <= 0 || c.MinNodeSize.Y <= 0 {
		c.MinNodeSize = d.MinNodeSize
	}
	if c.LockTimeout <= 0 {
		c.LockTimeout = d.LockTimeout
	}
	return c
}
