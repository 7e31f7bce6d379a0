package canvas

import (
	"image"
	"math"
	"slices"
)

// Axis selects the coordinate an alignment corrects.
type Axis uint8

const (
	// AxisX corrects horizontal position; its guides are vertical lines.
	AxisX Axis = iota
	// AxisY corrects vertical position; its guides are horizontal lines.
	AxisY
)

// Orientation says which feature produced an alignment. On AxisY, Start
// and End are the top and bottom edges.
type Orientation uint8

const (
	SnapStart Orientation = iota
	SnapCentre
	SnapEnd
	SnapConnection
)

func (o Orientation) String() string {
	switch o {
	case SnapStart:
		return "start"
	case SnapCentre:
		return "centre"
	case SnapEnd:
		return "end"
	default:
		return "connection"
	}
}

// AxisState is the snap state of one axis.
type AxisState struct {
	Snapped     bool
	Orientation Orientation
	// Target is the aligned coordinate: an edge or centre line of the
	// target node, or the x of the connected iolet's centre.
	Target int

	node *Node
	edge *Edge
}

// TargetNode returns the node the axis is aligned with, or nil.
func (s AxisState) TargetNode() *Node {
	if s.node.Alive() {
		return s.node
	}
	return nil
}

// TargetEdge returns the connection the axis is aligned with, or nil.
func (s AxisState) TargetEdge() *Edge {
	if s.edge.Alive() {
		return s.edge
	}
	return nil
}

// Guide is an alignment line for rendering.
type Guide struct {
	Axis        Axis        `json:"axis"`
	Orientation Orientation `json:"orientation"`
	From        image.Point `json:"from"`
	To          image.Point `json:"to"`
}

// SnapInput describes one drag step.
type SnapInput struct {
	// Anchor is the node under the cursor; alignment is computed for it.
	Anchor *Node
	// Origin is the anchor's bounds when the drag began.
	Origin image.Rectangle
	// Group is the union of the dragged nodes' bounds when the drag began.
	Group image.Rectangle
	// Moving holds every dragged node; none of them is a candidate.
	Moving []*Node
	// Candidates are the stationary nodes to align with.
	Candidates []*Node
	// Edges are the connections considered for straight-line alignment.
	Edges []*Edge
	// Limit bounds the dragged group; the zero rectangle means unlimited.
	Limit image.Rectangle
}

// GridSnapEngine corrects drag offsets so dragged nodes line up with their
// neighbours. Each axis keeps its own state: an alignment engages within
// tolerance and holds until the raw position moves more than range past it.
type GridSnapEngine struct {
	tolerance   int
	snapRange   int
	gridEnabled bool
	gridSize    int

	axes   [2]AxisState
	guides []Guide
}

// NewGridSnapEngine creates an engine from cfg.
func NewGridSnapEngine(cfg Config) *GridSnapEngine {
	cfg = cfg.normalized()
	return &GridSnapEngine{
		tolerance:   cfg.SnapTolerance,
		snapRange:   cfg.SnapRange,
		gridEnabled: cfg.GridEnabled,
		gridSize:    cfg.GridSize,
	}
}

// SetGridEnabled toggles absolute grid snapping.
func (g *GridSnapEngine) SetGridEnabled(v bool) { g.gridEnabled = v }

// Reset clears both axes. Called at drag start and end.
func (g *GridSnapEngine) Reset() {
	g.axes = [2]AxisState{}
	g.guides = nil
}

// State returns the state of one axis.
func (g *GridSnapEngine) State(a Axis) AxisState { return g.axes[a] }

// Guides returns the alignment lines for the last step.
func (g *GridSnapEngine) Guides() []Guide { return slices.Clone(g.guides) }

// Snap returns the corrected offset for a raw drag offset.
func (g *GridSnapEngine) Snap(in SnapInput, offset image.Point) image.Point {
	g.guides = g.guides[:0]
	if in.Anchor == nil || in.Anchor.destroyed {
		g.Reset()
		return clampOffset(in.Group, offset, in.Limit)
	}

	moving := make(map[*Node]bool, len(in.Moving)+1)
	moving[in.Anchor] = true
	for _, n := range in.Moving {
		moving[n] = true
	}

	out := offset
	for _, a := range []Axis{AxisX, AxisY} {
		corr, snapped := g.snapAxis(a, in, moving, offset)
		switch {
		case snapped:
			setAxis(&out, a, corr)
		case g.gridEnabled && g.gridSize > 0:
			setAxis(&out, a, g.gridOffset(a, in.Origin, offset))
		}
	}

	out = clampOffset(in.Group, out, in.Limit)
	g.buildGuides(in, out)
	return out
}

// End clears the snap state and returns the final offset unchanged.
func (g *GridSnapEngine) End(offset image.Point) image.Point {
	g.Reset()
	return offset
}

// snapAxis returns the corrected offset component for axis a and whether an
// alignment is engaged.
func (g *GridSnapEngine) snapAxis(a Axis, in SnapInput, moving map[*Node]bool, offset image.Point) (int, bool) {
	st := &g.axes[a]
	raw := in.Origin.Add(offset)

	if st.Snapped {
		valid := st.node.Alive() || (st.Orientation == SnapConnection && st.edge.Alive())
		pos, ok := anchorFeature(a, st.Orientation, raw, in.Anchor, st.edge, in.Origin, offset)
		if valid && ok && abs(pos-st.Target) <= g.snapRange {
			return component(offset, a) + st.Target - pos, true
		}
		*st = AxisState{}
	}

	best, found := g.bestNodeCandidate(a, raw, in, moving)
	if !found && a == AxisX {
		best, found = g.bestConnectionCandidate(raw, in, moving, offset)
	}
	if !found {
		return component(offset, a), false
	}
	*st = best.state
	return component(offset, a) + best.delta, true
}

type snapCandidate struct {
	state AxisState
	delta int
	rank  float64
}

// bestNodeCandidate finds the edge or centre alignment with the nearest
// stationary node. Nearness is measured between node centres.
func (g *GridSnapEngine) bestNodeCandidate(a Axis, raw image.Rectangle, in SnapInput, moving map[*Node]bool) (snapCandidate, bool) {
	var best snapCandidate
	found := false
	rc := centre(raw)
	for _, c := range in.Candidates {
		if !c.Alive() || moving[c] {
			continue
		}
		cb := c.Bounds()
		dist := distance(rc, centre(cb))
		for _, o := range []Orientation{SnapStart, SnapCentre, SnapEnd} {
			target := feature(a, o, cb)
			delta := target - feature(a, o, raw)
			if abs(delta) > g.tolerance {
				continue
			}
			// Closer nodes win; on one node the smallest correction wins.
			rank := dist*1e3 + float64(abs(delta))
			if !found || rank < best.rank {
				best = snapCandidate{
					state: AxisState{Snapped: true, Orientation: o, Target: target, node: c},
					delta: delta,
					rank:  rank,
				}
				found = true
			}
		}
	}
	return best, found
}

// bestConnectionCandidate aligns an iolet of the anchor vertically with the
// other end of one of its connections, straightening the cable.
func (g *GridSnapEngine) bestConnectionCandidate(raw image.Rectangle, in SnapInput, moving map[*Node]bool, offset image.Point) (snapCandidate, bool) {
	var best snapCandidate
	found := false
	for _, e := range in.Edges {
		if !e.Alive() {
			continue
		}
		mine, other := e.src, e.dst
		if mine.node != in.Anchor {
			mine, other = other, mine
		}
		if mine.node != in.Anchor || moving[other.node] {
			continue
		}
		pos, _ := anchorFeature(AxisX, SnapConnection, raw, in.Anchor, e, in.Origin, offset)
		target := other.Centre().X
		delta := target - pos
		if abs(delta) > g.tolerance {
			continue
		}
		rank := float64(abs(delta))
		if !found || rank < best.rank {
			best = snapCandidate{
				state: AxisState{Snapped: true, Orientation: SnapConnection, Target: target, node: other.node, edge: e},
				delta: delta,
				rank:  rank,
			}
			found = true
		}
	}
	return best, found
}

// anchorFeature returns the coordinate of the anchor that an orientation
// aligns, for the anchor placed at raw.
func anchorFeature(a Axis, o Orientation, raw image.Rectangle, anchor *Node, e *Edge, origin image.Rectangle, offset image.Point) (int, bool) {
	if o != SnapConnection {
		return feature(a, o, raw), true
	}
	if !e.Alive() {
		return 0, false
	}
	mine := e.src
	if mine.node != anchor {
		mine = e.dst
	}
	if mine.node != anchor {
		return 0, false
	}
	r := ioletRect(origin, mine.dir, mine.index, len(anchor.inlets), len(anchor.outlets))
	return centre(r.Add(offset)).X, true
}

func feature(a Axis, o Orientation, r image.Rectangle) int {
	lo, hi := r.Min.X, r.Max.X
	if a == AxisY {
		lo, hi = r.Min.Y, r.Max.Y
	}
	switch o {
	case SnapStart:
		return lo
	case SnapEnd:
		return hi
	default:
		return (lo + hi) / 2
	}
}

func (g *GridSnapEngine) gridOffset(a Axis, origin image.Rectangle, offset image.Point) int {
	pos := component(origin.Min, a) + component(offset, a)
	snapped := int(math.Round(float64(pos)/float64(g.gridSize))) * g.gridSize
	return component(offset, a) + snapped - pos
}

func (g *GridSnapEngine) buildGuides(in SnapInput, offset image.Point) {
	moved := in.Origin.Add(offset)
	for _, a := range []Axis{AxisX, AxisY} {
		st := g.axes[a]
		if !st.Snapped {
			continue
		}
		if st.Orientation == SnapConnection {
			if from, ok := anchorFeaturePoint(in, st.edge, offset); ok {
				g.guides = append(g.guides, Guide{Axis: a, Orientation: st.Orientation, From: from, To: otherEnd(st.edge, in.Anchor).Centre()})
			}
			continue
		}
		if !st.node.Alive() {
			continue
		}
		span := moved.Union(st.node.Bounds())
		guide := Guide{Axis: a, Orientation: st.Orientation}
		if a == AxisX {
			guide.From, guide.To = image.Pt(st.Target, span.Min.Y), image.Pt(st.Target, span.Max.Y)
		} else {
			guide.From, guide.To = image.Pt(span.Min.X, st.Target), image.Pt(span.Max.X, st.Target)
		}
		g.guides = append(g.guides, guide)
	}
}

func anchorFeaturePoint(in SnapInput, e *Edge, offset image.Point) (image.Point, bool) {
	if !e.Alive() {
		return image.Point{}, false
	}
	mine := e.src
	if mine.node != in.Anchor {
		mine = e.dst
	}
	r := ioletRect(in.Origin, mine.dir, mine.index, len(in.Anchor.inlets), len(in.Anchor.outlets))
	return centre(r.Add(offset)), true
}

func otherEnd(e *Edge, anchor *Node) *Iolet {
	if e.src.node == anchor {
		return e.dst
	}
	return e.src
}

// clampOffset keeps group+offset inside limit. When the group is larger than
// the limit, the top-left edge wins.
func clampOffset(group image.Rectangle, offset image.Point, limit image.Rectangle) image.Point {
	if limit.Empty() {
		return offset
	}
	moved := group.Add(offset)
	if moved.Max.X > limit.Max.X {
		offset.X -= moved.Max.X - limit.Max.X
	}
	if moved.Max.Y > limit.Max.Y {
		offset.Y -= moved.Max.Y - limit.Max.Y
	}
	moved = group.Add(offset)
	if moved.Min.X < limit.Min.X {
		offset.X += limit.Min.X - moved.Min.X
	}
	if moved.Min.Y < limit.Min.Y {
		offset.Y += limit.Min.Y - moved.Min.Y
	}
	return offset
}

func component(p image.Point, a Axis) int {
	if a == AxisX {
		return p.X
	}
	return p.Y
}

func setAxis(p *image.Point, a Axis, v int) {
	if a == AxisX {
		p.X = v
	} else {
		p.Y = v
	}
}
