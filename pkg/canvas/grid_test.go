package canvas

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/patchcanvas/pkg/patch"
)

func testNode(x, y, w, h, inlets, outlets int) *Node {
	return newNode(patch.UnitInfo{
		Handle:  patch.NewHandle(),
		Class:   "osc",
		Bounds:  image.Rect(x, y, x+w, y+h),
		Inlets:  make([]patch.PortType, inlets),
		Outlets: make([]patch.PortType, outlets),
	}, image.Pt(15, 15))
}

func TestSnapHysteresis(t *testing.T) {
	cfg := testConfig()
	g := NewGridSnapEngine(cfg)

	stationary := testNode(100, 0, 80, 20, 1, 1)
	anchor := testNode(0, 100, 60, 20, 1, 1)
	in := SnapInput{
		Anchor:     anchor,
		Origin:     anchor.Bounds(),
		Group:      anchor.Bounds(),
		Moving:     []*Node{anchor},
		Candidates: []*Node{stationary},
	}

	steps := []struct {
		rawX    int
		wantX   int
		snapped bool
	}{
		{90, 90, false},   // out of tolerance
		{98, 100, true},   // within tolerance: left edges align
		{104, 100, true},  // past the target but inside range: held
		{105, 100, true},  // at the edge of range: held
		{106, 106, false}, // beyond range: released
		{104, 104, false}, // inside range but outside tolerance: stays released
		{102, 100, true},  // back within tolerance: engaged again
	}
	for _, s := range steps {
		out := g.Snap(in, image.Pt(s.rawX, 0))
		assert.Equal(t, s.wantX, out.X, "raw x %d", s.rawX)
		st := g.State(AxisX)
		assert.Equal(t, s.snapped, st.Snapped, "raw x %d", s.rawX)
		if s.snapped {
			assert.Equal(t, SnapStart, st.Orientation)
			assert.Equal(t, 100, st.Target)
			assert.Same(t, stationary, st.TargetNode())
		}
		assert.False(t, g.State(AxisY).Snapped)
	}

	g.End(image.Point{})
	assert.False(t, g.State(AxisX).Snapped)
	assert.Empty(t, g.Guides())
}

func TestSnapPrefersNearestNode(t *testing.T) {
	g := NewGridSnapEngine(testConfig())
	near := testNode(102, 40, 60, 20, 1, 1)
	far := testNode(101, 400, 60, 20, 1, 1)
	anchor := testNode(0, 0, 60, 20, 1, 1)

	out := g.Snap(SnapInput{
		Anchor:     anchor,
		Origin:     anchor.Bounds(),
		Group:      anchor.Bounds(),
		Candidates: []*Node{far, near},
	}, image.Pt(100, 0))

	assert.Equal(t, 102, out.X)
	assert.Same(t, near, g.State(AxisX).TargetNode())

	guides := g.Guides()
	require.Len(t, guides, 1)
	assert.Equal(t, AxisX, guides[0].Axis)
	assert.Equal(t, image.Pt(102, 0), guides[0].From)
	assert.Equal(t, image.Pt(102, 60), guides[0].To)
}

func TestSnapReleasesDestroyedTarget(t *testing.T) {
	g := NewGridSnapEngine(testConfig())
	stationary := testNode(100, 0, 80, 20, 1, 1)
	anchor := testNode(0, 100, 60, 20, 1, 1)
	in := SnapInput{Anchor: anchor, Origin: anchor.Bounds(), Group: anchor.Bounds(), Candidates: []*Node{stationary}}

	require.Equal(t, 100, g.Snap(in, image.Pt(99, 0)).X)
	stationary.destroy()
	assert.Equal(t, 99, g.Snap(in, image.Pt(99, 0)).X)
	assert.False(t, g.State(AxisX).Snapped)
}

func TestSnapGridFallback(t *testing.T) {
	cfg := testConfig()
	cfg.GridEnabled = true
	g := NewGridSnapEngine(cfg)
	anchor := testNode(0, 0, 40, 20, 1, 1)
	in := SnapInput{Anchor: anchor, Origin: anchor.Bounds(), Group: anchor.Bounds()}

	tests := []struct {
		offset image.Point
		want   image.Point
	}{
		{image.Pt(13, 37), image.Pt(25, 25)},
		{image.Pt(12, 38), image.Pt(0, 50)},
		{image.Pt(-13, 0), image.Pt(-25, 0)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, g.Snap(in, tt.offset), "offset %v", tt.offset)
	}

	g.SetGridEnabled(false)
	assert.Equal(t, image.Pt(13, 37), g.Snap(in, image.Pt(13, 37)))
}

func TestSnapClampsToLimit(t *testing.T) {
	g := NewGridSnapEngine(testConfig())
	anchor := testNode(0, 0, 40, 20, 1, 1)
	in := SnapInput{
		Anchor: anchor,
		Origin: anchor.Bounds(),
		Group:  image.Rect(0, 0, 40, 20),
		Limit:  image.Rect(0, 0, 200, 200),
	}

	assert.Equal(t, image.Pt(160, 0), g.Snap(in, image.Pt(190, -10)))
	assert.Equal(t, image.Pt(50, 180), g.Snap(in, image.Pt(50, 300)))
}

func TestSnapIgnoresMovingNodes(t *testing.T) {
	g := NewGridSnapEngine(testConfig())
	anchor := testNode(0, 0, 40, 20, 1, 1)
	other := testNode(100, 50, 40, 20, 1, 1)

	out := g.Snap(SnapInput{
		Anchor:     anchor,
		Origin:     anchor.Bounds(),
		Group:      anchor.Bounds().Union(other.Bounds()),
		Moving:     []*Node{anchor, other},
		Candidates: []*Node{other},
	}, image.Pt(99, 0))
	assert.Equal(t, image.Pt(99, 0), out)
}

func straightCable() (src, anchor *Node, e *Edge) {
	src = testNode(40, 0, 40, 20, 0, 1)
	anchor = testNode(0, 200, 80, 20, 3, 0)
	out, in := src.Outlet(0), anchor.Inlet(1)
	e = newEdge(patch.ConnectionInfo{Src: src.Handle(), Dst: anchor.Handle(), Inlet: 1}, out, in)
	return src, anchor, e
}

func TestSnapStraightensConnection(t *testing.T) {
	g := NewGridSnapEngine(testConfig())
	src, anchor, e := straightCable()
	sx := src.Outlet(0).Centre().X
	mx := anchor.Inlet(1).Centre().X

	out := g.Snap(SnapInput{
		Anchor: anchor,
		Origin: anchor.Bounds(),
		Group:  anchor.Bounds(),
		Edges:  []*Edge{e},
	}, image.Pt(sx-mx+2, 0))

	assert.Equal(t, image.Pt(sx-mx, 0), out)
	st := g.State(AxisX)
	require.True(t, st.Snapped)
	assert.Equal(t, SnapConnection, st.Orientation)
	assert.Equal(t, sx, st.Target)
	assert.Same(t, e, st.TargetEdge())
	assert.False(t, g.State(AxisY).Snapped)

	guides := g.Guides()
	require.Len(t, guides, 1)
	assert.Equal(t, SnapConnection, guides[0].Orientation)
	assert.Equal(t, sx, guides[0].From.X)
	assert.Equal(t, src.Outlet(0).Centre(), guides[0].To)
}

func TestSnapNodeBeatsConnection(t *testing.T) {
	g := NewGridSnapEngine(testConfig())
	src, anchor, e := straightCable()
	offX := src.Outlet(0).Centre().X - anchor.Inlet(1).Centre().X + 2
	// The left edge of this node is one pixel from the anchor's.
	edgeNode := testNode(offX+1, 400, 60, 20, 1, 1)

	out := g.Snap(SnapInput{
		Anchor:     anchor,
		Origin:     anchor.Bounds(),
		Group:      anchor.Bounds(),
		Candidates: []*Node{edgeNode},
		Edges:      []*Edge{e},
	}, image.Pt(offX, 0))

	assert.Equal(t, offX+1, out.X)
	st := g.State(AxisX)
	assert.Equal(t, SnapStart, st.Orientation)
	assert.Same(t, edgeNode, st.TargetNode())
	assert.Nil(t, st.TargetEdge())
}
