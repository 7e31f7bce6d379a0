package canvas

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/patchcanvas/pkg/patch"
)

func TestDragAtomicity(t *testing.T) {
	m := newTestRuntime()
	a := addBox(m, "a", 0, 0, 1, 1)
	b := addBox(m, "b", 100, 40, 1, 1)
	still := addBox(m, "still", 600, 600, 1, 1)
	d := addBox(m, "d", 200, 80, 1, 1)
	rec := &recorder{}
	c := newTestCanvas(t, m, rec)
	order := handles(c.Nodes())

	for _, h := range []patch.Handle{a, b, d} {
		c.Selection().Add(c.Node(h))
	}
	c.PressNode(c.Node(b), 0)
	c.DragNodes(image.Pt(7, 9))
	c.DragNodes(image.Pt(20, 30))

	// Nothing reaches the runtime before release.
	assert.Equal(t, image.Pt(100, 40), unitBounds(t, m, b).Min)
	assert.Equal(t, image.Pt(120, 70), c.Node(b).Position())

	c.ReleaseNodes(0)
	c.Drain()

	assert.Equal(t, image.Pt(20, 30), unitBounds(t, m, a).Min)
	assert.Equal(t, image.Pt(120, 70), unitBounds(t, m, b).Min)
	assert.Equal(t, image.Pt(220, 110), unitBounds(t, m, d).Min)
	assert.Equal(t, image.Pt(600, 600), unitBounds(t, m, still).Min)
	assert.Equal(t, order, handles(c.Nodes()))
	assert.Equal(t, 3, c.Selection().Len())

	require.Len(t, rec.mutations, 3)
	for _, mu := range rec.mutations {
		assert.Equal(t, MutationGeometry, mu.Kind)
		assert.Equal(t, mu.Before.X+20, mu.After.X)
		assert.Equal(t, mu.Before.Y+30, mu.After.Y)
	}

	// A second release is a no-op.
	c.ReleaseNodes(0)
	assert.Len(t, rec.mutations, 3)
}

func TestDragBelowThresholdIsClick(t *testing.T) {
	m := newTestRuntime()
	a := addBox(m, "a", 0, 0, 1, 1)
	b := addBox(m, "b", 300, 0, 1, 1)
	c := newTestCanvas(t, m)
	c.Selection().Add(c.Node(a))
	c.Selection().Add(c.Node(b))

	c.PressNode(c.Node(a), 0)
	c.DragNodes(image.Pt(2, 2))
	assert.Equal(t, image.Pt(0, 0), c.Node(a).Position())
	c.ReleaseNodes(0)

	assert.Equal(t, image.Pt(0, 0), unitBounds(t, m, a).Min)
	// A plain click on a selected node narrows the selection to it.
	assert.Equal(t, []*Node{c.Node(a)}, c.Selection().Nodes())
}

func TestPressSelection(t *testing.T) {
	m := newTestRuntime()
	a := addBox(m, "a", 0, 0, 1, 1)
	b := addBox(m, "b", 300, 0, 1, 1)
	c := newTestCanvas(t, m)
	na, nb := c.Node(a), c.Node(b)

	c.PressNode(na, 0)
	c.ReleaseNodes(0)
	assert.Equal(t, []*Node{na}, c.Selection().Nodes())

	c.PressNode(nb, ModShift)
	c.ReleaseNodes(ModShift)
	assert.Equal(t, []*Node{na, nb}, c.Selection().Nodes())

	c.PressNode(na, ModShift)
	c.ReleaseNodes(ModShift)
	assert.Equal(t, []*Node{nb}, c.Selection().Nodes())

	c.PressNode(na, 0)
	c.ReleaseNodes(0)
	assert.Equal(t, []*Node{na}, c.Selection().Nodes())
}

func TestCancelDrag(t *testing.T) {
	m := newTestRuntime()
	a := addBox(m, "a", 0, 0, 1, 1)
	rec := &recorder{}
	c := newTestCanvas(t, m, rec)

	c.PressNode(c.Node(a), 0)
	c.DragNodes(image.Pt(40, 0))
	require.Equal(t, image.Pt(40, 0), c.Node(a).Position())

	c.CancelDrag()
	assert.Equal(t, image.Pt(0, 0), c.Node(a).Position())
	assert.False(t, c.Dragger().Active())

	c.ReleaseNodes(0)
	assert.Equal(t, image.Pt(0, 0), unitBounds(t, m, a).Min)
	assert.Empty(t, rec.mutations)
}

func TestDragRevertsWhenLockBusy(t *testing.T) {
	m := newTestRuntime()
	a := addBox(m, "a", 0, 0, 1, 1)
	c := newTestCanvas(t, m)

	c.PressNode(c.Node(a), 0)
	c.DragNodes(image.Pt(40, 40))

	release, ok := m.Acquire(0)
	require.True(t, ok)
	c.ReleaseNodes(0)
	release()

	assert.Equal(t, image.Pt(0, 0), c.Node(a).Position())
	assert.Equal(t, image.Pt(0, 0), unitBounds(t, m, a).Min)
}

func TestDragSnapsToNeighbour(t *testing.T) {
	m := newTestRuntime()
	a := addBox(m, "a", 0, 100, 1, 1)
	addBox(m, "target", 100, 0, 1, 1)
	c := newTestCanvas(t, m)

	c.PressNode(c.Node(a), 0)
	c.DragNodes(image.Pt(98, 0))
	assert.Equal(t, image.Pt(100, 100), c.Node(a).Position())
	assert.NotEmpty(t, c.Snapshot().Guides)

	c.ReleaseNodes(0)
	assert.Equal(t, image.Pt(100, 100), unitBounds(t, m, a).Min)
	assert.False(t, c.Snapper().State(AxisX).Snapped)
}

func TestDragRateLimit(t *testing.T) {
	m := newTestRuntime()
	a := addBox(m, "a", 0, 0, 1, 1)
	now := time.Unix(0, 0)
	cfg := testConfig()
	cfg.DragRateLimit = true
	c := New(m, Options{Config: cfg, Now: func() time.Time { return now }})
	defer c.Close()

	c.PressNode(c.Node(a), 0)
	c.DragNodes(image.Pt(10, 0))
	c.DragNodes(image.Pt(30, 0))
	assert.Equal(t, image.Pt(10, 0), c.Node(a).Position())

	now = now.Add(20 * time.Millisecond)
	c.DragNodes(image.Pt(50, 0))
	c.DragNodes(image.Pt(60, 0))
	c.ReleaseNodes(0)
	assert.Equal(t, image.Pt(60, 0), unitBounds(t, m, a).Min)
}

func TestNodeDestroyedDuringDrag(t *testing.T) {
	m := newTestRuntime()
	a := addBox(m, "a", 0, 0, 1, 1)
	b := addBox(m, "b", 200, 0, 1, 1)
	c := newTestCanvas(t, m)
	c.Selection().Add(c.Node(a))
	c.Selection().Add(c.Node(b))

	c.PressNode(c.Node(a), 0)
	c.DragNodes(image.Pt(10, 10))
	require.NoError(t, m.RemoveUnits([]patch.Handle{b}))
	c.Drain()

	c.DragNodes(image.Pt(20, 20))
	c.ReleaseNodes(0)
	assert.Equal(t, image.Pt(20, 20), unitBounds(t, m, a).Min)
	assert.Equal(t, []patch.Handle{a}, handles(c.Nodes()))
}
