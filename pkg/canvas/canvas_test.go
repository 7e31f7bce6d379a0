package canvas

import (
	"image"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/patchcanvas/pkg/patch"
)

func newTestRuntime() *patch.Memory {
	return patch.NewMemory(nil, log.New(io.Discard))
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.GridEnabled = false
	cfg.LockTimeout = time.Millisecond
	return cfg
}

func newTestCanvas(t *testing.T, rt patch.Runtime, observers ...Observer) *Canvas {
	t.Helper()
	c := New(rt, Options{Config: testConfig(), Logger: log.New(io.Discard), Observers: observers})
	t.Cleanup(c.Close)
	return c
}

// addBox adds a 40x20 data-only unit at (x, y).
func addBox(m *patch.Memory, class string, x, y, inlets, outlets int) patch.Handle {
	return m.AddUnit(patch.UnitInfo{
		Class:   class,
		Text:    class,
		Bounds:  image.Rect(x, y, x+40, y+20),
		Inlets:  make([]patch.PortType, inlets),
		Outlets: make([]patch.PortType, outlets),
	})
}

func unitBounds(t *testing.T, m *patch.Memory, h patch.Handle) image.Rectangle {
	t.Helper()
	u, ok := m.Unit(h)
	require.True(t, ok)
	return u.Bounds
}

func handles(nodes []*Node) []patch.Handle {
	out := make([]patch.Handle, len(nodes))
	for i, n := range nodes {
		out[i] = n.Handle()
	}
	return out
}

// recorder collects observer callbacks.
type recorder struct {
	NoopObserver
	created    []*Node
	destroyed  []*Node
	edges      []*Edge
	selections [][]Item
	mutations  []Mutation
}

func (r *recorder) NodeCreated(n *Node)           { r.created = append(r.created, n) }
func (r *recorder) NodeDestroyed(n *Node)         { r.destroyed = append(r.destroyed, n) }
func (r *recorder) EdgeCreated(e *Edge)           { r.edges = append(r.edges, e) }
func (r *recorder) SelectionChanged(items []Item) { r.selections = append(r.selections, items) }
func (r *recorder) Mutated(m Mutation)            { r.mutations = append(r.mutations, m) }

func TestNewSynchronizes(t *testing.T) {
	m := newTestRuntime()
	a := addBox(m, "osc", 0, 0, 1, 1)
	b := addBox(m, "dac", 0, 100, 1, 0)
	require.NoError(t, m.Connect(patch.ConnectionInfo{Src: a, Dst: b}))

	rec := &recorder{}
	c := newTestCanvas(t, m, rec)

	assert.Equal(t, []patch.Handle{a, b}, handles(c.Nodes()))
	require.Len(t, c.Edges(), 1)
	e := c.Edges()[0]
	assert.Same(t, c.Node(a).Outlet(0), e.Source())
	assert.Same(t, c.Node(b).Inlet(0), e.Destination())
	assert.Len(t, rec.created, 2)
	assert.Len(t, rec.edges, 1)
}

func TestCreateNode(t *testing.T) {
	m := newTestRuntime()
	rec := &recorder{}
	c := newTestCanvas(t, m, rec)

	n, err := c.CreateNode("osc~ 440", image.Pt(30, 40))
	require.NoError(t, err)
	assert.True(t, n.Selected())
	assert.Equal(t, image.Pt(30, 40), n.Position())
	assert.Equal(t, 2, n.NumInlets())
	assert.True(t, m.Valid(n.Handle()))
	require.Len(t, rec.mutations, 1)
	assert.Equal(t, MutationCreate, rec.mutations[0].Kind)

	_, err = c.CreateNode("", image.Point{})
	assert.Error(t, err)
}

func TestDeleteSelection(t *testing.T) {
	m := newTestRuntime()
	a := addBox(m, "a", 0, 0, 1, 1)
	b := addBox(m, "b", 0, 100, 1, 1)
	d := addBox(m, "d", 0, 200, 1, 1)
	require.NoError(t, m.Connect(patch.ConnectionInfo{Src: a, Dst: b}))
	require.NoError(t, m.Connect(patch.ConnectionInfo{Src: b, Dst: d}))
	rec := &recorder{}
	c := newTestCanvas(t, m, rec)

	c.Selection().Add(c.Node(a))
	c.Selection().Add(c.Edge(patch.ConnectionInfo{Src: b, Dst: d}))
	require.NoError(t, c.DeleteSelection())

	assert.False(t, m.Valid(a))
	assert.Empty(t, m.Connections())
	assert.Equal(t, []patch.Handle{b, d}, handles(c.Nodes()))
	assert.Empty(t, c.Edges())
	assert.Zero(t, c.Selection().Len())

	kinds := make([]MutationKind, len(rec.mutations))
	for i, mu := range rec.mutations {
		kinds[i] = mu.Kind
	}
	assert.Equal(t, []MutationKind{MutationDisconnect, MutationRemove}, kinds)
}

func TestConnectSelected(t *testing.T) {
	m := newTestRuntime()
	lower := addBox(m, "lower", 0, 100, 1, 1)
	upper := addBox(m, "upper", 50, 0, 1, 1)
	c := newTestCanvas(t, m)

	assert.Error(t, c.ConnectSelected())

	c.Selection().Add(c.Node(lower))
	c.Selection().Add(c.Node(upper))
	require.NoError(t, c.ConnectSelected())
	assert.True(t, m.HasConnection(patch.ConnectionInfo{Src: upper, Dst: lower}))

	// Already connected.
	assert.Error(t, c.ConnectSelected())
}

func TestResizeNode(t *testing.T) {
	m := newTestRuntime()
	h := addBox(m, "osc", 0, 0, 1, 1)
	c := newTestCanvas(t, m)

	require.NoError(t, c.ResizeNode(c.Node(h), image.Rect(0, 0, 80, 30)))
	assert.Equal(t, image.Rect(0, 0, 80, 30), unitBounds(t, m, h))
	assert.Equal(t, image.Rect(0, 0, 80, 30), c.Node(h).Bounds())
}

func TestMessageRefreshesGeometry(t *testing.T) {
	m := newTestRuntime()
	h := addBox(m, "osc", 0, 0, 1, 1)
	c := newTestCanvas(t, m)

	require.NoError(t, m.Send(h, "pos", patch.Float(70), patch.Float(80)))
	c.Drain()
	assert.Equal(t, image.Pt(70, 80), c.Node(h).Position())

	require.NoError(t, m.Send(h, "bang"))
	assert.Equal(t, 1, c.Drain())
	assert.Equal(t, image.Pt(70, 80), c.Node(h).Position())
}

func TestSnapshot(t *testing.T) {
	m := newTestRuntime()
	a := addBox(m, "osc", 0, 0, 1, 1)
	b := addBox(m, "dac", 0, 100, 1, 0)
	require.NoError(t, m.Connect(patch.ConnectionInfo{Src: a, Dst: b}))
	c := newTestCanvas(t, m)
	c.Selection().Add(c.Node(b))

	s := c.Snapshot()
	require.Len(t, s.Nodes, 2)
	assert.Equal(t, "text", s.Nodes[0].Kind)
	assert.Equal(t, Rect{X: 0, Y: 0, W: 40, H: 20}, s.Nodes[0].Bounds)
	assert.Len(t, s.Nodes[0].Outlets, 1)
	require.Len(t, s.Edges, 1)
	assert.Equal(t, []patch.Handle{b}, s.Selection)
	assert.Equal(t, "idle", s.State)
}
