package canvas

import (
	"image"

	"github.com/matzehuels/patchcanvas/pkg/patch"
)

// Snapshot is an immutable copy of the canvas for rendering and export.
type Snapshot struct {
	Nodes     []NodeView     `json:"nodes"`
	Edges     []EdgeView     `json:"edges"`
	Selection []patch.Handle `json:"selection"`
	Guides    []GuideView    `json:"guides,omitempty"`
	Pending   []PendingView  `json:"pending,omitempty"`
	State     string         `json:"state"`
}

// NodeView is one node in a [Snapshot].
type NodeView struct {
	Handle   patch.Handle `json:"handle"`
	Kind     string       `json:"kind"`
	Type     string       `json:"type"`
	Class    string       `json:"class"`
	Text     string       `json:"text"`
	Bounds   Rect         `json:"bounds"`
	Inlets   []IoletView  `json:"inlets"`
	Outlets  []IoletView  `json:"outlets"`
	Selected bool         `json:"selected,omitempty"`
}

// IoletView is one iolet in a [NodeView].
type IoletView struct {
	Index    int  `json:"index"`
	Bounds   Rect `json:"bounds"`
	Signal   bool `json:"signal,omitempty"`
	Square   bool `json:"square,omitempty"`
	Targeted bool `json:"targeted,omitempty"`
}

// EdgeView is one edge in a [Snapshot].
type EdgeView struct {
	Connection patch.ConnectionInfo `json:"connection"`
	From       image.Point          `json:"from"`
	To         image.Point          `json:"to"`
	Signal     bool                 `json:"signal,omitempty"`
	Selected   bool                 `json:"selected,omitempty"`
}

// GuideView is an alignment guide in a [Snapshot].
type GuideView struct {
	Axis        string      `json:"axis"`
	Orientation string      `json:"orientation"`
	From        image.Point `json:"from"`
	To          image.Point `json:"to"`
}

// PendingView is a connection being drawn.
type PendingView struct {
	From   patch.Handle `json:"from"`
	Outlet bool         `json:"outlet"`
	Index  int          `json:"index"`
	Cursor image.Point  `json:"cursor"`
}

// Snapshot copies the current visual state.
func (c *Canvas) Snapshot() Snapshot {
	pending := c.connect.Pending()
	s := Snapshot{
		Nodes:     make([]NodeView, 0, len(c.nodes)),
		Edges:     make([]EdgeView, 0, len(c.edges)),
		Selection: []patch.Handle{},
		State:     c.connect.State().String(),
	}
	for _, n := range c.nodes {
		if !n.Alive() {
			continue
		}
		s.Nodes = append(s.Nodes, NodeView{
			Handle:   n.handle,
			Kind:     n.kind.String(),
			Type:     n.TypeName(),
			Class:    n.Class(),
			Text:     n.Text(),
			Bounds:   RectOf(n.Bounds()),
			Inlets:   c.ioletViews(n.inlets),
			Outlets:  c.ioletViews(n.outlets),
			Selected: n.selected,
		})
	}
	for _, e := range c.edges {
		if !e.Alive() {
			continue
		}
		from, to := e.Path()
		s.Edges = append(s.Edges, EdgeView{
			Connection: e.conn,
			From:       from,
			To:         to,
			Signal:     e.src.Signal(),
			Selected:   e.selected,
		})
	}
	for _, n := range c.selection.Nodes() {
		s.Selection = append(s.Selection, n.handle)
	}
	if c.drag.Dragging() {
		for _, g := range c.snap.Guides() {
			axis := "x"
			if g.Axis == AxisY {
				axis = "y"
			}
			s.Guides = append(s.Guides, GuideView{Axis: axis, Orientation: g.Orientation.String(), From: g.From, To: g.To})
		}
	}
	for _, io := range pending {
		s.Pending = append(s.Pending, PendingView{
			From:   io.node.handle,
			Outlet: io.dir == Outlet,
			Index:  io.index,
			Cursor: c.connect.Cursor(),
		})
	}
	return s
}

func (c *Canvas) ioletViews(list []*Iolet) []IoletView {
	out := make([]IoletView, len(list))
	for i, io := range list {
		st := io.Style(c.cfg)
		out[i] = IoletView{
			Index:    io.index,
			Bounds:   RectOf(io.Bounds()),
			Signal:   st.Signal,
			Square:   st.Square,
			Targeted: st.Targeted,
		}
	}
	return out
}
