package nodelink

import (
	"context"
	"image"
	"strings"
	"testing"

	"github.com/matzehuels/patchcanvas/pkg/canvas"
	"github.com/matzehuels/patchcanvas/pkg/patch"
)

func testSnapshot() (canvas.Snapshot, patch.Handle, patch.Handle) {
	a, b := patch.NewHandle(), patch.NewHandle()
	s := canvas.Snapshot{
		Nodes: []canvas.NodeView{
			{Handle: a, Kind: "text", Text: "osc~ 440", Bounds: canvas.Rect{X: 0, Y: 0, W: 72, H: 36}},
			{Handle: b, Kind: "text", Text: "dac~", Bounds: canvas.Rect{X: 0, Y: 100, W: 36, H: 36}, Selected: true},
		},
		Edges: []canvas.EdgeView{
			{Connection: patch.ConnectionInfo{Src: a, Outlet: 0, Dst: b, Inlet: 1}, Signal: true},
		},
	}
	return s, a, b
}

func TestToDOT_Basic(t *testing.T) {
	s, a, b := testSnapshot()
	dot := ToDOT(s, Options{})

	if !strings.Contains(dot, "digraph G") {
		t.Error("ToDOT() output missing digraph declaration")
	}
	if !strings.Contains(dot, "layout=neato") {
		t.Error("ToDOT() should select the neato layout")
	}
	if !strings.Contains(dot, `label="osc~ 440"`) {
		t.Error("ToDOT() output missing node label")
	}
	if !strings.Contains(dot, `"`+a.String()+`" -> "`+b.String()+`"`) {
		t.Error("ToDOT() output missing edge")
	}
	if !strings.Contains(dot, `headlabel="1"`) {
		t.Error("ToDOT() edge missing inlet label")
	}
}

func TestToDOT_Positions(t *testing.T) {
	s, _, _ := testSnapshot()
	dot := ToDOT(s, Options{})

	// Centres (36,18) and (18,118), y mirrored, pinned.
	if !strings.Contains(dot, `pos="36,-18!"`) {
		t.Errorf("ToDOT() missing pinned position for first node:\n%s", dot)
	}
	if !strings.Contains(dot, `pos="18,-118!"`) {
		t.Errorf("ToDOT() missing pinned position for second node:\n%s", dot)
	}
	if !strings.Contains(dot, "width=1.000") || !strings.Contains(dot, "height=0.500") {
		t.Errorf("ToDOT() node size not converted to inches:\n%s", dot)
	}
}

func TestToDOT_Styles(t *testing.T) {
	s, _, _ := testSnapshot()
	dot := ToDOT(s, Options{})

	if !strings.Contains(dot, "penwidth=2.5") {
		t.Error("ToDOT() signal edge should be thick")
	}
	if !strings.Contains(dot, selectionColour) {
		t.Error("ToDOT() selected node missing selection colour")
	}
}

func TestToDOT_Detailed(t *testing.T) {
	s, a, _ := testSnapshot()
	dot := ToDOT(s, Options{Detailed: true})

	if !strings.Contains(dot, a.Short()) {
		t.Error("ToDOT() detailed output missing handle")
	}
}

func TestToDOT_Pending(t *testing.T) {
	s, a, _ := testSnapshot()
	s.Pending = []canvas.PendingView{{From: a, Outlet: true, Cursor: image.Pt(5, 50)}}

	dot := ToDOT(s, Options{})
	if !strings.Contains(dot, `"cursor0" [shape=point`) {
		t.Error("ToDOT() missing cursor point for pending connection")
	}
	if !strings.Contains(dot, `"`+a.String()+`" -> "cursor0" [style=dashed`) {
		t.Error("ToDOT() pending connection should run from the outlet to the cursor")
	}

	if strings.Contains(ToDOT(s, Options{HidePending: true}), "cursor0") {
		t.Error("HidePending should drop pending connections")
	}
}

func TestNodeAttrs_Regular(t *testing.T) {
	n := canvas.NodeView{Handle: patch.NewHandle(), Text: "f", Bounds: canvas.Rect{W: 30, H: 20}}
	attrs := nodeAttrs(n, false)

	if len(attrs) != 4 {
		t.Errorf("nodeAttrs() regular node should have 4 attrs, got %d: %v", len(attrs), attrs)
	}
	if !strings.HasPrefix(attrs[0], "label=") {
		t.Errorf("nodeAttrs() first attr should be the label: %v", attrs)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	tests := []struct {
		name string
		svg  string
		want string
	}{
		{
			name: "with viewBox",
			svg:  `<svg viewBox="10 20 800 600" xmlns="http://www.w3.org/2000/svg">content</svg>`,
			want: `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 800.00 600.00" width="800" height="600">content</svg>`,
		},
		{
			name: "no viewBox",
			svg:  `<svg xmlns="http://www.w3.org/2000/svg">content</svg>`,
			want: `<svg xmlns="http://www.w3.org/2000/svg">content</svg>`,
		},
		{
			name: "zero dimensions",
			svg:  `<svg viewBox="0 0 0 0">content</svg>`,
			want: `<svg viewBox="0 0 0 0">content</svg>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeViewBox([]byte(tt.svg))
			if string(got) != tt.want {
				t.Errorf("normalizeViewBox() = %q, want %q", string(got), tt.want)
			}
		})
	}
}

func TestRender(t *testing.T) {
	s, _, _ := testSnapshot()
	svg, err := Render(context.Background(), s, Options{})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("Render() output missing <svg> tag")
	}
}

func TestRenderSVG_InvalidDOT(t *testing.T) {
	_, err := RenderSVG(context.Background(), `not valid DOT {{{`)
	if err == nil {
		t.Error("RenderSVG() should return error for invalid DOT")
	}
}
