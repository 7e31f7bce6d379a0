package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/patchcanvas/pkg/canvas"
)

// pointsPerInch converts canvas pixels to Graphviz inches.
const pointsPerInch = 72.0

const selectionColour = "#1e88e5"

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the node kind and short handle to each label.
	// When false, only the box text is shown.
	Detailed bool
	// HidePending leaves out connections still being drawn.
	HidePending bool
}

// ToDOT converts a snapshot to Graphviz DOT. Canvas y grows downward, so
// positions are mirrored for Graphviz.
func ToDOT(s canvas.Snapshot, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  splines=line;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"filled\", fillcolor=white, fontname=\"monospace\", fontsize=10, fixedsize=true];\n")
	buf.WriteString("  edge [arrowhead=none];\n")
	buf.WriteString("\n")

	for _, n := range s.Nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.Handle.String(), strings.Join(nodeAttrs(n, opts.Detailed), ", "))
	}

	buf.WriteString("\n")
	for _, e := range s.Edges {
		src, dst := e.Connection.Src.String(), e.Connection.Dst.String()
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", src, dst, strings.Join(edgeAttrs(e), ", "))
	}

	if !opts.HidePending && len(s.Pending) > 0 {
		buf.WriteString("\n")
		for i, p := range s.Pending {
			cursor := fmt.Sprintf("cursor%d", i)
			fmt.Fprintf(&buf, "  %q [shape=point, width=0.05, pos=%q];\n", cursor, pos(p.Cursor))
			from, to := p.From.String(), cursor
			if !p.Outlet {
				from, to = to, from
			}
			fmt.Fprintf(&buf, "  %q -> %q [style=dashed, color=grey];\n", from, to)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n canvas.NodeView, detailed bool) []string {
	r := n.Bounds.Rectangle()
	label := n.Text
	if detailed {
		label = fmt.Sprintf("%s\n%s %s", n.Text, n.Kind, n.Handle.Short())
	}
	attrs := []string{
		fmt.Sprintf("label=%q", label),
		fmt.Sprintf("pos=%q", pos(centreOf(r))),
		"width=" + inches(r.Dx()),
		"height=" + inches(r.Dy()),
	}
	if n.Selected {
		attrs = append(attrs, "color=\""+selectionColour+"\"", "penwidth=2")
	}
	return attrs
}

func edgeAttrs(e canvas.EdgeView) []string {
	attrs := []string{
		fmt.Sprintf("taillabel=\"%d\"", e.Connection.Outlet),
		fmt.Sprintf("headlabel=\"%d\"", e.Connection.Inlet),
		"labelfontsize=7",
	}
	if e.Signal {
		attrs = append(attrs, "penwidth=2.5")
	}
	if e.Selected {
		attrs = append(attrs, "color=\""+selectionColour+"\"")
	}
	return attrs
}

func centreOf(r image.Rectangle) image.Point {
	return image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
}

// pos formats a pinned position, mirroring y.
func pos(p image.Point) string {
	return fmt.Sprintf("%d,%d!", p.X, -p.Y)
}

func inches(px int) string {
	return strconv.FormatFloat(float64(px)/pointsPerInch, 'f', 3, 64)
}

// RenderSVG renders a DOT graph to SVG using Graphviz's NEATO engine.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

// Render exports s and renders it to SVG.
func Render(ctx context.Context, s canvas.Snapshot, opts Options) ([]byte, error) {
	return RenderSVG(ctx, ToDOT(s, opts))
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
