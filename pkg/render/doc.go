// Package render turns canvas snapshots into images.
//
// The [nodelink] subpackage exports a snapshot as Graphviz DOT with every
// node pinned at its canvas position, and renders that to SVG in-process.
//
//	snap := c.Snapshot()
//	dot := nodelink.ToDOT(snap, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// [nodelink]: github.com/matzehuels/patchcanvas/pkg/render/nodelink
package render
