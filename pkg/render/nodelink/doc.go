// Package nodelink renders canvas snapshots as node-link diagrams.
//
// # Overview
//
// Nodes appear as boxes at their canvas positions, connected by one edge per
// patch connection. Layout is not recomputed: [ToDOT] pins every node with
// pos="x,y!" and the NEATO engine keeps it there, so the picture matches the
// editor.
//
// # Usage
//
//	dot := nodelink.ToDOT(c.Snapshot(), nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Styling
//
//   - Signal connections are drawn thicker than data connections.
//   - Selected nodes and edges are drawn in the selection colour.
//   - Pending connections are drawn dashed from their source to the cursor.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering, so no Graphviz installation is needed.
package nodelink
