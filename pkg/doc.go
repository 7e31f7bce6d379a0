// Package pkg provides the core libraries for Patchcanvas, a node-graph
// editor engine for Pd patches.
//
// # Overview
//
// The editor mirrors a backend patch runtime as a canvas of nodes, iolets and
// edges and turns pointer gestures into runtime mutations. The pkg directory
// is organized into these areas:
//
//  1. [patch] - Runtime contract, handles, change events and an in-memory runtime
//  2. [canvas] - Nodes, edges, selection, drag, snapping, connection gestures, sync
//  3. [journal] - Replayable mutation journals (file, MongoDB) and undo
//  4. [scenario] - Scripted editing sessions for tests and demos
//  5. [render] - Graphviz export of canvas snapshots
//  6. [server] - Read-only HTTP view of a live canvas
//
// # Architecture
//
// The typical data flow:
//
//	Runtime (patch.Memory or a remote runtime over patch/remote)
//	         ↓ change events
//	    [canvas] TaskQueue → Drain on the UI goroutine → Synchronize
//	         ↓ gestures
//	    runtime mutations → [journal] Recorder
//	         ↓
//	    Snapshot → [render], [server], terminal UI
//
// # Quick Start
//
// Open a canvas over an in-memory runtime and connect two units:
//
//	rt := patch.NewMemory(nil, nil)
//	osc, _ := rt.CreateUnit("osc~ 440", image.Pt(20, 20))
//	dac, _ := rt.CreateUnit("dac~", image.Pt(20, 120))
//
//	c := canvas.New(rt, canvas.Options{Config: canvas.DefaultConfig()})
//	defer c.Close()
//
//	out := c.Node(osc).Outlet(0)
//	c.PressIolet(out, out.Centre(), 0)
//	c.DragIolet(c.Node(dac).Inlet(0).Centre())
//	c.ReleaseIolet(0)
//
// [patch]: github.com/matzehuels/patchcanvas/pkg/patch
// [canvas]: github.com/matzehuels/patchcanvas/pkg/canvas
// [journal]: github.com/matzehuels/patchcanvas/pkg/journal
// [scenario]: github.com/matzehuels/patchcanvas/pkg/scenario
// [render]: github.com/matzehuels/patchcanvas/pkg/render
// [server]: github.com/matzehuels/patchcanvas/pkg/server
package pkg
