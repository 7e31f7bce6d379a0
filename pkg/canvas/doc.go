// Package canvas is the interactive graph-editing engine of patchcanvas.
//
// A [Canvas] mirrors the unit graph of a [patch.Runtime] as visual
// [Node] and [Edge] values and turns user gestures into runtime mutations.
// The pieces are:
//
//   - [Canvas.Synchronize] reconciles nodes and edges against the runtime's
//     authoritative lists. It is idempotent and order preserving.
//   - [SelectionSet] holds weak references to selected nodes and edges;
//     destroyed items are evicted synchronously.
//   - [DragCoordinator] moves the selection as one rigid body through a
//     temporary overlay and commits a single batched move on release.
//   - [GridSnapEngine] corrects drag offsets to align with nearby nodes or
//     straight connections, with per-axis hysteresis.
//   - [ConnectionController] runs click-to-connect, drag-to-connect and the
//     shift-release auto-patching heuristics.
//   - [TaskQueue] defers runtime notifications to the UI goroutine and
//     re-validates handles before acting on them.
//
// # Threading
//
// A Canvas is not safe for concurrent use. Every method must be called from
// one goroutine, the UI goroutine. Runtime notifications may arrive on any
// goroutine; they are queued and applied by [Canvas.Drain].
//
// # Failure
//
// Gesture methods never return errors. Stale references, invalid connection
// attempts and a busy runtime lock all resolve to a logged no-op, and the
// next synchronization pass repairs any divergence.
package canvas
