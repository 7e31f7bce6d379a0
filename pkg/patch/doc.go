// Package patch defines the contract between the editor and a live patch
// runtime, the process that owns and executes the authoritative unit graph.
//
// A [Runtime] exposes four things to the editor:
//
//   - an ordered enumeration of units ([Runtime.Units]) with each unit's
//     geometry and inlet/outlet layout
//   - creation and removal of units and of connections between two iolets
//   - a change-notification channel ([Runtime.Subscribe]) delivering
//     asynchronous, coalescable [Event] values
//   - a bounded lock ([Runtime.Acquire]) guarding access from the
//     execution thread
//
// Units are named by [Handle], an opaque comparable value. Handles are
// identity keys only: they never own anything, and a handle may outlive the
// unit it names. Use [Runtime.Valid] before acting on a handle obtained
// earlier.
//
// [Memory] is an in-process reference runtime. It keeps the graph in memory,
// derives inlet/outlet layouts from a small class [Catalog], and simulates an
// execution thread with [Memory.Run]. It backs the CLI, scenarios and tests.
package patch
