/*
Package domain contains the graph model shared by every part of cafe.

An automation is edited as a directed graph of typed nodes. This package defines
that graph, its invariants and the typed errors the transpiler reports. It is
pure: no I/O, no global state.

# Key Entities

  - Node: a tagged union over trigger, condition, action, delay and wait payloads.
    Every payload keeps unknown fields in an Extra map so documents round-trip.
  - Edge: a directed connection; edges leaving a condition carry a "true" or "false" handle.
  - Graph: nodes, edges and automation-level metadata (mode, max, initial state).
  - Errors: StructuralError, UnsupportedShapeError, DialectWarning and ParseError,
    each wrapping a sentinel for errors.Is.
*/
package domain
