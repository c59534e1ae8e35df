// Package graph validates workflow graphs and computes their execution order.
//
// # Why Graph Package Exists
//
// Every run starts from a model.Graph that came from outside the process: a
// document on disk, a socket.io message or a test fixture. Before anything is
// executed the graph must be proven structurally sound, otherwise a bad edge
// could silently disconnect part of the workflow or a cycle could stall the
// scheduler forever.
//
// # Responsibilities
//
//   - **Validation** (Validate): unique ids, registered kinds with acceptable
//     config, edges that reference existing ports in the right direction,
//     compatible port types, at most one incoming edge per input port and no
//     cycle over the full edge set. Every problem is reported; nothing is
//     dropped or repaired.
//   - **Ordering** (TopologicalLayers): partitions nodes into layers so that
//     every dependency of a node lies in a strictly earlier layer. Within a
//     layer ids are sorted, which makes scheduling deterministic.
//
// Both functions are pure. They never mutate the graph they are given and can
// be called concurrently.
//
// # Errors
//
// Each validation problem has its own error type (CycleError,
// DanglingEdgeError, TypeMismatchError, FanInError, NodeConfigError,
// DuplicateIDError). All of them match ErrInvalidGraph with errors.Is, and
// ValidationResult.Err joins them into a single error.
package graph
