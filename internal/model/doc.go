// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model holds the in-memory representation of a workflow graph and of
// the results a run produces for it.
//
// # Core Concepts
//
//   - Graph: the set of Nodes and Edges handed to the engine. It is treated as
//     read-only once a run using it has started.
//
//   - Node: a single step with a registered Kind, ordered input and output Ports
//     and an opaque Config payload interpreted by its Kind.
//
//   - Port: a typed slot on a node. Port types are expressed as ValueType and
//     mapped onto cty types for compatibility and conformance checks.
//
//   - Edge: a connection from one output port to one input port.
//
//   - NodeResult: the write-once outcome of a node within a single run.
package model
