// Package scheduler walks a validated graph layer by layer and decides, for
// every node, whether it runs, is skipped, or fails.
//
// # How It Works
//
// The scheduler follows a fixed cycle per run:
//  1. Validate the graph; an invalid graph skips every node (graph_invalid)
//  2. Compute topological layers (ids sorted within a layer)
//  3. For each layer, classify every incoming edge of every node as
//     delivered, poisoned or not fired, using the results already published
//  4. Run the runnable nodes of the layer through a bounded worker pool
//  5. Wait for the whole layer to publish before looking at the next one
//
// # Edge States
//
//   - **Delivered:** the source Succeeded and produced a value on the port
//   - **Poisoned:** the source Failed, or was skipped because something
//     upstream of it failed; the destination is Skipped (upstream_failed)
//   - **Not fired:** anything else (an untaken condition branch, a port the
//     source left empty, a source skipped by branch pruning); the destination
//     is Skipped (branch_not_taken) unless the port is optional
//
// Poison wins over not-fired, so a failure is never hidden behind a pruned
// branch.
//
// # Relationship with Other Components
//
//   - **Topology Store:** answers which edges feed a node
//   - **Run (session):** receives every node result, write-once
//   - **Runner:** executes one unit; normally a *script.Executor
//   - **Registry:** turns a node into a unit, or seeds it (input kind)
package scheduler
