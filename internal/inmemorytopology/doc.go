// Package inmemorytopology provides a thread-safe, in-memory implementation
// of the topologystore.Store interface. Edges are indexed in both directions
// so the scheduler can answer "what feeds this node" and "what does this
// node feed" without scanning the edge list.
package inmemorytopology
