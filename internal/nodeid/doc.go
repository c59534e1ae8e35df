/*
Package nodeid parses and formats port references, the `node.port` strings
used by graph documents (edge endpoints) and by run requests (initial input
keys).

A reference is split at its last dot: everything before it is the node id,
which may itself contain dots, and everything after it is the port id. A
reference without a port names the whole node; Resolve decides between the
two readings by looking the raw string up as a node id first.
*/
package nodeid
