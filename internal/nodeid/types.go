package nodeid

// PortRef addresses a port of a node. Port is empty when the reference names
// the node as a whole.
type PortRef struct {
	Node string
	Port string
}

// WholeNode reports whether the reference names a node rather than a port.
func (r PortRef) WholeNode() bool {
	return r.Port == ""
}

// String serializes the reference into its canonical `node.port` form.
func (r PortRef) String() string {
	if r.Port == "" {
		return r.Node
	}
	return r.Node + "." + r.Port
}
