package nodeid

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	nodeRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	portRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// isValidSegmentName checks for undesirable but technically valid names.
func isValidSegmentName(name string) bool {
	if name == "." || name == ".." || name == "-" {
		return false
	}
	return !strings.HasPrefix(name, ".") && !strings.HasSuffix(name, ".")
}

// ValidNodeID reports whether id can be used as a node id.
func ValidNodeID(id string) error {
	if id == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if !nodeRegex.MatchString(id) || !isValidSegmentName(id) {
		return fmt.Errorf("invalid node id: %q", id)
	}
	return nil
}

// Parse parses a `node.port` reference. The port part is mandatory.
func Parse(raw string) (PortRef, error) {
	if raw == "" {
		return PortRef{}, fmt.Errorf("reference cannot be empty")
	}
	i := strings.LastIndex(raw, ".")
	if i <= 0 || i == len(raw)-1 {
		return PortRef{}, fmt.Errorf("reference %q must have the form node.port", raw)
	}
	ref := PortRef{Node: raw[:i], Port: raw[i+1:]}
	if err := ValidNodeID(ref.Node); err != nil {
		return PortRef{}, err
	}
	if !portRegex.MatchString(ref.Port) || !isValidSegmentName(ref.Port) {
		return PortRef{}, fmt.Errorf("invalid port id: %q", ref.Port)
	}
	return ref, nil
}

// Resolve interprets raw against a set of known node ids: a raw string equal
// to a node id names the whole node, anything else must parse as node.port
// with an existing node.
func Resolve(raw string, hasNode func(id string) bool) (PortRef, error) {
	if hasNode(raw) {
		return PortRef{Node: raw}, nil
	}
	ref, err := Parse(raw)
	if err != nil {
		return PortRef{}, err
	}
	if !hasNode(ref.Node) {
		return PortRef{}, fmt.Errorf("reference %q: unknown node %q", raw, ref.Node)
	}
	return ref, nil
}
