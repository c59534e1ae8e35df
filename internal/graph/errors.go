package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/gridflow/internal/model"
)

// ErrInvalidGraph is matched by every validation error.
var ErrInvalidGraph = errors.New("invalid graph")

// DuplicateIDError reports a node or edge id that is used more than once.
type DuplicateIDError struct {
	Entity string // "node" or "edge"
	ID     string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate %s id %q", e.Entity, e.ID)
}

func (e *DuplicateIDError) Is(target error) bool { return target == ErrInvalidGraph }

// NodeConfigError reports a node whose kind is unknown or rejects its config.
type NodeConfigError struct {
	NodeID string
	Kind   string
	Err    error
}

func (e *NodeConfigError) Error() string {
	return fmt.Sprintf("node %q (kind %q): %v", e.NodeID, e.Kind, e.Err)
}

func (e *NodeConfigError) Unwrap() error { return e.Err }

func (e *NodeConfigError) Is(target error) bool { return target == ErrInvalidGraph }

// DanglingEdgeError reports an edge endpoint that does not resolve to an
// existing port of the expected direction.
type DanglingEdgeError struct {
	EdgeID string
	Side   string // "source" or "destination"
	NodeID string
	PortID string
	Reason string
}

func (e *DanglingEdgeError) Error() string {
	return fmt.Sprintf("edge %q: %s %s.%s: %s", e.EdgeID, e.Side, e.NodeID, e.PortID, e.Reason)
}

func (e *DanglingEdgeError) Is(target error) bool { return target == ErrInvalidGraph }

// TypeMismatchError reports an edge whose destination port cannot accept
// values of the source port type.
type TypeMismatchError struct {
	EdgeID     string
	SourceType model.ValueType
	DestType   model.ValueType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("edge %q: cannot connect %s output to %s input", e.EdgeID, e.SourceType, e.DestType)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrInvalidGraph }

// FanInError reports an input port with more than one incoming edge.
type FanInError struct {
	NodeID  string
	PortID  string
	EdgeIDs []string
}

func (e *FanInError) Error() string {
	return fmt.Sprintf("input %s.%s has %d incoming edges (%s), at most one is allowed",
		e.NodeID, e.PortID, len(e.EdgeIDs), strings.Join(e.EdgeIDs, ", "))
}

func (e *FanInError) Is(target error) bool { return target == ErrInvalidGraph }

// CycleError reports a dependency cycle. Path starts and ends with the same
// node id.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "cycle detected: " + strings.Join(e.Path, " -> ")
}

func (e *CycleError) Is(target error) bool { return target == ErrInvalidGraph }
