// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines what a run records about each node and about itself.
package model

import (
	"strings"
	"time"

	"github.com/zclconf/go-cty/cty"
)

// NodeStatus is the final status of a node within a run.
type NodeStatus string

const (
	NodeSucceeded NodeStatus = "succeeded"
	NodeFailed    NodeStatus = "failed"
	NodeSkipped   NodeStatus = "skipped"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Terminal reports whether the run can no longer change state.
func (s RunStatus) Terminal() bool {
	return s == RunSucceeded || s == RunFailed || s == RunCancelled
}

// Reason classifies why a node failed or was skipped.
type Reason string

const (
	ReasonNone Reason = ""

	// Failure reasons.
	ReasonScriptFailure Reason = "script_failure"
	ReasonTimeout       Reason = "timeout"
	ReasonResourceLimit Reason = "resource_limit"
	ReasonInvalidInput  Reason = "invalid_input"
	ReasonCancelled     Reason = "cancelled"
	ReasonInternal      Reason = "internal"

	// Skip reasons.
	ReasonUpstreamFailed Reason = "upstream_failed"
	ReasonBranchNotTaken Reason = "branch_not_taken"
	ReasonFailFast       Reason = "fail_fast"
	ReasonGraphInvalid   Reason = "graph_invalid"
)

// NodeResult is the outcome of one node in one run. It is written once and
// never mutated afterwards.
type NodeResult struct {
	NodeID string
	Status NodeStatus
	// Outputs holds the produced values keyed by output port id.
	Outputs   map[string]cty.Value
	Stdout    string
	Stderr    string
	ExitCode  int
	Duration  time.Duration
	Reason    Reason
	Error     string
	Truncated bool
	// Branch is the output port a Condition node fired.
	Branch string
}

// Value returns the value produced on the given output port.
func (r NodeResult) Value(port string) (cty.Value, bool) {
	v, ok := r.Outputs[port]
	return v, ok
}

// Diagnostic merges the captured stdout and stderr text with the error message.
func (r NodeResult) Diagnostic() string {
	var parts []string
	for _, s := range []string{r.Stdout, r.Stderr, r.Error} {
		if s = strings.TrimRight(s, "\n"); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}
