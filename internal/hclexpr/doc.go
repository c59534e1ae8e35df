// Package hclexpr parses, checks and evaluates the boolean HCL expressions
// used by condition nodes.
//
// An expression may only read the variables its caller names and call the
// functions in Functions. Check enforces both before a graph runs.
package hclexpr
