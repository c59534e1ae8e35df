// Package script runs the user logic of a single node as an isolated unit of
// work.
//
// Two unit flavours exist. A Command runs an operating system process in its
// own process group and a fresh temporary working directory; it exchanges
// values with the engine through JSON documents named by the GRIDFLOW_INPUT
// and GRIDFLOW_OUTPUT environment variables (the input document is also piped
// on stdin). A Func runs built-in Go logic in its own goroutine with panic
// recovery.
//
// Every invocation is bounded by a wall-clock timeout and by the output
// ceilings in Limits. Whatever goes wrong inside a unit, Execute returns an
// Outcome describing it; it never panics and never returns an error that
// should abort the whole run.
package script
