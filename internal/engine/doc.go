// Package engine is the run coordinator. An Engine owns exactly one graph
// and every run of it.
//
// # Lifecycle
//
// Start resolves the initial inputs, creates a Pending run and hands it to
// a session (see internal/localsession) in its own goroutine. The session's
// scheduler publishes one NodeResult per node; the engine turns each of them
// into a NodeCompleted event. When the scheduler returns, the run is moved to
// its terminal status:
//
//	nil                         -> succeeded
//	scheduler.ErrRunCancelled   -> cancelled
//	anything else               -> failed
//
// The run is then archived (if an archive.Archiver is configured) and a
// RunFinished event is published. Wait returns only after both have
// happened.
//
// # Graph freezing
//
// UpdateNodeConfig edits the engine's private copy of the graph. Once the
// first run has started the graph is frozen and further edits fail with
// ErrGraphFrozen, so every run of an Engine sees the same graph.
package engine
