// Package registry provides the central "glue" for the node kind system.
//
// The Registry maps the kind names used in graph documents (e.g. "process")
// to the compiled Go types that implement them. A Kind knows which ports its
// nodes get by default, how to check a node's config before a run, and how to
// turn a node plus its resolved input values into a script.Unit.
//
// Kinds are contributed by modules. Each module implements Module and
// registers one or more kinds during application startup, so adding a new
// kind never requires touching the scheduler.
package registry
