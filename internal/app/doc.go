// Package app contains the core application logic. It wires the logger,
// configuration, module registry, script executor, run archive and engine
// together and exposes the run, validate and serve lifecycles, decoupled
// from any specific entrypoint like a CLI.
package app
