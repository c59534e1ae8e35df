// Package config loads the engine-wide settings from the environment.
//
// Every field of Engine is read from a GRIDFLOW_ prefixed variable, e.g.
// GRIDFLOW_WORKERS or GRIDFLOW_NODE_TIMEOUT. A .env file is read first when
// present; variables already set in the environment win over it. The result
// is checked with go-playground/validator before it is returned. CLI flags
// are applied on top by the caller.
package config
