// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates flags and the GRIDFLOW_* environment into the application's
// internal configuration.
//
// Exit codes: 0 on success, 1 when a run did not succeed or the program
// failed, 2 for usage errors, invalid configuration and invalid graphs.
package cli
