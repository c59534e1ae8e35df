// Package inmemorystore provides a thread-safe, in-memory implementation
// of the nodestore.Store interface. It backs every local run; results that
// must outlive the process go through the archive package.
package inmemorystore
