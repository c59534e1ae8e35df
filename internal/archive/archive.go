// Package archive keeps the results of finished runs after the engine has
// forgotten them.
package archive

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Load when no record exists for the run id.
var ErrNotFound = errors.New("run not archived")

// Archiver stores the encoded result of terminal runs.
type Archiver interface {
	Save(ctx context.Context, runID string, data []byte) error
	Load(ctx context.Context, runID string) ([]byte, error)
	Close() error
}

// DefaultTTL is how long archived runs are kept when no TTL is configured.
const DefaultTTL = 24 * time.Hour
