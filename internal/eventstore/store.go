// Package eventstore persists run lifecycle events for history queries and
// the daemon status API.
package eventstore

import (
	"context"
	"time"
)

// Store is the persistence interface for run events.
type Store interface {
	Append(ctx context.Context, runID, eventType string, payload []byte, metadata map[string]string) error
	GetByRunID(ctx context.Context, runID string) ([]Event, error)
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)
	Close() error
}
