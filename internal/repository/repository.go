package repository

import (
	"context"

	"assetserve/internal/domain"
)

// Journal stores completed requests
type Journal interface {
	// Record queues a record; it must not block
	Record(rec domain.RequestRecord)

	// Recent returns up to limit records, newest first
	Recent(ctx context.Context, limit int) ([]domain.RequestRecord, error)

	// Flush waits for queued records to be stored
	Flush(ctx context.Context) error

	// Close releases resources
	Close() error
}
