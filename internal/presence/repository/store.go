package repository

import (
	"context"
	"errors"

	"github.com/enjoysite/friendmap/internal/presence/domain"
)

// ErrWatchClosed is returned when the backend ends a watch on its own.
var ErrWatchClosed = errors.New("presence watch closed by backend")

// Store is the shared multi-writer presence collection.
//
// Merge writes into the record keyed by uid, keeping fields the patch leaves
// unset, and stamps it with the store's clock. Watch delivers the full
// collection once on subscribe and again after every write by anyone; it
// blocks until ctx is cancelled (returning nil) or the subscription fails.
type Store interface {
	Merge(ctx context.Context, uid string, patch domain.Patch) (*domain.Record, error)
	List(ctx context.Context) ([]domain.Record, error)
	Watch(ctx context.Context, handler domain.SnapshotHandler) error
}
