package repository

import (
	"context"

	"github.com/and161185/memoriz/internal/model"
	"github.com/gofrs/uuid/v5"
)

// SearchEngine maintains the full-text projection of entries.
// It returns identifiers only; callers resolve them against Storage.
type SearchEngine interface {
	// IndexEntry upserts the projection document keyed by the entry UUID.
	IndexEntry(ctx context.Context, e model.Entry) error
	// RemoveEntry drops the projection document; a missing document is not an error.
	RemoveEntry(ctx context.Context, id uuid.UUID) error
	// SearchEntries returns matching entry UUIDs, most relevant first.
	// Results are not guaranteed to belong to owner.
	SearchEntries(ctx context.Context, owner uuid.UUID, query string) ([]uuid.UUID, error)
	// Close releases the client.
	Close()
}
