// Package repository defines storage and search interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/memoriz/internal/model"
	"github.com/gofrs/uuid/v5"
)

// EntryRepository provides owner-scoped access to entries.
// Lists are ordered most-recently-touched first.
type EntryRepository interface {
	// CreateEntry persists e and returns it with identity and created_on assigned.
	CreateEntry(ctx context.Context, e model.Entry) (model.Entry, error)
	// UpdateEntry rewrites the editable fields of the entry identified by e.ID and e.Owner.
	UpdateEntry(ctx context.Context, e model.Entry) (model.Entry, error)
	// DeleteEntry removes the entry; deleting a missing entry is not an error.
	DeleteEntry(ctx context.Context, owner, id uuid.UUID) error
	// GetEntry returns errs.ErrNotFound when no owned entry matches.
	GetEntry(ctx context.Context, owner, id uuid.UUID) (model.Entry, error)
	// GetAllEntries returns unfiled entries (board is nil).
	GetAllEntries(ctx context.Context, owner uuid.UUID) ([]model.Entry, error)
	// GetAllEntriesByBoard returns entries filed under board.
	GetAllEntriesByBoard(ctx context.Context, owner, board uuid.UUID) ([]model.Entry, error)
	// GetEntriesByIDs bulk-fetches entries; ids that are missing or not owned are dropped.
	GetEntriesByIDs(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) ([]model.Entry, error)
}

// BoardRepository provides owner-scoped access to boards.
type BoardRepository interface {
	CreateBoard(ctx context.Context, b model.Board) (model.Board, error)
	UpdateBoard(ctx context.Context, b model.Board) (model.Board, error)
	// DeleteBoard does not cascade to entries filed under the board.
	DeleteBoard(ctx context.Context, owner, id uuid.UUID) error
	GetBoard(ctx context.Context, owner, id uuid.UUID) (model.Board, error)
	GetAllBoards(ctx context.Context, owner uuid.UUID) ([]model.Board, error)
}

// LabelRepository is declared for completeness; current backends return errs.ErrNotImplemented.
type LabelRepository interface {
	GetAllLabels(ctx context.Context, owner uuid.UUID) ([]model.Label, error)
	CreateLabel(ctx context.Context, l model.Label) (model.Label, error)
	UpdateLabel(ctx context.Context, l model.Label) (model.Label, error)
	DeleteLabel(ctx context.Context, owner uuid.UUID, id string) error
}

// Storage is the full persistence capability a backend must provide.
type Storage interface {
	EntryRepository
	BoardRepository
	LabelRepository

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close()
}
