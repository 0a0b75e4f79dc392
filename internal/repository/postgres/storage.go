package postgres

import (
	"context"

	"github.com/and161185/memoriz/internal/errs"
	"github.com/and161185/memoriz/internal/model"
	"github.com/and161185/memoriz/internal/repository"
	"github.com/gofrs/uuid/v5"
)

var _ repository.Storage = (*Storage)(nil)

// LabelRepo is a placeholder: labels have no table yet.
type LabelRepo struct{}

// GetAllLabels is not implemented.
func (LabelRepo) GetAllLabels(context.Context, uuid.UUID) ([]model.Label, error) {
	return nil, errs.New("label.list", errs.ErrNotImplemented)
}

// CreateLabel is not implemented.
func (LabelRepo) CreateLabel(context.Context, model.Label) (model.Label, error) {
	return model.Label{}, errs.New("label.create", errs.ErrNotImplemented)
}

// UpdateLabel is not implemented.
func (LabelRepo) UpdateLabel(context.Context, model.Label) (model.Label, error) {
	return model.Label{}, errs.New("label.update", errs.ErrNotImplemented)
}

// DeleteLabel is not implemented.
func (LabelRepo) DeleteLabel(context.Context, uuid.UUID, string) error {
	return errs.New("label.delete", errs.ErrNotImplemented)
}

// Storage composes the PostgreSQL repositories into repository.Storage.
type Storage struct {
	*EntryRepo
	*BoardRepo
	LabelRepo

	db *DB
}

// NewStorage wires all repositories over a single pool.
func NewStorage(db *DB) *Storage {
	return &Storage{
		EntryRepo: NewEntryRepo(db),
		BoardRepo: NewBoardRepo(db),
		db:        db,
	}
}

// Ping checks that a connection can be acquired and the server answers.
func (s *Storage) Ping(ctx context.Context) error {
	if err := s.db.Pool.Ping(ctx); err != nil {
		return errs.Wrap("storage.ping", errs.ErrIO, err)
	}
	return nil
}

// Close closes the pool.
func (s *Storage) Close() { s.db.Close() }
