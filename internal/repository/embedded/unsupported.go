package embedded

import (
	"context"

	"github.com/and161185/memoriz/internal/errs"
	"github.com/and161185/memoriz/internal/model"
	"github.com/gofrs/uuid/v5"
)

func (s *Storage) UpdateEntry(context.Context, model.Entry) (model.Entry, error) {
	return model.Entry{}, errs.New("entry.update", errs.ErrNotImplemented)
}

func (s *Storage) DeleteEntry(context.Context, uuid.UUID, uuid.UUID) error {
	return errs.New("entry.delete", errs.ErrNotImplemented)
}

func (s *Storage) GetAllEntries(context.Context, uuid.UUID) ([]model.Entry, error) {
	return nil, errs.New("entry.list", errs.ErrNotImplemented)
}

func (s *Storage) GetAllEntriesByBoard(context.Context, uuid.UUID, uuid.UUID) ([]model.Entry, error) {
	return nil, errs.New("entry.list_by_board", errs.ErrNotImplemented)
}

func (s *Storage) GetEntriesByIDs(context.Context, uuid.UUID, []uuid.UUID) ([]model.Entry, error) {
	return nil, errs.New("entry.get_many", errs.ErrNotImplemented)
}

func (s *Storage) UpdateBoard(context.Context, model.Board) (model.Board, error) {
	return model.Board{}, errs.New("board.update", errs.ErrNotImplemented)
}

func (s *Storage) DeleteBoard(context.Context, uuid.UUID, uuid.UUID) error {
	return errs.New("board.delete", errs.ErrNotImplemented)
}

func (s *Storage) GetAllBoards(context.Context, uuid.UUID) ([]model.Board, error) {
	return nil, errs.New("board.list", errs.ErrNotImplemented)
}

func (s *Storage) GetAllLabels(context.Context, uuid.UUID) ([]model.Label, error) {
	return nil, errs.New("label.list", errs.ErrNotImplemented)
}

func (s *Storage) CreateLabel(context.Context, model.Label) (model.Label, error) {
	return model.Label{}, errs.New("label.create", errs.ErrNotImplemented)
}

func (s *Storage) UpdateLabel(context.Context, model.Label) (model.Label, error) {
	return model.Label{}, errs.New("label.update", errs.ErrNotImplemented)
}

func (s *Storage) DeleteLabel(context.Context, uuid.UUID, string) error {
	return errs.New("label.delete", errs.ErrNotImplemented)
}
