package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/memoriz/internal/errs"
	"github.com/and161185/memoriz/internal/metrics"
	"github.com/and161185/memoriz/internal/model"
	"github.com/and161185/memoriz/internal/repository"
)

// MemorizService defines owner-scoped operations over entries and boards.
// Owner is always the authenticated caller; owners in payloads are ignored.
type MemorizService interface {
	// GetAllEntries returns unfiled entries, optionally filtered by archived state.
	GetAllEntries(ctx context.Context, owner uuid.UUID, archived *bool) ([]model.Entry, error)
	// GetAllEntriesByBoard returns entries filed under board, optionally filtered by archived state.
	GetAllEntriesByBoard(ctx context.Context, owner, board uuid.UUID, archived *bool) ([]model.Entry, error)
	GetEntry(ctx context.Context, owner, id uuid.UUID) (model.Entry, error)
	CreateEntry(ctx context.Context, owner uuid.UUID, e model.Entry) (model.Entry, error)
	UpdateEntry(ctx context.Context, owner uuid.UUID, e model.Entry) (model.Entry, error)
	DeleteEntry(ctx context.Context, owner, id uuid.UUID) error
	// ArchiveEntry marks the entry archived. Not atomic: a concurrent update may be lost.
	ArchiveEntry(ctx context.Context, owner, id uuid.UUID) (model.Entry, error)
	// UndoArchiveEntry clears the archived flag.
	UndoArchiveEntry(ctx context.Context, owner, id uuid.UUID) (model.Entry, error)
	// Search returns owned entries matching query in relevance order.
	Search(ctx context.Context, owner uuid.UUID, query string) ([]model.Entry, error)

	GetAllBoards(ctx context.Context, owner uuid.UUID) ([]model.Board, error)
	GetBoard(ctx context.Context, owner, id uuid.UUID) (model.Board, error)
	CreateBoard(ctx context.Context, owner uuid.UUID, b model.Board) (model.Board, error)
	UpdateBoard(ctx context.Context, owner uuid.UUID, b model.Board) (model.Board, error)
	DeleteBoard(ctx context.Context, owner, id uuid.UUID) error

	// Reindex rewrites the search documents of every entry reachable by owner
	// and returns how many were written.
	Reindex(ctx context.Context, owner uuid.UUID) (int, error)
}

var _ MemorizService = (*MemorizServiceImpl)(nil)

type MemorizServiceImpl struct {
	store  repository.Storage
	search repository.SearchEngine
	log    *zap.Logger
}

// NewMemorizService wires the orchestrator. search may be nil when no search
// service is configured; Search then reports errs.ErrNotImplemented.
func NewMemorizService(store repository.Storage, search repository.SearchEngine, log *zap.Logger) *MemorizServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &MemorizServiceImpl{store: store, search: search, log: log}
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errs.ErrValidation}, args...)...)
}

func checkOwner(owner uuid.UUID) error {
	if owner == uuid.Nil {
		return validationErr("empty owner")
	}
	return nil
}

func checkIDs(owner, id uuid.UUID) error {
	if owner == uuid.Nil || id == uuid.Nil {
		return validationErr("empty owner/id")
	}
	return nil
}

// GetAllEntries filters after the fetch; the store itself is not archive-aware.
func (s *MemorizServiceImpl) GetAllEntries(ctx context.Context, owner uuid.UUID, archived *bool) ([]model.Entry, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	entries, err := s.store.GetAllEntries(ctx, owner)
	if err != nil {
		return nil, err
	}
	return model.FilterArchived(entries, archived), nil
}

func (s *MemorizServiceImpl) GetAllEntriesByBoard(ctx context.Context, owner, board uuid.UUID, archived *bool) ([]model.Entry, error) {
	if err := checkIDs(owner, board); err != nil {
		return nil, err
	}
	entries, err := s.store.GetAllEntriesByBoard(ctx, owner, board)
	if err != nil {
		return nil, err
	}
	return model.FilterArchived(entries, archived), nil
}

func (s *MemorizServiceImpl) GetEntry(ctx context.Context, owner, id uuid.UUID) (model.Entry, error) {
	if err := checkIDs(owner, id); err != nil {
		return model.Entry{}, err
	}
	return s.store.GetEntry(ctx, owner, id)
}

// CreateEntry validates the payload, stamps the caller as owner and stores the entry.
// Validation rules:
// - owner != uuid.Nil
// - title not blank
func (s *MemorizServiceImpl) CreateEntry(ctx context.Context, owner uuid.UUID, e model.Entry) (model.Entry, error) {
	if err := checkOwner(owner); err != nil {
		return model.Entry{}, err
	}
	if strings.TrimSpace(e.Title) == "" {
		return model.Entry{}, validationErr("empty title")
	}
	e.Owner = owner
	out, err := s.store.CreateEntry(ctx, e)
	if err != nil {
		return model.Entry{}, err
	}
	s.syncIndex(ctx, "create", out)
	return out, nil
}

// UpdateEntry rewrites an owned entry. When the internal id is absent it is
// resolved from the UUID first.
func (s *MemorizServiceImpl) UpdateEntry(ctx context.Context, owner uuid.UUID, e model.Entry) (model.Entry, error) {
	if err := checkOwner(owner); err != nil {
		return model.Entry{}, err
	}
	if strings.TrimSpace(e.Title) == "" {
		return model.Entry{}, validationErr("empty title")
	}
	if e.ID == 0 {
		if e.UUID == uuid.Nil {
			return model.Entry{}, validationErr("empty id/uuid")
		}
		cur, err := s.store.GetEntry(ctx, owner, e.UUID)
		if err != nil {
			return model.Entry{}, err
		}
		e.ID = cur.ID
	}
	e.Owner = owner
	out, err := s.store.UpdateEntry(ctx, e)
	if err != nil {
		return model.Entry{}, err
	}
	s.syncIndex(ctx, "update", out)
	return out, nil
}

func (s *MemorizServiceImpl) DeleteEntry(ctx context.Context, owner, id uuid.UUID) error {
	if err := checkIDs(owner, id); err != nil {
		return err
	}
	if err := s.store.DeleteEntry(ctx, owner, id); err != nil {
		return err
	}
	if s.search != nil {
		if err := s.search.RemoveEntry(ctx, id); err != nil {
			s.indexFailed("delete", id, err)
		}
	}
	return nil
}

func (s *MemorizServiceImpl) ArchiveEntry(ctx context.Context, owner, id uuid.UUID) (model.Entry, error) {
	return s.setArchived(ctx, "archive", owner, id, true)
}

func (s *MemorizServiceImpl) UndoArchiveEntry(ctx context.Context, owner, id uuid.UUID) (model.Entry, error) {
	return s.setArchived(ctx, "undo_archive", owner, id, false)
}

// setArchived is a read-modify-write; a failed read skips the write.
func (s *MemorizServiceImpl) setArchived(ctx context.Context, op string, owner, id uuid.UUID, archived bool) (model.Entry, error) {
	if err := checkIDs(owner, id); err != nil {
		return model.Entry{}, err
	}
	e, err := s.store.GetEntry(ctx, owner, id)
	if err != nil {
		return model.Entry{}, err
	}
	e.Archived = archived
	out, err := s.store.UpdateEntry(ctx, e)
	if err != nil {
		return model.Entry{}, err
	}
	s.syncIndex(ctx, op, out)
	return out, nil
}

// Search queries the index, then resolves hits against the store so that only
// entries the owner still has are returned, in index order.
func (s *MemorizServiceImpl) Search(ctx context.Context, owner uuid.UUID, query string) ([]model.Entry, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	if s.search == nil {
		return nil, errs.New("entry.search", errs.ErrNotImplemented)
	}
	ids, err := s.search.SearchEntries(ctx, owner, query)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.Entry{}, nil
	}
	found, err := s.store.GetEntriesByIDs(ctx, owner, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]model.Entry, len(found))
	for _, e := range found {
		byID[e.UUID] = e
	}
	out := make([]model.Entry, 0, len(found))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			out = append(out, e)
			delete(byID, id)
		}
	}
	return out, nil
}

func (s *MemorizServiceImpl) GetAllBoards(ctx context.Context, owner uuid.UUID) ([]model.Board, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	return s.store.GetAllBoards(ctx, owner)
}

func (s *MemorizServiceImpl) GetBoard(ctx context.Context, owner, id uuid.UUID) (model.Board, error) {
	if err := checkIDs(owner, id); err != nil {
		return model.Board{}, err
	}
	return s.store.GetBoard(ctx, owner, id)
}

func (s *MemorizServiceImpl) CreateBoard(ctx context.Context, owner uuid.UUID, b model.Board) (model.Board, error) {
	if err := checkOwner(owner); err != nil {
		return model.Board{}, err
	}
	if strings.TrimSpace(b.Title) == "" {
		return model.Board{}, validationErr("empty title")
	}
	b.Owner = owner
	return s.store.CreateBoard(ctx, b)
}

func (s *MemorizServiceImpl) UpdateBoard(ctx context.Context, owner uuid.UUID, b model.Board) (model.Board, error) {
	if err := checkIDs(owner, b.UUID); err != nil {
		return model.Board{}, err
	}
	if strings.TrimSpace(b.Title) == "" {
		return model.Board{}, validationErr("empty title")
	}
	b.Owner = owner
	return s.store.UpdateBoard(ctx, b)
}

// DeleteBoard does not touch entries filed under the board.
func (s *MemorizServiceImpl) DeleteBoard(ctx context.Context, owner, id uuid.UUID) error {
	if err := checkIDs(owner, id); err != nil {
		return err
	}
	return s.store.DeleteBoard(ctx, owner, id)
}

// Reindex walks unfiled entries and every owned board. Entries filed under a
// board that no longer exists are not reachable and are skipped.
func (s *MemorizServiceImpl) Reindex(ctx context.Context, owner uuid.UUID) (int, error) {
	if err := checkOwner(owner); err != nil {
		return 0, err
	}
	if s.search == nil {
		return 0, errs.New("entry.reindex", errs.ErrNotImplemented)
	}

	entries, err := s.store.GetAllEntries(ctx, owner)
	if err != nil {
		return 0, err
	}
	boards, err := s.store.GetAllBoards(ctx, owner)
	if err != nil {
		return 0, err
	}
	for _, b := range boards {
		filed, err := s.store.GetAllEntriesByBoard(ctx, owner, b.UUID)
		if err != nil {
			return 0, err
		}
		entries = append(entries, filed...)
	}

	n := 0
	for _, e := range entries {
		if err := s.search.IndexEntry(ctx, e); err != nil {
			return n, err
		}
		n++
	}
	s.log.Info("reindex done", zap.String("owner", owner.String()), zap.Int("documents", n))
	return n, nil
}

// syncIndex pushes e to the index. Failures leave the index stale but never
// fail the store operation that already succeeded.
func (s *MemorizServiceImpl) syncIndex(ctx context.Context, op string, e model.Entry) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexEntry(ctx, e); err != nil {
		s.indexFailed(op, e.UUID, err)
	}
}

func (s *MemorizServiceImpl) indexFailed(op string, id uuid.UUID, err error) {
	metrics.IndexSyncFailures.WithLabelValues(op).Inc()
	lvl := zap.WarnLevel
	if errors.Is(err, context.Canceled) {
		lvl = zap.DebugLevel
	}
	s.log.Log(lvl, "search index out of sync",
		zap.String("op", op), zap.String("entry", id.String()), zap.Error(err))
}
