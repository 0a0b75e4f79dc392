// Package embedded implements repository.Storage on a local SQLite file.
// Each entity kind is kept in its own key/value tree with CBOR-encoded values.
package embedded

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gofrs/uuid/v5"
	_ "modernc.org/sqlite"

	"github.com/and161185/memoriz/internal/errs"
	"github.com/and161185/memoriz/internal/model"
	"github.com/and161185/memoriz/internal/repository"
)

// FileName is the store file created inside the configured directory.
const FileName = "memoriz.db"

const (
	treeBoards  = "boards"
	treeEntries = "entries"
	treeMeta    = "meta"

	keyEntrySeq = "entry_seq"
)

var _ repository.Storage = (*Storage)(nil)

// Storage is the embedded backend. Only board/entry creation and point lookups
// are supported; everything else reports errs.ErrNotImplemented.
type Storage struct {
	mu  sync.RWMutex
	db  *sql.DB
	enc cbor.EncMode
}

// Open opens (or creates) the store file inside dir.
func Open(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap("embedded.open", errs.ErrIO, err)
	}
	return OpenPath(filepath.Join(dir, FileName))
}

// OpenPath opens a store at an explicit SQLite path. Use ":memory:" for an in-memory store.
func OpenPath(path string) (*Storage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.Wrap("embedded.open", errs.ErrIO, fmt.Errorf("open sqlite %q: %w", path, err))
	}
	// One connection: a private in-memory database per connection would split the store.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, errs.Wrap("embedded.open", errs.ErrIO, fmt.Errorf("set WAL mode: %w", err))
		}
	}
	for _, tree := range []string{treeBoards, treeEntries, treeMeta} {
		ddl := `CREATE TABLE IF NOT EXISTS tree_` + tree + ` (key TEXT PRIMARY KEY, value BLOB NOT NULL)`
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, errs.Wrap("embedded.open", errs.ErrIO, fmt.Errorf("create tree %s: %w", tree, err))
		}
	}

	enc, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		db.Close()
		return nil, errs.Wrap("embedded.open", errs.ErrSerialization, err)
	}
	return &Storage{db: db, enc: enc}, nil
}

// CreateBoard stores b under a fresh time-ordered UUID.
func (s *Storage) CreateBoard(ctx context.Context, b model.Board) (model.Board, error) {
	const op = "board.create"
	id, err := uuid.NewV7()
	if err != nil {
		return model.Board{}, errs.Wrap(op, errs.ErrCreationImpossible, err)
	}
	now := time.Now().UTC()
	b.UUID = id
	b.CreatedOn = &now
	b.UpdatedOn = nil

	val, err := s.enc.Marshal(b)
	if err != nil {
		return model.Board{}, errs.Wrap(op, errs.ErrSerialization, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO tree_`+treeBoards+` (key, value) VALUES (?, ?)`, id.String(), val); err != nil {
		return model.Board{}, errs.Wrap(op, errs.ErrIO, err)
	}
	return b, nil
}

// CreateEntry stores e under a fresh time-ordered UUID and assigns the next sequence number.
func (s *Storage) CreateEntry(ctx context.Context, e model.Entry) (model.Entry, error) {
	const op = "entry.create"
	id, err := uuid.NewV7()
	if err != nil {
		return model.Entry{}, errs.Wrap(op, errs.ErrCreationImpossible, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Entry{}, errs.Wrap(op, errs.ErrIO, err)
	}
	defer func() { _ = tx.Rollback() }()

	seq, err := nextSeq(ctx, tx)
	if err != nil {
		return model.Entry{}, errs.Wrap(op, errs.ErrIO, err)
	}

	now := time.Now().UTC()
	e.ID = seq
	e.UUID = id
	e.Archived = false
	e.CreatedOn = &now
	e.UpdatedOn = nil

	val, err := s.enc.Marshal(e)
	if err != nil {
		return model.Entry{}, errs.Wrap(op, errs.ErrSerialization, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tree_`+treeEntries+` (key, value) VALUES (?, ?)`, id.String(), val); err != nil {
		return model.Entry{}, errs.Wrap(op, errs.ErrIO, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Entry{}, errs.Wrap(op, errs.ErrIO, err)
	}
	return e, nil
}

// nextSeq increments the entry counter kept in the meta tree.
func nextSeq(ctx context.Context, tx *sql.Tx) (int32, error) {
	var raw []byte
	var cur int32
	err := tx.QueryRowContext(ctx, `SELECT value FROM tree_`+treeMeta+` WHERE key = ?`, keyEntrySeq).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return 0, err
	default:
		if err := cbor.Unmarshal(raw, &cur); err != nil {
			return 0, err
		}
	}
	cur++
	val, err := cbor.Marshal(cur)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tree_`+treeMeta+` (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, keyEntrySeq, val); err != nil {
		return 0, err
	}
	return cur, nil
}

// GetBoard returns the board if it exists and belongs to owner.
func (s *Storage) GetBoard(ctx context.Context, owner, id uuid.UUID) (model.Board, error) {
	var b model.Board
	if err := s.get(ctx, "board.get", treeBoards, id, &b); err != nil {
		return model.Board{}, err
	}
	if b.Owner != owner {
		return model.Board{}, errs.New("board.get", errs.ErrNotFound)
	}
	return b, nil
}

// GetEntry returns the entry if it exists and belongs to owner.
func (s *Storage) GetEntry(ctx context.Context, owner, id uuid.UUID) (model.Entry, error) {
	var e model.Entry
	if err := s.get(ctx, "entry.get", treeEntries, id, &e); err != nil {
		return model.Entry{}, err
	}
	if e.Owner != owner {
		return model.Entry{}, errs.New("entry.get", errs.ErrNotFound)
	}
	return e, nil
}

func (s *Storage) get(ctx context.Context, op, tree string, id uuid.UUID, dst any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM tree_`+tree+` WHERE key = ?`, id.String()).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.New(op, errs.ErrNotFound)
		}
		return errs.Wrap(op, errs.ErrIO, err)
	}
	if err := cbor.Unmarshal(raw, dst); err != nil {
		return errs.Wrap(op, errs.ErrSerialization, err)
	}
	return nil
}

// Ping checks the database file is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errs.Wrap("storage.ping", errs.ErrIO, err)
	}
	return nil
}

// Close closes the database.
func (s *Storage) Close() { _ = s.db.Close() }
