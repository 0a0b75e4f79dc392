package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/and161185/memoriz/internal/errs"
	"github.com/and161185/memoriz/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

const entryColumns = `id, uuid, title, content, data, color, archived, created_on, updated_on, owner_, board_`

// entryRow mirrors the entry table.
type entryRow struct {
	ID        int32      `db:"id"`
	UUID      uuid.UUID  `db:"uuid"`
	Title     string     `db:"title"`
	Content   *string    `db:"content"`
	Data      []byte     `db:"data"`
	Color     *string    `db:"color"`
	Archived  bool       `db:"archived"`
	CreatedOn *time.Time `db:"created_on"`
	UpdatedOn *time.Time `db:"updated_on"`
	Owner     uuid.UUID  `db:"owner_"`
	Board     *uuid.UUID `db:"board_"`
}

func (r entryRow) toModel() model.Entry {
	return model.Entry{
		ID:        r.ID,
		UUID:      r.UUID,
		Title:     r.Title,
		Content:   r.Content,
		Data:      json.RawMessage(r.Data),
		Color:     r.Color,
		Archived:  r.Archived,
		CreatedOn: r.CreatedOn,
		UpdatedOn: r.UpdatedOn,
		Owner:     r.Owner,
		Board:     r.Board,
	}
}

// jsonArg converts an optional document to a jsonb argument; empty becomes NULL.
func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

// EntryRepo implements repository.EntryRepository using PostgreSQL.
type EntryRepo struct{ db *DB }

// NewEntryRepo constructs an entry repository.
func NewEntryRepo(db *DB) *EntryRepo { return &EntryRepo{db: db} }

// CreateEntry inserts a new entry. Identity and created_on are assigned by the database;
// the archived flag of e is ignored and always starts false.
func (r *EntryRepo) CreateEntry(ctx context.Context, e model.Entry) (model.Entry, error) {
	const q = `
INSERT INTO entry (title, content, data, color, archived, created_on, updated_on, owner_, board_)
VALUES ($1, $2, $3, $4, false, clock_timestamp(), NULL, $5, $6)
RETURNING ` + entryColumns
	return r.queryOne(ctx, "entry.create", q, e.Title, e.Content, jsonArg(e.Data), e.Color, e.Owner, e.Board)
}

// UpdateEntry rewrites the editable fields of the entry with e.ID owned by e.Owner.
func (r *EntryRepo) UpdateEntry(ctx context.Context, e model.Entry) (model.Entry, error) {
	const q = `
UPDATE entry
SET title=$3, content=$4, data=$5, color=$6, archived=$7, board_=$8, updated_on=clock_timestamp()
WHERE id=$1 AND owner_=$2
RETURNING ` + entryColumns
	return r.queryOne(ctx, "entry.update", q,
		e.ID, e.Owner, e.Title, e.Content, jsonArg(e.Data), e.Color, e.Archived, e.Board)
}

// DeleteEntry removes an owned entry. Zero affected rows is not an error.
func (r *EntryRepo) DeleteEntry(ctx context.Context, owner, id uuid.UUID) error {
	const q = `DELETE FROM entry WHERE uuid=$1 AND owner_=$2`
	if _, err := r.db.Pool.Exec(ctx, q, id, owner); err != nil {
		return classify("entry.delete", err, errs.ErrBackend)
	}
	return nil
}

// GetEntry returns a single owned entry.
func (r *EntryRepo) GetEntry(ctx context.Context, owner, id uuid.UUID) (model.Entry, error) {
	const q = `SELECT ` + entryColumns + ` FROM entry WHERE uuid=$1 AND owner_=$2`
	return r.queryOne(ctx, "entry.get", q, id, owner)
}

// GetAllEntries returns the owner's unfiled entries, most recently touched first.
func (r *EntryRepo) GetAllEntries(ctx context.Context, owner uuid.UUID) ([]model.Entry, error) {
	const q = `
SELECT ` + entryColumns + `
FROM entry
WHERE owner_=$1 AND board_ IS NULL
ORDER BY COALESCE(updated_on, created_on) DESC`
	return r.queryMany(ctx, "entry.list", q, owner)
}

// GetAllEntriesByBoard returns the owner's entries filed under board, most recently touched first.
func (r *EntryRepo) GetAllEntriesByBoard(ctx context.Context, owner, board uuid.UUID) ([]model.Entry, error) {
	const q = `
SELECT ` + entryColumns + `
FROM entry
WHERE owner_=$1 AND board_=$2
ORDER BY COALESCE(updated_on, created_on) DESC`
	return r.queryMany(ctx, "entry.list_by_board", q, owner, board)
}

// GetEntriesByIDs bulk-fetches owned entries. Result order is unspecified.
func (r *EntryRepo) GetEntriesByIDs(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) ([]model.Entry, error) {
	if len(ids) == 0 {
		return []model.Entry{}, nil
	}
	const q = `SELECT ` + entryColumns + ` FROM entry WHERE owner_=$1 AND uuid = ANY($2::uuid[])`
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	return r.queryMany(ctx, "entry.get_many", q, owner, keys)
}

func (r *EntryRepo) queryOne(ctx context.Context, op, q string, args ...any) (model.Entry, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return model.Entry{}, classify(op, err, errs.ErrBackend)
	}
	rec, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[entryRow])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Entry{}, errs.New(op, errs.ErrNotFound)
		}
		return model.Entry{}, classify(op, err, errs.ErrSerialization)
	}
	return rec.toModel(), nil
}

func (r *EntryRepo) queryMany(ctx context.Context, op, q string, args ...any) ([]model.Entry, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, classify(op, err, errs.ErrBackend)
	}
	recs, err := pgx.CollectRows(rows, pgx.RowToStructByName[entryRow])
	if err != nil {
		return nil, classify(op, err, errs.ErrSerialization)
	}
	out := make([]model.Entry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toModel())
	}
	return out, nil
}
