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

const boardColumns = `uuid, title, data, color, created_on, updated_on, owner_`

type boardRow struct {
	UUID      uuid.UUID  `db:"uuid"`
	Title     string     `db:"title"`
	Data      []byte     `db:"data"`
	Color     *string    `db:"color"`
	CreatedOn *time.Time `db:"created_on"`
	UpdatedOn *time.Time `db:"updated_on"`
	Owner     uuid.UUID  `db:"owner_"`
}

func (r boardRow) toModel() model.Board {
	return model.Board{
		UUID:      r.UUID,
		Title:     r.Title,
		Data:      json.RawMessage(r.Data),
		Color:     r.Color,
		CreatedOn: r.CreatedOn,
		UpdatedOn: r.UpdatedOn,
		Owner:     r.Owner,
	}
}

// BoardRepo implements repository.BoardRepository using PostgreSQL.
type BoardRepo struct{ db *DB }

// NewBoardRepo constructs a board repository.
func NewBoardRepo(db *DB) *BoardRepo { return &BoardRepo{db: db} }

// CreateBoard inserts a new board and returns it with the generated UUID.
func (r *BoardRepo) CreateBoard(ctx context.Context, b model.Board) (model.Board, error) {
	const q = `
INSERT INTO board (title, data, color, created_on, updated_on, owner_)
VALUES ($1, $2, $3, clock_timestamp(), NULL, $4)
RETURNING ` + boardColumns
	return r.queryOne(ctx, "board.create", q, b.Title, jsonArg(b.Data), b.Color, b.Owner)
}

// UpdateBoard rewrites title, data and color of an owned board.
func (r *BoardRepo) UpdateBoard(ctx context.Context, b model.Board) (model.Board, error) {
	const q = `
UPDATE board
SET title=$3, data=$4, color=$5, updated_on=clock_timestamp()
WHERE uuid=$1 AND owner_=$2
RETURNING ` + boardColumns
	return r.queryOne(ctx, "board.update", q, b.UUID, b.Owner, b.Title, jsonArg(b.Data), b.Color)
}

// DeleteBoard removes an owned board. Entries filed under it keep their reference.
func (r *BoardRepo) DeleteBoard(ctx context.Context, owner, id uuid.UUID) error {
	const q = `DELETE FROM board WHERE uuid=$1 AND owner_=$2`
	if _, err := r.db.Pool.Exec(ctx, q, id, owner); err != nil {
		return classify("board.delete", err, errs.ErrBackend)
	}
	return nil
}

// GetBoard returns a single owned board.
func (r *BoardRepo) GetBoard(ctx context.Context, owner, id uuid.UUID) (model.Board, error) {
	const q = `SELECT ` + boardColumns + ` FROM board WHERE uuid=$1 AND owner_=$2`
	return r.queryOne(ctx, "board.get", q, id, owner)
}

// GetAllBoards returns the owner's boards, most recently touched first.
func (r *BoardRepo) GetAllBoards(ctx context.Context, owner uuid.UUID) ([]model.Board, error) {
	const q = `
SELECT ` + boardColumns + `
FROM board
WHERE owner_=$1
ORDER BY COALESCE(updated_on, created_on) DESC`
	rows, err := r.db.Pool.Query(ctx, q, owner)
	if err != nil {
		return nil, classify("board.list", err, errs.ErrBackend)
	}
	recs, err := pgx.CollectRows(rows, pgx.RowToStructByName[boardRow])
	if err != nil {
		return nil, classify("board.list", err, errs.ErrSerialization)
	}
	out := make([]model.Board, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toModel())
	}
	return out, nil
}

func (r *BoardRepo) queryOne(ctx context.Context, op, q string, args ...any) (model.Board, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return model.Board{}, classify(op, err, errs.ErrBackend)
	}
	rec, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[boardRow])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Board{}, errs.New(op, errs.ErrNotFound)
		}
		return model.Board{}, classify(op, err, errs.ErrSerialization)
	}
	return rec.toModel(), nil
}
