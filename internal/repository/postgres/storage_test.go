package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/and161185/memoriz/internal/errs"
	"github.com/and161185/memoriz/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

var (
	entryCols = []string{"id", "uuid", "title", "content", "data", "color", "archived", "created_on", "updated_on", "owner_", "board_"}
	boardCols = []string{"uuid", "title", "data", "color", "created_on", "updated_on", "owner_"}
)

func strPtr(s string) *string { return &s }

func entryRowValues(id int32, u uuid.UUID, title string, owner uuid.UUID, board *uuid.UUID, created time.Time) []any {
	return []any{id, u, title, (*string)(nil), []byte(nil), (*string)(nil), false, &created, (*time.Time)(nil), owner, board}
}

func TestEntryRepo_Create_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)

	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	id := uuid.Must(uuid.NewV4())
	created := time.Now().UTC()
	body := strPtr("remember the milk")

	mock.ExpectQuery(`INSERT INTO entry \(title, content, data, color, archived, created_on, updated_on, owner_, board_\)`).
		WithArgs("groceries", body, []byte(`{"k":1}`), (*string)(nil), owner, (*uuid.UUID)(nil)).
		WillReturnRows(pgxmock.NewRows(entryCols).AddRow(
			int32(7), id, "groceries", body, []byte(`{"k":1}`), (*string)(nil), false, &created, (*time.Time)(nil), owner, (*uuid.UUID)(nil),
		))

	got, err := r.CreateEntry(ctx, model.Entry{
		Title:    "groceries",
		Content:  body,
		Data:     []byte(`{"k":1}`),
		Archived: true,
		Owner:    owner,
	})
	require.NoError(t, err)
	require.Equal(t, int32(7), got.ID)
	require.Equal(t, id, got.UUID)
	require.False(t, got.Archived)
	require.NotNil(t, got.CreatedOn)
	require.Nil(t, got.UpdatedOn)
	require.Nil(t, got.Board)
	require.JSONEq(t, `{"k":1}`, string(got.Data))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepo_Create_ConstraintViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)

	owner := uuid.Must(uuid.NewV4())
	mock.ExpectQuery(`INSERT INTO entry`).
		WithArgs("x", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), owner, pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23502", Message: "null value in column"})

	_, err := r.CreateEntry(context.Background(), model.Entry{Title: "x", Owner: owner})
	require.ErrorIs(t, err, errs.ErrCreationImpossible)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepo_Get_ScopedByOwner(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)

	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	other := uuid.Must(uuid.NewV4())
	id := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`FROM entry WHERE uuid=\$1 AND owner_=\$2`).
		WithArgs(id, owner).
		WillReturnRows(pgxmock.NewRows(entryCols).AddRow(entryRowValues(1, id, "mine", owner, nil, time.Now())...))
	mock.ExpectQuery(`FROM entry WHERE uuid=\$1 AND owner_=\$2`).
		WithArgs(id, other).
		WillReturnRows(pgxmock.NewRows(entryCols))

	got, err := r.GetEntry(ctx, owner, id)
	require.NoError(t, err)
	require.Equal(t, "mine", got.Title)
	require.Equal(t, owner, got.Owner)

	_, err = r.GetEntry(ctx, other, id)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepo_GetAll_UnfiledInOrder(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)

	owner := uuid.Must(uuid.NewV4())
	now := time.Now()
	a, b := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`FROM entry WHERE owner_=\$1 AND board_ IS NULL ORDER BY COALESCE\(updated_on, created_on\) DESC`).
		WithArgs(owner).
		WillReturnRows(pgxmock.NewRows(entryCols).
			AddRow(entryRowValues(2, b, "newer", owner, nil, now)...).
			AddRow(entryRowValues(1, a, "older", owner, nil, now.Add(-time.Hour))...))

	got, err := r.GetAllEntries(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "newer", got[0].Title)
	require.Equal(t, "older", got[1].Title)
}

func TestEntryRepo_GetAllByBoard(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)

	owner := uuid.Must(uuid.NewV4())
	board := uuid.Must(uuid.NewV4())
	id := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`FROM entry WHERE owner_=\$1 AND board_=\$2`).
		WithArgs(owner, board).
		WillReturnRows(pgxmock.NewRows(entryCols).AddRow(entryRowValues(3, id, "filed", owner, &board, time.Now())...))

	got, err := r.GetAllEntriesByBoard(context.Background(), owner, board)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Board)
	require.Equal(t, board, *got[0].Board)
}

func TestEntryRepo_GetByIDs_EmptySkipsQuery(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)

	got, err := r.GetEntriesByIDs(context.Background(), uuid.Must(uuid.NewV4()), nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepo_GetByIDs_DropsUnowned(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)

	owner := uuid.Must(uuid.NewV4())
	mine := uuid.Must(uuid.NewV4())
	foreign := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`FROM entry WHERE owner_=\$1 AND uuid = ANY\(\$2::uuid\[\]\)`).
		WithArgs(owner, []string{mine.String(), foreign.String()}).
		WillReturnRows(pgxmock.NewRows(entryCols).AddRow(entryRowValues(1, mine, "mine", owner, nil, time.Now())...))

	got, err := r.GetEntriesByIDs(context.Background(), owner, []uuid.UUID{mine, foreign})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, mine, got[0].UUID)
}

func TestEntryRepo_Update_NotOwned(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)

	owner := uuid.Must(uuid.NewV4())
	mock.ExpectQuery(`UPDATE entry SET title=\$3, content=\$4, data=\$5, color=\$6, archived=\$7, board_=\$8, updated_on=clock_timestamp\(\) WHERE id=\$1 AND owner_=\$2`).
		WithArgs(int32(9), owner, "t", (*string)(nil), nil, (*string)(nil), true, (*uuid.UUID)(nil)).
		WillReturnRows(pgxmock.NewRows(entryCols))

	_, err := r.UpdateEntry(context.Background(), model.Entry{ID: 9, Owner: owner, Title: "t", Archived: true})
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepo_Update_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)

	owner := uuid.Must(uuid.NewV4())
	id := uuid.Must(uuid.NewV4())
	created := time.Now().Add(-time.Hour)
	updated := time.Now()

	mock.ExpectQuery(`UPDATE entry`).
		WithArgs(int32(4), owner, "renamed", (*string)(nil), nil, strPtr("red"), false, (*uuid.UUID)(nil)).
		WillReturnRows(pgxmock.NewRows(entryCols).AddRow(
			int32(4), id, "renamed", (*string)(nil), []byte(nil), strPtr("red"), false, &created, &updated, owner, (*uuid.UUID)(nil),
		))

	got, err := r.UpdateEntry(context.Background(), model.Entry{ID: 4, Owner: owner, Title: "renamed", Color: strPtr("red")})
	require.NoError(t, err)
	require.NotNil(t, got.UpdatedOn)
	require.Equal(t, "red", *got.Color)
	require.True(t, got.Touched().Equal(updated))
}

func TestEntryRepo_Delete_MissingIsNotError(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)

	owner := uuid.Must(uuid.NewV4())
	id := uuid.Must(uuid.NewV4())
	mock.ExpectExec(`DELETE FROM entry WHERE uuid=\$1 AND owner_=\$2`).
		WithArgs(id, owner).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, r.DeleteEntry(context.Background(), owner, id))
}

func TestEntryRepo_ErrorClassification(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)
	owner := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`FROM entry WHERE owner_=\$1 AND board_ IS NULL`).
		WithArgs(owner).
		WillReturnError(context.DeadlineExceeded)
	_, err := r.GetAllEntries(context.Background(), owner)
	require.ErrorIs(t, err, errs.ErrIO)

	mock.ExpectQuery(`FROM entry WHERE owner_=\$1 AND board_ IS NULL`).
		WithArgs(owner).
		WillReturnError(&pgconn.PgError{Code: "42P01", Message: "relation does not exist"})
	_, err = r.GetAllEntries(context.Background(), owner)
	require.ErrorIs(t, err, errs.ErrBackend)

	// A result set lacking a mapped column cannot be decoded into an entry.
	mock.ExpectQuery(`FROM entry WHERE owner_=\$1 AND board_ IS NULL`).
		WithArgs(owner).
		WillReturnRows(pgxmock.NewRows([]string{"id", "uuid"}).AddRow(int32(1), uuid.Must(uuid.NewV4())))
	_, err = r.GetAllEntries(context.Background(), owner)
	require.ErrorIs(t, err, errs.ErrSerialization)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestWorkBoardScenario walks a board through create, filing, listing and deletion.
func TestWorkBoardScenario(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewStorage(db)

	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	board := uuid.Must(uuid.NewV4())
	entry := uuid.Must(uuid.NewV4())
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO board \(title, data, color, created_on, updated_on, owner_\)`).
		WithArgs("Work", nil, (*string)(nil), owner).
		WillReturnRows(pgxmock.NewRows(boardCols).AddRow(board, "Work", []byte(nil), (*string)(nil), &now, (*time.Time)(nil), owner))
	mock.ExpectQuery(`INSERT INTO entry`).
		WithArgs("standup", (*string)(nil), nil, (*string)(nil), owner, &board).
		WillReturnRows(pgxmock.NewRows(entryCols).AddRow(entryRowValues(1, entry, "standup", owner, &board, now)...))
	mock.ExpectQuery(`FROM entry WHERE owner_=\$1 AND board_=\$2`).
		WithArgs(owner, board).
		WillReturnRows(pgxmock.NewRows(entryCols).AddRow(entryRowValues(1, entry, "standup", owner, &board, now)...))
	mock.ExpectQuery(`FROM entry WHERE owner_=\$1 AND board_ IS NULL`).
		WithArgs(owner).
		WillReturnRows(pgxmock.NewRows(entryCols))
	mock.ExpectExec(`DELETE FROM board WHERE uuid=\$1 AND owner_=\$2`).
		WithArgs(board, owner).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectQuery(`FROM board WHERE uuid=\$1 AND owner_=\$2`).
		WithArgs(board, owner).
		WillReturnRows(pgxmock.NewRows(boardCols))
	mock.ExpectQuery(`FROM entry WHERE uuid=\$1 AND owner_=\$2`).
		WithArgs(entry, owner).
		WillReturnRows(pgxmock.NewRows(entryCols).AddRow(entryRowValues(1, entry, "standup", owner, &board, now)...))

	b, err := s.CreateBoard(ctx, model.Board{Title: "Work", Owner: owner})
	require.NoError(t, err)
	require.Equal(t, board, b.UUID)

	e, err := s.CreateEntry(ctx, model.Entry{Title: "standup", Owner: owner, Board: &b.UUID})
	require.NoError(t, err)

	filed, err := s.GetAllEntriesByBoard(ctx, owner, b.UUID)
	require.NoError(t, err)
	require.Len(t, filed, 1)

	unfiled, err := s.GetAllEntries(ctx, owner)
	require.NoError(t, err)
	require.Empty(t, unfiled)

	require.NoError(t, s.DeleteBoard(ctx, owner, b.UUID))
	_, err = s.GetBoard(ctx, owner, b.UUID)
	require.ErrorIs(t, err, errs.ErrNotFound)

	// Deleting the board leaves the entry's reference dangling.
	dangling, err := s.GetEntry(ctx, owner, e.UUID)
	require.NoError(t, err)
	require.Equal(t, board, *dangling.Board)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBoardRepo_UpdateAndList(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBoardRepo(db)

	owner := uuid.Must(uuid.NewV4())
	id := uuid.Must(uuid.NewV4())
	now := time.Now()

	mock.ExpectQuery(`UPDATE board SET title=\$3, data=\$4, color=\$5, updated_on=clock_timestamp\(\) WHERE uuid=\$1 AND owner_=\$2`).
		WithArgs(id, owner, "Home", []byte(`{"pinned":true}`), strPtr("blue")).
		WillReturnRows(pgxmock.NewRows(boardCols).AddRow(id, "Home", []byte(`{"pinned":true}`), strPtr("blue"), &now, &now, owner))
	mock.ExpectQuery(`FROM board WHERE owner_=\$1 ORDER BY COALESCE\(updated_on, created_on\) DESC`).
		WithArgs(owner).
		WillReturnRows(pgxmock.NewRows(boardCols).AddRow(id, "Home", []byte(nil), (*string)(nil), &now, (*time.Time)(nil), owner))

	b, err := r.UpdateBoard(context.Background(), model.Board{
		UUID: id, Owner: owner, Title: "Home", Data: []byte(`{"pinned":true}`), Color: strPtr("blue"),
	})
	require.NoError(t, err)
	require.Equal(t, "Home", b.Title)
	require.NotNil(t, b.UpdatedOn)

	all, err := r.GetAllBoards(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestBoardRepo_Update_NotOwned(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBoardRepo(db)

	id := uuid.Must(uuid.NewV4())
	owner := uuid.Must(uuid.NewV4())
	mock.ExpectQuery(`UPDATE board`).
		WithArgs(id, owner, "x", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(boardCols))

	_, err := r.UpdateBoard(context.Background(), model.Board{UUID: id, Owner: owner, Title: "x"})
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_LabelsNotImplemented(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewStorage(db)
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())

	_, err := s.GetAllLabels(ctx, owner)
	require.ErrorIs(t, err, errs.ErrNotImplemented)
	_, err = s.CreateLabel(ctx, model.Label{Name: "x", Owner: owner})
	require.ErrorIs(t, err, errs.ErrNotImplemented)
	_, err = s.UpdateLabel(ctx, model.Label{ID: "x", Owner: owner})
	require.ErrorIs(t, err, errs.ErrNotImplemented)
	require.ErrorIs(t, s.DeleteLabel(ctx, owner, "x"), errs.ErrNotImplemented)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_Ping(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewStorage(db)

	mock.ExpectPing()
	require.NoError(t, s.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(context.DeadlineExceeded)
	require.ErrorIs(t, s.Ping(context.Background()), errs.ErrIO)
}
