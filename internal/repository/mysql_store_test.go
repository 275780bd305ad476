package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bookcore/internal/model"
)

func newMock(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMySQLStore(db), mock
}

var bookCols = []string{"id", "title", "author", "genre", "description", "cover_image_url", "pdf_url",
	"is_available", "is_exclusive", "price_cents", "published_year",
	"title_lower", "author_lower", "genre_lower", "created_at", "updated_at"}

func bookRow(rows *sqlmock.Rows, id, title string, available bool) *sqlmock.Rows {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	return rows.AddRow(id, title, "Frank Herbert", "Sci-Fi", "", "c", "p",
		available, false, 0, 1965, "dune", "frank herbert", "sci-fi", now, now)
}

func TestBookRepo_Get(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("FROM books WHERE id = ?")).
		WithArgs("b1").
		WillReturnRows(bookRow(sqlmock.NewRows(bookCols), "b1", "Dune", true))
	b, err := store.Books().Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Dune", b.Title)
	assert.True(t, b.IsAvailable)

	mock.ExpectQuery(regexp.QuoteMeta("FROM books WHERE id = ?")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(bookCols))
	_, err = store.Books().Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRepo_SearchPrefix(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE title_lower LIKE ? ORDER BY title_lower, seq LIMIT ?")).
		WithArgs(`50\%\_off%`, 5).
		WillReturnRows(sqlmock.NewRows(bookCols))
	got, err := store.Books().SearchPrefix(ctx, model.SearchTitle, "50%_off", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = store.Books().SearchPrefix(ctx, model.SearchField("id; DROP TABLE books"), "x", 5)
	assert.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepo_InsertDuplicate(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO borrow_records")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	err := NewLoanRepo(store.DB()).Insert(context.Background(), model.BorrowRecord{
		ID: "l1", UserID: "u1", BookID: "b1", BorrowDate: now, DueDate: now.Add(24 * time.Hour),
	})
	assert.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_CommitAndRollback(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE books SET is_available = ?")).
		WithArgs(false, sqlmock.AnyArg(), "b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	err := store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.SetBookAvailability(ctx, "b1", false)
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()
	err = store.WithTx(ctx, func(context.Context, Tx) error { return boom })
	assert.ErrorIs(t, err, boom)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE books SET is_available = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	err = store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.SetBookAvailability(ctx, "gone", true)
	})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\%b\_c\\d`, escapeLike(`a%b_c\d`))
}
