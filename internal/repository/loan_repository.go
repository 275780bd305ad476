package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/bookcore/internal/model"
)

// LoanRepo provides access to borrow_records.  The table carries a unique
// generated column active_book_id that is NULL for returned records, so
// the database itself rejects a second active record for one book.
type LoanRepo struct{ db DBTX }

func NewLoanRepo(db DBTX) *LoanRepo { return &LoanRepo{db: db} }

const loanColumns = `id, user_id, book_id, borrow_date, due_date, return_date, reading_progress, last_read_page`

func scanLoan(s rowScanner) (model.BorrowRecord, error) {
	var (
		rec      model.BorrowRecord
		returned sql.NullTime
	)
	err := s.Scan(&rec.ID, &rec.UserID, &rec.BookID, &rec.BorrowDate, &rec.DueDate,
		&returned, &rec.ReadingProgress, &rec.LastReadPage)
	if err != nil {
		return rec, err
	}
	if returned.Valid {
		t := returned.Time
		rec.ReturnDate = &t
	}
	return rec, nil
}

func (r *LoanRepo) query(ctx context.Context, q string, args ...any) ([]model.BorrowRecord, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BorrowRecord{}
	for rows.Next() {
		rec, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListByUser returns the user's records ordered by borrow date.
func (r *LoanRepo) ListByUser(ctx context.Context, userID string) ([]model.BorrowRecord, error) {
	return r.query(ctx, `SELECT `+loanColumns+` FROM borrow_records WHERE user_id = ? ORDER BY borrow_date, id`, userID)
}

// ListOverdue returns active records due before now.
func (r *LoanRepo) ListOverdue(ctx context.Context, now time.Time) ([]model.BorrowRecord, error) {
	return r.query(ctx, `SELECT `+loanColumns+` FROM borrow_records
		WHERE return_date IS NULL AND due_date < ? ORDER BY due_date, id`, now.UTC())
}

// CountActive returns the number of records not yet returned.
func (r *LoanRepo) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM borrow_records WHERE return_date IS NULL`).Scan(&n)
	return n, err
}

// CountOverdue returns the number of active records due before now.
func (r *LoanRepo) CountOverdue(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM borrow_records WHERE return_date IS NULL AND due_date < ?`, now.UTC()).Scan(&n)
	return n, err
}

// ActiveForUserAndBookTx locks and returns the user's active record for a
// book, or ErrNotFound.
func (r *LoanRepo) ActiveForUserAndBookTx(ctx context.Context, userID, bookID string) (model.BorrowRecord, error) {
	rec, err := scanLoan(r.db.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM borrow_records
		WHERE user_id = ? AND book_id = ? AND return_date IS NULL LIMIT 1 FOR UPDATE`, userID, bookID))
	return rec, notFound(err)
}

// ActiveForBookTx locks and returns the active record of a book, if any.
func (r *LoanRepo) ActiveForBookTx(ctx context.Context, bookID string) (model.BorrowRecord, error) {
	rec, err := scanLoan(r.db.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM borrow_records
		WHERE active_book_id = ? FOR UPDATE`, bookID))
	return rec, notFound(err)
}

// ActiveForUserTx locks and returns all active records of a user.
func (r *LoanRepo) ActiveForUserTx(ctx context.Context, userID string) ([]model.BorrowRecord, error) {
	return r.query(ctx, `SELECT `+loanColumns+` FROM borrow_records
		WHERE user_id = ? AND return_date IS NULL ORDER BY borrow_date, id FOR UPDATE`, userID)
}

// Insert stores a new record.  A second active record for the same book
// fails with ErrConflict.
func (r *LoanRepo) Insert(ctx context.Context, rec model.BorrowRecord) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO borrow_records
		(id, user_id, book_id, borrow_date, due_date, return_date, reading_progress, last_read_page)
		VALUES (?, ?, ?, ?, ?, NULL, ?, ?)`,
		rec.ID, rec.UserID, rec.BookID, rec.BorrowDate, rec.DueDate, rec.ReadingProgress, rec.LastReadPage)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// MarkReturned sets the return date of an active record.
func (r *LoanRepo) MarkReturned(ctx context.Context, loanID string, at time.Time) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE borrow_records SET return_date = ? WHERE id = ? AND return_date IS NULL`, at.UTC(), loanID))
}

// UpdateProgress stores the reading counters of a record.
func (r *LoanRepo) UpdateProgress(ctx context.Context, loanID string, progress, lastPage int) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE borrow_records SET reading_progress = ?, last_read_page = ? WHERE id = ?`,
		progress, lastPage, loanID))
}
