// Package service implements the library workflows on top of
// repository.Store: borrowing and returning, orders, the catalog and user
// administration.  Every operation that reads and then writes more than
// one row runs inside Store.WithTx.  Domain events are published only
// after the transaction has committed.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bookcore/internal/logging"
	"github.com/iliyamo/bookcore/internal/model"
	"github.com/iliyamo/bookcore/internal/queue"
	"github.com/iliyamo/bookcore/internal/repository"
)

// Loan length bounds, in days.
const (
	MinLoanDays     = 1
	MaxLoanDays     = 7
	DefaultLoanDays = MaxLoanDays
)

// LoanService borrows and returns books.
type LoanService struct {
	store  repository.Store
	events queue.Publisher
	log    logging.Logger
	now    func() time.Time
}

// NewLoanService wires a LoanService.  A nil publisher disables events.
func NewLoanService(store repository.Store, events queue.Publisher, log logging.Logger) *LoanService {
	return &LoanService{store: store, events: events, log: log, now: clock}
}

// clock returns UTC now at the millisecond precision the schema stores.
func clock() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// Borrow lends bookID to userID for days days.  On success the book is
// unavailable and the user has exactly one new active record due at
// borrowDate + days.  Racing borrowers of one book see exactly one success;
// the others fail with ErrBookUnavailable and change nothing.
func (s *LoanService) Borrow(ctx context.Context, userID, bookID string, days int) (model.BorrowRecord, error) {
	if days < MinLoanDays || days > MaxLoanDays {
		return model.BorrowRecord{}, ErrInvalidLoanDays
	}
	var (
		rec  model.BorrowRecord
		book model.Book
	)
	now := s.now()
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		rec, book, err = borrowTx(ctx, tx, userID, bookID, days, now)
		return err
	})
	if err != nil {
		return model.BorrowRecord{}, err
	}
	s.log.Info(ctx, "book borrowed", "user_id", userID, "book_id", bookID, "due", rec.DueDate)
	publish(ctx, s.events, s.log, loanEvent(queue.LoanBorrowed, rec, book, now))
	return rec, nil
}

// borrowTx performs the borrow steps inside an open transaction.  Order
// acceptance reuses it so both paths share one availability check.
func borrowTx(ctx context.Context, tx repository.Tx, userID, bookID string, days int, now time.Time) (model.BorrowRecord, model.Book, error) {
	book, err := tx.LockBook(ctx, bookID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.BorrowRecord{}, model.Book{}, ErrBookUnavailable
	}
	if err != nil {
		return model.BorrowRecord{}, model.Book{}, fmt.Errorf("lock book: %w", err)
	}
	if !book.IsAvailable {
		return model.BorrowRecord{}, book, ErrBookUnavailable
	}
	if book.IsExclusive {
		return model.BorrowRecord{}, book, ErrExclusiveBook
	}

	if _, err := tx.LockUser(ctx, userID); errors.Is(err, repository.ErrNotFound) {
		return model.BorrowRecord{}, book, ErrUserNotFound
	} else if err != nil {
		return model.BorrowRecord{}, book, fmt.Errorf("lock user: %w", err)
	}

	if _, err := tx.ActiveLoan(ctx, userID, bookID); err == nil {
		return model.BorrowRecord{}, book, ErrAlreadyBorrowed
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.BorrowRecord{}, book, fmt.Errorf("find active loan: %w", err)
	}

	if err := tx.SetBookAvailability(ctx, bookID, false); err != nil {
		return model.BorrowRecord{}, book, fmt.Errorf("mark book unavailable: %w", err)
	}
	rec := model.BorrowRecord{
		ID:         uuid.NewString(),
		UserID:     userID,
		BookID:     bookID,
		BorrowDate: now,
		DueDate:    now.AddDate(0, 0, days),
	}
	if err := tx.InsertLoan(ctx, rec); errors.Is(err, repository.ErrConflict) {
		return model.BorrowRecord{}, book, ErrBookUnavailable
	} else if err != nil {
		return model.BorrowRecord{}, book, fmt.Errorf("insert borrow record: %w", err)
	}
	book.IsAvailable = false
	return rec, book, nil
}

// Return closes the user's active record for bookID and makes the book
// available again, both in one transaction.  Without an active record it
// fails with ErrNoActiveBorrow and changes nothing.
func (s *LoanService) Return(ctx context.Context, userID, bookID string) error {
	var (
		rec  model.BorrowRecord
		book model.Book
	)
	now := s.now()
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		book, err = tx.LockBook(ctx, bookID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoActiveBorrow
		}
		if err != nil {
			return fmt.Errorf("lock book: %w", err)
		}
		rec, err = tx.ActiveLoan(ctx, userID, bookID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoActiveBorrow
		}
		if err != nil {
			return fmt.Errorf("find active loan: %w", err)
		}
		if err := tx.MarkReturned(ctx, rec.ID, now); err != nil {
			return fmt.Errorf("mark returned: %w", err)
		}
		if err := tx.SetBookAvailability(ctx, bookID, true); err != nil {
			return fmt.Errorf("mark book available: %w", err)
		}
		rec.ReturnDate = &now
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info(ctx, "book returned", "user_id", userID, "book_id", bookID)
	publish(ctx, s.events, s.log, loanEvent(queue.LoanReturned, rec, book, now))
	return nil
}

// Availability returns the availability flag of a book.
func (s *LoanService) Availability(ctx context.Context, bookID string) (bool, error) {
	b, err := s.store.Books().Get(ctx, bookID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, ErrBookNotFound
	}
	if err != nil {
		return false, fmt.Errorf("get book: %w", err)
	}
	return b.IsAvailable, nil
}

// UpdateProgress stores reading counters on the user's active record.
func (s *LoanService) UpdateProgress(ctx context.Context, userID, bookID string, progress, lastPage int) (model.BorrowRecord, error) {
	if progress < 0 || progress > 100 || lastPage < 0 {
		return model.BorrowRecord{}, ErrInvalidInput
	}
	var rec model.BorrowRecord
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		rec, err = tx.ActiveLoan(ctx, userID, bookID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoActiveBorrow
		}
		if err != nil {
			return fmt.Errorf("find active loan: %w", err)
		}
		if err := tx.UpdateProgress(ctx, rec.ID, progress, lastPage); err != nil {
			return fmt.Errorf("update progress: %w", err)
		}
		rec.ReadingProgress, rec.LastReadPage = progress, lastPage
		return nil
	})
	return rec, err
}

// Borrowed lists the user's records in borrow order, each with its book.
// Records whose book has been deleted carry a nil Book.
func (s *LoanService) Borrowed(ctx context.Context, userID string) ([]model.BorrowedBook, error) {
	recs, err := s.store.Loans().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list borrow records: %w", err)
	}
	out := make([]model.BorrowedBook, 0, len(recs))
	for _, rec := range recs {
		bb := model.BorrowedBook{BorrowRecord: rec}
		b, err := s.store.Books().Get(ctx, rec.BookID)
		switch {
		case err == nil:
			bb.Book = &b
		case !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("get book %s: %w", rec.BookID, err)
		}
		out = append(out, bb)
	}
	return out, nil
}
