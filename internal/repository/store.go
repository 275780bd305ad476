package repository

import (
	"context"
	"time"

	"github.com/iliyamo/bookcore/internal/model"
)

// BookStore reads and writes catalog rows outside of a transaction.
type BookStore interface {
	Get(ctx context.Context, id string) (model.Book, error)
	List(ctx context.Context, f model.BookFilter) ([]model.Book, error)
	// SearchPrefix returns books whose field starts with prefix, ordered
	// by that field, at most limit rows.
	SearchPrefix(ctx context.Context, field model.SearchField, prefix string, limit int) ([]model.Book, error)
	// SearchContains returns books whose title, author or genre key
	// contains term, in storage order.
	SearchContains(ctx context.Context, term string) ([]model.Book, error)
	Create(ctx context.Context, b *model.Book) error
	// Update rewrites catalog fields only.  Availability is left as is.
	Update(ctx context.Context, b model.Book) error
	Count(ctx context.Context) (total, available int, err error)
}

// UserStore reads and writes user rows.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Count(ctx context.Context) (int, error)
}

// LoanStore reads borrow records outside of a transaction.
type LoanStore interface {
	// ListByUser returns the user's records ordered by borrow date.
	ListByUser(ctx context.Context, userID string) ([]model.BorrowRecord, error)
	// ListOverdue returns active records whose due date is before now.
	ListOverdue(ctx context.Context, now time.Time) ([]model.BorrowRecord, error)
	CountActive(ctx context.Context) (int, error)
	CountOverdue(ctx context.Context, now time.Time) (int, error)
}

// OrderStore reads orders outside of a transaction.
type OrderStore interface {
	List(ctx context.Context) ([]model.OrderDetail, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// TokenStore persists hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error
	// ValidateRefresh returns the owner of a non-revoked, non-expired token
	// or ErrNotFound.
	ValidateRefresh(ctx context.Context, tokenHash string) (string, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

// StatsStore maintains the per-user monthly reading counters.
type StatsStore interface {
	// InitMonths creates zeroed rows for all twelve months.  Existing rows
	// are left untouched.
	InitMonths(ctx context.Context, userID string) error
	IncrementBooksRead(ctx context.Context, userID, month string) error
	ListByUser(ctx context.Context, userID string) ([]model.MonthlyStat, error)
}

// Tx is the transactional view used by the borrow, return, order and
// delete workflows.  The Lock* methods take row locks that are held until
// the transaction ends and return ErrNotFound for missing rows.
type Tx interface {
	LockBook(ctx context.Context, bookID string) (model.Book, error)
	LockUser(ctx context.Context, userID string) (model.User, error)
	LockOrder(ctx context.Context, orderID string) (model.Order, error)

	// ActiveLoan returns the user's active record for the book.
	ActiveLoan(ctx context.Context, userID, bookID string) (model.BorrowRecord, error)
	ActiveLoanForBook(ctx context.Context, bookID string) (model.BorrowRecord, error)
	ActiveLoansForUser(ctx context.Context, userID string) ([]model.BorrowRecord, error)
	HasPurchase(ctx context.Context, userID, bookID string) (bool, error)

	SetBookAvailability(ctx context.Context, bookID string, available bool) error
	InsertLoan(ctx context.Context, rec model.BorrowRecord) error
	MarkReturned(ctx context.Context, loanID string, at time.Time) error
	UpdateProgress(ctx context.Context, loanID string, progress, lastPage int) error
	InsertOrder(ctx context.Context, o model.Order) error
	UpdateOrder(ctx context.Context, o model.Order) error
	InsertPurchase(ctx context.Context, p model.Purchase) error
	DeleteBook(ctx context.Context, bookID string) error
	DeleteUser(ctx context.Context, userID string) error
}

// Store bundles every repository behind one handle.  WithTx runs fn inside
// a transaction, committing when fn returns nil and rolling back otherwise.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Books() BookStore
	Users() UserStore
	Loans() LoanStore
	Orders() OrderStore
	Tokens() TokenStore
	Stats() StatsStore
}
