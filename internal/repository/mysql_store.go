package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/bookcore/internal/model"
)

// MySQLStore implements Store over a MySQL connection pool.
type MySQLStore struct {
	db     *sql.DB
	books  *BookRepo
	users  *UserRepo
	loans  *LoanRepo
	orders *OrderRepo
	tokens *TokenRepo
	stats  *StatsRepo
}

// NewMySQLStore binds every repo to db.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{
		db:     db,
		books:  NewBookRepo(db),
		users:  NewUserRepo(db),
		loans:  NewLoanRepo(db),
		orders: NewOrderRepo(db),
		tokens: NewTokenRepo(db),
		stats:  NewStatsRepo(db),
	}
}

// DB exposes the underlying pool for health checks and migrations.
func (s *MySQLStore) DB() *sql.DB { return s.db }

func (s *MySQLStore) Books() BookStore   { return s.books }
func (s *MySQLStore) Users() UserStore   { return s.users }
func (s *MySQLStore) Loans() LoanStore   { return s.loans }
func (s *MySQLStore) Orders() OrderStore { return s.orders }
func (s *MySQLStore) Tokens() TokenStore { return s.tokens }
func (s *MySQLStore) Stats() StatsStore  { return s.stats }

// WithTx runs fn inside a database transaction.  Every repo used through
// the Tx handle shares that transaction.
func (s *MySQLStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(ctx, &mysqlTx{
			books:     NewBookRepo(tx),
			users:     NewUserRepo(tx),
			loans:     NewLoanRepo(tx),
			orders:    NewOrderRepo(tx),
			purchases: NewPurchaseRepo(tx),
		})
	})
}

type mysqlTx struct {
	books     *BookRepo
	users     *UserRepo
	loans     *LoanRepo
	orders    *OrderRepo
	purchases *PurchaseRepo
}

func (t *mysqlTx) LockBook(ctx context.Context, bookID string) (model.Book, error) {
	return t.books.GetForUpdate(ctx, bookID)
}

func (t *mysqlTx) LockUser(ctx context.Context, userID string) (model.User, error) {
	return t.users.GetForUpdate(ctx, userID)
}

func (t *mysqlTx) LockOrder(ctx context.Context, orderID string) (model.Order, error) {
	return t.orders.GetForUpdate(ctx, orderID)
}

func (t *mysqlTx) ActiveLoan(ctx context.Context, userID, bookID string) (model.BorrowRecord, error) {
	return t.loans.ActiveForUserAndBookTx(ctx, userID, bookID)
}

func (t *mysqlTx) ActiveLoanForBook(ctx context.Context, bookID string) (model.BorrowRecord, error) {
	return t.loans.ActiveForBookTx(ctx, bookID)
}

func (t *mysqlTx) ActiveLoansForUser(ctx context.Context, userID string) ([]model.BorrowRecord, error) {
	return t.loans.ActiveForUserTx(ctx, userID)
}

func (t *mysqlTx) HasPurchase(ctx context.Context, userID, bookID string) (bool, error) {
	return t.purchases.Exists(ctx, userID, bookID)
}

func (t *mysqlTx) SetBookAvailability(ctx context.Context, bookID string, available bool) error {
	return t.books.SetAvailability(ctx, bookID, available)
}

func (t *mysqlTx) InsertLoan(ctx context.Context, rec model.BorrowRecord) error {
	return t.loans.Insert(ctx, rec)
}

func (t *mysqlTx) MarkReturned(ctx context.Context, loanID string, at time.Time) error {
	return t.loans.MarkReturned(ctx, loanID, at)
}

func (t *mysqlTx) UpdateProgress(ctx context.Context, loanID string, progress, lastPage int) error {
	return t.loans.UpdateProgress(ctx, loanID, progress, lastPage)
}

func (t *mysqlTx) InsertOrder(ctx context.Context, o model.Order) error {
	return t.orders.Insert(ctx, o)
}

func (t *mysqlTx) UpdateOrder(ctx context.Context, o model.Order) error {
	return t.orders.Update(ctx, o)
}

func (t *mysqlTx) InsertPurchase(ctx context.Context, p model.Purchase) error {
	return t.purchases.Insert(ctx, p)
}

func (t *mysqlTx) DeleteBook(ctx context.Context, bookID string) error {
	return t.books.Delete(ctx, bookID)
}

func (t *mysqlTx) DeleteUser(ctx context.Context, userID string) error {
	return t.users.Delete(ctx, userID)
}

var (
	_ Store = (*MySQLStore)(nil)
	_ Tx    = (*mysqlTx)(nil)
)
