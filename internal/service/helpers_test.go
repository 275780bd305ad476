package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bookcore/internal/logging"
	"github.com/iliyamo/bookcore/internal/model"
	"github.com/iliyamo/bookcore/internal/queue"
	"github.com/iliyamo/bookcore/internal/repository/memstore"
)

type fixture struct {
	store   *memstore.Store
	events  *queue.Recorder
	loans   *LoanService
	orders  *OrderService
	catalog *CatalogService
	users   *UserService
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	events := queue.NewRecorder()
	log := logging.Discard()
	f := &fixture{
		store:   store,
		events:  events,
		loans:   NewLoanService(store, events, log),
		orders:  NewOrderService(store, events, log),
		catalog: NewCatalogService(store, log),
		now:     time.Date(2026, time.April, 10, 9, 30, 0, 0, time.UTC),
	}
	f.users = NewUserService(store, f.loans, events, log, 4)
	clockFn := func() time.Time { return f.now }
	f.loans.now, f.orders.now, f.users.now = clockFn, clockFn, clockFn
	return f
}

func (f *fixture) addBook(t *testing.T, b model.Book) model.Book {
	t.Helper()
	if b.Title == "" {
		b.Title = "Untitled"
	}
	if b.Author == "" {
		b.Author = "Anon"
	}
	require.NoError(t, f.store.Books().Create(context.Background(), &b))
	return b
}

func (f *fixture) availableBook(t *testing.T, title string) model.Book {
	return f.addBook(t, model.Book{Title: title, Author: "Author of " + title, Genre: "Fiction", IsAvailable: true})
}

func (f *fixture) addUser(t *testing.T, email string) model.User {
	t.Helper()
	u := model.User{Email: email, PasswordHash: "x", Role: model.RoleStudent}
	require.NoError(t, f.store.Users().Create(context.Background(), &u))
	return u
}

func (f *fixture) book(t *testing.T, id string) model.Book {
	t.Helper()
	b, err := f.store.Books().Get(context.Background(), id)
	require.NoError(t, err)
	return b
}

func (f *fixture) records(t *testing.T, userID string) []model.BorrowRecord {
	t.Helper()
	recs, err := f.store.Loans().ListByUser(context.Background(), userID)
	require.NoError(t, err)
	return recs
}
