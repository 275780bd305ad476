package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bookcore/internal/model"
	"github.com/iliyamo/bookcore/internal/queue"
	"github.com/iliyamo/bookcore/internal/repository"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.Register(ctx, Registration{Email: " Reader@Example.com ", Password: "s3cret", FirstName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", u.Email)
	assert.Equal(t, model.RoleStudent, u.Role)
	assert.NotEqual(t, "s3cret", u.PasswordHash)

	_, err = f.users.Register(ctx, Registration{Email: "reader@example.com", Password: "x"})
	assert.ErrorIs(t, err, repository.ErrEmailExists)
	_, err = f.users.Register(ctx, Registration{Email: "", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err := f.users.Authenticate(ctx, "reader@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	_, err = f.users.Authenticate(ctx, "reader@example.com", "wrong")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.users.Authenticate(ctx, "nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrForbidden)

	evs := f.events.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, queue.UserRegistered, evs[0].Type)
	assert.Equal(t, u.ID, evs[0].UserID)
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "admin@example.com")
	u := f.addUser(t, "u@example.com")
	b := f.availableBook(t, "b")

	assert.ErrorIs(t, f.users.Delete(ctx, admin.ID, admin.ID), ErrForbidden)

	_, err := f.loans.Borrow(ctx, u.ID, b.ID, 7)
	require.NoError(t, err)
	assert.ErrorIs(t, f.users.Delete(ctx, admin.ID, u.ID), ErrConflict)

	require.NoError(t, f.loans.Return(ctx, u.ID, b.ID))
	require.NoError(t, f.users.Delete(ctx, admin.ID, u.ID))
	_, err = f.users.Get(ctx, u.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, f.records(t, u.ID))
	assert.ErrorIs(t, f.users.Delete(ctx, admin.ID, u.ID), ErrUserNotFound)
}

func TestMonthlyStatsAndProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addUser(t, "u@example.com")
	b := f.availableBook(t, "b")
	require.NoError(t, f.store.Stats().IncrementBooksRead(ctx, u.ID, "April"))

	stats, err := f.users.MonthlyStats(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, stats, 12)
	assert.Equal(t, "January", stats[0].Month)
	assert.Equal(t, "December", stats[11].Month)
	assert.Equal(t, 1, stats[3].BooksRead)
	assert.Zero(t, stats[4].BooksRead)

	_, err = f.loans.Borrow(ctx, u.ID, b.ID, 7)
	require.NoError(t, err)
	p, err := f.users.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, p.Email)
	require.Len(t, p.BorrowedBooks, 1)
	assert.Equal(t, b.ID, p.BorrowedBooks[0].Book.ID)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addUser(t, "u@example.com")
	b1 := f.availableBook(t, "one")
	f.availableBook(t, "two")

	_, err := f.loans.Borrow(ctx, u.ID, b1.ID, 1)
	require.NoError(t, err)
	f.now = f.now.AddDate(0, 0, 2)

	st, err := f.users.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Books)
	assert.Equal(t, 1, st.AvailableBooks)
	assert.Equal(t, 1, st.Users)
	assert.Equal(t, 1, st.ActiveLoans)
	assert.Equal(t, 1, st.OverdueLoans)
}
