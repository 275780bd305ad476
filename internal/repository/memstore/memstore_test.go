package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bookcore/internal/model"
	"github.com/iliyamo/bookcore/internal/repository"
)

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	b := model.Book{Title: "Dune", Author: "Frank Herbert", IsAvailable: true}
	require.NoError(t, s.Books().Create(ctx, &b))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		require.NoError(t, tx.SetBookAvailability(ctx, b.ID, false))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Books().Get(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAvailable)
}

func TestInsertLoan_OneActivePerBook(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	err := s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.InsertLoan(ctx, model.BorrowRecord{ID: "l1", UserID: "u1", BookID: "b1", BorrowDate: now, DueDate: now}); err != nil {
			return err
		}
		return tx.InsertLoan(ctx, model.BorrowRecord{ID: "l2", UserID: "u2", BookID: "b1", BorrowDate: now, DueDate: now})
	})
	assert.ErrorIs(t, err, repository.ErrConflict)

	err = s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.InsertLoan(ctx, model.BorrowRecord{ID: "l1", UserID: "u1", BookID: "b1", BorrowDate: now, DueDate: now}); err != nil {
			return err
		}
		if err := tx.MarkReturned(ctx, "l1", now); err != nil {
			return err
		}
		return tx.InsertLoan(ctx, model.BorrowRecord{ID: "l2", UserID: "u2", BookID: "b1", BorrowDate: now, DueDate: now})
	})
	require.NoError(t, err)
	recs, err := s.Loans().ListByUser(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Active())
}

func TestUsers_EmailUnique(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Users().Create(ctx, &model.User{Email: "Ada@Example.com"}))
	err := s.Users().Create(ctx, &model.User{Email: " ada@example.com "})
	assert.ErrorIs(t, err, repository.ErrEmailExists)

	u, err := s.Users().GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, u.Role)
}

func TestTokens(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Tokens().StoreRefresh(ctx, "u1", "h1", time.Now().Add(time.Hour)))
	require.NoError(t, s.Tokens().StoreRefresh(ctx, "u1", "h2", time.Now().Add(-time.Hour)))

	uid, err := s.Tokens().ValidateRefresh(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)
	_, err = s.Tokens().ValidateRefresh(ctx, "h2")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, s.Tokens().RevokeAllForUser(ctx, "u1"))
	_, err = s.Tokens().ValidateRefresh(ctx, "h1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
