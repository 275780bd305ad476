package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bookcore/internal/logging"
	"github.com/iliyamo/bookcore/internal/model"
	"github.com/iliyamo/bookcore/internal/queue"
	"github.com/iliyamo/bookcore/internal/repository"
	"github.com/iliyamo/bookcore/internal/repository/memstore"
)

func seedLoan(t *testing.T, store *memstore.Store, id string, due time.Time, returned bool) model.Book {
	t.Helper()
	ctx := context.Background()
	u := model.User{Email: id + "@example.com", Role: model.RoleStudent}
	require.NoError(t, store.Users().Create(ctx, &u))
	b := model.Book{Title: "Book " + id, Author: "A", IsAvailable: false}
	require.NoError(t, store.Books().Create(ctx, &b))
	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.InsertLoan(ctx, model.BorrowRecord{
			ID: id, UserID: u.ID, BookID: b.ID, BorrowDate: due.AddDate(0, 0, -7), DueDate: due,
		}); err != nil {
			return err
		}
		if returned {
			return tx.MarkReturned(ctx, id, due)
		}
		return nil
	}))
	return b
}

func TestScan(t *testing.T) {
	store := memstore.New()
	now := time.Date(2026, time.May, 10, 0, 0, 0, 0, time.UTC)
	late := seedLoan(t, store, "late", now.Add(-time.Hour), false)
	seedLoan(t, store, "fine", now.Add(time.Hour), false)
	seedLoan(t, store, "done", now.Add(-48*time.Hour), true)

	rec := queue.NewRecorder()
	s := NewOverdueScanner(store.Loans(), store.Books(), rec, logging.Discard())
	s.now = func() time.Time { return now }

	n, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	evs := rec.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, queue.LoanOverdue, evs[0].Type)
	assert.Equal(t, "late", evs[0].LoanID)
	assert.Equal(t, late.Title, evs[0].BookTitle)

	b, err := store.Books().Get(context.Background(), late.ID)
	require.NoError(t, err)
	assert.False(t, b.IsAvailable, "scan does not change availability")
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, queue.Event) error { return errors.New("down") }

func TestScan_PublishFailureIsNotFatal(t *testing.T) {
	store := memstore.New()
	now := time.Now().UTC()
	seedLoan(t, store, "late", now.Add(-time.Hour), false)

	s := NewOverdueScanner(store.Loans(), store.Books(), failingPublisher{}, logging.Discard())
	n, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStart(t *testing.T) {
	store := memstore.New()
	s := NewOverdueScanner(store.Loans(), store.Books(), queue.NopPublisher{}, logging.Discard())

	c, err := s.Start(context.Background(), "off")
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = s.Start(context.Background(), "every tuesday")
	assert.Error(t, err)

	c, err = s.Start(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Len(t, c.Entries(), 1)
	<-c.Stop().Done()
}
