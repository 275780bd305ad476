package memstore

import (
	"context"
	"time"

	"github.com/iliyamo/bookcore/internal/model"
	"github.com/iliyamo/bookcore/internal/repository"
)

// memTx operates on the private copy owned by one WithTx call.  The store
// mutex is held for its whole lifetime, which plays the role of the row
// locks taken by the SQL implementation.
type memTx struct{ st *state }

func (t *memTx) LockBook(_ context.Context, bookID string) (model.Book, error) {
	b, ok := t.st.books[bookID]
	if !ok {
		return model.Book{}, repository.ErrNotFound
	}
	return b, nil
}

func (t *memTx) LockUser(_ context.Context, userID string) (model.User, error) {
	u, ok := t.st.users[userID]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (t *memTx) LockOrder(_ context.Context, orderID string) (model.Order, error) {
	o, ok := t.st.orders[orderID]
	if !ok {
		return model.Order{}, repository.ErrNotFound
	}
	return o, nil
}

func (t *memTx) ActiveLoan(_ context.Context, userID, bookID string) (model.BorrowRecord, error) {
	rec, ok := t.st.activeLoanWhere(func(r model.BorrowRecord) bool {
		return r.UserID == userID && r.BookID == bookID
	})
	if !ok {
		return model.BorrowRecord{}, repository.ErrNotFound
	}
	return rec, nil
}

func (t *memTx) ActiveLoanForBook(_ context.Context, bookID string) (model.BorrowRecord, error) {
	rec, ok := t.st.activeLoanWhere(func(r model.BorrowRecord) bool { return r.BookID == bookID })
	if !ok {
		return model.BorrowRecord{}, repository.ErrNotFound
	}
	return rec, nil
}

func (t *memTx) ActiveLoansForUser(_ context.Context, userID string) ([]model.BorrowRecord, error) {
	out := []model.BorrowRecord{}
	for _, id := range t.st.loanSeq {
		if rec := t.st.loans[id]; rec.Active() && rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (t *memTx) HasPurchase(_ context.Context, userID, bookID string) (bool, error) {
	for _, p := range t.st.purchases {
		if p.UserID == userID && p.BookID == bookID {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) SetBookAvailability(_ context.Context, bookID string, available bool) error {
	b, ok := t.st.books[bookID]
	if !ok {
		return repository.ErrNotFound
	}
	b.IsAvailable = available
	b.UpdatedAt = time.Now().UTC()
	t.st.books[bookID] = b
	return nil
}

// InsertLoan mirrors the unique index on the active book reference.
func (t *memTx) InsertLoan(_ context.Context, rec model.BorrowRecord) error {
	if _, ok := t.st.loans[rec.ID]; ok {
		return repository.ErrConflict
	}
	if _, busy := t.st.activeLoanWhere(func(r model.BorrowRecord) bool { return r.BookID == rec.BookID }); busy {
		return repository.ErrConflict
	}
	rec.ReturnDate = nil
	t.st.loans[rec.ID] = rec
	t.st.loanSeq = append(t.st.loanSeq, rec.ID)
	return nil
}

func (t *memTx) MarkReturned(_ context.Context, loanID string, at time.Time) error {
	rec, ok := t.st.loans[loanID]
	if !ok || !rec.Active() {
		return repository.ErrNotFound
	}
	ret := at.UTC()
	rec.ReturnDate = &ret
	t.st.loans[loanID] = rec
	return nil
}

func (t *memTx) UpdateProgress(_ context.Context, loanID string, progress, lastPage int) error {
	rec, ok := t.st.loans[loanID]
	if !ok {
		return repository.ErrNotFound
	}
	rec.ReadingProgress = progress
	rec.LastReadPage = lastPage
	t.st.loans[loanID] = rec
	return nil
}

func (t *memTx) InsertOrder(_ context.Context, o model.Order) error {
	if _, ok := t.st.orders[o.ID]; ok {
		return repository.ErrConflict
	}
	t.st.orders[o.ID] = o
	return nil
}

func (t *memTx) UpdateOrder(_ context.Context, o model.Order) error {
	cur, ok := t.st.orders[o.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Status = o.Status
	cur.AcceptedBy = o.AcceptedBy
	cur.DecisionDate = o.DecisionDate
	cur.Notes = o.Notes
	t.st.orders[o.ID] = cur
	return nil
}

func (t *memTx) InsertPurchase(ctx context.Context, p model.Purchase) error {
	if owned, _ := t.HasPurchase(ctx, p.UserID, p.BookID); owned {
		return repository.ErrConflict
	}
	t.st.purchases[p.ID] = p
	return nil
}

func (t *memTx) DeleteBook(_ context.Context, bookID string) error {
	if _, ok := t.st.books[bookID]; !ok {
		return repository.ErrNotFound
	}
	delete(t.st.books, bookID)
	t.st.bookSeq = removeID(t.st.bookSeq, bookID)
	return nil
}

// DeleteUser removes the user and the rows the SQL schema cascades.
func (t *memTx) DeleteUser(_ context.Context, userID string) error {
	if _, ok := t.st.users[userID]; !ok {
		return repository.ErrNotFound
	}
	delete(t.st.users, userID)
	t.st.userSeq = removeID(t.st.userSeq, userID)
	for _, id := range t.st.loanSeq {
		if t.st.loans[id].UserID == userID {
			delete(t.st.loans, id)
			t.st.loanSeq = removeID(t.st.loanSeq, id)
		}
	}
	for id, o := range t.st.orders {
		if o.UserID == userID {
			delete(t.st.orders, id)
		}
	}
	for id, p := range t.st.purchases {
		if p.UserID == userID {
			delete(t.st.purchases, id)
		}
	}
	for h, tok := range t.st.tokens {
		if tok.userID == userID {
			delete(t.st.tokens, h)
		}
	}
	delete(t.st.stats, userID)
	return nil
}

var _ repository.Tx = (*memTx)(nil)
