// Package memstore is an in-memory implementation of repository.Store.
//
// Transactions are serialised by a single mutex and applied copy-on-commit:
// WithTx clones the state, runs the callback against the clone and swaps it
// in only when the callback succeeds.  A failed or panicking callback
// leaves the store exactly as it was.  The callback must not call the
// non-transactional accessors of the same Store.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bookcore/internal/model"
	"github.com/iliyamo/bookcore/internal/repository"
)

type token struct {
	userID  string
	exp     time.Time
	revoked bool
}

type state struct {
	books     map[string]model.Book
	bookSeq   []string
	users     map[string]model.User
	userSeq   []string
	loans     map[string]model.BorrowRecord
	loanSeq   []string
	orders    map[string]model.Order
	purchases map[string]model.Purchase
	tokens    map[string]token
	stats     map[string]map[string]int
}

func newState() *state {
	return &state{
		books:     map[string]model.Book{},
		users:     map[string]model.User{},
		loans:     map[string]model.BorrowRecord{},
		orders:    map[string]model.Order{},
		purchases: map[string]model.Purchase{},
		tokens:    map[string]token{},
		stats:     map[string]map[string]int{},
	}
}

// clone copies every map and slice.  Values are stored by value and are
// replaced, never mutated in place, so a shallow copy of each is enough.
func (s *state) clone() *state {
	c := &state{
		books:     make(map[string]model.Book, len(s.books)),
		bookSeq:   append([]string(nil), s.bookSeq...),
		users:     make(map[string]model.User, len(s.users)),
		userSeq:   append([]string(nil), s.userSeq...),
		loans:     make(map[string]model.BorrowRecord, len(s.loans)),
		loanSeq:   append([]string(nil), s.loanSeq...),
		orders:    make(map[string]model.Order, len(s.orders)),
		purchases: make(map[string]model.Purchase, len(s.purchases)),
		tokens:    make(map[string]token, len(s.tokens)),
		stats:     make(map[string]map[string]int, len(s.stats)),
	}
	for k, v := range s.books {
		c.books[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.loans {
		c.loans[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.purchases {
		c.purchases[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	for u, months := range s.stats {
		m := make(map[string]int, len(months))
		for k, v := range months {
			m[k] = v
		}
		c.stats[u] = m
	}
	return c
}

// Store is safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	st *state
}

// New returns an empty store.
func New() *Store { return &Store{st: newState()} }

// WithTx runs fn against a private copy of the state and commits it when fn
// returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	if err := fn(ctx, &memTx{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Books() repository.BookStore   { return books{s} }
func (s *Store) Users() repository.UserStore   { return users{s} }
func (s *Store) Loans() repository.LoanStore   { return loans{s} }
func (s *Store) Orders() repository.OrderStore { return orders{s} }
func (s *Store) Tokens() repository.TokenStore { return tokens{s} }
func (s *Store) Stats() repository.StatsStore  { return stats{s} }

func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.st)
}

func (s *Store) write(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// ----- state helpers shared by the views and the transaction -----

func (s *state) orderedBooks() []model.Book {
	out := make([]model.Book, 0, len(s.bookSeq))
	for _, id := range s.bookSeq {
		out = append(out, s.books[id])
	}
	return out
}

func (s *state) insertBook(b *model.Book) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if _, ok := s.books[b.ID]; ok {
		return repository.ErrConflict
	}
	b.SyncSearchKeys()
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	s.books[b.ID] = *b
	s.bookSeq = append(s.bookSeq, b.ID)
	return nil
}

func (s *state) activeLoanWhere(match func(model.BorrowRecord) bool) (model.BorrowRecord, bool) {
	for _, id := range s.loanSeq {
		rec := s.loans[id]
		if rec.Active() && match(rec) {
			return rec, true
		}
	}
	return model.BorrowRecord{}, false
}

func removeID(seq []string, id string) []string {
	out := seq[:0:0]
	for _, v := range seq {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// ----- books -----

type books struct{ s *Store }

func (v books) Get(_ context.Context, id string) (b model.Book, err error) {
	v.s.read(func(st *state) {
		var ok bool
		if b, ok = st.books[id]; !ok {
			err = repository.ErrNotFound
		}
	})
	return b, err
}

func (v books) List(_ context.Context, f model.BookFilter) ([]model.Book, error) {
	out := []model.Book{}
	genre := strings.ToLower(strings.TrimSpace(f.Genre))
	v.s.read(func(st *state) {
		for _, b := range st.orderedBooks() {
			if f.AvailableOnly && !b.IsAvailable {
				continue
			}
			if genre != "" && b.GenreLower != genre {
				continue
			}
			if f.ExcludeID != "" && b.ID == f.ExcludeID {
				continue
			}
			out = append(out, b)
			if f.Limit > 0 && len(out) == f.Limit {
				return
			}
		}
	})
	return out, nil
}

func (v books) SearchPrefix(_ context.Context, field model.SearchField, prefix string, limit int) ([]model.Book, error) {
	out := []model.Book{}
	v.s.read(func(st *state) {
		for _, b := range st.orderedBooks() {
			if strings.HasPrefix(field.Value(b), prefix) {
				out = append(out, b)
			}
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return field.Value(out[i]) < field.Value(out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (v books) SearchContains(_ context.Context, term string) ([]model.Book, error) {
	out := []model.Book{}
	v.s.read(func(st *state) {
		for _, b := range st.orderedBooks() {
			if strings.Contains(b.TitleLower, term) || strings.Contains(b.AuthorLower, term) ||
				strings.Contains(b.GenreLower, term) {
				out = append(out, b)
			}
		}
	})
	return out, nil
}

func (v books) Create(_ context.Context, b *model.Book) error {
	return v.s.write(func(st *state) error { return st.insertBook(b) })
}

func (v books) Update(_ context.Context, b model.Book) error {
	return v.s.write(func(st *state) error {
		cur, ok := st.books[b.ID]
		if !ok {
			return repository.ErrNotFound
		}
		b.IsAvailable = cur.IsAvailable
		b.CreatedAt = cur.CreatedAt
		b.UpdatedAt = time.Now().UTC()
		b.SyncSearchKeys()
		st.books[b.ID] = b
		return nil
	})
}

func (v books) Count(_ context.Context) (total, available int, err error) {
	v.s.read(func(st *state) {
		total = len(st.books)
		for _, b := range st.books {
			if b.IsAvailable {
				available++
			}
		}
	})
	return total, available, nil
}

// ----- users -----

type users struct{ s *Store }

func (v users) Create(_ context.Context, u *model.User) error {
	return v.s.write(func(st *state) error {
		u.Email = strings.ToLower(strings.TrimSpace(u.Email))
		for _, other := range st.users {
			if other.Email == u.Email {
				return repository.ErrEmailExists
			}
		}
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		if u.Role == "" {
			u.Role = model.RoleStudent
		}
		now := time.Now().UTC()
		u.CreatedAt, u.UpdatedAt = now, now
		st.users[u.ID] = *u
		st.userSeq = append(st.userSeq, u.ID)
		return nil
	})
}

func (v users) GetByID(_ context.Context, id string) (u model.User, err error) {
	v.s.read(func(st *state) {
		var ok bool
		if u, ok = st.users[id]; !ok {
			err = repository.ErrNotFound
		}
	})
	return u, err
}

func (v users) GetByEmail(_ context.Context, email string) (u model.User, err error) {
	email = strings.ToLower(strings.TrimSpace(email))
	err = repository.ErrNotFound
	v.s.read(func(st *state) {
		for _, cand := range st.users {
			if cand.Email == email {
				u, err = cand, nil
				return
			}
		}
	})
	return u, err
}

func (v users) List(_ context.Context) ([]model.User, error) {
	out := []model.User{}
	v.s.read(func(st *state) {
		for _, id := range st.userSeq {
			out = append(out, st.users[id])
		}
	})
	return out, nil
}

func (v users) Count(_ context.Context) (n int, err error) {
	v.s.read(func(st *state) { n = len(st.users) })
	return n, nil
}

// ----- loans -----

type loans struct{ s *Store }

func (v loans) ListByUser(_ context.Context, userID string) ([]model.BorrowRecord, error) {
	out := []model.BorrowRecord{}
	v.s.read(func(st *state) {
		for _, id := range st.loanSeq {
			if rec := st.loans[id]; rec.UserID == userID {
				out = append(out, rec)
			}
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].BorrowDate.Before(out[j].BorrowDate) })
	return out, nil
}

func (v loans) ListOverdue(_ context.Context, now time.Time) ([]model.BorrowRecord, error) {
	out := []model.BorrowRecord{}
	v.s.read(func(st *state) {
		for _, id := range st.loanSeq {
			if rec := st.loans[id]; rec.Overdue(now) {
				out = append(out, rec)
			}
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (v loans) CountActive(_ context.Context) (n int, err error) {
	v.s.read(func(st *state) {
		for _, rec := range st.loans {
			if rec.Active() {
				n++
			}
		}
	})
	return n, nil
}

func (v loans) CountOverdue(_ context.Context, now time.Time) (n int, err error) {
	v.s.read(func(st *state) {
		for _, rec := range st.loans {
			if rec.Overdue(now) {
				n++
			}
		}
	})
	return n, nil
}

// ----- orders -----

type orders struct{ s *Store }

func (v orders) List(_ context.Context) ([]model.OrderDetail, error) {
	out := []model.OrderDetail{}
	v.s.read(func(st *state) {
		for _, o := range st.orders {
			u, ok := st.users[o.UserID]
			if !ok {
				continue
			}
			out = append(out, model.OrderDetail{Order: o, UserEmail: u.Email, BookTitle: st.books[o.BookID].Title})
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OrderDate.Equal(out[j].OrderDate) {
			return out[i].OrderDate.After(out[j].OrderDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v orders) CountByStatus(_ context.Context) (map[string]int, error) {
	out := map[string]int{model.OrderPending: 0, model.OrderAccepted: 0, model.OrderRejected: 0}
	v.s.read(func(st *state) {
		for _, o := range st.orders {
			out[o.Status]++
		}
	})
	return out, nil
}

// ----- tokens -----

type tokens struct{ s *Store }

func (v tokens) StoreRefresh(_ context.Context, userID, tokenHash string, exp time.Time) error {
	return v.s.write(func(st *state) error {
		if _, ok := st.tokens[tokenHash]; ok {
			return repository.ErrConflict
		}
		st.tokens[tokenHash] = token{userID: userID, exp: exp}
		return nil
	})
}

func (v tokens) ValidateRefresh(_ context.Context, tokenHash string) (userID string, err error) {
	err = repository.ErrNotFound
	v.s.read(func(st *state) {
		t, ok := st.tokens[tokenHash]
		if ok && !t.revoked && time.Now().UTC().Before(t.exp) {
			userID, err = t.userID, nil
		}
	})
	return userID, err
}

func (v tokens) RevokeByHash(_ context.Context, tokenHash string) error {
	return v.s.write(func(st *state) error {
		if t, ok := st.tokens[tokenHash]; ok {
			t.revoked = true
			st.tokens[tokenHash] = t
		}
		return nil
	})
}

func (v tokens) RevokeAllForUser(_ context.Context, userID string) error {
	return v.s.write(func(st *state) error {
		for h, t := range st.tokens {
			if t.userID == userID {
				t.revoked = true
				st.tokens[h] = t
			}
		}
		return nil
	})
}

// ----- stats -----

type stats struct{ s *Store }

func (v stats) InitMonths(_ context.Context, userID string) error {
	return v.s.write(func(st *state) error {
		m, ok := st.stats[userID]
		if !ok {
			m = map[string]int{}
			st.stats[userID] = m
		}
		for _, month := range model.Months() {
			if _, ok := m[month]; !ok {
				m[month] = 0
			}
		}
		return nil
	})
}

func (v stats) IncrementBooksRead(_ context.Context, userID, month string) error {
	return v.s.write(func(st *state) error {
		m, ok := st.stats[userID]
		if !ok {
			m = map[string]int{}
			st.stats[userID] = m
		}
		m[month]++
		return nil
	})
}

func (v stats) ListByUser(_ context.Context, userID string) ([]model.MonthlyStat, error) {
	out := []model.MonthlyStat{}
	v.s.read(func(st *state) {
		m := st.stats[userID]
		for _, month := range model.Months() {
			if n, ok := m[month]; ok {
				out = append(out, model.MonthlyStat{UserID: userID, Month: month, BooksRead: n})
			}
		}
	})
	return out, nil
}

var _ repository.Store = (*Store)(nil)
