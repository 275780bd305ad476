package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/bookcore/internal/logging"
	"github.com/iliyamo/bookcore/internal/model"
	"github.com/iliyamo/bookcore/internal/queue"
	"github.com/iliyamo/bookcore/internal/repository"
	"github.com/iliyamo/bookcore/internal/utils"
)

// UserService manages accounts, profiles and reading statistics.
type UserService struct {
	store      repository.Store
	loans      *LoanService
	events     queue.Publisher
	log        logging.Logger
	bcryptCost int
	now        func() time.Time
}

func NewUserService(store repository.Store, loans *LoanService, events queue.Publisher, log logging.Logger, bcryptCost int) *UserService {
	return &UserService{store: store, loans: loans, events: events, log: log, bcryptCost: bcryptCost, now: clock}
}

// Registration is the data needed to open an account.
type Registration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Address   string
	Mobile    string
}

// Register creates a student account and announces it so that monthly
// statistics get initialised.  A taken email yields
// repository.ErrEmailExists.
func (s *UserService) Register(ctx context.Context, r Registration) (model.User, error) {
	email := strings.ToLower(strings.TrimSpace(r.Email))
	if email == "" || r.Password == "" {
		return model.User{}, fmt.Errorf("%w: email/password required", ErrInvalidInput)
	}
	hash, err := utils.HashPassword(r.Password, s.bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(r.FirstName),
		LastName:     strings.TrimSpace(r.LastName),
		Address:      strings.TrimSpace(r.Address),
		Mobile:       strings.TrimSpace(r.Mobile),
		Role:         model.RoleStudent,
	}
	if err := s.store.Users().Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	publish(ctx, s.events, s.log, queue.Event{
		Type: queue.UserRegistered, UserID: u.ID, Email: u.Email, OccurredAt: s.now(),
	})
	return u, nil
}

// Authenticate returns the user owning email when password matches.
// Unknown emails and wrong passwords both yield ErrForbidden.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	u, err := s.store.Users().GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrForbidden
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, ErrForbidden
	}
	return u, nil
}

// Get returns a user or ErrUserNotFound.
func (s *UserService) Get(ctx context.Context, id string) (model.User, error) {
	u, err := s.store.Users().GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// Profile returns the user with borrowed books populated.
func (s *UserService) Profile(ctx context.Context, id string) (model.Profile, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return model.Profile{}, err
	}
	borrowed, err := s.loans.Borrowed(ctx, id)
	if err != nil {
		return model.Profile{}, err
	}
	return model.Profile{User: u, BorrowedBooks: borrowed}, nil
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	out, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

// Delete removes userID on behalf of actorID.  Admins cannot delete
// themselves (ErrForbidden) and users holding books cannot be deleted
// (ErrConflict).
func (s *UserService) Delete(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return ErrForbidden
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.LockUser(ctx, userID); errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		} else if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		active, err := tx.ActiveLoansForUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("list active loans: %w", err)
		}
		if len(active) > 0 {
			return ErrConflict
		}
		if err := tx.DeleteUser(ctx, userID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err == nil {
		s.log.Info(ctx, "user deleted", "user_id", userID, "by", actorID)
	}
	return err
}

// MonthlyStats returns twelve rows in calendar order.  Months without a
// stored row read as zero.
func (s *UserService) MonthlyStats(ctx context.Context, userID string) ([]model.MonthlyStat, error) {
	rows, err := s.store.Stats().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list stats: %w", err)
	}
	byMonth := make(map[string]int, len(rows))
	for _, r := range rows {
		byMonth[r.Month] = r.BooksRead
	}
	out := make([]model.MonthlyStat, 0, 12)
	for _, m := range model.Months() {
		out = append(out, model.MonthlyStat{UserID: userID, Month: m, BooksRead: byMonth[m]})
	}
	return out, nil
}

// Dashboard aggregates the admin counters.
func (s *UserService) Dashboard(ctx context.Context) (model.DashboardStats, error) {
	var (
		st  model.DashboardStats
		err error
	)
	if st.Books, st.AvailableBooks, err = s.store.Books().Count(ctx); err != nil {
		return st, fmt.Errorf("count books: %w", err)
	}
	if st.Users, err = s.store.Users().Count(ctx); err != nil {
		return st, fmt.Errorf("count users: %w", err)
	}
	if st.ActiveLoans, err = s.store.Loans().CountActive(ctx); err != nil {
		return st, fmt.Errorf("count loans: %w", err)
	}
	if st.OverdueLoans, err = s.store.Loans().CountOverdue(ctx, s.now()); err != nil {
		return st, fmt.Errorf("count overdue loans: %w", err)
	}
	if st.Orders, err = s.store.Orders().CountByStatus(ctx); err != nil {
		return st, fmt.Errorf("count orders: %w", err)
	}
	return st, nil
}
