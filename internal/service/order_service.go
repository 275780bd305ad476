package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bookcore/internal/logging"
	"github.com/iliyamo/bookcore/internal/model"
	"github.com/iliyamo/bookcore/internal/queue"
	"github.com/iliyamo/bookcore/internal/repository"
)

// DefaultRejectNote is stored when an admin rejects without a note.
const DefaultRejectNote = "Rejected by admin."

// OrderService runs the order approval workflow.
type OrderService struct {
	store  repository.Store
	events queue.Publisher
	log    logging.Logger
	now    func() time.Time
}

func NewOrderService(store repository.Store, events queue.Publisher, log logging.Logger) *OrderService {
	return &OrderService{store: store, events: events, log: log, now: clock}
}

// PlaceOrder is the user's request.  LoanDays applies to borrow orders
// and defaults to DefaultLoanDays.
type PlaceOrder struct {
	BookID          string
	OrderType       string
	AmountPaidCents uint32
	LoanDays        int
}

// Place validates and stores an order.  Borrow orders and purchases of
// non-exclusive books are accepted on the spot; a borrow is lent through
// the same steps as LoanService.Borrow within the same transaction.
// Purchases of exclusive books stay pending until an admin decides.
func (s *OrderService) Place(ctx context.Context, userID string, req PlaceOrder) (model.Order, error) {
	req.OrderType = strings.ToLower(strings.TrimSpace(req.OrderType))
	if req.OrderType != model.OrderBorrow && req.OrderType != model.OrderPurchase {
		return model.Order{}, ErrInvalidOrderType
	}
	if req.OrderType == model.OrderBorrow {
		if req.LoanDays == 0 {
			req.LoanDays = DefaultLoanDays
		}
		if req.LoanDays < MinLoanDays || req.LoanDays > MaxLoanDays {
			return model.Order{}, ErrInvalidLoanDays
		}
	} else {
		req.LoanDays = 0
	}

	now := s.now()
	order := model.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		BookID:          req.BookID,
		OrderType:       req.OrderType,
		Status:          model.OrderPending,
		OrderDate:       now,
		AmountPaidCents: req.AmountPaidCents,
		LoanDays:        req.LoanDays,
	}
	var (
		loan *model.BorrowRecord
		book model.Book
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		book, err = tx.LockBook(ctx, req.BookID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrBookNotFound
		}
		if err != nil {
			return fmt.Errorf("lock book: %w", err)
		}
		if _, err := tx.LockUser(ctx, userID); errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		} else if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		if _, err := tx.ActiveLoan(ctx, userID, req.BookID); err == nil {
			return ErrAlreadyBorrowed
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("find active loan: %w", err)
		}
		owned, err := tx.HasPurchase(ctx, userID, req.BookID)
		if err != nil {
			return fmt.Errorf("check purchase: %w", err)
		}
		if owned {
			return ErrAlreadyBorrowed
		}

		switch order.OrderType {
		case model.OrderBorrow:
			if book.IsExclusive {
				return ErrExclusiveBook
			}
			order.AmountPaidCents = 0
			order.Status = model.OrderAccepted
			order.DecisionDate = &now
		case model.OrderPurchase:
			if book.IsExclusive {
				if order.AmountPaidCents < book.PriceCents {
					return ErrPaymentRequired
				}
			} else {
				order.AmountPaidCents = 0
				order.Status = model.OrderAccepted
				order.DecisionDate = &now
			}
		}

		if err := tx.InsertOrder(ctx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if order.Status != model.OrderAccepted {
			return nil
		}
		loan, _, err = applyAcceptance(ctx, tx, order, now)
		return err
	})
	if err != nil {
		return model.Order{}, err
	}
	s.log.Info(ctx, "order placed", "order_id", order.ID, "type", order.OrderType, "status", order.Status)
	publish(ctx, s.events, s.log, orderEvent(queue.OrderPlaced, order, now))
	if loan != nil {
		publish(ctx, s.events, s.log, loanEvent(queue.LoanBorrowed, *loan, book, now))
	}
	return order, nil
}

// applyAcceptance performs the side effect of an accepted order: a
// borrow lends the book, a purchase is recorded.  It returns the new
// borrow record and the lent book for borrow orders.
func applyAcceptance(ctx context.Context, tx repository.Tx, o model.Order, now time.Time) (*model.BorrowRecord, model.Book, error) {
	switch o.OrderType {
	case model.OrderBorrow:
		days := o.LoanDays
		if days == 0 {
			days = DefaultLoanDays
		}
		rec, book, err := borrowTx(ctx, tx, o.UserID, o.BookID, days, now)
		if err != nil {
			return nil, book, err
		}
		return &rec, book, nil
	case model.OrderPurchase:
		err := tx.InsertPurchase(ctx, model.Purchase{
			ID:              uuid.NewString(),
			UserID:          o.UserID,
			BookID:          o.BookID,
			OrderID:         o.ID,
			AmountPaidCents: o.AmountPaidCents,
			PurchasedAt:     now,
		})
		if errors.Is(err, repository.ErrConflict) {
			return nil, model.Book{}, ErrAlreadyBorrowed
		}
		if err != nil {
			return nil, model.Book{}, fmt.Errorf("insert purchase: %w", err)
		}
		return nil, model.Book{}, nil
	}
	return nil, model.Book{}, ErrInvalidOrderType
}

// Accept approves a pending order and applies its side effect in the same
// transaction.  A borrow acceptance runs the full borrow checks, so an
// already lent book fails with ErrBookUnavailable and the order stays
// pending.
func (s *OrderService) Accept(ctx context.Context, orderID, adminID string) (model.Order, error) {
	now := s.now()
	var (
		order model.Order
		loan  *model.BorrowRecord
		book  model.Book
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		order, err = lockPending(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if loan, book, err = applyAcceptance(ctx, tx, order, now); err != nil {
			return err
		}
		order.Status = model.OrderAccepted
		order.AcceptedBy = &adminID
		order.DecisionDate = &now
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	s.log.Info(ctx, "order accepted", "order_id", orderID, "admin_id", adminID)
	publish(ctx, s.events, s.log, orderEvent(queue.OrderAccepted, order, now))
	if loan != nil {
		publish(ctx, s.events, s.log, loanEvent(queue.LoanBorrowed, *loan, book, now))
	}
	return order, nil
}

// Reject declines a pending order.  An empty note becomes
// DefaultRejectNote.
func (s *OrderService) Reject(ctx context.Context, orderID, adminID, note string) (model.Order, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		note = DefaultRejectNote
	}
	now := s.now()
	var order model.Order
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		order, err = lockPending(ctx, tx, orderID)
		if err != nil {
			return err
		}
		order.Status = model.OrderRejected
		order.AcceptedBy = &adminID
		order.DecisionDate = &now
		order.Notes = &note
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	s.log.Info(ctx, "order rejected", "order_id", orderID, "admin_id", adminID)
	publish(ctx, s.events, s.log, orderEvent(queue.OrderRejected, order, now))
	return order, nil
}

func lockPending(ctx context.Context, tx repository.Tx, orderID string) (model.Order, error) {
	o, err := tx.LockOrder(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("lock order: %w", err)
	}
	if o.Status != model.OrderPending {
		return model.Order{}, ErrOrderNotPending
	}
	return o, nil
}

// List returns every order newest first.
func (s *OrderService) List(ctx context.Context) ([]model.OrderDetail, error) {
	out, err := s.store.Orders().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}
