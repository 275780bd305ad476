package service

import (
	"context"
	"time"

	"github.com/iliyamo/bookcore/internal/logging"
	"github.com/iliyamo/bookcore/internal/model"
	"github.com/iliyamo/bookcore/internal/queue"
)

const publishTimeout = 3 * time.Second

// publish sends ev after a commit.  The request context may already be
// done by then, so the publish gets its own deadline.  Failures are logged
// and swallowed.
func publish(ctx context.Context, p queue.Publisher, log logging.Logger, ev queue.Event) {
	if p == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.Publish(pctx, ev); err != nil {
		log.Warn(ctx, "event publish failed", "type", ev.Type, "err", err)
	}
}

func loanEvent(typ string, rec model.BorrowRecord, book model.Book, at time.Time) queue.Event {
	due := rec.DueDate
	return queue.Event{
		Type:       typ,
		UserID:     rec.UserID,
		BookID:     rec.BookID,
		BookTitle:  book.Title,
		LoanID:     rec.ID,
		DueDate:    &due,
		ReturnDate: rec.ReturnDate,
		OccurredAt: at,
	}
}

func orderEvent(typ string, o model.Order, at time.Time) queue.Event {
	return queue.Event{
		Type:       typ,
		UserID:     o.UserID,
		BookID:     o.BookID,
		OrderID:    o.ID,
		OrderType:  o.OrderType,
		Status:     o.Status,
		OccurredAt: at,
	}
}
