// Package scheduler runs the periodic overdue scan.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/iliyamo/bookcore/internal/logging"
	"github.com/iliyamo/bookcore/internal/queue"
	"github.com/iliyamo/bookcore/internal/repository"
)

// DefaultSpec runs the scan every day at midnight UTC.
const DefaultSpec = "0 0 * * *"

// OverdueScanner reports borrow records past their due date.  It only
// publishes events; loans and availability are never touched.
type OverdueScanner struct {
	loans  repository.LoanStore
	books  repository.BookStore
	events queue.Publisher
	log    logging.Logger
	now    func() time.Time
}

func NewOverdueScanner(loans repository.LoanStore, books repository.BookStore, events queue.Publisher, log logging.Logger) *OverdueScanner {
	return &OverdueScanner{
		loans:  loans,
		books:  books,
		events: events,
		log:    log.With("component", "overdue-scan"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Scan publishes one loan.overdue event per overdue record and returns how
// many were published.  A failed publish is logged and the scan goes on.
func (s *OverdueScanner) Scan(ctx context.Context) (int, error) {
	now := s.now()
	recs, err := s.loans.ListOverdue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list overdue: %w", err)
	}
	sent := 0
	for _, rec := range recs {
		title := ""
		if b, err := s.books.Get(ctx, rec.BookID); err == nil {
			title = b.Title
		} else if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn(ctx, "overdue book lookup failed", "book_id", rec.BookID, "err", err)
		}
		due := rec.DueDate
		ev := queue.Event{
			Type:       queue.LoanOverdue,
			UserID:     rec.UserID,
			BookID:     rec.BookID,
			BookTitle:  title,
			LoanID:     rec.ID,
			DueDate:    &due,
			OccurredAt: now,
		}
		if err := s.events.Publish(ctx, ev); err != nil {
			s.log.Warn(ctx, "overdue publish failed", "loan_id", rec.ID, "err", err)
			continue
		}
		sent++
	}
	s.log.Info(ctx, "overdue scan finished", "overdue", len(recs), "published", sent)
	return sent, nil
}

// Start schedules Scan on spec (standard five-field cron, UTC) and starts
// the cron runner.  Callers stop it with the returned *cron.Cron.  A spec
// of "off" disables scheduling and returns nil.
func (s *OverdueScanner) Start(ctx context.Context, spec string) (*cron.Cron, error) {
	spec = strings.TrimSpace(spec)
	if strings.EqualFold(spec, "off") {
		return nil, nil
	}
	if spec == "" {
		spec = DefaultSpec
	}
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.Scan(ctx); err != nil {
			s.log.Error(ctx, "overdue scan failed", "err", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule overdue scan %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
