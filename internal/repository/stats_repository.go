package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/bookcore/internal/model"
)

// StatsRepo maintains user_monthly_stats, keyed by (user_id, month).
type StatsRepo struct{ db DBTX }

func NewStatsRepo(db DBTX) *StatsRepo { return &StatsRepo{db: db} }

// InitMonths inserts a zero row for every month.  INSERT IGNORE keeps rows
// that already exist, so repeated calls are harmless.
func (r *StatsRepo) InitMonths(ctx context.Context, userID string) error {
	months := model.Months()
	q := "INSERT IGNORE INTO user_monthly_stats (user_id, month, books_read) VALUES " +
		strings.TrimSuffix(strings.Repeat("(?, ?, 0),", len(months)), ",")
	args := make([]any, 0, len(months)*2)
	for _, m := range months {
		args = append(args, userID, m)
	}
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

// IncrementBooksRead adds one to the counter of the given month, creating
// the row when needed.
func (r *StatsRepo) IncrementBooksRead(ctx context.Context, userID, month string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_monthly_stats (user_id, month, books_read) VALUES (?, ?, 1)
		 ON DUPLICATE KEY UPDATE books_read = books_read + 1`, userID, month)
	return err
}

// ListByUser returns the stored rows of a user in calendar order.
func (r *StatsRepo) ListByUser(ctx context.Context, userID string) ([]model.MonthlyStat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, month, books_read FROM user_monthly_stats WHERE user_id = ?
		 ORDER BY FIELD(month, 'January','February','March','April','May','June',
		 'July','August','September','October','November','December')`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.MonthlyStat{}
	for rows.Next() {
		var s model.MonthlyStat
		if err := rows.Scan(&s.UserID, &s.Month, &s.BooksRead); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
