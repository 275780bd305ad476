package repository

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bookcore/internal/model"
)

func TestUserRepo_Create(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(sqlmock.AnyArg(), "ada@example.com", "hash", "", "", "", "", model.RoleStudent, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	u := model.User{Email: "  Ada@Example.COM ", PasswordHash: "hash"}
	require.NoError(t, store.Users().Create(ctx, &u))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ada@example.com", u.Email)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry for key 'uq_users_email'"})
	err := store.Users().Create(ctx, &model.User{Email: "ada@example.com", PasswordHash: "hash"})
	assert.ErrorIs(t, err, ErrEmailExists)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = ? LIMIT 1")).
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = store.Users().GetByEmail(ctx, " ADA@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_ValidateRefresh(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()
	cols := []string{"user_id", "expires_at", "revoked_at"}
	q := regexp.QuoteMeta("SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=?")
	future := time.Now().UTC().Add(time.Hour)

	mock.ExpectQuery(q).WithArgs("live").WillReturnRows(sqlmock.NewRows(cols).AddRow("u1", future, nil))
	mock.ExpectQuery(q).WithArgs("revoked").WillReturnRows(sqlmock.NewRows(cols).AddRow("u1", future, time.Now().UTC()))
	mock.ExpectQuery(q).WithArgs("expired").WillReturnRows(sqlmock.NewRows(cols).AddRow("u1", time.Now().UTC().Add(-time.Minute), nil))
	mock.ExpectQuery(q).WithArgs("unknown").WillReturnRows(sqlmock.NewRows(cols))

	uid, err := store.Tokens().ValidateRefresh(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)
	for _, h := range []string{"revoked", "expired", "unknown"} {
		_, err := store.Tokens().ValidateRefresh(ctx, h)
		assert.ErrorIs(t, err, ErrNotFound, h)
	}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND revoked_at IS NULL")).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	require.NoError(t, store.Tokens().RevokeAllForUser(ctx, "u1"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepo(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()

	args := make([]driver.Value, 0, 24)
	for _, m := range model.Months() {
		args = append(args, "u1", m)
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO user_monthly_stats (user_id, month, books_read) VALUES (?, ?, 0),")).
		WithArgs(args...).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.Stats().InitMonths(ctx, "u1"), "existing rows are ignored, not an error")

	mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE books_read = books_read + 1")).
		WithArgs("u1", "April").
		WillReturnResult(sqlmock.NewResult(0, 2))
	require.NoError(t, store.Stats().IncrementBooksRead(ctx, "u1", "April"))

	mock.ExpectQuery(regexp.QuoteMeta("FROM user_monthly_stats WHERE user_id = ?")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "month", "books_read"}).
			AddRow("u1", "January", 0).
			AddRow("u1", "April", 3))
	rows, err := store.Stats().ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, model.MonthlyStat{UserID: "u1", Month: "April", BooksRead: 3}, rows[1])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	cols := []string{"id", "user_id", "book_id", "order_type", "status", "order_date",
		"amount_paid_cents", "loan_days", "accepted_by", "decision_date", "notes", "email", "title"}

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY o.order_date DESC, o.id")).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("o2", "u1", "b2", model.OrderPurchase, model.OrderPending, now, 900, 0, nil, nil, nil, "u1@example.com", "Rare").
			AddRow("o1", "u1", "b1", model.OrderBorrow, model.OrderRejected, now.Add(-time.Hour), 0, 7, "a1", now, "Rejected by admin.", "u1@example.com", ""))
	list, err := store.Orders().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Nil(t, list[0].AcceptedBy)
	assert.Equal(t, "Rare", list[0].BookTitle)
	require.NotNil(t, list[1].Notes)
	assert.Equal(t, "Rejected by admin.", *list[1].Notes)
	assert.Empty(t, list[1].BookTitle, "deleted book")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) FROM orders GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "n"}).AddRow(model.OrderPending, 2))
	counts, err := store.Orders().CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{model.OrderPending: 2, model.OrderAccepted: 0, model.OrderRejected: 0}, counts)

	require.NoError(t, mock.ExpectationsWereMet())
}

// expectOne reads RowsAffected as matched rows.  An UPDATE that writes
// identical values still reports 1 under clientFoundRows and must succeed;
// 0 only means the row is gone.
func TestOrderRepo_UpdateMatchedRows(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()
	repo := NewOrderRepo(store.DB())
	o := model.Order{ID: "o1", Status: model.OrderAccepted}
	q := regexp.QuoteMeta("UPDATE orders SET status = ?, accepted_by = ?, decision_date = ?, notes = ? WHERE id = ?")

	mock.ExpectExec(q).WithArgs(model.OrderAccepted, nil, nil, nil, "o1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(ctx, o))

	mock.ExpectExec(q).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Update(ctx, model.Order{ID: "gone"}), ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepo_InsertDuplicate(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO purchases")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	err := NewPurchaseRepo(store.DB()).Insert(context.Background(), model.Purchase{ID: "p1", UserID: "u1", BookID: "b1", OrderID: "o1"})
	assert.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}
