package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/bookcore/internal/model"
)

// OrderRepo provides access to the orders table.
type OrderRepo struct{ db DBTX }

func NewOrderRepo(db DBTX) *OrderRepo { return &OrderRepo{db: db} }

const orderColumns = `o.id, o.user_id, o.book_id, o.order_type, o.status, o.order_date,
	o.amount_paid_cents, o.loan_days, o.accepted_by, o.decision_date, o.notes`

func scanOrder(s rowScanner, extra ...any) (model.Order, error) {
	var (
		o          model.Order
		acceptedBy sql.NullString
		decided    sql.NullTime
		notes      sql.NullString
	)
	dest := []any{&o.ID, &o.UserID, &o.BookID, &o.OrderType, &o.Status, &o.OrderDate,
		&o.AmountPaidCents, &o.LoanDays, &acceptedBy, &decided, &notes}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return o, err
	}
	if acceptedBy.Valid {
		v := acceptedBy.String
		o.AcceptedBy = &v
	}
	if decided.Valid {
		t := decided.Time
		o.DecisionDate = &t
	}
	if notes.Valid {
		v := notes.String
		o.Notes = &v
	}
	return o, nil
}

// List returns all orders newest first, joined with the user's email and
// the book title.  Orders whose book was deleted keep an empty title.
func (r *OrderRepo) List(ctx context.Context) ([]model.OrderDetail, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+`, u.email, COALESCE(b.title, '')
		FROM orders o
		JOIN users u ON u.id = o.user_id
		LEFT JOIN books b ON b.id = o.book_id
		ORDER BY o.order_date DESC, o.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.OrderDetail{}
	for rows.Next() {
		var d model.OrderDetail
		o, err := scanOrder(rows, &d.UserEmail, &d.BookTitle)
		if err != nil {
			return nil, err
		}
		d.Order = o
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountByStatus returns the number of orders per status.
func (r *OrderRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{model.OrderPending: 0, model.OrderAccepted: 0, model.OrderRejected: 0}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

// GetForUpdate locks and returns one order.
func (r *OrderRepo) GetForUpdate(ctx context.Context, id string) (model.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = ? FOR UPDATE`, id))
	return o, notFound(err)
}

// Insert stores a new order.
func (r *OrderRepo) Insert(ctx context.Context, o model.Order) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO orders
		(id, user_id, book_id, order_type, status, order_date, amount_paid_cents, loan_days, accepted_by, decision_date, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, o.BookID, o.OrderType, o.Status, o.OrderDate, o.AmountPaidCents, o.LoanDays,
		o.AcceptedBy, o.DecisionDate, o.Notes)
	return err
}

// Update stores the decision fields of an order.
func (r *OrderRepo) Update(ctx context.Context, o model.Order) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, accepted_by = ?, decision_date = ?, notes = ? WHERE id = ?`,
		o.Status, o.AcceptedBy, o.DecisionDate, o.Notes, o.ID))
}

// PurchaseRepo provides access to the purchases table.  A user owns at most
// one purchase per book.
type PurchaseRepo struct{ db DBTX }

func NewPurchaseRepo(db DBTX) *PurchaseRepo { return &PurchaseRepo{db: db} }

// Insert records a purchase; a duplicate yields ErrConflict.
func (r *PurchaseRepo) Insert(ctx context.Context, p model.Purchase) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO purchases
		(id, user_id, book_id, order_id, amount_paid_cents, purchased_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.BookID, p.OrderID, p.AmountPaidCents, p.PurchasedAt)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// Exists reports whether the user already bought the book.
func (r *PurchaseRepo) Exists(ctx context.Context, userID, bookID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM purchases WHERE user_id = ? AND book_id = ?`, userID, bookID).Scan(&n)
	return n > 0, err
}
