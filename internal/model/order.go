package model

import "time"

// Order types.
const (
    OrderBorrow   = "borrow"
    OrderPurchase = "purchase"
)

// Order statuses.
const (
    OrderPending  = "pending"
    OrderAccepted = "accepted"
    OrderRejected = "rejected"
)

// Order mirrors the `orders` table.  AcceptedBy is set when an admin
// decides the order; auto-accepted orders leave it nil.
type Order struct {
    ID              string     `json:"id"`
    UserID          string     `json:"user_id"`
    BookID          string     `json:"book_id"`
    OrderType       string     `json:"order_type"`
    Status          string     `json:"status"`
    OrderDate       time.Time  `json:"order_date"`
    AmountPaidCents uint32     `json:"amount_paid_cents"`
    LoanDays        int        `json:"loan_days,omitempty"`
    AcceptedBy      *string    `json:"accepted_by,omitempty"`
    DecisionDate    *time.Time `json:"decision_date,omitempty"`
    Notes           *string    `json:"notes,omitempty"`
}

// OrderDetail is an order joined with the user's email and the book title
// for admin listings.
type OrderDetail struct {
    Order
    UserEmail string `json:"user_email"`
    BookTitle string `json:"book_title"`
}

// Purchase mirrors the `purchases` table.  A purchase grants ownership and
// never changes book availability.
type Purchase struct {
    ID              string    `json:"id"`
    UserID          string    `json:"user_id"`
    BookID          string    `json:"book_id"`
    OrderID         string    `json:"order_id"`
    AmountPaidCents uint32    `json:"amount_paid_cents"`
    PurchasedAt     time.Time `json:"purchased_at"`
}
