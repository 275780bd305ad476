package service

import "errors"

// Borrow and return failures.
var (
	ErrBookUnavailable = errors.New("book is not available")
	ErrUserNotFound    = errors.New("user not found")
	ErrAlreadyBorrowed = errors.New("book already borrowed by this user")
	ErrNoActiveBorrow  = errors.New("no active borrow record for this book")
	ErrInvalidLoanDays = errors.New("loan length must be between 1 and 7 days")
	ErrExclusiveBook   = errors.New("exclusive books can only be purchased")
)

// Catalog and order failures.
var (
	ErrBookNotFound     = errors.New("book not found")
	ErrPaymentRequired  = errors.New("payment does not cover the book price")
	ErrInvalidOrderType = errors.New("order type must be borrow or purchase")
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderNotPending  = errors.New("order is not pending")
)

// Generic failures shared by the admin workflows.
var (
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)
