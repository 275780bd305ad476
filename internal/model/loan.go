package model

import "time"

// BorrowRecord mirrors the `borrow_records` table.  A record is active
// while ReturnDate is nil.  Records are never deleted; Return only sets
// ReturnDate, and progress updates only touch the reading counters.
type BorrowRecord struct {
    ID              string     `json:"id"`
    UserID          string     `json:"user_id"`
    BookID          string     `json:"book_id"`
    BorrowDate      time.Time  `json:"borrow_date"`
    DueDate         time.Time  `json:"due_date"`
    ReturnDate      *time.Time `json:"return_date,omitempty"`
    ReadingProgress int        `json:"reading_progress"`
    LastReadPage    int        `json:"last_read_page"`
}

// Active reports whether the record has not been returned yet.
func (r BorrowRecord) Active() bool { return r.ReturnDate == nil }

// Overdue reports whether an active record is past its due date at now.
func (r BorrowRecord) Overdue(now time.Time) bool {
    return r.Active() && now.After(r.DueDate)
}

// BorrowedBook pairs a borrow record with the book it references.  Book is
// nil when the book row no longer exists.
type BorrowedBook struct {
    BorrowRecord
    Book *Book `json:"book"`
}
