package model

import "time"

// MonthlyStat is one row of `user_monthly_stats`: the number of books a
// user returned during a calendar month, keyed by English month name.
type MonthlyStat struct {
    UserID    string `json:"-"`
    Month     string `json:"month"`
    BooksRead int    `json:"books_read"`
}

// Months returns the twelve month names in calendar order.
func Months() []string {
    out := make([]string, 0, 12)
    for m := time.January; m <= time.December; m++ {
        out = append(out, m.String())
    }
    return out
}

// DashboardStats aggregates counts for the admin dashboard.
type DashboardStats struct {
    Books          int            `json:"books"`
    AvailableBooks int            `json:"available_books"`
    Users          int            `json:"users"`
    ActiveLoans    int            `json:"active_loans"`
    OverdueLoans   int            `json:"overdue_loans"`
    Orders         map[string]int `json:"orders"`
}
