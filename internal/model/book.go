package model

import (
    "strings"
    "time"
)

// Book mirrors a row of the `books` table.  Price is stored in cents so
// that purchase checks never compare floats.  The *_lower fields are
// search keys derived from their source fields; call SyncSearchKeys after
// any change to Title, Author or Genre.
//
// IsAvailable is true when no active borrow record references the book.
// It is written only by the borrow and return workflows.
type Book struct {
    ID            string    `json:"id"`             // books.id (uuid)
    Title         string    `json:"title"`          // books.title
    Author        string    `json:"author"`         // books.author
    Genre         string    `json:"genre"`          // books.genre
    Description   string    `json:"description"`    // books.description
    CoverImageURL string    `json:"cover_image_url"` // books.cover_image_url
    PDFURL        string    `json:"pdf_url"`        // books.pdf_url
    IsAvailable   bool      `json:"is_available"`   // books.is_available
    IsExclusive   bool      `json:"is_exclusive"`   // books.is_exclusive
    PriceCents    uint32    `json:"price_cents"`    // books.price_cents
    PublishedYear int       `json:"published_year"` // books.published_year
    TitleLower    string    `json:"-"`              // books.title_lower
    AuthorLower   string    `json:"-"`              // books.author_lower
    GenreLower    string    `json:"-"`              // books.genre_lower
    CreatedAt     time.Time `json:"created_at"`     // books.created_at
    UpdatedAt     time.Time `json:"updated_at"`     // books.updated_at
}

// SyncSearchKeys recomputes the lowercase mirrors from the source fields.
func (b *Book) SyncSearchKeys() {
    b.TitleLower = strings.ToLower(b.Title)
    b.AuthorLower = strings.ToLower(b.Author)
    b.GenreLower = strings.ToLower(b.Genre)
}

// Borrowable reports whether the book may be lent right now.
func (b Book) Borrowable() bool {
    return b.IsAvailable && !b.IsExclusive
}

// SearchField names one of the lowercase search columns.
type SearchField string

const (
    SearchTitle  SearchField = "title_lower"
    SearchAuthor SearchField = "author_lower"
    SearchGenre  SearchField = "genre_lower"
)

// SearchFields lists the fields searched, in merge order.
var SearchFields = []SearchField{SearchTitle, SearchAuthor, SearchGenre}

// Value returns the lowercase key of b for field f.
func (f SearchField) Value(b Book) string {
    switch f {
    case SearchTitle:
        return b.TitleLower
    case SearchAuthor:
        return b.AuthorLower
    case SearchGenre:
        return b.GenreLower
    }
    return ""
}

// BookFilter narrows catalog listings.  Zero values mean "no filter".
type BookFilter struct {
    Limit         int
    AvailableOnly bool
    Genre         string
    ExcludeID     string
}
