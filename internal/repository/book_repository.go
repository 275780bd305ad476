package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bookcore/internal/model"
)

// BookRepo provides access to the books table.  Rows are returned in
// insertion order (the seq column) unless a query states otherwise.
type BookRepo struct {
	db DBTX
}

// NewBookRepo returns a BookRepo bound to db, which may be a *sql.DB or a
// *sql.Tx.
func NewBookRepo(db DBTX) *BookRepo { return &BookRepo{db: db} }

const bookColumns = `id, title, author, genre, description, cover_image_url, pdf_url,
	is_available, is_exclusive, price_cents, published_year,
	title_lower, author_lower, genre_lower, created_at, updated_at`

func scanBook(s rowScanner) (model.Book, error) {
	var b model.Book
	err := s.Scan(
		&b.ID, &b.Title, &b.Author, &b.Genre, &b.Description, &b.CoverImageURL, &b.PDFURL,
		&b.IsAvailable, &b.IsExclusive, &b.PriceCents, &b.PublishedYear,
		&b.TitleLower, &b.AuthorLower, &b.GenreLower, &b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

func collectBooks(rows *sql.Rows) ([]model.Book, error) {
	defer rows.Close()
	out := []model.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Get returns a book by id or ErrNotFound.
func (r *BookRepo) Get(ctx context.Context, id string) (model.Book, error) {
	b, err := scanBook(r.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id))
	return b, notFound(err)
}

// GetForUpdate is Get with an exclusive row lock.  It must run inside a
// transaction.
func (r *BookRepo) GetForUpdate(ctx context.Context, id string) (model.Book, error) {
	b, err := scanBook(r.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ? FOR UPDATE`, id))
	return b, notFound(err)
}

// List returns catalog rows matching f.
func (r *BookRepo) List(ctx context.Context, f model.BookFilter) ([]model.Book, error) {
	q := `SELECT ` + bookColumns + ` FROM books`
	var where []string
	var args []any
	if f.AvailableOnly {
		where = append(where, "is_available = 1")
	}
	if g := strings.TrimSpace(f.Genre); g != "" {
		where = append(where, "genre_lower = ?")
		args = append(args, strings.ToLower(g))
	}
	if f.ExcludeID != "" {
		where = append(where, "id <> ?")
		args = append(args, f.ExcludeID)
	}
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY seq"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectBooks(rows)
}

// SearchPrefix matches the start of one lowercase search column.
func (r *BookRepo) SearchPrefix(ctx context.Context, field model.SearchField, prefix string, limit int) ([]model.Book, error) {
	switch field {
	case model.SearchTitle, model.SearchAuthor, model.SearchGenre:
	default:
		return nil, fmt.Errorf("unknown search field %q", field)
	}
	col := string(field)
	q := `SELECT ` + bookColumns + ` FROM books WHERE ` + col + ` LIKE ? ORDER BY ` + col + `, seq LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, escapeLike(prefix)+"%", limit)
	if err != nil {
		return nil, err
	}
	return collectBooks(rows)
}

// SearchContains matches a substring of any lowercase search column.
func (r *BookRepo) SearchContains(ctx context.Context, term string) ([]model.Book, error) {
	pattern := "%" + escapeLike(term) + "%"
	q := `SELECT ` + bookColumns + ` FROM books
		WHERE title_lower LIKE ? OR author_lower LIKE ? OR genre_lower LIKE ?
		ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, q, pattern, pattern, pattern)
	if err != nil {
		return nil, err
	}
	return collectBooks(rows)
}

// Create inserts b, assigning an id and timestamps when missing.  Search
// keys are recomputed from the source fields.
func (r *BookRepo) Create(ctx context.Context, b *model.Book) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.SyncSearchKeys()
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	const q = `INSERT INTO books (id, title, author, genre, description, cover_image_url, pdf_url,
		is_available, is_exclusive, price_cents, published_year,
		title_lower, author_lower, genre_lower, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		b.ID, b.Title, b.Author, b.Genre, b.Description, b.CoverImageURL, b.PDFURL,
		b.IsAvailable, b.IsExclusive, b.PriceCents, b.PublishedYear,
		b.TitleLower, b.AuthorLower, b.GenreLower, b.CreatedAt, b.UpdatedAt)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// Update rewrites the catalog fields of b.  is_available is not written
// here; only borrow and return change it.
func (r *BookRepo) Update(ctx context.Context, b model.Book) error {
	b.SyncSearchKeys()
	const q = `UPDATE books SET title = ?, author = ?, genre = ?, description = ?,
		cover_image_url = ?, pdf_url = ?, is_exclusive = ?, price_cents = ?, published_year = ?,
		title_lower = ?, author_lower = ?, genre_lower = ?, updated_at = ?
		WHERE id = ?`
	return expectOne(r.db.ExecContext(ctx, q,
		b.Title, b.Author, b.Genre, b.Description,
		b.CoverImageURL, b.PDFURL, b.IsExclusive, b.PriceCents, b.PublishedYear,
		b.TitleLower, b.AuthorLower, b.GenreLower, time.Now().UTC(),
		b.ID))
}

// SetAvailability flips the availability flag of one book.
func (r *BookRepo) SetAvailability(ctx context.Context, id string, available bool) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE books SET is_available = ?, updated_at = ? WHERE id = ?`,
		available, time.Now().UTC(), id))
}

// Delete removes a book row.
func (r *BookRepo) Delete(ctx context.Context, id string) error {
	return expectOne(r.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id))
}

// Count returns the number of books and of available books.
func (r *BookRepo) Count(ctx context.Context) (total, available int, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(is_available), 0) FROM books`).Scan(&total, &available)
	return total, available, err
}
