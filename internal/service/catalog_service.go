package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/bookcore/internal/logging"
	"github.com/iliyamo/bookcore/internal/model"
	"github.com/iliyamo/bookcore/internal/repository"
)

// Search modes.
const (
	SearchPrefix   = "prefix"
	SearchContains = "contains"
)

const (
	// DefaultSearchLimit caps prefix results per field.
	DefaultSearchLimit = 5
	// RecommendationLimit caps the number of recommended books.
	RecommendationLimit = 4
)

// CatalogService lists, searches and edits books.
type CatalogService struct {
	store repository.Store
	log   logging.Logger
}

func NewCatalogService(store repository.Store, log logging.Logger) *CatalogService {
	return &CatalogService{store: store, log: log}
}

// BookInput carries catalog fields.  Nil fields are left unchanged on
// update and take their zero value on create.
type BookInput struct {
	Title         *string `json:"title"`
	Author        *string `json:"author"`
	Genre         *string `json:"genre"`
	Description   *string `json:"description"`
	CoverImageURL *string `json:"cover_image_url"`
	PDFURL        *string `json:"pdf_url"`
	IsExclusive   *bool   `json:"is_exclusive"`
	PriceCents    *uint32 `json:"price_cents"`
	PublishedYear *int    `json:"published_year"`
}

func (in BookInput) apply(b *model.Book) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&b.Title, in.Title)
	set(&b.Author, in.Author)
	set(&b.Genre, in.Genre)
	set(&b.Description, in.Description)
	set(&b.CoverImageURL, in.CoverImageURL)
	set(&b.PDFURL, in.PDFURL)
	if in.IsExclusive != nil {
		b.IsExclusive = *in.IsExclusive
	}
	if in.PriceCents != nil {
		b.PriceCents = *in.PriceCents
	}
	if in.PublishedYear != nil {
		b.PublishedYear = *in.PublishedYear
	}
}

// validateBook enforces the fields every catalog entry needs.
func validateBook(b model.Book) error {
	var missing []string
	for name, v := range map[string]string{
		"title": b.Title, "author": b.Author, "cover_image_url": b.CoverImageURL, "pdf_url": b.PDFURL,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	if b.PublishedYear < 0 || b.PublishedYear > time.Now().Year()+1 {
		return fmt.Errorf("%w: published_year out of range", ErrInvalidInput)
	}
	return nil
}

// List returns books matching f in storage order.
func (s *CatalogService) List(ctx context.Context, f model.BookFilter) ([]model.Book, error) {
	out, err := s.store.Books().List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return out, nil
}

// Get returns one book or ErrBookNotFound.
func (s *CatalogService) Get(ctx context.Context, id string) (model.Book, error) {
	b, err := s.store.Books().Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Book{}, ErrBookNotFound
	}
	if err != nil {
		return model.Book{}, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

// Recommendations returns up to RecommendationLimit available books of the
// same genre, excluding the book itself.
func (s *CatalogService) Recommendations(ctx context.Context, id string) ([]model.Book, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Genre == "" {
		return []model.Book{}, nil
	}
	return s.List(ctx, model.BookFilter{
		Limit:         RecommendationLimit,
		AvailableOnly: true,
		Genre:         b.Genre,
		ExcludeID:     b.ID,
	})
}

// Search matches the trimmed, lower-cased term against title, author and
// genre.  In prefix mode each field contributes at most limit books
// (DefaultSearchLimit when limit <= 0); contains mode is unbounded.  The
// union is deduplicated by id, keeping the first occurrence.  An empty
// term yields an empty result.
func (s *CatalogService) Search(ctx context.Context, term, mode string, limit int) ([]model.Book, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return []model.Book{}, nil
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", SearchPrefix:
		if limit <= 0 {
			limit = DefaultSearchLimit
		}
		var all []model.Book
		for _, f := range model.SearchFields {
			found, err := s.store.Books().SearchPrefix(ctx, f, term, limit)
			if err != nil {
				return nil, fmt.Errorf("search %s: %w", f, err)
			}
			all = append(all, found...)
		}
		return dedupe(all), nil
	case SearchContains:
		found, err := s.store.Books().SearchContains(ctx, term)
		if err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		return dedupe(found), nil
	default:
		return nil, fmt.Errorf("%w: unknown search mode %q", ErrInvalidInput, mode)
	}
}

func dedupe(books []model.Book) []model.Book {
	seen := make(map[string]bool, len(books))
	out := make([]model.Book, 0, len(books))
	for _, b := range books {
		if seen[b.ID] {
			continue
		}
		seen[b.ID] = true
		out = append(out, b)
	}
	return out
}

// Create adds a book.  New books are always available.
func (s *CatalogService) Create(ctx context.Context, in BookInput) (model.Book, error) {
	var b model.Book
	in.apply(&b)
	if err := validateBook(b); err != nil {
		return model.Book{}, err
	}
	b.IsAvailable = true
	if err := s.store.Books().Create(ctx, &b); err != nil {
		return model.Book{}, fmt.Errorf("create book: %w", err)
	}
	s.log.Info(ctx, "book created", "book_id", b.ID, "title", b.Title)
	return b, nil
}

// Update applies the non-nil fields of in.  Availability never changes here.
func (s *CatalogService) Update(ctx context.Context, id string, in BookInput) (model.Book, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return model.Book{}, err
	}
	in.apply(&b)
	if err := validateBook(b); err != nil {
		return model.Book{}, err
	}
	err = s.store.Books().Update(ctx, b)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Book{}, ErrBookNotFound
	}
	if err != nil {
		return model.Book{}, fmt.Errorf("update book: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete removes a book that is not currently lent.  A book with an active
// borrow record fails with ErrConflict.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.LockBook(ctx, id); errors.Is(err, repository.ErrNotFound) {
			return ErrBookNotFound
		} else if err != nil {
			return fmt.Errorf("lock book: %w", err)
		}
		if _, err := tx.ActiveLoanForBook(ctx, id); err == nil {
			return ErrConflict
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("find active loan: %w", err)
		}
		if err := tx.DeleteBook(ctx, id); err != nil {
			return fmt.Errorf("delete book: %w", err)
		}
		return nil
	})
	if err == nil {
		s.log.Info(ctx, "book deleted", "book_id", id)
	}
	return err
}
