// Package importer loads legacy catalog exports into the book store.
//
// Legacy documents are loosely typed: availability may be stored as an
// "availability" string ("Yes"/"No"), as a boolean, or as the newer
// "isAvailable" flag; prices are dollar amounts; ids may be missing.
// NormalizeLegacyBook maps any of these shapes onto model.Book and is
// idempotent: normalizing a document that is already in the current shape
// yields the same book.
package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/bookcore/internal/model"
)

// ErrInvalidDocument reports a legacy document that cannot become a book.
var ErrInvalidDocument = errors.New("invalid legacy book")

// bookNamespace seeds deterministic ids for documents without one, so
// re-importing the same export updates rows instead of duplicating them.
var bookNamespace = uuid.MustParse("6f1d7a52-3c1e-4f0b-9a57-0c4b1de2b7a1")

// NormalizeLegacyBook converts one legacy document.
//
// Preconditions: doc has non-empty string "title" and "author".
// Postconditions: IsAvailable is true, a new book has no borrow record
// (LegacyAvailability reports what the export said);
// PriceCents is "priceCents" or "price" dollars rounded to cents and fits
// uint32; PublishedYear is within 0..9999; ID is "id" or a UUIDv5 of the
// lower-cased title and author.
func NormalizeLegacyBook(doc map[string]any) (model.Book, error) {
	title := str(doc, "title")
	author := str(doc, "author")
	if title == "" || author == "" {
		return model.Book{}, fmt.Errorf("%w: title and author are required", ErrInvalidDocument)
	}
	b := model.Book{
		ID:            str(doc, "id"),
		Title:         title,
		Author:        author,
		Genre:         str(doc, "genre"),
		Description:   str(doc, "description"),
		CoverImageURL: firstStr(doc, "coverImageUrl", "cover_image_url"),
		PDFURL:        firstStr(doc, "pdfUrl", "pdf_url"),
		IsAvailable:   true,
		IsExclusive:   boolean(doc["isExclusive"]) || boolean(doc["is_exclusive"]),
	}
	if b.ID == "" {
		b.ID = uuid.NewSHA1(bookNamespace, []byte(strings.ToLower(title)+"\x00"+strings.ToLower(author))).String()
	}

	if v, ok := number(doc["priceCents"]); ok {
		cents, err := toCents(v)
		if err != nil {
			return model.Book{}, err
		}
		b.PriceCents = cents
	} else if dollars, ok := number(doc["price"]); ok {
		cents, err := toCents(dollars * 100)
		if err != nil {
			return model.Book{}, err
		}
		b.PriceCents = cents
	}
	if y, ok := number(firstOf(doc, "publishedYear", "published_year")); ok {
		if math.IsNaN(y) || y < 0 || y > maxYear {
			return model.Book{}, fmt.Errorf("%w: published year out of range", ErrInvalidDocument)
		}
		b.PublishedYear = int(y)
	}
	b.SyncSearchKeys()
	return b, nil
}

const maxYear = 9999

// toCents rounds v to whole cents, rejecting values uint32 cannot hold.
func toCents(v float64) (uint32, error) {
	r := math.Round(v)
	switch {
	case math.IsNaN(r), math.IsInf(r, 0):
		return 0, fmt.Errorf("%w: price is not a number", ErrInvalidDocument)
	case r < 0:
		return 0, fmt.Errorf("%w: negative price", ErrInvalidDocument)
	case r > math.MaxUint32:
		return 0, fmt.Errorf("%w: price too large", ErrInvalidDocument)
	}
	return uint32(r), nil
}

// LegacyAvailability reports the availability recorded in the export:
// "isAvailable" when it is a bool, else "availability" ("yes" in any case,
// or a bool), else true.
func LegacyAvailability(doc map[string]any) bool {
	if v, ok := doc["isAvailable"].(bool); ok {
		return v
	}
	switch v := doc["availability"].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "yes")
	}
	return true
}

func str(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return strings.TrimSpace(s)
}

func firstStr(doc map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := str(doc, k); s != "" {
			return s
		}
	}
	return ""
}

func firstOf(doc map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := doc[k]; ok {
			return v
		}
	}
	return nil
}

func boolean(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		ok, _ := strconv.ParseBool(strings.TrimSpace(b))
		return ok
	}
	return false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
