package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/iliyamo/bookcore/internal/logging"
	"github.com/iliyamo/bookcore/internal/repository"
)

// Report summarises one import run.  MarkedUnavailable lists inserted ids
// whose export flagged them unavailable; they were stored available since
// no loan exists for them.
type Report struct {
	Inserted          int
	Updated           int
	Skipped           []Skip
	MarkedUnavailable []string
}

// Skip names a document that could not be imported.
type Skip struct {
	Index  int
	Reason string
}

// Decode reads a JSON array of legacy documents.
func Decode(r io.Reader) ([]map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var docs []map[string]any
	if err := dec.Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode legacy books: %w", err)
	}
	return docs, nil
}

// Import normalizes docs and upserts them.  New ids are always inserted
// available.  Existing ids get their catalog fields updated; their
// availability is owned by the loan workflow and left alone.
// Running Import twice over the same docs leaves the store unchanged.
func Import(ctx context.Context, books repository.BookStore, docs []map[string]any, log logging.Logger) (Report, error) {
	var rep Report
	for i, doc := range docs {
		b, err := NormalizeLegacyBook(doc)
		if err != nil {
			rep.Skipped = append(rep.Skipped, Skip{Index: i, Reason: err.Error()})
			log.Warn(ctx, "legacy book skipped", "index", i, "err", err)
			continue
		}
		existing, err := books.Get(ctx, b.ID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			if err := books.Create(ctx, &b); err != nil {
				return rep, fmt.Errorf("insert %s: %w", b.ID, err)
			}
			rep.Inserted++
			if !LegacyAvailability(doc) {
				rep.MarkedUnavailable = append(rep.MarkedUnavailable, b.ID)
				log.Info(ctx, "legacy book stored as available", "book_id", b.ID, "reason", "no active loan")
			}
		case err != nil:
			return rep, fmt.Errorf("get %s: %w", b.ID, err)
		default:
			b.CreatedAt = existing.CreatedAt
			if err := books.Update(ctx, b); err != nil {
				return rep, fmt.Errorf("update %s: %w", b.ID, err)
			}
			rep.Updated++
		}
	}
	log.Info(ctx, "legacy import finished", "inserted", rep.Inserted, "updated", rep.Updated, "skipped", len(rep.Skipped))
	return rep, nil
}
