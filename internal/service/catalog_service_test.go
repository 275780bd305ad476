package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bookcore/internal/model"
)

func titles(books []model.Book) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.Title)
	}
	return out
}

func seedCatalog(t *testing.T, f *fixture) {
	t.Helper()
	f.addBook(t, model.Book{Title: "Dune", Author: "Frank Herbert", Genre: "SciFi", IsAvailable: true})
	f.addBook(t, model.Book{Title: "Dune Messiah", Author: "Frank Herbert", Genre: "SciFi", IsAvailable: true})
	f.addBook(t, model.Book{Title: "Emma", Author: "Jane Austen", Genre: "Classic", IsAvailable: true})
	f.addBook(t, model.Book{Title: "Frankenstein", Author: "Mary Shelley", Genre: "Horror", IsAvailable: false})
}

func TestSearch_Prefix(t *testing.T) {
	f := newFixture(t)
	seedCatalog(t, f)
	ctx := context.Background()

	got, err := f.catalog.Search(ctx, "  FRANK ", SearchPrefix, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Frankenstein", "Dune", "Dune Messiah"}, titles(got))

	got, err = f.catalog.Search(ctx, "dune", "", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune"}, titles(got))

	got, err = f.catalog.Search(ctx, "scifi", SearchPrefix, 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = f.catalog.Search(ctx, "   ", SearchPrefix, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearch_Contains(t *testing.T) {
	f := newFixture(t)
	seedCatalog(t, f)

	got, err := f.catalog.Search(context.Background(), "en", SearchContains, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Emma", "Frankenstein"}, titles(got))

	_, err = f.catalog.Search(context.Background(), "en", "fuzzy", 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRecommendations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seed := f.addBook(t, model.Book{Title: "Seed", Genre: "SciFi", IsAvailable: true})
	for i := 0; i < 6; i++ {
		f.addBook(t, model.Book{Title: "Other", Genre: "scifi", IsAvailable: true})
	}
	f.addBook(t, model.Book{Title: "Lent", Genre: "SciFi", IsAvailable: false})
	f.addBook(t, model.Book{Title: "Poems", Genre: "Poetry", IsAvailable: true})

	got, err := f.catalog.Recommendations(ctx, seed.ID)
	require.NoError(t, err)
	require.Len(t, got, RecommendationLimit)
	for _, b := range got {
		assert.NotEqual(t, seed.ID, b.ID)
		assert.True(t, b.IsAvailable)
		assert.Equal(t, "Other", b.Title)
	}

	_, err = f.catalog.Recommendations(ctx, "missing")
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func strp(s string) *string { return &s }

func TestCreateUpdateDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.catalog.Create(ctx, BookInput{Title: strp("Only a title")})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "author, cover_image_url, pdf_url")

	b, err := f.catalog.Create(ctx, BookInput{
		Title: strp(" Dune "), Author: strp("Frank Herbert"), Genre: strp("SciFi"),
		CoverImageURL: strp("https://cdn/cover.jpg"), PDFURL: strp("https://cdn/dune.pdf"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Dune", b.Title)
	assert.True(t, b.IsAvailable)
	assert.NotEmpty(t, b.ID)

	u := f.addUser(t, "u@example.com")
	_, err = f.loans.Borrow(ctx, u.ID, b.ID, 7)
	require.NoError(t, err)

	updated, err := f.catalog.Update(ctx, b.ID, BookInput{Genre: strp("Classic")})
	require.NoError(t, err)
	assert.Equal(t, "Classic", updated.Genre)
	assert.False(t, updated.IsAvailable, "update keeps availability")

	_, err = f.catalog.Update(ctx, "missing", BookInput{})
	assert.ErrorIs(t, err, ErrBookNotFound)

	assert.ErrorIs(t, f.catalog.Delete(ctx, b.ID), ErrConflict)
	require.NoError(t, f.loans.Return(ctx, u.ID, b.ID))
	require.NoError(t, f.catalog.Delete(ctx, b.ID))
	_, err = f.catalog.Get(ctx, b.ID)
	assert.ErrorIs(t, err, ErrBookNotFound)
	assert.ErrorIs(t, f.catalog.Delete(ctx, b.ID), ErrBookNotFound)

	borrowed, err := f.loans.Borrowed(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, borrowed, 1)
	assert.Nil(t, borrowed[0].Book)
}
