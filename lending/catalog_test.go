package lending_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookhaven/lending-go/lending"
)

func Test_Catalog_AddBook_Succeeds(t *testing.T) {
	// arrange
	store := givenMemoryStore(t)
	catalog, err := lending.NewCatalog(store)
	require.NoError(t, err)

	book := lending.Book{
		ID:              uuid.New(),
		Title:           "Designing Data-Intensive Applications",
		Author:          "Martin Kleppmann",
		Genres:          []string{"databases", "distributed systems"},
		TotalCopies:     2,
		AvailableCopies: 2,
	}

	// act
	addErr := catalog.AddBook(context.Background(), book)

	// assert
	require.NoError(t, addErr)
	stored, found, findErr := store.FindBook(context.Background(), book.ID)
	require.NoError(t, findErr)
	require.True(t, found)
	assert.Equal(t, book.Title, stored.Title)
	assert.Equal(t, book.Genres, stored.Genres)
}

func Test_Catalog_AddBook_RejectsInvalidRecords(t *testing.T) {
	store := givenMemoryStore(t)
	catalog, err := lending.NewCatalog(store)
	require.NoError(t, err)

	tests := []struct {
		name string
		book lending.Book
	}{
		{
			name: "missing_id",
			book: lending.Book{Title: "x", Author: "y", TotalCopies: 1, AvailableCopies: 1},
		},
		{
			name: "missing_title",
			book: lending.Book{ID: uuid.New(), Author: "y", TotalCopies: 1, AvailableCopies: 1},
		},
		{
			name: "missing_author",
			book: lending.Book{ID: uuid.New(), Title: "x", TotalCopies: 1, AvailableCopies: 1},
		},
		{
			name: "negative_total",
			book: lending.Book{ID: uuid.New(), Title: "x", Author: "y", TotalCopies: -1},
		},
		{
			name: "available_exceeds_total",
			book: lending.Book{ID: uuid.New(), Title: "x", Author: "y", TotalCopies: 1, AvailableCopies: 2},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, catalog.AddBook(context.Background(), tc.book), lending.ErrInvalidBook)
		})
	}
}

func Test_Catalog_AddBook_RejectsDuplicate(t *testing.T) {
	// arrange
	store := givenMemoryStore(t)
	catalog, err := lending.NewCatalog(store)
	require.NoError(t, err)

	book := lending.Book{
		ID:              uuid.New(),
		Title:           "The Art of Computer Programming",
		Author:          "Donald Knuth",
		TotalCopies:     1,
		AvailableCopies: 1,
	}
	require.NoError(t, catalog.AddBook(context.Background(), book))

	// act
	addErr := catalog.AddBook(context.Background(), book)

	// assert
	assert.ErrorIs(t, addErr, lending.ErrBookAlreadyExists)
}

func Test_Catalog_RemoveBook_Succeeds(t *testing.T) {
	// arrange
	store := givenMemoryStore(t)
	catalog, err := lending.NewCatalog(store)
	require.NoError(t, err)
	bookID := givenBookInCatalog(t, store, 1)

	// act
	removeErr := catalog.RemoveBook(context.Background(), bookID)

	// assert
	require.NoError(t, removeErr)
	_, found, _ := store.FindBook(context.Background(), bookID)
	assert.False(t, found)
}

func Test_Catalog_RemoveBook_RejectsWhileLoansActive(t *testing.T) {
	// arrange
	store := givenMemoryStore(t)
	catalog, err := lending.NewCatalog(store)
	require.NoError(t, err)
	engine := givenEngineOverStore(t, store, testToday)

	bookID := givenBookInCatalog(t, store, 2)
	require.NoError(t, engine.CheckoutBook(context.Background(), uuid.New(), bookID))

	// act
	removeErr := catalog.RemoveBook(context.Background(), bookID)

	// assert
	assert.ErrorIs(t, removeErr, lending.ErrBookHasActiveLoans)
	_, found, _ := store.FindBook(context.Background(), bookID)
	assert.True(t, found)
}

func Test_Catalog_RemoveBook_RejectsUnknownBook(t *testing.T) {
	// arrange
	catalog, err := lending.NewCatalog(givenMemoryStore(t))
	require.NoError(t, err)

	// act
	removeErr := catalog.RemoveBook(context.Background(), uuid.New())

	// assert
	assert.ErrorIs(t, removeErr, lending.ErrBookNotFound)
}

func Test_Catalog_AddCopy_RaisesBothCounters(t *testing.T) {
	// arrange
	store := givenMemoryStore(t)
	catalog, err := lending.NewCatalog(store)
	require.NoError(t, err)
	bookID := givenBookInCatalog(t, store, 1)

	// act
	addErr := catalog.AddCopy(context.Background(), bookID)

	// assert
	require.NoError(t, addErr)
	book, _, _ := store.FindBook(context.Background(), bookID)
	assert.Equal(t, 2, book.TotalCopies)
	assert.Equal(t, 2, book.AvailableCopies)
}

func Test_Catalog_AddCopy_RejectsUnknownBook(t *testing.T) {
	catalog, err := lending.NewCatalog(givenMemoryStore(t))
	require.NoError(t, err)

	assert.ErrorIs(t, catalog.AddCopy(context.Background(), uuid.New()), lending.ErrBookNotFound)
}

func Test_Catalog_RemoveCopy_LowersBothCounters(t *testing.T) {
	// arrange
	store := givenMemoryStore(t)
	catalog, err := lending.NewCatalog(store)
	require.NoError(t, err)
	bookID := givenBookInCatalog(t, store, 2)

	// act
	removeErr := catalog.RemoveCopy(context.Background(), bookID)

	// assert
	require.NoError(t, removeErr)
	book, _, _ := store.FindBook(context.Background(), bookID)
	assert.Equal(t, 1, book.TotalCopies)
	assert.Equal(t, 1, book.AvailableCopies)
}

func Test_Catalog_RemoveCopy_RejectsWhenAllCopiesAreLentOut(t *testing.T) {
	// arrange
	store := givenMemoryStore(t)
	catalog, err := lending.NewCatalog(store)
	require.NoError(t, err)
	engine := givenEngineOverStore(t, store, testToday)

	bookID := givenBookInCatalog(t, store, 1)
	require.NoError(t, engine.CheckoutBook(context.Background(), uuid.New(), bookID))

	// act
	removeErr := catalog.RemoveCopy(context.Background(), bookID)

	// assert
	assert.ErrorIs(t, removeErr, lending.ErrNoCopiesAvailable)
	book, _, _ := store.FindBook(context.Background(), bookID)
	assert.Equal(t, 1, book.TotalCopies, "the lent copy must stay in stock")
}

func Test_Catalog_RemoveCopy_RejectsUnknownBook(t *testing.T) {
	catalog, err := lending.NewCatalog(givenMemoryStore(t))
	require.NoError(t, err)

	assert.ErrorIs(t, catalog.RemoveCopy(context.Background(), uuid.New()), lending.ErrBookNotFound)
}

func Test_NewCatalog_RejectsNilStore(t *testing.T) {
	_, err := lending.NewCatalog(nil)
	assert.ErrorIs(t, err, lending.ErrNilStore)
}
