package memorystore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/bookhaven/lending-go/lending"
	"github.com/bookhaven/lending-go/lending/memorystore"
)

func Test_Store_InsertAndFindBook(t *testing.T) {
	// arrange
	store := givenStore(t)
	book := givenBook(2)

	// act
	insertErr := inTx(store, lending.Scope{BookID: book.ID}, func(ctx context.Context, tx lending.StoreTx) error {
		return tx.InsertBook(ctx, book)
	})

	// assert
	require.NoError(t, insertErr)

	found, exists, findErr := store.FindBook(context.Background(), book.ID)
	require.NoError(t, findErr)
	require.True(t, exists)
	assert.Equal(t, book.Title, found.Title)
	assert.Equal(t, book.Genres, found.Genres)
}

func Test_Store_InsertBook_RejectsDuplicate(t *testing.T) {
	// arrange
	store := givenStore(t)
	book := givenBook(1)
	require.NoError(t, insertBook(store, book))

	// act
	err := insertBook(store, book)

	// assert
	assert.ErrorIs(t, err, lending.ErrBookAlreadyExists)
}

func Test_Store_GenresAreIsolatedFromCallerMutation(t *testing.T) {
	// arrange
	store := givenStore(t)
	book := givenBook(1)
	genres := book.Genres
	require.NoError(t, insertBook(store, book))

	// act: mutate the slice the caller handed in
	genres[0] = "mutated"

	// assert
	found, _, _ := store.FindBook(context.Background(), book.ID)
	assert.Equal(t, "fiction", found.Genres[0])

	// mutating the read result must not leak back either
	found.Genres[0] = "mutated again"
	foundAgain, _, _ := store.FindBook(context.Background(), book.ID)
	assert.Equal(t, "fiction", foundAgain.Genres[0])
}

func Test_Store_ConditionalCounterOps(t *testing.T) {
	// arrange
	store := givenStore(t)
	book := givenBook(1)
	require.NoError(t, insertBook(store, book))

	scope := lending.Scope{BookID: book.ID}

	// act + assert: reserve succeeds once, then reports exhaustion
	assertConditional(t, store, scope, true, func(ctx context.Context, tx lending.StoreTx) (bool, error) {
		return tx.ReserveCopy(ctx, book.ID)
	})
	assertConditional(t, store, scope, false, func(ctx context.Context, tx lending.StoreTx) (bool, error) {
		return tx.ReserveCopy(ctx, book.ID)
	})

	// release succeeds once, then reports full shelves
	assertConditional(t, store, scope, true, func(ctx context.Context, tx lending.StoreTx) (bool, error) {
		return tx.ReleaseCopy(ctx, book.ID)
	})
	assertConditional(t, store, scope, false, func(ctx context.Context, tx lending.StoreTx) (bool, error) {
		return tx.ReleaseCopy(ctx, book.ID)
	})

	// stock management moves both counters
	assertConditional(t, store, scope, true, func(ctx context.Context, tx lending.StoreTx) (bool, error) {
		return tx.AddCopy(ctx, book.ID)
	})
	assertConditional(t, store, scope, true, func(ctx context.Context, tx lending.StoreTx) (bool, error) {
		return tx.RemoveCopy(ctx, book.ID)
	})

	found, _, _ := store.FindBook(context.Background(), book.ID)
	assert.Equal(t, 1, found.TotalCopies)
	assert.Equal(t, 1, found.AvailableCopies)
}

func Test_Store_CounterOps_UnknownBookReportsFalse(t *testing.T) {
	// arrange
	store := givenStore(t)

	// act + assert
	scope := lending.Scope{BookID: uuid.New()}
	assertConditional(t, store, scope, false, func(ctx context.Context, tx lending.StoreTx) (bool, error) {
		return tx.ReserveCopy(ctx, scope.BookID)
	})
	assertConditional(t, store, scope, false, func(ctx context.Context, tx lending.StoreTx) (bool, error) {
		return tx.AddCopy(ctx, scope.BookID)
	})
}

func Test_Store_InsertLoan_RejectsDuplicatePair(t *testing.T) {
	// arrange
	store := givenStore(t)
	borrowerID := uuid.New()
	bookID := uuid.New()
	loan := givenLoan(borrowerID, bookID)
	require.NoError(t, insertLoan(store, loan))

	second := givenLoan(borrowerID, bookID)

	// act
	err := insertLoan(store, second)

	// assert
	assert.ErrorIs(t, err, lending.ErrAlreadyCheckedOut)
}

func Test_Store_DeleteLoan_ThenPairIsFreeAgain(t *testing.T) {
	// arrange
	store := givenStore(t)
	borrowerID := uuid.New()
	bookID := uuid.New()
	loan := givenLoan(borrowerID, bookID)
	require.NoError(t, insertLoan(store, loan))

	// act
	deleteErr := inTx(store, lending.Scope{BookID: bookID, BorrowerID: borrowerID},
		func(ctx context.Context, tx lending.StoreTx) error {
			return tx.DeleteLoan(ctx, loan.ID)
		})

	// assert
	require.NoError(t, deleteErr)
	_, exists, _ := store.FindLoan(context.Background(), borrowerID, bookID)
	assert.False(t, exists)

	require.NoError(t, insertLoan(store, givenLoan(borrowerID, bookID)))
}

func Test_Store_LoanCountByBook(t *testing.T) {
	// arrange
	store := givenStore(t)
	bookID := uuid.New()
	require.NoError(t, insertLoan(store, givenLoan(uuid.New(), bookID)))
	require.NoError(t, insertLoan(store, givenLoan(uuid.New(), bookID)))
	require.NoError(t, insertLoan(store, givenLoan(uuid.New(), uuid.New())))

	// act
	var count int
	err := inTx(store, lending.Scope{BookID: bookID}, func(ctx context.Context, tx lending.StoreTx) error {
		var countErr error
		count, countErr = tx.LoanCountByBook(ctx, bookID)
		return countErr
	})

	// assert
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func Test_Store_AddFee_RejectsNegativeAmount(t *testing.T) {
	// arrange
	store := givenStore(t)
	borrowerID := uuid.New()
	require.NoError(t, insertFeeBalance(store, borrowerID))

	// act
	err := inTx(store, lending.Scope{BorrowerID: borrowerID}, func(ctx context.Context, tx lending.StoreTx) error {
		return tx.AddFee(ctx, borrowerID, decimal.NewFromInt(-1))
	})

	// assert
	assert.Error(t, err)

	balance, _, _ := store.FindFeeBalance(context.Background(), borrowerID)
	assert.True(t, balance.Amount.IsZero())
}

func Test_Store_FeeBalanceLifecycle(t *testing.T) {
	// arrange
	store := givenStore(t)
	borrowerID := uuid.New()
	require.NoError(t, insertFeeBalance(store, borrowerID))

	// act
	err := inTx(store, lending.Scope{BorrowerID: borrowerID}, func(ctx context.Context, tx lending.StoreTx) error {
		if addErr := tx.AddFee(ctx, borrowerID, decimal.NewFromInt(3)); addErr != nil {
			return addErr
		}

		return tx.AddFee(ctx, borrowerID, decimal.NewFromInt(2))
	})
	require.NoError(t, err)

	// assert
	balance, _, _ := store.FindFeeBalance(context.Background(), borrowerID)
	assert.True(t, decimal.NewFromInt(5).Equal(balance.Amount))

	resetErr := inTx(store, lending.Scope{BorrowerID: borrowerID}, func(ctx context.Context, tx lending.StoreTx) error {
		return tx.ResetFeeBalance(ctx, borrowerID)
	})
	require.NoError(t, resetErr)

	balance, _, _ = store.FindFeeBalance(context.Background(), borrowerID)
	assert.True(t, balance.Amount.IsZero())
}

func Test_Store_HistoryOrderingAndPaging(t *testing.T) {
	// arrange
	store := givenStore(t)
	borrowerID := uuid.New()
	bookIDs := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	for i, bookID := range bookIDs {
		entry := lending.HistoryEntry{
			ID:         uuid.New(),
			BorrowerID: borrowerID,
			BookID:     bookID,
			BorrowedOn: time.Date(2025, 1, 1+i, 0, 0, 0, 0, time.UTC),
			ReturnedOn: time.Date(2025, 1, 8+i, 0, 0, 0, 0, time.UTC),
		}
		require.NoError(t, inTx(store, lending.Scope{BorrowerID: borrowerID},
			func(ctx context.Context, tx lending.StoreTx) error {
				return tx.AppendHistory(ctx, entry)
			}))
	}

	// act + assert: full result, most recent first
	full, err := store.HistoryByBorrower(context.Background(), borrowerID, 0, 0)
	require.NoError(t, err)
	require.Len(t, full, 3)
	assert.Equal(t, bookIDs[2], full[0].BookID)
	assert.Equal(t, bookIDs[0], full[2].BookID)

	// paged
	page, err := store.HistoryByBorrower(context.Background(), borrowerID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, bookIDs[1], page[0].BookID)

	// offset beyond the end
	empty, err := store.HistoryByBorrower(context.Background(), borrowerID, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func Test_Store_FailedTransactionLeavesNoTrace(t *testing.T) {
	// arrange
	store := givenStore(t)
	book := givenBook(2)
	require.NoError(t, insertBook(store, book))
	borrowerID := uuid.New()
	require.NoError(t, insertFeeBalance(store, borrowerID))

	boom := errors.New("boom")

	// act: a transaction that touches every record type, then fails
	err := inTx(store, lending.Scope{BookID: book.ID, BorrowerID: borrowerID},
		func(ctx context.Context, tx lending.StoreTx) error {
			if _, reserveErr := tx.ReserveCopy(ctx, book.ID); reserveErr != nil {
				return reserveErr
			}

			if insertErr := tx.InsertLoan(ctx, givenLoan(borrowerID, book.ID)); insertErr != nil {
				return insertErr
			}

			if addErr := tx.AddFee(ctx, borrowerID, decimal.NewFromInt(9)); addErr != nil {
				return addErr
			}

			if appendErr := tx.AppendHistory(ctx, lending.HistoryEntry{
				ID:         uuid.New(),
				BorrowerID: borrowerID,
				BookID:     book.ID,
			}); appendErr != nil {
				return appendErr
			}

			return boom
		})

	// assert
	assert.ErrorIs(t, err, boom)

	found, _, _ := store.FindBook(context.Background(), book.ID)
	assert.Equal(t, 2, found.AvailableCopies, "reserve must not be applied")

	_, loanExists, _ := store.FindLoan(context.Background(), borrowerID, book.ID)
	assert.False(t, loanExists, "loan insert must not be applied")

	balance, _, _ := store.FindFeeBalance(context.Background(), borrowerID)
	assert.True(t, balance.Amount.IsZero(), "fee add must not be applied")

	history, _ := store.HistoryByBorrower(context.Background(), borrowerID, 0, 0)
	assert.Empty(t, history, "history append must not be applied")
}

func Test_Store_FailedTransactionPreservesCommittedHistoryOnOtherScopes(t *testing.T) {
	// arrange
	store := givenStore(t)
	borrowerA := uuid.New()
	borrowerB := uuid.New()
	bookA := uuid.New()
	bookB := uuid.New()

	boom := errors.New("boom")

	// act: while one transaction holds a staged history append, a second
	// transaction on a disjoint scope commits its own entry; then the
	// first transaction fails
	err := inTx(store, lending.Scope{BookID: bookA, BorrowerID: borrowerA},
		func(ctx context.Context, tx lending.StoreTx) error {
			if appendErr := tx.AppendHistory(ctx, lending.HistoryEntry{
				ID:         uuid.New(),
				BorrowerID: borrowerA,
				BookID:     bookA,
			}); appendErr != nil {
				return appendErr
			}

			committedErr := inTx(store, lending.Scope{BookID: bookB, BorrowerID: borrowerB},
				func(ctx context.Context, innerTx lending.StoreTx) error {
					return innerTx.AppendHistory(ctx, lending.HistoryEntry{
						ID:         uuid.New(),
						BorrowerID: borrowerB,
						BookID:     bookB,
					})
				})
			if committedErr != nil {
				return committedErr
			}

			return boom
		})

	// assert
	assert.ErrorIs(t, err, boom)

	committed, _ := store.HistoryByBorrower(context.Background(), borrowerB, 0, 0)
	require.Len(t, committed, 1, "committed entry on the other scope must survive")
	assert.Equal(t, bookB, committed[0].BookID)

	discarded, _ := store.HistoryByBorrower(context.Background(), borrowerA, 0, 0)
	assert.Empty(t, discarded, "the failed transaction's entry must not appear")
}

func Test_Store_ReadersNeverObservePartialReturns(t *testing.T) {
	// arrange: one copy, lent out
	store := givenStore(t)
	book := givenBook(1)
	require.NoError(t, insertBook(store, book))
	loan := givenLoan(uuid.New(), book.ID)
	require.NoError(t, insertLoan(store, loan))
	require.NoError(t, inTx(store, lending.Scope{BookID: book.ID}, func(ctx context.Context, tx lending.StoreTx) error {
		reserved, err := tx.ReserveCopy(ctx, book.ID)
		require.True(t, reserved)
		return err
	}))

	// act: delete the loan, then read the shared state before the copy
	// counter is restored and before the transaction commits
	err := inTx(store, lending.Scope{BookID: book.ID, BorrowerID: loan.BorrowerID},
		func(ctx context.Context, tx lending.StoreTx) error {
			if deleteErr := tx.DeleteLoan(ctx, loan.ID); deleteErr != nil {
				return deleteErr
			}

			_, loanVisible, _ := store.FindLoan(context.Background(), loan.BorrowerID, book.ID)
			assert.True(t, loanVisible, "readers must still see the loan before commit")

			midway, _, _ := store.FindBook(context.Background(), book.ID)
			assert.Equal(t, 0, midway.AvailableCopies, "readers must not see the counter move early")

			released, releaseErr := tx.ReleaseCopy(ctx, book.ID)
			require.True(t, released)

			return releaseErr
		})

	// assert: after commit both changes land together
	require.NoError(t, err)

	_, loanVisible, _ := store.FindLoan(context.Background(), loan.BorrowerID, book.ID)
	assert.False(t, loanVisible)

	after, _, _ := store.FindBook(context.Background(), book.ID)
	assert.Equal(t, 1, after.AvailableCopies)
}

func Test_Store_ContextCancellationShortCircuits(t *testing.T) {
	// arrange
	store := givenStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// act
	err := store.InTransaction(ctx, lending.Scope{BookID: uuid.New()},
		func(ctx context.Context, tx lending.StoreTx) error {
			t.Fatal("transaction body must not run after cancellation")
			return nil
		})

	// assert
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_Store_DisjointScopesRunConcurrently(t *testing.T) {
	// arrange: many borrowers hammering many distinct books
	store := givenStore(t)

	const books = 4
	const workersPerBook = 8

	bookIDs := make([]uuid.UUID, books)
	for i := range bookIDs {
		book := givenBook(workersPerBook)
		bookIDs[i] = book.ID
		require.NoError(t, insertBook(store, book))
	}

	// act
	group := errgroup.Group{}
	for _, bookID := range bookIDs {
		for w := 0; w < workersPerBook; w++ {
			group.Go(func() error {
				return inTx(store, lending.Scope{BookID: bookID, BorrowerID: uuid.New()},
					func(ctx context.Context, tx lending.StoreTx) error {
						reserved, err := tx.ReserveCopy(ctx, bookID)
						if err != nil {
							return err
						}
						if !reserved {
							return errors.New("copy pool exhausted")
						}

						return nil
					})
			})
		}
	}

	// assert: every worker got a copy, every pool drained to exactly zero
	require.NoError(t, group.Wait())

	for _, bookID := range bookIDs {
		book, _, _ := store.FindBook(context.Background(), bookID)
		assert.Equal(t, 0, book.AvailableCopies)
		assert.Equal(t, workersPerBook, book.TotalCopies)
	}
}

// --- test fixtures ---

func givenStore(t *testing.T) *memorystore.Store {
	t.Helper()

	store, err := memorystore.NewStore()
	require.NoError(t, err)

	return store
}

func givenBook(copies int) lending.Book {
	return lending.Book{
		ID:              uuid.New(),
		Title:           "A Book",
		Author:          "An Author",
		Genres:          []string{"fiction"},
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
}

func givenLoan(borrowerID uuid.UUID, bookID uuid.UUID) lending.Loan {
	borrowedOn := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	return lending.Loan{
		ID:         uuid.New(),
		BorrowerID: borrowerID,
		BookID:     bookID,
		BorrowedOn: borrowedOn,
		DueOn:      borrowedOn.AddDate(0, 0, 7),
	}
}

func inTx(store *memorystore.Store, scope lending.Scope, fn func(ctx context.Context, tx lending.StoreTx) error) error {
	return store.InTransaction(context.Background(), scope, fn)
}

func insertBook(store *memorystore.Store, book lending.Book) error {
	return inTx(store, lending.Scope{BookID: book.ID}, func(ctx context.Context, tx lending.StoreTx) error {
		return tx.InsertBook(ctx, book)
	})
}

func insertLoan(store *memorystore.Store, loan lending.Loan) error {
	return inTx(store, lending.Scope{BookID: loan.BookID, BorrowerID: loan.BorrowerID},
		func(ctx context.Context, tx lending.StoreTx) error {
			return tx.InsertLoan(ctx, loan)
		})
}

func insertFeeBalance(store *memorystore.Store, borrowerID uuid.UUID) error {
	return inTx(store, lending.Scope{BorrowerID: borrowerID}, func(ctx context.Context, tx lending.StoreTx) error {
		return tx.InsertFeeBalance(ctx, lending.NewFeeBalance(borrowerID))
	})
}

func assertConditional(
	t *testing.T,
	store *memorystore.Store,
	scope lending.Scope,
	expected bool,
	op func(ctx context.Context, tx lending.StoreTx) (bool, error),
) {
	t.Helper()

	var applied bool
	err := inTx(store, scope, func(ctx context.Context, tx lending.StoreTx) error {
		var opErr error
		applied, opErr = op(ctx, tx)
		return opErr
	})

	require.NoError(t, err)
	assert.Equal(t, expected, applied)
}
