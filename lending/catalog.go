package lending

import (
	"context"

	"github.com/google/uuid"
)

const (
	opAddBook    = "add_book"
	opRemoveBook = "remove_book"
	opAddCopy    = "add_copy"
	opRemoveCopy = "remove_copy"
)

// Catalog exposes the catalog-management operations: creating and removing
// book records and adjusting their stock. Stock adjustment is two distinct
// named operations, AddCopy and RemoveCopy; there is no mode flag. The
// operations share the Engine's store, so a stock change and a concurrent
// checkout serialize on the same book record and the 0 <= available <= total
// invariant holds across both paths.
type Catalog struct {
	store  Store
	logger Logger
}

// CatalogOption defines a functional option for configuring a Catalog.
type CatalogOption func(*Catalog) error

// WithCatalogLogger sets the logger for the Catalog.
func WithCatalogLogger(logger Logger) CatalogOption {
	return func(c *Catalog) error {
		c.logger = logger
		return nil
	}
}

// NewCatalog creates a Catalog over the given store with optional configuration.
func NewCatalog(store Store, options ...CatalogOption) (Catalog, error) {
	if store == nil {
		return Catalog{}, ErrNilStore
	}

	catalog := Catalog{store: store}

	for _, option := range options {
		if err := option(&catalog); err != nil {
			return Catalog{}, err
		}
	}

	return catalog, nil
}

// AddBook creates a new book record. The record must satisfy the entity
// invariants (see Book.Validate); a new book normally starts with
// AvailableCopies == TotalCopies.
func (c Catalog) AddBook(ctx context.Context, book Book) error {
	if err := book.Validate(); err != nil {
		return err
	}

	err := c.store.InTransaction(ctx, Scope{BookID: book.ID},
		func(ctx context.Context, tx StoreTx) error {
			return tx.InsertBook(ctx, book)
		})

	c.logOutcome(opAddBook, book.ID, err)

	return err
}

// RemoveBook deletes a book record. A book with active loans cannot be
// removed; the loans have to be returned first.
func (c Catalog) RemoveBook(ctx context.Context, bookID uuid.UUID) error {
	err := c.store.InTransaction(ctx, Scope{BookID: bookID},
		func(ctx context.Context, tx StoreTx) error {
			loanCount, countErr := tx.LoanCountByBook(ctx, bookID)
			if countErr != nil {
				return countErr
			}

			if loanCount > 0 {
				return ErrBookHasActiveLoans
			}

			deleted, deleteErr := tx.DeleteBook(ctx, bookID)
			if deleteErr != nil {
				return deleteErr
			}

			if !deleted {
				return ErrBookNotFound
			}

			return nil
		})

	c.logOutcome(opRemoveBook, bookID, err)

	return err
}

// AddCopy adds one physical copy to the book's stock, raising both the total
// and the available counter.
func (c Catalog) AddCopy(ctx context.Context, bookID uuid.UUID) error {
	err := c.store.InTransaction(ctx, Scope{BookID: bookID},
		func(ctx context.Context, tx StoreTx) error {
			added, addErr := tx.AddCopy(ctx, bookID)
			if addErr != nil {
				return addErr
			}

			if !added {
				return ErrBookNotFound
			}

			return nil
		})

	c.logOutcome(opAddCopy, bookID, err)

	return err
}

// RemoveCopy removes one un-lent physical copy from the book's stock,
// lowering both counters. Copies currently out on loan cannot be removed;
// when every copy is lent out (or stock is already zero) the operation fails
// with ErrNoCopiesAvailable.
func (c Catalog) RemoveCopy(ctx context.Context, bookID uuid.UUID) error {
	err := c.store.InTransaction(ctx, Scope{BookID: bookID},
		func(ctx context.Context, tx StoreTx) error {
			_, found, findErr := tx.FindBook(ctx, bookID)
			if findErr != nil {
				return findErr
			}

			if !found {
				return ErrBookNotFound
			}

			removed, removeErr := tx.RemoveCopy(ctx, bookID)
			if removeErr != nil {
				return removeErr
			}

			if !removed {
				return ErrNoCopiesAvailable
			}

			return nil
		})

	c.logOutcome(opRemoveCopy, bookID, err)

	return err
}

func (c Catalog) logOutcome(operation string, bookID uuid.UUID, err error) {
	if c.logger == nil {
		return
	}

	if err == nil {
		c.logger.Info(logMsgOperationCompleted+operation, logAttrBookID, bookID.String())
		return
	}

	if KindOf(err) == KindUnknown {
		c.logger.Error(logMsgOperationFailed+operation, logAttrBookID, bookID.String(), logAttrError, err.Error())
		return
	}

	c.logger.Info(logMsgOperationRejected+operation, logAttrBookID, bookID.String(), logAttrError, err.Error())
}
