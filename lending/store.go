package lending

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogAccess is the catalog store contract: book records and their copy
// counters. The conditional counter operations are single atomic steps; their
// boolean result reports whether the guarded condition held. No business rules
// live here, only storage invariants.
type CatalogAccess interface {
	// FindBook returns the book and whether it exists.
	FindBook(ctx context.Context, bookID uuid.UUID) (Book, bool, error)

	// InsertBook creates a new book record.
	InsertBook(ctx context.Context, book Book) error

	// DeleteBook removes a book record. Returns false when no such book exists.
	DeleteBook(ctx context.Context, bookID uuid.UUID) (bool, error)

	// ReserveCopy atomically decrements AvailableCopies if it is positive.
	// Returns false when no copy was available (or the book does not exist).
	ReserveCopy(ctx context.Context, bookID uuid.UUID) (bool, error)

	// ReleaseCopy atomically increments AvailableCopies if it is below
	// TotalCopies. Returns false when the increment would exceed TotalCopies.
	ReleaseCopy(ctx context.Context, bookID uuid.UUID) (bool, error)

	// AddCopy increments both TotalCopies and AvailableCopies.
	// Returns false when the book does not exist.
	AddCopy(ctx context.Context, bookID uuid.UUID) (bool, error)

	// RemoveCopy atomically decrements both counters if an un-lent copy exists
	// (both counters positive). Returns false otherwise.
	RemoveCopy(ctx context.Context, bookID uuid.UUID) (bool, error)
}

// LedgerAccess is the ledger store contract: active loans and per-borrower
// fee balances, looked up by their natural keys.
type LedgerAccess interface {
	// FindLoan returns the active loan for the (borrower, book) pair and
	// whether it exists.
	FindLoan(ctx context.Context, borrowerID uuid.UUID, bookID uuid.UUID) (Loan, bool, error)

	// LoansByBorrower returns all active loans held by the borrower.
	LoansByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]Loan, error)

	// LoanCountByBook returns the number of active loans against the book.
	LoanCountByBook(ctx context.Context, bookID uuid.UUID) (int, error)

	// InsertLoan creates an active loan. Implementations back the
	// at-most-one-active-loan invariant with a uniqueness constraint on the
	// (borrower, book) pair and return ErrAlreadyCheckedOut on violation.
	InsertLoan(ctx context.Context, loan Loan) error

	// UpdateLoanDueDate moves the loan's due date.
	UpdateLoanDueDate(ctx context.Context, loanID uuid.UUID, dueOn time.Time) error

	// DeleteLoan removes an active loan.
	DeleteLoan(ctx context.Context, loanID uuid.UUID) error

	// FindFeeBalance returns the borrower's fee balance and whether it exists.
	FindFeeBalance(ctx context.Context, borrowerID uuid.UUID) (FeeBalance, bool, error)

	// InsertFeeBalance creates a fee balance record.
	InsertFeeBalance(ctx context.Context, balance FeeBalance) error

	// AddFee adds the amount to the borrower's fee balance.
	AddFee(ctx context.Context, borrowerID uuid.UUID, amount decimal.Decimal) error

	// ResetFeeBalance sets the borrower's fee balance to zero.
	ResetFeeBalance(ctx context.Context, borrowerID uuid.UUID) error
}

// HistoryAccess is the history store contract: the append-only audit trail of
// completed loans.
type HistoryAccess interface {
	// AppendHistory appends a completed-loan record.
	AppendHistory(ctx context.Context, entry HistoryEntry) error

	// HistoryByBorrower returns the borrower's completed loans, most recent
	// first. limit <= 0 means no limit.
	HistoryByBorrower(ctx context.Context, borrowerID uuid.UUID, limit int, offset int) ([]HistoryEntry, error)
}

// StoreTx combines the three store contracts inside one transaction. All
// writes performed through a StoreTx commit or roll back as a unit.
type StoreTx interface {
	CatalogAccess
	LedgerAccess
	HistoryAccess
}

// Scope names the records a transaction will contend on. Implementations that
// serialize with locks take them in a fixed order (book before borrower), so
// transactions on disjoint scopes do not block each other. Implementations
// with row-level concurrency may ignore the scope. A zero uuid means the
// operation does not touch that dimension.
type Scope struct {
	BookID     uuid.UUID
	BorrowerID uuid.UUID
}

// Store is the persistence contract consumed by the Engine. The read methods
// outside InTransaction serve the query surface; they take no locks beyond
// normal read consistency and must not be used for read-then-write sequences.
type Store interface {
	// InTransaction runs fn inside a single transaction covering all three
	// store contracts. When fn returns an error the transaction rolls back
	// and the error is returned unchanged (possibly wrapped with store
	// context). Implementations return ErrStoreContention for serialization
	// races that a caller may retry.
	InTransaction(ctx context.Context, scope Scope, fn func(ctx context.Context, tx StoreTx) error) error

	// FindBook is the lock-free read used by the query surface.
	FindBook(ctx context.Context, bookID uuid.UUID) (Book, bool, error)

	// FindLoan is the lock-free read used by the query surface.
	FindLoan(ctx context.Context, borrowerID uuid.UUID, bookID uuid.UUID) (Loan, bool, error)

	// LoansByBorrower is the lock-free read used by the query surface.
	LoansByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]Loan, error)

	// FindFeeBalance is the lock-free read used by the query surface.
	FindFeeBalance(ctx context.Context, borrowerID uuid.UUID) (FeeBalance, bool, error)

	// HistoryByBorrower is the lock-free read used by the query surface.
	HistoryByBorrower(ctx context.Context, borrowerID uuid.UUID, limit int, offset int) ([]HistoryEntry, error)
}
