package lending

import (
	"errors"
)

// Kind classifies a domain error for callers that need to translate it into a
// transport-level response without matching individual sentinels.
type Kind uint8

const (
	// KindUnknown marks errors that did not originate from the lending rules,
	// typically store or infrastructure failures.
	KindUnknown Kind = iota

	// KindNotFound marks errors where a referenced record does not exist
	// although existence was assumed.
	KindNotFound

	// KindConflict marks business-rule violations given current state. They
	// represent valid business outcomes and are recoverable by the caller.
	KindConflict

	// KindIntegrity marks violations of the engine's atomic multi-write
	// guarantees. They are defects, not user-facing conditions.
	KindIntegrity
)

// DomainError is a lending business error carrying its Kind.
// The predeclared sentinel errors below are all of this type, so both
// errors.Is against a sentinel and KindOf work on wrapped errors.
type DomainError struct {
	kind Kind
	msg  string
}

func (e *DomainError) Error() string {
	return e.msg
}

// Kind returns the error classification.
func (e *DomainError) Kind() Kind {
	return e.kind
}

func notFoundError(msg string) *DomainError {
	return &DomainError{kind: KindNotFound, msg: msg}
}

func conflictError(msg string) *DomainError {
	return &DomainError{kind: KindConflict, msg: msg}
}

func integrityError(msg string) *DomainError {
	return &DomainError{kind: KindIntegrity, msg: msg}
}

var (
	// ErrBookNotFound is returned when the referenced book does not exist.
	ErrBookNotFound = notFoundError("book not found")

	// ErrNoCopiesAvailable is returned by checkout when no copy of the book is available.
	ErrNoCopiesAvailable = conflictError("no copies of this book are available")

	// ErrAlreadyCheckedOut is returned by checkout when the borrower already holds
	// an active loan for the book.
	ErrAlreadyCheckedOut = conflictError("book is already checked out by this borrower")

	// ErrOutstandingDebtOrOverdue is returned by checkout when the borrower has an
	// overdue loan or a positive fee balance.
	ErrOutstandingDebtOrOverdue = conflictError("borrower has outstanding fees or overdue books")

	// ErrNotCheckedOut is returned by renewal and return when no active loan exists
	// for the borrower and book.
	ErrNotCheckedOut = conflictError("book is not checked out by this borrower")

	// ErrLoanOverdue is returned by renewal when the loan's due date has passed.
	ErrLoanOverdue = conflictError("loan is overdue and cannot be renewed")

	// ErrFeeBalanceNotFound is returned by return and settlement when the borrower
	// has no fee balance record. Checkout always creates one, so this signals a
	// prior integrity violation rather than a normal business state.
	ErrFeeBalanceNotFound = notFoundError("fee balance not found")

	// ErrCopyCountersCorrupted is returned when a copy-counter update would break
	// the 0 <= available <= total invariant, e.g. returning a loan while the book
	// already shows all copies available. Correct transaction scoping makes this
	// unreachable.
	ErrCopyCountersCorrupted = integrityError("book copy counters are inconsistent with active loans")

	// ErrInvalidBook is returned by catalog operations for a book record that
	// violates the entity invariants (empty title, negative counters, more
	// available than total copies).
	ErrInvalidBook = conflictError("book record violates entity invariants")

	// ErrBookHasActiveLoans is returned when removing a book that still has
	// active loans against it.
	ErrBookHasActiveLoans = conflictError("book still has active loans")

	// ErrBookAlreadyExists is returned when inserting a book whose identity is
	// already present in the catalog.
	ErrBookAlreadyExists = conflictError("book already exists")

	// ErrStoreContention is returned by store implementations when a transaction
	// lost a serialization or deadlock race and can safely be retried by the
	// caller after re-reading state. The engine itself never retries.
	ErrStoreContention = errors.New("store contention, transaction may be retried")

	// ErrNilStore is returned by constructors when no store is supplied.
	ErrNilStore = errors.New("store must not be nil")
)

// KindOf reports the Kind of err, unwrapping as needed.
// Errors that are not DomainErrors report KindUnknown.
func KindOf(err error) Kind {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind()
	}

	return KindUnknown
}
