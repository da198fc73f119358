package lending

import (
	"time"

	"github.com/google/uuid"
)

// Loan is an active checkout linking a borrower to one copy of a book for a
// bounded period. At most one active Loan exists per (borrower, book) pair.
// Both dates are UTC calendar dates (see DateOf).
type Loan struct {
	ID         uuid.UUID
	BorrowerID uuid.UUID
	BookID     uuid.UUID
	BorrowedOn time.Time
	DueOn      time.Time
}

// IsOverdueOn reports whether the loan is overdue on the given calendar date.
// A loan due today is not yet overdue.
func (l Loan) IsOverdueOn(today time.Time) bool {
	return DateOf(l.DueOn).Before(DateOf(today))
}

// DaysLeftOn returns the number of whole days until the due date, negative
// when the loan is overdue.
func (l Loan) DaysLeftOn(today time.Time) int {
	return DaysBetween(today, l.DueOn)
}

// CheckedOutBook pairs an active loan with its days-left value computed at
// query time, for UI and reporting callers.
type CheckedOutBook struct {
	Loan     Loan
	DaysLeft int
}
