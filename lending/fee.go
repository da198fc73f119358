package lending

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeBalance is a borrower's accumulated, unpaid overdue-fee total.
// It is created with a zero amount on the borrower's first successful
// checkout. The amount only grows, in whole fee units per overdue day, until
// a confirmed settlement resets it to exactly zero.
type FeeBalance struct {
	BorrowerID uuid.UUID
	Amount     decimal.Decimal
}

// NewFeeBalance returns a zero balance for the borrower.
func NewFeeBalance(borrowerID uuid.UUID) FeeBalance {
	return FeeBalance{BorrowerID: borrowerID, Amount: decimal.Zero}
}

// Owes reports whether the borrower has unpaid fees.
func (f FeeBalance) Owes() bool {
	return f.Amount.IsPositive()
}
