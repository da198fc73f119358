package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bookhaven/lending-go/lending"
)

const (
	logMsgConfirmationSettled  = "settlement confirmation processed"
	logMsgConfirmationRejected = "settlement confirmation rejected"
	logMsgNothingOwed          = "settlement confirmation for clean balance"

	logAttrBorrowerID = "borrower_id"
	logAttrReference  = "reference"
	logAttrAmount     = "amount"
	logAttrError      = "error"
)

var (
	// ErrMissingBorrower is returned when a confirmation carries no borrower id.
	ErrMissingBorrower = errors.New("settlement confirmation must name a borrower")

	// ErrMissingReference is returned when a confirmation carries no gateway reference.
	ErrMissingReference = errors.New("settlement confirmation must carry a gateway reference")

	// ErrNilSettler is returned when NewProcessor is given a nil settler.
	ErrNilSettler = errors.New("settler must not be nil")
)

// FeeSettler is the slice of the lending engine the processor needs.
// SettleFees reports the amount it cleared, read in the same transaction as
// the reset, so receipts stay exact even when a fee accrues concurrently.
type FeeSettler interface {
	SettleFees(ctx context.Context, borrowerID uuid.UUID) (decimal.Decimal, error)
	OutstandingFee(ctx context.Context, borrowerID uuid.UUID) (decimal.Decimal, error)
}

// Confirmation is a gateway's report that a charge for a borrower's
// outstanding fees went through. Reference identifies the charge on the
// gateway side and is carried through to the logs for reconciliation.
type Confirmation struct {
	BorrowerID  uuid.UUID
	Reference   string
	ConfirmedAt time.Time
}

// Receipt reports what a processed confirmation settled.
type Receipt struct {
	BorrowerID    uuid.UUID
	Reference     string
	AmountSettled decimal.Decimal
	ProcessedAt   time.Time
}

// Processor clears borrower fee balances in response to gateway confirmations.
type Processor struct {
	settler FeeSettler
	clock   lending.Clock
	logger  lending.Logger
}

// Option configures the Processor.
type Option func(*Processor) error

// WithLogger attaches an operational logger.
func WithLogger(logger lending.Logger) Option {
	return func(p *Processor) error {
		p.logger = logger
		return nil
	}
}

// WithClock overrides the wall clock, used by tests.
func WithClock(clock lending.Clock) Option {
	return func(p *Processor) error {
		p.clock = clock
		return nil
	}
}

// NewProcessor creates a Processor over the given settler.
func NewProcessor(settler FeeSettler, options ...Option) (Processor, error) {
	if settler == nil {
		return Processor{}, ErrNilSettler
	}

	processor := Processor{
		settler: settler,
		clock:   lending.SystemClock(),
	}

	for _, option := range options {
		if err := option(&processor); err != nil {
			return Processor{}, err
		}
	}

	return processor, nil
}

// Process applies one gateway confirmation: it clears the borrower's balance
// and returns a receipt over the amount the settlement actually removed.
// Re-processing a confirmation whose balance is already clean yields a
// receipt with a zero amount.
func (p Processor) Process(ctx context.Context, confirmation Confirmation) (Receipt, error) {
	if confirmation.BorrowerID == uuid.Nil {
		p.logRejection(confirmation, ErrMissingBorrower)
		return Receipt{}, ErrMissingBorrower
	}

	if confirmation.Reference == "" {
		p.logRejection(confirmation, ErrMissingReference)
		return Receipt{}, ErrMissingReference
	}

	settled, err := p.settler.SettleFees(ctx, confirmation.BorrowerID)
	if err != nil {
		return Receipt{}, err
	}

	receipt := Receipt{
		BorrowerID:    confirmation.BorrowerID,
		Reference:     confirmation.Reference,
		AmountSettled: settled,
		ProcessedAt:   p.clock.Now(),
	}

	p.logOutcome(receipt)

	return receipt, nil
}

// Outstanding reports the amount the gateway should charge for a borrower.
func (p Processor) Outstanding(ctx context.Context, borrowerID uuid.UUID) (decimal.Decimal, error) {
	if borrowerID == uuid.Nil {
		return decimal.Zero, ErrMissingBorrower
	}

	return p.settler.OutstandingFee(ctx, borrowerID)
}

func (p Processor) logOutcome(receipt Receipt) {
	if p.logger == nil {
		return
	}

	msg := logMsgConfirmationSettled
	if receipt.AmountSettled.IsZero() {
		msg = logMsgNothingOwed
	}

	p.logger.Info(msg,
		logAttrBorrowerID, receipt.BorrowerID.String(),
		logAttrReference, receipt.Reference,
		logAttrAmount, receipt.AmountSettled.String(),
	)
}

func (p Processor) logRejection(confirmation Confirmation, cause error) {
	if p.logger == nil {
		return
	}

	p.logger.Warn(logMsgConfirmationRejected,
		logAttrBorrowerID, confirmation.BorrowerID.String(),
		logAttrReference, confirmation.Reference,
		logAttrError, cause.Error(),
	)
}
