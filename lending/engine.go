package lending

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultLoanPeriodDays is the loan period applied by checkout and renewal
// unless overridden with WithLoanPeriod.
const DefaultLoanPeriodDays = 7

const (
	opCheckoutBook  = "checkout_book"
	opRenewCheckout = "renew_checkout"
	opReturnBook    = "return_book"
	opSettleFees    = "settle_fees"

	logMsgOperationCompleted = "lending operation completed: "
	logMsgOperationRejected  = "lending operation rejected: "
	logMsgOperationFailed    = "lending operation failed: "
	logMsgIntegrityFault     = "integrity fault detected: "

	logAttrBorrowerID  = "borrower_id"
	logAttrBookID      = "book_id"
	logAttrError       = "error"
	logAttrDurationMS  = "duration_ms"
	logAttrDueOn       = "due_on"
	logAttrOverdueDays = "overdue_days"
	logAttrFeeAdded    = "fee_added"

	errorKindNotFound  = "not_found"
	errorKindConflict  = "conflict"
	errorKindIntegrity = "integrity"

	spanNamePrefix     = "lending."
	spanStatusSuccess  = "success"
	spanStatusError    = "error"
	spanStatusConflict = "conflict"
)

// Engine orchestrates the lending lifecycle against a Store, enforcing all
// business rules. It is the sole writer of Loan, FeeBalance, and HistoryEntry
// records and the only lending-path writer of the Book copy counters.
//
// Every mutating operation runs as one request-scoped store transaction; no
// operation is retried by the Engine itself, since retrying a conflict without
// re-validation could violate the invariants. Callers that want to retry
// transient store contention can wrap calls with the retry subpackage.
type Engine struct {
	store            Store
	clock            Clock
	loanPeriodDays   int
	feePerDay        decimal.Decimal
	logger           Logger
	contextualLogger ContextualLogger
	metrics          MetricsCollector
	tracing          TracingCollector
}

// Option defines a functional option for configuring an Engine.
type Option func(*Engine) error

// WithClock sets the clock used for "today" computations.
func WithClock(clock Clock) Option {
	return func(e *Engine) error {
		if clock == nil {
			return errors.New("clock must not be nil")
		}

		e.clock = clock

		return nil
	}
}

// WithLoanPeriod sets the loan period in days for checkout and renewal.
func WithLoanPeriod(days int) Option {
	return func(e *Engine) error {
		if days <= 0 {
			return errors.New("loan period must be positive")
		}

		e.loanPeriodDays = days

		return nil
	}
}

// WithFeePerDay sets the fee accrued per overdue day on late returns.
func WithFeePerDay(amount decimal.Decimal) Option {
	return func(e *Engine) error {
		if amount.IsNegative() {
			return errors.New("fee per day must not be negative")
		}

		e.feePerDay = amount

		return nil
	}
}

// WithLogger sets the logger for the Engine.
//
// Debug level: per-operation timing (development use)
// Info level: completed operations and rejected conflicts (production-safe)
// Error level: store failures and integrity faults.
func WithLogger(logger Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger. When both a Logger and a
// ContextualLogger are configured, the contextual one wins.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(e *Engine) error {
		e.contextualLogger = logger
		return nil
	}
}

// WithMetricsCollector sets the metrics collector for the Engine.
func WithMetricsCollector(collector MetricsCollector) Option {
	return func(e *Engine) error {
		e.metrics = collector
		return nil
	}
}

// WithTracingCollector sets the tracing collector for the Engine. A span is
// opened around every mutating operation and finished with the outcome.
func WithTracingCollector(collector TracingCollector) Option {
	return func(e *Engine) error {
		e.tracing = collector
		return nil
	}
}

// NewEngine creates an Engine over the given store with optional configuration.
func NewEngine(store Store, options ...Option) (Engine, error) {
	if store == nil {
		return Engine{}, ErrNilStore
	}

	engine := Engine{
		store:          store,
		clock:          SystemClock(),
		loanPeriodDays: DefaultLoanPeriodDays,
		feePerDay:      decimal.NewFromInt(1),
	}

	for _, option := range options {
		if err := option(&engine); err != nil {
			return Engine{}, err
		}
	}

	return engine, nil
}

// CheckoutBook creates an active loan for the (borrower, book) pair and
// reserves one copy of the book.
//
// Preconditions, checked in order, each a distinct failure:
//  1. the book exists, else ErrBookNotFound
//  2. a copy is available, else ErrNoCopiesAvailable
//  3. no active loan exists for the pair, else ErrAlreadyCheckedOut
//  4. the borrower has no overdue loan and a zero fee balance,
//     else ErrOutstandingDebtOrOverdue
//
// On success the loan is due in the configured loan period, and a zero fee
// balance is created for the borrower if none exists yet. The availability
// check and the counter decrement are one atomic conditional write, so two
// concurrent checkouts can never both take the last copy.
func (e Engine) CheckoutBook(ctx context.Context, borrowerID uuid.UUID, bookID uuid.UUID) error {
	today := DateOf(e.clock.Now())
	start := time.Now()
	ctx, span := e.startSpan(ctx, opCheckoutBook, borrowerID, bookID)

	err := e.store.InTransaction(ctx, Scope{BookID: bookID, BorrowerID: borrowerID},
		func(ctx context.Context, tx StoreTx) error {
			book, found, findErr := tx.FindBook(ctx, bookID)
			if findErr != nil {
				return findErr
			}

			if !found {
				return ErrBookNotFound
			}

			if book.AvailableCopies <= 0 {
				return ErrNoCopiesAvailable
			}

			_, loanExists, findLoanErr := tx.FindLoan(ctx, borrowerID, bookID)
			if findLoanErr != nil {
				return findLoanErr
			}

			if loanExists {
				return ErrAlreadyCheckedOut
			}

			loans, loansErr := tx.LoansByBorrower(ctx, borrowerID)
			if loansErr != nil {
				return loansErr
			}

			for _, loan := range loans {
				if loan.IsOverdueOn(today) {
					return ErrOutstandingDebtOrOverdue
				}
			}

			balance, balanceExists, balanceErr := tx.FindFeeBalance(ctx, borrowerID)
			if balanceErr != nil {
				return balanceErr
			}

			if balanceExists && balance.Owes() {
				return ErrOutstandingDebtOrOverdue
			}

			// The conditional decrement re-checks availability; a concurrent
			// checkout may have taken the last copy since the read above.
			reserved, reserveErr := tx.ReserveCopy(ctx, bookID)
			if reserveErr != nil {
				return reserveErr
			}

			if !reserved {
				return ErrNoCopiesAvailable
			}

			if !balanceExists {
				if insertErr := tx.InsertFeeBalance(ctx, NewFeeBalance(borrowerID)); insertErr != nil {
					return insertErr
				}
			}

			loan := Loan{
				ID:         uuid.New(),
				BorrowerID: borrowerID,
				BookID:     bookID,
				BorrowedOn: today,
				DueOn:      today.AddDate(0, 0, e.loanPeriodDays),
			}

			return tx.InsertLoan(ctx, loan)
		})

	e.observeOperation(ctx, opCheckoutBook, borrowerID, bookID, start, err)
	e.finishSpan(span, err)

	return err
}

// RenewCheckout extends the active loan's due date by a full loan period from
// today. A loan due today is still renewable; an overdue loan is rejected with
// ErrLoanOverdue. Renewal never touches the copy counters.
func (e Engine) RenewCheckout(ctx context.Context, borrowerID uuid.UUID, bookID uuid.UUID) error {
	today := DateOf(e.clock.Now())
	start := time.Now()
	ctx, span := e.startSpan(ctx, opRenewCheckout, borrowerID, bookID)

	err := e.store.InTransaction(ctx, Scope{BookID: bookID, BorrowerID: borrowerID},
		func(ctx context.Context, tx StoreTx) error {
			loan, found, findErr := tx.FindLoan(ctx, borrowerID, bookID)
			if findErr != nil {
				return findErr
			}

			if !found {
				return ErrNotCheckedOut
			}

			if loan.IsOverdueOn(today) {
				return ErrLoanOverdue
			}

			return tx.UpdateLoanDueDate(ctx, loan.ID, today.AddDate(0, 0, e.loanPeriodDays))
		})

	e.observeOperation(ctx, opRenewCheckout, borrowerID, bookID, start, err)
	e.finishSpan(span, err)

	return err
}

// ReturnBook completes the active loan for the (borrower, book) pair: when the
// loan is overdue, one fee unit per overdue day is added to the borrower's fee
// balance; the loan is deleted, a history entry with today's return date is
// appended, and the book's available-copies counter is restored. The four
// writes commit as one transaction; a partial application is never observable.
//
// A missing fee balance during an overdue return is a data-integrity fault
// (checkout always creates one) and is reported as ErrFeeBalanceNotFound.
func (e Engine) ReturnBook(ctx context.Context, borrowerID uuid.UUID, bookID uuid.UUID) error {
	today := DateOf(e.clock.Now())
	start := time.Now()
	ctx, span := e.startSpan(ctx, opReturnBook, borrowerID, bookID)

	err := e.store.InTransaction(ctx, Scope{BookID: bookID, BorrowerID: borrowerID},
		func(ctx context.Context, tx StoreTx) error {
			loan, found, findErr := tx.FindLoan(ctx, borrowerID, bookID)
			if findErr != nil {
				return findErr
			}

			if !found {
				return ErrNotCheckedOut
			}

			if loan.IsOverdueOn(today) {
				overdueDays := DaysBetween(loan.DueOn, today)

				_, balanceExists, balanceErr := tx.FindFeeBalance(ctx, borrowerID)
				if balanceErr != nil {
					return balanceErr
				}

				if !balanceExists {
					return ErrFeeBalanceNotFound
				}

				feeToAdd := e.feePerDay.Mul(decimal.NewFromInt(int64(overdueDays)))

				if addErr := tx.AddFee(ctx, borrowerID, feeToAdd); addErr != nil {
					return addErr
				}

				e.logInfo(ctx, logMsgOperationCompleted+"overdue fee accrued",
					logAttrBorrowerID, borrowerID.String(),
					logAttrBookID, bookID.String(),
					logAttrOverdueDays, overdueDays,
					logAttrFeeAdded, feeToAdd.String(),
				)
			}

			if deleteErr := tx.DeleteLoan(ctx, loan.ID); deleteErr != nil {
				return deleteErr
			}

			entry := HistoryEntry{
				ID:         uuid.New(),
				BorrowerID: borrowerID,
				BookID:     bookID,
				BorrowedOn: loan.BorrowedOn,
				ReturnedOn: today,
			}

			if appendErr := tx.AppendHistory(ctx, entry); appendErr != nil {
				return appendErr
			}

			released, releaseErr := tx.ReleaseCopy(ctx, bookID)
			if releaseErr != nil {
				return releaseErr
			}

			if !released {
				// An active loan existed, yet all copies already show as
				// available. Returning the error rolls back the whole
				// transaction, so the corrupted state is never committed.
				return ErrCopyCountersCorrupted
			}

			return nil
		})

	e.observeOperation(ctx, opReturnBook, borrowerID, bookID, start, err)
	e.finishSpan(span, err)

	return err
}

// SettleFees resets the borrower's fee balance to zero and returns the amount
// that was cleared. It is invoked after the fee settlement gateway confirms
// payment; there is no partial settlement. The amount is read inside the same
// transaction that performs the reset, so a fee that accrues concurrently is
// either included in the returned amount or left on the balance, never wiped
// silently. Settling an already-zero balance is a no-op returning zero, so the
// gateway callback can be delivered more than once.
func (e Engine) SettleFees(ctx context.Context, borrowerID uuid.UUID) (decimal.Decimal, error) {
	start := time.Now()
	ctx, span := e.startSpan(ctx, opSettleFees, borrowerID, uuid.Nil)

	var settled decimal.Decimal

	err := e.store.InTransaction(ctx, Scope{BorrowerID: borrowerID},
		func(ctx context.Context, tx StoreTx) error {
			balance, found, findErr := tx.FindFeeBalance(ctx, borrowerID)
			if findErr != nil {
				return findErr
			}

			if !found {
				return ErrFeeBalanceNotFound
			}

			settled = balance.Amount

			return tx.ResetFeeBalance(ctx, borrowerID)
		})

	e.observeOperation(ctx, opSettleFees, borrowerID, uuid.Nil, start, err)
	e.finishSpan(span, err)

	if err != nil {
		return decimal.Zero, err
	}

	return settled, nil
}

// IsCheckedOutBy reports whether the borrower currently holds an active loan
// for the book. Read-only, no side effects.
func (e Engine) IsCheckedOutBy(ctx context.Context, borrowerID uuid.UUID, bookID uuid.UUID) (bool, error) {
	_, found, err := e.store.FindLoan(ctx, borrowerID, bookID)
	if err != nil {
		return false, err
	}

	return found, nil
}

// CurrentLoans returns the borrower's active loans with their days-left
// values computed against today. Read-only, no side effects.
func (e Engine) CurrentLoans(ctx context.Context, borrowerID uuid.UUID) ([]CheckedOutBook, error) {
	today := DateOf(e.clock.Now())

	loans, err := e.store.LoansByBorrower(ctx, borrowerID)
	if err != nil {
		return nil, err
	}

	checkedOut := make([]CheckedOutBook, 0, len(loans))
	for _, loan := range loans {
		checkedOut = append(checkedOut, CheckedOutBook{Loan: loan, DaysLeft: loan.DaysLeftOn(today)})
	}

	return checkedOut, nil
}

// CurrentLoanCount returns the number of active loans held by the borrower.
func (e Engine) CurrentLoanCount(ctx context.Context, borrowerID uuid.UUID) (int, error) {
	loans, err := e.store.LoansByBorrower(ctx, borrowerID)
	if err != nil {
		return 0, err
	}

	return len(loans), nil
}

// OutstandingFee returns the borrower's unpaid fee total. Unlike ReturnBook
// and SettleFees, a missing fee balance is not an error here: a borrower who
// never checked out a book simply owes zero.
func (e Engine) OutstandingFee(ctx context.Context, borrowerID uuid.UUID) (decimal.Decimal, error) {
	balance, found, err := e.store.FindFeeBalance(ctx, borrowerID)
	if err != nil {
		return decimal.Zero, err
	}

	if !found {
		return decimal.Zero, nil
	}

	return balance.Amount, nil
}

// BorrowerHistory returns the borrower's completed loans, most recent first.
// limit <= 0 means no limit.
func (e Engine) BorrowerHistory(ctx context.Context, borrowerID uuid.UUID, limit int, offset int) ([]HistoryEntry, error) {
	return e.store.HistoryByBorrower(ctx, borrowerID, limit, offset)
}

// observeOperation records logs and metrics for one engine operation.
func (e Engine) observeOperation(
	ctx context.Context,
	operation string,
	borrowerID uuid.UUID,
	bookID uuid.UUID,
	start time.Time,
	err error,
) {

	duration := time.Since(start)

	labels := map[string]string{LabelOperation: operation}
	e.recordDuration(ctx, OperationDurationMetric, duration, labels)

	args := []any{
		logAttrBorrowerID, borrowerID.String(),
		logAttrDurationMS, durationToMilliseconds(duration),
	}
	if bookID != uuid.Nil {
		args = append(args, logAttrBookID, bookID.String())
	}

	switch {
	case err == nil:
		e.logInfo(ctx, logMsgOperationCompleted+operation, args...)

	case KindOf(err) == KindIntegrity:
		e.incrementCounter(ctx, IntegrityFaultsMetric, labels)
		e.logError(ctx, logMsgIntegrityFault+operation, append(args, logAttrError, err.Error())...)

	case KindOf(err) == KindConflict || KindOf(err) == KindNotFound:
		conflictLabels := map[string]string{LabelOperation: operation, LabelErrorKind: errorKindLabel(err)}
		e.incrementCounter(ctx, ConflictsMetric, conflictLabels)
		e.logInfo(ctx, logMsgOperationRejected+operation, append(args, logAttrError, err.Error())...)

	default:
		e.logError(ctx, logMsgOperationFailed+operation, append(args, logAttrError, err.Error())...)
	}
}

// startSpan opens a tracing span for the operation if a tracing collector is
// configured. The returned context carries the span for trace correlation.
func (e Engine) startSpan(
	ctx context.Context,
	operation string,
	borrowerID uuid.UUID,
	bookID uuid.UUID,
) (context.Context, SpanContext) {
	if e.tracing == nil {
		return ctx, nil
	}

	attrs := map[string]string{
		LabelOperation:    operation,
		logAttrBorrowerID: borrowerID.String(),
	}
	if bookID != uuid.Nil {
		attrs[logAttrBookID] = bookID.String()
	}

	return e.tracing.StartSpan(ctx, spanNamePrefix+operation, attrs)
}

// finishSpan completes the operation's span with a status derived from the
// outcome's error kind.
func (e Engine) finishSpan(span SpanContext, err error) {
	if e.tracing == nil || span == nil {
		return
	}

	switch {
	case err == nil:
		e.tracing.FinishSpan(span, spanStatusSuccess, nil)

	case KindOf(err) == KindConflict || KindOf(err) == KindNotFound:
		e.tracing.FinishSpan(span, spanStatusConflict, map[string]string{LabelErrorKind: errorKindLabel(err)})

	default:
		e.tracing.FinishSpan(span, spanStatusError, map[string]string{logAttrError: err.Error()})
	}
}

func errorKindLabel(err error) string {
	switch KindOf(err) {
	case KindNotFound:
		return errorKindNotFound
	case KindConflict:
		return errorKindConflict
	case KindIntegrity:
		return errorKindIntegrity
	default:
		return "unknown"
	}
}

func (e Engine) logInfo(ctx context.Context, msg string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.InfoContext(ctx, msg, args...)
		return
	}

	if e.logger != nil {
		e.logger.Info(msg, args...)
	}
}

func (e Engine) logError(ctx context.Context, msg string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.ErrorContext(ctx, msg, args...)
		return
	}

	if e.logger != nil {
		e.logger.Error(msg, args...)
	}
}

func (e Engine) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if e.metrics == nil {
		return
	}

	if contextual, ok := e.metrics.(ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	e.metrics.RecordDuration(metric, duration, labels)
}

func (e Engine) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if e.metrics == nil {
		return
	}

	if contextual, ok := e.metrics.(ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	e.metrics.IncrementCounter(metric, labels)
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func durationToMilliseconds(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
