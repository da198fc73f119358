package memorystore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bookhaven/lending-go/lending"
)

var (
	errLoanNotFound      = errors.New("loan not found")
	errFeeBalanceMissing = errors.New("fee balance record missing")
	errFeeBalanceExists  = errors.New("fee balance record already exists")
	errNegativeFeeAmount = errors.New("fee amount must not be negative")
)

const logMsgTransactionDiscarded = "memorystore transaction discarded"

type loanKey struct {
	borrowerID uuid.UUID
	bookID     uuid.UUID
}

// Store is an in-memory implementation of lending.Store.
// The zero value is not usable; create instances with NewStore.
type Store struct {
	logger lending.Logger

	mu      sync.RWMutex
	books   map[uuid.UUID]lending.Book
	loans   map[loanKey]lending.Loan
	loanIDs map[uuid.UUID]loanKey
	fees    map[uuid.UUID]lending.FeeBalance
	history []lending.HistoryEntry

	locksMu       sync.Mutex
	bookLocks     map[uuid.UUID]*sync.Mutex
	borrowerLocks map[uuid.UUID]*sync.Mutex
}

// Option defines a functional option for configuring a Store.
type Option func(*Store) error

// WithLogger sets the logger for the Store.
func WithLogger(logger lending.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// NewStore creates an empty in-memory store with optional configuration.
func NewStore(options ...Option) (*Store, error) {
	store := &Store{
		books:         make(map[uuid.UUID]lending.Book),
		loans:         make(map[loanKey]lending.Loan),
		loanIDs:       make(map[uuid.UUID]loanKey),
		fees:          make(map[uuid.UUID]lending.FeeBalance),
		bookLocks:     make(map[uuid.UUID]*sync.Mutex),
		borrowerLocks: make(map[uuid.UUID]*sync.Mutex),
	}

	for _, option := range options {
		if err := option(store); err != nil {
			return nil, err
		}
	}

	return store, nil
}

// InTransaction runs fn while holding the locks named by scope, book lock
// first. Writes are staged inside the transaction and applied to the shared
// state in a single step when fn succeeds. A failed transaction discards its
// staged writes, so readers never observe a partially applied transaction.
func (s *Store) InTransaction(
	ctx context.Context,
	scope lending.Scope,
	fn func(ctx context.Context, tx lending.StoreTx) error,
) error {

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if scope.BookID != uuid.Nil {
		bookLock := s.lockForBook(scope.BookID)
		bookLock.Lock()
		defer bookLock.Unlock()
	}

	if scope.BorrowerID != uuid.Nil {
		borrowerLock := s.lockForBorrower(scope.BorrowerID)
		borrowerLock.Lock()
		defer borrowerLock.Unlock()
	}

	tx := newStoreTx(s)

	if err := fn(ctx, tx); err != nil {
		if s.logger != nil {
			s.logger.Debug(logMsgTransactionDiscarded, "error", err.Error())
		}

		return err
	}

	tx.commit()

	return nil
}

func (s *Store) lockForBook(bookID uuid.UUID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, exists := s.bookLocks[bookID]
	if !exists {
		lock = &sync.Mutex{}
		s.bookLocks[bookID] = lock
	}

	return lock
}

func (s *Store) lockForBorrower(borrowerID uuid.UUID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, exists := s.borrowerLocks[borrowerID]
	if !exists {
		lock = &sync.Mutex{}
		s.borrowerLocks[borrowerID] = lock
	}

	return lock
}

// FindBook implements the lock-free read surface of lending.Store.
func (s *Store) FindBook(_ context.Context, bookID uuid.UUID) (lending.Book, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.findBookLocked(bookID)
}

// FindLoan implements the lock-free read surface of lending.Store.
func (s *Store) FindLoan(_ context.Context, borrowerID uuid.UUID, bookID uuid.UUID) (lending.Loan, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loan, exists := s.loans[loanKey{borrowerID: borrowerID, bookID: bookID}]

	return loan, exists, nil
}

// LoansByBorrower implements the lock-free read surface of lending.Store.
func (s *Store) LoansByBorrower(_ context.Context, borrowerID uuid.UUID) ([]lending.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loansByBorrowerLocked(borrowerID), nil
}

// FindFeeBalance implements the lock-free read surface of lending.Store.
func (s *Store) FindFeeBalance(_ context.Context, borrowerID uuid.UUID) (lending.FeeBalance, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	balance, exists := s.fees[borrowerID]

	return balance, exists, nil
}

// HistoryByBorrower implements the lock-free read surface of lending.Store.
func (s *Store) HistoryByBorrower(
	_ context.Context,
	borrowerID uuid.UUID,
	limit int,
	offset int,
) ([]lending.HistoryEntry, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.historyByBorrowerLocked(borrowerID, limit, offset), nil
}

func (s *Store) findBookLocked(bookID uuid.UUID) (lending.Book, bool, error) {
	book, exists := s.books[bookID]
	if !exists {
		return lending.Book{}, false, nil
	}

	book.Genres = append([]string(nil), book.Genres...)

	return book, true, nil
}

func (s *Store) loansByBorrowerLocked(borrowerID uuid.UUID) []lending.Loan {
	loans := make([]lending.Loan, 0)

	for key, loan := range s.loans {
		if key.borrowerID == borrowerID {
			loans = append(loans, loan)
		}
	}

	return loans
}

func (s *Store) historyByBorrowerLocked(borrowerID uuid.UUID, limit int, offset int) []lending.HistoryEntry {
	entries := make([]lending.HistoryEntry, 0)

	// history is in append order; report most recent first
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].BorrowerID == borrowerID {
			entries = append(entries, s.history[i])
		}
	}

	return pageEntries(entries, limit, offset)
}

func pageEntries(entries []lending.HistoryEntry, limit int, offset int) []lending.HistoryEntry {
	if offset >= len(entries) {
		return []lending.HistoryEntry{}
	}

	entries = entries[offset:]

	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}

	return entries
}

// storeTx implements lending.StoreTx by staging writes in transaction-local
// overlays. Reads see the overlay first, then the shared state. In the
// overlay maps a nil pointer marks a staged deletion. commit applies every
// staged write under one write lock; a discarded transaction touches the
// shared state not at all.
type storeTx struct {
	store *Store

	books   map[uuid.UUID]*lending.Book
	loans   map[loanKey]*lending.Loan
	loanIDs map[uuid.UUID]*loanKey
	fees    map[uuid.UUID]lending.FeeBalance
	history []lending.HistoryEntry
}

func newStoreTx(store *Store) *storeTx {
	return &storeTx{
		store:   store,
		books:   make(map[uuid.UUID]*lending.Book),
		loans:   make(map[loanKey]*lending.Loan),
		loanIDs: make(map[uuid.UUID]*loanKey),
		fees:    make(map[uuid.UUID]lending.FeeBalance),
	}
}

func (t *storeTx) commit() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	for bookID, staged := range t.books {
		if staged == nil {
			delete(t.store.books, bookID)
			continue
		}

		t.store.books[bookID] = *staged
	}

	for key, staged := range t.loans {
		if staged == nil {
			delete(t.store.loans, key)
			continue
		}

		t.store.loans[key] = *staged
	}

	for loanID, staged := range t.loanIDs {
		if staged == nil {
			delete(t.store.loanIDs, loanID)
			continue
		}

		t.store.loanIDs[loanID] = *staged
	}

	for borrowerID, staged := range t.fees {
		t.store.fees[borrowerID] = staged
	}

	t.store.history = append(t.store.history, t.history...)
}

func (t *storeTx) bookInView(bookID uuid.UUID) (lending.Book, bool) {
	if staged, wasStaged := t.books[bookID]; wasStaged {
		if staged == nil {
			return lending.Book{}, false
		}

		return *staged, true
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	book, exists := t.store.books[bookID]

	return book, exists
}

func (t *storeTx) loanInView(key loanKey) (lending.Loan, bool) {
	if staged, wasStaged := t.loans[key]; wasStaged {
		if staged == nil {
			return lending.Loan{}, false
		}

		return *staged, true
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	loan, exists := t.store.loans[key]

	return loan, exists
}

func (t *storeTx) keyForLoanID(loanID uuid.UUID) (loanKey, bool) {
	if staged, wasStaged := t.loanIDs[loanID]; wasStaged {
		if staged == nil {
			return loanKey{}, false
		}

		return *staged, true
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	key, exists := t.store.loanIDs[loanID]

	return key, exists
}

func (t *storeTx) feeInView(borrowerID uuid.UUID) (lending.FeeBalance, bool) {
	if staged, wasStaged := t.fees[borrowerID]; wasStaged {
		return staged, true
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	balance, exists := t.store.fees[borrowerID]

	return balance, exists
}

// --- CatalogAccess ---

func (t *storeTx) FindBook(_ context.Context, bookID uuid.UUID) (lending.Book, bool, error) {
	book, exists := t.bookInView(bookID)
	if !exists {
		return lending.Book{}, false, nil
	}

	book.Genres = append([]string(nil), book.Genres...)

	return book, true, nil
}

func (t *storeTx) InsertBook(_ context.Context, book lending.Book) error {
	if _, exists := t.bookInView(book.ID); exists {
		return lending.ErrBookAlreadyExists
	}

	book.Genres = append([]string(nil), book.Genres...)
	staged := book
	t.books[book.ID] = &staged

	return nil
}

func (t *storeTx) DeleteBook(_ context.Context, bookID uuid.UUID) (bool, error) {
	if _, exists := t.bookInView(bookID); !exists {
		return false, nil
	}

	t.books[bookID] = nil

	return true, nil
}

func (t *storeTx) ReserveCopy(_ context.Context, bookID uuid.UUID) (bool, error) {
	return t.adjustCounters(bookID, func(book *lending.Book) bool {
		if book.AvailableCopies <= 0 {
			return false
		}

		book.AvailableCopies--

		return true
	})
}

func (t *storeTx) ReleaseCopy(_ context.Context, bookID uuid.UUID) (bool, error) {
	return t.adjustCounters(bookID, func(book *lending.Book) bool {
		if book.AvailableCopies >= book.TotalCopies {
			return false
		}

		book.AvailableCopies++

		return true
	})
}

func (t *storeTx) AddCopy(_ context.Context, bookID uuid.UUID) (bool, error) {
	return t.adjustCounters(bookID, func(book *lending.Book) bool {
		book.TotalCopies++
		book.AvailableCopies++

		return true
	})
}

func (t *storeTx) RemoveCopy(_ context.Context, bookID uuid.UUID) (bool, error) {
	return t.adjustCounters(bookID, func(book *lending.Book) bool {
		if book.AvailableCopies <= 0 || book.TotalCopies <= 0 {
			return false
		}

		book.TotalCopies--
		book.AvailableCopies--

		return true
	})
}

func (t *storeTx) adjustCounters(bookID uuid.UUID, adjust func(book *lending.Book) bool) (bool, error) {
	book, exists := t.bookInView(bookID)
	if !exists {
		return false, nil
	}

	if !adjust(&book) {
		return false, nil
	}

	staged := book
	t.books[bookID] = &staged

	return true, nil
}

// --- LedgerAccess ---

func (t *storeTx) FindLoan(_ context.Context, borrowerID uuid.UUID, bookID uuid.UUID) (lending.Loan, bool, error) {
	loan, exists := t.loanInView(loanKey{borrowerID: borrowerID, bookID: bookID})

	return loan, exists, nil
}

func (t *storeTx) LoansByBorrower(_ context.Context, borrowerID uuid.UUID) ([]lending.Loan, error) {
	loans := make([]lending.Loan, 0)

	t.store.mu.RLock()
	for key, loan := range t.store.loans {
		if key.borrowerID != borrowerID {
			continue
		}

		if _, wasStaged := t.loans[key]; wasStaged {
			continue
		}

		loans = append(loans, loan)
	}
	t.store.mu.RUnlock()

	for key, staged := range t.loans {
		if staged != nil && key.borrowerID == borrowerID {
			loans = append(loans, *staged)
		}
	}

	return loans, nil
}

func (t *storeTx) LoanCountByBook(_ context.Context, bookID uuid.UUID) (int, error) {
	count := 0

	t.store.mu.RLock()
	for key := range t.store.loans {
		if key.bookID != bookID {
			continue
		}

		if _, wasStaged := t.loans[key]; wasStaged {
			continue
		}

		count++
	}
	t.store.mu.RUnlock()

	for key, staged := range t.loans {
		if staged != nil && key.bookID == bookID {
			count++
		}
	}

	return count, nil
}

func (t *storeTx) InsertLoan(_ context.Context, loan lending.Loan) error {
	key := loanKey{borrowerID: loan.BorrowerID, bookID: loan.BookID}

	if _, exists := t.loanInView(key); exists {
		return lending.ErrAlreadyCheckedOut
	}

	stagedLoan := loan
	t.loans[key] = &stagedLoan
	stagedKey := key
	t.loanIDs[loan.ID] = &stagedKey

	return nil
}

func (t *storeTx) UpdateLoanDueDate(_ context.Context, loanID uuid.UUID, dueOn time.Time) error {
	key, exists := t.keyForLoanID(loanID)
	if !exists {
		return errLoanNotFound
	}

	loan, found := t.loanInView(key)
	if !found {
		return errLoanNotFound
	}

	loan.DueOn = dueOn
	staged := loan
	t.loans[key] = &staged

	return nil
}

func (t *storeTx) DeleteLoan(_ context.Context, loanID uuid.UUID) error {
	key, exists := t.keyForLoanID(loanID)
	if !exists {
		return errLoanNotFound
	}

	t.loans[key] = nil
	t.loanIDs[loanID] = nil

	return nil
}

func (t *storeTx) FindFeeBalance(_ context.Context, borrowerID uuid.UUID) (lending.FeeBalance, bool, error) {
	balance, exists := t.feeInView(borrowerID)

	return balance, exists, nil
}

func (t *storeTx) InsertFeeBalance(_ context.Context, balance lending.FeeBalance) error {
	if _, exists := t.feeInView(balance.BorrowerID); exists {
		return errFeeBalanceExists
	}

	t.fees[balance.BorrowerID] = balance

	return nil
}

func (t *storeTx) AddFee(_ context.Context, borrowerID uuid.UUID, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errNegativeFeeAmount
	}

	balance, exists := t.feeInView(borrowerID)
	if !exists {
		return errFeeBalanceMissing
	}

	balance.Amount = balance.Amount.Add(amount)
	t.fees[borrowerID] = balance

	return nil
}

func (t *storeTx) ResetFeeBalance(_ context.Context, borrowerID uuid.UUID) error {
	balance, exists := t.feeInView(borrowerID)
	if !exists {
		return errFeeBalanceMissing
	}

	balance.Amount = decimal.Zero
	t.fees[borrowerID] = balance

	return nil
}

// --- HistoryAccess ---

func (t *storeTx) AppendHistory(_ context.Context, entry lending.HistoryEntry) error {
	t.history = append(t.history, entry)

	return nil
}

func (t *storeTx) HistoryByBorrower(
	_ context.Context,
	borrowerID uuid.UUID,
	limit int,
	offset int,
) ([]lending.HistoryEntry, error) {

	entries := make([]lending.HistoryEntry, 0)

	// staged entries are the most recent
	for i := len(t.history) - 1; i >= 0; i-- {
		if t.history[i].BorrowerID == borrowerID {
			entries = append(entries, t.history[i])
		}
	}

	t.store.mu.RLock()
	for i := len(t.store.history) - 1; i >= 0; i-- {
		if t.store.history[i].BorrowerID == borrowerID {
			entries = append(entries, t.store.history[i])
		}
	}
	t.store.mu.RUnlock()

	return pageEntries(entries, limit, offset), nil
}

// Ensure Store implements lending.Store.
var _ lending.Store = (*Store)(nil)
