package postgresstore

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"github.com/bookhaven/lending-go/lending"
	"github.com/bookhaven/lending-go/lending/postgresstore/internal/adapters"
)

var (
	// ErrBuildingQueryFailed is returned when goqu fails to render a statement.
	ErrBuildingQueryFailed = errors.New("failed to build sql query")

	// ErrQueryingFailed is returned when a select statement fails to execute.
	ErrQueryingFailed = errors.New("database query execution failed")

	// ErrExecFailed is returned when a mutating statement fails to execute.
	ErrExecFailed = errors.New("database execution failed")

	// ErrScanningRowFailed is returned when a result row cannot be scanned.
	ErrScanningRowFailed = errors.New("failed to scan database row")

	errLoanVanished       = lending.ErrNotCheckedOut
	errFeeBalanceVanished = errors.New("fee balance record missing")
)

const (
	dialectPostgres = "postgres"
	dateLayout      = "2006-01-02"

	colBookID          = "book_id"
	colTitle           = "title"
	colAuthor          = "author"
	colDescription     = "description"
	colCoverRef        = "cover_ref"
	colGenres          = "genres"
	colTotalCopies     = "total_copies"
	colAvailableCopies = "available_copies"
	colLoanID          = "loan_id"
	colBorrowerID      = "borrower_id"
	colBorrowedOn      = "borrowed_on"
	colDueOn           = "due_on"
	colAmount          = "amount"
	colHistoryID       = "history_id"
	colReturnedOn      = "returned_on"

	castDate    = "?::date"
	castJsonb   = "?::jsonb"
	castNumeric = "?::numeric"

	exprBookIDText       = "book_id::text"
	exprLoanIDText       = "loan_id::text"
	exprBorrowerIDText   = "borrower_id::text"
	exprHistoryIDText    = "history_id::text"
	exprGenresText       = "genres::text"
	exprAmountText       = "amount::text"
	exprAvailableMinus   = "available_copies - 1"
	exprAvailablePlus    = "available_copies + 1"
	exprTotalMinus       = "total_copies - 1"
	exprTotalPlus        = "total_copies + 1"
	exprAmountPlus       = "amount + ?::numeric"
	exprCountAll         = "COUNT(*)"
	logMsgSQLExecuted    = "executed sql"
	logMsgBuildingFailed = "failed to build sql statement"
	logMsgClosingFailed  = "failed to close result rows"
	logAttrQuery         = "query"
	logAttrDurationMS    = "duration_ms"
)

// queryRunner is the subset of the adapter API shared by pooled connections
// and open transactions; the same data access code serves both.
type queryRunner interface {
	Query(ctx context.Context, query string) (adapters.DBRows, error)
	Exec(ctx context.Context, query string) (adapters.DBResult, error)
}

// dataAccess implements lending.StoreTx over a queryRunner.
type dataAccess struct {
	run    queryRunner
	tables TableNames
	logger lending.Logger
}

// --- CatalogAccess ---

func (d *dataAccess) FindBook(ctx context.Context, bookID uuid.UUID) (lending.Book, bool, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(d.tables.Books).
		Select(
			goqu.L(exprBookIDText),
			goqu.C(colTitle),
			goqu.C(colAuthor),
			goqu.C(colDescription),
			goqu.C(colCoverRef),
			goqu.L(exprGenresText),
			goqu.C(colTotalCopies),
			goqu.C(colAvailableCopies),
		).
		Where(goqu.C(colBookID).Eq(bookID.String()))

	sqlQuery, buildErr := d.toSQL(selectStmt.ToSQL())
	if buildErr != nil {
		return lending.Book{}, false, buildErr
	}

	rows, queryErr := d.query(ctx, sqlQuery)
	if queryErr != nil {
		return lending.Book{}, false, queryErr
	}
	defer d.closeRows(rows)

	if !rows.Next() {
		return lending.Book{}, false, nil
	}

	var idText, genresJSON string
	book := lending.Book{}

	scanErr := rows.Scan(
		&idText,
		&book.Title,
		&book.Author,
		&book.Description,
		&book.CoverRef,
		&genresJSON,
		&book.TotalCopies,
		&book.AvailableCopies,
	)
	if scanErr != nil {
		return lending.Book{}, false, errors.Join(ErrScanningRowFailed, scanErr)
	}

	parsedID, parseErr := uuid.Parse(idText)
	if parseErr != nil {
		return lending.Book{}, false, errors.Join(ErrScanningRowFailed, parseErr)
	}
	book.ID = parsedID

	if unmarshalErr := jsoniter.UnmarshalFromString(genresJSON, &book.Genres); unmarshalErr != nil {
		return lending.Book{}, false, errors.Join(ErrScanningRowFailed, unmarshalErr)
	}

	return book, true, nil
}

func (d *dataAccess) InsertBook(ctx context.Context, book lending.Book) error {
	genresJSON, marshalErr := jsoniter.MarshalToString(book.Genres)
	if marshalErr != nil {
		return errors.Join(ErrBuildingQueryFailed, marshalErr)
	}

	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(d.tables.Books).
		Rows(goqu.Record{
			colBookID:          book.ID.String(),
			colTitle:           book.Title,
			colAuthor:          book.Author,
			colDescription:     book.Description,
			colCoverRef:        book.CoverRef,
			colGenres:          goqu.L(castJsonb, genresJSON),
			colTotalCopies:     book.TotalCopies,
			colAvailableCopies: book.AvailableCopies,
		})

	sqlQuery, buildErr := d.toSQL(insertStmt.ToSQL())
	if buildErr != nil {
		return buildErr
	}

	_, execErr := d.exec(ctx, sqlQuery)
	if execErr != nil {
		if sqlState(execErr) == sqlStateUniqueViolated {
			return lending.ErrBookAlreadyExists
		}

		return execErr
	}

	return nil
}

func (d *dataAccess) DeleteBook(ctx context.Context, bookID uuid.UUID) (bool, error) {
	deleteStmt := goqu.Dialect(dialectPostgres).
		Delete(d.tables.Books).
		Where(goqu.C(colBookID).Eq(bookID.String()))

	sqlQuery, buildErr := d.toSQL(deleteStmt.ToSQL())
	if buildErr != nil {
		return false, buildErr
	}

	rowsAffected, execErr := d.exec(ctx, sqlQuery)
	if execErr != nil {
		return false, execErr
	}

	return rowsAffected > 0, nil
}

func (d *dataAccess) ReserveCopy(ctx context.Context, bookID uuid.UUID) (bool, error) {
	return d.conditionalCounterUpdate(ctx, bookID,
		goqu.Record{colAvailableCopies: goqu.L(exprAvailableMinus)},
		goqu.C(colAvailableCopies).Gt(0),
	)
}

func (d *dataAccess) ReleaseCopy(ctx context.Context, bookID uuid.UUID) (bool, error) {
	return d.conditionalCounterUpdate(ctx, bookID,
		goqu.Record{colAvailableCopies: goqu.L(exprAvailablePlus)},
		goqu.C(colAvailableCopies).Lt(goqu.I(colTotalCopies)),
	)
}

func (d *dataAccess) AddCopy(ctx context.Context, bookID uuid.UUID) (bool, error) {
	return d.conditionalCounterUpdate(ctx, bookID,
		goqu.Record{
			colTotalCopies:     goqu.L(exprTotalPlus),
			colAvailableCopies: goqu.L(exprAvailablePlus),
		},
		nil,
	)
}

func (d *dataAccess) RemoveCopy(ctx context.Context, bookID uuid.UUID) (bool, error) {
	return d.conditionalCounterUpdate(ctx, bookID,
		goqu.Record{
			colTotalCopies:     goqu.L(exprTotalMinus),
			colAvailableCopies: goqu.L(exprAvailableMinus),
		},
		goqu.And(
			goqu.C(colAvailableCopies).Gt(0),
			goqu.C(colTotalCopies).Gt(0),
		),
	)
}

// conditionalCounterUpdate performs the atomic check-and-change on the copy
// counters; the condition and the change are one UPDATE statement, never a
// read followed by a write.
func (d *dataAccess) conditionalCounterUpdate(
	ctx context.Context,
	bookID uuid.UUID,
	changes goqu.Record,
	condition goqu.Expression,
) (bool, error) {

	updateStmt := goqu.Dialect(dialectPostgres).
		Update(d.tables.Books).
		Set(changes).
		Where(goqu.C(colBookID).Eq(bookID.String()))

	if condition != nil {
		updateStmt = updateStmt.Where(condition)
	}

	sqlQuery, buildErr := d.toSQL(updateStmt.ToSQL())
	if buildErr != nil {
		return false, buildErr
	}

	rowsAffected, execErr := d.exec(ctx, sqlQuery)
	if execErr != nil {
		return false, execErr
	}

	return rowsAffected > 0, nil
}

// --- LedgerAccess ---

func (d *dataAccess) FindLoan(ctx context.Context, borrowerID uuid.UUID, bookID uuid.UUID) (lending.Loan, bool, error) {
	loans, err := d.queryLoans(ctx, goqu.And(
		goqu.C(colBorrowerID).Eq(borrowerID.String()),
		goqu.C(colBookID).Eq(bookID.String()),
	))
	if err != nil {
		return lending.Loan{}, false, err
	}

	if len(loans) == 0 {
		return lending.Loan{}, false, nil
	}

	return loans[0], true, nil
}

func (d *dataAccess) LoansByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]lending.Loan, error) {
	return d.queryLoans(ctx, goqu.C(colBorrowerID).Eq(borrowerID.String()))
}

func (d *dataAccess) queryLoans(ctx context.Context, condition goqu.Expression) ([]lending.Loan, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(d.tables.Loans).
		Select(
			goqu.L(exprLoanIDText),
			goqu.L(exprBorrowerIDText),
			goqu.L(exprBookIDText),
			goqu.C(colBorrowedOn),
			goqu.C(colDueOn),
		).
		Where(condition).
		Order(goqu.I(colDueOn).Asc())

	sqlQuery, buildErr := d.toSQL(selectStmt.ToSQL())
	if buildErr != nil {
		return nil, buildErr
	}

	rows, queryErr := d.query(ctx, sqlQuery)
	if queryErr != nil {
		return nil, queryErr
	}
	defer d.closeRows(rows)

	loans := make([]lending.Loan, 0)

	for rows.Next() {
		var loanIDText, borrowerIDText, bookIDText string
		var borrowedOn, dueOn time.Time

		if scanErr := rows.Scan(&loanIDText, &borrowerIDText, &bookIDText, &borrowedOn, &dueOn); scanErr != nil {
			return nil, errors.Join(ErrScanningRowFailed, scanErr)
		}

		loan, buildLoanErr := buildLoan(loanIDText, borrowerIDText, bookIDText, borrowedOn, dueOn)
		if buildLoanErr != nil {
			return nil, buildLoanErr
		}

		loans = append(loans, loan)
	}

	return loans, nil
}

func buildLoan(
	loanIDText string,
	borrowerIDText string,
	bookIDText string,
	borrowedOn time.Time,
	dueOn time.Time,
) (lending.Loan, error) {

	loanID, err := uuid.Parse(loanIDText)
	if err != nil {
		return lending.Loan{}, errors.Join(ErrScanningRowFailed, err)
	}

	borrowerID, err := uuid.Parse(borrowerIDText)
	if err != nil {
		return lending.Loan{}, errors.Join(ErrScanningRowFailed, err)
	}

	bookID, err := uuid.Parse(bookIDText)
	if err != nil {
		return lending.Loan{}, errors.Join(ErrScanningRowFailed, err)
	}

	return lending.Loan{
		ID:         loanID,
		BorrowerID: borrowerID,
		BookID:     bookID,
		BorrowedOn: lending.DateOf(borrowedOn),
		DueOn:      lending.DateOf(dueOn),
	}, nil
}

func (d *dataAccess) LoanCountByBook(ctx context.Context, bookID uuid.UUID) (int, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(d.tables.Loans).
		Select(goqu.L(exprCountAll)).
		Where(goqu.C(colBookID).Eq(bookID.String()))

	sqlQuery, buildErr := d.toSQL(selectStmt.ToSQL())
	if buildErr != nil {
		return 0, buildErr
	}

	rows, queryErr := d.query(ctx, sqlQuery)
	if queryErr != nil {
		return 0, queryErr
	}
	defer d.closeRows(rows)

	count := 0
	if rows.Next() {
		if scanErr := rows.Scan(&count); scanErr != nil {
			return 0, errors.Join(ErrScanningRowFailed, scanErr)
		}
	}

	return count, nil
}

func (d *dataAccess) InsertLoan(ctx context.Context, loan lending.Loan) error {
	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(d.tables.Loans).
		Rows(goqu.Record{
			colLoanID:     loan.ID.String(),
			colBorrowerID: loan.BorrowerID.String(),
			colBookID:     loan.BookID.String(),
			colBorrowedOn: goqu.L(castDate, loan.BorrowedOn.Format(dateLayout)),
			colDueOn:      goqu.L(castDate, loan.DueOn.Format(dateLayout)),
		})

	sqlQuery, buildErr := d.toSQL(insertStmt.ToSQL())
	if buildErr != nil {
		return buildErr
	}

	_, execErr := d.exec(ctx, sqlQuery)
	if execErr != nil {
		// The unique index on (borrower_id, book_id) backs the
		// at-most-one-active-loan invariant under concurrency.
		if sqlState(execErr) == sqlStateUniqueViolated {
			return lending.ErrAlreadyCheckedOut
		}

		return execErr
	}

	return nil
}

func (d *dataAccess) UpdateLoanDueDate(ctx context.Context, loanID uuid.UUID, dueOn time.Time) error {
	updateStmt := goqu.Dialect(dialectPostgres).
		Update(d.tables.Loans).
		Set(goqu.Record{colDueOn: goqu.L(castDate, dueOn.Format(dateLayout))}).
		Where(goqu.C(colLoanID).Eq(loanID.String()))

	sqlQuery, buildErr := d.toSQL(updateStmt.ToSQL())
	if buildErr != nil {
		return buildErr
	}

	rowsAffected, execErr := d.exec(ctx, sqlQuery)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		// The loan was returned by a concurrent transaction.
		return errLoanVanished
	}

	return nil
}

func (d *dataAccess) DeleteLoan(ctx context.Context, loanID uuid.UUID) error {
	deleteStmt := goqu.Dialect(dialectPostgres).
		Delete(d.tables.Loans).
		Where(goqu.C(colLoanID).Eq(loanID.String()))

	sqlQuery, buildErr := d.toSQL(deleteStmt.ToSQL())
	if buildErr != nil {
		return buildErr
	}

	rowsAffected, execErr := d.exec(ctx, sqlQuery)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		return errLoanVanished
	}

	return nil
}

func (d *dataAccess) FindFeeBalance(ctx context.Context, borrowerID uuid.UUID) (lending.FeeBalance, bool, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(d.tables.FeeBalances).
		Select(goqu.L(exprBorrowerIDText), goqu.L(exprAmountText)).
		Where(goqu.C(colBorrowerID).Eq(borrowerID.String()))

	sqlQuery, buildErr := d.toSQL(selectStmt.ToSQL())
	if buildErr != nil {
		return lending.FeeBalance{}, false, buildErr
	}

	rows, queryErr := d.query(ctx, sqlQuery)
	if queryErr != nil {
		return lending.FeeBalance{}, false, queryErr
	}
	defer d.closeRows(rows)

	if !rows.Next() {
		return lending.FeeBalance{}, false, nil
	}

	var borrowerIDText, amountText string
	if scanErr := rows.Scan(&borrowerIDText, &amountText); scanErr != nil {
		return lending.FeeBalance{}, false, errors.Join(ErrScanningRowFailed, scanErr)
	}

	parsedID, parseErr := uuid.Parse(borrowerIDText)
	if parseErr != nil {
		return lending.FeeBalance{}, false, errors.Join(ErrScanningRowFailed, parseErr)
	}

	amount, amountErr := decimal.NewFromString(amountText)
	if amountErr != nil {
		return lending.FeeBalance{}, false, errors.Join(ErrScanningRowFailed, amountErr)
	}

	return lending.FeeBalance{BorrowerID: parsedID, Amount: amount}, true, nil
}

func (d *dataAccess) InsertFeeBalance(ctx context.Context, balance lending.FeeBalance) error {
	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(d.tables.FeeBalances).
		Rows(goqu.Record{
			colBorrowerID: balance.BorrowerID.String(),
			colAmount:     goqu.L(castNumeric, balance.Amount.String()),
		})

	sqlQuery, buildErr := d.toSQL(insertStmt.ToSQL())
	if buildErr != nil {
		return buildErr
	}

	_, execErr := d.exec(ctx, sqlQuery)
	if execErr != nil {
		// Two first checkouts by the same borrower can race past
		// FindFeeBalance; the loser hits the primary key. Retrying the
		// transaction re-reads and finds the winner's balance.
		if sqlState(execErr) == sqlStateUniqueViolated {
			return errors.Join(lending.ErrStoreContention, execErr)
		}

		return execErr
	}

	return nil
}

func (d *dataAccess) AddFee(ctx context.Context, borrowerID uuid.UUID, amount decimal.Decimal) error {
	updateStmt := goqu.Dialect(dialectPostgres).
		Update(d.tables.FeeBalances).
		Set(goqu.Record{colAmount: goqu.L(exprAmountPlus, amount.String())}).
		Where(goqu.C(colBorrowerID).Eq(borrowerID.String()))

	sqlQuery, buildErr := d.toSQL(updateStmt.ToSQL())
	if buildErr != nil {
		return buildErr
	}

	return d.execFeeUpdate(ctx, sqlQuery)
}

func (d *dataAccess) ResetFeeBalance(ctx context.Context, borrowerID uuid.UUID) error {
	updateStmt := goqu.Dialect(dialectPostgres).
		Update(d.tables.FeeBalances).
		Set(goqu.Record{colAmount: goqu.L(castNumeric, decimal.Zero.String())}).
		Where(goqu.C(colBorrowerID).Eq(borrowerID.String()))

	sqlQuery, buildErr := d.toSQL(updateStmt.ToSQL())
	if buildErr != nil {
		return buildErr
	}

	return d.execFeeUpdate(ctx, sqlQuery)
}

func (d *dataAccess) execFeeUpdate(ctx context.Context, sqlQuery string) error {
	rowsAffected, execErr := d.exec(ctx, sqlQuery)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		return errFeeBalanceVanished
	}

	return nil
}

// --- HistoryAccess ---

func (d *dataAccess) AppendHistory(ctx context.Context, entry lending.HistoryEntry) error {
	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(d.tables.History).
		Rows(goqu.Record{
			colHistoryID:  entry.ID.String(),
			colBorrowerID: entry.BorrowerID.String(),
			colBookID:     entry.BookID.String(),
			colBorrowedOn: goqu.L(castDate, entry.BorrowedOn.Format(dateLayout)),
			colReturnedOn: goqu.L(castDate, entry.ReturnedOn.Format(dateLayout)),
		})

	sqlQuery, buildErr := d.toSQL(insertStmt.ToSQL())
	if buildErr != nil {
		return buildErr
	}

	_, execErr := d.exec(ctx, sqlQuery)

	return execErr
}

func (d *dataAccess) HistoryByBorrower(
	ctx context.Context,
	borrowerID uuid.UUID,
	limit int,
	offset int,
) ([]lending.HistoryEntry, error) {

	selectStmt := goqu.Dialect(dialectPostgres).
		From(d.tables.History).
		Select(
			goqu.L(exprHistoryIDText),
			goqu.L(exprBorrowerIDText),
			goqu.L(exprBookIDText),
			goqu.C(colBorrowedOn),
			goqu.C(colReturnedOn),
		).
		Where(goqu.C(colBorrowerID).Eq(borrowerID.String())).
		Order(goqu.I(colReturnedOn).Desc())

	if offset > 0 {
		selectStmt = selectStmt.Offset(uint(offset))
	}

	if limit > 0 {
		selectStmt = selectStmt.Limit(uint(limit))
	}

	sqlQuery, buildErr := d.toSQL(selectStmt.ToSQL())
	if buildErr != nil {
		return nil, buildErr
	}

	rows, queryErr := d.query(ctx, sqlQuery)
	if queryErr != nil {
		return nil, queryErr
	}
	defer d.closeRows(rows)

	entries := make([]lending.HistoryEntry, 0)

	for rows.Next() {
		var historyIDText, borrowerIDText, bookIDText string
		var borrowedOn, returnedOn time.Time

		if scanErr := rows.Scan(&historyIDText, &borrowerIDText, &bookIDText, &borrowedOn, &returnedOn); scanErr != nil {
			return nil, errors.Join(ErrScanningRowFailed, scanErr)
		}

		entry, buildEntryErr := buildHistoryEntry(historyIDText, borrowerIDText, bookIDText, borrowedOn, returnedOn)
		if buildEntryErr != nil {
			return nil, buildEntryErr
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

func buildHistoryEntry(
	historyIDText string,
	borrowerIDText string,
	bookIDText string,
	borrowedOn time.Time,
	returnedOn time.Time,
) (lending.HistoryEntry, error) {

	historyID, err := uuid.Parse(historyIDText)
	if err != nil {
		return lending.HistoryEntry{}, errors.Join(ErrScanningRowFailed, err)
	}

	borrowerID, err := uuid.Parse(borrowerIDText)
	if err != nil {
		return lending.HistoryEntry{}, errors.Join(ErrScanningRowFailed, err)
	}

	bookID, err := uuid.Parse(bookIDText)
	if err != nil {
		return lending.HistoryEntry{}, errors.Join(ErrScanningRowFailed, err)
	}

	return lending.HistoryEntry{
		ID:         historyID,
		BorrowerID: borrowerID,
		BookID:     bookID,
		BorrowedOn: lending.DateOf(borrowedOn),
		ReturnedOn: lending.DateOf(returnedOn),
	}, nil
}

// --- execution helpers ---

// toSQL folds goqu's three ToSQL return values into the rendered query,
// wrapping build failures.
func (d *dataAccess) toSQL(sqlQuery string, _ []interface{}, toSQLErr error) (string, error) {
	if toSQLErr != nil {
		if d.logger != nil {
			d.logger.Error(logMsgBuildingFailed, logAttrError, toSQLErr.Error())
		}

		return "", errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (d *dataAccess) query(ctx context.Context, sqlQuery string) (adapters.DBRows, error) {
	start := time.Now()
	rows, err := d.run.Query(ctx, sqlQuery)
	d.logQueryWithDuration(sqlQuery, time.Since(start))

	if err != nil {
		return nil, errors.Join(ErrQueryingFailed, err)
	}

	return rows, nil
}

func (d *dataAccess) exec(ctx context.Context, sqlQuery string) (int64, error) {
	start := time.Now()
	result, err := d.run.Exec(ctx, sqlQuery)
	d.logQueryWithDuration(sqlQuery, time.Since(start))

	if err != nil {
		return 0, errors.Join(ErrExecFailed, err)
	}

	rowsAffected, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return 0, errors.Join(ErrExecFailed, rowsErr)
	}

	return rowsAffected, nil
}

func (d *dataAccess) closeRows(rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil && d.logger != nil {
		d.logger.Warn(logMsgClosingFailed, logAttrError, closeErr.Error())
	}
}

// logQueryWithDuration logs SQL queries with execution time at debug level if the logger is configured.
func (d *dataAccess) logQueryWithDuration(sqlQuery string, duration time.Duration) {
	if d.logger != nil {
		d.logger.Debug(logMsgSQLExecuted,
			logAttrDurationMS, float64(duration.Microseconds())/1000,
			logAttrQuery, sqlQuery,
		)
	}
}

// Ensure dataAccess implements lending.StoreTx.
var _ lending.StoreTx = (*dataAccess)(nil)
