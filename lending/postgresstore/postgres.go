package postgresstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bookhaven/lending-go/lending"
	"github.com/bookhaven/lending-go/lending/postgresstore/internal/adapters"
)

const (
	logMsgBeginTxFailed    = "failed to begin transaction"
	logMsgCommitFailed     = "failed to commit transaction"
	logMsgRollbackFailed   = "failed to roll back transaction"
	logMsgTxRolledBack     = "transaction rolled back"
	logAttrError           = "error"
	sqlStateSerialization  = "40001"
	sqlStateDeadlock       = "40P01"
	sqlStateUniqueViolated = "23505"
)

// Store is the PostgreSQL implementation of lending.Store. It is a thin
// orchestration layer over a database adapter; all SQL is built with goqu
// in data_access.go.
type Store struct {
	db     adapters.DBAdapter
	tables TableNames
	logger lending.Logger
}

// NewStoreFromPGXPool creates a new Store using a pgx Pool with optional configuration.
func NewStoreFromPGXPool(pool *pgxpool.Pool, options ...Option) (Store, error) {
	if pool == nil {
		return Store{}, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(pool), options...)
}

// NewStoreFromSQLDB creates a new Store using a sql.DB with optional configuration.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (Store, error) {
	if db == nil {
		return Store{}, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), options...)
}

// NewStoreFromSQLX creates a new Store using a sqlx.DB with optional configuration.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (Store, error) {
	if db == nil {
		return Store{}, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), options...)
}

func newStore(db adapters.DBAdapter, options ...Option) (Store, error) {
	store := Store{
		db:     db,
		tables: DefaultTableNames(),
	}

	for _, option := range options {
		if err := option(&store); err != nil {
			return Store{}, err
		}
	}

	return store, nil
}

// InTransaction runs fn inside one database transaction. The scope argument
// is ignored: PostgreSQL serializes contending operations through row-level
// locks on the book and loan rows, so transactions on disjoint records
// proceed concurrently without any store-level locking.
func (s Store) InTransaction(
	ctx context.Context,
	_ lending.Scope,
	fn func(ctx context.Context, tx lending.StoreTx) error,
) error {

	tx, beginErr := s.db.BeginTx(ctx)
	if beginErr != nil {
		if s.logger != nil {
			s.logger.Error(logMsgBeginTxFailed, logAttrError, beginErr.Error())
		}

		return mapStoreError(beginErr)
	}

	access := &dataAccess{run: tx, tables: s.tables, logger: s.logger}

	if fnErr := fn(ctx, access); fnErr != nil {
		s.rollback(ctx, tx, fnErr)
		return mapStoreError(fnErr)
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		if s.logger != nil {
			s.logger.Error(logMsgCommitFailed, logAttrError, commitErr.Error())
		}

		return mapStoreError(commitErr)
	}

	return nil
}

func (s Store) rollback(ctx context.Context, tx adapters.DBTx, cause error) {
	if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
		if s.logger != nil {
			s.logger.Warn(logMsgRollbackFailed, logAttrError, rollbackErr.Error())
		}

		return
	}

	if s.logger != nil {
		s.logger.Debug(logMsgTxRolledBack, logAttrError, cause.Error())
	}
}

// FindBook implements the lock-free read surface of lending.Store.
func (s Store) FindBook(ctx context.Context, bookID uuid.UUID) (lending.Book, bool, error) {
	return s.reader().FindBook(ctx, bookID)
}

// FindLoan implements the lock-free read surface of lending.Store.
func (s Store) FindLoan(ctx context.Context, borrowerID uuid.UUID, bookID uuid.UUID) (lending.Loan, bool, error) {
	return s.reader().FindLoan(ctx, borrowerID, bookID)
}

// LoansByBorrower implements the lock-free read surface of lending.Store.
func (s Store) LoansByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]lending.Loan, error) {
	return s.reader().LoansByBorrower(ctx, borrowerID)
}

// FindFeeBalance implements the lock-free read surface of lending.Store.
func (s Store) FindFeeBalance(ctx context.Context, borrowerID uuid.UUID) (lending.FeeBalance, bool, error) {
	return s.reader().FindFeeBalance(ctx, borrowerID)
}

// HistoryByBorrower implements the lock-free read surface of lending.Store.
func (s Store) HistoryByBorrower(
	ctx context.Context,
	borrowerID uuid.UUID,
	limit int,
	offset int,
) ([]lending.HistoryEntry, error) {

	return s.reader().HistoryByBorrower(ctx, borrowerID, limit, offset)
}

func (s Store) reader() *dataAccess {
	return &dataAccess{run: s.db, tables: s.tables, logger: s.logger}
}

// mapStoreError translates transient PostgreSQL failures into
// lending.ErrStoreContention so callers can retry; everything else passes
// through unchanged.
func mapStoreError(err error) error {
	switch sqlState(err) {
	case sqlStateSerialization, sqlStateDeadlock:
		return errors.Join(lending.ErrStoreContention, err)
	default:
		return err
	}
}

// sqlState extracts the SQLSTATE code from pgx and lib/pq driver errors.
func sqlState(err error) string {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	return ""
}

// Ensure Store implements lending.Store.
var _ lending.Store = Store{}
