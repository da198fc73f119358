package postgresstore

import (
	"errors"

	"github.com/bookhaven/lending-go/lending"
)

// TableNames holds the names of the four tables the store works with.
type TableNames struct {
	Books       string
	Loans       string
	FeeBalances string
	History     string
}

// DefaultTableNames returns the table names used unless overridden with WithTableNames.
func DefaultTableNames() TableNames {
	return TableNames{
		Books:       "books",
		Loans:       "loans",
		FeeBalances: "fee_balances",
		History:     "loan_history",
	}
}

func (t TableNames) validate() error {
	if t.Books == "" || t.Loans == "" || t.FeeBalances == "" || t.History == "" {
		return ErrEmptyTableName
	}

	return nil
}

// ErrEmptyTableName is returned when a table name option leaves a table unnamed.
var ErrEmptyTableName = errors.New("empty table name supplied")

// ErrNilDatabaseConnection is returned by the constructors for a nil connection.
var ErrNilDatabaseConnection = errors.New("database connection must not be nil")

// Option defines a functional option for configuring a Store.
type Option func(*Store) error

// WithTableNames sets the table names for the Store.
func WithTableNames(tables TableNames) Option {
	return func(s *Store) error {
		if err := tables.validate(); err != nil {
			return err
		}

		s.tables = tables

		return nil
	}
}

// WithLogger sets the logger for the Store.
//
// Debug level: SQL statements with execution timing (development use)
// Warn level: non-critical issues like rollback failures
// Error level: failures that cause operation failures.
func WithLogger(logger lending.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}
