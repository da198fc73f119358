package postgresstore

import (
	"context"
	"fmt"
)

// SchemaStatements returns the DDL for the lending tables, one statement per
// element so it can be executed over drivers that reject multi-statement
// strings. All statements are idempotent.
func SchemaStatements(tables TableNames) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	book_id uuid PRIMARY KEY,
	title text NOT NULL,
	author text NOT NULL,
	description text NOT NULL DEFAULT '',
	cover_ref text NOT NULL DEFAULT '',
	genres jsonb NOT NULL DEFAULT '[]',
	total_copies integer NOT NULL CHECK (total_copies >= 0),
	available_copies integer NOT NULL CHECK (available_copies >= 0),
	CHECK (available_copies <= total_copies)
)`, tables.Books),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	loan_id uuid PRIMARY KEY,
	borrower_id uuid NOT NULL,
	book_id uuid NOT NULL,
	borrowed_on date NOT NULL,
	due_on date NOT NULL,
	UNIQUE (borrower_id, book_id)
)`, tables.Loans),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_borrower_idx ON %s (borrower_id)`, tables.Loans, tables.Loans),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_book_idx ON %s (book_id)`, tables.Loans, tables.Loans),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	borrower_id uuid PRIMARY KEY,
	amount numeric(12,2) NOT NULL DEFAULT 0 CHECK (amount >= 0)
)`, tables.FeeBalances),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	history_id uuid PRIMARY KEY,
	borrower_id uuid NOT NULL,
	book_id uuid NOT NULL,
	borrowed_on date NOT NULL,
	returned_on date NOT NULL
)`, tables.History),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_borrower_idx ON %s (borrower_id)`, tables.History, tables.History),
	}
}

// EnsureSchema creates the store's tables and indexes if they do not exist.
func (s Store) EnsureSchema(ctx context.Context) error {
	for _, statement := range SchemaStatements(s.tables) {
		if _, err := s.db.Exec(ctx, statement); err != nil {
			return err
		}
	}

	return nil
}
