// Package postgresstore provides the PostgreSQL implementation of the lending
// store contracts.
//
// Every lending operation runs inside one database transaction. Availability
// changes are single conditional UPDATE statements (decrement only while a
// copy is available, increment only below the total), so the check and the
// counter change cannot be split across unsynchronized operations; the
// at-most-one-active-loan invariant is backed by a unique index on the
// (borrower, book) pair. No business rules live here.
//
// The store works with pgx pools, database/sql connections (lib/pq), and sqlx
// through the constructors NewStoreFromPGXPool, NewStoreFromSQLDB, and
// NewStoreFromSQLX. Serialization failures and deadlocks surface as
// lending.ErrStoreContention for caller-side retry.
package postgresstore
