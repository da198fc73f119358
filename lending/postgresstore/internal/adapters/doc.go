// Package adapters provide database adapter implementations for the PostgreSQL lending store.
//
// This package implements the adapter pattern to support multiple PostgreSQL database libraries:
// pgx.Pool, sql.DB, and sqlx.DB. All adapters provide equivalent functionality through
// a common DBAdapter interface, allowing the lending store to work seamlessly with any
// supported database connection type.
//
// In addition to plain query execution, every adapter can begin a transaction
// and hand back a DBTx with the same query surface plus commit and rollback,
// which the store uses to scope each lending operation.
package adapters
