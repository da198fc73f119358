// Package storewrapper abstracts over the lending store's PostgreSQL
// adapters for integration testing. The ADAPTER_TYPE environment variable
// selects the adapter (pgx.pool, sql.db, sqlx.db); pgx.pool is the default.
package storewrapper
