// Package memorystore provides an in-memory implementation of the lending
// store contracts.
//
// Transactions serialize on the records named by their Scope: the book lock
// is always taken before the borrower lock, and every lending operation
// touches at most one of each, so transactions on disjoint (borrower, book)
// pairs run concurrently and lock cycles cannot form. Writes are journaled
// and undone when the transaction function returns an error, so a failed
// transaction never leaves partial state behind.
//
// The package is the reference store for tests and embedded use; production
// deployments use postgresstore.
package memorystore
