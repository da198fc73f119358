// Package lending implements the lending lifecycle of a library's physical
// book copies: checkout, renewal, return, overdue-fee accrual, and fee
// settlement.
//
// The package is a library-level contract with no transport concerns. A caller
// (identified by a borrower identity resolved upstream) invokes one Engine
// operation per request; the Engine reads current state through the store
// contracts, validates the business rules, and mutates state inside a single
// store transaction. Completed loans are appended to an immutable history.
//
// Store implementations live in the subpackages memorystore (in-memory, with
// per-book and per-borrower lock scoping) and postgresstore (PostgreSQL, with
// conditional single-statement counter updates).
//
// All day-level computations (due dates, overdue days) use UTC calendar dates.
package lending
