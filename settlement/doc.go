// Package settlement translates payment gateway confirmations into fee
// settlement on the lending engine. The gateway charges a borrower for
// outstanding fees out of band; once it reports the charge as confirmed,
// the processor clears the borrower's balance. Processing the same
// confirmation twice is safe because settling an already clean balance
// is a no-op.
package settlement
