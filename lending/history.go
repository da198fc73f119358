package lending

import (
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is the immutable record of a completed loan. Entries are
// append-only; nothing in this module updates or deletes them.
type HistoryEntry struct {
	ID         uuid.UUID
	BorrowerID uuid.UUID
	BookID     uuid.UUID
	BorrowedOn time.Time
	ReturnedOn time.Time
}
