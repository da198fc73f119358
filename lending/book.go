package lending

import (
	"github.com/google/uuid"
)

// Book is a catalog record with its copy counters. The counters obey
// 0 <= AvailableCopies <= TotalCopies at all times; AvailableCopies moves in
// lockstep with loan creation (-1) and loan completion or restock (+1), and
// the Engine is the only writer of the two counter fields on the lending path.
type Book struct {
	ID              uuid.UUID
	Title           string
	Author          string
	Description     string
	CoverRef        string
	Genres          []string
	TotalCopies     int
	AvailableCopies int
}

// Validate checks the entity invariants for a catalog write.
func (b Book) Validate() error {
	if b.ID == uuid.Nil {
		return ErrInvalidBook
	}

	if b.Title == "" || b.Author == "" {
		return ErrInvalidBook
	}

	if b.TotalCopies < 0 || b.AvailableCopies < 0 || b.AvailableCopies > b.TotalCopies {
		return ErrInvalidBook
	}

	return nil
}
