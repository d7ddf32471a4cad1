package model

import "time"

// Conversation threads every message exchanged between one unordered pair of addresses.
type Conversation struct {
	ID           string    `db:"id"`
	Participant1 string    `db:"participant_1"`
	Participant2 string    `db:"participant_2"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"` // bumped on every new message
}

// PairKey orders two addresses so (a,b) and (b,a) produce the same key.
func PairKey(a, b string) (low, high string) {
	if b < a {
		return b, a
	}
	return a, b
}

// Has reports whether addr is one of the participants.
func (c Conversation) Has(addr string) bool {
	return c.Participant1 == addr || c.Participant2 == addr
}
