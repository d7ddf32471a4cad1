package model

// Provider is a catalog row describing a configured delivery provider.
// Dispatch never reads it; clients are selected by message type.
type Provider struct {
	ID   int64   `db:"id"`
	Name string  `db:"name"`
	Type Channel `db:"type"` // sms|email
}
