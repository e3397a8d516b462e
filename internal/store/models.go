package store

import "time"

type Setting struct {
	Key   string
	Value string
}

// QuarantinedDocument is a blob that failed to parse on load, kept so the
// user can dump it with "rollday quarantine" and repair it by hand.
type QuarantinedDocument struct {
	ID        int64
	Key       string
	Body      []byte
	Reason    string
	CreatedAt time.Time
}
