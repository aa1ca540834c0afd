package service

import "github.com/google/uuid"

// newID returns a UUIDv7 string: globally unique, time-ordered, and
// lexicographically sortable, so natural sort approximates creation order.
// Generated here, before any transaction, never round-tripped to the store.
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
