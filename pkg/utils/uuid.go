package utils

import "github.com/google/uuid"

// IsUUID reports whether s is a well-formed UUID. Conversation ids are
// minted as UUIDs, so handlers reject malformed route params before
// touching the database.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
