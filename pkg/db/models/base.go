package models

import "github.com/google/uuid"

// ensureID assigns a random identifier when the caller left it unset so rows
// can be inserted on databases without gen_random_uuid().
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
