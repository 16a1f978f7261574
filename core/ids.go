package core

import "github.com/google/uuid"

// NewID generates a new random identifier, used for run ids, message ids
// and any other identifier that does not need to be content-addressed.
func NewID() string { return uuid.NewString() }
