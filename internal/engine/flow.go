package engine

import "github.com/google/uuid"

// FlowTokenGenerator produces correlation tokens for calls that do not
// carry one. Scenarios and tests plug in the generators from testutil.
type FlowTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 flow tokens.
// It is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a hyphenated UUIDv7. Panics if the random source fails.
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
