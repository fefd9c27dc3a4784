package core

import (
	"github.com/google/uuid"
)

// RequestID identifies one decode request from submission to reply
type RequestID string

// NewRequestID creates a time-ordered identifier. It falls back to a random UUID when the
// time-based one cannot be generated.
func NewRequestID() RequestID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return RequestID(id.String())
}

// String returns the string representation
func (id RequestID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id RequestID) IsEmpty() bool {
	return id == ""
}
