package core

import (
	"crypto/sha256"
	"encoding/hex"
)

// Checksum is the hex SHA-256 of an uploaded file
type Checksum string

// NewChecksum hashes data
func NewChecksum(data []byte) Checksum {
	sum := sha256.Sum256(data)
	return Checksum(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (c Checksum) String() string {
	return string(c)
}

// Short returns the first 12 hex digits, enough to tell uploads apart in logs
func (c Checksum) Short() string {
	if len(c) < 12 {
		return string(c)
	}
	return string(c[:12])
}
