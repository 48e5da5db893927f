package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Domain-specific hash types
type (
	DataHash   Hash
	DesignHash Hash
)

// Constructors
func NewDataHash(data []byte) DataHash     { return DataHash(NewHash(data)) }
func NewDesignHash(data []byte) DesignHash { return DesignHash(NewHash(data)) }

// String conversions
func (h DataHash) String() string   { return Hash(h).String() }
func (h DesignHash) String() string { return Hash(h).String() }

// ComputeDataHash fingerprints an expression matrix: sample IDs, probeset IDs
// and values in storage order.
func ComputeDataHash(sampleIDs []string, probesetIDs []string, values [][]float64) DataHash {
	var data strings.Builder
	for _, id := range sampleIDs {
		data.WriteString(id)
		data.WriteString("|")
	}
	data.WriteString("/")
	for _, id := range probesetIDs {
		data.WriteString(id)
		data.WriteString("|")
	}
	data.WriteString("/")
	for _, row := range values {
		for _, v := range row {
			data.WriteString(fmt.Sprintf("%v,", v))
		}
		data.WriteString(";")
	}
	return NewDataHash([]byte(data.String()))
}

// ComputeDesignHash fingerprints a design matrix: column names and values in
// storage order.
func ComputeDesignHash(columns []string, values [][]float64) DesignHash {
	var data strings.Builder
	for _, name := range columns {
		data.WriteString(name)
		data.WriteString("|")
	}
	data.WriteString("/")
	for _, row := range values {
		for _, v := range row {
			data.WriteString(fmt.Sprintf("%v,", v))
		}
		data.WriteString(";")
	}
	return NewDesignHash([]byte(data.String()))
}
