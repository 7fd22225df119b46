// Package hashext extends crypto/hash with multi-algorithm streaming
// hashing and the hash-verification helper backing the Hash computer
// contract (§6) and requirement-hash checking (§3.3).
package hashext

import (
	"crypto"
	"hash"
)

// TypedHash is a hash.Hash annotated with the algorithm that produced it.
type TypedHash struct {
	hash.Hash
	Algorithm crypto.Hash
}

// NewTypedHash constructs a TypedHash for algo, which must have been
// registered via an anonymous crypto import (e.g. _ "crypto/sha256").
func NewTypedHash(algo crypto.Hash) TypedHash {
	return TypedHash{Hash: algo.New(), Algorithm: algo}
}
