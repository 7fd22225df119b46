package hashext

import (
	"crypto"
	"encoding/binary"
	"hash"
)

// MultiHash computes several hash algorithms in a single pass over a
// stream, so a downloaded archive only needs to be read once to check it
// against a requirement's acceptable-hash set regardless of how many
// algorithms that set spans.
type MultiHash []TypedHash

// NewMultiHash constructs a MultiHash covering the given algorithms.
func NewMultiHash(algos ...crypto.Hash) MultiHash {
	mh := make(MultiHash, 0, len(algos))
	for _, a := range algos {
		mh = append(mh, NewTypedHash(a))
	}
	return mh
}

// Write feeds p to every contained hash.
func (m MultiHash) Write(p []byte) (int, error) {
	for _, th := range m {
		if _, err := th.Write(p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Sum concatenates each algorithm id with that algorithm's digest.
func (m MultiHash) Sum(b []byte) []byte {
	var out []byte
	for _, th := range m {
		out = binary.BigEndian.AppendUint64(out, uint64(th.Algorithm))
		out = append(out, th.Sum(b)...)
	}
	return out
}

// Reset resets every contained hash.
func (m MultiHash) Reset() {
	for _, th := range m {
		th.Reset()
	}
}

// Size returns the total encoded size of Sum's output.
func (m MultiHash) Size() int {
	var size int
	for _, th := range m {
		size += 8 + th.Size()
	}
	return size
}

// BlockSize returns the smallest block size among the contained hashes.
func (m MultiHash) BlockSize() int {
	size := m[0].BlockSize()
	for _, th := range m[1:] {
		if th.BlockSize() < size {
			size = th.BlockSize()
		}
	}
	return size
}

// Digests returns a map from algorithm name (lowercase, e.g. "sha256") to
// hex-encoded digest, matching the form used in requirement hash pins and
// PyPI's Digests structure.
func (m MultiHash) Digests() map[string]string {
	out := make(map[string]string, len(m))
	for _, th := range m {
		out[algoName(th.Algorithm)] = hexDigest(th.Hash.Sum(nil))
	}
	return out
}

var _ hash.Hash = MultiHash{}
