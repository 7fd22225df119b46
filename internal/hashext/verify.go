package hashext

import (
	"crypto"
	_ "crypto/md5"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"encoding/hex"
	"io"

	"github.com/pkg/errors"
)

// ErrHashMismatch indicates none of a requirement's acceptable hashes
// matched the computed digest of the fetched content (§7 Integrity).
var ErrHashMismatch = errors.New("hash mismatch")

var algosByName = map[string]crypto.Hash{
	"md5":    crypto.MD5,
	"sha1":   crypto.SHA1,
	"sha256": crypto.SHA256,
	"sha384": crypto.SHA384,
	"sha512": crypto.SHA512,
}

func algoName(h crypto.Hash) string {
	for name, algo := range algosByName {
		if algo == h {
			return name
		}
	}
	return ""
}

func hexDigest(sum []byte) string {
	return hex.EncodeToString(sum)
}

// VerifyStream reads r to completion, computing every algorithm named in
// want, and returns nil if at least one computed digest matches its
// counterpart in want. An empty want always succeeds (no hashes required).
func VerifyStream(r io.Reader, want map[string]string) error {
	if len(want) == 0 {
		_, err := io.Copy(io.Discard, r)
		return err
	}
	var algos []crypto.Hash
	var names []string
	for name := range want {
		algo, ok := algosByName[name]
		if !ok {
			continue
		}
		algos = append(algos, algo)
		names = append(names, name)
	}
	mh := NewMultiHash(algos...)
	if _, err := io.Copy(mh, r); err != nil {
		return errors.Wrap(err, "reading stream for hash verification")
	}
	got := mh.Digests()
	for _, name := range names {
		if got[name] == want[name] {
			return nil
		}
	}
	return errors.Wrapf(ErrHashMismatch, "computed %v, wanted %v", got, want)
}
