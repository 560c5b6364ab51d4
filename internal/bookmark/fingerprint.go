package bookmark

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Digest is the hex encoded SHA-256 fingerprint of a record's content.
type Digest string

// Fingerprint hashes the normalized title, url and parent id of a record.
// Timestamps are not covered so clock skew between clients never shows up as a change.
//
// Fingerprinting a record without an id is a programmer error and panics.
func Fingerprint(r *Record) Digest {
	if r == nil || r.ID == "" {
		panic("bookmark: fingerprint of record without id")
	}

	h := sha256.New()
	for _, field := range [...]string{r.Title, r.URL, r.ParentID} {
		v := Normalize(field)
		// length prefix keeps ("ab","c") and ("a","bc") apart
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(v)))
		h.Write(n[:])
		h.Write([]byte(v))
	}
	return Digest(hex.EncodeToString(h.Sum(nil)))
}

// FingerprintAll returns the fingerprint of every record keyed by id.
func FingerprintAll(records []*Record) map[string]Digest {
	out := make(map[string]Digest, len(records))
	for _, r := range records {
		out[r.ID] = Fingerprint(r)
	}
	return out
}

// ContentEqual reports whether two records carry the same fingerprinted content.
func ContentEqual(a, b *Record) bool {
	return Fingerprint(a) == Fingerprint(b)
}

// Normalize returns the form of a field that fingerprints are computed over.
func Normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
