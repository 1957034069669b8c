// Package integrity provides deterministic metadata hashing for stage events.
// All functions are pure; the same metadata value always yields the same
// digest regardless of the key order it arrived with on the wire.
package integrity

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashMetadata produces the SHA-256 hex digest of the canonical JSON
// serialization of v. A nil metadata value hashes as the empty object so
// that "no metadata" is a stable, verifiable input rather than a special case.
//
// The digest is computed at write time and again at verification time; any
// serialization drift between the two calls would break verification
// silently, which is why the serialization is canonicalized here rather
// than trusting whatever ordering the decoder preserved.
func HashMetadata(v any) (string, error) {
	canonical, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// CanonicalJSON serializes v with object keys in sorted order at every
// nesting level and no insignificant whitespace. Number text from the
// first serialization is preserved verbatim via json.Number rather than
// being re-rounded through float64.
func CanonicalJSON(v any) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}

	// Round-trip through a generic value. encoding/json emits map keys in
	// sorted order, which is the whole canonicalization: struct inputs and
	// decoder-ordered maps both collapse to the same bytes.
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("integrity: marshal metadata: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("integrity: canonicalize metadata: %w", err)
	}

	canonical, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("integrity: remarshal metadata: %w", err)
	}
	return canonical, nil
}

// Matches reports whether the stored digest equals a fresh digest of v.
// A hashing failure counts as a mismatch: metadata that can no longer be
// serialized cannot be considered intact.
func Matches(stored string, v any) bool {
	recomputed, err := HashMetadata(v)
	if err != nil {
		return false
	}
	return stored == recomputed
}
