// Package stableid implements the hex identity primitives the rest of the
// engine builds on: HexId, a validated lowercase hex string, and StableId,
// the caller-supplied identity used for ramp-up bucketing.
package stableid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/flagforge/core/pkg/ffcerr"
)

// HexId is a validated, lowercase hex string. The zero value is invalid;
// construct with ParseHexId or NewHexIdFromBytes.
type HexId struct {
	value string
}

// ParseHexId validates and normalizes a raw hex string into a HexId.
func ParseHexId(raw string) (HexId, error) {
	if raw == "" {
		return HexId{}, ffcerr.New(ffcerr.ErrInvalidHexId, "hex id must not be empty")
	}
	lower := strings.ToLower(raw)
	for _, r := range lower {
		if !isHexDigit(r) {
			return HexId{}, ffcerr.New(ffcerr.ErrInvalidHexId, fmt.Sprintf("hex id %q contains non-hex character %q", raw, r))
		}
	}
	return HexId{value: lower}, nil
}

// NewHexIdFromBytes encodes raw bytes to their lowercase hex form.
func NewHexIdFromBytes(b []byte) HexId {
	return HexId{value: hex.EncodeToString(b)}
}

// String returns the normal form: lowercase hex.
func (h HexId) String() string { return h.value }

// IsZero reports whether this HexId was never validly constructed.
func (h HexId) IsZero() bool { return h.value == "" }

// Equal reports structural equality.
func (h HexId) Equal(other HexId) bool { return h.value == other.value }

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
}

// StableId pairs the caller-supplied raw identity string with its
// normalized HexId form. Two callers presenting the same raw string
// always produce the same StableId; callers may also construct directly
// from a hex string when their identity is already hex-encoded (e.g. a
// device id), via ParseStableIdHex.
type StableId struct {
	raw   string
	hexID HexId
}

// NewStableId encodes an arbitrary non-blank string into a StableId. The
// raw bytes of the string are encoded directly to lowercase hex — there is
// no hashing step — so the mapping is reversible and stable across
// processes without needing a digest.
func NewStableId(raw string) (StableId, error) {
	if strings.TrimSpace(raw) == "" {
		return StableId{}, ffcerr.New(ffcerr.ErrInvalidHexId, "stable id must not be blank")
	}
	return StableId{raw: raw, hexID: NewHexIdFromBytes([]byte(raw))}, nil
}

// ParseStableIdHex constructs a StableId directly from a raw hex string
// (the caller already has a hex-encoded identity, e.g. from another
// system), skipping the byte-encoding step NewStableId performs.
func ParseStableIdHex(rawHex string) (StableId, error) {
	if strings.TrimSpace(rawHex) == "" {
		return StableId{}, ffcerr.New(ffcerr.ErrInvalidHexId, "stable id must not be blank")
	}
	id, err := ParseHexId(rawHex)
	if err != nil {
		return StableId{}, err
	}
	return StableId{raw: rawHex, hexID: id}, nil
}

// Raw returns the original caller-supplied string.
func (s StableId) Raw() string { return s.raw }

// Hex returns the normalized HexId form used for bucketing.
func (s StableId) Hex() HexId { return s.hexID }

// IsZero reports whether this StableId was never validly constructed.
func (s StableId) IsZero() bool { return s.hexID.IsZero() }

// DigestHash returns SHA-256(raw) as a HexId — a privacy-preserving
// alternate identity, independent of the direct byte-encoding Hex() uses.
// Not used by bucketing (which is defined over Hex()); provided for hosts
// that want to log or transmit an identity without the reversible
// byte-encoding NewStableId produces.
func (s StableId) DigestHash() HexId {
	sum := sha256.Sum256([]byte(s.raw))
	return NewHexIdFromBytes(sum[:])
}
