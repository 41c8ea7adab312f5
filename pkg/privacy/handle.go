package privacy

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Handle is an opaque reference to an encrypted card value held by the
// external encryption service. A handle is meaningless without a matching
// decryption allowance.
type Handle [16]byte

// NewHandle returns a fresh random handle.
func NewHandle() (Handle, error) {
	var h Handle
	if _, err := rand.Read(h[:]); err != nil {
		return Handle{}, fmt.Errorf("failed to generate handle: %w", err)
	}
	return h, nil
}

// IsZero reports whether the handle is the zero value.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

// String returns the handle in lowercase hex.
func (h Handle) String() string {
	return hex.EncodeToString(h[:])
}

// ParseHandle decodes a hex-encoded handle.
func ParseHandle(s string) (Handle, error) {
	var h Handle
	b, err := hex.DecodeString(s)
	if err != nil {
		return Handle{}, fmt.Errorf("invalid handle %q: %w", s, err)
	}
	if len(b) != len(h) {
		return Handle{}, fmt.Errorf("invalid handle length %d", len(b))
	}
	copy(h[:], b)
	return h, nil
}

// MarshalJSON implements json.Marshaler.
func (h Handle) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *Handle) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseHandle(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
