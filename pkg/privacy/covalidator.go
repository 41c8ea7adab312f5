package privacy

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"

	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/group/edwards25519"
	"go.dedis.ch/kyber/v4/sign/eddsa"
)

// Covalidator is the decryption service trusted to hold card plaintexts.
// It encrypts card values into opaque handles, tracks per-account
// decryption allowances, and signs attestations binding a handle to its
// plaintext so third parties can verify reveals.
type Covalidator interface {
	// Encrypt stores value under a fresh handle and returns the handle.
	Encrypt(value uint8) (Handle, error)
	// GrantAllowance permits account to decrypt the given handle.
	GrantAllowance(h Handle, account string) error
	// Decrypt returns the plaintext for h if account holds an allowance.
	Decrypt(h Handle, account string) (uint8, error)
	// Attest returns a signature over AttestationHash(h, value).
	Attest(h Handle, value uint8) ([]byte, error)
	// PublicKey returns the covalidator's EdDSA public key bytes.
	PublicKey() []byte
}

// AttestationHash computes the message a covalidator signs when
// attesting that handle h decrypts to value: the SHA-256 of the hex
// form of the handle followed by the value as a 16-byte little-endian
// integer.
func AttestationHash(h Handle, value uint8) [32]byte {
	var buf [32 + 16]byte
	hex.Encode(buf[:32], h[:])
	binary.LittleEndian.PutUint64(buf[32:40], uint64(value))
	return sha256.Sum256(buf[:])
}

// Verifier checks covalidator attestations against a known public key.
type Verifier struct {
	public kyber.Point
}

// NewVerifier builds a Verifier from 32 public key bytes.
func NewVerifier(publicKey []byte) (*Verifier, error) {
	suite := edwards25519.NewBlakeSHA256Ed25519()
	p := suite.Point()
	if err := p.UnmarshalBinary(publicKey); err != nil {
		return nil, fmt.Errorf("invalid covalidator public key: %w", err)
	}
	return &Verifier{public: p}, nil
}

// VerifyAttestation checks that sig is a valid covalidator signature
// binding handle h to plaintext value.
func (v *Verifier) VerifyAttestation(h Handle, value uint8, sig []byte) error {
	msg := AttestationHash(h, value)
	if err := eddsa.Verify(v.public, msg[:], sig); err != nil {
		return fmt.Errorf("attestation verification failed: %w", err)
	}
	return nil
}

// LocalCovalidator is an in-process Covalidator. It backs development
// deployments and tests; a production table would point at a remote
// covalidator implementing the same interface.
type LocalCovalidator struct {
	mu         sync.Mutex
	key        *eddsa.EdDSA
	plaintexts map[Handle]uint8
	allowances map[Handle]map[string]bool
}

// NewLocalCovalidator creates a covalidator with a fresh signing key.
func NewLocalCovalidator() *LocalCovalidator {
	suite := edwards25519.NewBlakeSHA256Ed25519()
	return &LocalCovalidator{
		key:        eddsa.NewEdDSA(suite.RandomStream()),
		plaintexts: make(map[Handle]uint8),
		allowances: make(map[Handle]map[string]bool),
	}
}

// Encrypt implements Covalidator.
func (c *LocalCovalidator) Encrypt(value uint8) (Handle, error) {
	h, err := NewHandle()
	if err != nil {
		return Handle{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plaintexts[h] = value
	return h, nil
}

// GrantAllowance implements Covalidator.
func (c *LocalCovalidator) GrantAllowance(h Handle, account string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.plaintexts[h]; !ok {
		return fmt.Errorf("unknown handle %s", h)
	}
	if c.allowances[h] == nil {
		c.allowances[h] = make(map[string]bool)
	}
	c.allowances[h][account] = true
	return nil
}

// Decrypt implements Covalidator.
func (c *LocalCovalidator) Decrypt(h Handle, account string) (uint8, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.plaintexts[h]
	if !ok {
		return 0, fmt.Errorf("unknown handle %s", h)
	}
	if !c.allowances[h][account] {
		return 0, fmt.Errorf("account %s has no allowance for handle %s", account, h)
	}
	return value, nil
}

// Attest implements Covalidator.
func (c *LocalCovalidator) Attest(h Handle, value uint8) ([]byte, error) {
	c.mu.Lock()
	stored, ok := c.plaintexts[h]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown handle %s", h)
	}
	if stored != value {
		return nil, fmt.Errorf("handle %s does not decrypt to %d", h, value)
	}
	msg := AttestationHash(h, value)
	return c.key.Sign(msg[:])
}

// PublicKey implements Covalidator.
func (c *LocalCovalidator) PublicKey() []byte {
	b, err := c.key.Public.MarshalBinary()
	if err != nil {
		// Ed25519 points always marshal.
		panic(err)
	}
	return b
}
