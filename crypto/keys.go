package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
)

// PublicKeySize is the length in bytes of every ledger address.
const PublicKeySize = 32

// PublicKey is a 32-byte ledger address. Wallet keys are ed25519 public keys;
// derived authorities are off-curve addresses with no private key.
type PublicKey [PublicKeySize]byte

// String renders the key in base58, the canonical text form used by the CLI,
// configuration and RPC payloads.
func (k PublicKey) String() string {
	return base58.Encode(k[:])
}

// Bytes returns a copy of the raw key bytes.
func (k PublicKey) Bytes() []byte {
	out := make([]byte, PublicKeySize)
	copy(out, k[:])
	return out
}

// IsZero reports whether the key is the all-zero address.
func (k PublicKey) IsZero() bool {
	return k == PublicKey{}
}

func (k PublicKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParsePublicKey decodes a base58 address.
func ParsePublicKey(s string) (PublicKey, error) {
	var out PublicKey
	if s == "" {
		return out, fmt.Errorf("crypto: empty public key")
	}
	decoded := base58.Decode(s)
	if len(decoded) != PublicKeySize {
		return out, fmt.Errorf("crypto: invalid public key %q: decoded length %d", s, len(decoded))
	}
	copy(out[:], decoded)
	return out, nil
}

// MustParsePublicKey is ParsePublicKey for package-level constants.
func MustParsePublicKey(s string) PublicKey {
	key, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return key
}

// PublicKeyFromBytes copies a 32-byte slice into a PublicKey.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var out PublicKey
	if len(b) != PublicKeySize {
		return out, fmt.Errorf("crypto: public key must be %d bytes, got %d", PublicKeySize, len(b))
	}
	copy(out[:], b)
	return out, nil
}

// --- Key Management ---

type PrivateKey struct {
	ed25519.PrivateKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// PrivateKeyFromSeed builds a deterministic key from a 32-byte seed. Tests use
// it to obtain stable participant addresses.
func PrivateKeyFromSeed(seed []byte) (*PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("crypto: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &PrivateKey{ed25519.NewKeyFromSeed(seed)}, nil
}

// PrivateKeyFromBytes accepts the 64-byte expanded form stored in keypair files.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("crypto: private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(b))
	}
	key := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	copy(key, b)
	return &PrivateKey{key}, nil
}

// Bytes returns the byte representation of the private key.
func (k *PrivateKey) Bytes() []byte {
	out := make([]byte, len(k.PrivateKey))
	copy(out, k.PrivateKey)
	return out
}

func (k *PrivateKey) PublicKey() PublicKey {
	var out PublicKey
	copy(out[:], k.PrivateKey.Public().(ed25519.PublicKey))
	return out
}

func (k *PrivateKey) Sign(message []byte) []byte {
	return ed25519.Sign(k.PrivateKey, message)
}

// Verify checks an ed25519 signature produced by the holder of key.
func Verify(key PublicKey, message, signature []byte) bool {
	if len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(key[:]), message, signature)
}
