package crypto

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const (
	// MaxSeedLength bounds each seed passed to authority derivation.
	MaxSeedLength = 32
	// MaxSeeds bounds the number of seeds, bump included.
	MaxSeeds = 16

	authorityMarker = "ProgramDerivedAddress"
)

var (
	ErrSeedTooLong      = errors.New("crypto: authority seed too long")
	ErrOnCurveAuthority = errors.New("crypto: derived address lies on the ed25519 curve")
	ErrNoViableBump     = errors.New("crypto: unable to find a viable authority bump")
)

// CreateAuthorityAddress hashes the seeds with the owning program id. The
// result is rejected when it decodes as an ed25519 point, since such an
// address could have a private key.
func CreateAuthorityAddress(seeds [][]byte, programID PublicKey) (PublicKey, error) {
	var out PublicKey
	if len(seeds) > MaxSeeds {
		return out, fmt.Errorf("%w: %d seeds", ErrSeedTooLong, len(seeds))
	}
	parts := make([][]byte, 0, len(seeds)+2)
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return out, fmt.Errorf("%w: %d bytes", ErrSeedTooLong, len(seed))
		}
		parts = append(parts, seed)
	}
	parts = append(parts, programID[:], []byte(authorityMarker))
	copy(out[:], ethcrypto.Keccak256(parts...))
	if isOnCurve(out) {
		return PublicKey{}, ErrOnCurveAuthority
	}
	return out, nil
}

// DeriveAuthority finds the program-derived authority for seed, searching bump
// values from 255 downwards. The bump acts as the proof that lets the program
// re-create the address when it signs on the authority's behalf.
func DeriveAuthority(seed []byte, programID PublicKey) (PublicKey, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		addr, err := CreateAuthorityAddress([][]byte{seed, {byte(bump)}}, programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurveAuthority) {
			return PublicKey{}, 0, err
		}
	}
	return PublicKey{}, 0, ErrNoViableBump
}

func isOnCurve(key PublicKey) bool {
	_, err := new(edwards25519.Point).SetBytes(key[:])
	return err == nil
}
