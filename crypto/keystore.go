package crypto

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// SaveKeypair writes the private key to path as a JSON array of the 64 key
// bytes, the keypair file format understood by the swap CLI. Parent
// directories are created with 0700 permissions.
func SaveKeypair(path string, key *PrivateKey) error {
	if key == nil {
		return errors.New("crypto: nil private key")
	}
	if path == "" {
		return errors.New("crypto: empty keypair path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	raw := key.Bytes()
	ints := make([]int, len(raw))
	for i, b := range raw {
		ints[i] = int(b)
	}
	encoded, err := json.Marshal(ints)
	if err != nil {
		return err
	}
	return os.WriteFile(path, encoded, 0o600)
}

// LoadKeypair reads a keypair file written by SaveKeypair.
func LoadKeypair(path string) (*PrivateKey, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ints []int
	if err := json.Unmarshal(contents, &ints); err != nil {
		return nil, fmt.Errorf("crypto: decode keypair %s: %w", path, err)
	}
	raw := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("crypto: keypair %s: byte %d out of range", path, i)
		}
		raw[i] = byte(v)
	}
	return PrivateKeyFromBytes(raw)
}
