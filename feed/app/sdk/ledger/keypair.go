package ledger

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

const keyFileName = "key.ed25519"

// Keypair represents a signing capability for one on-ledger identity. The
// public key doubles as the account pointer.
type Keypair struct {
	priv ed25519.PrivateKey
}

// NewKeypair generates a fresh signing capability.
func NewKeypair() (Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, fmt.Errorf("generate key: %w", err)
	}

	return Keypair{priv: priv}, nil
}

// KeypairFromHex reconstructs a signing capability from its hex encoding.
func KeypairFromHex(s string) (Keypair, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Keypair{}, fmt.Errorf("decode key: %w", err)
	}

	if len(b) != ed25519.PrivateKeySize {
		return Keypair{}, fmt.Errorf("decode key: got %d bytes, expected %d", len(b), ed25519.PrivateKeySize)
	}

	return Keypair{priv: ed25519.PrivateKey(b)}, nil
}

// LoadOrCreateKeypair loads the signing capability stored under the
// specified path, creating and persisting a new one on first use.
func LoadOrCreateKeypair(filePath string) (Keypair, error) {
	os.MkdirAll(filepath.Join(filePath, "id"), os.ModePerm)

	fileName := filepath.Join(filePath, "id", keyFileName)

	if _, err := os.Stat(fileName); err != nil {
		kp, err := NewKeypair()
		if err != nil {
			return Keypair{}, err
		}

		if err := os.WriteFile(fileName, []byte(kp.Hex()), 0600); err != nil {
			return Keypair{}, fmt.Errorf("key file write: %w", err)
		}

		return kp, nil
	}

	b, err := os.ReadFile(fileName)
	if err != nil {
		return Keypair{}, fmt.Errorf("key file read: %w", err)
	}

	return KeypairFromHex(string(b))
}

// IsZero reports whether the capability is unset.
func (kp Keypair) IsZero() bool {
	return kp.priv == nil
}

// Public returns the pointer of the identity this capability signs for.
func (kp Keypair) Public() Pointer {
	var p Pointer
	copy(p[:], kp.priv.Public().(ed25519.PublicKey))
	return p
}

// Sign produces a signature over the specified message.
func (kp Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(kp.priv, msg)
}

// Hex returns the hex encoding of the capability for transport to a
// trusted caller.
func (kp Keypair) Hex() string {
	return hex.EncodeToString(kp.priv)
}
