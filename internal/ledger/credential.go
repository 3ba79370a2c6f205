package ledger

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Credential is the keeper's reporting identity: an ed25519 keypair in
// Solana keygen JSON form.
type Credential struct {
	key solana.PrivateKey
}

// LoadCredential reads a keygen file (a JSON array of 64 bytes).
func LoadCredential(path string) (*Credential, error) {
	if path == "" {
		return nil, errors.New("credential path is empty")
	}
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("load credential %s: %w", path, err)
	}
	return NewCredential(key)
}

func NewCredential(key solana.PrivateKey) (*Credential, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid credential: want %d key bytes, got %d", ed25519.PrivateKeySize, len(key))
	}
	return &Credential{key: key}, nil
}

// Identity is the base58 public key.
func (c *Credential) Identity() string { return c.key.PublicKey().String() }

func (c *Credential) PublicKey() solana.PublicKey { return c.key.PublicKey() }

// PrivateKey exposes the signing key to the solana backend.
func (c *Credential) PrivateKey() solana.PrivateKey { return c.key }
