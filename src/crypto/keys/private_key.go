package keys

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

// GenerateKey creates a new secp256k1 private key.
func GenerateKey() (*btcec.PrivateKey, error) {
	return btcec.NewPrivateKey()
}

// DumpPrivateKey exports a private key into its 32-byte scalar.
func DumpPrivateKey(priv *btcec.PrivateKey) []byte {
	if priv == nil {
		return nil
	}
	return priv.Serialize()
}

// ParsePrivateKey creates a private key from a 32-byte scalar.
func ParsePrivateKey(d []byte) (*btcec.PrivateKey, error) {
	if len(d) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("invalid length, need %d bytes", btcec.PrivKeyBytesLen)
	}

	priv, _ := btcec.PrivKeyFromBytes(d)

	if priv.Key.IsZero() {
		return nil, fmt.Errorf("invalid private key, zero or overflowing")
	}

	return priv, nil
}

// ParsePrivateKeyHex is ParsePrivateKey for a hex encoded scalar.
func ParsePrivateKeyHex(s string) (*btcec.PrivateKey, error) {
	d, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}
	return ParsePrivateKey(d)
}

// PrivateKeyHex returns the hexadecimal representation of a raw private key as
// returned by DumpPrivateKey
func PrivateKeyHex(key *btcec.PrivateKey) string {
	return hex.EncodeToString(DumpPrivateKey(key))
}
