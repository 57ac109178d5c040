package keys

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// PublicKeyHex returns the hex encoded x-only form of the public key, which
// is how authors are identified on the wire.
func PublicKeyHex(pub *btcec.PublicKey) string {
	return hex.EncodeToString(schnorr.SerializePubKey(pub))
}

// ParsePublicKeyHex parses an x-only hex encoded public key.
func ParsePublicKeyHex(s string) (*btcec.PublicKey, error) {
	if len(s) != 2*schnorr.PubKeyBytesLen {
		return nil, fmt.Errorf("public key must be %d hex characters, got %d", 2*schnorr.PubKeyBytesLen, len(s))
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding public key: %w", err)
	}

	return schnorr.ParsePubKey(b)
}
