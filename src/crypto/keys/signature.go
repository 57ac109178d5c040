package keys

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// Sign produces the hex encoded BIP-340 signature of a 32-byte hash.
func Sign(priv *btcec.PrivateKey, hash []byte) (string, error) {
	sig, err := schnorr.Sign(priv, hash)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sig.Serialize()), nil
}

// Verify checks that sigHex is a valid signature of hash by the owner of the
// x-only public key pubHex. Malformed keys or signatures are reported as
// errors; a well-formed signature that does not verify returns false.
func Verify(pubHex string, hash []byte, sigHex string) (bool, error) {
	pub, err := ParsePublicKeyHex(pubHex)
	if err != nil {
		return false, err
	}

	if len(sigHex) != 2*schnorr.SignatureSize {
		return false, fmt.Errorf("signature must be %d hex characters, got %d", 2*schnorr.SignatureSize, len(sigHex))
	}

	sigBytes, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, fmt.Errorf("decoding signature: %w", err)
	}

	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return false, err
	}

	return sig.Verify(hash, pub), nil
}
