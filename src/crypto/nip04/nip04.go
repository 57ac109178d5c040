// Package nip04 implements the encryption scheme used for direct messages
// and private application data: AES-256-CBC keyed by the x coordinate of the
// secp256k1 ECDH shared point, encoded as "<base64 ciphertext>?iv=<base64 iv>".
package nip04

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/mosaicnetworks/relayfold/src/crypto/keys"
)

// ErrMalformed is returned when a ciphertext is not in the expected format or
// does not decrypt to correctly padded plaintext.
var ErrMalformed = errors.New("malformed nip04 ciphertext")

// SharedSecret computes the key shared by priv and the x-only public key pub.
func SharedSecret(priv *btcec.PrivateKey, pubHex string) ([]byte, error) {
	pub, err := keys.ParsePublicKeyHex(pubHex)
	if err != nil {
		return nil, err
	}
	return btcec.GenerateSharedSecret(priv, pub), nil
}

// Encrypt encrypts plaintext for the holder of pubHex.
func Encrypt(priv *btcec.PrivateKey, pubHex string, plaintext string) (string, error) {
	secret, err := SharedSecret(priv, pubHex)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(secret)
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}

	padded := pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return base64.StdEncoding.EncodeToString(ciphertext) + "?iv=" + base64.StdEncoding.EncodeToString(iv), nil
}

// Decrypt decrypts content sent to priv's owner by the holder of pubHex.
func Decrypt(priv *btcec.PrivateKey, pubHex string, content string) (string, error) {
	parts := strings.Split(content, "?iv=")
	if len(parts) != 2 {
		return "", ErrMalformed
	}

	ciphertext, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	iv, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(iv) != aes.BlockSize || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", ErrMalformed
	}

	secret, err := SharedSecret(priv, pubHex)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(secret)
	if err != nil {
		return "", err
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	plaintext, err = unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, size int) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, ErrMalformed
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, ErrMalformed
		}
	}
	return b[:len(b)-n], nil
}

// Decrypter decrypts content addressed to the owner of a private key. It
// satisfies projection.Decrypter.
type Decrypter struct {
	priv *btcec.PrivateKey
}

// NewDecrypter returns a Decrypter for priv.
func NewDecrypter(priv *btcec.PrivateKey) *Decrypter {
	return &Decrypter{priv: priv}
}

// PubKey returns the hex encoded public key of the user.
func (d *Decrypter) PubKey() string {
	return keys.PublicKeyHex(d.priv.PubKey())
}

// DecryptAsUser decrypts ciphertext from authorPubKey.
func (d *Decrypter) DecryptAsUser(ctx context.Context, ciphertext string, authorPubKey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return Decrypt(d.priv, authorPubKey, ciphertext)
}
