package event

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/mosaicnetworks/relayfold/src/crypto"
	"github.com/mosaicnetworks/relayfold/src/crypto/keys"
	"github.com/ugorji/go/codec"
)

var (
	// ErrIDMismatch is returned by Verify when the ID is not the hash of the
	// event's content.
	ErrIDMismatch = errors.New("event id does not match its content")
	// ErrBadSignature is returned by Verify when the signature does not
	// verify against the author's public key.
	ErrBadSignature = errors.New("invalid event signature")

	errNotAnObject = errors.New("event body is not a JSON object")
)

// Event is a signed, immutable record. SeenOn is derived locally and never
// serialized.
type Event struct {
	ID        string    `json:"id"`
	PubKey    string    `json:"pubkey"`
	CreatedAt Timestamp `json:"created_at"`
	Kind      Kind      `json:"kind"`
	Tags      Tags      `json:"tags"`
	Content   string    `json:"content"`
	Sig       string    `json:"sig"`

	SeenOn *RelaySet `json:"-"`
}

// Serialize returns the canonical serialization whose hash is the event ID.
func (e *Event) Serialize() []byte {
	var b bytes.Buffer

	b.WriteString(`[0,"`)
	b.WriteString(e.PubKey)
	b.WriteString(`",`)
	b.WriteString(strconv.FormatInt(int64(e.CreatedAt), 10))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(int(e.Kind)))
	b.WriteString(",[")
	for i, tag := range e.Tags {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('[')
		for j, v := range tag {
			if j > 0 {
				b.WriteByte(',')
			}
			writeString(&b, v)
		}
		b.WriteByte(']')
	}
	b.WriteString("],")
	writeString(&b, e.Content)
	b.WriteByte(']')

	return b.Bytes()
}

// writeString writes s as a JSON string with exactly the escapes the ID
// serialization allows; everything else is emitted as raw UTF-8.
func writeString(b *bytes.Buffer, s string) {
	const hexDigits = "0123456789abcdef"

	b.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			b.WriteRune(r)
			i += size
			continue
		}
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if c < 0x20 {
				b.WriteString(`\u00`)
				b.WriteByte(hexDigits[c>>4])
				b.WriteByte(hexDigits[c&0xf])
			} else {
				b.WriteByte(c)
			}
		}
		i++
	}
	b.WriteByte('"')
}

// Hash returns the SHA256 hash of the canonical serialization.
func (e *Event) Hash() []byte {
	return crypto.SHA256(e.Serialize())
}

// ComputeID returns the hex encoded Hash.
func (e *Event) ComputeID() string {
	return hex.EncodeToString(e.Hash())
}

// Sign sets PubKey, ID and Sig from the private key.
func (e *Event) Sign(priv *btcec.PrivateKey) error {
	e.PubKey = keys.PublicKeyHex(priv.PubKey())

	hash := e.Hash()
	sig, err := keys.Sign(priv, hash)
	if err != nil {
		return err
	}

	e.ID = hex.EncodeToString(hash)
	e.Sig = sig

	return nil
}

// Verify checks that the ID is the hash of the content and that Sig is the
// author's signature of it.
func (e *Event) Verify() error {
	hash := e.Hash()
	if e.ID != hex.EncodeToString(hash) {
		return ErrIDMismatch
	}

	ok, err := keys.Verify(e.PubKey, hash, e.Sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if !ok {
		return ErrBadSignature
	}

	return nil
}

// Relays returns the relays the event was seen on.
func (e *Event) Relays() []string {
	return e.SeenOn.URLs()
}

// Marshal returns the JSON encoding of the Event.
func (e *Event) Marshal() ([]byte, error) {
	var b bytes.Buffer

	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(&b, jh)

	if err := enc.Encode(e); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal decodes a JSON encoded Event. An absent content field decodes to
// the empty string.
func (e *Event) Unmarshal(data []byte) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errNotAnObject
	}

	b := bytes.NewBuffer(trimmed)

	jh := new(codec.JsonHandle)
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(e)
}
