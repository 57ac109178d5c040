package projection

import (
	"errors"
	"strings"

	"github.com/ugorji/go/codec"
)

var errUnexpectedJSON = errors.New("unexpected JSON value")

// decodeObject decodes a JSON object from content. The codec would also
// accept an array for a struct or a map for a slice, so the shape is checked
// first. Callers treat any error as absence of data.
func decodeObject(data string, v interface{}) error {
	return decode(data, '{', v)
}

// decodeArray is decodeObject for JSON arrays.
func decodeArray(data string, v interface{}) error {
	return decode(data, '[', v)
}

func decode(data string, open byte, v interface{}) error {
	trimmed := strings.TrimSpace(data)
	if trimmed == "" || trimmed[0] != open {
		return errUnexpectedJSON
	}

	jh := new(codec.JsonHandle)
	dec := codec.NewDecoderBytes([]byte(trimmed), jh)
	return dec.Decode(v)
}
