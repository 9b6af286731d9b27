// Package encoding implements the Base64 codec for the audio wire protocol.
//
// The encoder writes the standard alphabet with '=' padding. The decoder is
// deliberately stricter than encoding/base64: any byte outside the alphabet
// is rejected, except ASCII whitespace, which is skipped so payloads that
// crossed a line-wrapping hop still decode.
package encoding

import (
	"errors"
	"fmt"
)

// ErrInvalidBase64 is wrapped by all decode errors.
var ErrInvalidBase64 = errors.New("encoding: invalid base64")

const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var base64Rev [256]int8

func init() {
	for i := range base64Rev {
		base64Rev[i] = -1
	}
	for i := 0; i < len(base64Alphabet); i++ {
		base64Rev[base64Alphabet[i]] = int8(i)
	}
}

// Base64EncodedLen returns the encoded length of n source bytes: 4*ceil(n/3).
func Base64EncodedLen(n int) int {
	return (n + 2) / 3 * 4
}

// Base64Encode encodes src with the standard alphabet and '=' padding.
func Base64Encode(src []byte) string {
	if len(src) == 0 {
		return ""
	}
	dst := make([]byte, Base64EncodedLen(len(src)))
	di, i := 0, 0
	for ; i+3 <= len(src); i += 3 {
		v := uint32(src[i])<<16 | uint32(src[i+1])<<8 | uint32(src[i+2])
		dst[di+0] = base64Alphabet[v>>18&0x3F]
		dst[di+1] = base64Alphabet[v>>12&0x3F]
		dst[di+2] = base64Alphabet[v>>6&0x3F]
		dst[di+3] = base64Alphabet[v&0x3F]
		di += 4
	}
	switch len(src) - i {
	case 1:
		v := uint32(src[i]) << 16
		dst[di+0] = base64Alphabet[v>>18&0x3F]
		dst[di+1] = base64Alphabet[v>>12&0x3F]
		dst[di+2] = '='
		dst[di+3] = '='
	case 2:
		v := uint32(src[i])<<16 | uint32(src[i+1])<<8
		dst[di+0] = base64Alphabet[v>>18&0x3F]
		dst[di+1] = base64Alphabet[v>>12&0x3F]
		dst[di+2] = base64Alphabet[v>>6&0x3F]
		dst[di+3] = '='
	}
	return string(dst)
}

// Base64Decode decodes s, skipping ASCII whitespace. Non-alphabet bytes and
// malformed padding fail with an error wrapping ErrInvalidBase64.
func Base64Decode(s string) ([]byte, error) {
	out := make([]byte, 0, len(s)/4*3)
	var quad [4]byte
	qn, pads := 0, 0
	done := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case ' ', '\t', '\n', '\v', '\f', '\r':
			continue
		}
		if done {
			return nil, fmt.Errorf("%w: data after terminal padding at offset %d", ErrInvalidBase64, i)
		}
		if c == '=' {
			if qn < 2 {
				return nil, fmt.Errorf("%w: misplaced padding at offset %d", ErrInvalidBase64, i)
			}
			pads++
		} else {
			if pads > 0 {
				return nil, fmt.Errorf("%w: data after padding at offset %d", ErrInvalidBase64, i)
			}
			v := base64Rev[c]
			if v < 0 {
				return nil, fmt.Errorf("%w: character %q at offset %d", ErrInvalidBase64, c, i)
			}
			quad[qn] = byte(v)
			qn++
		}
		if qn+pads == 4 {
			v := uint32(quad[0])<<18 | uint32(quad[1])<<12 | uint32(quad[2])<<6 | uint32(quad[3])
			out = append(out, byte(v>>16))
			if qn >= 3 {
				out = append(out, byte(v>>8))
			}
			if qn == 4 {
				out = append(out, byte(v))
			}
			if pads > 0 {
				done = true
			}
			quad = [4]byte{}
			qn, pads = 0, 0
		}
	}
	if qn+pads != 0 {
		return nil, fmt.Errorf("%w: truncated input", ErrInvalidBase64)
	}
	return out, nil
}

// Base64Data is a byte slice that serializes to/from base64 in JSON. It is
// the payload type of the wire protocol's "data" fields.
type Base64Data []byte

// MarshalJSON implements json.Marshaler.
func (b Base64Data) MarshalJSON() ([]byte, error) {
	return []byte(`"` + Base64Encode(b) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Base64Data) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return errors.New("encoding: unmarshal base64 data: empty input")
	}
	switch data[0] {
	case 'n': // null
		return nil
	case '"':
		if len(data) < 2 || data[len(data)-1] != '"' {
			return errors.New("encoding: unmarshal base64 data: invalid string")
		}
		decoded, err := Base64Decode(string(data[1 : len(data)-1]))
		if err != nil {
			return err
		}
		*b = decoded
		return nil
	default:
		return fmt.Errorf("encoding: unmarshal base64 data: not a string: %s", string(data))
	}
}

// String returns the base64-encoded representation.
func (b Base64Data) String() string {
	return Base64Encode(b)
}
