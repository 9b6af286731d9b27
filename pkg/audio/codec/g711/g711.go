// Package g711 implements ITU-T G.711 µ-law and A-law companding.
//
// Sample-level functions convert between 16-bit linear PCM and 8-bit
// companded codes. Buffer-level functions operate on little-endian PCM16
// byte slices, which is how audio moves through the capture and playback
// pipelines.
package g711

import "encoding/binary"

const (
	mulawBias = 0x84
	mulawClip = 32635
)

var alawSegEnd = [8]int32{0x1F, 0x3F, 0x7F, 0xFF, 0x1FF, 0x3FF, 0x7FF, 0xFFF}

// EncodeMulawSample compands one linear PCM sample to µ-law.
func EncodeMulawSample(s int16) byte {
	v := int32(s)
	sign := byte(0)
	if v < 0 {
		v = -v
		sign = 0x80
	}
	if v > mulawClip {
		v = mulawClip
	}
	v += mulawBias
	exp := 7
	for mask := int32(0x4000); exp > 0 && v&mask == 0; mask >>= 1 {
		exp--
	}
	mant := byte(v>>uint(exp+3)) & 0x0F
	return ^(sign | byte(exp)<<4 | mant)
}

// DecodeMulawSample expands one µ-law code to linear PCM.
func DecodeMulawSample(b byte) int16 {
	b = ^b
	exp := (b >> 4) & 0x07
	mant := b & 0x0F
	t := (int32(mant)<<3 + mulawBias) << exp
	if b&0x80 != 0 {
		return int16(mulawBias - t)
	}
	return int16(t - mulawBias)
}

// EncodeAlawSample compands one linear PCM sample to A-law.
func EncodeAlawSample(s int16) byte {
	v := int32(s) >> 3
	var mask byte = 0xD5
	if v < 0 {
		mask = 0x55
		v = -v - 1
	}
	seg := 0
	for seg < 8 && v > alawSegEnd[seg] {
		seg++
	}
	if seg >= 8 {
		return 0x7F ^ mask
	}
	a := byte(seg) << 4
	if seg < 2 {
		a |= byte(v>>1) & 0x0F
	} else {
		a |= byte(v>>uint(seg)) & 0x0F
	}
	return a ^ mask
}

// DecodeAlawSample expands one A-law code to linear PCM.
func DecodeAlawSample(b byte) int16 {
	b ^= 0x55
	t := int32(b&0x0F) << 4
	seg := (b & 0x70) >> 4
	switch seg {
	case 0:
		t += 8
	case 1:
		t += 0x108
	default:
		t += 0x108
		t <<= uint(seg - 1)
	}
	if b&0x80 != 0 {
		return int16(t)
	}
	return int16(-t)
}

// EncodeMulaw compands a little-endian PCM16 buffer to µ-law bytes.
// A trailing odd byte is ignored.
func EncodeMulaw(pcm []byte) []byte {
	out := make([]byte, len(pcm)/2)
	for i := range out {
		out[i] = EncodeMulawSample(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}
	return out
}

// DecodeMulaw expands µ-law bytes to a little-endian PCM16 buffer.
func DecodeMulaw(src []byte) []byte {
	out := make([]byte, len(src)*2)
	for i, b := range src {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(DecodeMulawSample(b)))
	}
	return out
}

// EncodeAlaw compands a little-endian PCM16 buffer to A-law bytes.
// A trailing odd byte is ignored.
func EncodeAlaw(pcm []byte) []byte {
	out := make([]byte, len(pcm)/2)
	for i := range out {
		out[i] = EncodeAlawSample(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}
	return out
}

// DecodeAlaw expands A-law bytes to a little-endian PCM16 buffer.
func DecodeAlaw(src []byte) []byte {
	out := make([]byte, len(src)*2)
	for i, b := range src {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(DecodeAlawSample(b)))
	}
	return out
}
