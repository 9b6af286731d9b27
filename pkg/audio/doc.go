// Package audio is the umbrella for the device's audio sub-packages:
//
//   - pcm: the 8 kHz mono formats and their sample/byte/duration math
//   - codec/g711: ITU-T G.711 µ-law and A-law transcoding
//
// The capture pipeline produces 16-bit linear PCM chunks; the transport
// transcodes them to the configured wire encoding with codec/g711 before
// framing.
package audio
