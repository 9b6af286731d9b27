package devcfg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/arunika/dollcore/pkg/audio/pcm"
)

// Fixed field widths of the persisted blob. Strings are zero-padded.
const (
	ssidLen = 32
	passLen = 64
	urlLen  = 256
	idLen   = 32

	crcOff = ssidLen + passLen + urlLen + idLen + 2 + 1

	// BlobSize is the exact size of the persisted configuration blob:
	// SSID(32) passphrase(64) URL(256) device_id(32) port(u16 LE)
	// encoding(u8) CRC32(u32 LE).
	BlobSize = crcOff + 4
)

var (
	// ErrBlobSize is returned when a blob is not exactly BlobSize bytes.
	ErrBlobSize = errors.New("devcfg: wrong blob size")

	// ErrBlobCRC is returned when the stored checksum does not match the
	// blob contents.
	ErrBlobCRC = errors.New("devcfg: blob checksum mismatch")
)

// MarshalBlob encodes the configuration into its fixed-layout blob. The
// CRC32 (IEEE) covers every byte before the checksum field.
func (c Config) MarshalBlob() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, BlobSize)
	copy(buf[0:], c.SSID)
	copy(buf[ssidLen:], c.Passphrase)
	copy(buf[ssidLen+passLen:], c.ServerURL)
	copy(buf[ssidLen+passLen+urlLen:], c.DeviceID)
	binary.LittleEndian.PutUint16(buf[crcOff-3:], c.ServerPort)
	buf[crcOff-1] = byte(c.Encoding)
	binary.LittleEndian.PutUint32(buf[crcOff:], crc32.ChecksumIEEE(buf[:crcOff]))
	return buf, nil
}

// UnmarshalBlob decodes and validates a configuration blob.
func UnmarshalBlob(blob []byte) (Config, error) {
	if len(blob) != BlobSize {
		return Config{}, fmt.Errorf("%w: got %d bytes, want %d", ErrBlobSize, len(blob), BlobSize)
	}
	stored := binary.LittleEndian.Uint32(blob[crcOff:])
	if sum := crc32.ChecksumIEEE(blob[:crcOff]); sum != stored {
		return Config{}, fmt.Errorf("%w: computed %08x, stored %08x", ErrBlobCRC, sum, stored)
	}
	c := Config{
		SSID:       fixedString(blob[0:ssidLen]),
		Passphrase: fixedString(blob[ssidLen : ssidLen+passLen]),
		ServerURL:  fixedString(blob[ssidLen+passLen : ssidLen+passLen+urlLen]),
		DeviceID:   fixedString(blob[ssidLen+passLen+urlLen : crcOff-3]),
		ServerPort: binary.LittleEndian.Uint16(blob[crcOff-3:]),
		Encoding:   pcm.Format(blob[crcOff-1]),
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// fixedString truncates a zero-padded field at the first NUL.
func fixedString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
