// Package devcfg holds the device configuration: WiFi credentials, server
// endpoint, device identity, and the preferred uplink audio encoding. The
// configuration persists as a fixed-layout CRC-protected blob so a real
// device can keep it in a raw flash page; see MarshalBlob for the layout.
package devcfg

import (
	"fmt"
	"net/url"

	"github.com/arunika/dollcore/pkg/audio/pcm"
)

// Config is the device configuration. It is read-only after boot; the
// controller writes it back only from the idle state.
type Config struct {
	// SSID is the WiFi network name. 1 to 32 bytes.
	SSID string

	// Passphrase is the WiFi passphrase. Up to 64 bytes; empty means an
	// open network.
	Passphrase string

	// ServerURL is the duplex-channel endpoint. wss scheme, up to 256 bytes.
	ServerURL string

	// DeviceID identifies this unit to the server. 1 to 32 printable ASCII
	// bytes, no spaces.
	DeviceID string

	// ServerPort is the endpoint TCP port. 1 to 65535.
	ServerPort uint16

	// Encoding is the preferred uplink audio encoding.
	Encoding pcm.Format
}

// Default returns the factory configuration. A fresh device boots with these
// until provisioned.
func Default() Config {
	return Config{
		SSID:       "YourWiFiNetwork",
		Passphrase: "YourWiFiPassword",
		ServerURL:  "wss://api.arunika.com",
		DeviceID:   "ARUN_DEV_001234",
		ServerPort: 443,
		Encoding:   pcm.MulawMono8K,
	}
}

// Validate checks field bounds and formats. A Config that fails Validate
// never reaches the link or the blob codec.
func (c Config) Validate() error {
	if c.SSID == "" || len(c.SSID) > ssidLen {
		return fmt.Errorf("devcfg: SSID must be 1..%d bytes, got %d", ssidLen, len(c.SSID))
	}
	if len(c.Passphrase) > passLen {
		return fmt.Errorf("devcfg: passphrase exceeds %d bytes", passLen)
	}
	if c.ServerURL == "" || len(c.ServerURL) > urlLen {
		return fmt.Errorf("devcfg: server URL must be 1..%d bytes, got %d", urlLen, len(c.ServerURL))
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("devcfg: server URL: %w", err)
	}
	if u.Scheme != "wss" && u.Scheme != "ws" {
		return fmt.Errorf("devcfg: server URL scheme must be wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("devcfg: server URL %q has no host", c.ServerURL)
	}
	if c.DeviceID == "" || len(c.DeviceID) > idLen {
		return fmt.Errorf("devcfg: device ID must be 1..%d bytes, got %d", idLen, len(c.DeviceID))
	}
	for i := 0; i < len(c.DeviceID); i++ {
		if b := c.DeviceID[i]; b <= ' ' || b > '~' {
			return fmt.Errorf("devcfg: device ID byte %d is not printable ASCII", i)
		}
	}
	if c.ServerPort == 0 {
		return fmt.Errorf("devcfg: server port must be 1..65535")
	}
	switch c.Encoding {
	case pcm.L16Mono8K, pcm.MulawMono8K, pcm.AlawMono8K:
	default:
		return fmt.Errorf("devcfg: unknown audio encoding %d", int(c.Encoding))
	}
	return nil
}
