// Package hal abstracts the hardware the firmware core drives: duplex
// audio, the WiFi radio, the battery gauge, the push button, and the status
// LED. The core consumes only the interfaces defined here. A malgo-backed
// host implementation runs against a workstation's microphone and speaker;
// mock implementations script every capability for tests and the simulated
// device.
package hal

import (
	"context"
	"fmt"
	"time"

	"github.com/arunika/dollcore/pkg/audio/pcm"
)

// DefaultChunkBytes is the DMA chunk size: 512 samples of S16 mono at
// 8 kHz, 64 ms of audio.
const DefaultChunkBytes = 1024

// AudioIo is the duplex audio path. All methods are non-blocking; buffers
// move through fixed-size DMA chunks.
type AudioIo interface {
	// Format reports the sample encoding of capture and playback buffers.
	Format() pcm.Format

	// StartCapture arms the microphone DMA. Starting an active capture is
	// an error.
	StartCapture() error

	// StopCapture disarms the microphone and flushes any queued chunks.
	// Stopping an inactive capture is a no-op.
	StopCapture() error

	// ReadCapture returns the next filled chunk, or false when none is
	// ready.
	ReadCapture() ([]byte, bool)

	// StartPlayback arms the speaker path.
	StartPlayback() error

	// StopPlayback disarms the speaker and drops queued buffers.
	StopPlayback() error

	// WritePlayback queues one buffer for the speaker. It returns false
	// without consuming the buffer when the device queue is full.
	WritePlayback(chunk []byte) (bool, error)

	// SetVolume sets playback gain in percent, 0 to 100.
	SetVolume(percent int) error
}

// Radio is the WiFi interface.
type Radio interface {
	// Associate joins the given network. It blocks until associated or ctx
	// is done; the link supervisor runs it off the main loop and applies
	// the association deadline through ctx.
	Associate(ctx context.Context, ssid, passphrase string) error

	// Disassociate leaves the current network.
	Disassociate() error

	// Associated reports whether the radio currently holds an association.
	Associated() bool
}

// PowerMon is the battery gauge and sleep control.
type PowerMon interface {
	// BatteryPercent reports the charge level, 0 to 100.
	BatteryPercent() int

	// Charging reports whether external power is present.
	Charging() bool

	// RequestDeepSleep powers the SoC down after the current loop tick.
	RequestDeepSleep() error
}

// Button delivers debounced events from the single push button.
type Button interface {
	// Poll drains the logical button events that completed by now.
	Poll(now time.Time) []ButtonEvent
}

// Indicator is the status LED.
type Indicator interface {
	SetPattern(p Pattern)
}

// Set bundles the capabilities a device core needs.
type Set struct {
	Audio     AudioIo
	Radio     Radio
	Power     PowerMon
	Button    Button
	Indicator Indicator
}

// Backend names a hardware implementation.
type Backend string

const (
	// BackendAuto tries the malgo host backend and falls back to mocks.
	BackendAuto Backend = "auto"
	// BackendMalgo is the miniaudio host backend.
	BackendMalgo Backend = "malgo"
	// BackendMock is the scripted in-memory backend.
	BackendMock Backend = "mock"
)

// ParseBackend validates a backend name. Empty means auto.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "":
		return BackendAuto, nil
	case BackendAuto, BackendMalgo, BackendMock:
		return Backend(s), nil
	}
	return "", fmt.Errorf("hal: unknown backend %q", s)
}
