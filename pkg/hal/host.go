package hal

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/arunika/dollcore/pkg/audio/pcm"
	"github.com/arunika/dollcore/pkg/buffer"
)

// Queue depths between the loop thread and the audio callback, in chunks.
const (
	hostCaptureQueue  = 16
	hostPlaybackQueue = 8
)

// HostSet is the workstation hardware: a malgo duplex audio device, the OS
// WiFi association taken as given, mains power, and a console-fed button.
type HostSet struct {
	Audio     *HostAudio
	Radio     HostRadio
	Power     *HostPower
	Button    *Debouncer
	Indicator *LogIndicator
}

// OpenHost opens the malgo device and assembles the host hardware set.
// Close the set after the device loop exits.
func OpenHost(chunkBytes int, log *slog.Logger) (*HostSet, error) {
	if chunkBytes <= 0 || chunkBytes%2 != 0 {
		return nil, fmt.Errorf("hal: chunk size %d is not a whole number of s16 samples", chunkBytes)
	}
	audio, err := openHostAudio(chunkBytes, log)
	if err != nil {
		return nil, err
	}
	return &HostSet{
		Audio:     audio,
		Radio:     HostRadio{},
		Power:     NewHostPower(),
		Button:    NewDebouncer(),
		Indicator: &LogIndicator{Log: log},
	}, nil
}

// Set returns the interface bundle over the host hardware.
func (h *HostSet) Set() Set {
	return Set{
		Audio:     h.Audio,
		Radio:     h.Radio,
		Power:     h.Power,
		Button:    h.Button,
		Indicator: h.Indicator,
	}
}

// Close releases the audio device.
func (h *HostSet) Close() error {
	return h.Audio.Close()
}

// HostAudio is an AudioIo over a full-duplex malgo (miniaudio) device. The
// hardware format is S16 mono at 8 kHz; the capture callback slices the
// stream into DMA-sized chunks.
type HostAudio struct {
	mctx  *malgo.AllocatedContext
	dev   *malgo.Device
	chunk int

	mu        sync.Mutex
	capturing bool
	playing   bool
	volume    int

	captureQ *buffer.Ring[[]byte]
	playQ    *buffer.Ring[[]byte]

	// Touched only by the audio callback.
	pending []byte
	residue []byte
}

func openHostAudio(chunkBytes int, log *slog.Logger) (*HostAudio, error) {
	h := &HostAudio{
		chunk:    chunkBytes,
		volume:   100,
		captureQ: buffer.NewRing[[]byte](hostCaptureQueue),
		playQ:    buffer.NewRing[[]byte](hostPlaybackQueue),
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		if log != nil {
			log.Debug("malgo: " + strings.TrimSpace(msg))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("hal: init malgo context: %w", err)
	}
	h.mctx = mctx

	cfg := malgo.DefaultDeviceConfig(malgo.Duplex)
	cfg.SampleRate = 8000
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = 1
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.PeriodSizeInFrames = uint32(chunkBytes / 2)
	cfg.Alsa.NoMMap = 1

	dev, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{Data: h.onData})
	if err != nil {
		mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("hal: init malgo device: %w", err)
	}
	h.dev = dev

	if err := dev.Start(); err != nil {
		dev.Uninit()
		mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("hal: start malgo device: %w", err)
	}
	return h, nil
}

// onData runs on the miniaudio thread. It slices captured samples into
// chunks and feeds the speaker from the playback queue, padding with
// silence on underrun.
func (h *HostAudio) onData(out, in []byte, _ uint32) {
	h.mu.Lock()
	capturing, playing := h.capturing, h.playing
	h.mu.Unlock()

	if capturing && len(in) > 0 {
		h.pending = append(h.pending, in...)
		for len(h.pending) >= h.chunk {
			h.captureQ.Push(bytes.Clone(h.pending[:h.chunk]))
			n := copy(h.pending, h.pending[h.chunk:])
			h.pending = h.pending[:n]
		}
	} else {
		h.pending = h.pending[:0]
	}

	if !playing {
		h.residue = nil
	}
	filled := 0
	if playing {
		for filled < len(out) {
			if len(h.residue) == 0 {
				chunk, ok := h.playQ.TryPop()
				if !ok {
					break
				}
				h.residue = chunk
			}
			n := copy(out[filled:], h.residue)
			h.residue = h.residue[n:]
			filled += n
		}
	}
	for i := filled; i < len(out); i++ {
		out[i] = 0
	}
}

func (h *HostAudio) Format() pcm.Format {
	return pcm.L16Mono8K
}

func (h *HostAudio) StartCapture() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.capturing {
		return fmt.Errorf("hal: capture already active")
	}
	h.captureQ.Reset()
	h.capturing = true
	return nil
}

func (h *HostAudio) StopCapture() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.capturing = false
	h.captureQ.Reset()
	return nil
}

func (h *HostAudio) ReadCapture() ([]byte, bool) {
	return h.captureQ.TryPop()
}

func (h *HostAudio) StartPlayback() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = true
	return nil
}

func (h *HostAudio) StopPlayback() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = false
	h.playQ.Reset()
	return nil
}

func (h *HostAudio) WritePlayback(chunk []byte) (bool, error) {
	h.mu.Lock()
	playing, volume := h.playing, h.volume
	h.mu.Unlock()
	if !playing {
		return false, fmt.Errorf("hal: playback not active")
	}
	// Single producer: between the length check and the push the callback
	// can only drain the queue, so this never overwrites a queued chunk.
	if h.playQ.Len() >= hostPlaybackQueue {
		return false, nil
	}
	cp := bytes.Clone(chunk)
	if volume != 100 {
		scaleS16(cp, volume)
	}
	h.playQ.Push(cp)
	return true, nil
}

func (h *HostAudio) SetVolume(percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("hal: volume %d out of range", percent)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.volume = percent
	return nil
}

// Dropped reports capture chunks lost to overrun.
func (h *HostAudio) Dropped() uint64 {
	return h.captureQ.Dropped()
}

// Close stops and releases the malgo device.
func (h *HostAudio) Close() error {
	if h.dev != nil {
		h.dev.Uninit()
		h.dev = nil
	}
	if h.mctx != nil {
		err := h.mctx.Uninit()
		h.mctx.Free()
		h.mctx = nil
		return err
	}
	return nil
}

// scaleS16 applies linear gain in percent to little-endian s16 samples.
func scaleS16(b []byte, percent int) {
	for i := 0; i+1 < len(b); i += 2 {
		v := int(int16(binary.LittleEndian.Uint16(b[i:]))) * percent / 100
		binary.LittleEndian.PutUint16(b[i:], uint16(int16(v)))
	}
}

// HostRadio treats the workstation's network as already associated.
type HostRadio struct{}

func (HostRadio) Associate(ctx context.Context, ssid, passphrase string) error {
	return ctx.Err()
}

func (HostRadio) Disassociate() error { return nil }

func (HostRadio) Associated() bool { return true }

// HostPower reports mains power by default; the run console can script it.
type HostPower struct {
	mu       sync.Mutex
	battery  int
	charging bool
	sleeps   int
}

func NewHostPower() *HostPower {
	return &HostPower{battery: 100, charging: true}
}

func (p *HostPower) BatteryPercent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.battery
}

func (p *HostPower) Charging() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.charging
}

func (p *HostPower) RequestDeepSleep() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sleeps++
	return nil
}

// SetBattery scripts the charge level.
func (p *HostPower) SetBattery(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.battery = percent
}

// SetCharging scripts the external power flag.
func (p *HostPower) SetCharging(charging bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.charging = charging
}

// SleepRequests reports how many times deep sleep was requested.
func (p *HostPower) SleepRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sleeps
}

// LogIndicator renders LED patterns as log lines.
type LogIndicator struct {
	Log *slog.Logger

	mu      sync.Mutex
	current Pattern
	set     bool
}

func (i *LogIndicator) SetPattern(p Pattern) {
	i.mu.Lock()
	changed := !i.set || p != i.current
	i.current = p
	i.set = true
	i.mu.Unlock()
	if changed && i.Log != nil {
		i.Log.Info("indicator", "pattern", p.String())
	}
}
