package hal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/arunika/dollcore/pkg/audio/pcm"
)

// MockSet wires a full scripted hardware set. Tests and the simulated
// device reach the concrete types here; the core sees only Set().
type MockSet struct {
	Audio     *MockAudio
	Radio     *MockRadio
	Power     *MockPower
	Button    *Debouncer
	Indicator *MockIndicator
}

// NewMockSet builds a mock hardware set producing buffers in the given
// format.
func NewMockSet(format pcm.Format) *MockSet {
	return &MockSet{
		Audio:     NewMockAudio(format),
		Radio:     NewMockRadio(),
		Power:     NewMockPower(),
		Button:    NewDebouncer(),
		Indicator: NewMockIndicator(),
	}
}

// Set returns the interface bundle over this mock hardware.
func (m *MockSet) Set() Set {
	return Set{
		Audio:     m.Audio,
		Radio:     m.Radio,
		Power:     m.Power,
		Button:    m.Button,
		Indicator: m.Indicator,
	}
}

// MockAudio is a scriptable AudioIo. Tests feed capture chunks with
// FeedCapture and inspect speaker writes with Played.
type MockAudio struct {
	mu           sync.Mutex
	format       pcm.Format
	capturing    bool
	playing      bool
	captureQ     [][]byte
	played       [][]byte
	volume       int
	writeBlocked bool
	startCapErr  error
	startPlayErr error
}

func NewMockAudio(format pcm.Format) *MockAudio {
	return &MockAudio{format: format, volume: 100}
}

func (m *MockAudio) Format() pcm.Format {
	return m.format
}

func (m *MockAudio) StartCapture() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startCapErr != nil {
		return m.startCapErr
	}
	if m.capturing {
		return errors.New("hal: capture already active")
	}
	m.capturing = true
	return nil
}

func (m *MockAudio) StopCapture() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capturing = false
	m.captureQ = nil
	return nil
}

func (m *MockAudio) ReadCapture() ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.capturing || len(m.captureQ) == 0 {
		return nil, false
	}
	chunk := m.captureQ[0]
	m.captureQ = m.captureQ[1:]
	return chunk, true
}

func (m *MockAudio) StartPlayback() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startPlayErr != nil {
		return m.startPlayErr
	}
	m.playing = true
	return nil
}

func (m *MockAudio) StopPlayback() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
	return nil
}

func (m *MockAudio) WritePlayback(chunk []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.playing {
		return false, errors.New("hal: playback not active")
	}
	if m.writeBlocked {
		return false, nil
	}
	m.played = append(m.played, bytes.Clone(chunk))
	return true, nil
}

func (m *MockAudio) SetVolume(percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("hal: volume %d out of range", percent)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = percent
	return nil
}

// FeedCapture scripts chunks for ReadCapture. Chunks queued while capture
// is stopped are flushed by the next StopCapture like any others.
func (m *MockAudio) FeedCapture(chunks ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.captureQ = append(m.captureQ, bytes.Clone(c))
	}
}

// Played returns every buffer written to the speaker so far.
func (m *MockAudio) Played() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.played))
	for i, c := range m.played {
		out[i] = bytes.Clone(c)
	}
	return out
}

// Capturing reports whether the microphone DMA is armed.
func (m *MockAudio) Capturing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capturing
}

// CaptureBacklog reports how many fed chunks remain unread.
func (m *MockAudio) CaptureBacklog() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.captureQ)
}

// Volume returns the last accepted volume.
func (m *MockAudio) Volume() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// SetWriteBlocked scripts WritePlayback to report would-block.
func (m *MockAudio) SetWriteBlocked(blocked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeBlocked = blocked
}

// SetStartCaptureErr scripts StartCapture to fail.
func (m *MockAudio) SetStartCaptureErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startCapErr = err
}

// SetStartPlaybackErr scripts StartPlayback to fail.
func (m *MockAudio) SetStartPlaybackErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startPlayErr = err
}

// MockRadio is a scriptable Radio.
type MockRadio struct {
	mu         sync.Mutex
	associated bool
	failWith   error
	hang       bool
	calls      int
	lastSSID   string
}

func NewMockRadio() *MockRadio {
	return &MockRadio{}
}

func (r *MockRadio) Associate(ctx context.Context, ssid, passphrase string) error {
	r.mu.Lock()
	r.calls++
	r.lastSSID = ssid
	hang, failWith := r.hang, r.failWith
	r.mu.Unlock()

	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if failWith != nil {
		return failWith
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.associated = true
	r.mu.Unlock()
	return nil
}

func (r *MockRadio) Disassociate() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.associated = false
	return nil
}

func (r *MockRadio) Associated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.associated
}

// Drop simulates losing the access point.
func (r *MockRadio) Drop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.associated = false
}

// SetFailWith scripts Associate to fail with err. Nil restores success.
func (r *MockRadio) SetFailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWith = err
}

// SetHang scripts Associate to block until its context is done.
func (r *MockRadio) SetHang(hang bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hang = hang
}

// AssociateCalls reports how many association attempts were made.
func (r *MockRadio) AssociateCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// LastSSID reports the SSID of the most recent attempt.
func (r *MockRadio) LastSSID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSSID
}

// MockPower is a scriptable PowerMon. A fresh mock reads 85 percent and not
// charging, like a unit just off the charger.
type MockPower struct {
	mu       sync.Mutex
	battery  int
	charging bool
	sleeps   int
	sleepErr error
}

func NewMockPower() *MockPower {
	return &MockPower{battery: 85}
}

func (p *MockPower) BatteryPercent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.battery
}

func (p *MockPower) Charging() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.charging
}

func (p *MockPower) RequestDeepSleep() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sleeps++
	return p.sleepErr
}

// SetBattery scripts the charge level.
func (p *MockPower) SetBattery(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	p.battery = percent
}

// SetCharging scripts the external power flag.
func (p *MockPower) SetCharging(charging bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.charging = charging
}

// SetSleepErr scripts RequestDeepSleep to fail.
func (p *MockPower) SetSleepErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sleepErr = err
}

// SleepRequests reports how many times deep sleep was requested.
func (p *MockPower) SleepRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sleeps
}

// MockIndicator records LED pattern changes.
type MockIndicator struct {
	mu      sync.Mutex
	current Pattern
	history []Pattern
}

func NewMockIndicator() *MockIndicator {
	return &MockIndicator{}
}

func (i *MockIndicator) SetPattern(p Pattern) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.current = p
	i.history = append(i.history, p)
}

// Current returns the pattern showing now.
func (i *MockIndicator) Current() Pattern {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.current
}

// History returns every pattern set since construction.
func (i *MockIndicator) History() []Pattern {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]Pattern, len(i.history))
	copy(out, i.history)
	return out
}
