package transport

import (
	"fmt"
	"time"

	"github.com/arunika/dollcore/pkg/audio/pcm"
	"github.com/arunika/dollcore/pkg/hal"
)

// PlaybackDepth is the playback FIFO capacity in decoded buffers.
const PlaybackDepth = 4

// DrainTimeout is how long the FIFO must stay empty, with nothing new
// arriving, before a response counts as fully played.
const DrainTimeout = 500 * time.Millisecond

// Playback feeds decoded response audio to the speaker and detects the end
// of a response. Buffers enter through Enqueue in any wire encoding and are
// transcoded to the speaker's format; Pump moves them to the speaker with
// non-blocking writes.
type Playback struct {
	format pcm.Format

	q      [][]byte
	active bool
	last   time.Time

	rejected uint64
}

// NewPlayback creates a Playback that feeds a speaker consuming format.
func NewPlayback(format pcm.Format) *Playback {
	return &Playback{format: format}
}

// Start opens a playback session and arms the drain timer.
func (p *Playback) Start(now time.Time) {
	p.active = true
	p.last = now
}

// Enqueue adds one decoded response buffer. When the FIFO is full the
// newest buffer is rejected and counted.
func (p *Playback) Enqueue(now time.Time, data []byte, from pcm.Format) {
	if len(p.q) >= PlaybackDepth {
		p.rejected++
		return
	}
	p.q = append(p.q, Transcode(data, from, p.format))
	p.last = now
}

// Pump moves buffered audio to the speaker until it would block. It
// reports true exactly once per session, when the FIFO has been empty for
// DrainTimeout with nothing new arriving.
func (p *Playback) Pump(now time.Time, audio hal.AudioIo) (bool, error) {
	for len(p.q) > 0 {
		ok, err := audio.WritePlayback(p.q[0])
		if err != nil {
			return false, fmt.Errorf("transport: playback write: %w", err)
		}
		if !ok {
			break
		}
		p.q = p.q[1:]
		p.last = now
	}
	if p.active && len(p.q) == 0 && now.Sub(p.last) >= DrainTimeout {
		p.active = false
		return true, nil
	}
	return false, nil
}

// Abort drops every queued buffer and closes the session.
func (p *Playback) Abort() {
	p.q = nil
	p.active = false
}

// Active reports whether a playback session is open.
func (p *Playback) Active() bool {
	return p.active
}

// Len returns the number of queued buffers.
func (p *Playback) Len() int {
	return len(p.q)
}

// Rejected returns how many buffers overflowed the FIFO.
func (p *Playback) Rejected() uint64 {
	return p.rejected
}

// NextDeadline returns when the drain timer fires, or zero when playback
// is idle or still has queued audio.
func (p *Playback) NextDeadline() time.Time {
	if !p.active || len(p.q) > 0 {
		return time.Time{}
	}
	return p.last.Add(DrainTimeout)
}
