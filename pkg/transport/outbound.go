package transport

import (
	"github.com/arunika/dollcore/pkg/audio/pcm"
)

// OutboundDepth is the outbound queue capacity in chunks.
const OutboundDepth = 8

// outbound sequences capture buffers into audio_chunk frames and applies
// the backpressure policy: when the queue is full the oldest chunk behind
// the head is dropped and the gap counter advances. The head is never
// dropped because it may be mid-transmission. Dropped sequence numbers are
// not reused, so the receiver can detect the loss.
type outbound struct {
	deviceID string
	format   pcm.Format

	q       []AudioChunk
	seq     uint32
	session uint32
	active  bool

	gaps       uint64
	staleDrops uint64
}

// beginRecording opens a new sequence stamped with the given session epoch.
func (o *outbound) beginRecording(epoch uint32) {
	o.session = epoch
	o.seq = 0
	o.active = true
}

// enqueue stamps data as the next chunk of the open recording, taking
// ownership of the slice. Outside a recording the buffer is discarded.
func (o *outbound) enqueue(data []byte) {
	if !o.active {
		return
	}
	o.push(AudioChunk{
		Type:       TypeAudioChunk,
		DeviceID:   o.deviceID,
		Seq:        o.seq,
		Encoding:   o.format,
		SampleRate: WireSampleRate,
		Samples:    o.format.Samples(len(data)),
		Session:    o.session,
		Data:       data,
	})
	o.seq++
}

// finishRecording closes the open sequence. The last queued chunk carries
// eos; when every chunk already went out, a zero-sample chunk is queued so
// the receiver still sees exactly one eos per recording.
func (o *outbound) finishRecording() {
	if !o.active {
		return
	}
	o.active = false
	if n := len(o.q); n > 0 {
		o.q[n-1].EOS = true
		return
	}
	o.push(AudioChunk{
		Type:       TypeAudioChunk,
		DeviceID:   o.deviceID,
		Seq:        o.seq,
		Encoding:   o.format,
		SampleRate: WireSampleRate,
		Session:    o.session,
		EOS:        true,
	})
	o.seq++
}

// abort drops every queued chunk and closes the sequence. Used on link
// loss and forced reset.
func (o *outbound) abort() {
	o.q = nil
	o.active = false
}

func (o *outbound) push(c AudioChunk) {
	if len(o.q) >= OutboundDepth {
		copy(o.q[1:], o.q[2:])
		o.q = o.q[:len(o.q)-1]
		o.gaps++
	}
	o.q = append(o.q, c)
}

// peek returns the head chunk without removing it.
func (o *outbound) peek() (AudioChunk, bool) {
	if len(o.q) == 0 {
		return AudioChunk{}, false
	}
	return o.q[0], true
}

// pop removes the head chunk.
func (o *outbound) pop() {
	o.q = o.q[1:]
	if len(o.q) == 0 {
		o.q = nil
	}
}
