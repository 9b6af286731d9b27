package transport

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/arunika/dollcore/pkg/audio/pcm"
	"github.com/arunika/dollcore/pkg/devcfg"
	"github.com/arunika/dollcore/pkg/jsontime"
	"github.com/arunika/dollcore/pkg/link"
)

// Config assembles a Transport.
type Config struct {
	Link *link.Supervisor

	// Device provides the identity and preferred wire encoding.
	Device devcfg.Config

	// Capture is the format the microphone produces. Buffers are
	// transcoded to the wire encoding before framing.
	Capture pcm.Format

	// Log defaults to slog.Default.
	Log *slog.Logger
}

// Response is one decoded ai_response ready for playback.
type Response struct {
	Format pcm.Format
	Data   []byte
}

// Stats is a snapshot of the transport counters.
type Stats struct {
	ChunksSent     uint64 `json:"chunks_sent"`
	BytesSent      uint64 `json:"bytes_sent"`
	Gaps           uint64 `json:"gaps"`
	StaleDrops     uint64 `json:"stale_drops"`
	Queued         int    `json:"queued"`
	Responses      uint64 `json:"responses"`
	PingsSent      uint64 `json:"pings_sent"`
	UnknownDropped uint64 `json:"unknown_dropped"`
	DecodeErrors   uint64 `json:"decode_errors"`
}

// Transport frames capture buffers into sequenced chunks, demultiplexes
// inbound frames, and runs the keepalive exchange. All methods run on the
// device loop.
type Transport struct {
	link    *link.Supervisor
	log     *slog.Logger
	capture pcm.Format

	out outbound

	chunksSent     uint64
	bytesSent      uint64
	responses      uint64
	pingsSent      uint64
	unknownDropped uint64
	decodeErrors   uint64
}

func New(cfg Config) *Transport {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Transport{
		link:    cfg.Link,
		log:     cfg.Log,
		capture: cfg.Capture,
		out: outbound{
			deviceID: cfg.Device.DeviceID,
			format:   cfg.Device.Encoding,
		},
	}
}

// BeginRecording opens a new chunk sequence stamped with the link's
// current session epoch. Sequence numbers restart at 0.
func (t *Transport) BeginRecording() {
	t.out.beginRecording(t.link.SessionEpoch())
}

// PushCapture frames one microphone buffer as the next chunk of the open
// recording, transcoding it to the wire encoding.
func (t *Transport) PushCapture(data []byte) {
	t.out.enqueue(Transcode(data, t.capture, t.out.format))
}

// FinishRecording marks the end of the stream. The last pending chunk
// carries eos; with nothing pending a zero-sample eos chunk is queued.
func (t *Transport) FinishRecording() {
	t.out.finishRecording()
}

// AbortRecording drops all pending chunks without an eos marker. Used on
// link loss and forced reset.
func (t *Transport) AbortRecording() {
	t.out.abort()
}

// Flush writes pending chunks to the channel in sequence order until the
// queue empties. Chunks stamped with a stale session epoch are discarded
// unsent. With the channel down, chunks stay queued.
func (t *Transport) Flush(now time.Time) error {
	if !t.link.IsUp() {
		return nil
	}
	epoch := t.link.SessionEpoch()
	for {
		chunk, ok := t.out.peek()
		if !ok {
			return nil
		}
		if chunk.Session != epoch {
			t.out.pop()
			t.out.staleDrops++
			t.log.Debug("stale chunk discarded", "seq", chunk.Seq, "session", chunk.Session, "epoch", epoch)
			continue
		}
		frame, err := json.Marshal(chunk)
		if err != nil {
			return fmt.Errorf("transport: marshal chunk: %w", err)
		}
		if err := t.link.Send(now, frame); err != nil {
			return fmt.Errorf("transport: flush seq %d: %w", chunk.Seq, err)
		}
		t.out.pop()
		t.chunksSent++
		t.bytesSent += uint64(len(chunk.Data))
	}
}

// Poll drains buffered inbound frames and routes them: ai_response frames
// are decoded and returned for playback, pongs feed the keepalive
// bookkeeping, pings are answered immediately, anything else is dropped
// and counted. Poll also emits the keepalive ping once the outbound side
// has been idle long enough.
func (t *Transport) Poll(now time.Time) []Response {
	var responses []Response
	for {
		frame, ok := t.link.TryRecv()
		if !ok {
			break
		}
		kind, err := MessageType(frame)
		if err != nil {
			t.decodeErrors++
			t.log.Debug("bad frame", "err", err)
			continue
		}
		switch kind {
		case TypeAIResponse:
			var msg AIResponse
			if err := json.Unmarshal(frame, &msg); err != nil {
				t.decodeErrors++
				t.log.Warn("bad ai_response", "err", err)
				continue
			}
			if msg.SampleRate != WireSampleRate {
				t.decodeErrors++
				t.log.Warn("ai_response sample rate unsupported", "sample_rate", msg.SampleRate)
				continue
			}
			t.responses++
			responses = append(responses, Response{Format: msg.Encoding, Data: msg.Data})
		case TypePong:
			t.link.NotePong(now)
		case TypePing:
			var msg Heartbeat
			if err := json.Unmarshal(frame, &msg); err != nil {
				t.decodeErrors++
				t.log.Debug("bad ping", "err", err)
				continue
			}
			t.sendPong(now, msg.TS)
		default:
			t.unknownDropped++
			t.log.Debug("unknown frame dropped", "type", kind)
		}
	}

	if t.link.KeepaliveDue(now) {
		t.sendPing(now)
	}
	return responses
}

func (t *Transport) sendPing(now time.Time) {
	frame, err := json.Marshal(Heartbeat{Type: TypePing, TS: jsontime.Milli(now)})
	if err != nil {
		return
	}
	if err := t.link.Send(now, frame); err != nil {
		t.log.Debug("ping send failed", "err", err)
		return
	}
	t.link.NotePing(now)
	t.pingsSent++
}

func (t *Transport) sendPong(now time.Time, ts jsontime.Milli) {
	frame, err := json.Marshal(Heartbeat{Type: TypePong, TS: ts})
	if err != nil {
		return
	}
	if err := t.link.Send(now, frame); err != nil {
		t.log.Debug("pong send failed", "err", err)
	}
}

// Stats returns a snapshot of the transport counters.
func (t *Transport) Stats() Stats {
	return Stats{
		ChunksSent:     t.chunksSent,
		BytesSent:      t.bytesSent,
		Gaps:           t.out.gaps,
		StaleDrops:     t.out.staleDrops,
		Queued:         len(t.out.q),
		Responses:      t.responses,
		PingsSent:      t.pingsSent,
		UnknownDropped: t.unknownDropped,
		DecodeErrors:   t.decodeErrors,
	}
}
