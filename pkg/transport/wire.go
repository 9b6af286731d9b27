// Package transport implements the duplex-channel audio protocol: capture
// buffers framed into sequenced audio_chunk messages, inbound ai_response
// demultiplexing into playback, and the keepalive ping/pong exchange.
//
// Every frame is one UTF-8 JSON object with a "type" discriminator. The
// transport is the only component that writes frames to or reads frames
// from the link supervisor.
package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/arunika/dollcore/pkg/audio/codec/g711"
	"github.com/arunika/dollcore/pkg/audio/pcm"
	"github.com/arunika/dollcore/pkg/encoding"
	"github.com/arunika/dollcore/pkg/jsontime"
)

// Frame type discriminators.
const (
	TypeAudioChunk = "audio_chunk"
	TypePing       = "ping"
	TypePong       = "pong"
	TypeAIResponse = "ai_response"
)

// WireSampleRate is the only sample rate the protocol carries.
const WireSampleRate = 8000

// AudioChunk is one outbound capture buffer. Seq starts at 0 for every
// recording; exactly one chunk per recording carries EOS.
type AudioChunk struct {
	Type       string              `json:"type"`
	DeviceID   string              `json:"device_id"`
	Seq        uint32              `json:"seq"`
	Encoding   pcm.Format          `json:"encoding"`
	SampleRate int                 `json:"sample_rate"`
	Samples    int                 `json:"samples"`
	Session    uint32              `json:"session"`
	EOS        bool                `json:"eos"`
	Data       encoding.Base64Data `json:"data"`
}

// Heartbeat carries both keepalive directions. Type is "ping" or "pong";
// a pong echoes the ping's ts unchanged.
type Heartbeat struct {
	Type string         `json:"type"`
	TS   jsontime.Milli `json:"ts"`
}

// AIResponse is a synthesized audio reply from the service.
type AIResponse struct {
	Type       string              `json:"type"`
	Encoding   pcm.Format          `json:"encoding"`
	SampleRate int                 `json:"sample_rate"`
	Data       encoding.Base64Data `json:"data"`
}

// MessageType extracts the type discriminator without parsing the whole
// frame.
func MessageType(frame []byte) (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &head); err != nil {
		return "", fmt.Errorf("transport: parse frame: %w", err)
	}
	if head.Type == "" {
		return "", errors.New("transport: frame has no type")
	}
	return head.Type, nil
}

// Transcode converts audio between the wire encodings, going through
// 16-bit PCM when neither side is already linear. The returned slice never
// aliases data.
func Transcode(data []byte, from, to pcm.Format) []byte {
	if from == to {
		return bytes.Clone(data)
	}
	pcm16 := data
	switch from {
	case pcm.MulawMono8K:
		pcm16 = g711.DecodeMulaw(data)
	case pcm.AlawMono8K:
		pcm16 = g711.DecodeAlaw(data)
	}
	switch to {
	case pcm.MulawMono8K:
		return g711.EncodeMulaw(pcm16)
	case pcm.AlawMono8K:
		return g711.EncodeAlaw(pcm16)
	}
	return pcm16
}
