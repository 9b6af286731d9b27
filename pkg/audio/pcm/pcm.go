package pcm

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// L16Mono8K represents audio/L16; rate=8000; channels=1
	L16Mono8K Format = iota
	// MulawMono8K represents G.711 µ-law; rate=8000; channels=1
	MulawMono8K
	// AlawMono8K represents G.711 A-law; rate=8000; channels=1
	AlawMono8K
)

// Format represents an audio format configuration. Every format the device
// handles is mono at 8000 Hz; they differ only in sample encoding.
type Format int

// SampleRate returns the sample rate in Hz for this format.
func (f Format) SampleRate() int {
	switch f {
	case L16Mono8K, MulawMono8K, AlawMono8K:
		return 8000
	}
	panic("pcm: invalid audio format")
}

// Channels returns the number of audio channels for this format.
func (f Format) Channels() int {
	switch f {
	case L16Mono8K, MulawMono8K, AlawMono8K:
		return 1
	}
	panic("pcm: invalid audio format")
}

// Depth returns the bit depth for this format.
func (f Format) Depth() int {
	switch f {
	case L16Mono8K:
		return 16
	case MulawMono8K, AlawMono8K:
		return 8
	}
	panic("pcm: invalid audio format")
}

// BytesPerSample returns the storage size of one sample.
func (f Format) BytesPerSample() int {
	return f.Depth() / 8
}

// Samples returns the number of samples in the given number of bytes.
func (f Format) Samples(bytes int) int {
	return bytes / f.BytesPerSample()
}

// SamplesInDuration returns the number of samples in the given duration.
func (f Format) SamplesInDuration(d time.Duration) int {
	return int(time.Duration(f.SampleRate()) * d / time.Second)
}

// BytesInDuration returns the number of bytes in the given duration.
func (f Format) BytesInDuration(d time.Duration) int {
	return f.SamplesInDuration(d) * f.BytesPerSample()
}

// Duration returns the play time of the given number of bytes.
func (f Format) Duration(bytes int) time.Duration {
	return time.Duration(f.Samples(bytes)) * time.Second / time.Duration(f.SampleRate())
}

// BytesRate returns the byte rate of the audio data.
func (f Format) BytesRate() int {
	return f.SampleRate() * f.BytesPerSample()
}

// Tag returns the wire encoding tag for this format.
func (f Format) Tag() string {
	switch f {
	case L16Mono8K:
		return "pcm16"
	case MulawMono8K:
		return "mulaw"
	case AlawMono8K:
		return "alaw"
	}
	panic("pcm: invalid audio format")
}

// ParseTag converts a wire encoding tag back to a Format.
func ParseTag(tag string) (Format, error) {
	switch tag {
	case "pcm16":
		return L16Mono8K, nil
	case "mulaw":
		return MulawMono8K, nil
	case "alaw":
		return AlawMono8K, nil
	}
	return 0, fmt.Errorf("pcm: unknown encoding tag %q", tag)
}

// String returns a human-readable string representation of the format.
func (f Format) String() string {
	switch f {
	case L16Mono8K:
		return "audio/L16; rate=8000; channels=1"
	case MulawMono8K:
		return "audio/PCMU; rate=8000; channels=1"
	case AlawMono8K:
		return "audio/PCMA; rate=8000; channels=1"
	}
	panic("pcm: invalid audio format")
}

// MarshalJSON implements json.Marshaler using the wire tag.
func (f Format) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Tag())
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Format) UnmarshalJSON(b []byte) error {
	var tag string
	if err := json.Unmarshal(b, &tag); err != nil {
		return err
	}
	v, err := ParseTag(tag)
	if err != nil {
		return err
	}
	*f = v
	return nil
}
