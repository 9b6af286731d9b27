package pcm

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFormatArithmetic(t *testing.T) {
	tests := []struct {
		format    Format
		depth     int
		samples   int // in 1024 bytes
		duration  time.Duration
		bytesRate int
	}{
		{L16Mono8K, 16, 512, 64 * time.Millisecond, 16000},
		{MulawMono8K, 8, 1024, 128 * time.Millisecond, 8000},
		{AlawMono8K, 8, 1024, 128 * time.Millisecond, 8000},
	}
	for _, tc := range tests {
		t.Run(tc.format.Tag(), func(t *testing.T) {
			if got := tc.format.SampleRate(); got != 8000 {
				t.Errorf("SampleRate() = %d, want 8000", got)
			}
			if got := tc.format.Channels(); got != 1 {
				t.Errorf("Channels() = %d, want 1", got)
			}
			if got := tc.format.Depth(); got != tc.depth {
				t.Errorf("Depth() = %d, want %d", got, tc.depth)
			}
			if got := tc.format.Samples(1024); got != tc.samples {
				t.Errorf("Samples(1024) = %d, want %d", got, tc.samples)
			}
			if got := tc.format.Duration(1024); got != tc.duration {
				t.Errorf("Duration(1024) = %v, want %v", got, tc.duration)
			}
			if got := tc.format.BytesRate(); got != tc.bytesRate {
				t.Errorf("BytesRate() = %d, want %d", got, tc.bytesRate)
			}
			if got := tc.format.BytesInDuration(tc.duration); got != 1024 {
				t.Errorf("BytesInDuration(%v) = %d, want 1024", tc.duration, got)
			}
		})
	}
}

func TestParseTag(t *testing.T) {
	for _, f := range []Format{L16Mono8K, MulawMono8K, AlawMono8K} {
		got, err := ParseTag(f.Tag())
		if err != nil {
			t.Errorf("ParseTag(%q) error: %v", f.Tag(), err)
		}
		if got != f {
			t.Errorf("ParseTag(%q) = %v, want %v", f.Tag(), got, f)
		}
	}
	if _, err := ParseTag("opus"); err == nil {
		t.Error("ParseTag(\"opus\") = nil error, want error")
	}
}

func TestFormatJSON(t *testing.T) {
	b, err := json.Marshal(MulawMono8K)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(b) != `"mulaw"` {
		t.Errorf("Marshal = %s, want %q", b, `"mulaw"`)
	}

	var f Format
	if err := json.Unmarshal([]byte(`"alaw"`), &f); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if f != AlawMono8K {
		t.Errorf("Unmarshal = %v, want AlawMono8K", f)
	}
	if err := json.Unmarshal([]byte(`"mp3"`), &f); err == nil {
		t.Error("Unmarshal(\"mp3\") = nil error, want error")
	}
}
