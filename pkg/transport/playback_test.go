package transport_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/arunika/dollcore/pkg/audio/codec/g711"
	"github.com/arunika/dollcore/pkg/audio/pcm"
	"github.com/arunika/dollcore/pkg/hal"
	"github.com/arunika/dollcore/pkg/transport"
)

func newSpeaker(t *testing.T, format pcm.Format) *hal.MockAudio {
	t.Helper()
	audio := hal.NewMockAudio(format)
	if err := audio.StartPlayback(); err != nil {
		t.Fatalf("StartPlayback: %v", err)
	}
	return audio
}

func TestPlaybackPumpAndDrain(t *testing.T) {
	audio := newSpeaker(t, pcm.MulawMono8K)
	pb := transport.NewPlayback(pcm.MulawMono8K)

	pb.Start(t0)
	buf := []byte{0x01, 0x02, 0x03}
	pb.Enqueue(t0, buf, pcm.MulawMono8K)

	finished, err := pb.Pump(t0.Add(10*time.Millisecond), audio)
	if err != nil {
		t.Fatalf("Pump: %v", err)
	}
	if finished {
		t.Fatal("finished while the drain window is still open")
	}
	played := audio.Played()
	if len(played) != 1 || !bytes.Equal(played[0], buf) {
		t.Fatalf("played = %x", played)
	}
	if pb.Len() != 0 {
		t.Fatalf("Len = %d after pump", pb.Len())
	}

	// Just short of the drain window: not finished yet.
	if finished, _ := pb.Pump(t0.Add(509*time.Millisecond), audio); finished {
		t.Fatal("finished before the drain window elapsed")
	}
	// The window counts from the last write, not from Start.
	finished, err = pb.Pump(t0.Add(510*time.Millisecond), audio)
	if err != nil || !finished {
		t.Fatalf("Pump = (%v, %v), want finished", finished, err)
	}
	// Only reported once.
	if finished, _ := pb.Pump(t0.Add(time.Second), audio); finished {
		t.Fatal("finished reported twice")
	}
}

func TestPlaybackNewDataReopensDrainWindow(t *testing.T) {
	audio := newSpeaker(t, pcm.MulawMono8K)
	pb := transport.NewPlayback(pcm.MulawMono8K)

	pb.Start(t0)
	pb.Enqueue(t0, []byte{0x01}, pcm.MulawMono8K)
	pb.Pump(t0, audio)

	// 400 ms later a new buffer arrives; the window restarts.
	later := t0.Add(400 * time.Millisecond)
	pb.Enqueue(later, []byte{0x02}, pcm.MulawMono8K)
	if finished, _ := pb.Pump(t0.Add(600*time.Millisecond), audio); finished {
		t.Fatal("finished despite fresh data 200 ms ago")
	}
	if finished, _ := pb.Pump(t0.Add(1100*time.Millisecond), audio); !finished {
		t.Fatal("not finished 700 ms after the last write")
	}
	if got := audio.Played(); len(got) != 2 {
		t.Fatalf("played %d buffers, want 2", len(got))
	}
}

func TestPlaybackOverflowRejectsNewest(t *testing.T) {
	pb := transport.NewPlayback(pcm.MulawMono8K)
	pb.Start(t0)
	for i := 0; i < transport.PlaybackDepth+2; i++ {
		pb.Enqueue(t0, []byte{byte(i)}, pcm.MulawMono8K)
	}
	if pb.Len() != transport.PlaybackDepth {
		t.Errorf("Len = %d, want %d", pb.Len(), transport.PlaybackDepth)
	}
	if pb.Rejected() != 2 {
		t.Errorf("Rejected = %d, want 2", pb.Rejected())
	}

	// The head kept its place.
	audio := newSpeaker(t, pcm.MulawMono8K)
	pb.Pump(t0, audio)
	if played := audio.Played(); len(played) == 0 || played[0][0] != 0 {
		t.Errorf("head = %x", played)
	}
}

func TestPlaybackWouldBlock(t *testing.T) {
	audio := newSpeaker(t, pcm.MulawMono8K)
	audio.SetWriteBlocked(true)
	pb := transport.NewPlayback(pcm.MulawMono8K)

	pb.Start(t0)
	pb.Enqueue(t0, []byte{0x01}, pcm.MulawMono8K)
	finished, err := pb.Pump(t0.Add(time.Second), audio)
	if err != nil || finished {
		t.Fatalf("Pump blocked = (%v, %v), want pending", finished, err)
	}
	if pb.Len() != 1 {
		t.Fatalf("Len = %d, want buffer retained", pb.Len())
	}

	audio.SetWriteBlocked(false)
	if finished, _ := pb.Pump(t0.Add(time.Second), audio); finished {
		t.Fatal("finished on the same tick as the unblocked write")
	}
	if finished, _ := pb.Pump(t0.Add(1600*time.Millisecond), audio); !finished {
		t.Fatal("not finished after the post-write drain window")
	}
}

func TestPlaybackTranscodesToSpeakerFormat(t *testing.T) {
	audio := newSpeaker(t, pcm.L16Mono8K)
	pb := transport.NewPlayback(pcm.L16Mono8K)

	mu := []byte{0xFF, 0x7F, 0x00}
	pb.Start(t0)
	pb.Enqueue(t0, mu, pcm.MulawMono8K)
	pb.Pump(t0, audio)

	played := audio.Played()
	if len(played) != 1 {
		t.Fatalf("played %d buffers, want 1", len(played))
	}
	if want := g711.DecodeMulaw(mu); !bytes.Equal(played[0], want) {
		t.Errorf("played = %x, want %x", played[0], want)
	}
}

func TestPlaybackWriteError(t *testing.T) {
	audio := hal.NewMockAudio(pcm.MulawMono8K)
	pb := transport.NewPlayback(pcm.MulawMono8K)

	pb.Start(t0)
	pb.Enqueue(t0, []byte{0x01}, pcm.MulawMono8K)
	if _, err := pb.Pump(t0, audio); err == nil {
		t.Fatal("Pump on a stopped speaker: expected error")
	}
}

func TestPlaybackAbort(t *testing.T) {
	pb := transport.NewPlayback(pcm.MulawMono8K)
	pb.Start(t0)
	pb.Enqueue(t0, []byte{0x01}, pcm.MulawMono8K)
	pb.Abort()
	if pb.Len() != 0 || pb.Active() {
		t.Errorf("after abort: len=%d active=%v", pb.Len(), pb.Active())
	}

	audio := newSpeaker(t, pcm.MulawMono8K)
	if finished, _ := pb.Pump(t0.Add(time.Hour), audio); finished {
		t.Error("aborted playback still reported finished")
	}
}

func TestPlaybackNextDeadline(t *testing.T) {
	pb := transport.NewPlayback(pcm.MulawMono8K)
	if !pb.NextDeadline().IsZero() {
		t.Error("idle playback has a deadline")
	}
	pb.Start(t0)
	if got, want := pb.NextDeadline(), t0.Add(transport.DrainTimeout); !got.Equal(want) {
		t.Errorf("NextDeadline = %v, want %v", got, want)
	}
	pb.Enqueue(t0, []byte{0x01}, pcm.MulawMono8K)
	if !pb.NextDeadline().IsZero() {
		t.Error("deadline set while audio is still queued")
	}
}
