package hal_test

import (
	"context"
	"errors"
	"testing"

	"github.com/arunika/dollcore/pkg/audio/pcm"
	"github.com/arunika/dollcore/pkg/hal"
)

func TestMockAudioCaptureGating(t *testing.T) {
	a := hal.NewMockAudio(pcm.L16Mono8K)

	a.FeedCapture([]byte{1, 2}, []byte{3, 4})
	if _, ok := a.ReadCapture(); ok {
		t.Fatal("ReadCapture returned data before StartCapture")
	}

	if err := a.StartCapture(); err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	if err := a.StartCapture(); err == nil {
		t.Fatal("second StartCapture: expected error")
	}

	chunk, ok := a.ReadCapture()
	if !ok || chunk[0] != 1 {
		t.Fatalf("ReadCapture = (%v, %v), want first fed chunk", chunk, ok)
	}
	if a.CaptureBacklog() != 1 {
		t.Fatalf("CaptureBacklog = %d, want 1", a.CaptureBacklog())
	}

	if err := a.StopCapture(); err != nil {
		t.Fatalf("StopCapture: %v", err)
	}
	if a.CaptureBacklog() != 0 {
		t.Fatal("StopCapture did not flush the backlog")
	}
	if _, ok := a.ReadCapture(); ok {
		t.Fatal("ReadCapture returned data after StopCapture")
	}
}

func TestMockAudioPlayback(t *testing.T) {
	a := hal.NewMockAudio(pcm.MulawMono8K)

	if _, err := a.WritePlayback([]byte{1}); err == nil {
		t.Fatal("WritePlayback before StartPlayback: expected error")
	}
	if err := a.StartPlayback(); err != nil {
		t.Fatalf("StartPlayback: %v", err)
	}

	for _, chunk := range [][]byte{{1, 1}, {2, 2}} {
		ok, err := a.WritePlayback(chunk)
		if err != nil || !ok {
			t.Fatalf("WritePlayback = (%v, %v), want (true, nil)", ok, err)
		}
	}
	played := a.Played()
	if len(played) != 2 || played[0][0] != 1 || played[1][0] != 2 {
		t.Fatalf("Played() = %v, want the two written chunks", played)
	}

	a.SetWriteBlocked(true)
	ok, err := a.WritePlayback([]byte{3})
	if err != nil || ok {
		t.Fatalf("blocked WritePlayback = (%v, %v), want (false, nil)", ok, err)
	}
	if len(a.Played()) != 2 {
		t.Fatal("blocked write still reached the speaker")
	}
}

func TestMockAudioVolume(t *testing.T) {
	a := hal.NewMockAudio(pcm.L16Mono8K)
	if a.Volume() != 100 {
		t.Fatalf("default volume = %d, want 100", a.Volume())
	}
	if err := a.SetVolume(40); err != nil {
		t.Fatalf("SetVolume(40): %v", err)
	}
	if a.Volume() != 40 {
		t.Fatalf("volume = %d, want 40", a.Volume())
	}
	if err := a.SetVolume(150); err == nil {
		t.Fatal("SetVolume(150): expected error")
	}
	if err := a.SetVolume(-1); err == nil {
		t.Fatal("SetVolume(-1): expected error")
	}
}

func TestMockRadio(t *testing.T) {
	ctx := context.Background()
	r := hal.NewMockRadio()

	if r.Associated() {
		t.Fatal("fresh radio reports associated")
	}
	if err := r.Associate(ctx, "doll-lab-2g", "pw"); err != nil {
		t.Fatalf("Associate: %v", err)
	}
	if !r.Associated() || r.LastSSID() != "doll-lab-2g" || r.AssociateCalls() != 1 {
		t.Fatalf("state after associate: associated=%v ssid=%q calls=%d",
			r.Associated(), r.LastSSID(), r.AssociateCalls())
	}

	r.Drop()
	if r.Associated() {
		t.Fatal("Drop did not clear association")
	}

	wantErr := errors.New("no such network")
	r.SetFailWith(wantErr)
	if err := r.Associate(ctx, "doll-lab-2g", "pw"); !errors.Is(err, wantErr) {
		t.Fatalf("scripted failure: err = %v, want %v", err, wantErr)
	}
	if r.Associated() {
		t.Fatal("failed associate still set associated")
	}
}

func TestMockRadioHang(t *testing.T) {
	r := hal.NewMockRadio()
	r.SetHang(true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Associate(ctx, "ssid", "pw"); !errors.Is(err, context.Canceled) {
		t.Fatalf("hung associate: err = %v, want context.Canceled", err)
	}
	if r.Associated() {
		t.Fatal("cancelled associate still set associated")
	}
}

func TestMockPower(t *testing.T) {
	p := hal.NewMockPower()
	if p.BatteryPercent() != 85 || p.Charging() {
		t.Fatalf("fresh power = (%d%%, charging=%v), want (85%%, false)", p.BatteryPercent(), p.Charging())
	}

	p.SetBattery(4)
	p.SetCharging(true)
	if p.BatteryPercent() != 4 || !p.Charging() {
		t.Fatal("setters did not take")
	}

	p.SetBattery(150)
	if p.BatteryPercent() != 100 {
		t.Fatalf("battery above range = %d, want clamp to 100", p.BatteryPercent())
	}
	p.SetBattery(-5)
	if p.BatteryPercent() != 0 {
		t.Fatalf("battery below range = %d, want clamp to 0", p.BatteryPercent())
	}

	if err := p.RequestDeepSleep(); err != nil {
		t.Fatalf("RequestDeepSleep: %v", err)
	}
	if p.SleepRequests() != 1 {
		t.Fatalf("SleepRequests = %d, want 1", p.SleepRequests())
	}
}

func TestMockIndicator(t *testing.T) {
	i := hal.NewMockIndicator()
	i.SetPattern(hal.PatternBlink)
	i.SetPattern(hal.PatternBreathing)
	i.SetPattern(hal.PatternPulse)

	if i.Current() != hal.PatternPulse {
		t.Fatalf("Current = %v, want pulse", i.Current())
	}
	hist := i.History()
	want := []hal.Pattern{hal.PatternBlink, hal.PatternBreathing, hal.PatternPulse}
	if len(hist) != len(want) {
		t.Fatalf("History = %v, want %v", hist, want)
	}
	for n, p := range want {
		if hist[n] != p {
			t.Fatalf("History[%d] = %v, want %v", n, hist[n], p)
		}
	}
}

func TestParseBackend(t *testing.T) {
	cases := []struct {
		in      string
		want    hal.Backend
		wantErr bool
	}{
		{"", hal.BackendAuto, false},
		{"auto", hal.BackendAuto, false},
		{"malgo", hal.BackendMalgo, false},
		{"mock", hal.BackendMock, false},
		{"alsa", "", true},
	}
	for _, tc := range cases {
		got, err := hal.ParseBackend(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseBackend(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseBackend(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
