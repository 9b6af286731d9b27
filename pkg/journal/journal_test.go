package journal_test

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/arunika/dollcore/pkg/device"
	"github.com/arunika/dollcore/pkg/journal"
	"github.com/arunika/dollcore/pkg/kv"
)

var _ device.Recorder = (*journal.Recorder)(nil)

var t0 = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func newJournal() (*journal.Journal, kv.Store) {
	store := kv.NewMemory(nil)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return journal.New(store, log), store
}

func TestAppendAndRecent(t *testing.T) {
	j, _ := newJournal()
	ctx := context.Background()

	recs := []journal.Record{
		{TS: t0.UnixNano(), Kind: journal.KindBoot},
		{TS: t0.Add(time.Second).UnixNano(), Kind: journal.KindState, From: device.StateInit, To: device.StateConnecting},
		{TS: t0.Add(2 * time.Second).UnixNano(), Kind: journal.KindLink, Up: true},
		{TS: t0.Add(3 * time.Second).UnixNano(), Kind: journal.KindError, Error: device.KindTimeout, Op: "processing"},
	}
	for _, rec := range recs {
		if err := j.Append(ctx, rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := j.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("recent = %d records, want 3", len(got))
	}
	if got[0].Kind != journal.KindError || got[0].Error != device.KindTimeout || got[0].Op != "processing" {
		t.Errorf("newest = %+v, want the error record", got[0])
	}
	if got[1].Kind != journal.KindLink || !got[1].Up {
		t.Errorf("second = %+v, want link up", got[1])
	}
	if got[2].Kind != journal.KindState || got[2].To != device.StateConnecting {
		t.Errorf("third = %+v, want state change", got[2])
	}

	all, err := j.Recent(ctx, 100)
	if err != nil {
		t.Fatalf("recent all: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("recent all = %d records, want 4", len(all))
	}
}

func TestAppendUniquifiesSameTick(t *testing.T) {
	j, _ := newJournal()
	ctx := context.Background()

	// An error and the state change it causes share one loop instant.
	ts := t0.UnixNano()
	if err := j.Append(ctx, journal.Record{TS: ts, Kind: journal.KindError, Error: device.KindNetwork, Op: "record"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := j.Append(ctx, journal.Record{TS: ts, Kind: journal.KindState, From: device.StateRecording, To: device.StateError}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("recent = %d records, want 2", len(got))
	}
	if got[0].Kind != journal.KindState || got[1].Kind != journal.KindError {
		t.Errorf("order = %v, %v; want state_change then error newest-first", got[0].Kind, got[1].Kind)
	}
	if got[0].TS <= got[1].TS {
		t.Errorf("timestamps not strictly increasing: %d then %d", got[1].TS, got[0].TS)
	}
}

func TestRangeScansOnlyWindow(t *testing.T) {
	j, _ := newJournal()
	ctx := context.Background()

	day1 := time.Date(2026, 3, 13, 23, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	day3 := time.Date(2026, 3, 15, 1, 0, 0, 0, time.UTC)
	for _, ts := range []time.Time{day1, day2, day3} {
		if err := j.Append(ctx, journal.Record{TS: ts.UnixNano(), Kind: journal.KindBoot}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := j.Range(ctx, day2.Add(-time.Hour), day2.Add(time.Hour))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(got) != 1 || got[0].TS != day2.UnixNano() {
		t.Fatalf("range = %+v, want only the middle record", got)
	}

	// from is inclusive, to is exclusive.
	got, err = j.Range(ctx, day1, day2)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(got) != 1 || got[0].TS != day1.UnixNano() {
		t.Fatalf("range = %+v, want only the first record", got)
	}

	got, err = j.Range(ctx, day1, day3.Add(time.Second))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("range = %d records, want all 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].TS <= got[i-1].TS {
			t.Errorf("range out of order at %d", i)
		}
	}
}

func TestRecorderFeedsJournal(t *testing.T) {
	j, _ := newJournal()
	rec := j.Recorder()

	rec.RecordBoot(t0)
	rec.RecordState(t0, device.StateInit, device.StateConnecting)
	rec.RecordState(t0.Add(300*time.Millisecond), device.StateConnecting, device.StateIdle)
	rec.RecordLink(t0.Add(time.Second), false, io.ErrUnexpectedEOF)
	rec.RecordSleep(t0.Add(2*time.Second), 4)

	got, err := j.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("recent = %d records, want 5", len(got))
	}
	if got[0].Kind != journal.KindSleep || got[0].Battery != 4 {
		t.Errorf("newest = %+v, want sleep at 4%%", got[0])
	}
	if got[1].Kind != journal.KindLink || got[1].Up || got[1].Cause != io.ErrUnexpectedEOF.Error() {
		t.Errorf("link record = %+v", got[1])
	}
	if got[2].Kind != journal.KindState || got[2].Dwell.Duration() != 300*time.Millisecond {
		t.Errorf("state record = %+v, want 300ms dwell in connecting", got[2])
	}
}

func TestRecentSkipsCorruptRecord(t *testing.T) {
	j, store := newJournal()
	ctx := context.Background()

	if err := j.Append(ctx, journal.Record{TS: t0.UnixNano(), Kind: journal.KindBoot}); err != nil {
		t.Fatalf("append: %v", err)
	}
	ts := t0.Add(time.Second).UnixNano()
	key := kv.Key{"journal", "rec", "20260314", strconv.FormatInt(ts, 10)}
	if err := store.Set(ctx, key, []byte("not msgpack")); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 || got[0].Kind != journal.KindBoot {
		t.Fatalf("recent = %+v, want just the boot record", got)
	}
}
