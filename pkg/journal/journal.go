// Package journal is the on-device flight recorder: boots, state changes,
// link transitions, faults and the final sleep, persisted through the kv
// store so a crashed or returned unit can be read back from flash.
//
// Key layout:
//
//	journal:rec:{YYYYMMDD}:{ts_ns} → msgpack-encoded Record
//
// The date partition keeps time-range scans cheap. The nanosecond
// timestamp orders records within a day; Append nudges it forward when two
// records land on the same loop tick, so keys never collide.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/arunika/dollcore/pkg/device"
	"github.com/arunika/dollcore/pkg/jsontime"
	"github.com/arunika/dollcore/pkg/kv"
)

// Kind discriminates journal records.
type Kind string

const (
	// KindBoot marks a power-on or force reset.
	KindBoot Kind = "boot"
	// KindState marks a controller state change.
	KindState Kind = "state_change"
	// KindLink marks the duplex channel going up or down.
	KindLink Kind = "link"
	// KindError marks a classified fault.
	KindError Kind = "error"
	// KindSleep marks the low-battery shutdown.
	KindSleep Kind = "sleep"
)

// Record is one journal entry. Only the fields named by the kind are set;
// zero fields are omitted from both encodings and decode back to their
// zero values.
type Record struct {
	// TS is the Unix timestamp in nanoseconds. Unique per journal.
	TS   int64 `json:"ts" msgpack:"ts"`
	Kind Kind  `json:"kind" msgpack:"kind"`

	// From, To and Dwell are set on state_change. Dwell is how long the
	// device sat in From.
	From  device.State      `json:"from,omitempty" msgpack:"from,omitempty"`
	To    device.State      `json:"to,omitempty" msgpack:"to,omitempty"`
	Dwell jsontime.Duration `json:"dwell,omitempty" msgpack:"dwell,omitempty"`

	// Up and Cause are set on link.
	Up    bool   `json:"up,omitempty" msgpack:"up,omitempty"`
	Cause string `json:"cause,omitempty" msgpack:"cause,omitempty"`

	// Error and Op are set on error.
	Error device.ErrorKind `json:"error,omitempty" msgpack:"error,omitempty"`
	Op    string           `json:"op,omitempty" msgpack:"op,omitempty"`

	// Battery is set on sleep.
	Battery int `json:"battery,omitempty" msgpack:"battery,omitempty"`
}

// Time returns the record timestamp.
func (r Record) Time() time.Time {
	return time.Unix(0, r.TS).UTC()
}

var recPrefix = kv.Key{"journal", "rec"}

// Journal reads and writes lifecycle records. Appends must come from one
// goroutine; reads may run anywhere.
type Journal struct {
	store  kv.Store
	log    *slog.Logger
	lastTS int64
}

// New wraps a store. Pass nil to default the logger.
func New(store kv.Store, log *slog.Logger) *Journal {
	if log == nil {
		log = slog.Default()
	}
	return &Journal{store: store, log: log}
}

// Append persists one record. When the record's timestamp does not advance
// past the previous append it is nudged forward a nanosecond, keeping keys
// unique and ordered even within one loop tick.
func (j *Journal) Append(ctx context.Context, rec Record) error {
	if rec.TS <= j.lastTS {
		rec.TS = j.lastTS + 1
	}
	j.lastTS = rec.TS

	data, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("journal: encode: %w", err)
	}
	if err := j.store.Set(ctx, recordKey(rec.TS), data); err != nil {
		return fmt.Errorf("journal: append: %w", err)
	}
	return nil
}

// recordKey builds journal:rec:{YYYYMMDD}:{ts_ns}. Nanosecond timestamps
// share a digit count for the next two centuries, so lexicographic key
// order matches chronological order.
func recordKey(ts int64) kv.Key {
	t := time.Unix(0, ts).UTC()
	k := make(kv.Key, 0, len(recPrefix)+2)
	k = append(k, recPrefix...)
	k = append(k, t.Format("20060102"), strconv.FormatInt(ts, 10))
	return k
}

// Recent returns the n most recent records, newest first. Corrupt entries
// are skipped with a warning.
func (j *Journal) Recent(ctx context.Context, n int) ([]Record, error) {
	if n <= 0 {
		return nil, nil
	}
	var all []Record
	for entry, err := range j.store.List(ctx, recPrefix) {
		if err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		var rec Record
		if err := msgpack.Unmarshal(entry.Value, &rec); err != nil {
			j.log.Warn("skipping corrupt journal record", "key", entry.Key.String())
			continue
		}
		all = append(all, rec)
	}
	if len(all) > n {
		all = all[len(all)-n:]
	}
	out := make([]Record, len(all))
	for i, rec := range all {
		out[len(all)-1-i] = rec
	}
	return out, nil
}

// Range returns records with from ≤ ts < to in chronological order,
// scanning only the day partitions the window touches.
func (j *Journal) Range(ctx context.Context, from, to time.Time) ([]Record, error) {
	if !to.After(from) {
		return nil, nil
	}
	fromNS, toNS := from.UnixNano(), to.UnixNano()

	var out []Record
	for day := from.UTC().Truncate(24 * time.Hour); day.Before(to); day = day.AddDate(0, 0, 1) {
		prefix := make(kv.Key, 0, len(recPrefix)+1)
		prefix = append(prefix, recPrefix...)
		prefix = append(prefix, day.Format("20060102"))

		for entry, err := range j.store.List(ctx, prefix) {
			if err != nil {
				return nil, fmt.Errorf("journal: scan: %w", err)
			}
			var rec Record
			if err := msgpack.Unmarshal(entry.Value, &rec); err != nil {
				j.log.Warn("skipping corrupt journal record", "key", entry.Key.String())
				continue
			}
			if rec.TS < fromNS || rec.TS >= toNS {
				continue
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

// Recorder returns the adapter feeding this journal from the device
// controller.
func (j *Journal) Recorder() *Recorder {
	return &Recorder{j: j}
}

// Recorder implements the controller's journaling hook. Append failures
// are logged and dropped; flash trouble never stalls the device loop.
type Recorder struct {
	j     *Journal
	entry time.Time // when the current state was entered
}

func (r *Recorder) RecordBoot(now time.Time) {
	r.entry = now
	r.append(Record{TS: now.UnixNano(), Kind: KindBoot})
}

func (r *Recorder) RecordState(now time.Time, from, to device.State) {
	var dwell jsontime.Duration
	if !r.entry.IsZero() {
		dwell = jsontime.Duration(now.Sub(r.entry))
	}
	r.entry = now
	r.append(Record{TS: now.UnixNano(), Kind: KindState, From: from, To: to, Dwell: dwell})
}

func (r *Recorder) RecordLink(now time.Time, up bool, cause error) {
	rec := Record{TS: now.UnixNano(), Kind: KindLink, Up: up}
	if cause != nil {
		rec.Cause = cause.Error()
	}
	r.append(rec)
}

func (r *Recorder) RecordError(now time.Time, kind device.ErrorKind, op string) {
	r.append(Record{TS: now.UnixNano(), Kind: KindError, Error: kind, Op: op})
}

func (r *Recorder) RecordSleep(now time.Time, battery int) {
	r.append(Record{TS: now.UnixNano(), Kind: KindSleep, Battery: battery})
}

func (r *Recorder) append(rec Record) {
	if err := r.j.Append(context.Background(), rec); err != nil {
		r.j.log.Warn("journal append dropped", "kind", rec.Kind, "err", err)
	}
}
