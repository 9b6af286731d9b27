package jsontime

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMilliJSON(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	b, err := json.Marshal(Milli(ts))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	want := "1748781000000"
	if string(b) != want {
		t.Errorf("Marshal = %s, want %s", b, want)
	}

	var got Milli
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !got.Time().Equal(ts) {
		t.Errorf("round trip = %v, want %v", got.Time(), ts)
	}
}

func TestMilliUnmarshalRejectsString(t *testing.T) {
	var m Milli
	if err := json.Unmarshal([]byte(`"not a number"`), &m); err == nil {
		t.Error("Unmarshal of string = nil error, want error")
	}
}

func TestMilliArithmetic(t *testing.T) {
	a := Milli(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	b := a.Add(90 * time.Second)
	if !a.Before(b) {
		t.Error("a.Before(b) = false, want true")
	}
	if !b.After(a) {
		t.Error("b.After(a) = false, want true")
	}
	if got := b.Sub(a); got != 90*time.Second {
		t.Errorf("Sub = %v, want 90s", got)
	}
	if a.IsZero() {
		t.Error("IsZero = true for non-zero time")
	}
	var zero Milli
	if !zero.IsZero() {
		t.Error("IsZero = false for zero time")
	}
}

func TestDurationJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Duration
	}{
		{name: "string", input: `"1m30s"`, want: 90 * time.Second},
		{name: "nanoseconds", input: `1500000000`, want: 1500 * time.Millisecond},
		{name: "null keeps zero", input: `null`, want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var d Duration
			if err := json.Unmarshal([]byte(tc.input), &d); err != nil {
				t.Fatalf("Unmarshal error: %v", err)
			}
			if d.Duration() != tc.want {
				t.Errorf("Unmarshal(%s) = %v, want %v", tc.input, d.Duration(), tc.want)
			}
		})
	}

	b, err := json.Marshal(Duration(90 * time.Second))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(b) != `"1m30s"` {
		t.Errorf("Marshal = %s, want %q", b, `"1m30s"`)
	}
}

func TestDurationUnmarshalRejectsGarbage(t *testing.T) {
	var d Duration
	if err := json.Unmarshal([]byte(`"forever"`), &d); err == nil {
		t.Error("Unmarshal of bad duration string = nil error, want error")
	}
}
