package hal

import (
	"fmt"
	"sync"
	"time"
)

// Button timing.
const (
	// DebounceWindow filters contact bounce: a level change within this
	// window of the previous accepted change is ignored.
	DebounceWindow = 30 * time.Millisecond

	// LongPressAfter is how long the button must be held before a press
	// becomes a long press.
	LongPressAfter = 3 * time.Second
)

// ButtonEvent is a debounced logical button event.
type ButtonEvent int

const (
	// ButtonPress is a completed short press: pressed and released within
	// LongPressAfter.
	ButtonPress ButtonEvent = iota

	// ButtonLongPress fires once while the button is still held past
	// LongPressAfter. The eventual release emits nothing further.
	ButtonLongPress
)

func (e ButtonEvent) String() string {
	switch e {
	case ButtonPress:
		return "press"
	case ButtonLongPress:
		return "long_press"
	}
	return fmt.Sprintf("ButtonEvent(%d)", int(e))
}

// Debouncer turns raw button edges into logical events. Edge may run on a
// GPIO interrupt or a console reader; Poll runs on the main loop.
type Debouncer struct {
	mu         sync.Mutex
	pressed    bool
	lastChange time.Time
	pressedAt  time.Time
	longFired  bool
	queued     []ButtonEvent
}

func NewDebouncer() *Debouncer {
	return &Debouncer{}
}

// Edge records a raw level change at the given instant. pressed is the new
// level. Repeats of the current level and changes inside the debounce
// window are dropped.
func (d *Debouncer) Edge(pressed bool, at time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if pressed == d.pressed {
		return
	}
	if !d.lastChange.IsZero() && at.Sub(d.lastChange) < DebounceWindow {
		return
	}
	d.pressed = pressed
	d.lastChange = at
	if pressed {
		d.pressedAt = at
		d.longFired = false
		return
	}
	if !d.longFired && at.Sub(d.pressedAt) <= LongPressAfter {
		d.queued = append(d.queued, ButtonPress)
	}
}

// Poll implements Button.
func (d *Debouncer) Poll(now time.Time) []ButtonEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pressed && !d.longFired && now.Sub(d.pressedAt) > LongPressAfter {
		d.longFired = true
		d.queued = append(d.queued, ButtonLongPress)
	}
	ev := d.queued
	d.queued = nil
	return ev
}

// Pressed reports the current debounced level.
func (d *Debouncer) Pressed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pressed
}
