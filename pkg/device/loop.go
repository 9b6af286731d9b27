package device

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/arunika/dollcore/pkg/clock"
	"github.com/arunika/dollcore/pkg/hal"
	"github.com/arunika/dollcore/pkg/link"
)

// DefaultTickInterval bounds the loop sleep so event sources keep getting
// polled while no timer is close.
const DefaultTickInterval = 10 * time.Millisecond

// ErrDeepSleep is returned by Run after the device powered down on low
// battery.
var ErrDeepSleep = errors.New("device: deep sleep")

// Run drives the cooperative loop until ctx is cancelled or the device
// enters deep sleep. Cancellation is the clean path: the device shuts
// down and Run returns nil. Deep sleep returns ErrDeepSleep.
func Run(ctx context.Context, c *Controller, clk clock.Clock) error {
	c.Boot(clk.Now())
	for {
		c.Step(clk.Now())
		if c.sleeping {
			return ErrDeepSleep
		}
		if err := clk.Sleep(ctx, c.wakeAt(clk.Now())); err != nil {
			c.Shutdown(clk.Now())
			return nil
		}
	}
}

// Step runs one loop pass at now: collect events from every source, apply
// them in priority order, fire timers, then pump the speaker.
func (c *Controller) Step(now time.Time) {
	events := c.gather(now)
	slices.SortStableFunc(events, func(a, b Event) int {
		return int(a.Kind) - int(b.Kind)
	})
	for _, ev := range events {
		c.Handle(now, ev)
	}
	c.Tick(now)
	c.pumpPlayback(now)
	c.publishStats()
}

// gather polls the event sources. Source order is fixed; the priority
// sort in Step decides handling order.
func (c *Controller) gather(now time.Time) []Event {
	var events []Event

	for _, le := range c.cfg.Link.Tick(now) {
		switch le.Kind {
		case link.EventLinkUp:
			events = append(events, Event{Kind: EventLinkUp})
		case link.EventLinkDown:
			events = append(events, Event{Kind: EventLinkDown, Cause: le.Cause})
		}
	}

	if err := c.cfg.Transport.Flush(now); err != nil {
		c.log.Debug("flush failed", "err", err)
	}
	for _, resp := range c.cfg.Transport.Poll(now) {
		events = append(events, Event{Kind: EventInbound, Response: resp})
	}

	if c.state == StateRecording {
		for {
			chunk, ok := c.cfg.HW.Audio.ReadCapture()
			if !ok {
				break
			}
			events = append(events, Event{Kind: EventCaptureTick, Chunk: chunk})
		}
	}

	for _, be := range c.cfg.HW.Button.Poll(now) {
		switch be {
		case hal.ButtonPress:
			events = append(events, Event{Kind: EventButtonPressed})
		case hal.ButtonLongPress:
			events = append(events, Event{Kind: EventButtonHeld})
		}
	}

	if !c.sleeping && !c.cfg.HW.Power.Charging() &&
		c.cfg.HW.Power.BatteryPercent() < c.cfg.LowBatteryPct {
		events = append(events, Event{Kind: EventLowBattery})
	}

	return events
}

func (c *Controller) pumpPlayback(now time.Time) {
	if c.state != StatePlaying {
		return
	}
	finished, err := c.cfg.Playback.Pump(now, c.cfg.HW.Audio)
	if err != nil {
		c.fault(now, KindAudio, "playback", err)
		return
	}
	if finished {
		c.Handle(now, Event{Kind: EventPlaybackFinished})
	}
}

// wakeAt picks the next loop wakeup: the nearest pending timer, capped at
// one tick interval out.
func (c *Controller) wakeAt(now time.Time) time.Time {
	wake := now.Add(c.cfg.TickInterval)
	if d := c.NextDeadline(); !d.IsZero() && d.Before(wake) {
		wake = d
	}
	if d := c.cfg.Link.NextDeadline(now); !d.IsZero() && d.Before(wake) {
		wake = d
	}
	if !wake.After(now) {
		wake = now.Add(c.cfg.TickInterval)
	}
	return wake
}
