package device

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/arunika/dollcore/pkg/devcfg"
	"github.com/arunika/dollcore/pkg/hal"
	"github.com/arunika/dollcore/pkg/link"
	"github.com/arunika/dollcore/pkg/transport"
)

const (
	// DefaultProcessingTimeout bounds the wait for a server response after
	// end-of-stream.
	DefaultProcessingTimeout = 15 * time.Second

	// DefaultLowBatteryPct is the charge level below which the device
	// enters deep sleep instead of starting new work.
	DefaultLowBatteryPct = 5

	// retryBase and retryCap bound the re-init backoff after a
	// recoverable error.
	retryBase = time.Second
	retryCap  = 30 * time.Second
)

// Recorder receives lifecycle records for the flight journal. Implementations
// must not block; they run on the main loop.
type Recorder interface {
	RecordBoot(now time.Time)
	RecordState(now time.Time, from, to State)
	RecordLink(now time.Time, up bool, cause error)
	RecordError(now time.Time, kind ErrorKind, op string)
	RecordSleep(now time.Time, battery int)
}

type nopRecorder struct{}

func (nopRecorder) RecordBoot(time.Time)                     {}
func (nopRecorder) RecordState(time.Time, State, State)      {}
func (nopRecorder) RecordLink(time.Time, bool, error)        {}
func (nopRecorder) RecordError(time.Time, ErrorKind, string) {}
func (nopRecorder) RecordSleep(time.Time, int)               {}

// Config wires a Controller to its collaborators.
type Config struct {
	// HW is the hardware capability set.
	HW hal.Set

	// Link is the channel supervisor. The controller drives EnsureUp and
	// Shutdown; the loop drives Tick.
	Link *link.Supervisor

	// Transport is the audio uplink and downlink codec.
	Transport *transport.Transport

	// Playback is the speaker-side jitter queue.
	Playback *transport.Playback

	// Recorder receives journal records. Nil disables journaling.
	Recorder Recorder

	// Log defaults to slog.Default.
	Log *slog.Logger

	// ProcessingTimeout defaults to DefaultProcessingTimeout.
	ProcessingTimeout time.Duration

	// TickInterval defaults to DefaultTickInterval.
	TickInterval time.Duration

	// LowBatteryPct defaults to DefaultLowBatteryPct.
	LowBatteryPct int

	// RetryRand overrides the re-init backoff jitter source. Tests pin it.
	RetryRand func() float64
}

// Controller is the device state machine. It is not safe for concurrent
// use; every method must be called from the main loop.
type Controller struct {
	cfg Config
	log *slog.Logger
	rec Recorder

	state   State
	errKind ErrorKind // set while state == StateError
	lastErr ErrorKind // most recent failure, any severity

	processingDeadline time.Time
	retryAt            time.Time
	retry              link.Backoff

	sleeping bool

	transitions uint64
	recordings  uint64
	timeouts    uint64
	faults      uint64

	published atomic.Pointer[Stats]
}

// New returns a Controller in StateInit. Call Boot to start the lifecycle.
func New(cfg Config) *Controller {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.ProcessingTimeout <= 0 {
		cfg.ProcessingTimeout = DefaultProcessingTimeout
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.LowBatteryPct <= 0 {
		cfg.LowBatteryPct = DefaultLowBatteryPct
	}
	rec := cfg.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	c := &Controller{
		cfg: cfg,
		log: cfg.Log,
		rec: rec,
		retry: link.Backoff{
			Base:   retryBase,
			Cap:    retryCap,
			Jitter: 0.2,
			Rand:   cfg.RetryRand,
		},
	}
	c.cfg.HW.Indicator.SetPattern(hal.PatternOff)
	return c
}

// State returns the current lifecycle phase.
func (c *Controller) State() State { return c.state }

// ErrorKind returns the active error while in StateError, KindOk otherwise.
func (c *Controller) ErrorKind() ErrorKind {
	if c.state != StateError {
		return KindOk
	}
	return c.errKind
}

// LastError returns the most recent failure of any severity, including
// ones that did not change state.
func (c *Controller) LastError() ErrorKind { return c.lastErr }

// Sleeping reports whether deep sleep was requested. The loop exits at the
// end of the tick that set it.
func (c *Controller) Sleeping() bool { return c.sleeping }

// Boot starts the lifecycle from StateInit.
func (c *Controller) Boot(now time.Time) {
	c.Handle(now, Event{Kind: EventBooted})
}

// Handle applies one event to the state machine.
func (c *Controller) Handle(now time.Time, ev Event) {
	switch ev.Kind {
	case EventFault:
		c.fault(now, ev.Fault, "fault", ev.Cause)
	case EventLinkDown:
		c.handleLinkDown(now, ev.Cause)
	case EventLinkUp:
		c.handleLinkUp(now)
	case EventInbound:
		c.handleInbound(now, ev.Response)
	case EventCaptureTick:
		c.handleCapture(ev.Chunk)
	case EventButtonHeld:
		c.forceReset(now)
	case EventButtonPressed:
		c.handlePress(now)
	case EventPlaybackFinished:
		c.handlePlaybackFinished(now)
	case EventLowBattery:
		c.handleLowBattery(now)
	case EventBooted:
		c.handleBooted(now)
	default:
		c.log.Debug("unknown event dropped", "kind", int(ev.Kind))
	}
}

// Tick fires the controller's timers: the processing deadline and the
// error retry deadline.
func (c *Controller) Tick(now time.Time) {
	if c.state == StateProcessing && !c.processingDeadline.IsZero() && !now.Before(c.processingDeadline) {
		c.processingDeadline = time.Time{}
		c.timeouts++
		c.lastErr = KindTimeout
		c.rec.RecordError(now, KindTimeout, "processing")
		c.log.Warn("processing timed out, discarding exchange")
		c.setState(now, StateIdle)
	}

	if c.state == StateError && c.errKind.Recoverable() && !c.retryAt.IsZero() && !now.Before(c.retryAt) {
		c.retryAt = time.Time{}
		c.errKind = KindOk
		c.log.Info("error backoff elapsed, reinitializing")
		c.setState(now, StateInit)
		c.handleBooted(now)
	}
}

// NextDeadline returns the earliest pending controller timer, or the zero
// time when none is armed.
func (c *Controller) NextDeadline() time.Time {
	deadline := c.processingDeadline
	if !c.retryAt.IsZero() && (deadline.IsZero() || c.retryAt.Before(deadline)) {
		deadline = c.retryAt
	}
	if pb := c.cfg.Playback.NextDeadline(); !pb.IsZero() && (deadline.IsZero() || pb.Before(deadline)) {
		deadline = pb
	}
	return deadline
}

// Shutdown stops pipelines and closes the channel. Used on clean process
// exit; deep sleep and force reset have their own paths.
func (c *Controller) Shutdown(now time.Time) {
	c.teardown()
	c.cfg.Link.Shutdown()
	c.log.Info("shut down", "state", c.state)
}

// SaveConfig persists cfg through store. Writes are allowed only while
// idle; a flash write during capture or playback would stall the loop
// past its tick budget.
func (c *Controller) SaveConfig(ctx context.Context, store *devcfg.Store, cfg devcfg.Config) error {
	if c.state != StateIdle {
		return E(KindInvalidParam, "config save", fmt.Errorf("device is %s", c.state))
	}
	if err := cfg.Validate(); err != nil {
		return E(KindConfig, "config save", err)
	}
	if err := store.Save(ctx, cfg); err != nil {
		return E(KindConfig, "config save", err)
	}
	c.log.Info("config saved")
	return nil
}

func (c *Controller) handleBooted(now time.Time) {
	if c.state != StateInit {
		c.log.Debug("boot ignored", "state", c.state)
		return
	}
	c.rec.RecordBoot(now)
	c.cfg.Link.EnsureUp(now)
	c.setState(now, StateConnecting)
	if c.cfg.Link.IsUp() {
		c.retry.Reset()
		c.setState(now, StateIdle)
	}
}

func (c *Controller) handleLinkUp(now time.Time) {
	c.rec.RecordLink(now, true, nil)
	if c.state != StateConnecting {
		c.log.Debug("link up ignored", "state", c.state)
		return
	}
	c.retry.Reset()
	c.setState(now, StateIdle)
}

func (c *Controller) handleLinkDown(now time.Time, cause error) {
	c.rec.RecordLink(now, false, cause)
	switch c.state {
	case StateRecording:
		// The capture is unrecoverable without the channel. fault stops
		// the microphone and drops the queued chunks.
		c.fault(now, KindNetwork, "record", cause)
	case StatePlaying:
		c.cfg.Playback.Abort()
		c.cfg.HW.Audio.StopPlayback()
		c.setState(now, StateConnecting)
	case StateProcessing:
		c.processingDeadline = time.Time{}
		c.setState(now, StateConnecting)
	case StateIdle:
		c.setState(now, StateConnecting)
	default:
		// Init, Connecting and Error ride it out.
	}
}

func (c *Controller) handlePress(now time.Time) {
	switch c.state {
	case StateIdle:
		if !c.cfg.Link.IsUp() {
			c.log.Debug("press ignored", "reason", "channel down")
			return
		}
		if err := c.cfg.HW.Audio.StartCapture(); err != nil {
			c.fault(now, KindAudio, "start capture", err)
			return
		}
		c.cfg.Transport.BeginRecording()
		c.recordings++
		c.setState(now, StateRecording)
	case StateRecording:
		c.finishRecording(now)
	default:
		c.log.Debug("press ignored", "state", c.state)
	}
}

func (c *Controller) finishRecording(now time.Time) {
	// Drain before stopping: StopCapture discards anything still queued.
	for {
		chunk, ok := c.cfg.HW.Audio.ReadCapture()
		if !ok {
			break
		}
		c.cfg.Transport.PushCapture(chunk)
	}
	if err := c.cfg.HW.Audio.StopCapture(); err != nil {
		c.log.Warn("stop capture failed", "err", err)
	}
	c.cfg.Transport.FinishRecording()
	c.processingDeadline = now.Add(c.cfg.ProcessingTimeout)
	c.setState(now, StateProcessing)
}

func (c *Controller) handleCapture(chunk []byte) {
	if c.state != StateRecording {
		return
	}
	c.cfg.Transport.PushCapture(chunk)
}

func (c *Controller) handleInbound(now time.Time, resp transport.Response) {
	switch c.state {
	case StateIdle, StateProcessing:
		if err := c.cfg.HW.Audio.StartPlayback(); err != nil {
			c.fault(now, KindAudio, "start playback", err)
			return
		}
		c.processingDeadline = time.Time{}
		c.cfg.Playback.Start(now)
		c.cfg.Playback.Enqueue(now, resp.Data, resp.Format)
		c.setState(now, StatePlaying)
	case StatePlaying:
		c.cfg.Playback.Enqueue(now, resp.Data, resp.Format)
	default:
		c.log.Debug("response dropped", "state", c.state)
	}
}

func (c *Controller) handlePlaybackFinished(now time.Time) {
	if c.state != StatePlaying {
		return
	}
	c.cfg.Playback.Abort()
	if err := c.cfg.HW.Audio.StopPlayback(); err != nil {
		c.log.Warn("stop playback failed", "err", err)
	}
	c.setState(now, StateIdle)
}

func (c *Controller) handleLowBattery(now time.Time) {
	if c.sleeping {
		return
	}
	battery := c.cfg.HW.Power.BatteryPercent()
	c.log.Warn("battery below threshold, entering deep sleep", "battery", battery)
	c.teardown()
	c.cfg.Link.Shutdown()
	c.setState(now, StateIdle)
	c.rec.RecordSleep(now, battery)
	if err := c.cfg.HW.Power.RequestDeepSleep(); err != nil {
		c.log.Error("deep sleep request failed", "err", err)
	}
	c.sleeping = true
}

func (c *Controller) forceReset(now time.Time) {
	c.log.Warn("force reset", "state", c.state)
	c.teardown()
	c.cfg.Link.Shutdown()
	c.errKind = KindOk
	c.retryAt = time.Time{}
	c.retry.Reset()
	c.setState(now, StateInit)
	c.handleBooted(now)
}

// fault moves the machine into StateError, or for KindInvalidParam only
// records the failure.
func (c *Controller) fault(now time.Time, kind ErrorKind, op string, cause error) {
	if kind == KindOk {
		return
	}
	c.faults++
	c.lastErr = kind
	if kind == KindInvalidParam {
		c.log.Error("invalid parameter", "op", op, "err", cause)
		c.rec.RecordError(now, kind, op)
		return
	}
	if c.state == StateError && c.errKind.Fatal() && !kind.Fatal() {
		// A fatal condition is never downgraded by a later failure.
		c.log.Debug("fault while fatal", "kind", kind, "op", op)
		return
	}
	c.rec.RecordError(now, kind, op)
	c.teardown()
	c.errKind = kind
	if kind.Recoverable() {
		delay := c.retry.Next()
		c.retryAt = now.Add(delay)
		c.log.Warn("recoverable fault", "kind", kind, "op", op, "err", cause, "retry_in", delay)
	} else {
		c.retryAt = time.Time{}
		c.log.Error("fatal fault", "kind", kind, "op", op, "err", cause)
	}
	c.setState(now, StateError)
}

// teardown stops whatever pipeline the current state runs and drops queued
// audio in both directions.
func (c *Controller) teardown() {
	switch c.state {
	case StateRecording:
		if err := c.cfg.HW.Audio.StopCapture(); err != nil {
			c.log.Warn("stop capture failed", "err", err)
		}
	case StatePlaying:
		c.cfg.Playback.Abort()
		if err := c.cfg.HW.Audio.StopPlayback(); err != nil {
			c.log.Warn("stop playback failed", "err", err)
		}
	}
	c.cfg.Transport.AbortRecording()
	c.processingDeadline = time.Time{}
}

func (c *Controller) setState(now time.Time, to State) {
	if to == c.state {
		return
	}
	from := c.state
	c.state = to
	c.transitions++
	c.cfg.HW.Indicator.SetPattern(patternFor(to))
	c.log.Info("state", "from", from, "to", to)
	c.rec.RecordState(now, from, to)
}

func patternFor(s State) hal.Pattern {
	switch s {
	case StateInit:
		return hal.PatternOff
	case StateConnecting, StateProcessing:
		return hal.PatternBlink
	case StateIdle:
		return hal.PatternBreathing
	case StateRecording:
		return hal.PatternPulse
	case StatePlaying:
		return hal.PatternSolid
	case StateError:
		return hal.PatternFault
	}
	return hal.PatternOff
}
